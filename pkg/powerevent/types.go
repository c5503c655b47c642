package powerevent

import "strings"

// ActionBatteryChanged is the only notification category battwatch listens to.
const ActionBatteryChanged = "battery.changed"

// Well-known attribute keys of an Event.
// Units:
// - KeyCurrentNow: µA, positive while charging
// - KeyVoltage: mV
const (
	KeyLevel      = "level"
	KeyScale      = "scale"
	KeyStatus     = "status"
	KeyCurrentNow = "current_now"
	KeyVoltage    = "voltage"
)

// Missing is the default returned by Event.Int when a field is absent.
const Missing int64 = -1

// Status represents the charging status reported by the host.
type Status string

const (
	StatusCharging    Status = "charging"
	StatusFull        Status = "full"
	StatusDischarging Status = "discharging"
	StatusNotCharging Status = "not-charging"
	StatusUnknown     Status = "unknown"
)

// ParseStatus accepts both our own spellings and the ones used by the
// kernel's power_supply class (e.g. "Not charging").
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "charging":
		return StatusCharging
	case "full":
		return StatusFull
	case "discharging":
		return StatusDischarging
	case "not-charging", "not charging", "notcharging":
		return StatusNotCharging
	default:
		return StatusUnknown
	}
}

// IsCharging reports whether the battery is taking power from a supply,
// which includes sitting at full charge on the charger.
func (s Status) IsCharging() bool {
	return s == StatusCharging || s == StatusFull
}
