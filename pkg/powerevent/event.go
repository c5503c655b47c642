package powerevent

import (
	"strconv"
	"strings"
)

// Event is the attribute bag of a single power state notification.
// It is only valid for the duration of one delivery and must not be retained.
type Event map[string]string

// New returns an Event with all well-known fields set.
func New(level, scale int64, status Status, currentMicroAmps, voltageMilliVolts int64) Event {
	return Event{
		KeyLevel:      strconv.FormatInt(level, 10),
		KeyScale:      strconv.FormatInt(scale, 10),
		KeyStatus:     string(status),
		KeyCurrentNow: strconv.FormatInt(currentMicroAmps, 10),
		KeyVoltage:    strconv.FormatInt(voltageMilliVolts, 10),
	}
}

// Int returns the integer value of key, or def if it is absent or not an integer.
func (e Event) Int(key string, def int64) int64 {
	raw, ok := e[key]
	if !ok {
		return def
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return def
	}
	return v
}

// SetInt sets key to v.
func (e Event) SetInt(key string, v int64) {
	e[key] = strconv.FormatInt(v, 10)
}

// Status returns the parsed charging status. Absent status is StatusUnknown.
func (e Event) Status() Status {
	return ParseStatus(e[KeyStatus])
}

// Level returns the current charge level, or Missing.
func (e Event) Level() int64 { return e.Int(KeyLevel, Missing) }

// Scale returns the maximum charge level, or Missing.
func (e Event) Scale() int64 { return e.Int(KeyScale, Missing) }

// CurrentNow returns the instantaneous current in µA, or Missing.
//
// Missing is also a valid (tiny, discharging) reading, which is fine since
// only positive values are used for power calculation.
func (e Event) CurrentNow() int64 { return e.Int(KeyCurrentNow, Missing) }

// Voltage returns the voltage in mV, or Missing.
func (e Event) Voltage() int64 { return e.Int(KeyVoltage, Missing) }
