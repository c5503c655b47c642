// Package metrics turns a single power event into the two strings battwatch
// publishes. Everything here is pure: same event in, same strings out.
package metrics

import (
	"fmt"
	"math"

	"github.com/charlie0129/battwatch/pkg/powerevent"
)

// Placeholders published when a metric cannot be measured.
const (
	Unknown             = "unknown"
	NotCharging         = "not charging"
	ChargingUnavailable = "charging, wattage unavailable"
)

// WattageState classifies the charging power cell.
type WattageState string

const (
	WattageUnknown             WattageState = "unknown"
	WattageNumeric             WattageState = "numeric"
	WattageChargingUnavailable WattageState = "charging-unavailable"
	WattageNotCharging         WattageState = "not-charging"
)

// Reading is the result of deriving one event.
type Reading struct {
	// Percent is only meaningful when PercentOK is true.
	Percent      string
	PercentOK    bool
	Wattage      string
	WattageState WattageState
}

// Derive computes both metrics from e.
func Derive(e powerevent.Event) Reading {
	var r Reading
	r.Percent, r.PercentOK = BatteryPercent(e.Level(), e.Scale())
	r.Wattage, r.WattageState = ChargingPower(e.Status(), e.CurrentNow(), e.Voltage())
	return r
}

// BatteryPercent returns round(level*100/scale) followed by a percent sign.
// ok is false when level is negative (absent) or scale is not positive.
func BatteryPercent(level, scale int64) (s string, ok bool) {
	if level < 0 || scale <= 0 {
		return "", false
	}
	pct := math.Round(float64(level) * 100 / float64(scale))
	return fmt.Sprintf("%d%%", int64(pct)), true
}

// ChargingPower returns the charging power in watts with two decimals.
//
// currentMicroAmps is signed and positive while charging. A negative current
// while the status says charging is a real hardware state (the load exceeds
// what the charger delivers), so it is not reported as a wattage.
func ChargingPower(status powerevent.Status, currentMicroAmps, voltageMilliVolts int64) (string, WattageState) {
	if !status.IsCharging() {
		return NotCharging, WattageNotCharging
	}

	amps := float64(currentMicroAmps) / 1_000_000
	volts := float64(voltageMilliVolts) / 1000
	if amps > 0 && volts > 0 {
		return fmt.Sprintf("%.2f W", amps*volts), WattageNumeric
	}

	return ChargingUnavailable, WattageChargingUnavailable
}

// ClassifyWattage returns the state of a published wattage string.
func ClassifyWattage(s string) WattageState {
	switch s {
	case Unknown:
		return WattageUnknown
	case NotCharging:
		return WattageNotCharging
	case ChargingUnavailable:
		return WattageChargingUnavailable
	default:
		return WattageNumeric
	}
}
