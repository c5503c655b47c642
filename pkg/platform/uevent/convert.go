package uevent

import (
	"math"
	"strconv"

	"github.com/distatus/battery"

	"github.com/charlie0129/battwatch/pkg/powerevent"
)

func propInt(props map[string]string, key string) (int64, bool) {
	raw, ok := props[propPrefix+key]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ToEvent converts power_supply properties into a powerevent.Event.
//
// sysfs units: VOLTAGE_NOW µV, CURRENT_NOW µA, POWER_NOW µW, CHARGE_* µAh,
// ENERGY_* µWh, CAPACITY percent.
//
// Drivers disagree on the sign of CURRENT_NOW. Most report a magnitude, some
// report charging as negative; set invertCurrent for the latter.
func ToEvent(props map[string]string, invertCurrent bool) powerevent.Event {
	ev := powerevent.Event{
		powerevent.KeyStatus: string(powerevent.ParseStatus(props[propPrefix+"STATUS"])),
	}

	if capacity, ok := propInt(props, "CAPACITY"); ok {
		ev.SetInt(powerevent.KeyLevel, capacity)
		ev.SetInt(powerevent.KeyScale, 100)
	} else if now, ok := propInt(props, "CHARGE_NOW"); ok {
		if full, ok := propInt(props, "CHARGE_FULL"); ok {
			ev.SetInt(powerevent.KeyLevel, now)
			ev.SetInt(powerevent.KeyScale, full)
		}
	} else if now, ok := propInt(props, "ENERGY_NOW"); ok {
		if full, ok := propInt(props, "ENERGY_FULL"); ok {
			ev.SetInt(powerevent.KeyLevel, now)
			ev.SetInt(powerevent.KeyScale, full)
		}
	}

	microVolts, haveVoltage := propInt(props, "VOLTAGE_NOW")
	if haveVoltage {
		ev.SetInt(powerevent.KeyVoltage, microVolts/1000)
	}

	if current, ok := propInt(props, "CURRENT_NOW"); ok {
		if invertCurrent {
			current = -current
		}
		ev.SetInt(powerevent.KeyCurrentNow, current)
	} else if power, ok := propInt(props, "POWER_NOW"); ok && haveVoltage && microVolts > 0 {
		// µW / µV = A
		current = int64(math.Round(float64(power) / float64(microVolts) * 1e6))
		if invertCurrent {
			current = -current
		}
		ev.SetInt(powerevent.KeyCurrentNow, current)
	}

	return ev
}

// FromBattery converts a reading of github.com/distatus/battery.
// Units there: Current/Full mWh, ChargeRate mW (always positive), Voltage V.
func FromBattery(b *battery.Battery) powerevent.Event {
	status := powerevent.StatusUnknown
	switch b.State {
	case battery.Charging:
		status = powerevent.StatusCharging
	case battery.Full:
		status = powerevent.StatusFull
	case battery.Discharging, battery.Empty:
		status = powerevent.StatusDischarging
	case battery.Unknown:
		status = powerevent.StatusUnknown
	}

	ev := powerevent.Event{powerevent.KeyStatus: string(status)}

	if b.Full > 0 {
		ev.SetInt(powerevent.KeyLevel, int64(math.Round(b.Current)))
		ev.SetInt(powerevent.KeyScale, int64(math.Round(b.Full)))
	}

	if b.Voltage > 0 {
		ev.SetInt(powerevent.KeyVoltage, int64(math.Round(b.Voltage*1000)))

		// mW / V = mA
		microAmps := int64(math.Round(b.ChargeRate / b.Voltage * 1000))
		if status == powerevent.StatusDischarging {
			microAmps = -microAmps
		}
		ev.SetInt(powerevent.KeyCurrentNow, microAmps)
	}

	return ev
}
