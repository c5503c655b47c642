package main

import (
	"encoding/json"

	"github.com/fatih/color"

	"github.com/charlie0129/battwatch/pkg/metrics"
)

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}

// colorWattage highlights a wattage string by what it means.
func colorWattage(w string) string {
	switch metrics.ClassifyWattage(w) {
	case metrics.WattageNumeric:
		return color.New(color.Bold, color.FgGreen).Sprint(w)
	case metrics.WattageChargingUnavailable:
		return color.New(color.Bold, color.FgYellow).Sprint(w)
	case metrics.WattageNotCharging:
		return color.New(color.Bold, color.FgRed).Sprint(w)
	default:
		return bold("%s", w)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func jsonLine(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
