package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/charlie0129/battwatch/pkg/config"
)

type statusJSON struct {
	Local         bool              `json:"local"`
	Battery       statusBatteryJSON `json:"battery"`
	Configuration statusConfigJSON  `json:"configuration"`
}

type statusBatteryJSON struct {
	Percent      string `json:"percent"`
	Wattage      string `json:"wattage"`
	WattageState string `json:"wattageState"`
	// Events is omitted for local reads.
	Events *uint64 `json:"events,omitempty"`
}

type statusConfigJSON struct {
	Source             string `json:"source"`
	PowerSupply        string `json:"powerSupply"`
	InvertCurrent      bool   `json:"invertCurrent"`
	ReplayFile         string `json:"replayFile"`
	MalformedPercent   string `json:"malformedPercent"`
	AllowNonRootAccess bool   `json:"allowNonRootAccess"`
}

func printStatusJSON(cmd *cobra.Command, data *statusData) error {
	cfg := config.NewFileFromConfig(data.config, "")

	out := statusJSON{
		Local: data.local,
		Battery: statusBatteryJSON{
			Percent:      data.metrics.Percent,
			Wattage:      data.metrics.Wattage,
			WattageState: data.metrics.WattageState,
		},
		Configuration: statusConfigJSON{
			Source:             cfg.Source(),
			PowerSupply:        cfg.PowerSupply(),
			InvertCurrent:      cfg.InvertCurrent(),
			ReplayFile:         cfg.ReplayFile(),
			MalformedPercent:   cfg.MalformedPercent(),
			AllowNonRootAccess: cfg.AllowNonRootAccess(),
		},
	}
	if !data.local {
		events := data.metrics.Events
		out.Battery.Events = &events
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
