package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/charlie0129/battwatch/pkg/events"
)

func NewWatchCommand() *cobra.Command {
	jsonOutput := false

	cmd := &cobra.Command{
		Use:         "watch",
		GroupID:     gBasic,
		Short:       "Print battery percentage and charging wattage as they change",
		Long:        `Print the current battery percentage and charging wattage, then one line for every change, until interrupted.`,
		Annotations: map[string]string{annotationNeedsDaemon: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return watch(ctx, cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print one JSON object per change")

	return cmd
}

func watch(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	return apiClient.Watch(ctx, func(f events.Frame) {
		printFrame(cmd, f, jsonOutput)
	})
}

func printFrame(cmd *cobra.Command, f events.Frame, jsonOutput bool) {
	if jsonOutput {
		b, err := jsonLine(f)
		if err == nil {
			cmd.Println(b)
		}
		return
	}

	ts := time.Unix(f.Data.Ts, 0).Format(time.TimeOnly)
	switch f.Event {
	case events.BatteryPercent:
		cmd.Printf("%s  percent  %s\n", ts, bold("%s", f.Data.Value))
	case events.BatteryWattage:
		cmd.Printf("%s  wattage  %s\n", ts, colorWattage(f.Data.Value))
	default:
		cmd.Printf("%s  %s  %s\n", ts, f.Event, f.Data.Value)
	}
}
