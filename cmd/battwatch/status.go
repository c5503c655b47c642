package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/battwatch/pkg/config"
	"github.com/charlie0129/battwatch/pkg/listener"
	"github.com/charlie0129/battwatch/pkg/metrics"
	"github.com/charlie0129/battwatch/pkg/platform/uevent"
	"github.com/charlie0129/battwatch/pkg/types"
)

type statusData struct {
	// local is set when the values were read without the daemon.
	local   bool
	metrics *types.Metrics
	config  *config.RawFileConfig
}

// fetchStatusData gathers all data required for the status command from the daemon.
func fetchStatusData(ctx context.Context) (*statusData, error) {
	m, err := apiClient.GetMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics: %w", err)
	}

	conf, err := apiClient.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	return &statusData{
		metrics: m,
		config:  conf,
	}, nil
}

// fetchLocalStatusData reads the battery once, the same way the daemon does
// at startup.
func fetchLocalStatusData() (*statusData, error) {
	conf, err := config.NewFile(configPath)
	if err != nil {
		logrus.WithError(err).Warn("failed to read config, using defaults")
		conf = config.NewFileFromConfig(nil, configPath)
	}
	if err := conf.ApplyEnvOverrides(); err != nil {
		return nil, err
	}

	m, err := localMetrics(uevent.New(uevent.Options{
		PowerSupply:   conf.PowerSupply(),
		InvertCurrent: conf.InvertCurrent(),
	}))
	if err != nil {
		return nil, err
	}

	raw, err := config.NewRawFileConfigFromConfig(conf)
	if err != nil {
		return nil, err
	}

	return &statusData{local: true, metrics: m, config: raw}, nil
}

func localMetrics(s listener.Snapshotter) (*types.Metrics, error) {
	ev, err := s.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to read battery: %w", err)
	}

	r := metrics.Derive(ev)
	percent := metrics.Unknown
	if r.PercentOK {
		percent = r.Percent
	}
	return &types.Metrics{
		Percent:      percent,
		Wattage:      r.Wattage,
		WattageState: string(r.WattageState),
		Events:       1,
	}, nil
}

func NewStatusCommand() *cobra.Command {
	jsonOutput := false
	local := false

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current battery percentage and charging wattage",
		Long: `Get the battery percentage and charging wattage published by the daemon, and the daemon configuration.

With --local, the battery is read directly and the daemon is not contacted.`,
		Annotations: map[string]string{annotationNeedsDaemon: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var data *statusData
			var err error
			if local {
				data, err = fetchLocalStatusData()
			} else {
				data, err = fetchStatusData(cmd.Context())
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				return printStatusJSON(cmd, data)
			}
			printStatus(cmd, data)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print status as JSON")
	cmd.Flags().BoolVar(&local, "local", false, "Read the battery directly instead of asking the daemon")

	return cmd
}

func printStatus(cmd *cobra.Command, data *statusData) {
	conf := config.NewFileFromConfig(data.config, "")

	cmd.Println(bold("Battery status:"))
	cmd.Printf("  Percentage: %s\n", bold("%s", data.metrics.Percent))
	cmd.Printf("  Charging power: %s\n", colorWattage(data.metrics.Wattage))
	if data.local {
		cmd.Println("    Read directly from the battery, the daemon was not contacted.")
	} else {
		cmd.Printf("  Power events received: %s\n", bold("%d", data.metrics.Events))
		if data.metrics.Events == 0 {
			cmd.Println("    No power event has arrived yet, values are placeholders until the first one.")
		}
	}

	cmd.Println()

	cmd.Println(bold("Configuration:"))
	cmd.Printf("  Source: %s\n", bold("%s", conf.Source()))
	switch conf.Source() {
	case config.SourceReplay:
		cmd.Printf("  Replay file: %s\n", bold("%s", conf.ReplayFile()))
	default:
		cmd.Printf("  Power supply: %s\n", bold("%s", orDefault(conf.PowerSupply(), "first system battery")))
		cmd.Printf("  Invert current sign: %s\n", bool2Text(conf.InvertCurrent()))
	}
	cmd.Printf("  On malformed percentage: %s\n", bold("%s", conf.MalformedPercent()))
	cmd.Printf("  Allow non-root users to access the daemon: %s\n", bool2Text(conf.AllowNonRootAccess()))
}
