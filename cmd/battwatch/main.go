package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/charlie0129/battwatch/pkg/client"
	"github.com/charlie0129/battwatch/pkg/config"
)

var (
	logLevel       = "info"
	unixSocketPath = "/var/run/battwatch.sock"
	configPath     = "/etc/battwatch.json"
	dotEnvPath     = ".env"
)

var (
	gBasic        = "Basic:"
	gAdvanced     = "Advanced:"
	gInstallation = "Installation:"
	commandGroups = []string{
		gBasic,
		gAdvanced,
		gInstallation,
	}
)

var apiClient *client.Client

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	if errors.Is(err, client.ErrDaemonNotRunning) {
		fmt.Fprintln(os.Stderr, "\nError: battwatch daemon is not running")
		fmt.Fprintln(os.Stderr, "Is the daemon running? Have you installed it?")
		fmt.Fprintln(os.Stderr, "  - Use 'battwatch status --local' to read the battery without the daemon")
	} else if errors.Is(err, client.ErrPermissionDenied) {
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
		fmt.Fprintln(os.Stderr, "  - Or reinstall the daemon with the '--allow-non-root-access' flag to grant permissions to your user")
	}
}

func main() {
	// battwatch does not need to use much.
	if os.Getenv("GOMAXPROCS") == "" {
		runtime.GOMAXPROCS(2)
	}

	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "battwatch",
		Short: "battwatch publishes live battery percentage and charging wattage",
		Long: `battwatch publishes live battery percentage and charging wattage.

The daemon listens to kernel power_supply notifications and keeps the latest
values available to clients over a unix socket.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			err := setupLogger()
			if err != nil {
				return err
			}

			if err := config.LoadDotEnv(dotEnvPath); err != nil {
				logrus.WithError(err).Warn("failed to load .env file")
			}

			apiClient = client.NewClient(unixSocketPath)

			// Only commands that talk to the daemon check its version.
			if !needsDaemon(cmd) {
				return nil
			}
			if clientVersion, daemonVersion, err := getVersion(cmd.Context()); err == nil {
				if daemonVersion != clientVersion {
					logrus.WithFields(logrus.Fields{
						"clientVersion": clientVersion,
						"daemonVersion": daemonVersion,
					}).Warn("Version mismatch between client and daemon. Reinstall the daemon with this binary to make them match.")
				}
			} else if errors.Is(err, client.ErrNotFound) {
				logrus.Error("battwatch daemon is too old to report its version. Reinstall the daemon with this binary.")
			}

			return nil
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.StringVar(&unixSocketPath, "daemon-socket", unixSocketPath, "battwatch daemon unix socket path")
	globalFlags.StringVar(&dotEnvPath, "env-file", dotEnvPath, "file with BATTWATCH_* environment overrides, ignored if missing")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewDaemonCommand(),
		NewVersionCommand(),
		NewStatusCommand(),
		NewWatchCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
	)

	return cmd
}

// annotationNeedsDaemon marks commands that require a running daemon.
const annotationNeedsDaemon = "battwatch/needs-daemon"

// needsDaemon reports whether cmd will contact the daemon. A --local run of
// an annotated command reads the battery itself.
func needsDaemon(cmd *cobra.Command) bool {
	if cmd.Annotations[annotationNeedsDaemon] == "" {
		return false
	}
	local, err := cmd.Flags().GetBool("local")
	return err != nil || !local
}

func getVersion(ctx context.Context) (string, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	daemonVersion, err := apiClient.GetVersion(ctx)
	if err != nil {
		return "", "", err
	}
	return clientVersion(), daemonVersion, nil
}
