package main

import (
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/battwatch/pkg/daemon"
	"github.com/charlie0129/battwatch/pkg/version"
)

// NewDaemonCommand runs the monitor that the client commands talk to.
func NewDaemonCommand() *cobra.Command {
	opts := daemon.Options{}

	cmd := &cobra.Command{
		Use:    "daemon",
		Hidden: true,
		Short:  "Run battwatch daemon in the foreground",
		Long: `Run the battery monitor in the foreground.

The daemon follows one power source and serves the HTTP API on the unix
socket given by --daemon-socket. Send SIGHUP to reload the config file.`,
		GroupID: gAdvanced,
		RunE: func(_ *cobra.Command, _ []string) error {
			opts.ConfigPath = configPath
			opts.SocketPath = unixSocketPath
			logrus.WithFields(daemonFields(opts)).Info("battwatch daemon starting")
			return daemon.Run(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.AllowNonRoot, "always-allow-non-root-access", false,
		"Make the daemon socket writable by all users, whatever the config says.")

	return cmd
}

func daemonFields(opts daemon.Options) logrus.Fields {
	return logrus.Fields{
		"version":      version.Version,
		"commit":       version.GitCommit,
		"os":           runtime.GOOS,
		"config":       opts.ConfigPath,
		"socket":       opts.SocketPath,
		"allowNonRoot": opts.AllowNonRoot,
	}
}
