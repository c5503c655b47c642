package main

import (
	"fmt"
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/battwatch/pkg/config"
	daemonutils "github.com/charlie0129/battwatch/pkg/utils/daemon"
)

// NewInstallCommand .
func NewInstallCommand() *cobra.Command {
	allowNonRootAccess := false

	cmd := &cobra.Command{
		Use:     "install",
		Short:   "Install battwatch (system-wide)",
		GroupID: gInstallation,
		Long: `Install battwatch daemon as a systemd service (system-wide).

This makes battwatch run in the background and automatically start on boot. You must run this command as root.

By default, only root user is allowed to access the daemon. If you want to allow non-root users to read battery metrics from it, use the --allow-non-root-access flag.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := config.NewFile(configPath)
			if err != nil {
				return err
			}

			conf.SetAllowNonRootAccess(allowNonRootAccess)
			if allowNonRootAccess {
				logrus.Info("non-root users are allowed to access the battwatch daemon.")
			} else {
				logrus.Info("only root user is allowed to access the battwatch daemon.")
			}

			// The daemon refuses to start on an invalid config, so catch it now.
			if err := conf.Validate(); err != nil {
				return pkgerrors.Wrapf(err, "invalid config %s", configPath)
			}

			err = conf.Save()
			if err != nil {
				return pkgerrors.Wrapf(err, "failed to save config")
			}

			err = daemonutils.Install(configPath, unixSocketPath)
			if err != nil {
				// check if current user is root
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to install daemon: %v. Are you root?", err)
			}

			logrus.Infof("installation succeeded")

			exePath, _ := os.Executable()

			cmd.Printf("`systemd' will use current binary (%s) at startup so please make sure you do not move this binary. Once this binary is moved or deleted, you will need to run ``battwatch install'' again.\n", exePath)

			return nil
		},
	}

	cmd.Flags().BoolVar(&allowNonRootAccess, "allow-non-root-access", false, "Allow non-root users to access battwatch daemon.")

	return cmd
}

// NewUninstallCommand .
func NewUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall",
		Short:   "Uninstall battwatch (system-wide)",
		GroupID: gInstallation,
		Long: `Uninstall battwatch daemon from systemd (system-wide).

This stops battwatch and removes its systemd unit.

You must run this command as root.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := daemonutils.Uninstall()
			if err != nil {
				// check if current user is root
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to uninstall daemon: %v", err)
			}

			cmd.Println("successfully uninstalled")

			cmd.Printf("Your config is kept in %s, in case you want to use `battwatch' again. If you want a complete uninstall, you can remove both config file and battwatch itself manually.\n", configPath)

			return nil
		},
	}
}
