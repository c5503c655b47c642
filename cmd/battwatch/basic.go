package main

import (
	"github.com/spf13/cobra"

	"github.com/charlie0129/battwatch/pkg/version"
)

func clientVersion() string {
	return version.Version
}

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Print version",
		GroupID: gAdvanced,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}
