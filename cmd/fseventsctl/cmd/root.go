// Package cmd implements the fseventsctl CLI, the userspace control
// surface for an in-process fsbroker.Broker: start a server, watch a
// directory tree, or trigger an unmount barrier.
package cmd

import (
	"github.com/spf13/cobra"
)

// Version is set via -ldflags at build time; "dev" otherwise.
var Version = "dev"

// NewRootCommand builds the fseventsctl root command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "fseventsctl",
		Short:   "Control and inspect an fsbroker event broker",
		Version: Version,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewWatchCommand())
	cmd.AddCommand(NewUnmountCommand())

	return cmd
}
