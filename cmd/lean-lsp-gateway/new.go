package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newNewCommand starts a new session against a running gateway,
// grounded on original_source/src/cli_args.rs's New/NewSessionCommand.
func newNewCommand(flags *globalFlags) *cobra.Command {
	var leanServerLogDirpath string

	cmd := &cobra.Command{
		Use:   "new [lean-path]",
		Short: "Start a new lake serve session",
		Args:  cobra.MaximumNArgs(1),
	}
	port := portFlag(cmd.Flags())
	cmd.Flags().StringVar(&leanServerLogDirpath, "log-dir", "", "directory for the lake serve process's own logs")

	cmd.RunE = func(c *cobra.Command, args []string) error {
		leanPath := "."
		if len(args) == 1 {
			leanPath = args[0]
		}

		result, err := newClient(*port).newSession(c.Context(), leanPath, leanServerLogDirpath)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.OutOrStdout(), result.SessionID)
		return nil
	}

	return cmd
}
