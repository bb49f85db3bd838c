package main

import (
	"github.com/spf13/cobra"
)

// newOpenCommand opens a file on an existing (or implicit) session,
// grounded on original_source/src/cli_args.rs's Open/OpenFileCommand.
func newOpenCommand(flags *globalFlags) *cobra.Command {
	sessionID := &ulidValue{}

	cmd := &cobra.Command{
		Use:   "open <lean-filepath>",
		Short: "Open a file in a session",
		Args:  cobra.ExactArgs(1),
	}
	port := portFlag(cmd.Flags())
	cmd.Flags().Var(sessionID, "session-id", "session to open the file in (default: the implicit session)")

	cmd.RunE = func(c *cobra.Command, args []string) error {
		return newClient(*port).openFile(c.Context(), sessionID.stringOrEmpty(), args[0])
	}

	return cmd
}
