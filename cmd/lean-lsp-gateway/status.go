package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newStatusCommand prints the gateway's aggregate status, grounded on
// original_source/src/server.rs's GET /status route (no direct
// CliArgs analogue in the original, added as a thin client mirror of
// the /status endpoint spec.md §6 defines).
func newStatusCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the gateway's aggregate session-set status",
		Args:  cobra.NoArgs,
	}
	port := portFlag(cmd.Flags())

	cmd.RunE = func(c *cobra.Command, args []string) error {
		st, err := newClient(*port).status(c.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(c.OutOrStdout(), "session_set.is_finished=%v\n", st.SessionSet.IsFinished)
		for _, sess := range st.Sessions {
			fmt.Fprintf(c.OutOrStdout(), "%s is_finished=%v\n", sess.ID, sess.Process.IsFinished)
		}
		return nil
	}

	return cmd
}
