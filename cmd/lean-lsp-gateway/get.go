package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newGetCommand lists session ids, grounded on
// original_source/src/cli_args.rs's Get.
func newGetCommand(flags *globalFlags) *cobra.Command {
	sessionID := &ulidValue{}

	cmd := &cobra.Command{
		Use:   "get",
		Short: "List session ids known to the gateway",
		Args:  cobra.NoArgs,
	}
	port := portFlag(cmd.Flags())
	cmd.Flags().Var(sessionID, "session-id", "limit to one session (default: all sessions)")

	cmd.RunE = func(c *cobra.Command, args []string) error {
		result, err := newClient(*port).getSessions(c.Context(), sessionID.stringOrEmpty())
		if err != nil {
			return err
		}
		for _, sess := range result.Sessions {
			fmt.Fprintln(c.OutOrStdout(), sess.ID)
		}
		return nil
	}

	return cmd
}
