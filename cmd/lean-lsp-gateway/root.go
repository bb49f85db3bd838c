package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mkxl/lean-lsp-gateway/internal/gateway"
	"github.com/mkxl/lean-lsp-gateway/internal/logging"
)

// logLevelEnvName matches internal/logging's NewFromEnv convention and
// original_source/src/cli_args.rs's `LOG_LEVEL_ENV_NAME`.
const logLevelEnvName = "LOG_LEVEL"

// globalFlags holds the root command's persistent state, built once
// and threaded to every subcommand's RunE closure.
type globalFlags struct {
	logLevel string
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "lean-lsp-gateway",
		Short:         "Supervise lake serve sessions behind an HTTP/WebSocket gateway",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	persistent := root.PersistentFlags()
	persistent.StringVar(&flags.logLevel, "log-level", envOr(logLevelEnvName, "info"), "log level (trace, debug, info, warn, error)")

	root.AddCommand(
		newServeCommand(flags),
		newNewCommand(flags),
		newOpenCommand(flags),
		newGetCommand(flags),
		newStatusCommand(flags),
	)

	return root
}

func (f *globalFlags) logger() logging.Logger {
	return logging.New(os.Stdout, f.logLevel)
}

// portFlag registers the --port flag every non-serve subcommand shares
// with the serve subcommand, defaulting to gateway.DefaultPort per
// original_source's Server::DEFAULT_PORT.
func portFlag(fs *pflag.FlagSet) *uint16 {
	port := new(uint16)
	fs.Uint16Var(port, "port", gateway.DefaultPort, "gateway port")
	return port
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
