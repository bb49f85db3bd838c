// Command lean-lsp-gateway runs the HTTP/WebSocket supervisor for
// `lake serve` (spec.md §1) or talks to one already running, via the
// "serve"/"new"/"open"/"get"/"status" subcommand tree. Grounded on
// original_source/src/cli_args.rs's subcommand tree, adapted to
// github.com/spf13/cobra since the rest of the retrieval pack reaches
// for cobra/pflag for this shape (see DESIGN.md).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
