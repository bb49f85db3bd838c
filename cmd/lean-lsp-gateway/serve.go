package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkxl/lean-lsp-gateway/internal/gateway"
	"github.com/mkxl/lean-lsp-gateway/internal/sessionset"
)

// newServeCommand runs the gateway in-process: a session-set actor
// plus the HTTP/WebSocket façade over it, grounded on
// original_source/src/cli_args.rs's Serve and src/server.rs's
// Server::serve.
func newServeCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway, supervising lake serve sessions",
	}
	port := portFlag(cmd.Flags())

	cmd.RunE = func(c *cobra.Command, args []string) error {
		log := flags.logger()

		sessions := sessionset.New(log)
		defer sessions.Close()

		g := gateway.New(sessions, log)
		addr := fmt.Sprintf(":%d", *port)
		srv := &http.Server{Addr: addr, Handler: g.Router()}

		ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Info("gateway: listening", "addr", addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info("gateway: shutting down", "addr", addr)
		return srv.Shutdown(shutdownCtx)
	}

	return cmd
}
