// =============================================================================
// Ventas Histórico - Serve Command
// =============================================================================
//
// COMMAND USAGE:
//   ventas serve [--addr :8000]
//
// Starts the HTTP API and shuts it down gracefully on SIGINT or SIGTERM.
//
// =============================================================================

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/ventas-historico/internal/reconcile"
	"github.com/ginjaninja78/ventas-historico/internal/server"
)

// listenAddr overrides server.addr from the configuration.
var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if listenAddr != "" {
			a.cfg.Server.Addr = listenAddr
		}

		srv, err := server.New(a.cfg, reconcile.New(a.loader, a.store, a.logger), a.store, a.logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address (overrides server.addr)")
}
