// =============================================================================
// Ventas Histórico - Reconcile Command
// =============================================================================
//
// This file defines the 'reconcile' command, which runs one reconciliation
// from the command line, the same way GET /reporte does.
//
// COMMAND USAGE:
//   ventas reconcile [flags]
//
// FLAGS:
//   --dry-run : Compute the new entries without creating or touching the ledger
//
// PIPELINE:
//   1. Check that ZETH50T, ZETH51T and ZETH70 are present
//   2. Create the ledger when missing
//   3. Read the stored keys once
//   4. Join every ticket line with its header and product
//   5. Append the new entries in one write
//   6. Print a summary
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/ventas-historico/internal/reconcile"
)

// dryRun computes the run without writing.
var dryRun bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Append the ticket lines not yet in the ledger",
	Long: `The reconcile command reads the point-of-sale tables, finds the ticket lines
whose (N_TICKET, PRONUM) key is not yet stored, and appends them to the
historical ledger in a single write.

Lines without a ticket header are skipped. Running the command twice in a
row adds nothing the second time.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runReconcile(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Compute the new entries without writing the ledger",
	)
}

// runReconcile runs one reconciliation and prints its summary to out.
func runReconcile(out io.Writer) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startTime := time.Now()
	fmt.Fprintln(out, "=== Ventas Histórico ===")
	if dryRun {
		fmt.Fprintln(out, "Dry run: the ledger will not be modified.")
	}

	rec := reconcile.New(a.loader, a.store, a.logger)
	result, err := rec.Run(ctx, reconcile.Options{DryRun: dryRun})
	if err != nil {
		return err
	}

	for _, e := range result.New {
		fmt.Fprintf(out, "  + %s  %s / %s  x%g\n", e.Fecha, e.Ticket, e.Producto, e.Cantidad)
	}

	fmt.Fprintln(out, "\n=== Reconciliation Complete ===")
	fmt.Fprintf(out, "Lines read:      %d\n", result.Stats.Scanned)
	fmt.Fprintf(out, "Already stored:  %d\n", result.Stats.AlreadyStored)
	fmt.Fprintf(out, "Orphans:         %d\n", result.Stats.Orphans)
	fmt.Fprintf(out, "Repeated:        %d\n", result.Stats.RepeatedInBatch)
	if result.Stats.ShortenedKeys > 0 {
		fmt.Fprintf(out, "Shortened keys:  %d\n", result.Stats.ShortenedKeys)
	}
	fmt.Fprintf(out, "New entries:     %d\n", len(result.New))
	fmt.Fprintf(out, "Ledger total:    %d\n", result.Total)
	fmt.Fprintf(out, "Time elapsed:    %s\n", time.Since(startTime))

	return nil
}
