// =============================================================================
// Ventas Histórico - Export Command
// =============================================================================
//
// COMMAND USAGE:
//   ventas export [--output historico.xlsx] [--presentation grouped|flat]
//
// Writes the ledger, shaped by the presentation strategy, as an .xlsx
// workbook. The ledger is only read.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/ventas-historico/internal/export"
	"github.com/ginjaninja78/ventas-historico/internal/presentation"
	"github.com/ginjaninja78/ventas-historico/internal/types"
)

var (
	// outputPath is the workbook to write.
	outputPath string

	// presentationName overrides presentation.strategy.
	presentationName string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the ledger as an Excel workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "historico.xlsx", "Path of the workbook to write")
	exportCmd.Flags().StringVar(&presentationName, "presentation", "", "Presentation strategy: grouped or flat")
}

// runExport reads the ledger and writes it to outputPath.
func runExport(out io.Writer) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if presentationName != "" {
		a.cfg.Presentation.Strategy = presentationName
	}

	strategy, err := presentation.New(a.cfg.Presentation)
	if err != nil {
		return err
	}

	if !a.store.Exists() {
		return &types.StoreNotFoundError{Path: a.store.Path()}
	}

	entries, err := a.store.ReadAll()
	if err != nil {
		return err
	}

	rows := strategy.Transform(entries)
	if err := export.WriteFile(outputPath, strategy, rows); err != nil {
		return err
	}

	fmt.Fprintf(out, "Wrote %d row(s) to %s (%s)\n", len(rows), outputPath, strategy.Name())
	return nil
}
