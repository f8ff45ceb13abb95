// =============================================================================
// Ventas Histórico - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   ventas validate
//
// Loads the configuration, parses the ledger schema and checks that the
// mandatory point-of-sale tables are present. Nothing is written.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/ventas-historico/pkg/utils"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and the input tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(out io.Writer) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Configuration: OK")

	tables := []struct {
		label, path string
		optional    bool
	}{
		{"headers", a.cfg.HeadersPath(), false},
		{"details", a.cfg.DetailsPath(), false},
		{"products", a.cfg.ProductsPath(), false},
		{"products ext", a.cfg.ProductsExtPath(), true},
	}
	for _, t := range tables {
		switch {
		case utils.FileExists(t.path):
			size, _ := utils.GetFileSize(t.path)
			fmt.Fprintf(out, "  ✓ %-13s %s (%d bytes)\n", t.label, t.path, size)
		case t.optional:
			fmt.Fprintf(out, "  - %-13s %s (optional, absent)\n", t.label, t.path)
		default:
			fmt.Fprintf(out, "  ✗ %-13s %s\n", t.label, t.path)
		}
	}

	if a.store.Exists() {
		count, err := a.store.Count()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Ledger: %s (%d rows)\n", a.store.Path(), count)
	} else {
		fmt.Fprintf(out, "Ledger: %s (not created yet)\n", a.store.Path())
	}

	return a.loader.CheckInputs()
}
