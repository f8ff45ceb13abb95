// =============================================================================
// Ventas Histórico - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (ventas)
//   ├── serveCmd     (ventas serve)
//   ├── reconcileCmd (ventas reconcile)
//   ├── exportCmd    (ventas export)
//   ├── validateCmd  (ventas validate)
//   └── versionCmd   (ventas version)
//
// The root command owns the global flags and builds the shared state
// (configuration, logger, loader, store) used by the subcommands.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/ventas-historico/internal/config"
	"github.com/ginjaninja78/ventas-historico/internal/logging"
	"github.com/ginjaninja78/ventas-historico/internal/reference"
	"github.com/ginjaninja78/ventas-historico/internal/store"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose forces debug logging regardless of the configured level.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ventas",
	Short: "Ventas Histórico - append-only sales ledger for the ZQRED point of sale",
	Long: `Ventas Histórico reads the ZQRED point-of-sale tables (ZETH50T, ZETH51T,
ZETH70 and the optional ZETH70_EXT), joins every ticket line with its header
and product, and appends the lines not yet recorded to VENTAS_HISTORICO.DBF.

Example Usage:
  ventas serve                           # Start the HTTP API
  ventas reconcile                       # Run one reconciliation
  ventas reconcile --dry-run             # Show what would be appended
  ventas export --output historico.xlsx  # Write the ledger as a spreadsheet
  ventas validate                        # Check configuration and input tables`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file (missing file means defaults)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// SHARED STATE
// =============================================================================

// app bundles what the subcommands share.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	loader *reference.Loader
	store  *store.Store
}

// newApp loads the configuration and builds the logger, loader and store.
//
// RETURNS:
//   - The app.
//   - An error if the configuration is invalid or the ledger schema cannot
//     be parsed.
func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, err
	}

	loader, err := reference.NewLoader(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create loader: %w", err)
	}

	st, err := store.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	return &app{cfg: cfg, logger: logger, loader: loader, store: st}, nil
}
