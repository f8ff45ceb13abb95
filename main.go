// =============================================================================
// Ventas Histórico - Main Entry Point
// =============================================================================
//
// USAGE:
//   ventas serve       - Start the HTTP API
//   ventas reconcile   - Append new ticket lines to the ledger
//   ventas export      - Write the ledger as an Excel workbook
//   ventas validate    - Check configuration and input tables
//   ventas version     - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : dBase codec, loaders, reconciler, store, HTTP server
//   - pkg/       : Shared file utilities (backups, retention)
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/ventas-historico/cmd"
)

func main() {
	cmd.Execute()
}
