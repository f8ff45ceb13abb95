// =============================================================================
// Ventas Histórico - Normalization
// =============================================================================
//
// Value normalization shared by every component that reads or writes ledger
// data:
//   - Identifiers : ticket and product numbers (key.go)
//   - Dates       : heterogeneous date text from ticket headers (date.go)
//   - Text        : code page sanitization before storage (text.go)
//
// KEY POLICY:
//   Identifiers are trimmed and upper-cased. The same rule is used when a key
//   is written to the ledger, when the ledger is scanned for existing keys and
//   when reference tables are indexed, so " p1 " and "P1" are the same product
//   everywhere.
//
// =============================================================================

package normalize

import (
	"strings"

	"github.com/ginjaninja78/ventas-historico/internal/types"
)

// ID normalizes a ticket or product identifier.
func ID(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// NewKey builds the composite ledger key from raw identifiers.
func NewKey(ticket, product string) types.Key {
	return types.Key{Ticket: ID(ticket), Product: ID(product)}
}
