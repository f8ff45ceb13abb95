// =============================================================================
// Ventas Histórico - Shared Types
// =============================================================================
//
// This package contains the record types shared by the loader, the
// reconciler, the historical store and the HTTP layer. Keeping them here
// avoids import cycles between those packages.
//
// SOURCE TABLES (read-only, produced by the point-of-sale system):
//   ZETH50T    : ticket headers         -> HeaderRecord
//   ZETH51T    : ticket detail lines    -> DetailRecord
//   ZETH70     : products               -> ProductRecord
//   ZETH70_EXT : product classification -> ProductExtRecord (optional)
//
// OUTPUT TABLE:
//   VENTAS_HISTORICO : append-only ledger -> HistoricalEntry
//
// =============================================================================

package types

import "time"

// =============================================================================
// SOURCE RECORDS
// =============================================================================

// HeaderRecord is one ticket header, keyed by ticket number.
type HeaderRecord struct {
	// Ticket is the normalized ticket number (NUMCHK).
	Ticket string

	// Customer is the customer name (CUSNAM).
	Customer string

	// PaymentType is the payment type code (TYPPAG).
	PaymentType string

	// RawDate is the transaction date as stored (FECCHK). It may be a
	// time.Time when the column is a date field or text in one of several
	// formats when it is a character field.
	RawDate any
}

// DetailRecord is one product line of a ticket.
type DetailRecord struct {
	// Row is the physical record number in the detail table.
	Row int

	// Ticket is the ticket number as read (NUMCHK), not yet normalized.
	Ticket string

	// Product is the product number as read (PRONUM), not yet normalized.
	Product string

	// Quantity is the quantity sold (QTYPRO).
	Quantity float64

	// UnitPrice is the unit sale price (PRIPRO).
	UnitPrice float64
}

// ProductRecord is one row of the product master.
type ProductRecord struct {
	Product     string
	Description string

	// LastCost is the last replacement cost (ULCOSREP).
	LastCost float64
}

// ProductExtRecord carries the income-statement classification of a product.
type ProductExtRecord struct {
	Product     string
	EERR        string
	Category    string
	SubCategory string
}

// =============================================================================
// HISTORICAL LEDGER
// =============================================================================

// Column names of the historical store, in schema order.
const (
	ColEERR        = "EERR"
	ColFecha       = "FECHA"
	ColTicket      = "N_TICKET"
	ColNombres     = "NOMBRES"
	ColTipo        = "TIPO"
	ColCantidad    = "CANT"
	ColPrecioUnit  = "P_UNIT"
	ColCategoria   = "CATEGORIA"
	ColSubCat      = "SUB_CAT"
	ColCostoUnit   = "COST_UNIT"
	ColProducto    = "PRONUM"
	ColDescripcion = "DESCRI"
)

// LedgerColumns lists every column a historical store must declare.
var LedgerColumns = []string{
	ColEERR, ColFecha, ColTicket, ColNombres, ColTipo, ColCantidad,
	ColPrecioUnit, ColCategoria, ColSubCat, ColCostoUnit, ColProducto, ColDescripcion,
}

// DefaultLedgerSchema is the fixed layout of VENTAS_HISTORICO.DBF.
const DefaultLedgerSchema = "EERR C(20);" +
	"FECHA C(20);" +
	"N_TICKET C(10);" +
	"NOMBRES C(50);" +
	"TIPO C(5);" +
	"CANT N(6,0);" +
	"P_UNIT N(12,2);" +
	"CATEGORIA C(20);" +
	"SUB_CAT C(20);" +
	"COST_UNIT N(12,2);" +
	"PRONUM C(10);" +
	"DESCRI C(50)"

// HistoricalEntry is one merged ledger row: the (ticket, product) key plus a
// snapshot of the customer, classification, pricing and cost at merge time.
type HistoricalEntry struct {
	EERR         string  `json:"EERR"`
	Fecha        string  `json:"FECHA"`
	Ticket       string  `json:"N_TICKET"`
	Nombres      string  `json:"NOMBRES"`
	Tipo         string  `json:"TIPO"`
	Cantidad     float64 `json:"CANT"`
	PrecioUnit   float64 `json:"P_UNIT"`
	Categoria    string  `json:"CATEGORIA"`
	SubCategoria string  `json:"SUB_CAT"`
	CostoUnit    float64 `json:"COST_UNIT"`
	Producto     string  `json:"PRONUM"`
	Descripcion  string  `json:"DESCRI"`
}

// Key returns the composite identity of the entry.
func (e HistoricalEntry) Key() Key {
	return Key{Ticket: e.Ticket, Product: e.Producto}
}

// Row returns the entry keyed by store column name.
func (e HistoricalEntry) Row() map[string]any {
	return map[string]any{
		ColEERR:        e.EERR,
		ColFecha:       e.Fecha,
		ColTicket:      e.Ticket,
		ColNombres:     e.Nombres,
		ColTipo:        e.Tipo,
		ColCantidad:    e.Cantidad,
		ColPrecioUnit:  e.PrecioUnit,
		ColCategoria:   e.Categoria,
		ColSubCat:      e.SubCategoria,
		ColCostoUnit:   e.CostoUnit,
		ColProducto:    e.Producto,
		ColDescripcion: e.Descripcion,
	}
}

// =============================================================================
// COMPOSITE KEY
// =============================================================================

// Key identifies a ledger row: one product within one ticket. Both parts are
// expected to be normalized (see normalize.NewKey).
type Key struct {
	Ticket  string
	Product string
}

// String renders the key as "ticket/product".
func (k Key) String() string {
	return k.Ticket + "/" + k.Product
}

// KeySet is a set of composite keys.
type KeySet map[Key]struct{}

// Has reports whether k is in the set.
func (s KeySet) Has(k Key) bool {
	_, ok := s[k]
	return ok
}

// Add inserts k.
func (s KeySet) Add(k Key) {
	s[k] = struct{}{}
}

// Clone returns an independent copy of the set.
func (s KeySet) Clone() KeySet {
	out := make(KeySet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// RunStats counts what happened to the detail rows of one reconciliation.
type RunStats struct {
	// Scanned is the number of detail rows read.
	Scanned int `json:"leidos"`

	// AlreadyStored counts rows whose key was already in the ledger.
	AlreadyStored int `json:"existentes"`

	// Orphans counts rows without a matching ticket header.
	Orphans int `json:"huerfanos"`

	// RepeatedInBatch counts rows whose key was accepted earlier in the same run.
	RepeatedInBatch int `json:"repetidos"`

	// UnparsedDates counts accepted rows whose date kept its raw text.
	UnparsedDates int `json:"fechas_sin_formato"`

	// ShortenedKeys counts accepted rows whose key had to be cut or
	// re-encoded to fit the ledger columns.
	ShortenedKeys int `json:"claves_recortadas"`

	// Added is the number of new ledger entries.
	Added int `json:"agregados"`

	// Duration is the wall time of the run.
	Duration time.Duration `json:"-"`
}
