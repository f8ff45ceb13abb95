// =============================================================================
// Ventas Histórico - Presentation Layer
// =============================================================================
//
// This module shapes ledger rows for display. Nothing here is persisted.
//
// STRATEGIES:
//   grouped (default):
//     One row per normalized (N_TICKET, PRONUM), in first-seen order.
//     CANT     = sum of quantities
//     IMPORTE  = sum of P_UNIT x CANT
//     COST_IMP = sum of COST_UNIT x CANT
//     MB       = sum of (P_UNIT - COST_UNIT) x CANT
//     The other columns come from the first row of the group.
//
//   flat:
//     Every row unchanged plus CLASE_VENTA, "CREDITO" when TIPO is a credit
//     payment type and "CONTADO" otherwise.
//
// Money is computed with shopspring/decimal and rounded to 2 places.
//
// =============================================================================

package presentation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/ventas-historico/internal/config"
	"github.com/ginjaninja78/ventas-historico/internal/normalize"
	"github.com/ginjaninja78/ventas-historico/internal/types"
)

// Sale classes of the flat strategy.
const (
	ClassCredit = "CREDITO"
	ClassCash   = "CONTADO"
)

// Row is one display row. Aggregates are set by the grouped strategy only;
// CLASE_VENTA by the flat strategy only.
type Row struct {
	types.HistoricalEntry

	Importe    *float64 `json:"IMPORTE,omitempty"`
	CostoImp   *float64 `json:"COST_IMP,omitempty"`
	Margen     *float64 `json:"MB,omitempty"`
	ClaseVenta string   `json:"CLASE_VENTA,omitempty"`
}

// Strategy turns ledger rows into display rows.
type Strategy interface {
	Name() string
	Transform(entries []types.HistoricalEntry) []Row
}

// New returns the strategy configured in cfg.
func New(cfg config.PresentationConfig) (Strategy, error) {
	switch cfg.Strategy {
	case "", config.StrategyGrouped:
		return Grouped{}, nil
	case config.StrategyFlat:
		return NewFlat(cfg.CreditPaymentTypes), nil
	default:
		return nil, fmt.Errorf("unknown presentation strategy %q", cfg.Strategy)
	}
}

// =============================================================================
// GROUPED
// =============================================================================

// Grouped aggregates rows by composite key.
type Grouped struct{}

func (Grouped) Name() string { return config.StrategyGrouped }

type group struct {
	first    types.HistoricalEntry
	cantidad decimal.Decimal
	importe  decimal.Decimal
	costo    decimal.Decimal
	margen   decimal.Decimal
}

// Transform groups entries by normalized (N_TICKET, PRONUM).
func (Grouped) Transform(entries []types.HistoricalEntry) []Row {
	order := make([]types.Key, 0)
	groups := make(map[types.Key]*group)

	for _, e := range entries {
		key := normalize.NewKey(e.Ticket, e.Producto)

		g, ok := groups[key]
		if !ok {
			g = &group{first: e}
			groups[key] = g
			order = append(order, key)
		}

		qty := decimal.NewFromFloat(e.Cantidad)
		price := decimal.NewFromFloat(e.PrecioUnit)
		cost := decimal.NewFromFloat(e.CostoUnit)

		g.cantidad = g.cantidad.Add(qty)
		g.importe = g.importe.Add(price.Mul(qty))
		g.costo = g.costo.Add(cost.Mul(qty))
		g.margen = g.margen.Add(price.Sub(cost).Mul(qty))
	}

	rows := make([]Row, 0, len(order))
	for _, key := range order {
		g := groups[key]
		entry := g.first
		entry.Cantidad = g.cantidad.InexactFloat64()

		rows = append(rows, Row{
			HistoricalEntry: entry,
			Importe:         money(g.importe),
			CostoImp:        money(g.costo),
			Margen:          money(g.margen),
		})
	}
	return rows
}

func money(d decimal.Decimal) *float64 {
	f := d.Round(2).InexactFloat64()
	return &f
}

// =============================================================================
// FLAT
// =============================================================================

// Flat passes rows through and classifies the sale.
type Flat struct {
	credit map[string]bool
}

// NewFlat returns a flat strategy treating the given payment types as credit.
func NewFlat(creditPaymentTypes []string) Flat {
	credit := make(map[string]bool, len(creditPaymentTypes))
	for _, t := range creditPaymentTypes {
		credit[normalize.ID(t)] = true
	}
	return Flat{credit: credit}
}

func (Flat) Name() string { return config.StrategyFlat }

// Transform adds CLASE_VENTA to every row.
func (f Flat) Transform(entries []types.HistoricalEntry) []Row {
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, Row{HistoricalEntry: e, ClaseVenta: f.Classify(e.Tipo)})
	}
	return rows
}

// Classify returns the sale class of a payment type.
func (f Flat) Classify(paymentType string) string {
	if f.credit[normalize.ID(paymentType)] {
		return ClassCredit
	}
	return ClassCash
}

// =============================================================================
// COLUMNS
// =============================================================================

// Columns returns the display column order of a strategy.
func Columns(s Strategy) []string {
	cols := append([]string(nil), types.LedgerColumns...)
	switch s.(type) {
	case Grouped:
		cols = append(cols, "IMPORTE", "COST_IMP", "MB")
	case Flat:
		cols = append(cols, "CLASE_VENTA")
	}
	return cols
}

// Values returns a row's values in Columns order.
func Values(s Strategy, r Row) []any {
	e := r.HistoricalEntry
	values := []any{
		e.EERR, e.Fecha, e.Ticket, e.Nombres, e.Tipo, e.Cantidad, e.PrecioUnit,
		e.Categoria, e.SubCategoria, e.CostoUnit, e.Producto, e.Descripcion,
	}
	switch s.(type) {
	case Grouped:
		values = append(values, deref(r.Importe), deref(r.CostoImp), deref(r.Margen))
	case Flat:
		values = append(values, r.ClaseVenta)
	}
	return values
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
