package reconcile

import (
	"strings"

	"github.com/ginjaninja78/ventas-historico/internal/dbf"
	"github.com/ginjaninja78/ventas-historico/internal/normalize"
	"github.com/ginjaninja78/ventas-historico/internal/reference"
	"github.com/ginjaninja78/ventas-historico/internal/types"
)

// DetailSource yields ticket lines one at a time. *reference.DetailScanner
// and SliceSource implement it.
type DetailSource interface {
	Next() bool
	Detail() types.DetailRecord
	Err() error
}

// SliceSource is a DetailSource over an in-memory slice.
type SliceSource struct {
	details []types.DetailRecord
	pos     int
}

// NewSliceSource returns a source yielding details in order.
func NewSliceSource(details ...types.DetailRecord) *SliceSource {
	return &SliceSource{details: details}
}

func (s *SliceSource) Next() bool {
	if s.pos >= len(s.details) {
		return false
	}
	s.pos++
	return true
}

func (s *SliceSource) Detail() types.DetailRecord { return s.details[s.pos-1] }

func (s *SliceSource) Err() error { return nil }

// Merge joins ticket lines with their references and returns the entries
// whose key is not yet stored.
//
// PARAMETERS:
//   - src: The ticket lines, in table order.
//   - refs: Headers, products and extensions keyed by normalized id.
//   - existing: Keys already in the ledger. It is not modified.
//   - stored: Maps a key to the form the ledger stores it in; nil keeps
//     keys as normalized.
//
// RETURNS:
//   - The new entries in detail order, each key at most once.
//   - Counters describing what happened to every line.
//   - The source's error, if scanning failed.
//
// RULES:
//   - Keys are compared in stored form. A line whose key is stored, or
//     was accepted earlier in the same merge, is skipped.
//   - References are looked up with the full normalized id.
//   - A line without a ticket header is skipped.
//   - The header date is rendered as YYYY-MM-DD; text that is not a date
//     is kept as written.
//   - Missing product data yields cost 0 and an empty description; missing
//     extension data yields empty EERR, CATEGORIA and SUB_CAT.
func Merge(src DetailSource, refs *reference.Data, existing types.KeySet, stored func(types.Key) types.Key) ([]types.HistoricalEntry, types.RunStats, error) {
	if stored == nil {
		stored = func(k types.Key) types.Key { return k }
	}

	var stats types.RunStats
	seen := make(types.KeySet)
	entries := make([]types.HistoricalEntry, 0)

	for src.Next() {
		d := src.Detail()
		stats.Scanned++

		key := normalize.NewKey(d.Ticket, d.Product)
		storedKey := stored(key)
		if existing.Has(storedKey) {
			stats.AlreadyStored++
			continue
		}
		if seen.Has(storedKey) {
			stats.RepeatedInBatch++
			continue
		}

		header, ok := refs.Headers[key.Ticket]
		if !ok {
			stats.Orphans++
			continue
		}

		fecha := normalize.FormatDate(header.RawDate)
		if fecha == "" {
			fecha = strings.TrimSpace(dbf.Stringify(header.RawDate))
			stats.UnparsedDates++
		}

		product := refs.Products[key.Product]
		ext := refs.Extensions[key.Product]

		entries = append(entries, types.HistoricalEntry{
			EERR:         ext.EERR,
			Fecha:        fecha,
			Ticket:       storedKey.Ticket,
			Nombres:      header.Customer,
			Tipo:         header.PaymentType,
			Cantidad:     d.Quantity,
			PrecioUnit:   d.UnitPrice,
			Categoria:    ext.Category,
			SubCategoria: ext.SubCategory,
			CostoUnit:    product.LastCost,
			Producto:     storedKey.Product,
			Descripcion:  product.Description,
		})
		seen.Add(storedKey)
		if storedKey != key {
			stats.ShortenedKeys++
		}
	}

	stats.Added = len(entries)
	return entries, stats, src.Err()
}
