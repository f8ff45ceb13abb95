// =============================================================================
// Ventas Histórico - Reference Loader
// =============================================================================
//
// This module reads the point-of-sale tables the reconciler joins against:
//   - ZETH50T : ticket headers   (NUMCHK -> customer, payment type, date)
//   - ZETH70  : products         (PRONUM -> description, last cost)
//   - ZETH70_EXT : product classification, optional
//
// and streams the ticket lines (ZETH51T) through a DetailScanner.
//
// Every map is keyed by the normalized identifier (see normalize.ID). When an
// identifier appears more than once the last row read wins.
//
// =============================================================================

package reference

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/ginjaninja78/ventas-historico/internal/config"
	"github.com/ginjaninja78/ventas-historico/internal/dbf"
	"github.com/ginjaninja78/ventas-historico/internal/logging"
	"github.com/ginjaninja78/ventas-historico/internal/normalize"
	"github.com/ginjaninja78/ventas-historico/internal/types"
)

// Column names of the point-of-sale tables.
const (
	colTicket      = "NUMCHK"
	colCustomer    = "CUSNAM"
	colPaymentType = "TYPPAG"
	colDate        = "FECCHK"
	colProduct     = "PRONUM"
	colQuantity    = "QTYPRO"
	colUnitPrice   = "PRIPRO"
	colDescription = "DESCRI"
	colLastCost    = "ULCOSREP"
	colEERR        = "EERR"
	colCategory    = "CATEGORIA"
	colSubCategory = "SUB_CAT"
)

// =============================================================================
// REFERENCE DATA
// =============================================================================

// Data holds the lookup maps for one reconciliation.
type Data struct {
	// Headers maps normalized NUMCHK to the ticket header.
	Headers map[string]types.HeaderRecord

	// Products maps normalized PRONUM to the product.
	Products map[string]types.ProductRecord

	// Extensions maps normalized PRONUM to its classification. Empty when
	// the extension table is absent.
	Extensions map[string]types.ProductExtRecord
}

// NewData returns empty reference maps.
func NewData() *Data {
	return &Data{
		Headers:    make(map[string]types.HeaderRecord),
		Products:   make(map[string]types.ProductRecord),
		Extensions: make(map[string]types.ProductExtRecord),
	}
}

// =============================================================================
// LOADER
// =============================================================================

// Loader reads the point-of-sale tables named in the configuration.
type Loader struct {
	headers     string
	details     string
	products    string
	productsExt string
	cp          *dbf.CodePage
	logger      *logrus.Logger
}

// NewLoader creates a loader for the configured tables.
func NewLoader(cfg *config.Config, logger *logrus.Logger) (*Loader, error) {
	cp, err := dbf.LookupCodePage(cfg.Tables.Encoding)
	if err != nil {
		return nil, err
	}
	return &Loader{
		headers:     cfg.HeadersPath(),
		details:     cfg.DetailsPath(),
		products:    cfg.ProductsPath(),
		productsExt: cfg.ProductsExtPath(),
		cp:          cp,
		logger:      logging.OrDiscard(logger),
	}, nil
}

// CheckInputs verifies that the mandatory tables exist, in the order
// headers, details, products.
//
// RETURNS:
//   - nil when all are present.
//   - *types.MissingFileError naming the first missing table.
//   - *types.IOError when a table cannot be inspected.
func (l *Loader) CheckInputs() error {
	for _, path := range []string{l.headers, l.details, l.products} {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return &types.MissingFileError{Name: filepath.Base(path), Path: path}
			}
			return &types.IOError{Op: "stat", Path: path, Err: err}
		}
		if info.IsDir() {
			return &types.MissingFileError{Name: filepath.Base(path), Path: path}
		}
	}
	return nil
}

// Load reads products, product extensions and headers into maps.
func (l *Loader) Load() (*Data, error) {
	data := NewData()

	if err := l.loadProducts(data); err != nil {
		return nil, err
	}
	if err := l.loadExtensions(data); err != nil {
		return nil, err
	}
	if err := l.loadHeaders(data); err != nil {
		return nil, err
	}

	l.logger.WithFields(logrus.Fields{
		"module":     "reference",
		"headers":    len(data.Headers),
		"products":   len(data.Products),
		"extensions": len(data.Extensions),
	}).Debug("reference tables loaded")

	return data, nil
}

func (l *Loader) loadProducts(data *Data) error {
	return l.scan(l.products, func(row int, rec dbf.Record) error {
		cost, err := rec.Float(colLastCost)
		if err != nil {
			return &types.ParseError{Table: filepath.Base(l.products), Row: row, Field: colLastCost, Err: err}
		}
		id := normalize.ID(rec.String(colProduct))
		data.Products[id] = types.ProductRecord{
			Product:     id,
			Description: rec.String(colDescription),
			LastCost:    cost,
		}
		return nil
	})
}

func (l *Loader) loadExtensions(data *Data) error {
	if _, err := os.Stat(l.productsExt); errors.Is(err, fs.ErrNotExist) {
		l.logger.WithFields(logrus.Fields{
			"module": "reference",
			"table":  filepath.Base(l.productsExt),
		}).Debug("optional table absent")
		return nil
	}

	return l.scan(l.productsExt, func(row int, rec dbf.Record) error {
		id := normalize.ID(rec.String(colProduct))
		data.Extensions[id] = types.ProductExtRecord{
			Product:     id,
			EERR:        rec.String(colEERR),
			Category:    rec.String(colCategory),
			SubCategory: rec.String(colSubCategory),
		}
		return nil
	})
}

func (l *Loader) loadHeaders(data *Data) error {
	return l.scan(l.headers, func(row int, rec dbf.Record) error {
		id := normalize.ID(rec.String(colTicket))
		data.Headers[id] = types.HeaderRecord{
			Ticket:      id,
			Customer:    rec.String(colCustomer),
			PaymentType: rec.String(colPaymentType),
			RawDate:     rec.Value(colDate),
		}
		return nil
	})
}

// scan calls fn for every live record of a table.
func (l *Loader) scan(path string, fn func(row int, rec dbf.Record) error) error {
	table, err := l.open(path)
	if err != nil {
		return err
	}
	defer table.Close()

	for table.Next() {
		if err := fn(table.RowNumber(), table.Record()); err != nil {
			return err
		}
	}
	return wrapTableError(path, table.Err())
}

func (l *Loader) open(path string) (*dbf.Table, error) {
	table, err := dbf.Open(path, l.cp)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &types.MissingFileError{Name: filepath.Base(path), Path: path}
		}
		return nil, &types.IOError{Op: "open", Path: path, Err: err}
	}
	return table, nil
}

// wrapTableError turns a codec error into the domain error taxonomy.
func wrapTableError(path string, err error) error {
	if err == nil {
		return nil
	}
	var fe *dbf.FieldError
	if errors.As(err, &fe) {
		return &types.ParseError{Table: filepath.Base(path), Row: fe.Row, Field: fe.Field, Err: fe.Err}
	}
	return &types.IOError{Op: "read", Path: path, Err: err}
}

// =============================================================================
// DETAIL SCANNER
// =============================================================================

// DetailScanner streams ticket lines.
//
// USAGE:
//   scanner, err := loader.Details()
//   if err != nil {
//       return err
//   }
//   defer scanner.Close()
//
//   for scanner.Next() {
//       line := scanner.Detail()
//   }
//   if err := scanner.Err(); err != nil {
//       return err
//   }
type DetailScanner struct {
	path    string
	table   *dbf.Table
	current types.DetailRecord
	err     error
}

// Details opens the ticket line table.
func (l *Loader) Details() (*DetailScanner, error) {
	table, err := l.open(l.details)
	if err != nil {
		return nil, err
	}
	return &DetailScanner{path: l.details, table: table}, nil
}

// Next advances to the next ticket line.
func (s *DetailScanner) Next() bool {
	if s.err != nil || !s.table.Next() {
		return false
	}

	rec := s.table.Record()
	row := s.table.RowNumber()
	table := filepath.Base(s.path)

	qty, err := rec.Float(colQuantity)
	if err != nil {
		s.err = &types.ParseError{Table: table, Row: row, Field: colQuantity, Err: err}
		return false
	}
	price, err := rec.Float(colUnitPrice)
	if err != nil {
		s.err = &types.ParseError{Table: table, Row: row, Field: colUnitPrice, Err: err}
		return false
	}

	s.current = types.DetailRecord{
		Row:       row,
		Ticket:    rec.String(colTicket),
		Product:   rec.String(colProduct),
		Quantity:  qty,
		UnitPrice: price,
	}
	return true
}

// Detail returns the current ticket line. Ticket and Product are raw.
func (s *DetailScanner) Detail() types.DetailRecord { return s.current }

// Err returns the first error met while scanning.
func (s *DetailScanner) Err() error {
	if s.err != nil {
		return s.err
	}
	return wrapTableError(s.path, s.table.Err())
}

// Close releases the table.
func (s *DetailScanner) Close() error {
	if err := s.table.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filepath.Base(s.path), err)
	}
	return nil
}
