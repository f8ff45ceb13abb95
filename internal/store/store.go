// =============================================================================
// Ventas Histórico - Historical Store
// =============================================================================
//
// The historical store is the append-only ledger VENTAS_HISTORICO.DBF. This
// module owns every access to it:
//   - EnsureCreated : lazy creation with the configured schema
//   - ExistingKeys  : the (N_TICKET, PRONUM) keys already stored
//   - StoredKey     : the form a key takes once written
//   - AppendBatch   : all-or-nothing append of merged entries
//   - ReadAll       : display rows for the HTTP layer
//   - Count         : number of ledger rows
//   - Download      : raw file access for downloads
//
// CONCURRENCY:
//   Writers hold the write lock, readers the read lock. The lock only covers
//   this process; the ledger must not be written by other programs while the
//   service runs.
//
// =============================================================================

package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ginjaninja78/ventas-historico/internal/config"
	"github.com/ginjaninja78/ventas-historico/internal/dbf"
	"github.com/ginjaninja78/ventas-historico/internal/logging"
	"github.com/ginjaninja78/ventas-historico/internal/normalize"
	"github.com/ginjaninja78/ventas-historico/internal/types"
	"github.com/ginjaninja78/ventas-historico/internal/validation"
	"github.com/ginjaninja78/ventas-historico/pkg/utils"
)

// =============================================================================
// STORE
// =============================================================================

// Store is the historical ledger.
type Store struct {
	mu sync.RWMutex

	path      string
	cp        *dbf.CodePage
	fields    []dbf.Field
	sanitizer *normalize.Sanitizer
	strict    bool
	backups   *utils.FileManager
	logger    *logrus.Logger
}

// New creates a store for the configured ledger. The file itself is not
// touched until EnsureCreated or AppendBatch.
func New(cfg *config.Config, logger *logrus.Logger) (*Store, error) {
	cp, err := dbf.LookupCodePage(cfg.Store.Encoding)
	if err != nil {
		return nil, err
	}

	fields, err := dbf.ParseSchema(cfg.Store.Schema)
	if err != nil {
		return nil, fmt.Errorf("invalid store schema: %w", err)
	}
	if result := validation.ValidateSchema(fields); !result.IsValid {
		return nil, fmt.Errorf("invalid store schema: %w", result.Err())
	}

	s := &Store{
		path:      cfg.StorePath(),
		cp:        cp,
		fields:    fields,
		sanitizer: normalize.NewSanitizer(cp),
		strict:    cfg.Store.StrictValidation,
		logger:    logging.OrDiscard(logger),
	}

	if dir := cfg.BackupDir(); dir != "" {
		s.backups = utils.NewFileManager(dir, time.Duration(cfg.Store.BackupRetention)*time.Hour)
		if cfg.Store.BackupNameFormat != "" {
			s.backups.NameFormat = cfg.Store.BackupNameFormat
		}
		s.backups.UseTimestampSubdirs = cfg.Store.BackupTimestampSubdirs
	}

	return s, nil
}

// Path returns the ledger file path.
func (s *Store) Path() string { return s.path }

// Fields returns the configured ledger layout.
func (s *Store) Fields() []dbf.Field { return s.fields }

// Exists reports whether the ledger file exists.
func (s *Store) Exists() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return utils.FileExists(s.path)
}

// EnsureCreated creates the ledger when it does not exist.
//
// RETURNS:
//   - true if the file was created by this call.
//   - An error if creation fails or an existing file lacks a ledger column.
func (s *Store) EnsureCreated() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureCreated()
}

func (s *Store) ensureCreated() (bool, error) {
	fields, err := dbf.ReadFields(s.path, s.cp)
	if err == nil {
		if result := validation.ValidateSchema(fields); !result.IsValid {
			return false, fmt.Errorf("%s: %w", filepath.Base(s.path), result.Err())
		}
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, &types.IOError{Op: "open", Path: s.path, Err: err}
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return false, &types.IOError{Op: "mkdir", Path: dir, Err: err}
		}
	}
	if err := dbf.Create(s.path, s.fields, s.cp); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, &types.IOError{Op: "create", Path: s.path, Err: err}
	}

	s.logger.WithFields(logrus.Fields{
		"module": "store",
		"path":   s.path,
	}).Info("historical store created")

	return true, nil
}

// =============================================================================
// READS
// =============================================================================

// ExistingKeys scans the ledger and returns its keys in stored form (see
// StoredKey). A missing ledger yields an empty set.
func (s *Store) ExistingKeys() (types.KeySet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make(types.KeySet)
	err := s.scan(func(rec dbf.Record) {
		keys.Add(s.StoredKey(types.Key{Ticket: rec.String(types.ColTicket), Product: rec.String(types.ColProducto)}))
	})
	if errors.Is(err, fs.ErrNotExist) {
		return keys, nil
	}
	return keys, err
}

// Count returns the number of ledger rows, 0 when the ledger is missing.
func (s *Store) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count()
}

func (s *Store) count() (int, error) {
	n, err := dbf.Count(s.path, s.cp)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, s.wrap("read", err)
	}
	return n, nil
}

// ReadAll returns every ledger row for display.
//
// Display rules:
//   - Character values are trimmed
//   - FECHA is rendered as YYYY-MM-DD, unparseable text is kept as stored
//   - Blank numeric values read as 0
//
// RETURNS:
//   - The rows in stored order; an empty slice when the ledger is missing.
func (s *Store) ReadAll() ([]types.HistoricalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]types.HistoricalEntry, 0)
	var convErr error
	err := s.scan(func(rec dbf.Record) {
		if convErr != nil {
			return
		}
		entry, err := displayEntry(rec)
		if err != nil {
			convErr = err
			return
		}
		entries = append(entries, entry)
	})
	if errors.Is(err, fs.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, err
	}
	if convErr != nil {
		return nil, s.wrap("read", convErr)
	}
	return entries, nil
}

func displayEntry(rec dbf.Record) (types.HistoricalEntry, error) {
	text := func(col string) string {
		return strings.TrimSpace(rec.String(col))
	}

	fecha := text(types.ColFecha)
	if formatted := normalize.FormatDate(rec.Value(types.ColFecha)); formatted != "" {
		fecha = formatted
	}

	entry := types.HistoricalEntry{
		EERR:         text(types.ColEERR),
		Fecha:        fecha,
		Ticket:       text(types.ColTicket),
		Nombres:      text(types.ColNombres),
		Tipo:         text(types.ColTipo),
		Categoria:    text(types.ColCategoria),
		SubCategoria: text(types.ColSubCat),
		Producto:     text(types.ColProducto),
		Descripcion:  text(types.ColDescripcion),
	}

	var err error
	if entry.Cantidad, err = rec.Float(types.ColCantidad); err != nil {
		return entry, &dbf.FieldError{Field: types.ColCantidad, Err: err}
	}
	if entry.PrecioUnit, err = rec.Float(types.ColPrecioUnit); err != nil {
		return entry, &dbf.FieldError{Field: types.ColPrecioUnit, Err: err}
	}
	if entry.CostoUnit, err = rec.Float(types.ColCostoUnit); err != nil {
		return entry, &dbf.FieldError{Field: types.ColCostoUnit, Err: err}
	}
	return entry, nil
}

// Download opens the ledger for a raw copy. fn runs under the read lock, so
// no append can interleave with the transfer.
//
// RETURNS:
//   - *types.StoreNotFoundError when the ledger does not exist.
//   - fn's error otherwise.
func (s *Store) Download(fn func(content io.ReadSeeker, modTime time.Time, size int64) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &types.StoreNotFoundError{Path: s.path}
		}
		return &types.IOError{Op: "open", Path: s.path, Err: err}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return &types.IOError{Op: "stat", Path: s.path, Err: err}
	}
	return fn(file, info.ModTime(), info.Size())
}

// scan calls fn for every live record. The returned error wraps
// fs.ErrNotExist when the ledger is missing.
func (s *Store) scan(fn func(rec dbf.Record)) error {
	table, err := dbf.Open(s.path, s.cp)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return s.wrap("open", err)
	}
	defer table.Close()

	for table.Next() {
		fn(table.Record())
	}
	if err := table.Err(); err != nil {
		return s.wrap("read", err)
	}
	return nil
}

func (s *Store) wrap(op string, err error) error {
	var fe *dbf.FieldError
	if errors.As(err, &fe) {
		return &types.ParseError{Table: filepath.Base(s.path), Row: fe.Row, Field: fe.Field, Err: fe.Err}
	}
	return &types.IOError{Op: op, Path: s.path, Err: err}
}

// =============================================================================
// WRITES
// =============================================================================

// AppendBatch appends entries as one batch.
//
// PROCESS:
//   1. Create the ledger if needed
//   2. Prepare the entries (see Prepare)
//   3. Validate against the layout; any error rejects the whole batch, and
//      so does any warning when strict validation is configured
//   4. Back up the ledger when backups are configured
//   5. Append; on failure the file is restored to its previous content
//
// RETURNS:
//   - The ledger row count after the append.
//   - *validation.BatchError, *types.IOError or a wrapped codec error.
func (s *Store) AppendBatch(entries []types.HistoricalEntry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ensureCreated(); err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return s.count()
	}

	prepared := s.Prepare(entries)

	validator := validation.NewValidatorWithOptions(s.fields, validation.ValidationOptions{
		TreatWarningsAsErrors: s.strict,
	})
	result := validator.ValidateBatch(prepared)
	for _, w := range result.Warnings() {
		s.logger.WithFields(logrus.Fields{
			"module": "store",
			"field":  w.Field,
			"key":    w.Key.String(),
			"rule":   w.Rule,
		}).Warn(w.Message)
	}
	if err := result.Err(); err != nil {
		logging.LogError(s.logger, "store", "AppendBatch", "validating batch", len(prepared), err)
		return 0, err
	}

	if s.backups != nil {
		backup, err := s.backups.Backup(s.path)
		if err != nil {
			return 0, &types.IOError{Op: "backup", Path: s.path, Err: err}
		}
		s.logger.WithFields(logrus.Fields{"module": "store", "backup": backup}).Debug("store backed up")
	}

	rows := make([]map[string]any, len(prepared))
	for i, e := range prepared {
		rows[i] = rowValues(e)
	}

	total, err := dbf.Append(s.path, s.cp, rows)
	if err != nil {
		logging.LogError(s.logger, "store", "AppendBatch", "writing batch", len(rows), err)
		return 0, s.wrap("append", err)
	}

	s.logger.WithFields(logrus.Fields{
		"module": "store",
		"added":  len(rows),
		"total":  total,
	}).Info("batch appended")

	return total, nil
}

// Prepare returns entries as the ledger will store them: text made
// representable in the code page, keys in stored form and numbers rounded
// to their field's decimals. AppendBatch applies the same step, so callers
// that report entries can show exactly what was written.
func (s *Store) Prepare(entries []types.HistoricalEntry) []types.HistoricalEntry {
	prepared := make([]types.HistoricalEntry, len(entries))
	for i, e := range entries {
		prepared[i] = s.prepare(e)
	}
	return prepared
}

func (s *Store) prepare(e types.HistoricalEntry) types.HistoricalEntry {
	clean := s.sanitizer.String
	key := s.StoredKey(types.Key{Ticket: e.Ticket, Product: e.Producto})
	e.EERR = clean(e.EERR)
	e.Fecha = clean(e.Fecha)
	e.Ticket = key.Ticket
	e.Nombres = clean(e.Nombres)
	e.Tipo = clean(e.Tipo)
	e.Categoria = clean(e.Categoria)
	e.SubCategoria = clean(e.SubCategoria)
	e.Producto = key.Product
	e.Descripcion = clean(e.Descripcion)
	e.Cantidad = s.round(types.ColCantidad, e.Cantidad)
	e.PrecioUnit = s.round(types.ColPrecioUnit, e.PrecioUnit)
	e.CostoUnit = s.round(types.ColCostoUnit, e.CostoUnit)
	return e
}

// StoredKey returns k as it reads back from the ledger: normalized, made
// representable in the code page and cut to the key column widths. Distinct
// keys that share a stored form are the same ledger key.
func (s *Store) StoredKey(k types.Key) types.Key {
	return types.Key{
		Ticket:  s.cp.Fit(normalize.ID(k.Ticket), s.width(types.ColTicket)),
		Product: s.cp.Fit(normalize.ID(k.Product), s.width(types.ColProducto)),
	}
}

func (s *Store) width(col string) int {
	if f, ok := dbf.FieldByName(s.fields, col); ok {
		return f.Length
	}
	return -1
}

func (s *Store) round(col string, v float64) float64 {
	f, ok := dbf.FieldByName(s.fields, col)
	if !ok || !f.IsNumeric() || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(int32(f.Decimals)).InexactFloat64()
}

// rowValues converts an entry to codec values, numbers as decimal.Decimal.
func rowValues(e types.HistoricalEntry) map[string]any {
	row := e.Row()
	for _, col := range []string{types.ColCantidad, types.ColPrecioUnit, types.ColCostoUnit} {
		if x, ok := row[col].(float64); ok {
			row[col] = decimal.NewFromFloat(x)
		}
	}
	return row
}
