package store

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/ventas-historico/internal/config"
	"github.com/ginjaninja78/ventas-historico/internal/dbf"
	"github.com/ginjaninja78/ventas-historico/internal/dbf/dbftest"
	"github.com/ginjaninja78/ventas-historico/internal/types"
	"github.com/ginjaninja78/ventas-historico/internal/validation"
)

func newStore(t *testing.T) (*Store, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()

	s, err := New(cfg, nil)
	require.NoError(t, err)
	return s, cfg
}

func entry(ticket, product string) types.HistoricalEntry {
	return types.HistoricalEntry{
		EERR:        "VENTAS",
		Fecha:       "2025-07-19",
		Ticket:      ticket,
		Nombres:     "Peña",
		Tipo:        "CR",
		Cantidad:    2,
		PrecioUnit:  10.5,
		CostoUnit:   4,
		Producto:    product,
		Descripcion: "Widget",
	}
}

func TestEnsureCreatedIsIdempotent(t *testing.T) {
	s, _ := newStore(t)
	assert.False(t, s.Exists())

	created, err := s.EnsureCreated()
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, s.Exists())

	created, err = s.EnsureCreated()
	require.NoError(t, err)
	assert.False(t, created)

	fields, err := dbf.ReadFields(s.Path(), dbf.MustCodePage("cp850"))
	require.NoError(t, err)
	assert.Equal(t, s.Fields(), fields)

	n, err := s.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEnsureCreatedRejectsForeignTable(t *testing.T) {
	s, cfg := newStore(t)
	dbftest.WriteTable(t, cfg.DataDir, cfg.Store.Path, "N_TICKET C(10);PRONUM C(10)")

	_, err := s.EnsureCreated()
	assert.Error(t, err)
}

func TestMissingStoreReads(t *testing.T) {
	s, _ := newStore(t)

	keys, err := s.ExistingKeys()
	require.NoError(t, err)
	assert.Empty(t, keys)

	rows, err := s.ReadAll()
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	err = s.Download(func(io.ReadSeeker, time.Time, int64) error { return nil })
	var notFound *types.StoreNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "El archivo histórico aún no existe.", err.Error())
}

func TestAppendBatchAndReadAll(t *testing.T) {
	s, _ := newStore(t)

	e := entry(" 123", "p1")
	e.Nombres = "Café €"
	total, err := s.AppendBatch([]types.HistoricalEntry{e, entry("124", "P2")})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	rows, err := s.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "123", first.Ticket)
	assert.Equal(t, "P1", first.Producto)
	assert.Equal(t, "Café ?", first.Nombres)
	assert.Equal(t, "2025-07-19", first.Fecha)
	assert.Equal(t, 2.0, first.Cantidad)
	assert.Equal(t, 10.5, first.PrecioUnit)
	assert.Equal(t, 4.0, first.CostoUnit)
	assert.Equal(t, "", first.Categoria)

	keys, err := s.ExistingKeys()
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	assert.True(t, keys.Has(types.Key{Ticket: "123", Product: "P1"}))
}

func TestStoredKey(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Store.Schema = strings.Replace(types.DefaultLedgerSchema, "N_TICKET C(10)", "N_TICKET C(8)", 1)
	s, err := New(cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, types.Key{Ticket: "00001234", Product: "P1"},
		s.StoredKey(types.Key{Ticket: " 000012345678", Product: "p1"}))
	assert.Equal(t, types.Key{Ticket: "12", Product: "CAF?"},
		s.StoredKey(types.Key{Ticket: "12", Product: "caf€"}))
}

func TestOverWidthKeyIsFoundAfterAppend(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Store.Schema = strings.Replace(types.DefaultLedgerSchema, "N_TICKET C(10)", "N_TICKET C(8)", 1)
	s, err := New(cfg, nil)
	require.NoError(t, err)

	_, err = s.AppendBatch([]types.HistoricalEntry{entry("000012345678", "€1")})
	require.NoError(t, err)

	keys, err := s.ExistingKeys()
	require.NoError(t, err)
	assert.True(t, keys.Has(s.StoredKey(types.Key{Ticket: "000012345678", Product: "€1"})))
	assert.True(t, keys.Has(types.Key{Ticket: "00001234", Product: "?1"}))
}

func TestPrepareMatchesStoredRows(t *testing.T) {
	s, _ := newStore(t)

	e := entry(" 124", "p2")
	e.Cantidad = 2.5
	e.PrecioUnit = 10.005
	e.Nombres = "Zoë €"
	prepared := s.Prepare([]types.HistoricalEntry{e})
	require.Len(t, prepared, 1)

	assert.Equal(t, 3.0, prepared[0].Cantidad)
	assert.Equal(t, 10.01, prepared[0].PrecioUnit)
	assert.Equal(t, "124", prepared[0].Ticket)
	assert.Equal(t, "P2", prepared[0].Producto)
	assert.Equal(t, "Zoë ?", prepared[0].Nombres)
	assert.Equal(t, 2.5, e.Cantidad)

	_, err := s.AppendBatch([]types.HistoricalEntry{e})
	require.NoError(t, err)
	rows, err := s.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, prepared[0], rows[0])
}

func TestReadAllDisplayRules(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.EnsureCreated()
	require.NoError(t, err)

	// Written straight through the codec, as another tool would.
	_, err = dbf.Append(s.Path(), dbf.MustCodePage("cp850"), []map[string]any{
		{"N_TICKET": "9", "PRONUM": "X", "FECHA": "19/07/25", "CANT": nil},
		{"N_TICKET": "10", "PRONUM": "Y", "FECHA": "sin fecha"},
	})
	require.NoError(t, err)

	rows, err := s.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "2025-07-19", rows[0].Fecha)
	assert.Equal(t, 0.0, rows[0].Cantidad)
	assert.Equal(t, 0.0, rows[0].PrecioUnit)
	assert.Equal(t, "sin fecha", rows[1].Fecha)
}

func TestAppendBatchRejectsInvalidBatch(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.AppendBatch([]types.HistoricalEntry{entry("1", "A")})
	require.NoError(t, err)

	before, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	bad := entry("2", "B")
	bad.Cantidad = math.Inf(1)
	_, err = s.AppendBatch([]types.HistoricalEntry{entry("3", "C"), bad})

	var batchErr *validation.BatchError
	require.True(t, errors.As(err, &batchErr))

	after, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.True(t, bytes.Equal(before, after))
}

func TestAppendBatchEmpty(t *testing.T) {
	s, _ := newStore(t)

	total, err := s.AppendBatch(nil)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.True(t, s.Exists())
}

func TestAppendBatchBacksUp(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Store.BackupDir = "backups"

	s, err := New(cfg, nil)
	require.NoError(t, err)

	_, err = s.AppendBatch([]types.HistoricalEntry{entry("1", "A")})
	require.NoError(t, err)
	_, err = s.AppendBatch([]types.HistoricalEntry{entry("2", "B")})
	require.NoError(t, err)

	backups, err := filepath.Glob(filepath.Join(cfg.DataDir, "backups", "VENTAS_HISTORICO_*.DBF"))
	require.NoError(t, err)
	assert.Len(t, backups, 2)
}

func TestAppendBatchBackupLayout(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Store.BackupDir = "backups"
	cfg.Store.BackupNameFormat = "copia_{short}"
	cfg.Store.BackupTimestampSubdirs = true

	s, err := New(cfg, nil)
	require.NoError(t, err)

	_, err = s.AppendBatch([]types.HistoricalEntry{entry("1", "A")})
	require.NoError(t, err)
	_, err = s.AppendBatch([]types.HistoricalEntry{entry("2", "B")})
	require.NoError(t, err)

	backups, err := filepath.Glob(filepath.Join(cfg.DataDir, "backups", "*", "*", "*", "copia_*.DBF"))
	require.NoError(t, err)
	assert.Len(t, backups, 2)
}

func TestStrictValidationRejectsCutText(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Store.StrictValidation = true

	s, err := New(cfg, nil)
	require.NoError(t, err)

	long := entry("1", "A")
	long.Descripcion = strings.Repeat("x", 60)
	_, err = s.AppendBatch([]types.HistoricalEntry{long})

	var batchErr *validation.BatchError
	require.ErrorAs(t, err, &batchErr)
	n, err := s.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	// Without strict validation the text is cut and stored.
	cfg.Store.StrictValidation = false
	s, err = New(cfg, nil)
	require.NoError(t, err)
	total, err := s.AppendBatch([]types.HistoricalEntry{long})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestDownload(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.AppendBatch([]types.HistoricalEntry{entry("1", "A")})
	require.NoError(t, err)

	want, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	var got []byte
	err = s.Download(func(content io.ReadSeeker, _ time.Time, size int64) error {
		assert.Equal(t, int64(len(want)), size)
		got, err = io.ReadAll(content)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestConcurrentAppendsAndReads(t *testing.T) {
	s, _ := newStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := s.AppendBatch([]types.HistoricalEntry{entry(string(rune('A'+i)), "P")})
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			_, err := s.ReadAll()
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}
