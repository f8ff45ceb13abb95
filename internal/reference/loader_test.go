package reference

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/ventas-historico/internal/config"
	"github.com/ginjaninja78/ventas-historico/internal/dbf/dbftest"
	"github.com/ginjaninja78/ventas-historico/internal/types"
)

func newLoader(t *testing.T, dir string) *Loader {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = dir

	loader, err := NewLoader(cfg, nil)
	require.NoError(t, err)
	return loader
}

func writeInputs(t *testing.T, dir string) {
	t.Helper()
	dbftest.WriteTable(t, dir, "ZETH50T.DBF", dbftest.HeaderSchema,
		map[string]any{"NUMCHK": " 123", "CUSNAM": "Peña", "TYPPAG": "CR", "FECCHK": "19/07/25"},
	)
	dbftest.WriteTable(t, dir, "ZETH51T.DBF", dbftest.DetailSchema,
		map[string]any{"NUMCHK": "123", "PRONUM": "p1", "QTYPRO": 2, "PRIPRO": "10.50"},
		map[string]any{"NUMCHK": "124", "PRONUM": "P2", "QTYPRO": nil, "PRIPRO": ""},
	)
	dbftest.WriteTable(t, dir, "ZETH70.DBF", dbftest.ProductSchema,
		map[string]any{"PRONUM": "P1", "DESCRI": "Old", "ULCOSREP": "3"},
		map[string]any{"PRONUM": "p1 ", "DESCRI": "Widget", "ULCOSREP": "4"},
	)
}

func TestCheckInputsReportsFirstMissing(t *testing.T) {
	dir := t.TempDir()
	loader := newLoader(t, dir)

	var missing *types.MissingFileError
	err := loader.CheckInputs()
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "ZETH50T.DBF", missing.Name)
	assert.Equal(t, "No se encontró ZETH50T.DBF", err.Error())

	dbftest.WriteTable(t, dir, "ZETH50T.DBF", dbftest.HeaderSchema)
	dbftest.WriteTable(t, dir, "ZETH70.DBF", dbftest.ProductSchema)

	err = loader.CheckInputs()
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "ZETH51T.DBF", missing.Name)

	dbftest.WriteTable(t, dir, "ZETH51T.DBF", dbftest.DetailSchema)
	assert.NoError(t, loader.CheckInputs())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeInputs(t, dir)
	loader := newLoader(t, dir)

	data, err := loader.Load()
	require.NoError(t, err)

	require.Contains(t, data.Headers, "123")
	assert.Equal(t, "Peña", data.Headers["123"].Customer)
	assert.Equal(t, "CR", data.Headers["123"].PaymentType)
	assert.Equal(t, "19/07/25", data.Headers["123"].RawDate)

	// Last duplicate wins after normalization.
	require.Len(t, data.Products, 1)
	assert.Equal(t, "Widget", data.Products["P1"].Description)
	assert.Equal(t, 4.0, data.Products["P1"].LastCost)

	// Extension table is optional.
	assert.Empty(t, data.Extensions)
}

func TestLoadExtensions(t *testing.T) {
	dir := t.TempDir()
	writeInputs(t, dir)
	dbftest.WriteTable(t, dir, "ZETH70_EXT.DBF", dbftest.ProductExtSchema,
		map[string]any{"PRONUM": "p1", "EERR": "VENTAS", "CATEGORIA": "HOGAR", "SUB_CAT": "COCINA"},
	)

	data, err := newLoader(t, dir).Load()
	require.NoError(t, err)

	assert.Equal(t, types.ProductExtRecord{
		Product: "P1", EERR: "VENTAS", Category: "HOGAR", SubCategory: "COCINA",
	}, data.Extensions["P1"])
}

func TestLoadRejectsBadCost(t *testing.T) {
	dir := t.TempDir()
	writeInputs(t, dir)
	dbftest.WriteTable(t, dir, "ZETH70_EXT.DBF", dbftest.ProductExtSchema)

	cfg := config.Default()
	cfg.DataDir = dir
	cfg.Tables.Products = "BAD.DBF"
	dbftest.WriteTable(t, dir, "BAD.DBF", dbftest.ProductSchema,
		map[string]any{"PRONUM": "P9", "ULCOSREP": "n/a"},
	)
	loader, err := NewLoader(cfg, nil)
	require.NoError(t, err)

	_, err = loader.Load()
	var parseErr *types.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "BAD.DBF", parseErr.Table)
	assert.Equal(t, 1, parseErr.Row)
	assert.Equal(t, "ULCOSREP", parseErr.Field)
}

func TestDetailScanner(t *testing.T) {
	dir := t.TempDir()
	writeInputs(t, dir)

	scanner, err := newLoader(t, dir).Details()
	require.NoError(t, err)
	defer scanner.Close()

	var got []types.DetailRecord
	for scanner.Next() {
		got = append(got, scanner.Detail())
	}
	require.NoError(t, scanner.Err())

	assert.Equal(t, []types.DetailRecord{
		{Row: 1, Ticket: "123", Product: "p1", Quantity: 2, UnitPrice: 10.5},
		{Row: 2, Ticket: "124", Product: "P2", Quantity: 0, UnitPrice: 0},
	}, got)
}

func TestDetailsMissingTable(t *testing.T) {
	_, err := newLoader(t, t.TempDir()).Details()

	var missing *types.MissingFileError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "ZETH51T.DBF", missing.Name)
}

// The testdata tables come from other dBase writers: a dBase III header
// table with a native date column and a deleted row, and a Visual FoxPro
// detail table with binary integer and currency columns.
func TestLoadForeignTables(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"ZETH50T.DBF", "ZETH51T.DBF"} {
		raw, err := os.ReadFile(filepath.Join("testdata", name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), raw, 0644))
	}
	dbftest.WriteTable(t, dir, "ZETH70.DBF", dbftest.ProductSchema,
		map[string]any{"PRONUM": "P1", "DESCRI": "Widget", "ULCOSREP": "4"},
	)

	loader := newLoader(t, dir)
	require.NoError(t, loader.CheckInputs())

	data, err := loader.Load()
	require.NoError(t, err)
	require.Len(t, data.Headers, 2)
	assert.NotContains(t, data.Headers, "999")
	assert.Equal(t, "Peña", data.Headers["123"].Customer)
	fecha, ok := data.Headers["123"].RawDate.(time.Time)
	require.True(t, ok)
	assert.Equal(t, "2025-07-19", fecha.Format("2006-01-02"))

	scanner, err := loader.Details()
	require.NoError(t, err)
	defer scanner.Close()

	var got []types.DetailRecord
	for scanner.Next() {
		got = append(got, scanner.Detail())
	}
	require.NoError(t, scanner.Err())

	assert.Equal(t, []types.DetailRecord{
		{Row: 1, Ticket: "123", Product: "P1", Quantity: 2, UnitPrice: 10.5},
		{Row: 2, Ticket: "124", Product: "P2", Quantity: -1, UnitPrice: 3},
	}, got)
}
