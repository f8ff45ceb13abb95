package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/ventas-historico/internal/dbf/dbftest"
	"github.com/ginjaninja78/ventas-historico/internal/types"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	content := "data_dir: " + dir + "\nlog_level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeTables(t *testing.T, dir string) {
	t.Helper()
	dbftest.WriteTable(t, dir, "ZETH50T.DBF", dbftest.HeaderSchema,
		map[string]any{"NUMCHK": "123", "CUSNAM": "Ana", "TYPPAG": "CR", "FECCHK": "19/07/25"},
	)
	dbftest.WriteTable(t, dir, "ZETH51T.DBF", dbftest.DetailSchema,
		map[string]any{"NUMCHK": "123", "PRONUM": "P1", "QTYPRO": 2, "PRIPRO": "10.5"},
	)
	dbftest.WriteTable(t, dir, "ZETH70.DBF", dbftest.ProductSchema,
		map[string]any{"PRONUM": "P1", "DESCRI": "Widget", "ULCOSREP": "4"},
	)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Ventas Histórico")
	assert.Contains(t, out, "Go Version:")
}

func TestValidateReportsMissingTables(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)

	out, err := execute(t, "validate", "--config", cfg)

	var missing *types.MissingFileError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "ZETH50T.DBF", missing.Name)
	assert.Contains(t, out, "Configuration: OK")
	assert.Contains(t, out, "✗ headers")
	assert.Contains(t, out, "not created yet")
}

func TestReconcileDryRunThenWriteThenExport(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	writeTables(t, dir)
	ledger := filepath.Join(dir, "VENTAS_HISTORICO.DBF")

	out, err := execute(t, "reconcile", "--config", cfg, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run")
	assert.Contains(t, out, "New entries:     1")
	assert.NoFileExists(t, ledger)

	out, err = execute(t, "reconcile", "--config", cfg, "--dry-run=false")
	require.NoError(t, err)
	assert.Contains(t, out, "+ 2025-07-19  123 / P1")
	assert.Contains(t, out, "Ledger total:    1")
	assert.FileExists(t, ledger)

	out, err = execute(t, "reconcile", "--config", cfg, "--dry-run=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Already stored:  1")
	assert.Contains(t, out, "New entries:     0")

	xlsx := filepath.Join(dir, "out.xlsx")
	out, err = execute(t, "export", "--config", cfg, "--output", xlsx, "--presentation", "flat")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 1 row(s)")
	assert.FileExists(t, xlsx)

	out, err = execute(t, "validate", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "(1 rows)")
}

func TestExportWithoutLedger(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)

	_, err := execute(t, "export", "--config", cfg, "--output", filepath.Join(dir, "x.xlsx"), "--presentation", "")

	var notFound *types.StoreNotFoundError
	assert.True(t, errors.As(err, &notFound))
}
