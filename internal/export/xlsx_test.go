package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/ventas-historico/internal/presentation"
	"github.com/ginjaninja78/ventas-historico/internal/types"
)

func entries() []types.HistoricalEntry {
	return []types.HistoricalEntry{
		{Fecha: "2025-07-19", Ticket: "123", Producto: "P1", Nombres: "Peña", Tipo: "CR", Cantidad: 2, PrecioUnit: 10.5, CostoUnit: 4, Descripcion: "Widget"},
		{Fecha: "2025-07-20", Ticket: "124", Producto: "P2", Tipo: "EF", Cantidad: 1, PrecioUnit: 3},
	}
}

func TestWriteGrouped(t *testing.T) {
	strategy := presentation.Grouped{}
	rows := strategy.Transform(entries())

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, strategy, rows))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	got, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, presentation.Columns(strategy), got[0])
	assert.Equal(t, "123", got[1][2])
	assert.Equal(t, "Peña", got[1][3])
	assert.Equal(t, "P1", got[1][10])

	importe, err := f.GetCellValue(SheetName, "M2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "21", importe)
}

func TestWriteFileFlat(t *testing.T) {
	strategy := presentation.NewFlat([]string{"CR"})
	path := filepath.Join(t.TempDir(), "historico.xlsx")

	require.NoError(t, WriteFile(path, strategy, strategy.Transform(entries())))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "CLASE_VENTA", got[0][12])
	assert.Equal(t, "CREDITO", got[1][12])
	assert.Equal(t, "CONTADO", got[2][12])
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, presentation.Grouped{}, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
