package presentation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/ventas-historico/internal/config"
	"github.com/ginjaninja78/ventas-historico/internal/types"
)

func ledger() []types.HistoricalEntry {
	return []types.HistoricalEntry{
		{Ticket: "123", Producto: "P1", Tipo: "CR", Nombres: "Ana", Cantidad: 2, PrecioUnit: 10.5, CostoUnit: 4},
		{Ticket: "124", Producto: "P1", Tipo: "EF", Cantidad: 1, PrecioUnit: 0.1, CostoUnit: 0.2},
		{Ticket: "123 ", Producto: "p1", Tipo: "CR", Nombres: "Otro", Cantidad: 3, PrecioUnit: 10, CostoUnit: 4},
	}
}

func TestGrouped(t *testing.T) {
	rows := Grouped{}.Transform(ledger())
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "123", first.Ticket)
	assert.Equal(t, "Ana", first.Nombres)
	assert.Equal(t, 5.0, first.Cantidad)
	require.NotNil(t, first.Importe)
	assert.Equal(t, 51.0, *first.Importe)
	assert.Equal(t, 20.0, *first.CostoImp)
	assert.Equal(t, 31.0, *first.Margen)
	assert.Empty(t, first.ClaseVenta)

	second := rows[1]
	assert.Equal(t, "124", second.Ticket)
	assert.Equal(t, 0.1, *second.Importe)
	assert.Equal(t, -0.1, *second.Margen)
}

func TestGroupedEmpty(t *testing.T) {
	rows := Grouped{}.Transform(nil)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestFlat(t *testing.T) {
	rows := NewFlat([]string{"cr", "CREDITO "}).Transform(ledger())
	require.Len(t, rows, 3)

	assert.Equal(t, ClassCredit, rows[0].ClaseVenta)
	assert.Equal(t, ClassCash, rows[1].ClaseVenta)
	assert.Equal(t, "123 ", rows[2].Ticket)
	assert.Nil(t, rows[0].Importe)
}

func TestNew(t *testing.T) {
	s, err := New(config.PresentationConfig{})
	require.NoError(t, err)
	assert.Equal(t, "grouped", s.Name())

	s, err = New(config.PresentationConfig{Strategy: "flat", CreditPaymentTypes: []string{"CRED"}})
	require.NoError(t, err)
	assert.Equal(t, "flat", s.Name())

	_, err = New(config.PresentationConfig{Strategy: "pivot"})
	assert.Error(t, err)
}

func TestRowJSON(t *testing.T) {
	rows := Grouped{}.Transform(ledger()[:1])
	data, err := json.Marshal(rows[0])
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "123", got["N_TICKET"])
	assert.Equal(t, 21.0, got["IMPORTE"])
	assert.Equal(t, 13.0, got["MB"])
	assert.NotContains(t, got, "CLASE_VENTA")

	flat := NewFlat(nil).Transform(ledger()[:1])
	data, err = json.Marshal(flat[0])
	require.NoError(t, err)
	got = nil
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "CONTADO", got["CLASE_VENTA"])
	assert.NotContains(t, got, "IMPORTE")
}

func TestColumnsAndValues(t *testing.T) {
	g := Grouped{}
	rows := g.Transform(ledger())
	assert.Len(t, Values(g, rows[0]), len(Columns(g)))
	assert.Equal(t, "MB", Columns(g)[len(Columns(g))-1])

	f := NewFlat(nil)
	assert.Equal(t, "CLASE_VENTA", Columns(f)[len(Columns(f))-1])
	assert.Len(t, Values(f, f.Transform(ledger())[0]), len(Columns(f)))
}
