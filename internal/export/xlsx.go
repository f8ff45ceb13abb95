// =============================================================================
// Ventas Histórico - Spreadsheet Export
// =============================================================================
//
// Writes the display rows of the ledger to an .xlsx workbook with one sheet,
// "Historico": a bold header row followed by one row per display row, in the
// column order of the active presentation strategy.
//
// =============================================================================

package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/ventas-historico/internal/presentation"
	"github.com/ginjaninja78/ventas-historico/internal/types"
)

// SheetName is the name of the single worksheet.
const SheetName = "Historico"

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// numFmtTwoDecimals is the built-in "0.00" number format.
const numFmtTwoDecimals = 2

// Workbook builds the workbook for rows shaped by strategy. The caller must
// Close it.
func Workbook(strategy presentation.Strategy, rows []presentation.Row) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: numFmtTwoDecimals})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create number style: %w", err)
	}

	columns := presentation.Columns(strategy)
	for i, header := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(SheetName, cell, header)
		f.SetCellStyle(SheetName, cell, cell, headerStyle)
	}

	for r, row := range rows {
		for c, value := range presentation.Values(strategy, row) {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(SheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	for i, name := range columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(SheetName, col, col, columnWidth(name))
		if isMoney(name) && len(rows) > 0 {
			last, _ := excelize.CoordinatesToCellName(i+1, len(rows)+1)
			f.SetCellStyle(SheetName, col+"2", last, moneyStyle)
		}
	}

	return f, nil
}

// Write streams the workbook to w.
func Write(w io.Writer, strategy presentation.Strategy, rows []presentation.Row) error {
	f, err := Workbook(strategy, rows)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteFile saves the workbook to path.
func WriteFile(path string, strategy presentation.Strategy, rows []presentation.Row) error {
	f, err := Workbook(strategy, rows)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func isMoney(column string) bool {
	switch column {
	case types.ColPrecioUnit, types.ColCostoUnit, "IMPORTE", "COST_IMP", "MB":
		return true
	}
	return false
}

func columnWidth(column string) float64 {
	switch column {
	case types.ColNombres, types.ColDescripcion:
		return 40
	case types.ColEERR, types.ColCategoria, types.ColSubCat:
		return 20
	default:
		return 12
	}
}
