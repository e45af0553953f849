package reports

import (
	"bytes"
	"fmt"

	"github.com/angelmondragon/gemvault-backend/pkg/db/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	TransactionsFilename = "ReporteTransacciones.xlsx"
	AccountingFilename   = "ReporteContable.xlsx"
	InventoryFilename    = "ReporteInventario.xlsx"

	dateLayout = "2006-01-02 15:04"
)

type sheetLayout struct {
	name   string
	header []any
	widths []float64
	rows   [][]any
}

func transactionsWorkbook(rows []Row) ([]byte, error) {
	layout := sheetLayout{
		name:   "Reporte de Transacciones",
		header: []any{"Fecha", "Producto", "Cantidad", "Precio Unitario", "Total", "Usuario", "Tipo"},
		widths: []float64{20, 30, 15, 20, 20, 25, 25},
	}
	for _, row := range rows {
		layout.rows = append(layout.rows, []any{
			row.Date.Format(dateLayout),
			row.Product,
			number(row.Quantity),
			number(row.UnitPrice),
			number(row.Total),
			row.User,
			row.TypeLabel,
		})
	}
	layout.rows = append(layout.rows, summaryRows(summarize(rows))...)
	return layout.render()
}

func accountingWorkbook(rows []Row) ([]byte, error) {
	layout := sheetLayout{
		name:   "Reporte Contable",
		header: []any{"Fecha", "Producto", "Cantidad", "Precio Unitario", "Total", "Usuario"},
		widths: []float64{20, 30, 15, 20, 20, 25},
	}
	for _, row := range rows {
		layout.rows = append(layout.rows, []any{
			row.Date.Format(dateLayout),
			row.Product,
			number(row.Quantity),
			number(row.UnitPrice),
			number(row.Total),
			row.User,
		})
	}
	layout.rows = append(layout.rows, summaryRows(summarize(rows))...)
	return layout.render()
}

func inventoryWorkbook(items []models.InventoryItem) ([]byte, error) {
	layout := sheetLayout{
		name:   "Inventario",
		header: []any{"Nombre", "Tipo", "Unidad", "Cantidad", "Precio Unitario", "Subtotal"},
		widths: []float64{30, 20, 15, 15, 20, 20},
	}
	total := decimal.Zero
	for _, item := range items {
		var category, unit string
		if item.Category != nil {
			category = item.Category.Name
		}
		if item.Unit != nil {
			unit = item.Unit.Name
		}
		subtotal := item.Quantity.Mul(item.Price)
		total = total.Add(subtotal)
		layout.rows = append(layout.rows, []any{
			item.Name,
			category,
			unit,
			number(item.Quantity),
			number(item.Price),
			number(subtotal),
		})
	}
	layout.rows = append(layout.rows, []any{}, []any{"", "", "", "", "Valor total", number(total)})
	return layout.render()
}

func summaryRows(totals Totals) [][]any {
	return [][]any{
		{},
		{"", "", "", "Total vendido", number(totals.TotalSales)},
		{"", "", "", "Total unidades", number(totals.TotalUnits)},
		{"", "", "", "Transacciones", totals.TransactionCount},
	}
}

// number converts a decimal for a numeric cell.
func number(value decimal.Decimal) float64 {
	f, _ := value.Float64()
	return f
}

func (s sheetLayout) render() ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(sheet, s.name); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	sheet = s.name

	if err := f.SetSheetRow(sheet, "A1", &s.header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, width := range s.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	for i, values := range s.rows {
		if len(values) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := values
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
