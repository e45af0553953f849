package inventory

import (
	"fmt"
	"io"
	"strings"

	pkgerrors "github.com/angelmondragon/gemvault-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/multierr"
)

const (
	colID       = "id"
	colName     = "name"
	colCategory = "category"
	colUnit     = "unit"
	colQuantity = "quantity"
	colPrice    = "price"
)

// headerAliases maps normalised header text to a bulk column.
var headerAliases = map[string]string{
	"id":        colID,
	"nombre":    colName,
	"producto":  colName,
	"name":      colName,
	"tipo":      colCategory,
	"categoria": colCategory,
	"category":  colCategory,
	"unidad":    colUnit,
	"unit":      colUnit,
	"cantidad":  colQuantity,
	"quantity":  colQuantity,
	"precio":    colPrice,
	"price":     colPrice,
}

var accentReplacer = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n")

// ParseBulkSpreadsheet reads the active sheet of an .xlsx upload. The first
// row is a header naming the columns (Nombre, Tipo, Unidad, Cantidad and an
// optional Precio or Id); blank rows are skipped.
func ParseBulkSpreadsheet(r io.Reader) ([]BulkLoadRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "could not read spreadsheet (expected .xlsx)")
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "could not read spreadsheet rows")
	}
	if len(rows) < 2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "spreadsheet has no data rows")
	}

	columns := map[string]int{}
	for idx, cell := range rows[0] {
		key := accentReplacer.Replace(strings.ToLower(strings.TrimSpace(cell)))
		if col, ok := headerAliases[key]; ok {
			if _, seen := columns[col]; !seen {
				columns[col] = idx
			}
		}
	}
	if _, ok := columns[colQuantity]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "spreadsheet is missing the Cantidad column")
	}
	_, hasID := columns[colID]
	_, hasName := columns[colName]
	_, hasCategory := columns[colCategory]
	_, hasUnit := columns[colUnit]
	if !hasID && !(hasName && hasCategory && hasUnit) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "spreadsheet needs Nombre, Tipo and Unidad columns")
	}

	var rowErrs error
	out := make([]BulkLoadRow, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		cells := rows[i]
		if blankRow(cells) {
			continue
		}
		line := i + 1
		row := BulkLoadRow{
			Name:     cellAt(cells, columns, colName),
			Category: cellAt(cells, columns, colCategory),
			Unit:     cellAt(cells, columns, colUnit),
		}
		if raw := cellAt(cells, columns, colID); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				rowErrs = multierr.Append(rowErrs, fmt.Errorf("row %d: invalid id %q", line, raw))
				continue
			}
			row.ItemID = &id
		}
		qty, err := parseNumber(cellAt(cells, columns, colQuantity))
		if err != nil {
			rowErrs = multierr.Append(rowErrs, fmt.Errorf("row %d: invalid quantity: %v", line, err))
			continue
		}
		row.Quantity = qty
		if raw := cellAt(cells, columns, colPrice); raw != "" {
			price, err := parseNumber(raw)
			if err != nil {
				rowErrs = multierr.Append(rowErrs, fmt.Errorf("row %d: invalid price: %v", line, err))
				continue
			}
			row.Price = &price
		}
		out = append(out, row)
	}
	if rowErrs != nil {
		return nil, rowValidationError(rowErrs)
	}
	if len(out) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "spreadsheet has no data rows")
	}
	return out, nil
}

func cellAt(cells []string, columns map[string]int, col string) string {
	idx, ok := columns[col]
	if !ok || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func blankRow(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseNumber accepts "125.5" and the comma decimal form "125,5".
func parseNumber(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, fmt.Errorf("value is empty")
	}
	if strings.Contains(raw, ",") && !strings.Contains(raw, ".") {
		raw = strings.ReplaceAll(raw, ",", ".")
	}
	return decimal.NewFromString(raw)
}
