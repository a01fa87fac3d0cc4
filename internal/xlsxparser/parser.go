// =============================================================================
// Pega Tickets - XLSX Reader
// =============================================================================
//
// This module reads the fuel ticket workbook. One worksheet is read (the first
// one unless a name is given) and turned into a types.Sheet:
//   - the header row names the columns, as typed
//   - every following non-blank row becomes a types.RawRow
//   - numeric cells stay numeric, so date serials can be told apart from text
//
// EXPECTED SHEET (one row per fuel load):
//
//   | N° | FACTURA | CIV | PLACA | ... | FECHA | FOLIO | ODOMETRO |  IMPORTE  |
//   |----|---------|-----|-------|-----|-------|-------|----------|-----------|
//   | 1  | F-001   | 12  | ABC-1 | ... | 45729 | 5512  | 120345   | 1234.5    |
//
// Only the header names matter; column order is free.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/pega-tickets/internal/types"
)

// Options selects what part of the workbook is read.
type Options struct {
	// SheetName is the worksheet to read. Empty means the first sheet.
	SheetName string

	// HeaderRow is the 1-indexed row holding the column headers. Rows above
	// it are ignored. Zero means 1.
	HeaderRow int
}

// =============================================================================
// READER FUNCTIONS
// =============================================================================

// ReadFile opens an XLSX workbook and reads one sheet.
func ReadFile(path string, opts Options) (*types.Sheet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer file.Close()

	return Read(file, opts)
}

// Read reads one sheet of an XLSX workbook.
//
// RETURNS:
//   - The sheet, with headers and non-blank data rows.
//   - An error if the workbook cannot be opened or the sheet does not exist.
//     A sheet without rows is not an error; it yields no headers and no rows.
func Read(r io.Reader, opts Options) (*types.Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName, err := pickSheet(f, opts.SheetName)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheetName, err)
	}

	headerIndex := opts.HeaderRow - 1
	if headerIndex < 0 {
		headerIndex = 0
	}

	sheet := &types.Sheet{Name: sheetName}
	if headerIndex >= len(rows) {
		return sheet, nil
	}
	sheet.Headers = types.UniqueHeaders(rows[headerIndex])

	for i := headerIndex + 1; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}

		raw := make(types.RawRow, len(sheet.Headers))
		for col, header := range sheet.Headers {
			if col >= len(row) {
				continue
			}
			cell, err := readCell(f, sheetName, col+1, i+1, row[col])
			if err != nil {
				return nil, fmt.Errorf("error reading row %d: %w", i+1, err)
			}
			raw[header] = cell
		}

		sheet.Rows = append(sheet.Rows, raw)
		sheet.RowNumbers = append(sheet.RowNumbers, i+1)
	}

	return sheet, nil
}

// SheetNames lists the worksheets of a workbook, in workbook order.
func SheetNames(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return f.GetSheetList(), nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func pickSheet(f *excelize.File, name string) (string, error) {
	if name == "" {
		first := f.GetSheetName(0)
		if first == "" {
			return "", fmt.Errorf("workbook has no sheets")
		}
		return first, nil
	}

	for _, s := range f.GetSheetList() {
		if s == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("sheet %q not found (available: %s)", name, strings.Join(f.GetSheetList(), ", "))
}

// readCell types a raw cell value. Numeric cells carry no type attribute in
// most writers, so an untyped value that parses as a float is a number.
func readCell(f *excelize.File, sheet string, col, row int, value string) (types.Cell, error) {
	if value == "" {
		return types.Cell{Kind: types.CellEmpty}, nil
	}

	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return types.Cell{}, err
	}
	kind, err := f.GetCellType(sheet, ref)
	if err != nil {
		return types.Cell{}, err
	}

	switch kind {
	case excelize.CellTypeNumber, excelize.CellTypeUnset, excelize.CellTypeFormula:
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			return types.NumberCell(n), nil
		}
	case excelize.CellTypeBool:
		if value == "1" {
			return types.TextCell("TRUE"), nil
		}
		return types.TextCell("FALSE"), nil
	}
	return types.TextCell(value), nil
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
