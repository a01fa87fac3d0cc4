// =============================================================================
// Pega Tickets - CSV Parser Module
// =============================================================================
//
// This module reads ticket exports saved as CSV instead of XLSX. It produces
// the same types.Sheet as the XLSX reader, so the rest of the pipeline does
// not care which format came in. It handles:
//   - Different delimiters (comma, pipe, tab, semicolon)
//   - Multi-line headers
//   - Custom data start rows
//   - UTF-8 (with or without BOM), Windows-1252 and ISO-8859-1 input
//
// CELL TYPES:
//   CSV has no cell types. A value is read as a number only when it is written
//   in canonical form ("45729", "1234.5"), so identifiers such as "00123" keep
//   their leading zeros while day serials still become dates.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/pega-tickets/internal/config"
	"github.com/ginjaninja78/pega-tickets/internal/types"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseFile reads a CSV file and returns the parsed sheet. The sheet is named
// after the file.
func ParseFile(filePath string, settings config.CSVSettings) (*types.Sheet, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Parse(file, filepath.Base(filePath), settings)
}

// Parse reads CSV data and returns the parsed sheet.
//
// PARSING PROCESS:
//   1. Decode the input from the configured encoding
//   2. Configure the CSV reader with the configured delimiter
//   3. Read and merge header rows (for multi-line headers)
//   4. Read data rows starting from the configured data start row
//   5. Convert each row to a types.RawRow keyed by header
func Parse(r io.Reader, name string, settings config.CSVSettings) (*types.Sheet, error) {
	decoded, err := decoder(bufio.NewReader(r), settings.Encoding)
	if err != nil {
		return nil, err
	}

	csvReader := csv.NewReader(decoded)
	if err := configureReader(csvReader, settings); err != nil {
		return nil, fmt.Errorf("failed to configure CSV reader: %w", err)
	}

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(allRows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	headers, err := extractHeaders(allRows, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to extract headers: %w", err)
	}

	sheet := &types.Sheet{Name: name, Headers: headers}
	extractDataRows(sheet, allRows, settings)
	return sheet, nil
}

// decoder wraps r so that it yields UTF-8.
func decoder(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToUpper(strings.ReplaceAll(encoding, "_", "-")) {
	case "", "UTF-8", "UTF8":
		return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
	case "WINDOWS-1252", "CP1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	case "ISO-8859-1", "LATIN1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) error {
	comma, err := settings.DelimiterRune()
	if err != nil {
		return err
	}
	reader.Comma = comma

	// Exports are hand edited; rows may be short or carry stray quotes.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	// Header text is matched with its spaces (" IMPORTE ").
	reader.TrimLeadingSpace = false
	return nil
}

// extractHeaders extracts and merges headers from the CSV.
//
// MULTI-LINE HEADER HANDLING:
//   Row 1: "DATOS", "", "CARGA", ""
//   Row 2: "N°", "PLACA", "FOLIO", "IMPORTE"
//   Result: "DATOS N°", "PLACA", "CARGA FOLIO", "IMPORTE"
//
// A single header row is kept exactly as typed.
func extractHeaders(allRows [][]string, settings config.CSVSettings) ([]string, error) {
	if settings.HeaderRows <= 0 {
		return nil, fmt.Errorf("header_rows must be at least 1")
	}
	if len(allRows) < settings.HeaderRows {
		return nil, fmt.Errorf("file has fewer rows than header_rows setting")
	}

	if settings.HeaderRows == 1 {
		return types.UniqueHeaders(allRows[0]), nil
	}

	maxCols := 0
	for i := 0; i < settings.HeaderRows; i++ {
		if len(allRows[i]) > maxCols {
			maxCols = len(allRows[i])
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for row := 0; row < settings.HeaderRows; row++ {
			if col < len(allRows[row]) {
				if value := strings.TrimSpace(allRows[row][col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}

	return types.UniqueHeaders(headers), nil
}

// extractDataRows appends every non-blank row from DataStartRow on.
func extractDataRows(sheet *types.Sheet, allRows [][]string, settings config.CSVSettings) {
	startIndex := settings.DataStartRow - 1
	if startIndex < settings.HeaderRows {
		startIndex = settings.HeaderRows
	}

	for rowIndex := startIndex; rowIndex < len(allRows); rowIndex++ {
		row := allRows[rowIndex]
		if isRowEmpty(row) {
			continue
		}

		raw := make(types.RawRow, len(sheet.Headers))
		for colIndex, header := range sheet.Headers {
			if colIndex < len(row) {
				raw[header] = inferCell(row[colIndex])
			}
		}

		sheet.Rows = append(sheet.Rows, raw)
		sheet.RowNumbers = append(sheet.RowNumbers, rowIndex+1)
	}
}

// inferCell returns a number cell for canonical numeric text, a text cell
// otherwise.
func inferCell(s string) types.Cell {
	if strings.TrimSpace(s) == "" {
		return types.Cell{Kind: types.CellEmpty}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && strconv.FormatFloat(f, 'f', -1, 64) == s {
		return types.NumberCell(f)
	}
	return types.TextCell(s)
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
