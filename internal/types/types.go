// =============================================================================
// Pega Tickets - Shared Types
// =============================================================================
//
// This package contains the types shared by the reading, normalizing, grouping
// and layout stages. Keeping them here avoids import cycles between:
//   - xlsxparser / csvparser (produce Sheet and RawRow)
//   - normalizer             (RawRow -> TicketRecord)
//   - grouper                (TicketRecord -> Group)
//   - layout / render        (Group -> pages)
//
// =============================================================================

package types

import "strconv"

// =============================================================================
// CELL TYPES
// =============================================================================

// CellKind tells how a spreadsheet cell was populated.
type CellKind int

const (
	// CellAbsent means the row has no such column at all.
	CellAbsent CellKind = iota

	// CellEmpty means the column exists but the cell is blank.
	CellEmpty

	// CellText is a string cell.
	CellText

	// CellNumber is a numeric cell. Dates stored by the spreadsheet as day
	// serials also arrive as numbers.
	CellNumber
)

// Cell is one untyped scalar read from the spreadsheet.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// TextCell returns a text cell. Blank strings become empty cells.
func TextCell(s string) Cell {
	if s == "" {
		return Cell{Kind: CellEmpty}
	}
	return Cell{Kind: CellText, Text: s}
}

// NumberCell returns a numeric cell.
func NumberCell(f float64) Cell {
	return Cell{Kind: CellNumber, Number: f}
}

// IsBlank reports whether the cell carries no value. Absent and empty cells
// are treated alike by every consumer.
func (c Cell) IsBlank() bool {
	return c.Kind == CellAbsent || c.Kind == CellEmpty
}

// String renders the cell value for display. Numbers use the shortest
// representation that round-trips, so 1 prints as "1" and 1234.5 as "1234.5".
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// RawRow maps the header text of a column to the cell found in that column.
// Header names are whatever the person typing the spreadsheet used, so they may
// carry stray spaces or accents.
type RawRow map[string]Cell

// Get returns the cell under header, or an absent cell.
func (r RawRow) Get(header string) Cell {
	c, ok := r[header]
	if !ok {
		return Cell{Kind: CellAbsent}
	}
	return c
}

// Sheet is the output of a spreadsheet reader.
type Sheet struct {
	// Name is the worksheet name (or the file name for CSV input).
	Name string

	// Headers are the column headers in sheet order, after blank and duplicate
	// headers were renamed.
	Headers []string

	// Rows holds every non-blank data row in sheet order.
	Rows []RawRow

	// RowNumbers holds the 1-indexed source row of each entry in Rows.
	RowNumbers []int
}

// =============================================================================
// TICKET TYPES
// =============================================================================

// TicketRecord is the canonical form of one spreadsheet row.
// Every field except GroupKey may be empty, which means the source did not
// provide it.
type TicketRecord struct {
	// GroupKey identifies the ticket sheet this row belongs to ("N°" column).
	GroupKey string

	// Folio is the invoice number printed in the header table (FACTURA).
	Folio string

	// CIV is the vehicle circulation id.
	CIV string

	Plate        string
	SerialNumber string
	Brand        string
	Type         string
	Model        string

	// PatrimonyNumber is the fleet inventory number ("NUM PAT").
	PatrimonyNumber string

	// Date is already formatted for display (dd/mm/yyyy when the source was
	// a day serial).
	Date string

	// FuelFolio is the folio of the fuel load (printed as FOLIO in the body).
	FuelFolio string

	Odometer string

	// Amount is kept as text; it is parsed only when formatted as currency.
	Amount string

	Fuel        string
	Driver      string
	Route       string
	Note        string
	FiscalFolio string

	// SourceRow is the 1-indexed spreadsheet row, for log messages.
	SourceRow int
}

// Group is the ordered set of records sharing one group key.
type Group struct {
	Key     string
	Records []TicketRecord
}

// First returns the record that defines the header table of the group.
func (g Group) First() (TicketRecord, bool) {
	if len(g.Records) == 0 {
		return TicketRecord{}, false
	}
	return g.Records[0], true
}
