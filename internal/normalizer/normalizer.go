// =============================================================================
// Pega Tickets - Field Normalizer
// =============================================================================
//
// The normalizer turns one spreadsheet row, keyed by whatever header text the
// author typed, into one canonical TicketRecord.
//
// COLUMN RESOLUTION:
//   Every canonical field owns an ordered alias list. For a given header row
//   the Resolver computes, once, the candidate columns of each field:
//     1. columns whose header equals an alias exactly, in alias order
//     2. columns whose folded header (see FoldHeader) equals a folded alias,
//        in sheet order
//   For each row the first candidate holding a value wins. A blank cell falls
//   through to the next candidate. No candidate means the field is absent.
//
// DATES:
//   Numeric dates are day serials counted from 1899-12-30. Text dates are
//   kept verbatim.
//
// =============================================================================

package normalizer

import (
	"math"
	"sort"
	"time"

	"github.com/ginjaninja78/pega-tickets/internal/types"
)

// DateLayout is the display format of normalized dates (es-MX).
const DateLayout = "02/01/2006"

// serialEpoch is day 0 of the spreadsheet date system. Starting at Dec 30
// rather than Dec 31 absorbs the phantom 1900-02-29 of the format.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver maps the columns of one sheet onto canonical fields.
type Resolver struct {
	candidates map[Field][]string
	used       map[string]bool
	headers    []string
}

// New builds a Resolver for a sheet with the given headers.
func New(headers []string, aliases Aliases) *Resolver {
	r := &Resolver{
		candidates: make(map[Field][]string, len(Fields)),
		used:       make(map[string]bool),
		headers:    headers,
	}

	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	for _, f := range Fields {
		var cols []string
		taken := make(map[string]bool)

		for _, alias := range aliases[f] {
			if present[alias] && !taken[alias] {
				cols = append(cols, alias)
				taken[alias] = true
			}
		}

		folded := make(map[string]bool, len(aliases[f]))
		for _, alias := range aliases[f] {
			folded[FoldHeader(alias)] = true
		}
		for _, h := range headers {
			if !taken[h] && folded[FoldHeader(h)] {
				cols = append(cols, h)
				taken[h] = true
			}
		}

		r.candidates[f] = cols
		for _, c := range cols {
			r.used[c] = true
		}
	}

	return r
}

// Columns returns the candidate columns for a field, in priority order.
func (r *Resolver) Columns(f Field) []string {
	return r.candidates[f]
}

// Unmapped returns the headers that no field reads from, in sheet order.
func (r *Resolver) Unmapped() []string {
	var out []string
	for _, h := range r.headers {
		if !r.used[h] {
			out = append(out, h)
		}
	}
	return out
}

// Cell returns the winning cell for a field, or an absent cell.
func (r *Resolver) Cell(row types.RawRow, f Field) types.Cell {
	for _, col := range r.candidates[f] {
		if c := row.Get(col); !c.IsBlank() {
			return c
		}
	}
	return types.Cell{Kind: types.CellAbsent}
}

// Normalize converts one row. It never fails; anything it cannot find is
// left empty.
func (r *Resolver) Normalize(row types.RawRow) types.TicketRecord {
	text := func(f Field) string {
		return r.Cell(row, f).String()
	}

	return types.TicketRecord{
		GroupKey:        text(FieldGroupKey),
		Folio:           text(FieldFolio),
		CIV:             text(FieldCIV),
		Plate:           text(FieldPlate),
		SerialNumber:    text(FieldSerialNumber),
		Brand:           text(FieldBrand),
		Type:            text(FieldType),
		Model:           text(FieldModel),
		PatrimonyNumber: text(FieldPatrimonyNumber),
		Date:            DateValue(r.Cell(row, FieldDate)),
		FuelFolio:       text(FieldFuelFolio),
		Odometer:        text(FieldOdometer),
		Amount:          text(FieldAmount),
		Fuel:            text(FieldFuel),
		Driver:          text(FieldDriver),
		Route:           text(FieldRoute),
		Note:            text(FieldNote),
		FiscalFolio:     text(FieldFiscalFolio),
	}
}

// =============================================================================
// CONVENIENCE ENTRY POINTS
// =============================================================================

// NormalizeRow converts a single row using the default aliases. The row's own
// keys serve as headers, sorted so the result does not depend on map order.
func NormalizeRow(row types.RawRow) types.TicketRecord {
	headers := make([]string, 0, len(row))
	for h := range row {
		headers = append(headers, h)
	}
	sort.Strings(headers)
	return New(headers, DefaultAliases()).Normalize(row)
}

// NormalizeSheet converts every row of a sheet, in order.
func NormalizeSheet(sheet *types.Sheet, aliases Aliases) ([]types.TicketRecord, *Resolver) {
	r := New(sheet.Headers, aliases)
	records := make([]types.TicketRecord, len(sheet.Rows))
	for i, row := range sheet.Rows {
		records[i] = r.Normalize(row)
		if i < len(sheet.RowNumbers) {
			records[i].SourceRow = sheet.RowNumbers[i]
		}
	}
	return records, r
}

// =============================================================================
// DATES
// =============================================================================

// DateValue renders a date cell. Numbers are day serials, text is kept as
// typed and blank cells give "".
func DateValue(c types.Cell) string {
	switch c.Kind {
	case types.CellNumber:
		return SerialToDate(c.Number)
	case types.CellText:
		return c.Text
	default:
		return ""
	}
}

// SerialToDate converts a spreadsheet day serial to dd/mm/yyyy. A fractional
// part (time of day) is carried as milliseconds and may roll the date only
// when it amounts to a full day. Non-finite serials give "".
func SerialToDate(serial float64) string {
	if math.IsNaN(serial) || math.IsInf(serial, 0) {
		return ""
	}
	days := math.Floor(serial)
	ms := math.Round((serial - days) * 86400000)
	t := serialEpoch.AddDate(0, 0, int(days)).Add(time.Duration(ms) * time.Millisecond)
	return t.Format(DateLayout)
}
