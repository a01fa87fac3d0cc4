// =============================================================================
// Pega Tickets - Data Quality Checks
// =============================================================================
//
// Ticket sheets are generated from whatever the spreadsheet holds: a missing
// column prints as an empty box, an amount that is not a number prints as an
// empty CONSUMO. None of this stops a run. This module collects those gaps so
// they can be logged and shown by the inspect command.
//
// CHECKS:
//   Sheet-level:
//   - missing_column   a printed field has no matching column
//   - unmapped_column  a column is not read by any field
//   Row-level:
//   - missing_key      the row has no N° and is left out of every group
//   - bad_amount       the amount cannot be read as money
//   - text_date        the date is text rather than a dd/mm/yyyy date
//   Group-level:
//   - header_mismatch  a record differs from the first record of its group in
//                      a header column; only the first record is printed
//   - unprintable_text a printed value has characters outside cp1252, the
//                      encoding of the PDF font; they print as "?" or blank
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/ginjaninja78/pega-tickets/internal/grouper"
	"github.com/ginjaninja78/pega-tickets/internal/layout"
	"github.com/ginjaninja78/pega-tickets/internal/normalizer"
	"github.com/ginjaninja78/pega-tickets/internal/types"
)

// Severity levels.
const (
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Rules reported by Inspect.
const (
	RuleMissingColumn  = "missing_column"
	RuleUnmappedColumn = "unmapped_column"
	RuleMissingKey     = "missing_key"
	RuleBadAmount      = "bad_amount"
	RuleTextDate       = "text_date"
	RuleHeaderMismatch = "header_mismatch"
	RuleUnprintable    = "unprintable_text"
)

// printedFields are the fields that appear on a ticket sheet.
var printedFields = []normalizer.Field{
	normalizer.FieldGroupKey,
	normalizer.FieldFolio,
	normalizer.FieldCIV,
	normalizer.FieldPlate,
	normalizer.FieldSerialNumber,
	normalizer.FieldBrand,
	normalizer.FieldModel,
	normalizer.FieldDate,
	normalizer.FieldFuelFolio,
	normalizer.FieldOdometer,
	normalizer.FieldAmount,
}

// =============================================================================
// ISSUE TYPES
// =============================================================================

// Issue is a single data-quality finding.
type Issue struct {
	// Severity is SeverityWarning for gaps that change the printed sheet and
	// SeverityInfo for everything else.
	Severity string

	// Rule is one of the Rule constants.
	Rule string

	// Field is the canonical field or the column header concerned.
	Field string

	// Value is the offending value, if any.
	Value string

	// GroupKey is set for row and group findings when the row has a key.
	GroupKey string

	// RowNumber is the 1-indexed spreadsheet row, 0 for sheet-level findings.
	RowNumber int

	Message string
}

// Error implements the error interface.
func (i *Issue) Error() string {
	where := "sheet"
	if i.RowNumber > 0 {
		where = fmt.Sprintf("row %d", i.RowNumber)
	}
	return fmt.Sprintf("[%s] %s, %s: %s", strings.ToUpper(i.Severity), where, i.Rule, i.Message)
}

// Report is the outcome of Inspect.
type Report struct {
	// Rows is the number of records inspected.
	Rows int

	// Groups is the number of ticket sheets the records produce.
	Groups int

	// Skipped is the number of rows without a group key.
	Skipped int

	Issues []*Issue

	WarningCount int
	InfoCount    int
}

// =============================================================================
// INSPECTION
// =============================================================================

// Inspect checks normalized records. resolver is the one that produced them;
// when nil, sheet-level checks are skipped. Inspect never fails.
func Inspect(records []types.TicketRecord, resolver *normalizer.Resolver) *Report {
	report := &Report{Rows: len(records)}

	if resolver != nil {
		inspectColumns(report, resolver)
	}

	for _, r := range records {
		inspectRecord(report, r)
	}

	groups := grouper.Group(records)
	report.Groups = len(groups)
	report.Skipped = grouper.Skipped(records)
	for _, g := range groups {
		inspectGroup(report, g)
	}

	return report
}

func inspectColumns(report *Report, resolver *normalizer.Resolver) {
	for _, f := range printedFields {
		if len(resolver.Columns(f)) == 0 {
			report.add(&Issue{
				Severity: SeverityWarning,
				Rule:     RuleMissingColumn,
				Field:    string(f),
				Message:  fmt.Sprintf("no column found for %s; it will print empty", f),
			})
		}
	}

	for _, h := range resolver.Unmapped() {
		report.add(&Issue{
			Severity: SeverityInfo,
			Rule:     RuleUnmappedColumn,
			Field:    h,
			Message:  fmt.Sprintf("column %q is not used", h),
		})
	}
}

func inspectRecord(report *Report, r types.TicketRecord) {
	if strings.TrimSpace(r.GroupKey) == "" {
		report.add(&Issue{
			Severity:  SeverityWarning,
			Rule:      RuleMissingKey,
			Field:     string(normalizer.FieldGroupKey),
			RowNumber: r.SourceRow,
			Message:   "row has no group key and is left out",
		})
	}

	if r.Amount != "" {
		if _, ok := layout.ParseAmount(r.Amount); !ok {
			report.add(&Issue{
				Severity:  SeverityWarning,
				Rule:      RuleBadAmount,
				Field:     string(normalizer.FieldAmount),
				Value:     r.Amount,
				GroupKey:  r.GroupKey,
				RowNumber: r.SourceRow,
				Message:   fmt.Sprintf("amount %q is not a number; CONSUMO will print empty", r.Amount),
			})
		}
	}

	if r.Date != "" {
		if _, err := time.Parse(normalizer.DateLayout, r.Date); err != nil {
			report.add(&Issue{
				Severity:  SeverityInfo,
				Rule:      RuleTextDate,
				Field:     string(normalizer.FieldDate),
				Value:     r.Date,
				GroupKey:  r.GroupKey,
				RowNumber: r.SourceRow,
				Message:   fmt.Sprintf("date %q is printed as typed", r.Date),
			})
		}
	}
}

func inspectGroup(report *Report, g types.Group) {
	first, ok := g.First()
	if !ok {
		return
	}
	want := layout.HeaderValues(first)

	if bad := unprintable(g.Key); bad != "" {
		report.add(unprintableIssue(g.Key, "N°", g.Key, first.SourceRow, bad))
	}
	for i, v := range want {
		if bad := unprintable(v); bad != "" {
			report.add(unprintableIssue(g.Key, layout.HeaderColumns[i].Label, v, first.SourceRow, bad))
		}
	}
	for _, r := range g.Records {
		for _, pair := range layout.InfoPairs(r) {
			if bad := unprintable(pair[1]); bad != "" {
				report.add(unprintableIssue(g.Key, strings.TrimSuffix(pair[0], ":"), pair[1], r.SourceRow, bad))
			}
		}
	}

	for _, r := range g.Records[1:] {
		got := layout.HeaderValues(r)
		for i := range want {
			if got[i] == want[i] || got[i] == "" {
				continue
			}
			report.add(&Issue{
				Severity:  SeverityInfo,
				Rule:      RuleHeaderMismatch,
				Field:     layout.HeaderColumns[i].Label,
				Value:     got[i],
				GroupKey:  g.Key,
				RowNumber: r.SourceRow,
				Message: fmt.Sprintf("group %s prints %s %q from row %d, this row has %q",
					g.Key, layout.HeaderColumns[i].Label, want[i], first.SourceRow, got[i]),
			})
		}
	}
}

// unprintable returns the characters of s that the cp1252 font cannot draw.
func unprintable(s string) string {
	var out []rune
	for _, r := range s {
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			out = append(out, r)
		}
	}
	return string(out)
}

func unprintableIssue(key, field, value string, row int, bad string) *Issue {
	return &Issue{
		Severity:  SeverityInfo,
		Rule:      RuleUnprintable,
		Field:     field,
		Value:     value,
		GroupKey:  key,
		RowNumber: row,
		Message:   fmt.Sprintf("%s %q has characters the PDF font cannot print: %q", field, value, bad),
	}
}

func (r *Report) add(issue *Issue) {
	r.Issues = append(r.Issues, issue)
	if issue.Severity == SeverityWarning {
		r.WarningCount++
	} else {
		r.InfoCount++
	}
}

// Warnings returns the warning-level issues.
func (r *Report) Warnings() []*Issue {
	var out []*Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityWarning {
			out = append(out, i)
		}
	}
	return out
}

// CountByRule counts issues per rule.
func (r *Report) CountByRule() map[string]int {
	out := make(map[string]int)
	for _, i := range r.Issues {
		out[i.Rule]++
	}
	return out
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FormatIssues formats issues for display.
func FormatIssues(issues []*Issue) string {
	if len(issues) == 0 {
		return "No data quality issues."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%d data quality issue(s):\n\n", len(issues)))
	for i, issue := range issues {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, issue.Error()))
	}
	return builder.String()
}
