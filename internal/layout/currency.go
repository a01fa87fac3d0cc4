package layout

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var amountCleaner = strings.NewReplacer("$", "", ",", "", " ", "")

// ParseAmount reads an amount typed in the spreadsheet. Currency signs and
// thousands separators are ignored. ok is false for blank or non-numeric text.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := amountCleaner.Replace(strings.TrimSpace(raw))
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatCurrency formats an amount as Mexican pesos, e.g. "$1,234.50".
// Anything that does not parse formats as "".
func FormatCurrency(raw string) string {
	d, ok := ParseAmount(raw)
	if !ok {
		return ""
	}

	d = d.Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	fixed := d.StringFixed(2)
	cents := fixed[strings.IndexByte(fixed, '.')+1:]
	return sign + "$" + humanize.Comma(d.IntPart()) + "." + cents
}
