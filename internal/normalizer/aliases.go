package normalizer

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Field names one canonical TicketRecord field.
type Field string

const (
	FieldGroupKey        Field = "group_key"
	FieldFolio           Field = "folio"
	FieldCIV             Field = "civ"
	FieldPlate           Field = "plate"
	FieldSerialNumber    Field = "serial_number"
	FieldBrand           Field = "brand"
	FieldType            Field = "type"
	FieldModel           Field = "model"
	FieldPatrimonyNumber Field = "patrimony_number"
	FieldDate            Field = "date"
	FieldFuelFolio       Field = "fuel_folio"
	FieldOdometer        Field = "odometer"
	FieldAmount          Field = "amount"
	FieldFuel            Field = "fuel"
	FieldDriver          Field = "driver"
	FieldRoute           Field = "route"
	FieldNote            Field = "note"
	FieldFiscalFolio     Field = "fiscal_folio"
)

// Fields lists every canonical field in a stable order.
var Fields = []Field{
	FieldGroupKey,
	FieldFolio,
	FieldCIV,
	FieldPlate,
	FieldSerialNumber,
	FieldBrand,
	FieldType,
	FieldModel,
	FieldPatrimonyNumber,
	FieldDate,
	FieldFuelFolio,
	FieldOdometer,
	FieldAmount,
	FieldFuel,
	FieldDriver,
	FieldRoute,
	FieldNote,
	FieldFiscalFolio,
}

// Aliases holds, per field, the column headers to try in priority order.
type Aliases map[Field][]string

// DefaultAliases returns the header spellings found in the fuel ticket
// spreadsheets.
func DefaultAliases() Aliases {
	return Aliases{
		FieldGroupKey:        {"N°", "Nº", "NO."},
		FieldFolio:           {"FOLIO"},
		FieldCIV:             {"CIV"},
		FieldPlate:           {"PLACA"},
		FieldSerialNumber:    {"NUM SERIE"},
		FieldBrand:           {"MARCA"},
		FieldType:            {"TIPO"},
		FieldModel:           {"MOD", "MODELO"},
		FieldPatrimonyNumber: {"NUM PAT"},
		FieldDate:            {"FECHA"},
		FieldFuelFolio:       {"NUM FOLIO"},
		FieldOdometer:        {"ODOMETRO", "ODÓMETRO", " ODOMETRO", "ODOMETRO "},
		FieldAmount:          {" IMPORTE ", "IMPORTE", "  IMPORTE  "},
		FieldFuel:            {"COMBUSTIBLE"},
		FieldDriver:          {"CHOFER"},
		FieldRoute:           {"RECORRIDO"},
		FieldNote:            {"OBSERVACION"},
		FieldFiscalFolio:     {"FOLIO FISCAL"},
	}
}

// Merge returns a copy of a with extra aliases applied. Keys of extra are
// field names (see Fields). With replace set, the extra list replaces the
// default one; otherwise it is appended after it. Duplicates are dropped.
func (a Aliases) Merge(extra map[string][]string, replace bool) (Aliases, error) {
	out := make(Aliases, len(a))
	for f, list := range a {
		out[f] = dedupe(list)
	}

	for name, list := range extra {
		f, ok := lookupField(name)
		if !ok {
			return nil, fmt.Errorf("unknown field %q in aliases", name)
		}
		if replace {
			out[f] = dedupe(list)
			continue
		}
		out[f] = dedupe(append(append([]string{}, out[f]...), list...))
	}

	return out, nil
}

func lookupField(name string) (Field, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, f := range Fields {
		if string(f) == name {
			return f, true
		}
	}
	return "", false
}

func dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, s := range list {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// FoldHeader reduces a header to a comparison form: accents stripped, upper
// case, surrounding whitespace trimmed and inner runs collapsed to one space.
// "  Odómetro " and "ODOMETRO" fold to the same value.
func FoldHeader(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToUpper(strings.Join(strings.Fields(folded), " "))
}
