// =============================================================================
// Pega Tickets - Page Layout Engine
// =============================================================================
//
// The layout engine turns one group of ticket records into a list of page
// descriptions. It does not draw; the render package walks the Page values
// and issues the PDF calls. Keeping geometry here makes it testable without a
// PDF in the loop.
//
// PAGE STRUCTURE (A4, points, origin top-left):
//
//   +--------------------------------------------------+
//   | [logo]                                           |
//   | FACTURA | CIV | PLACA | SERIE | MARCA | MODELO   |  <- label row
//   |  value  | ... |  ...  |  ...  |  ...  |  ...     |  <- value row
//   | +--------------+--------------+--------------+   |
//   | |              |              |              |   |
//   | |   ticket 1   |   ticket 2   |   ticket 3   |   |
//   | |              |              |              |   |
//   | |+------------+|+------------+|+------------+|   |
//   | ||CONSUMO: ...|||CONSUMO: ...|||CONSUMO: ...||   |  <- info boxes
//   | |+------------+|+------------+|+------------+|   |
//   | +--------------+--------------+--------------+   |
//   |                                          <key>   |
//   +--------------------------------------------------+
//
// The header table always shows the FIRST record of the group, on every page.
//
// =============================================================================

package layout

import (
	"github.com/ginjaninja78/pega-tickets/internal/types"
)

// =============================================================================
// GEOMETRY
// =============================================================================

const (
	PageWidth  = 595.28
	PageHeight = 841.89

	MarginX      = 25.0
	MarginTop    = 40.0
	MarginBottom = 30.0

	FontSize = 9.0

	LogoWidth = 150.0
	logoGap   = 10.0

	watermarkWidthRatio  = 0.7
	watermarkCenterRatio = 0.63
	WatermarkOpacity     = 0.08

	headerRowHeight = 18.0
	headerTextInset = 4.0
	headerGap       = 8.0
	headerLineWidth = 0.5

	infoBoxHeight = 55.0
	infoTextInset = 6.0
	infoFirstLine = 8.0
	infoLinePitch = 11.0
	bodyLineWidth = 0.5
	footerInsetX  = 10.0

	imageLogo      = "logo"
	imageWatermark = "watermark"
)

// Supported tickets per page.
const (
	MinTicketsPage = 1
	MaxTicketsPage = 3
	DefaultPerPage = 2
)

// PrintableWidth is the width between the side margins.
const PrintableWidth = PageWidth - 2*MarginX

// HeaderColumns are the six identification columns of the header table.
var HeaderColumns = []struct {
	Label  string
	Weight float64
}{
	{"FACTURA", 0.17},
	{"CIV", 0.12},
	{"PLACA", 0.12},
	{"SERIE", 0.28},
	{"MARCA", 0.19},
	{"MODELO", 0.12},
}

var (
	colorWhite       = Color{255, 255, 255}
	colorBlack       = Color{0, 0, 0}
	colorHeaderFill  = Color{130, 130, 128}
	colorHeaderLine  = Color{179, 179, 179}
	colorColumnLine  = Color{204, 204, 204}
	colorInfoBoxLine = Color{102, 102, 102}
)

// =============================================================================
// PAGE DESCRIPTION TYPES
// =============================================================================

// Color is an RGB color.
type Color struct {
	R, G, B uint8
}

// FontStyle selects the regular or bold face of the body font.
type FontStyle int

const (
	Regular FontStyle = iota
	Bold
)

// Measurer reports the rendered width of a string, in points.
type Measurer interface {
	TextWidth(style FontStyle, size float64, s string) float64
}

// Rect is a rectangle with an optional fill and a border.
type Rect struct {
	X, Y, W, H float64

	Filled    bool
	Fill      Color
	Border    Color
	LineWidth float64
}

// Text is a single line of text. Y is the baseline.
type Text struct {
	X, Y  float64
	Value string
	Style FontStyle
	Size  float64
	Color Color
}

// ImageInfo names an image and gives its native size in pixels.
type ImageInfo struct {
	Name          string
	Width, Height int
}

// ImagePlacement positions an image on a page.
type ImagePlacement struct {
	Name       string
	X, Y, W, H float64
	Opacity    float64
}

// HeaderCell is one column of the header table.
type HeaderCell struct {
	LabelBox Rect
	Label    Text
	ValueBox Rect
	Value    Text
	Weight   float64
}

// InfoLine is one label/value pair inside an info box.
type InfoLine struct {
	Label Text
	Value Text
}

// Column is the body area of one ticket.
type Column struct {
	Record  types.TicketRecord
	Outer   Rect
	InfoBox Rect
	Lines   []InfoLine
}

// Page describes everything drawn on one page.
type Page struct {
	Width, Height float64

	// GroupKey is the key of the group the page belongs to.
	GroupKey string

	// Index is the 0-based position of the page within its group.
	Index int

	Images  []ImagePlacement
	Header  []HeaderCell
	Columns []Column
	Footer  Text
}

// =============================================================================
// CHUNKING
// =============================================================================

// ClampPerPage forces n into the supported 1..3 range.
func ClampPerPage(n int) int {
	if n < MinTicketsPage {
		return MinTicketsPage
	}
	if n > MaxTicketsPage {
		return MaxTicketsPage
	}
	return n
}

// Chunk splits records into consecutive runs of size perPage; the last run may
// be shorter. Concatenating the chunks gives back records unchanged.
func Chunk(records []types.TicketRecord, perPage int) [][]types.TicketRecord {
	perPage = ClampPerPage(perPage)

	var chunks [][]types.TicketRecord
	for i := 0; i < len(records); i += perPage {
		end := i + perPage
		if end > len(records) {
			end = len(records)
		}
		chunks = append(chunks, records[i:end])
	}
	return chunks
}

// =============================================================================
// BUILD
// =============================================================================

// Build lays out every page of a group. logo and watermark may have a zero
// size, in which case they are left off the page.
func Build(group types.Group, perPage int, m Measurer, logo, watermark ImageInfo) []Page {
	chunks := Chunk(group.Records, perPage)
	if len(chunks) == 0 {
		return nil
	}

	first, _ := group.First()
	images, logoHeight := placeImages(logo, watermark)
	headerTop := MarginTop + logoHeight + logoGap
	header := headerTable(first, headerTop)
	bodyTop := headerTop + 2*headerRowHeight + headerGap

	pages := make([]Page, 0, len(chunks))
	for i, chunk := range chunks {
		pages = append(pages, Page{
			Width:    PageWidth,
			Height:   PageHeight,
			GroupKey: group.Key,
			Index:    i,
			Images:   images,
			Header:   header,
			Columns:  bodyColumns(chunk, bodyTop, m),
			Footer: Text{
				X:     PageWidth - MarginX - footerInsetX,
				Y:     PageHeight - MarginBottom/2,
				Value: group.Key,
				Style: Bold,
				Size:  FontSize,
				Color: colorBlack,
			},
		})
	}
	return pages
}

// placeImages returns the watermark copies and the logo, plus the logo height.
func placeImages(logo, watermark ImageInfo) ([]ImagePlacement, float64) {
	var out []ImagePlacement

	if watermark.Width > 0 && watermark.Height > 0 {
		w := PageWidth * watermarkWidthRatio
		h := w / float64(watermark.Width) * float64(watermark.Height)
		x := PageWidth*watermarkCenterRatio - w/2
		// two copies stacked up from the bottom edge
		for i := 1; i <= 2; i++ {
			out = append(out, ImagePlacement{
				Name:    nameOr(watermark.Name, imageWatermark),
				X:       x,
				Y:       PageHeight - float64(i)*h,
				W:       w,
				H:       h,
				Opacity: WatermarkOpacity,
			})
		}
	}

	var logoHeight float64
	if logo.Width > 0 && logo.Height > 0 {
		logoHeight = LogoWidth / float64(logo.Width) * float64(logo.Height)
		out = append(out, ImagePlacement{
			Name:    nameOr(logo.Name, imageLogo),
			X:       MarginX,
			Y:       MarginTop,
			W:       LogoWidth,
			H:       logoHeight,
			Opacity: 1,
		})
	}

	return out, logoHeight
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

// HeaderValues returns the six header values of a record, in column order.
func HeaderValues(r types.TicketRecord) []string {
	return []string{r.Folio, r.CIV, r.Plate, r.SerialNumber, r.Brand, r.Model}
}

func headerTable(first types.TicketRecord, top float64) []HeaderCell {
	values := HeaderValues(first)
	cells := make([]HeaderCell, len(HeaderColumns))

	x := MarginX
	for i, col := range HeaderColumns {
		w := PrintableWidth * col.Weight
		valueTop := top + headerRowHeight

		cells[i] = HeaderCell{
			Weight: col.Weight,
			LabelBox: Rect{
				X: x, Y: top, W: w, H: headerRowHeight,
				Filled: true, Fill: colorHeaderFill,
				Border: colorHeaderLine, LineWidth: headerLineWidth,
			},
			Label: Text{
				X: x + headerTextInset, Y: valueTop - headerTextInset,
				Value: col.Label, Style: Bold, Size: FontSize, Color: colorWhite,
			},
			ValueBox: Rect{
				X: x, Y: valueTop, W: w, H: headerRowHeight,
				Border: colorHeaderLine, LineWidth: headerLineWidth,
			},
			Value: Text{
				X: x + headerTextInset, Y: valueTop + headerRowHeight - headerTextInset,
				Value: values[i], Style: Regular, Size: FontSize, Color: colorBlack,
			},
		}
		x += w
	}
	return cells
}

// InfoPairs returns the label/value pairs of a ticket's info box, top to
// bottom.
func InfoPairs(r types.TicketRecord) [][2]string {
	return [][2]string{
		{"CONSUMO:", FormatCurrency(r.Amount)},
		{"ODÓMETRO:", r.Odometer},
		{"FOLIO:", r.FuelFolio},
		{"DÍA:", r.Date},
	}
}

func bodyColumns(chunk []types.TicketRecord, top float64, m Measurer) []Column {
	bottom := PageHeight - MarginBottom
	w := PrintableWidth / float64(len(chunk))

	cols := make([]Column, len(chunk))
	for i, r := range chunk {
		x := MarginX + w*float64(i)
		pairs := InfoPairs(r)

		lines := make([]InfoLine, len(pairs))
		for j, p := range pairs {
			baseline := bottom - infoFirstLine - infoLinePitch*float64(len(pairs)-1-j)
			labelX := x + infoTextInset
			lines[j] = InfoLine{
				Label: Text{X: labelX, Y: baseline, Value: p[0], Style: Bold, Size: FontSize, Color: colorBlack},
				Value: Text{
					X:     labelX + m.TextWidth(Bold, FontSize, p[0]+" "),
					Y:     baseline,
					Value: p[1], Style: Regular, Size: FontSize, Color: colorBlack,
				},
			}
		}

		cols[i] = Column{
			Record: r,
			Outer: Rect{
				X: x, Y: top, W: w, H: bottom - top,
				Border: colorColumnLine, LineWidth: bodyLineWidth,
			},
			InfoBox: Rect{
				X: x, Y: bottom - infoBoxHeight, W: w, H: infoBoxHeight,
				Border: colorInfoBoxLine, LineWidth: bodyLineWidth,
			},
			Lines: lines,
		}
	}
	return cols
}
