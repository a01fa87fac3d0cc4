// =============================================================================
// Pega Tickets - Document Renderer
// =============================================================================
//
// The renderer draws the pages produced by the layout engine into one PDF per
// group, using fpdf:
//   - fonts: the standard Helvetica family, regular and bold
//   - images: the logo and watermark, registered once per document
//   - text: translated to cp1252 so accented labels (ODÓMETRO, DÍA) survive
//
// The renderer is also the layout engine's Measurer, so positions computed
// from text widths match the glyphs that are actually drawn.
//
// =============================================================================

package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/ginjaninja78/pega-tickets/internal/assets"
	"github.com/ginjaninja78/pega-tickets/internal/layout"
	"github.com/ginjaninja78/pega-tickets/internal/types"
)

// ErrRender wraps every failure reported by the PDF library.
var ErrRender = errors.New("render failed")

const (
	fontFamily  = "Helvetica"
	producer    = "pega-tickets"
	alphaNormal = "Normal"
)

// Options controls document-level settings.
type Options struct {
	// Compress enables Flate compression of page streams.
	Compress bool

	// CreatedAt is stamped as creation and modification date. A fixed value
	// makes output bytes reproducible.
	CreatedAt time.Time

	// Title is written to the document information dictionary.
	Title string
}

// Renderer turns layout pages into PDF bytes.
type Renderer struct {
	opts   Options
	images assets.Set

	// measure is a page-less document used only for string widths. fpdf is
	// not safe for concurrent use, hence the lock.
	mu        sync.Mutex
	measure   *fpdf.Fpdf
	translate func(string) string
}

// New returns a Renderer that stamps the given images on every page.
func New(images assets.Set, opts Options) *Renderer {
	m := newDocument()
	return &Renderer{
		opts:      opts,
		images:    images,
		measure:   m,
		translate: m.UnicodeTranslatorFromDescriptor(""),
	}
}

func newDocument() *fpdf.Fpdf {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: layout.PageWidth, Ht: layout.PageHeight},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	return pdf
}

func fontStyle(s layout.FontStyle) string {
	if s == layout.Bold {
		return "B"
	}
	return ""
}

// TextWidth implements layout.Measurer.
func (r *Renderer) TextWidth(style layout.FontStyle, size float64, s string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.measure.SetFont(fontFamily, fontStyle(style), size)
	return r.measure.GetStringWidth(r.translate(s))
}

// Layout lays out a group with this renderer's fonts and images.
func (r *Renderer) Layout(group types.Group, perPage int) []layout.Page {
	return layout.Build(group, perPage, r, r.images.Logo.Info(), r.images.Watermark.Info())
}

// RenderGroup lays out and draws one group. It returns the PDF and its page
// count.
func (r *Renderer) RenderGroup(ctx context.Context, group types.Group, perPage int) ([]byte, int, error) {
	pages := r.Layout(group, perPage)
	doc, err := r.Render(ctx, group.Key, pages)
	if err != nil {
		return nil, 0, err
	}
	return doc, len(pages), nil
}

// Render draws pages into a new PDF document.
func (r *Renderer) Render(ctx context.Context, key string, pages []layout.Page) ([]byte, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: group %s has no pages", ErrRender, key)
	}

	pdf := newDocument()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetCompression(r.opts.Compress)
	pdf.SetCatalogSort(true)
	pdf.SetProducer(producer, false)
	pdf.SetCreator(producer, false)
	if r.opts.Title != "" {
		pdf.SetTitle(r.opts.Title, true)
	}
	pdf.SetSubject(key, true)
	if !r.opts.CreatedAt.IsZero() {
		pdf.SetCreationDate(r.opts.CreatedAt)
		pdf.SetModificationDate(r.opts.CreatedAt)
	}

	registerImage(pdf, r.images.Logo)
	registerImage(pdf, r.images.Watermark)

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		drawPage(pdf, tr, page)
		if pdf.Err() {
			break
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("%w: group %s: %v", ErrRender, key, err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: group %s: %v", ErrRender, key, err)
	}
	return buf.Bytes(), nil
}

func registerImage(pdf *fpdf.Fpdf, img assets.Image) {
	if img.Empty() {
		return
	}
	pdf.RegisterImageOptionsReader(img.Name, imageOptions, bytes.NewReader(img.PNG))
}

var imageOptions = fpdf.ImageOptions{ImageType: "PNG", AllowNegativePosition: true}

func drawPage(pdf *fpdf.Fpdf, tr func(string) string, page layout.Page) {
	pdf.AddPageFormat("P", fpdf.SizeType{Wd: page.Width, Ht: page.Height})

	for _, img := range page.Images {
		pdf.SetAlpha(img.Opacity, alphaNormal)
		pdf.ImageOptions(img.Name, img.X, img.Y, img.W, img.H, false, imageOptions, 0, "")
	}
	pdf.SetAlpha(1, alphaNormal)

	for _, cell := range page.Header {
		drawRect(pdf, cell.LabelBox)
		drawText(pdf, tr, cell.Label)
		drawRect(pdf, cell.ValueBox)
		drawText(pdf, tr, cell.Value)
	}

	for _, col := range page.Columns {
		drawRect(pdf, col.Outer)
		drawRect(pdf, col.InfoBox)
		for _, line := range col.Lines {
			drawText(pdf, tr, line.Label)
			drawText(pdf, tr, line.Value)
		}
	}

	drawText(pdf, tr, page.Footer)
}

func drawRect(pdf *fpdf.Fpdf, r layout.Rect) {
	pdf.SetLineWidth(r.LineWidth)
	pdf.SetDrawColor(int(r.Border.R), int(r.Border.G), int(r.Border.B))

	style := "D"
	if r.Filled {
		pdf.SetFillColor(int(r.Fill.R), int(r.Fill.G), int(r.Fill.B))
		style = "FD"
	}
	pdf.Rect(r.X, r.Y, r.W, r.H, style)
}

func drawText(pdf *fpdf.Fpdf, tr func(string) string, t layout.Text) {
	if t.Value == "" {
		return
	}
	pdf.SetFont(fontFamily, fontStyle(t.Style), t.Size)
	pdf.SetTextColor(int(t.Color.R), int(t.Color.G), int(t.Color.B))
	pdf.Text(t.X, t.Y, tr(t.Value))
}
