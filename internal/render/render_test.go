package render

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/pega-tickets/internal/assets"
	"github.com/ginjaninja78/pega-tickets/internal/layout"
	"github.com/ginjaninja78/pega-tickets/internal/merger"
	"github.com/ginjaninja78/pega-tickets/internal/types"
)

var fixedTime = time.Date(2025, time.March, 13, 10, 0, 0, 0, time.UTC)

func testImages() assets.Set {
	return assets.Set{
		Logo:      assets.Placeholder("logo", 300, 100, color.Gray{Y: 90}),
		Watermark: assets.Placeholder("watermark", 200, 400, color.Gray{Y: 200}),
	}
}

func group(key string, n int) types.Group {
	g := types.Group{Key: key}
	for i := 0; i < n; i++ {
		g.Records = append(g.Records, types.TicketRecord{
			GroupKey:  key,
			Folio:     "F-1",
			Plate:     "ABC-123",
			FuelFolio: fmt.Sprint(500 + i),
			Odometer:  "1000",
			Amount:    "1234.5",
			Date:      "13/03/2025",
		})
	}
	return g
}

func TestRenderGroupPageCount(t *testing.T) {
	r := New(testImages(), Options{Compress: true, CreatedAt: fixedTime})

	for _, tc := range []struct{ records, perPage, pages int }{
		{1, 1, 1},
		{2, 2, 1},
		{5, 2, 3},
		{7, 3, 3},
	} {
		doc, pages, err := r.RenderGroup(context.Background(), group("1", tc.records), tc.perPage)
		require.NoError(t, err)
		assert.Equal(t, tc.pages, pages)
		assert.True(t, bytes.HasPrefix(doc, []byte("%PDF-")))

		n, err := merger.PageCount(doc)
		require.NoError(t, err)
		assert.Equal(t, tc.pages, n)
	}
}

func TestRenderDrawsText(t *testing.T) {
	r := New(assets.Set{}, Options{CreatedAt: fixedTime})

	doc, _, err := r.RenderGroup(context.Background(), group("GRP-77", 2), 2)
	require.NoError(t, err)

	for _, want := range []string{"(GRP-77) Tj", "(FACTURA) Tj", "(ABC-123) Tj", "($1,234.50) Tj", "(13/03/2025) Tj"} {
		assert.Contains(t, string(doc), want)
	}
	// cp1252 encoded accent
	assert.Contains(t, string(doc), "(OD\xd3METRO:) Tj")
}

func TestRenderIsReproducible(t *testing.T) {
	r := New(testImages(), Options{Compress: true, CreatedAt: fixedTime, Title: "tickets"})
	g := group("3", 4)

	a, _, err := r.RenderGroup(context.Background(), g, 3)
	require.NoError(t, err)
	b, _, err := r.RenderGroup(context.Background(), g, 3)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestTextWidthMatchesFontMetrics(t *testing.T) {
	r := New(assets.Set{}, Options{})

	regular := r.TextWidth(layout.Regular, 9, "FOLIO: ")
	bold := r.TextWidth(layout.Bold, 9, "FOLIO: ")
	assert.Greater(t, regular, 0.0)
	assert.Greater(t, bold, regular)

	// Helvetica-Bold "O" is 778/1000 em
	assert.InDelta(t, 7.002, r.TextWidth(layout.Bold, 9, "O"), 1e-6)
	assert.Greater(t, r.TextWidth(layout.Bold, 9, "ODÓMETRO: "), r.TextWidth(layout.Bold, 9, "DÍA: "))
}

func TestValuesStartAfterLabels(t *testing.T) {
	r := New(testImages(), Options{})
	pages := r.Layout(group("1", 1), 1)
	require.Len(t, pages, 1)

	for _, line := range pages[0].Columns[0].Lines {
		gap := r.TextWidth(layout.Bold, layout.FontSize, line.Label.Value+" ")
		assert.InDelta(t, line.Label.X+gap, line.Value.X, 1e-9)
	}
}

func TestRenderErrors(t *testing.T) {
	r := New(assets.Set{}, Options{})

	_, err := r.Render(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrRender)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = r.RenderGroup(ctx, group("1", 1), 1)
	assert.ErrorIs(t, err, context.Canceled)
}
