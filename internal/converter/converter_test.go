package converter

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/pega-tickets/internal/assets"
	"github.com/ginjaninja78/pega-tickets/internal/config"
	"github.com/ginjaninja78/pega-tickets/internal/merger"
	"github.com/ginjaninja78/pega-tickets/internal/render"
	"github.com/ginjaninja78/pega-tickets/internal/types"
	"github.com/ginjaninja78/pega-tickets/internal/validation"
	"github.com/ginjaninja78/pega-tickets/pkg/utils"
)

var fixedNow = time.Date(2025, time.March, 13, 10, 20, 30, 123_000_000, time.UTC)

func sheetWithKeys(keys ...interface{}) *types.Sheet {
	sheet := &types.Sheet{
		Name:    "Hoja1",
		Headers: []string{"N°", "FACTURA", "PLACA", " IMPORTE ", "FECHA", "FOLIO"},
	}
	for i, k := range keys {
		key := types.Cell{Kind: types.CellEmpty}
		switch v := k.(type) {
		case string:
			key = types.TextCell(v)
		case float64:
			key = types.NumberCell(v)
		}
		sheet.Rows = append(sheet.Rows, types.RawRow{
			"N°":        key,
			"FACTURA":   types.TextCell("F-1"),
			"PLACA":     types.TextCell("ABC-123"),
			" IMPORTE ": types.NumberCell(1234.5),
			"FECHA":     types.NumberCell(45729),
			"FOLIO":     types.NumberCell(float64(500 + i)),
		})
		sheet.RowNumbers = append(sheet.RowNumbers, i+2)
	}
	return sheet
}

type progressLog struct {
	mu    sync.Mutex
	calls [][3]interface{}
}

func (p *progressLog) record(current, total int, key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, [3]interface{}{current, total, key})
}

func newConverter(perPage, concurrency int, sink utils.Sink, progress ProgressFunc) *Converter {
	return New(Options{
		TicketsPerPage: perPage,
		MaxConcurrency: concurrency,
		Now:            func() time.Time { return fixedNow },
		Progress:       progress,
		Logger:         zerolog.Nop(),
	}, sink)
}

func TestRunSheetGroupsAndPages(t *testing.T) {
	var out bytes.Buffer
	progress := &progressLog{}
	c := newConverter(2, 1, utils.WriterSink{W: &out, Name: "buffer"}, progress.record)

	result := c.RunSheet(context.Background(), sheetWithKeys(1.0, 1.0, 2.0), "flota")

	require.NoError(t, result.Err)
	assert.Equal(t, StatusSucceeded, result.Status)
	assert.Equal(t, "buffer", result.OutputFile)
	assert.Equal(t, 3, result.Stats.RowsRead)
	assert.Equal(t, 2, result.Stats.Groups)
	assert.Equal(t, 2, result.Stats.Pages)
	assert.Equal(t, out.Len(), result.Stats.Bytes)

	pages, err := merger.PageCount(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2, pages)

	assert.Equal(t, [][3]interface{}{{1, 2, "1"}, {2, 2, "2"}}, progress.calls)
}

func TestRunSheetSkipsRowsWithoutKey(t *testing.T) {
	var out bytes.Buffer
	c := newConverter(1, 1, utils.WriterSink{W: &out}, nil)

	result := c.RunSheet(context.Background(), sheetWithKeys("A", nil, "  ", "A"), "")

	require.Equal(t, StatusSucceeded, result.Status)
	assert.Equal(t, 1, result.Stats.Groups)
	assert.Equal(t, 2, result.Stats.RowsSkipped)
	assert.Equal(t, 2, result.Stats.Pages)
	assert.Equal(t, 2, result.Report.CountByRule()[validation.RuleMissingKey])
}

func TestRunSheetNoGroups(t *testing.T) {
	var out bytes.Buffer
	c := newConverter(2, 1, utils.WriterSink{W: &out}, nil)

	result := c.RunSheet(context.Background(), sheetWithKeys(nil, ""), "")

	assert.Equal(t, StatusFailed, result.Status)
	assert.ErrorIs(t, result.Err, ErrNoGroups)
	assert.Zero(t, out.Len(), "nothing is delivered")
}

func TestRunSheetConcurrentMatchesSequential(t *testing.T) {
	keys := []interface{}{"1", "2", "1", "3", "4", "2", "5", "3", "6"}

	var seqOut, parOut bytes.Buffer
	seqProgress, parProgress := &progressLog{}, &progressLog{}

	seq := newConverter(2, 1, utils.WriterSink{W: &seqOut}, seqProgress.record).
		RunSheet(context.Background(), sheetWithKeys(keys...), "x")
	par := newConverter(2, 4, utils.WriterSink{W: &parOut}, parProgress.record).
		RunSheet(context.Background(), sheetWithKeys(keys...), "x")

	require.Equal(t, StatusSucceeded, seq.Status)
	require.Equal(t, StatusSucceeded, par.Status)
	assert.Equal(t, seq.Stats.Pages, par.Stats.Pages)
	assert.Equal(t, 6, par.Stats.Groups)

	require.Len(t, parProgress.calls, 6)
	for i, call := range parProgress.calls {
		assert.Equal(t, i+1, call[0], "progress counts up")
		assert.Equal(t, 6, call[1])
	}
}

func TestRunSheetCancelled(t *testing.T) {
	for _, concurrency := range []int{1, 3} {
		var out bytes.Buffer
		c := newConverter(2, concurrency, utils.WriterSink{W: &out}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result := c.RunSheet(ctx, sheetWithKeys("1", "2"), "")
		assert.Equal(t, StatusCancelled, result.Status, "concurrency %d", concurrency)
		assert.NoError(t, result.Err)
		assert.Zero(t, out.Len())
	}
}

type failingSink struct{}

func (failingSink) Deliver(context.Context, []byte, string) (utils.Delivery, error) {
	return utils.Delivery{}, errors.New("disk full")
}

type namingSink struct{ name string }

func (s *namingSink) Deliver(_ context.Context, data []byte, name string) (utils.Delivery, error) {
	s.name = name
	return utils.Delivery{Outcome: utils.Delivered, Location: name, Bytes: len(data)}, nil
}

func TestRunSheetDelivery(t *testing.T) {
	result := newConverter(2, 1, failingSink{}, nil).RunSheet(context.Background(), sheetWithKeys("1"), "")
	assert.Equal(t, StatusFailed, result.Status)
	assert.ErrorIs(t, result.Err, ErrDeliver)
	assert.Empty(t, result.OutputFile)

	sink := &namingSink{}
	result = newConverter(2, 1, sink, nil).RunSheet(context.Background(), sheetWithKeys("1"), "")
	require.Equal(t, StatusSucceeded, result.Status)
	assert.Equal(t, "pega_tickets_20250313T102030123Z.pdf", sink.name)
}

func TestRunSheetRenderFailureWritesNothing(t *testing.T) {
	broken := assets.Set{Logo: assets.Image{Name: "logo", PNG: []byte("not a png"), Width: 10, Height: 10}}

	for _, concurrency := range []int{1, 3} {
		outDir := t.TempDir()
		c := New(Options{
			TicketsPerPage: 2,
			MaxConcurrency: concurrency,
			Images:         broken,
			Now:            func() time.Time { return fixedNow },
			Logger:         zerolog.Nop(),
		}, utils.FileSink{Dir: outDir})

		result := c.RunSheet(context.Background(), sheetWithKeys("1", "2", "3"), "")
		assert.Equal(t, StatusFailed, result.Status, "concurrency %d", concurrency)
		assert.ErrorIs(t, result.Err, ErrRender)
		assert.NotErrorIs(t, result.Err, ErrMerge)
		assert.Empty(t, result.OutputFile)
		assert.Zero(t, result.Stats.Pages)

		entries, err := os.ReadDir(outDir)
		require.NoError(t, err)
		assert.Empty(t, entries, "no file and no temp file left behind")
	}
}

func TestRunFromWorkbook(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "cargas marzo.xlsx")

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"N°", "FACTURA", "PLACA", "IMPORTE", "FECHA", "FOLIO", "ODOMETRO"},
		{1, "F-1", "ABC-1", 1200, 45729, 10, 1000},
		{1, "F-1", "ABC-1", 800.5, 45730, 11, 1100},
		{2, "F-2", "XYZ-9", 50, 45731, 12, 2000},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(input))
	require.NoError(t, f.Close())

	outDir := filepath.Join(dir, "out")
	c := newConverter(2, 1, utils.FileSink{Dir: outDir}, nil)

	result := c.Run(context.Background(), input)
	require.NoError(t, result.Err)
	require.Equal(t, StatusSucceeded, result.Status)

	assert.Equal(t, filepath.Join(outDir, "cargas marzo_20250313T102030123Z.pdf"), result.OutputFile)
	data, err := os.ReadFile(result.OutputFile)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Equal(t, 2, result.Stats.Pages)
}

func TestRunInputErrors(t *testing.T) {
	dir := t.TempDir()
	c := newConverter(2, 1, utils.FileSink{Dir: dir}, nil)

	result := c.Run(context.Background(), filepath.Join(dir, "missing.xlsx"))
	assert.Equal(t, StatusFailed, result.Status)
	assert.ErrorIs(t, result.Err, ErrInput)
	assert.Nil(t, result.Report)

	csvPath := filepath.Join(dir, "tickets.CSV")
	require.NoError(t, os.WriteFile(csvPath, []byte("N°,FOLIO,IMPORTE\n7,1,100\n"), 0o644))

	c = New(Options{CSV: config.Default().CSVSettings, Now: func() time.Time { return fixedNow }}, utils.FileSink{Dir: dir})
	result = c.Run(context.Background(), csvPath)
	require.Equal(t, StatusSucceeded, result.Status)
	assert.True(t, strings.HasPrefix(filepath.Base(result.OutputFile), "tickets_"))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.TicketsPerPage = 3
	cfg.SheetName = "Cargas"
	cfg.Aliases = map[string][]string{"plate": {"MATRICULA"}}

	opts, err := OptionsFromConfig(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 3, opts.TicketsPerPage)
	assert.Equal(t, "Cargas", opts.Sheet.SheetName)
	assert.True(t, opts.Compress)
	assert.Contains(t, opts.Aliases["plate"], "MATRICULA")
	assert.False(t, opts.Images.Logo.Empty(), "bundled logo")

	cfg.Assets.Logo = assets.None
	opts, err = OptionsFromConfig(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, opts.Images.Logo.Empty())
	assert.False(t, opts.Images.Watermark.Empty())

	cfg.Assets.Logo = filepath.Join(t.TempDir(), "missing.png")
	_, err = OptionsFromConfig(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestRenderGroupsKeepsGroupOrder(t *testing.T) {
	for _, concurrency := range []int{1, 4} {
		c := New(Options{TicketsPerPage: 2, MaxConcurrency: concurrency, Logger: zerolog.Nop()}, nil)
		plan := c.Prepare(sheetWithKeys("1", "1", "2", "3", "3", "3"))
		require.Equal(t, []string{"1", "2", "3"}, []string{plan.Groups[0].Key, plan.Groups[1].Key, plan.Groups[2].Key})

		renderer := render.New(assets.Set{}, render.Options{CreatedAt: fixedNow})
		docs, pages, err := c.renderGroups(context.Background(), renderer, plan.Groups)
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, 4, pages)

		for i, key := range []string{"1", "2", "3"} {
			assert.Contains(t, string(docs[i]), "("+key+") Tj", "concurrency %d", concurrency)
		}

		again, _, err := c.renderGroups(context.Background(), renderer, plan.Groups)
		require.NoError(t, err)
		assert.Equal(t, docs, again, "rendering is reproducible")
	}
}
