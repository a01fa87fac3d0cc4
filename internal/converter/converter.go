// =============================================================================
// Pega Tickets - Converter Module
// =============================================================================
//
// This module contains the generation pipeline. It turns one fuel ticket
// spreadsheet into one merged PDF of ticket sheets.
//
// GENERATION PIPELINE:
//   1. Read the spreadsheet (XLSX or CSV) into a types.Sheet
//   2. Normalize every row into a TicketRecord
//   3. Inspect the records and log data-quality findings
//   4. Group the records by group key, in first-seen order
//   5. Lay out and render one PDF per group
//   6. Merge the per-group PDFs, in group order
//   7. Hand the merged PDF to the output sink
//
// FAILURE HANDLING:
//   A failure in steps 1, 5 or 6 aborts the run before anything is delivered.
//   Rows with missing data never fail; they print with empty boxes.
//
// CONCURRENCY:
//   Groups are rendered one at a time by default. With MaxConcurrency > 1 they
//   are rendered by a bounded pool; the merged document keeps group order
//   either way.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/pega-tickets/internal/assets"
	"github.com/ginjaninja78/pega-tickets/internal/config"
	"github.com/ginjaninja78/pega-tickets/internal/csvparser"
	"github.com/ginjaninja78/pega-tickets/internal/grouper"
	"github.com/ginjaninja78/pega-tickets/internal/layout"
	"github.com/ginjaninja78/pega-tickets/internal/merger"
	"github.com/ginjaninja78/pega-tickets/internal/normalizer"
	"github.com/ginjaninja78/pega-tickets/internal/render"
	"github.com/ginjaninja78/pega-tickets/internal/types"
	"github.com/ginjaninja78/pega-tickets/internal/validation"
	"github.com/ginjaninja78/pega-tickets/internal/xlsxparser"
	"github.com/ginjaninja78/pega-tickets/pkg/utils"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInput means the spreadsheet could not be read.
	ErrInput = errors.New("cannot read input")

	// ErrNoGroups means no row carries a group key, so there is nothing to
	// print.
	ErrNoGroups = errors.New("no ticket groups found")

	// ErrRender is returned when a group cannot be drawn.
	ErrRender = render.ErrRender

	// ErrMerge is returned when the per-group documents cannot be combined.
	ErrMerge = merger.ErrMerge

	// ErrDeliver is returned when the output sink fails.
	ErrDeliver = errors.New("cannot deliver output")
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Status is the final state of a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Result represents the outcome of processing one input file.
type Result struct {
	// InputFile is the path of the spreadsheet, if it came from a file.
	InputFile string

	// OutputFile is where the PDF was delivered. Empty unless Status is
	// StatusSucceeded.
	OutputFile string

	Status Status

	// Err is set when Status is StatusFailed.
	Err error

	Stats ProcessingStats

	// Report holds the data-quality findings. Nil if the input was not read.
	Report *validation.Report
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsRead is the number of non-blank data rows in the sheet.
	RowsRead int

	// RowsSkipped is the number of rows left out for lack of a group key.
	RowsSkipped int

	// Groups is the number of ticket sheets generated.
	Groups int

	// Pages is the page count of the merged PDF.
	Pages int

	// Bytes is the size of the merged PDF.
	Bytes int

	ProcessingTime time.Duration
}

// ProgressFunc is called once per group, before the group is rendered.
// current counts from 1.
type ProgressFunc func(current, total int, key string)

// =============================================================================
// OPTIONS
// =============================================================================

// Options controls a Converter.
type Options struct {
	// TicketsPerPage is clamped to 1..3.
	TicketsPerPage int

	// MaxConcurrency is the number of groups rendered at once. Values below
	// 2 render sequentially.
	MaxConcurrency int

	// Aliases maps columns to fields. Nil means normalizer.DefaultAliases.
	Aliases normalizer.Aliases

	// Sheet selects the worksheet of XLSX inputs.
	Sheet xlsxparser.Options

	// CSV configures CSV inputs.
	CSV config.CSVSettings

	// BaseName overrides the output base name derived from the input path.
	BaseName string

	Images   assets.Set
	Compress bool

	// Now stamps output names and document dates. Nil means time.Now.
	Now func() time.Time

	// Progress, when set, is told about every group.
	Progress ProgressFunc

	Logger zerolog.Logger
}

// OptionsFromConfig builds Options from the application configuration and
// loads the configured images.
func OptionsFromConfig(cfg *config.MainConfig, logger zerolog.Logger) (Options, error) {
	aliases, err := cfg.FieldAliases()
	if err != nil {
		return Options{}, err
	}

	images, err := assets.LoadSet(cfg.Assets.Logo, cfg.Assets.Watermark)
	if err != nil {
		return Options{}, fmt.Errorf("failed to load images: %w", err)
	}

	return Options{
		TicketsPerPage: cfg.TicketsPerPage,
		MaxConcurrency: cfg.MaxConcurrency,
		Aliases:        aliases,
		Sheet:          xlsxparser.Options{SheetName: cfg.SheetName, HeaderRow: cfg.HeaderRow},
		CSV:            cfg.CSVSettings,
		BaseName:       cfg.OutputBaseName,
		Images:         images,
		Compress:       !cfg.DisableCompression,
		Logger:         logger,
	}, nil
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter runs the generation pipeline. A Converter may run several inputs,
// one after the other or concurrently.
type Converter struct {
	opts Options
	sink utils.Sink
}

// New creates a Converter delivering to sink.
func New(opts Options, sink utils.Sink) *Converter {
	opts.TicketsPerPage = layout.ClampPerPage(opts.TicketsPerPage)
	if opts.Aliases == nil {
		opts.Aliases = normalizer.DefaultAliases()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Converter{opts: opts, sink: sink}
}

// Plan is the outcome of reading and grouping, before anything is drawn.
type Plan struct {
	Sheet    *types.Sheet
	Records  []types.TicketRecord
	Groups   []types.Group
	Resolver *normalizer.Resolver
	Report   *validation.Report
}

// =============================================================================
// MAIN PROCESSING FUNCTIONS
// =============================================================================

// Run executes the whole pipeline for one input file.
func (c *Converter) Run(ctx context.Context, inputPath string) Result {
	start := time.Now()
	logger := c.runLogger(inputPath)

	sheet, err := c.Load(inputPath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to read input")
		return Result{InputFile: inputPath, Status: StatusFailed, Err: err, Stats: ProcessingStats{ProcessingTime: time.Since(start)}}
	}

	base := c.opts.BaseName
	if base == "" {
		base = utils.OutputBaseName(inputPath)
	}

	result := c.run(ctx, logger, sheet, base)
	result.InputFile = inputPath
	result.Stats.ProcessingTime = time.Since(start)
	return result
}

// RunSheet executes the pipeline for a sheet that was already read. base is
// the output base name; empty means utils.DefaultBaseName.
func (c *Converter) RunSheet(ctx context.Context, sheet *types.Sheet, base string) Result {
	start := time.Now()
	result := c.run(ctx, c.runLogger(sheet.Name), sheet, base)
	result.Stats.ProcessingTime = time.Since(start)
	return result
}

func (c *Converter) runLogger(input string) zerolog.Logger {
	return c.opts.Logger.With().
		Str("run_id", uuid.New().String()).
		Str("input", input).
		Logger()
}

func (c *Converter) run(ctx context.Context, logger zerolog.Logger, sheet *types.Sheet, base string) Result {
	// =========================================================================
	// STEP 1: NORMALIZE, INSPECT AND GROUP
	// =========================================================================

	plan := c.Prepare(sheet)
	result := Result{
		Report: plan.Report,
		Stats: ProcessingStats{
			RowsRead:    len(plan.Records),
			RowsSkipped: plan.Report.Skipped,
			Groups:      len(plan.Groups),
		},
	}

	logger.Debug().
		Int("rows", len(plan.Records)).
		Int("groups", len(plan.Groups)).
		Strs("unmapped_columns", plan.Resolver.Unmapped()).
		Msg("sheet normalized")

	for _, issue := range plan.Report.Warnings() {
		logger.Warn().
			Str("rule", issue.Rule).
			Int("row", issue.RowNumber).
			Str("group", issue.GroupKey).
			Msg(issue.Message)
	}

	if len(plan.Groups) == 0 {
		result.Status = StatusFailed
		result.Err = fmt.Errorf("%w: %d rows read, none with a group key", ErrNoGroups, len(plan.Records))
		logger.Error().Err(result.Err).Msg("nothing to generate")
		return result
	}

	// =========================================================================
	// STEP 2: RENDER AND MERGE
	// =========================================================================

	now := c.opts.Now()
	doc, pages, err := c.Generate(ctx, plan.Groups, base, now)
	if err != nil {
		if isCancellation(err) {
			logger.Info().Msg("generation cancelled")
			result.Status = StatusCancelled
			return result
		}
		logger.Error().Err(err).Msg("generation failed")
		result.Status = StatusFailed
		result.Err = err
		return result
	}
	result.Stats.Pages = pages
	result.Stats.Bytes = len(doc)

	// =========================================================================
	// STEP 3: DELIVER
	// =========================================================================

	delivery, err := c.sink.Deliver(ctx, doc, utils.GenerateOutputFileName(base, now))
	if err != nil {
		result.Status = StatusFailed
		result.Err = fmt.Errorf("%w: %v", ErrDeliver, err)
		logger.Error().Err(err).Msg("delivery failed")
		return result
	}
	if delivery.Outcome == utils.Cancelled {
		logger.Info().Msg("delivery cancelled")
		result.Status = StatusCancelled
		return result
	}

	result.Status = StatusSucceeded
	result.OutputFile = delivery.Location
	logger.Info().
		Str("output", delivery.Location).
		Int("groups", len(plan.Groups)).
		Int("pages", pages).
		Int("bytes", delivery.Bytes).
		Msg("ticket sheets generated")

	return result
}

// Load reads a spreadsheet. Files ending in .csv are read as CSV, anything
// else as an XLSX workbook.
func (c *Converter) Load(inputPath string) (*types.Sheet, error) {
	var (
		sheet *types.Sheet
		err   error
	)
	if strings.EqualFold(filepath.Ext(inputPath), ".csv") {
		sheet, err = csvparser.ParseFile(inputPath, c.opts.CSV)
	} else {
		sheet, err = xlsxparser.ReadFile(inputPath, c.opts.Sheet)
	}
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrInput, inputPath, err)
	}
	return sheet, nil
}

// Prepare normalizes, inspects and groups a sheet. It never fails.
func (c *Converter) Prepare(sheet *types.Sheet) *Plan {
	records, resolver := normalizer.NormalizeSheet(sheet, c.opts.Aliases)
	return &Plan{
		Sheet:    sheet,
		Records:  records,
		Groups:   grouper.Group(records),
		Resolver: resolver,
		Report:   validation.Inspect(records, resolver),
	}
}

// Generate renders every group and merges the documents in group order. It
// returns the merged PDF and its page count.
func (c *Converter) Generate(ctx context.Context, groups []types.Group, title string, now time.Time) ([]byte, int, error) {
	if len(groups) == 0 {
		return nil, 0, ErrNoGroups
	}

	renderer := render.New(c.opts.Images, render.Options{
		Compress:  c.opts.Compress,
		CreatedAt: now,
		Title:     title,
	})

	docs, pages, err := c.renderGroups(ctx, renderer, groups)
	if err != nil {
		return nil, 0, err
	}

	merged, err := merger.Merge(ctx, docs)
	if err != nil {
		return nil, 0, err
	}

	got, err := merger.PageCount(merged)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMerge, err)
	}
	if got != pages {
		return nil, 0, fmt.Errorf("%w: merged document has %d pages, expected %d", ErrMerge, got, pages)
	}

	return merged, pages, nil
}

// renderGroups renders one document per group. docs[i] belongs to groups[i].
func (c *Converter) renderGroups(ctx context.Context, renderer *render.Renderer, groups []types.Group) ([][]byte, int, error) {
	docs := make([][]byte, len(groups))
	counts := make([]int, len(groups))
	total := len(groups)

	if c.opts.MaxConcurrency < 2 {
		for i, g := range groups {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
			c.progress(i+1, total, g.Key)

			doc, n, err := renderer.RenderGroup(ctx, g, c.opts.TicketsPerPage)
			if err != nil {
				return nil, 0, err
			}
			docs[i], counts[i] = doc, n
			c.opts.Logger.Debug().Str("group", g.Key).Int("records", len(g.Records)).Int("pages", n).Msg("group rendered")
		}
		return docs, sum(counts), nil
	}

	var (
		mu      sync.Mutex
		started int
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.opts.MaxConcurrency)

	for i, g := range groups {
		if egCtx.Err() != nil {
			break
		}
		i, g := i, g
		eg.Go(func() error {
			mu.Lock()
			started++
			c.progress(started, total, g.Key)
			mu.Unlock()

			doc, n, err := renderer.RenderGroup(egCtx, g, c.opts.TicketsPerPage)
			if err != nil {
				return err
			}
			docs[i], counts[i] = doc, n
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, 0, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	return docs, sum(counts), nil
}

func (c *Converter) progress(current, total int, key string) {
	if c.opts.Progress != nil {
		c.opts.Progress(current, total, key)
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
