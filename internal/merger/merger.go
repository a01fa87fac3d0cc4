// =============================================================================
// Pega Tickets - Document Merger
// =============================================================================
//
// The merger concatenates the per-group PDFs into the final document. It is a
// pure structural step: every page of every input is appended, in order, with
// no re-layout and no deduplication.
//
//   out pages  = sum of input pages
//   page order = input 1 pages, then input 2 pages, ...
//
// =============================================================================

package merger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

var (
	// ErrNoDocuments is returned when there is nothing to merge.
	ErrNoDocuments = errors.New("no documents to merge")

	// ErrMerge wraps failures reported by the PDF library.
	ErrMerge = errors.New("merge failed")
)

func init() {
	// keep pdfcpu from writing its config file into the user's config dir
	api.DisableConfigDir()
}

func configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Merge appends all pages of docs, in order, into one PDF.
func Merge(ctx context.Context, docs [][]byte) ([]byte, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	readers := make([]io.ReadSeeker, len(docs))
	for i, d := range docs {
		readers[i] = bytes.NewReader(d)
	}

	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, configuration()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMerge, err)
	}
	return out.Bytes(), nil
}

// PageCount returns the number of pages in doc.
func PageCount(doc []byte) (int, error) {
	ctx, _, _, _, err := api.ReadValidateAndOptimize(bytes.NewReader(doc), configuration(), time.Now())
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	return ctx.PageCount, nil
}

// PageSizes returns the media box size of every page of doc, in order.
func PageSizes(doc []byte) ([]types.Dim, error) {
	ctx, _, _, _, err := api.ReadValidateAndOptimize(bytes.NewReader(doc), configuration(), time.Now())
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return ctx.PageDims()
}
