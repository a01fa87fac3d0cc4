// =============================================================================
// Pega Tickets - Output Delivery
// =============================================================================
//
// This module delivers the finished PDF. The converter hands the bytes and a
// suggested file name to a Sink; the sink decides where they end up:
//   - FileSink writes into an output directory (or to one explicit path)
//   - WriterSink streams to an io.Writer, such as stdout
//
// WRITE STRATEGY:
//   FileSink writes to a uniquely named temporary file next to the target and
//   renames it into place, so a reader never sees a half-written PDF and a
//   failed run leaves nothing behind.
//
// NAMING:
//   {base}_{timestamp}.pdf, where timestamp is the UTC instant in ISO-8601 with
//   ':', '.' and '-' removed: pega_tickets_20250313T102030123Z.pdf
//
// =============================================================================

package utils

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultBaseName names the output when the input gives no usable name.
const DefaultBaseName = "pega_tickets"

// timestampLayout is ISO-8601 with milliseconds, before separators are removed.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// =============================================================================
// FILE NAMING
// =============================================================================

// OutputBaseName derives the output base name from an input file path: the
// file name up to its first '.'. It falls back to DefaultBaseName.
func OutputBaseName(inputPath string) string {
	name := filepath.Base(inputPath)
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSpace(name)
	if name == "" || name == string(filepath.Separator) {
		return DefaultBaseName
	}
	return name
}

// GenerateOutputFileName builds {base}_{timestamp}.pdf for the instant now.
func GenerateOutputFileName(base string, now time.Time) string {
	if strings.TrimSpace(base) == "" {
		base = DefaultBaseName
	}
	stamp := strings.NewReplacer(":", "", ".", "", "-", "").Replace(now.UTC().Format(timestampLayout))
	return fmt.Sprintf("%s_%s.pdf", base, stamp)
}

// =============================================================================
// SINKS
// =============================================================================

// Outcome tells what happened to a delivery.
type Outcome string

const (
	Delivered Outcome = "delivered"
	Cancelled Outcome = "cancelled"
)

// Delivery describes a finished delivery.
type Delivery struct {
	Outcome Outcome

	// Location is the written path, or a description of the writer.
	Location string

	// Bytes is the number of bytes written.
	Bytes int
}

// Sink receives the merged document.
type Sink interface {
	// Deliver writes data. A context cancelled before the data is committed
	// yields a Cancelled outcome and no error.
	Deliver(ctx context.Context, data []byte, suggestedName string) (Delivery, error)
}

// FileSink writes documents to disk.
type FileSink struct {
	// Dir receives suggestedName. It is created when missing.
	Dir string

	// Path, when set, is used instead of Dir/suggestedName.
	Path string
}

// Target returns the path a document with the given name is written to.
func (s FileSink) Target(suggestedName string) string {
	if s.Path != "" {
		return s.Path
	}
	return filepath.Join(s.Dir, suggestedName)
}

// Deliver implements Sink.
func (s FileSink) Deliver(ctx context.Context, data []byte, suggestedName string) (Delivery, error) {
	if ctx.Err() != nil {
		return Delivery{Outcome: Cancelled}, nil
	}

	target := s.Target(suggestedName)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Delivery{}, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp := filepath.Join(dir, "."+uuid.New().String()+".tmp")
	if err := writeFile(tmp, data); err != nil {
		os.Remove(tmp)
		return Delivery{}, fmt.Errorf("failed to write %s: %w", target, err)
	}

	if ctx.Err() != nil {
		os.Remove(tmp)
		return Delivery{Outcome: Cancelled}, nil
	}

	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return Delivery{}, fmt.Errorf("failed to move output into place: %w", err)
	}

	return Delivery{Outcome: Delivered, Location: target, Bytes: len(data)}, nil
}

func writeFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriterSink streams documents to W.
type WriterSink struct {
	W io.Writer

	// Name describes W in the Delivery location, e.g. "stdout".
	Name string
}

// Deliver implements Sink. suggestedName is ignored.
func (s WriterSink) Deliver(ctx context.Context, data []byte, _ string) (Delivery, error) {
	if ctx.Err() != nil {
		return Delivery{Outcome: Cancelled}, nil
	}

	n, err := s.W.Write(data)
	if err != nil {
		return Delivery{}, fmt.Errorf("failed to write output: %w", err)
	}
	return Delivery{Outcome: Delivered, Location: s.Name, Bytes: n}, nil
}
