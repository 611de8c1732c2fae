package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/pluginlinks/internal/model"
)

// Format names a report output format.
type Format string

const (
	// FormatText is the human-readable default.
	FormatText Format = "text"

	// FormatJSON is indented JSON.
	FormatJSON Format = "json"

	// FormatMarkdown is GitHub-flavored Markdown.
	FormatMarkdown Format = "markdown"
)

// ErrUnknownFormat is returned by ParseFormat and New for unsupported names.
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat converts a user supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "simple":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Writer defines the interface for report output.
type Writer interface {
	// WritePasses outputs the results of one or more enhancement passes.
	WritePasses(passes []*model.Pass) (int, error)

	// WriteRuns outputs stored run history.
	WriteRuns(runs []model.Run) (int, error)
}

// New returns the Writer for format writing to output.
func New(format Format, output io.Writer) (Writer, error) {
	switch format {
	case FormatText, "":
		return NewSimpleWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// MultiWriter writes to multiple Writers. It stops on the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WritePasses outputs passes to all configured Writers.
func (m *MultiWriter) WritePasses(passes []*model.Pass) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WritePasses(passes)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteRuns outputs runs to all configured Writers.
func (m *MultiWriter) WriteRuns(runs []model.Run) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteRuns(runs)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// OpenOutput returns stdout when path is empty, otherwise it creates the file
// and any missing parent directories. The returned close function is always
// safe to call.
func OpenOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create report file: %w", err)
	}
	return f, f.Close, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// status describes how a pass ended.
func status(p *model.Pass) string {
	switch {
	case p.Error != "":
		return "error: " + p.Error
	case p.Reason != "":
		return "skipped: " + p.Reason
	case p.Changed():
		return "enhanced"
	default:
		return "unchanged"
	}
}

// shapeName returns a printable name for a table shape.
func shapeName(s model.Shape) string {
	if s == model.ShapeNone {
		return "-"
	}
	return string(s)
}
