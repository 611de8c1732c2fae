package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/pluginlinks/internal/model"
)

// JSONWriter outputs results in JSON format.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// PassesReport is the JSON envelope for pass results.
type PassesReport struct {
	Passes      []*model.Pass `json:"passes"`
	TotalLinked int           `json:"total_linked"`
}

// RunsReport is the JSON envelope for run history.
type RunsReport struct {
	Runs []model.Run `json:"runs"`
}

// WritePasses outputs pass results in JSON format.
func (w *JSONWriter) WritePasses(passes []*model.Pass) (int, error) {
	rep := PassesReport{Passes: passes}
	if rep.Passes == nil {
		rep.Passes = make([]*model.Pass, 0)
	}
	for _, p := range passes {
		rep.TotalLinked += len(p.Linked)
	}
	return w.writeJSON(rep)
}

// WriteRuns outputs run history in JSON format.
func (w *JSONWriter) WriteRuns(runs []model.Run) (int, error) {
	rep := RunsReport{Runs: runs}
	if rep.Runs == nil {
		rep.Runs = make([]model.Run, 0)
	}
	return w.writeJSON(rep)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
