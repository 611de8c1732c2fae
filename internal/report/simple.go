package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/pluginlinks/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text.
type SimpleWriter struct {
	baseWriter

	// verbose lists every linked row.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists every linked row, not just the counts.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WritePasses outputs one block per pass followed by a total line.
func (w *SimpleWriter) WritePasses(passes []*model.Pass) (int, error) {
	var sb strings.Builder

	total := 0
	for _, p := range passes {
		w.writePass(&sb, p)
		total += len(p.Linked)
	}

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%d page(s), %d version link(s) added\n", len(passes), total)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writePass(sb *strings.Builder, p *model.Pass) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "Page:    %s\n", p.PageURL)
	fmt.Fprintf(sb, "Status:  %s\n", status(p))
	fmt.Fprintf(sb, "Shape:   %s\n", shapeName(p.Shape))
	fmt.Fprintf(sb, "Linked:  %d\n", len(p.Linked))
	fmt.Fprintf(sb, "Skipped: %d\n", p.Skipped)

	if !w.verbose || len(p.Linked) == 0 {
		return
	}

	sb.WriteString("\n")
	for _, l := range p.Linked {
		label := l.Version
		if l.PackageID != "" {
			label = l.PackageID + " " + l.Version
		}
		fmt.Fprintf(sb, "  [+] row %d: %s -> %s\n", l.Row, label, l.URL)
	}
}

// WriteRuns outputs run history as aligned columns.
func (w *SimpleWriter) WriteRuns(runs []model.Run) (int, error) {
	var sb strings.Builder

	if len(runs) == 0 {
		sb.WriteString("No runs recorded.\n")
		return w.output.Write([]byte(sb.String()))
	}

	fmt.Fprintf(&sb, "%-6s %-20s %-15s %6s %7s  %s\n", "ID", "TIME", "SHAPE", "LINKED", "SKIPPED", "PAGE")
	for _, r := range runs {
		fmt.Fprintf(&sb, "%-6d %-20s %-15s %6d %7d  %s",
			r.ID,
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			shapeName(r.Shape),
			r.Linked,
			r.Skipped,
			r.PageURL,
		)
		switch {
		case r.Error != "":
			fmt.Fprintf(&sb, " (error: %s)", r.Error)
		case r.Reason != "":
			fmt.Fprintf(&sb, " (%s)", r.Reason)
		}
		sb.WriteString("\n")
	}

	return w.output.Write([]byte(sb.String()))
}
