package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/pluginlinks/internal/model"
)

// MarkdownWriter outputs results in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WritePasses outputs a summary table and one section per enhanced page.
func (w *MarkdownWriter) WritePasses(passes []*model.Pass) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Plugin Version Links")
	md.PlainText("")

	rows := make([][]string, 0, len(passes))
	total := 0
	for _, p := range passes {
		rows = append(rows, []string{
			markdown.Code(p.PageURL),
			status(p),
			shapeName(p.Shape),
			strconv.Itoa(len(p.Linked)),
			strconv.Itoa(p.Skipped),
		})
		total += len(p.Linked)
	}

	md.Table(markdown.TableSet{
		Header:    []string{"Page", "Status", "Shape", "Linked", "Skipped"},
		Rows:      rows,
		Alignment: []markdown.TableAlignment{markdown.AlignLeft, markdown.AlignLeft, markdown.AlignLeft, markdown.AlignRight, markdown.AlignRight},
	})
	md.PlainText("")

	if total == 0 {
		md.Note("No version links were added.")
	} else {
		md.Tipf("%d version link(s) added across %d page(s).", total, len(passes))
	}
	md.PlainText("")

	for _, p := range passes {
		if !p.Changed() {
			continue
		}
		w.writeLinked(md, p)
	}

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeLinked(md *markdown.Markdown, p *model.Pass) {
	md.H2(p.PageURL)
	md.PlainText("")

	items := make([]string, 0, len(p.Linked))
	for _, l := range p.Linked {
		label := l.Version
		if l.PackageID != "" {
			label = markdown.Code(l.PackageID) + " " + l.Version
		}
		items = append(items, label+": "+markdown.Link(l.URL, l.URL))
	}
	md.BulletList(items...)
	md.PlainText("")
}

// WriteRuns outputs run history as a Markdown table.
func (w *MarkdownWriter) WriteRuns(runs []model.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Run History")
	md.PlainText("")

	if len(runs) == 0 {
		md.PlainText("No runs recorded.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		note := r.Reason
		if r.Error != "" {
			note = r.Error
		}
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"),
			markdown.Code(r.PageURL),
			shapeName(r.Shape),
			strconv.Itoa(r.Linked),
			strconv.Itoa(r.Skipped),
			note,
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"ID", "Time", "Page", "Shape", "Linked", "Skipped", "Note"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}
