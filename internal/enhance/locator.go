package enhance

import (
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/pluginlinks/internal/dom"
)

const versionHeader = "version"

// pluginHeaderTokens mark a table as listing plugins when any header cell
// contains one of them.
var pluginHeaderTokens = []string{"plugin", "name"}

// urlHeaders name the optional URL column. The first header equal to any
// of them is used.
var urlHeaders = []string{"url", "repository", "repo"}

// PluginTable is a located plugin table and its resolved column indices.
// It is recomputed on every pass and never stored.
type PluginTable struct {
	// Table is the <table> element.
	Table *goquery.Selection

	// VersionCol is the index of the "version" column.
	VersionCol int

	// URLCol is the index of the URL column, or -1 when there is none.
	URLCol int

	// Headers holds the normalized header texts.
	Headers []string

	header *html.Node
	body   []*html.Node
}

// HasURLColumn reports whether the table carries its own URL column.
func (t *PluginTable) HasURLColumn() bool {
	return t.URLCol >= 0
}

// BodyRows returns the rows of the first body row group, excluding the
// header row when the header lives inside the body.
func (t *PluginTable) BodyRows() []*goquery.Selection {
	rows := make([]*goquery.Selection, 0, len(t.body))
	for _, n := range t.body {
		rows = append(rows, t.Table.FindNodes(n))
	}
	return rows
}

// LocateTable returns the first table in document order that looks like a
// plugin table: a non-empty header row with a column named exactly
// "version" and at least one column mentioning "plugin" or "name", plus a
// body row group.
func LocateTable(doc *dom.Document) (*PluginTable, bool) {
	var found *PluginTable
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		if t, ok := qualify(table); ok {
			found = t
			return false
		}
		return true
	})
	return found, found != nil
}

func qualify(table *goquery.Selection) (*PluginTable, bool) {
	tableNode := table.Get(0)
	tbody := firstChild(tableNode, atom.Tbody)
	if tbody == nil {
		return nil, false
	}

	header := headerRow(tableNode)
	if header == nil {
		return nil, false
	}

	headers := normalizedCells(header)
	if len(headers) == 0 {
		return nil, false
	}

	versionCol := slices.Index(headers, versionHeader)
	if versionCol < 0 {
		return nil, false
	}
	if !slices.ContainsFunc(headers, isPluginHeader) {
		return nil, false
	}

	urlCol := slices.IndexFunc(headers, func(h string) bool {
		return slices.Contains(urlHeaders, h)
	})

	body := make([]*html.Node, 0)
	for _, row := range childElements(tbody, atom.Tr) {
		if row != header {
			body = append(body, row)
		}
	}

	return &PluginTable{
		Table:      table,
		VersionCol: versionCol,
		URLCol:     urlCol,
		Headers:    headers,
		header:     header,
		body:       body,
	}, true
}

func isPluginHeader(h string) bool {
	for _, token := range pluginHeaderTokens {
		if strings.Contains(h, token) {
			return true
		}
	}
	return false
}

// headerRow returns the first row of the table head, or, without a head,
// the first row of the table made of header cells.
func headerRow(table *html.Node) *html.Node {
	if thead := firstChild(table, atom.Thead); thead != nil {
		return firstChild(thead, atom.Tr)
	}
	for _, row := range ownRows(table) {
		cells := rowCells(row)
		if len(cells) > 0 && cells[0].DataAtom == atom.Th {
			return row
		}
	}
	return nil
}

// ownRows lists the rows belonging to table itself, ignoring nested tables.
func ownRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	for c := table.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Tr:
			rows = append(rows, c)
		case atom.Thead, atom.Tbody, atom.Tfoot:
			rows = append(rows, childElements(c, atom.Tr)...)
		}
	}
	return rows
}

func rowCells(row *html.Node) []*html.Node {
	var cells []*html.Node
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			cells = append(cells, c)
		}
	}
	return cells
}

func normalizedCells(row *html.Node) []string {
	lower := cases.Lower(language.Und)
	cells := rowCells(row)
	texts := make([]string, len(cells))
	for i, c := range cells {
		texts[i] = lower.String(strings.TrimSpace(nodeText(c)))
	}
	return texts
}

func firstChild(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	return nil
}

func childElements(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			out = append(out, c)
		}
	}
	return out
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// cell returns the idx-th cell of row, or an empty selection.
func cell(row *goquery.Selection, idx int) *goquery.Selection {
	return row.ChildrenFiltered("td, th").Eq(idx)
}
