package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrParse is returned when a document cannot be parsed.
var ErrParse = errors.New("failed to parse HTML document")

// Link attributes applied to every generated anchor.
const (
	linkTarget = "_blank"
	linkRel    = "noopener noreferrer"
)

// Document is a parsed HTML document together with the URL it was loaded
// from. The URL drives page matching and relative link resolution.
type Document struct {
	doc  *goquery.Document
	base *url.URL
}

// Parse reads an HTML document from r. pageURL may be empty when the
// document has no known address.
func Parse(r io.Reader, pageURL string) (*Document, error) {
	base, err := parseBase(pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return &Document{doc: doc, base: base}, nil
}

// FromNode wraps an already parsed tree.
func FromNode(root *html.Node, pageURL string) (*Document, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: nil root node", ErrParse)
	}
	base, err := parseBase(pageURL)
	if err != nil {
		return nil, err
	}
	return &Document{doc: goquery.NewDocumentFromNode(root), base: base}, nil
}

func parseBase(pageURL string) (*url.URL, error) {
	if pageURL == "" {
		return nil, nil
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid page URL %q: %w", ErrParse, pageURL, err)
	}
	return u, nil
}

// URL returns the document address, or nil when unknown.
func (d *Document) URL() *url.URL {
	return d.base
}

// Root returns the root node of the document tree.
func (d *Document) Root() *html.Node {
	if len(d.doc.Nodes) == 0 {
		return nil
	}
	return d.doc.Nodes[0]
}

// Find returns the elements matching selector in document order.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Render writes the document as HTML to w.
func (d *Document) Render(w io.Writer) error {
	root := d.Root()
	if root == nil {
		return nil
	}
	return html.Render(w, root)
}

// HTML returns the rendered document.
func (d *Document) HTML() (string, error) {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ResolveURL resolves href against the document URL. Script, mail and
// fragment-only references resolve to the empty string.
func (d *Document) ResolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return ""
	}
	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return ""
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if d.base == nil {
		return u.String()
	}
	return d.base.ResolveReference(u).String()
}

// Text returns the trimmed text content of sel.
func Text(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}

// HasAnchor reports whether sel contains an <a> element.
func HasAnchor(sel *goquery.Selection) bool {
	return sel.Find("a").Length() > 0
}

// Linkify replaces the children of the first element in sel with a single
// anchor pointing at href and labelled text. The anchor opens in a new
// browsing context and carries no opener or referrer.
func Linkify(sel *goquery.Selection, text, href string) {
	if sel.Length() == 0 {
		return
	}
	n := sel.Get(0)
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(newAnchor(text, href))
}

func newAnchor(text, href string) *html.Node {
	a := &html.Node{
		Type:     html.ElementNode,
		Data:     atom.A.String(),
		DataAtom: atom.A,
		Attr: []html.Attribute{
			{Key: "href", Val: href},
			{Key: "target", Val: linkTarget},
			{Key: "rel", Val: linkRel},
		},
	}
	a.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return a
}
