package enhance

import (
	"context"
	"errors"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/pluginlinks/internal/dom"
	"github.com/nao1215/pluginlinks/internal/model"
)

// Default marker selectors for package-marker tables.
const (
	DefaultPackageIDMarker = `[data-role="package-id"]`
	DefaultVersionMarker   = `[data-role="version"]`
)

// ErrNilMapper is returned when a package-marker table needs a URL map but
// no mapper was supplied.
var ErrNilMapper = errors.New("package url mapper is nil")

// Markers are the CSS selectors identifying the package id and version
// elements inside each row of a package-marker table.
type Markers struct {
	PackageID string `yaml:"packageID" json:"package_id"`
	Version   string `yaml:"version" json:"version"`
}

// DefaultMarkers returns the built-in marker selectors.
func DefaultMarkers() Markers {
	return Markers{
		PackageID: DefaultPackageIDMarker,
		Version:   DefaultVersionMarker,
	}
}

// WithDefaults fills empty selectors with the built-in ones.
func (m Markers) WithDefaults() Markers {
	d := DefaultMarkers()
	if m.PackageID == "" {
		m.PackageID = d.PackageID
	}
	if m.Version == "" {
		m.Version = d.Version
	}
	return m
}

// URLMapper provides the package id to GitHub URL mapping.
type URLMapper interface {
	PackageURLMap(ctx context.Context) (model.PackageURLMap, error)
}

// LinkifyURLColumn links each version cell of t to the GitHub URL found in
// the same row's URL column. Rows without a GitHub URL, with an empty
// version or with an existing anchor in the version cell are left alone.
func LinkifyURLColumn(doc *dom.Document, t *PluginTable, pass *model.Pass) {
	pass.Shape = model.ShapeURLColumn
	for i, row := range t.BodyRows() {
		versionCell := cell(row, t.VersionCol)
		if versionCell.Length() == 0 || dom.HasAnchor(versionCell) {
			pass.Skip()
			continue
		}

		href := urlFromCell(doc, cell(row, t.URLCol))
		if href == "" || !model.IsGitHubURL(href) {
			pass.Skip()
			continue
		}

		version := dom.Text(versionCell)
		if version == "" {
			pass.Skip()
			continue
		}

		dom.Linkify(versionCell, version, href)
		pass.Link(model.LinkedRow{Row: i, Version: version, URL: href})
	}
}

// urlFromCell returns the resolved href of the first anchor in c, or the
// trimmed text of c when it has no anchor with an href. An href that does
// not resolve to a web address yields no URL; the cell text is not used.
func urlFromCell(doc *dom.Document, c *goquery.Selection) string {
	if c.Length() == 0 {
		return ""
	}
	if href, ok := c.Find("a").First().Attr("href"); ok {
		return doc.ResolveURL(href)
	}
	return dom.Text(c)
}

// markedRow is a body row carrying both marker elements.
type markedRow struct {
	index     int
	packageID string
	version   *goquery.Selection
}

// LinkifyPackageMarkers links the version marker of each row of t to the
// GitHub URL mapper returns for the row's package id.
//
// The mapper is consulted only when at least one row has both markers and
// an unlinked version. A mapper error leaves the document untouched and is
// returned to the caller.
func LinkifyPackageMarkers(ctx context.Context, t *PluginTable, markers Markers, mapper URLMapper, pass *model.Pass) error {
	pass.Shape = model.ShapePackageMarker
	markers = markers.WithDefaults()

	candidates := make([]markedRow, 0)
	marked := 0
	for i, row := range t.BodyRows() {
		idMarker := ownMarker(t, row, markers.PackageID)
		versionMarker := ownMarker(t, row, markers.Version)
		if idMarker.Length() == 0 || versionMarker.Length() == 0 {
			pass.Skip()
			continue
		}
		marked++
		if dom.HasAnchor(versionMarker) {
			pass.Skip()
			continue
		}
		candidates = append(candidates, markedRow{
			index:     i,
			packageID: model.NormalizePackageID(idMarker.Text()),
			version:   versionMarker,
		})
	}
	if marked == 0 {
		pass.Stop(model.ReasonNoMarkers)
		return nil
	}
	if len(candidates) == 0 {
		return nil
	}
	if mapper == nil {
		return ErrNilMapper
	}

	urls, err := mapper.PackageURLMap(ctx)
	if err != nil {
		return err
	}

	for _, row := range candidates {
		href, ok := urls.Lookup(row.packageID)
		if !ok {
			pass.Skip()
			continue
		}
		version := dom.Text(row.version)
		if version == "" {
			pass.Skip()
			continue
		}
		dom.Linkify(row.version, version, href)
		pass.Link(model.LinkedRow{
			Row:       row.index,
			Version:   version,
			URL:       href,
			PackageID: row.packageID,
		})
	}
	return nil
}

// ownMarker returns the first element in row matching selector that
// belongs to t itself, ignoring tables nested inside the row.
func ownMarker(t *PluginTable, row *goquery.Selection, selector string) *goquery.Selection {
	return row.Find(selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Closest("table").IsSelection(t.Table)
	}).First()
}
