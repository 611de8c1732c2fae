package model

import "time"

// Shape identifies which plugin table layout a pass worked on.
type Shape string

const (
	// ShapeNone means no plugin table was processed.
	ShapeNone Shape = ""

	// ShapeURLColumn is a plugin table with its own URL/repository column.
	ShapeURLColumn Shape = "url-column"

	// ShapePackageMarker is a plugin table without a URL column whose rows
	// carry package-id and version marker elements.
	ShapePackageMarker Shape = "package-marker"
)

// Reasons a pass stopped before linkifying anything.
const (
	ReasonNotPluginsPage = "not a plugins page"
	ReasonNoPluginTable  = "no plugin table"
	ReasonNoMarkers      = "no package markers"
	ReasonResolverFailed = "package url resolution failed"
)

// LinkedRow records one version cell that was turned into a link.
type LinkedRow struct {
	// Row is the zero-based index of the row among the table's body rows.
	Row int `json:"row"`

	// Version is the trimmed version text used as the link label.
	Version string `json:"version"`

	// URL is the link destination.
	URL string `json:"url"`

	// PackageID is the normalized package id for package-marker tables.
	PackageID string `json:"package_id,omitempty"`
}

// Pass is the outcome of one enhancement pass over a document.
type Pass struct {
	// PageURL is the address the document was loaded from.
	PageURL string `json:"page_url"`

	// StartedAt is when the pass began.
	StartedAt time.Time `json:"started_at"`

	// Shape is the layout of the table that was processed.
	Shape Shape `json:"shape,omitempty"`

	// Linked lists the version cells converted during this pass.
	Linked []LinkedRow `json:"linked"`

	// Skipped counts body rows that were looked at but left unchanged.
	Skipped int `json:"skipped"`

	// Reason explains why the pass stopped early. Empty when it ran through.
	Reason string `json:"reason,omitempty"`

	// Error holds the message of a non-fatal failure (package URL resolution).
	Error string `json:"error,omitempty"`

	// Steps lists the pipeline steps that ran.
	Steps []string `json:"steps,omitempty"`
}

// NewPass creates an empty pass for pageURL.
func NewPass(pageURL string) *Pass {
	return &Pass{
		PageURL:   pageURL,
		StartedAt: time.Now(),
		Linked:    make([]LinkedRow, 0),
	}
}

// Stop marks the pass as finished early with the given reason.
func (p *Pass) Stop(reason string) {
	p.Reason = reason
}

// Stopped reports whether a step ended the pass early.
func (p *Pass) Stopped() bool {
	return p.Reason != ""
}

// Changed reports whether the pass modified the document.
func (p *Pass) Changed() bool {
	return len(p.Linked) > 0
}

// Link records a converted row.
func (p *Pass) Link(row LinkedRow) {
	p.Linked = append(p.Linked, row)
}

// Skip records a row that was left unchanged.
func (p *Pass) Skip() {
	p.Skipped++
}

// Run is a stored summary of a past pass.
type Run struct {
	ID        int64     `json:"id"`
	PageURL   string    `json:"page_url"`
	Shape     Shape     `json:"shape,omitempty"`
	Linked    int       `json:"linked"`
	Skipped   int       `json:"skipped"`
	Reason    string    `json:"reason,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
