package model

import (
	"crypto/sha256"
	"encoding/hex"
	"mime"
	"strings"
)

// Page is a document loaded for enhancement, either over HTTP or from disk.
type Page struct {
	// URL is the final address of the document. Local files use file://.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code. Zero for local files.
	StatusCode int `json:"status_code,omitempty"`

	// Headers contains the HTTP response headers in canonical form.
	Headers map[string][]string `json:"headers,omitempty"`

	// ContentType is the MIME type of the document.
	ContentType string `json:"content_type"`

	// Raw contains the document bytes, limited to the configured body size.
	Raw []byte `json:"-"`

	// Hash is the SHA-256 hash of Raw. Used to detect whether a pass changed
	// the document.
	Hash string `json:"hash"`
}

// ComputeHash calculates and sets the SHA-256 hash of the page's raw content.
// This should be called after setting the Raw field.
func (p *Page) ComputeHash() {
	p.Hash = HashBytes(p.Raw)
}

// HashBytes returns the hex SHA-256 of b, or "" for empty input.
func HashBytes(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// GetHeader returns the first value of the specified header.
// Returns empty string if the header is not present.
func (p *Page) GetHeader(name string) string {
	if values, ok := p.Headers[name]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}

// IsHTML returns true if the page content type indicates HTML.
// An empty content type is treated as HTML, which is what local files get.
func (p *Page) IsHTML() bool {
	return IsHTMLContentType(p.ContentType)
}

// IsHTMLContentType reports whether a Content-Type value denotes an HTML
// document. Parameters such as charset are ignored.
func IsHTMLContentType(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
