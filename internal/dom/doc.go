// Package dom wraps a parsed HTML document and provides the few mutations
// pluginlinks performs on it.
//
// Parsing uses golang.org/x/net/html, which tolerates the malformed markup
// produced by client-side rendering, and selection uses goquery so callers
// can address elements with CSS selectors.
package dom
