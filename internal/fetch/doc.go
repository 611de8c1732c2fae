// Package fetch loads HTML documents for enhancement.
//
// Targets are either http(s) URLs, fetched with the configured User-Agent,
// cookie and headers, or local files given as a path or file:// URL.
// Response bodies are capped at a configurable size.
package fetch
