// Package report writes enhancement pass results and run history.
//
// Three formats are available:
//   - SimpleWriter: plain text for terminal display
//   - JSONWriter: structured output for other tools
//   - MarkdownWriter: Markdown for sharing in issues or docs
//
// All writers implement Writer and can be combined with MultiWriter.
package report
