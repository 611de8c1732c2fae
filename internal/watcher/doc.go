// Package watcher re-runs the enhancement pass when relevant nodes are
// added to a document.
//
// Mutations arrive as batches on a channel. A batch is relevant when any
// added node is a h1 to h4 heading or a table, or contains one; each
// relevant batch triggers the callback exactly once. FileSource produces
// batches from an HTML file on disk using fsnotify.
package watcher
