// Package enhance locates the plugin table in a document and turns its
// version labels into links to the plugin's GitHub repository.
//
// Two table shapes are supported. A table with its own URL column is
// linkified from that column. A table without one is linkified from a
// package URL map, matching each row through package-id and version marker
// elements. Every mutation is guarded by an "already contains an anchor"
// check, so running the same pass twice leaves the document unchanged.
package enhance
