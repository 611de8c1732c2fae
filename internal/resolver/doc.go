// Package resolver builds and memoizes the package id to GitHub URL map.
//
// A Resolver owns one shared result for its lifetime. The first caller
// starts the fetch, concurrent callers wait on the same fetch, and a
// failed fetch clears the cell so the next caller starts over. The state
// is kept explicitly as unstarted, pending, resolved or failed.
//
// Registry keeps one Resolver per client session for long-running servers.
package resolver
