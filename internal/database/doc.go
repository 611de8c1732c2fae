// Package database stores the history of enhancement passes in SQLite.
//
// Every pass run by the CLI or the proxy can be recorded as one row in the
// runs table: page URL, table shape, linked and skipped row counts, the stop
// reason and a non-fatal error message. The history command reads it back.
//
// The store uses modernc.org/sqlite, a CGO-free driver, so the binary stays
// cross-compilable. The database is a single file in the XDG data directory.
package database
