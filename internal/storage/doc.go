// Package storage persists the symbol index in an embedded SQLite database.
//
// The database is replaced wholesale on every index run: ReplaceAll runs a
// single IMMEDIATE transaction that deletes and reinserts the symbols table
// and the full-text corpus, then flips the status metadata, so concurrent
// readers always observe a complete index. WAL journaling lets those reads
// proceed while the writer holds its lock.
//
// Two drivers are supported via build tags: mattn/go-sqlite3 when CGO is
// available (build with -tags fts5) and modernc.org/sqlite for pure Go
// builds (-tags purego). The schema carries its own semver so future layout
// changes migrate in place.
package storage
