// Package types defines the shared data model for the repomap indexing
// subsystem: extracted symbols, text elements for full-text search, index
// metadata, and progress snapshots.
//
// A Symbol is one declaration (class, function, or method) with its name,
// rendered signature, one-line documentation summary, and source span.
// Symbols are created fresh each time a file is parsed and superseded
// wholesale per file; they are never patched individually.
package types
