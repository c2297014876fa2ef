// Package server exposes the symbol index over the Model Context Protocol.
//
// The server speaks MCP on stdio, so stdout is reserved for the protocol
// and all logging goes to stderr. Query tools never run extraction
// themselves; they read the SQLite index maintained by the indexer
// subprocess, briefly auto-waiting when a build is in flight and otherwise
// returning a structured in-progress response. Background tickers recheck
// staleness and police hung index runs.
package server
