// Package extractor turns source files into symbol lists using tree-sitter.
//
// Each supported language has its own extractor that walks the parse tree
// iteratively and emits classes, functions, and methods with their line
// spans, signatures, and documentation summaries. Extraction never fails
// hard: a file tree-sitter cannot parse simply yields no symbols, since
// tree-sitter produces a best-effort tree with ERROR nodes rather than
// rejecting input.
//
// The Registry maps file extensions to extractors so callers can route a
// discovered file without caring which language it is.
package extractor
