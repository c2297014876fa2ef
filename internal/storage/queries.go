package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/codemap/repomap-mcp/pkg/types"
)

// SearchSymbols finds symbols whose name matches a glob pattern. A pattern
// without wildcards is treated as a substring search. SQL LIKE does the
// coarse filtering in the database; candidates are then re-verified with a
// real glob match, falling back to the LIKE result if the pattern is not a
// valid glob.
func (s *Store) SearchSymbols(ctx context.Context, pattern, kind string, limit int) ([]types.Symbol, error) {
	if !strings.ContainsAny(pattern, "*?[") {
		pattern = "*" + pattern + "*"
	}

	query := "SELECT " + symbolColumns + ` FROM symbols WHERE name LIKE ? ESCAPE '\'`
	args := []interface{}{globToLike(pattern)}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY file_path, line_number"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search symbols: %w", err)
	}
	candidates, err := scanSymbols(rows)
	if err != nil {
		return nil, err
	}

	var results []types.Symbol
	for _, sym := range candidates {
		ok, matchErr := doublestar.Match(pattern, sym.Name)
		if matchErr != nil {
			// LIKE already filtered; accept its result for invalid globs.
			ok = true
		}
		if ok {
			results = append(results, sym)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
	}
	return results, nil
}

// GetFileSymbols returns every symbol in one file, in line order.
func (s *Store) GetFileSymbols(ctx context.Context, filePath string) ([]types.Symbol, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+symbolColumns+" FROM symbols WHERE file_path = ? ORDER BY line_number", filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get file symbols: %w", err)
	}
	return scanSymbols(rows)
}

// LookupSymbol returns all symbols with an exact name, optionally narrowed
// by parent and kind. Returns ErrNotFound when nothing matches.
func (s *Store) LookupSymbol(ctx context.Context, name, parent, kind string) ([]types.Symbol, error) {
	query := "SELECT " + symbolColumns + " FROM symbols WHERE name = ?"
	args := []interface{}{name}
	if parent != "" {
		query += " AND parent = ?"
		args = append(args, parent)
	}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY file_path, line_number"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to look up symbol: %w", err)
	}
	symbols, err := scanSymbols(rows)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, ErrNotFound
	}
	return symbols, nil
}

// ListFiles returns the distinct indexed file paths, optionally filtered by
// a glob pattern over the repository-relative path.
func (s *Store) ListFiles(ctx context.Context, pattern string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT file_path FROM symbols ORDER BY file_path")
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan file path: %w", err)
		}
		if pattern != "" {
			ok, matchErr := doublestar.Match(pattern, path)
			if matchErr != nil || !ok {
				continue
			}
		}
		files = append(files, path)
		if limit > 0 && len(files) >= limit {
			break
		}
	}
	return files, rows.Err()
}

// SearchText runs a full-text query over comments, docstrings, and string
// literals.
func (s *Store) SearchText(ctx context.Context, query string, limit int) ([]types.TextElement, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT file_path, line_number, element_type, symbol_name, content
		 FROM code_text_fts WHERE code_text_fts MATCH ? ORDER BY rank LIMIT ?`,
		query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search text: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var elements []types.TextElement
	for rows.Next() {
		var el types.TextElement
		if err := rows.Scan(&el.FilePath, &el.LineNumber, &el.ElementType, &el.SymbolName, &el.Content); err != nil {
			return nil, fmt.Errorf("failed to scan text element: %w", err)
		}
		elements = append(elements, el)
	}
	return elements, rows.Err()
}

// globToLike converts glob wildcards to their SQL LIKE equivalents for
// coarse prefiltering. Character classes are widened to match anything.
func globToLike(pattern string) string {
	var b strings.Builder
	inClass := false
	for _, r := range pattern {
		switch {
		case inClass:
			if r == ']' {
				inClass = false
				b.WriteByte('%')
			}
		case r == '[':
			inClass = true
		case r == '*':
			b.WriteByte('%')
		case r == '?':
			b.WriteByte('_')
		case r == '%':
			b.WriteString(`\%`)
		case r == '_':
			b.WriteString(`\_`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
