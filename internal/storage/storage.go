package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/codemap/repomap-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// Store persists the symbol index in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at dbPath and brings the
// schema up to date.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceAll atomically replaces the entire symbol set and text corpus in
// one write transaction. Readers see either the previous complete index or
// the new one, never a partial state. The transaction takes the write lock
// up front so it cannot be starved into a mid-transaction busy error.
func (s *Store) ReplaceAll(ctx context.Context, symbols []types.Symbol, texts []types.TextElement) (err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err = conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if _, err = conn.ExecContext(ctx, "DELETE FROM symbols"); err != nil {
		return fmt.Errorf("failed to clear symbols: %w", err)
	}
	if _, err = conn.ExecContext(ctx, "DELETE FROM code_text_fts"); err != nil {
		return fmt.Errorf("failed to clear text index: %w", err)
	}

	for _, sym := range symbols {
		_, err = conn.ExecContext(ctx,
			`INSERT INTO symbols (name, kind, signature, docstring, file_path, line_number, end_line_number, parent)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			sym.Name, string(sym.Kind), sym.Signature, sym.Docstring,
			sym.FilePath, sym.LineStart, sym.LineEnd, sym.Parent)
		if err != nil {
			return fmt.Errorf("failed to insert symbol %s: %w", sym.FullName(), err)
		}
	}

	for _, el := range texts {
		_, err = conn.ExecContext(ctx,
			`INSERT INTO code_text_fts (file_path, line_number, element_type, symbol_name, content)
			 VALUES (?, ?, ?, ?, ?)`,
			el.FilePath, el.LineNumber, el.ElementType, el.SymbolName, el.Content)
		if err != nil {
			return fmt.Errorf("failed to insert text element: %w", err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for key, value := range map[string]string{
		types.MetaStatus:       string(types.StatusCompleted),
		types.MetaLastIndexed:  now,
		types.MetaSymbolCount:  strconv.Itoa(len(symbols)),
		types.MetaErrorMessage: "",
	} {
		if err = setMetaOn(ctx, conn, key, value); err != nil {
			return err
		}
	}

	if _, err = conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// MarkIndexing records that a fresh index run has started.
func (s *Store) MarkIndexing(ctx context.Context) error {
	now := time.Now().UTC().Format(time.RFC3339)
	for key, value := range map[string]string{
		types.MetaStatus:         string(types.StatusIndexing),
		types.MetaIndexStartTime: now,
		types.MetaErrorMessage:   "",
	} {
		if err := s.SetMeta(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// MarkFailed records a terminal failure with its reason. The previous
// symbol set is left untouched so queries keep serving last-good results.
func (s *Store) MarkFailed(ctx context.Context, reason string) error {
	if err := s.SetMeta(ctx, types.MetaStatus, string(types.StatusFailed)); err != nil {
		return err
	}
	return s.SetMeta(ctx, types.MetaErrorMessage, reason)
}

// SetMeta writes one metadata key.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata %s: %w", key, err)
	}
	return nil
}

func setMetaOn(ctx context.Context, conn *sql.Conn, key, value string) error {
	_, err := conn.ExecContext(ctx,
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata %s: %w", key, err)
	}
	return nil
}

// GetMeta reads one metadata key, returning ErrNotFound when absent.
func (s *Store) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read metadata %s: %w", key, err)
	}
	return value, nil
}

// GetAllMeta reads the whole metadata table.
func (s *Store) GetAllMeta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	meta := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta[key] = value
	}
	return meta, rows.Err()
}

// SymbolCount reports how many symbols the index currently holds.
func (s *Store) SymbolCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM symbols").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count symbols: %w", err)
	}
	return count, nil
}

func scanSymbols(rows *sql.Rows) ([]types.Symbol, error) {
	defer func() { _ = rows.Close() }()

	var symbols []types.Symbol
	for rows.Next() {
		var sym types.Symbol
		var kind string
		if err := rows.Scan(&sym.Name, &kind, &sym.Signature, &sym.Docstring,
			&sym.FilePath, &sym.LineStart, &sym.LineEnd, &sym.Parent); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		sym.Kind = types.SymbolKind(kind)
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

const symbolColumns = "name, kind, signature, docstring, file_path, line_number, end_line_number, parent"
