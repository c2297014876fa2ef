package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codemap/repomap-mcp/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "repo-map.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleSymbols() []types.Symbol {
	return []types.Symbol{
		{Name: "UserService", Kind: types.KindClass, Signature: "UserService", Docstring: "Manages users.", FilePath: "svc/users.py", LineStart: 10, LineEnd: 80},
		{Name: "create", Kind: types.KindMethod, Signature: "create(self, name)", FilePath: "svc/users.py", LineStart: 14, LineEnd: 20, Parent: "UserService"},
		{Name: "parse_config", Kind: types.KindFunction, Signature: "parse_config(path)", FilePath: "util/config.py", LineStart: 5, LineEnd: 30},
		{Name: "parse_args", Kind: types.KindFunction, Signature: "parse_args()", FilePath: "util/cli.py", LineStart: 3, LineEnd: 12},
	}
}

func TestReplaceAllAndQueries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceAll(ctx, sampleSymbols(), nil))

	count, err := store.SymbolCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	status, err := store.GetMeta(ctx, types.MetaStatus)
	require.NoError(t, err)
	assert.Equal(t, string(types.StatusCompleted), status)

	fileSymbols, err := store.GetFileSymbols(ctx, "svc/users.py")
	require.NoError(t, err)
	require.Len(t, fileSymbols, 2)
	assert.Equal(t, "UserService", fileSymbols[0].Name)
	assert.Equal(t, "create", fileSymbols[1].Name)
	assert.Equal(t, "UserService", fileSymbols[1].Parent)
}

func TestSearchSymbolsGlob(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.ReplaceAll(ctx, sampleSymbols(), nil))

	results, err := store.SearchSymbols(ctx, "parse_*", "", 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Substring search when the pattern has no wildcards.
	results, err = store.SearchSymbols(ctx, "config", "", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "parse_config", results[0].Name)

	// Kind filter.
	results, err = store.SearchSymbols(ctx, "*", string(types.KindClass), 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "UserService", results[0].Name)

	// Limit.
	results, err = store.SearchSymbols(ctx, "*", "", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestLookupSymbol(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.ReplaceAll(ctx, sampleSymbols(), nil))

	symbols, err := store.LookupSymbol(ctx, "create", "UserService", "")
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, types.KindMethod, symbols[0].Kind)

	_, err = store.LookupSymbol(ctx, "missing", "", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListFiles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.ReplaceAll(ctx, sampleSymbols(), nil))

	files, err := store.ListFiles(ctx, "", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"svc/users.py", "util/cli.py", "util/config.py"}, files)

	files, err = store.ListFiles(ctx, "util/*", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"util/cli.py", "util/config.py"}, files)
}

func TestReplaceAllIsAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.ReplaceAll(ctx, sampleSymbols(), nil))

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	err := store.ReplaceAll(canceled, []types.Symbol{
		{Name: "other", Kind: types.KindFunction, FilePath: "x.py", LineStart: 1},
	}, nil)
	require.Error(t, err)

	// The previous index must still be fully present.
	count, countErr := store.SymbolCount(ctx)
	require.NoError(t, countErr)
	assert.Equal(t, 4, count)
}

func TestReplaceAllOverwritesPrevious(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.ReplaceAll(ctx, sampleSymbols(), nil))

	require.NoError(t, store.ReplaceAll(ctx, sampleSymbols()[:1], nil))
	count, err := store.SymbolCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMarkIndexingAndFailed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.MarkIndexing(ctx))
	status, err := store.GetMeta(ctx, types.MetaStatus)
	require.NoError(t, err)
	assert.Equal(t, string(types.StatusIndexing), status)

	_, err = store.GetMeta(ctx, types.MetaIndexStartTime)
	require.NoError(t, err)

	require.NoError(t, store.MarkFailed(ctx, "watchdog killed hung indexer"))
	meta, err := store.GetAllMeta(ctx)
	require.NoError(t, err)
	assert.Equal(t, string(types.StatusFailed), meta[types.MetaStatus])
	assert.Equal(t, "watchdog killed hung indexer", meta[types.MetaErrorMessage])
}

func TestGetMetaNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetMeta(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchText(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	texts := []types.TextElement{
		{FilePath: "svc/users.py", LineNumber: 11, ElementType: types.ElementDocstring, SymbolName: "UserService", Content: "Manages user accounts and authentication."},
		{FilePath: "util/config.py", LineNumber: 6, ElementType: types.ElementDocstring, SymbolName: "parse_config", Content: "Reads the TOML configuration file."},
	}
	require.NoError(t, store.ReplaceAll(ctx, sampleSymbols(), texts))

	hits, err := store.SearchText(ctx, "authentication", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "UserService", hits[0].SymbolName)
	assert.Equal(t, 11, hits[0].LineNumber)
}
