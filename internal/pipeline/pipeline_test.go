package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codemap/repomap-mcp/internal/config"
	"github.com/codemap/repomap-mcp/internal/extractor"
	"github.com/codemap/repomap-mcp/internal/storage"
	"github.com/codemap/repomap-mcp/pkg/types"
)

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscoverSkipsExcludedDirs(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "app/main.py", "def main():\n    pass\n")
	writeSource(t, root, "node_modules/dep/index.js", "function hidden() {}\n")
	writeSource(t, root, "__pycache__/junk.py", "x = 1\n")
	writeSource(t, root, "vendor/lib/util.go", "package lib\n\nfunc Util() {}\n")
	writeSource(t, root, "README.md", "# hi\n")

	files, err := Discover(root, extractor.NewRegistry())
	require.NoError(t, err)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.RelPath)
	}
	// vendor/ is indexed; dependency and cache dirs are not.
	assert.Equal(t, []string{"app/main.py", "vendor/lib/util.go"}, paths)
}

func TestRunIndexesRepository(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "foo.py", "def add(a, b):\n    return a + b\n")

	cfg := config.Default()
	stats, err := New(root, cfg).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesTotal)
	assert.Equal(t, 0, stats.FilesCached)
	assert.Equal(t, 1, stats.FilesParsed)
	assert.Equal(t, 1, stats.SymbolsFound)

	store, err := storage.Open(config.DBPath(root))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	symbols, err := store.GetFileSymbols(ctx, "foo.py")
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "add", symbols[0].Name)
	assert.Equal(t, types.KindFunction, symbols[0].Kind)
	assert.Empty(t, symbols[0].Docstring)
	assert.Empty(t, symbols[0].Parent)

	status, err := store.GetMeta(ctx, types.MetaStatus)
	require.NoError(t, err)
	assert.Equal(t, string(types.StatusCompleted), status)

	// Artifacts exist.
	assert.FileExists(t, config.CachePath(root))
	assert.FileExists(t, config.ReportPath(root))
	assert.FileExists(t, config.ProgressPath(root))

	data, err := os.ReadFile(config.ProgressPath(root))
	require.NoError(t, err)
	var progress types.Progress
	require.NoError(t, json.Unmarshal(data, &progress))
	assert.Equal(t, string(types.StatusCompleted), progress.Status)
	assert.Equal(t, 1, progress.SymbolsFound)
}

func TestSecondRunUsesCache(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "foo.py", "def add(a, b):\n    return a + b\n")
	writeSource(t, root, "bar.py", "def sub(a, b):\n    return a - b\n")

	cfg := config.Default()
	_, err := New(root, cfg).Run(context.Background())
	require.NoError(t, err)

	stats, err := New(root, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesCached)
	assert.Equal(t, 0, stats.FilesParsed)
	assert.Equal(t, 2, stats.SymbolsFound)
}

func TestDeletedFileDropsOut(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "foo.py", "def add(a, b):\n    return a + b\n")
	writeSource(t, root, "bar.py", "def sub(a, b):\n    return a - b\n")

	cfg := config.Default()
	_, err := New(root, cfg).Run(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "bar.py")))
	stats, err := New(root, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SymbolsFound)

	store, err := storage.Open(config.DBPath(root))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	files, err := store.ListFiles(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo.py"}, files)
}

func TestDocstringsFeedTextSearch(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "svc.py", `class Billing:
    """Computes invoices from usage records."""

    def total(self):
        """Sum all line items."""
        pass
`)

	cfg := config.Default()
	_, err := New(root, cfg).Run(context.Background())
	require.NoError(t, err)

	store, err := storage.Open(config.DBPath(root))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	hits, err := store.SearchText(context.Background(), "invoices", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Billing", hits[0].SymbolName)
}
