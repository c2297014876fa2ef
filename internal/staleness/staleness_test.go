package staleness

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codemap/repomap-mcp/internal/config"
	"github.com/codemap/repomap-mcp/internal/pipeline"
)

func indexedRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	path := filepath.Join(root, "main.py")
	require.NoError(t, os.WriteFile(path, []byte("def main():\n    pass\n"), 0o644))
	_, err := pipeline.New(root, config.Default()).Run(context.Background())
	require.NoError(t, err)
	return root
}

func TestFreshIndexNotStale(t *testing.T) {
	root := indexedRepo(t)
	stale, reason := Check(root)
	assert.False(t, stale, reason)
}

func TestMissingDatabaseIsStale(t *testing.T) {
	root := indexedRepo(t)
	require.NoError(t, os.Remove(config.DBPath(root)))

	stale, reason := Check(root)
	assert.True(t, stale)
	assert.Contains(t, reason, "database missing")
}

func TestMissingCacheIsStale(t *testing.T) {
	root := indexedRepo(t)
	require.NoError(t, os.Remove(config.CachePath(root)))

	stale, reason := Check(root)
	assert.True(t, stale)
	assert.Contains(t, reason, "cache missing")
}

func TestNewFileIsStale(t *testing.T) {
	root := indexedRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "extra.py"), []byte("x = 1\n"), 0o644))

	stale, reason := Check(root)
	assert.True(t, stale)
	assert.Contains(t, reason, "file count changed")
}

func TestModifiedFileIsStale(t *testing.T) {
	root := indexedRepo(t)

	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(filepath.Join(root, "main.py"), future, future))

	stale, reason := Check(root)
	assert.True(t, stale)
	assert.Contains(t, reason, "modified after last index")
}
