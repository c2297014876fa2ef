package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codemap/repomap-mcp/pkg/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func oneSymbol(relPath string) []types.Symbol {
	return []types.Symbol{{
		Name:      "add",
		Kind:      types.KindFunction,
		Signature: "add(a, b)",
		FilePath:  relPath,
		LineStart: 1,
		LineEnd:   2,
	}}
}

func TestCacheHitOnUnchangedFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.py")
	writeFile(t, src, "def add(a, b):\n    return a + b\n")

	c := Load(filepath.Join(dir, "cache.json"))
	require.NoError(t, c.Update(src, "a.py", oneSymbol("a.py")))

	symbols, ok := c.Get(src, "a.py")
	require.True(t, ok)
	require.Len(t, symbols, 1)
	assert.Equal(t, "add", symbols[0].Name)
}

func TestCacheHitOnTouchedButIdenticalFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.py")
	writeFile(t, src, "def add(a, b):\n    return a + b\n")

	c := Load(filepath.Join(dir, "cache.json"))
	require.NoError(t, c.Update(src, "a.py", oneSymbol("a.py")))

	// Touch the file without changing content.
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(src, future, future))

	_, ok := c.Get(src, "a.py")
	require.True(t, ok)

	// The refreshed mtime now takes the fast path.
	_, ok = c.Get(src, "a.py")
	assert.True(t, ok)
}

func TestCacheMissOnModifiedContent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.py")
	writeFile(t, src, "def add(a, b):\n    return a + b\n")

	c := Load(filepath.Join(dir, "cache.json"))
	require.NoError(t, c.Update(src, "a.py", oneSymbol("a.py")))

	writeFile(t, src, "def add(a, b, c):\n    return a + b + c\n")
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(src, future, future))

	_, ok := c.Get(src, "a.py")
	assert.False(t, ok)
}

func TestCacheDropsDeletedFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.py")
	writeFile(t, src, "x = 1\n")

	c := Load(filepath.Join(dir, "cache.json"))
	require.NoError(t, c.Update(src, "a.py", nil))
	require.NoError(t, os.Remove(src))

	_, ok := c.Get(src, "a.py")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestRemoveStale(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.py", "b.py"} {
		writeFile(t, filepath.Join(dir, name), "x = 1\n")
	}

	c := Load(filepath.Join(dir, "cache.json"))
	require.NoError(t, c.Update(filepath.Join(dir, "a.py"), "a.py", nil))
	require.NoError(t, c.Update(filepath.Join(dir, "b.py"), "b.py", nil))

	removed := c.RemoveStale(map[string]struct{}{"a.py": {}})
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Len())
}

func TestRenamedFileIsMissAfterPrune(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "foo.py")
	writeFile(t, old, "def add(a, b):\n    return a + b\n")

	c := Load(filepath.Join(dir, "cache.json"))
	require.NoError(t, c.Update(old, "foo.py", oneSymbol("foo.py")))

	// Rename keeps the content identical; entries are keyed by path,
	// so the hash of the pruned entry must not carry over.
	renamed := filepath.Join(dir, "bar.py")
	require.NoError(t, os.Rename(old, renamed))

	removed := c.RemoveStale(map[string]struct{}{"bar.py": {}})
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, c.Len())

	_, ok := c.Get(renamed, "bar.py")
	assert.False(t, ok)
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.py")
	writeFile(t, src, "def add(a, b):\n    return a + b\n")
	path := filepath.Join(dir, "cache.json")

	c := Load(path)
	require.NoError(t, c.Update(src, "a.py", oneSymbol("a.py")))
	require.NoError(t, c.Save())

	reloaded := Load(path)
	assert.Equal(t, 1, reloaded.Len())
	symbols, ok := reloaded.Get(src, "a.py")
	require.True(t, ok)
	assert.Equal(t, "add(a, b)", symbols[0].Signature)
}

func TestVersionMismatchDiscardsCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.json")

	stale, err := json.Marshal(map[string]interface{}{
		"version": Version - 1,
		"files":   map[string]Entry{"a.py": {Mtime: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, stale, 0o644))

	c := Load(path)
	assert.Equal(t, 0, c.Len())
}

func TestCorruptCacheDiscarded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	c := Load(path)
	assert.Equal(t, 0, c.Len())
}
