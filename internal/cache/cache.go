// Package cache implements the incremental parse cache.
//
// The cache maps repository-relative paths to the symbols last extracted
// from them, keyed by mtime with a content hash tiebreaker. A touched but
// unmodified file (mtime changed, hash identical) is a hit; its recorded
// mtime is refreshed so later lookups take the fast path. The cache is a
// versioned JSON artifact and any file that cannot be decoded, or carries
// a different version, is discarded wholesale.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/codemap/repomap-mcp/pkg/types"
)

// Version identifies the cache layout. Bump it whenever the entry shape or
// extraction semantics change so stale caches are rebuilt instead of
// half-trusted.
const Version = 5

// saveInterval is how many updated entries accumulate before SaveIfNeeded
// persists, bounding lost work if the indexer dies mid-run.
const saveInterval = 50

// Entry records one file's extraction result.
type Entry struct {
	Mtime       float64        `json:"mtime"`
	ContentHash string         `json:"content_hash"`
	Symbols     []types.Symbol `json:"symbols"`
}

type fileFormat struct {
	Version int              `json:"version"`
	Files   map[string]Entry `json:"files"`
}

// Cache is not safe for concurrent use. The pipeline confines all cache
// mutation to its orchestrator goroutine.
type Cache struct {
	path    string
	files   map[string]Entry
	pending int
}

// Load reads the cache at path. A missing, corrupt, or version-mismatched
// file yields an empty cache, never an error.
func Load(path string) *Cache {
	c := &Cache{path: path, files: map[string]Entry{}}
	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	var decoded fileFormat
	if err := json.Unmarshal(data, &decoded); err != nil || decoded.Version != Version {
		return c
	}
	if decoded.Files != nil {
		c.files = decoded.Files
	}
	return c
}

// Len reports the number of cached files.
func (c *Cache) Len() int { return len(c.files) }

// Get returns the cached symbols for relPath if the file at absPath is
// unchanged. A file whose mtime moved but whose content hash still matches
// is a hit, and its entry is refreshed in place.
func (c *Cache) Get(absPath, relPath string) ([]types.Symbol, bool) {
	entry, ok := c.files[relPath]
	if !ok {
		return nil, false
	}
	info, err := os.Stat(absPath)
	if err != nil {
		delete(c.files, relPath)
		return nil, false
	}
	mtime := float64(info.ModTime().UnixNano()) / 1e9
	if mtime == entry.Mtime {
		return entry.Symbols, true
	}
	hash, err := hashFile(absPath)
	if err != nil || hash != entry.ContentHash {
		return nil, false
	}
	entry.Mtime = mtime
	c.files[relPath] = entry
	c.pending++
	return entry.Symbols, true
}

// Update records freshly extracted symbols for relPath.
func (c *Cache) Update(absPath, relPath string, symbols []types.Symbol) error {
	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", absPath, err)
	}
	hash, err := hashFile(absPath)
	if err != nil {
		return fmt.Errorf("hash %s: %w", absPath, err)
	}
	c.files[relPath] = Entry{
		Mtime:       float64(info.ModTime().UnixNano()) / 1e9,
		ContentHash: hash,
		Symbols:     symbols,
	}
	c.pending++
	return nil
}

// RemoveStale drops entries for paths absent from the current discovery
// set, so deleted or renamed files stop contributing symbols.
func (c *Cache) RemoveStale(valid map[string]struct{}) int {
	removed := 0
	for relPath := range c.files {
		if _, ok := valid[relPath]; !ok {
			delete(c.files, relPath)
			removed++
		}
	}
	if removed > 0 {
		c.pending += removed
	}
	return removed
}

// Save writes the cache atomically via a temp file rename.
func (c *Cache) Save() error {
	data, err := json.Marshal(fileFormat{Version: Version, Files: c.files})
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace cache: %w", err)
	}
	c.pending = 0
	return nil
}

// SaveIfNeeded persists once enough updates have accumulated.
func (c *Cache) SaveIfNeeded() error {
	if c.pending < saveInterval {
		return nil
	}
	return c.Save()
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
