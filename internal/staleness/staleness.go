// Package staleness decides whether the index needs a rebuild.
//
// The checks are ordered from cheapest to most expensive and the first
// failure wins: missing artifacts, cache format drift, a changed file
// count, then a bounded mtime sample. The mtime sample covers only the
// first files in discovery order, trading completeness for a check cheap
// enough to run every minute.
package staleness

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/codemap/repomap-mcp/internal/cache"
	"github.com/codemap/repomap-mcp/internal/config"
	"github.com/codemap/repomap-mcp/internal/extractor"
	"github.com/codemap/repomap-mcp/internal/pipeline"
)

// mtimeSampleSize bounds how many files the freshness probe stats.
const mtimeSampleSize = 100

// Check reports whether the index for root is stale and why. A healthy
// index returns (false, "").
func Check(root string) (bool, string) {
	dbPath := config.DBPath(root)
	dbInfo, err := os.Stat(dbPath)
	if err != nil {
		return true, "index database missing"
	}

	cachePath := config.CachePath(root)
	data, err := os.ReadFile(cachePath)
	if err != nil {
		return true, "parse cache missing"
	}
	var header struct {
		Version int                        `json:"version"`
		Files   map[string]json.RawMessage `json:"files"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return true, "parse cache unreadable"
	}
	if header.Version != cache.Version {
		return true, fmt.Sprintf("cache format version %d, expected %d", header.Version, cache.Version)
	}

	files, err := pipeline.Discover(root, extractor.NewRegistry())
	if err != nil {
		return true, fmt.Sprintf("discovery failed: %v", err)
	}
	if len(files) != len(header.Files) {
		return true, fmt.Sprintf("file count changed (%d tracked, %d on disk)", len(header.Files), len(files))
	}

	dbMtime := dbInfo.ModTime()
	sample := files
	if len(sample) > mtimeSampleSize {
		sample = sample[:mtimeSampleSize]
	}
	for _, f := range sample {
		info, statErr := os.Stat(f.AbsPath)
		if statErr != nil {
			return true, fmt.Sprintf("%s vanished", f.RelPath)
		}
		if info.ModTime().After(dbMtime) {
			return true, fmt.Sprintf("%s modified after last index", f.RelPath)
		}
	}

	return false, ""
}
