package pipeline

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codemap/repomap-mcp/internal/config"
	"github.com/codemap/repomap-mcp/internal/extractor"
)

// excludedDirs are directory names skipped during discovery. These are
// dependency, VCS, and build-output trees that would swamp the index with
// third-party symbols. vendor/ is deliberately absent: vendored code is
// part of what gets navigated.
var excludedDirs = map[string]struct{}{
	"node_modules":   {},
	".git":           {},
	"__pycache__":    {},
	"venv":           {},
	".venv":          {},
	"target":         {},
	"build":          {},
	"dist":           {},
	".next":          {},
	".cache":         {},
	".tox":           {},
	".pytest_cache":  {},
	".mypy_cache":    {},
	".ruff_cache":    {},
	"site-packages":  {},
	"eggs":           {},
	".eggs":          {},
	config.DataDirName: {},
}

// SourceFile is one discovered candidate for extraction.
type SourceFile struct {
	AbsPath string
	RelPath string
}

// Discover walks the repository and returns every file whose extension has
// a registered extractor, in deterministic path order. Relative paths use
// forward slashes regardless of platform.
func Discover(root string, registry *extractor.Registry) ([]SourceFile, error) {
	supported := map[string]struct{}{}
	for _, ext := range registry.Extensions() {
		supported[ext] = struct{}{}
	}

	var files []SourceFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if _, excluded := excludedDirs[d.Name()]; excluded && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		if _, ok := supported[ext]; !ok {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		files = append(files, SourceFile{
			AbsPath: path,
			RelPath: filepath.ToSlash(rel),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}
