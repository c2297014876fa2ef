// Package analysis finds near-duplicate symbols and computes documentation
// coverage over an extracted symbol set.
package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/codemap/repomap-mcp/pkg/types"
)

// Doc length floors below which docstring similarity is too noisy to trust.
const (
	minClassDocLen    = 30
	minFunctionDocLen = 20
)

// SimilarPair is a reported near-duplicate with the reasons that matched.
type SimilarPair struct {
	A       types.Symbol
	B       types.Symbol
	Reasons []string
}

// Thresholds carries the minimum similarity scores for a pair to report.
type Thresholds struct {
	Name float64
	Doc  float64
}

// FindSimilarClasses compares all classes pairwise and reports those whose
// normalized names or docstrings exceed the thresholds. Classes named like
// tests are skipped, as are pairs within one file or across languages.
func FindSimilarClasses(symbols []types.Symbol, th Thresholds) []SimilarPair {
	var classes []types.Symbol
	for _, s := range symbols {
		if s.Kind != types.KindClass || strings.HasPrefix(s.Name, "Test") {
			continue
		}
		classes = append(classes, s)
	}
	return findPairs(classes, th, minClassDocLen)
}

// FindSimilarFunctions does the same over top-level functions, skipping
// methods, private (underscore-prefixed) functions, and test functions.
func FindSimilarFunctions(symbols []types.Symbol, th Thresholds) []SimilarPair {
	var funcs []types.Symbol
	for _, s := range symbols {
		if s.Kind != types.KindFunction {
			continue
		}
		if strings.HasPrefix(s.Name, "_") || strings.HasPrefix(s.Name, "test_") {
			continue
		}
		funcs = append(funcs, s)
	}
	return findPairs(funcs, th, minFunctionDocLen)
}

func findPairs(symbols []types.Symbol, th Thresholds, minDocLen int) []SimilarPair {
	var pairs []SimilarPair
	seen := map[string]struct{}{}

	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			a, b := symbols[i], symbols[j]
			if a.FilePath == b.FilePath {
				continue
			}
			if types.LanguageForPath(a.FilePath) != types.LanguageForPath(b.FilePath) {
				continue
			}

			var reasons []string
			if score := similarity(normalizeName(a.Name), normalizeName(b.Name)); score >= th.Name {
				reasons = append(reasons, fmt.Sprintf("similar names (%.0f%%)", score*100))
			}
			if len(a.Docstring) >= minDocLen && len(b.Docstring) >= minDocLen {
				if score := similarity(normalizeName(a.Docstring), normalizeName(b.Docstring)); score >= th.Doc {
					reasons = append(reasons, fmt.Sprintf("similar docs (%.0f%%)", score*100))
				}
			}
			if len(reasons) == 0 {
				continue
			}

			key := pairKey(a, b)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			pairs = append(pairs, SimilarPair{A: a, B: b, Reasons: reasons})
		}
	}
	return pairs
}

// similarity scores two strings in [0, 1] using normalized Levenshtein
// distance. Identical strings score 1.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	score, err := edlib.StringsSimilarity(a, b, edlib.Levenshtein)
	if err != nil {
		return 0
	}
	return float64(score)
}

// normalizeName lowercases and strips underscores so snake_case and
// camelCase spellings of the same identifier compare equal. Docstrings go
// through the same normalization before scoring.
func normalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "")
}

// pairKey is order-independent so A-vs-B and B-vs-A dedupe to one report.
func pairKey(a, b types.Symbol) string {
	locs := []string{a.Location(), b.Location()}
	sort.Strings(locs)
	return locs[0] + "|" + locs[1]
}
