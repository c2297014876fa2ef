package analysis

import (
	"github.com/codemap/repomap-mcp/pkg/types"
)

// KindCoverage tallies documentation coverage for one symbol kind.
type KindCoverage struct {
	Total        int
	Documented   int
	Undocumented []types.Symbol
}

// Percent returns documented/total as a percentage, 100 for an empty kind.
func (k KindCoverage) Percent() float64 {
	if k.Total == 0 {
		return 100
	}
	return float64(k.Documented) / float64(k.Total) * 100
}

// Coverage is documentation coverage broken down by kind. Private symbols
// are not counted against coverage.
type Coverage struct {
	Classes   KindCoverage
	Functions KindCoverage
	Methods   KindCoverage
}

// ComputeCoverage tallies which public symbols carry documentation.
func ComputeCoverage(symbols []types.Symbol) Coverage {
	var cov Coverage
	for _, s := range symbols {
		if len(s.Name) > 0 && s.Name[0] == '_' {
			continue
		}
		var kind *KindCoverage
		switch s.Kind {
		case types.KindClass:
			kind = &cov.Classes
		case types.KindFunction:
			kind = &cov.Functions
		case types.KindMethod:
			kind = &cov.Methods
		default:
			continue
		}
		kind.Total++
		if s.Docstring != "" {
			kind.Documented++
		} else {
			kind.Undocumented = append(kind.Undocumented, s)
		}
	}
	return cov
}
