package pipeline

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/codemap/repomap-mcp/internal/analysis"
	"github.com/codemap/repomap-mcp/pkg/types"
)

type reportData struct {
	Root             string
	Symbols          []types.Symbol
	Languages        map[types.Language]int
	Coverage         analysis.Coverage
	SimilarClasses   []analysis.SimilarPair
	SimilarFunctions []analysis.SimilarPair
}

// writeReport renders the human-readable repository map and replaces the
// previous one atomically.
func writeReport(path string, data reportData) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Repository Map\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", time.Now().UTC().Format(time.RFC3339))

	byFile := map[string][]types.Symbol{}
	var fileOrder []string
	for _, s := range data.Symbols {
		if _, seen := byFile[s.FilePath]; !seen {
			fileOrder = append(fileOrder, s.FilePath)
		}
		byFile[s.FilePath] = append(byFile[s.FilePath], s)
	}

	fmt.Fprintf(&b, "## Summary\n\n")
	fmt.Fprintf(&b, "- Files with symbols: %d\n", len(fileOrder))
	fmt.Fprintf(&b, "- Symbols: %d\n", len(data.Symbols))
	if len(data.Languages) > 0 {
		langs := make([]string, 0, len(data.Languages))
		for lang := range data.Languages {
			langs = append(langs, string(lang))
		}
		sort.Strings(langs)
		var parts []string
		for _, lang := range langs {
			parts = append(parts, fmt.Sprintf("%s %d", lang, data.Languages[types.Language(lang)]))
		}
		fmt.Fprintf(&b, "- Languages: %s\n", strings.Join(parts, ", "))
	}
	cov := data.Coverage
	fmt.Fprintf(&b, "- Documentation coverage: classes %.0f%%, functions %.0f%%, methods %.0f%%\n\n",
		cov.Classes.Percent(), cov.Functions.Percent(), cov.Methods.Percent())

	writeSimilarSection(&b, "Similar Classes", data.SimilarClasses)
	writeSimilarSection(&b, "Similar Functions", data.SimilarFunctions)

	fmt.Fprintf(&b, "## Files\n\n")
	for _, file := range fileOrder {
		fmt.Fprintf(&b, "### %s\n\n", file)
		for _, s := range byFile[file] {
			if strings.HasPrefix(s.Name, "_") {
				continue
			}
			indent := ""
			if s.Kind == types.KindMethod {
				indent = "  "
			}
			fmt.Fprintf(&b, "%s- `%s` (%s, line %d)", indent, s.Signature, s.Kind, s.LineStart)
			if s.Docstring != "" {
				fmt.Fprintf(&b, ": %s", s.Docstring)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace report: %w", err)
	}
	return nil
}

func writeSimilarSection(b *strings.Builder, title string, pairs []analysis.SimilarPair) {
	if len(pairs) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	fmt.Fprintf(b, "Possible duplicates worth consolidating:\n\n")
	for _, p := range pairs {
		fmt.Fprintf(b, "- `%s` (%s) vs `%s` (%s): %s\n",
			p.A.FullName(), p.A.Location(), p.B.FullName(), p.B.Location(),
			strings.Join(p.Reasons, ", "))
	}
	b.WriteString("\n")
}
