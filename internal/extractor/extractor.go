package extractor

import (
	"context"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/codemap/repomap-mcp/pkg/types"
)

// Extractor turns a file's source text into symbols using grammar-aware
// parsing. Extract must never fail: on a parse error it returns nil and the
// caller proceeds without symbols for that file.
type Extractor interface {
	Language() types.Language
	Extensions() []string
	Extract(ctx context.Context, relPath string, src []byte) []types.Symbol
}

// Registry selects an extractor by file extension.
type Registry struct {
	byExt map[string]Extractor
	all   []Extractor
}

// NewRegistry returns a registry with all built-in language extractors.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	for _, e := range []Extractor{
		newPython(),
		newCpp(),
		newRust(),
		newGo(),
		newJavaScript(),
	} {
		r.register(e)
	}
	return r
}

func (r *Registry) register(e Extractor) {
	r.all = append(r.all, e)
	for _, ext := range e.Extensions() {
		r.byExt[ext] = e
	}
}

// ForPath returns the extractor responsible for a file, or nil if the
// extension is not recognized.
func (r *Registry) ForPath(path string) Extractor {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return r.byExt[ext]
}

// Extensions returns all registered file extensions, without the dot.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	return exts
}

// frame is one entry of the explicit traversal stack. Traversal is iterative
// so that deeply nested or generated code cannot blow the stack.
type frame struct {
	node   *sitter.Node
	parent string // enclosing class/impl-target name, or ""
}

// parseTree parses source with the given grammar. Returns nil on failure;
// a file that cannot be parsed simply contributes no symbols.
func parseTree(ctx context.Context, lang *sitter.Language, src []byte) *sitter.Tree {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil
	}
	return tree
}

func nodeText(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return n.Content(src)
}

// pushChildren pushes a node's named children in reverse so they pop in
// source order.
func pushChildren(stack []frame, n *sitter.Node, parent string) []frame {
	for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
		stack = append(stack, frame{n.NamedChild(i), parent})
	}
	return stack
}

// summarize reduces a documentation block to its first line, truncated with
// an ellipsis when over 100 characters.
func summarize(doc string) string {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return ""
	}
	first := strings.TrimSpace(strings.SplitN(doc, "\n", 2)[0])
	runes := []rune(first)
	if len(runes) > 100 {
		return string(runes[:97]) + "..."
	}
	return first
}

// docCommentBefore extracts the doc comment block (///, //!, /**) preceding
// a node and returns the summary of its topmost line.
func docCommentBefore(n *sitter.Node, src []byte) string {
	var top string
	prev := n.PrevNamedSibling()
	for prev != nil {
		switch prev.Type() {
		case "comment", "line_comment", "block_comment":
		default:
			prev = nil
			continue
		}
		text := strings.TrimSpace(prev.Content(src))
		if strings.HasPrefix(text, "///") || strings.HasPrefix(text, "//!") || strings.HasPrefix(text, "/**") {
			top = text
			prev = prev.PrevNamedSibling()
			continue
		}
		break
	}
	if top == "" {
		return ""
	}
	switch {
	case strings.HasPrefix(top, "///"):
		top = top[3:]
	case strings.HasPrefix(top, "//!"):
		top = top[3:]
	case strings.HasPrefix(top, "/**"):
		top = strings.TrimSuffix(top[3:], "*/")
		top = strings.TrimLeft(top, "*")
	}
	return summarize(top)
}

// lineCommentsBefore extracts a contiguous block of plain // comments
// directly above a node, as Go uses for godoc.
func lineCommentsBefore(n *sitter.Node, src []byte) string {
	var top string
	prev := n.PrevNamedSibling()
	for prev != nil && prev.Type() == "comment" {
		text := strings.TrimSpace(prev.Content(src))
		if !strings.HasPrefix(text, "//") {
			break
		}
		top = strings.TrimSpace(strings.TrimPrefix(text, "//"))
		prev = prev.PrevNamedSibling()
	}
	return summarize(top)
}

func startLine(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

func endLine(n *sitter.Node) int {
	return int(n.EndPoint().Row) + 1
}
