package extractor

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/codemap/repomap-mcp/pkg/types"
)

// pythonExtractor extracts classes, top-level functions, and methods from
// Python sources. Nested functions are deliberately skipped.
type pythonExtractor struct{}

func newPython() *pythonExtractor { return &pythonExtractor{} }

func (*pythonExtractor) Language() types.Language { return types.LangPython }

func (*pythonExtractor) Extensions() []string { return []string{"py", "pyi"} }

func (*pythonExtractor) Extract(ctx context.Context, relPath string, src []byte) []types.Symbol {
	tree := parseTree(ctx, python.GetLanguage(), src)
	if tree == nil {
		return nil
	}
	defer tree.Close()

	var symbols []types.Symbol
	stack := []frame{{tree.RootNode(), ""}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := f.node

		switch node.Type() {
		case "module", "block":
			stack = pushChildren(stack, node, f.parent)

		case "decorated_definition":
			if def := node.ChildByFieldName("definition"); def != nil {
				stack = append(stack, frame{def, f.parent})
			}

		case "class_definition":
			nameNode := node.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			name := nodeText(nameNode, src)
			symbols = append(symbols, types.Symbol{
				Name:      name,
				Kind:      types.KindClass,
				Signature: name,
				Docstring: pyDocstring(node, src),
				FilePath:  relPath,
				LineStart: startLine(node),
				LineEnd:   endLine(node),
			})
			// Only direct members of the class body become methods.
			if body := node.ChildByFieldName("body"); body != nil {
				stack = append(stack, frame{body, name})
			}

		case "function_definition":
			nameNode := node.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			sym := types.Symbol{
				Name:      nodeText(nameNode, src),
				Kind:      types.KindFunction,
				Signature: pySignature(node, src),
				Docstring: pyDocstring(node, src),
				FilePath:  relPath,
				LineStart: startLine(node),
				LineEnd:   endLine(node),
			}
			if f.parent != "" {
				sym.Kind = types.KindMethod
				sym.Parent = f.parent
			}
			symbols = append(symbols, sym)
			// Do not descend: nested defs are not indexed.
		}
	}

	return symbols
}

// pySignature renders name(params) -> ret in Python's own idiom.
func pySignature(node *sitter.Node, src []byte) string {
	name := nodeText(node.ChildByFieldName("name"), src)
	params := nodeText(node.ChildByFieldName("parameters"), src)
	if params == "" {
		params = "()"
	}
	sig := name + params
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		sig += " -> " + nodeText(ret, src)
	}
	return sig
}

// pyDocstring returns the summary of a def/class body's leading docstring.
func pyDocstring(node *sitter.Node, src []byte) string {
	body := node.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Type() != "string" {
		return ""
	}
	return summarize(pyStringText(str, src))
}

// pyStringText returns a string literal's content without quotes or prefixes.
func pyStringText(str *sitter.Node, src []byte) string {
	for i := 0; i < int(str.NamedChildCount()); i++ {
		if child := str.NamedChild(i); child.Type() == "string_content" {
			return nodeText(child, src)
		}
	}
	// Fallback for grammars without string_content nodes.
	text := nodeText(str, src)
	text = strings.TrimLeft(text, "rRbBuUfF")
	for _, q := range []string{`"""`, "'''", `"`, "'"} {
		if strings.HasPrefix(text, q) {
			text = strings.TrimPrefix(text, q)
			text = strings.TrimSuffix(text, q)
			break
		}
	}
	return text
}
