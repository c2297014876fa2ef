package extractor

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/codemap/repomap-mcp/pkg/types"
)

// jsExtractor extracts classes, class methods, and top-level functions from
// JavaScript sources, including exported declarations.
type jsExtractor struct{}

func newJavaScript() *jsExtractor { return &jsExtractor{} }

func (*jsExtractor) Language() types.Language { return types.LangJavaScript }

func (*jsExtractor) Extensions() []string { return []string{"js", "mjs", "cjs"} }

func (*jsExtractor) Extract(ctx context.Context, relPath string, src []byte) []types.Symbol {
	tree := parseTree(ctx, javascript.GetLanguage(), src)
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
		case "program", "export_statement", "class_body":
			stack = pushChildren(stack, node, f.parent)

		case "class_declaration", "class":
			nameNode := node.ChildByFieldName("name")
			if nameNode == nil {
				break
			}
			name := nodeText(nameNode, src)
			symbols = append(symbols, types.Symbol{
				Name:      name,
				Kind:      types.KindClass,
				Signature: "class " + name,
				Docstring: jsDoc(node, src),
				FilePath:  relPath,
				LineStart: startLine(node),
				LineEnd:   endLine(node),
			})
			if body := node.ChildByFieldName("body"); body != nil {
				stack = append(stack, frame{body, name})
			}

		case "method_definition":
			nameNode := node.ChildByFieldName("name")
			if nameNode == nil || f.parent == "" {
				break
			}
			name := nodeText(nameNode, src)
			symbols = append(symbols, types.Symbol{
				Name:      name,
				Kind:      types.KindMethod,
				Signature: name + nodeText(node.ChildByFieldName("parameters"), src),
				Docstring: docCommentBefore(node, src),
				FilePath:  relPath,
				LineStart: startLine(node),
				LineEnd:   endLine(node),
				Parent:    f.parent,
			})

		case "function_declaration", "generator_function_declaration":
			nameNode := node.ChildByFieldName("name")
			if nameNode == nil {
				break
			}
			name := nodeText(nameNode, src)
			symbols = append(symbols, types.Symbol{
				Name:      name,
				Kind:      types.KindFunction,
				Signature: name + nodeText(node.ChildByFieldName("parameters"), src),
				Docstring: jsDoc(node, src),
				FilePath:  relPath,
				LineStart: startLine(node),
				LineEnd:   endLine(node),
			})
		}
	}

	return symbols
}

// jsDoc looks for a doc comment above the node itself, then above the
// export statement that wraps it.
func jsDoc(n *sitter.Node, src []byte) string {
	if doc := docCommentBefore(n, src); doc != "" {
		return doc
	}
	if p := n.Parent(); p != nil && p.Type() == "export_statement" {
		return docCommentBefore(p, src)
	}
	return ""
}
