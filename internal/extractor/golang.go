package extractor

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/codemap/repomap-mcp/pkg/types"
)

// goExtractor extracts struct/interface types, functions, and methods from
// Go sources. Types are reported as classes; a method's parent is its
// receiver's base type name.
type goExtractor struct{}

func newGo() *goExtractor { return &goExtractor{} }

func (*goExtractor) Language() types.Language { return types.LangGo }

func (*goExtractor) Extensions() []string { return []string{"go"} }

func (*goExtractor) Extract(ctx context.Context, relPath string, src []byte) []types.Symbol {
	tree := parseTree(ctx, golang.GetLanguage(), src)
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
		case "source_file":
			stack = pushChildren(stack, node, "")

		case "type_declaration":
			doc := lineCommentsBefore(node, src)
			for i := 0; i < int(node.NamedChildCount()); i++ {
				spec := node.NamedChild(i)
				if spec.Type() != "type_spec" {
					continue
				}
				typeNode := spec.ChildByFieldName("type")
				nameNode := spec.ChildByFieldName("name")
				if typeNode == nil || nameNode == nil {
					continue
				}
				switch typeNode.Type() {
				case "struct_type", "interface_type":
					name := nodeText(nameNode, src)
					symbols = append(symbols, types.Symbol{
						Name:      name,
						Kind:      types.KindClass,
						Signature: name,
						Docstring: doc,
						FilePath:  relPath,
						LineStart: startLine(spec),
						LineEnd:   endLine(spec),
					})
				}
			}

		case "function_declaration":
			if nameNode := node.ChildByFieldName("name"); nameNode != nil {
				symbols = append(symbols, types.Symbol{
					Name:      nodeText(nameNode, src),
					Kind:      types.KindFunction,
					Signature: goSignature(node, src),
					Docstring: lineCommentsBefore(node, src),
					FilePath:  relPath,
					LineStart: startLine(node),
					LineEnd:   endLine(node),
				})
			}

		case "method_declaration":
			nameNode := node.ChildByFieldName("name")
			if nameNode == nil {
				break
			}
			symbols = append(symbols, types.Symbol{
				Name:      nodeText(nameNode, src),
				Kind:      types.KindMethod,
				Signature: goSignature(node, src),
				Docstring: lineCommentsBefore(node, src),
				FilePath:  relPath,
				LineStart: startLine(node),
				LineEnd:   endLine(node),
				Parent:    goReceiverType(node, src),
			})
		}
	}

	return symbols
}

// goSignature renders name(params) result without the func keyword.
func goSignature(node *sitter.Node, src []byte) string {
	sig := nodeText(node.ChildByFieldName("name"), src)
	sig += nodeText(node.ChildByFieldName("parameters"), src)
	if result := node.ChildByFieldName("result"); result != nil {
		sig += " " + nodeText(result, src)
	}
	return sig
}

// goReceiverType returns the base type name of a method receiver, with any
// pointer and type-parameter decoration stripped.
func goReceiverType(node *sitter.Node, src []byte) string {
	receiver := node.ChildByFieldName("receiver")
	if receiver == nil || receiver.NamedChildCount() == 0 {
		return ""
	}
	decl := receiver.NamedChild(0)
	typeNode := decl.ChildByFieldName("type")
	if typeNode == nil {
		return ""
	}
	name := nodeText(typeNode, src)
	name = strings.TrimPrefix(name, "*")
	if idx := strings.IndexByte(name, '['); idx >= 0 {
		name = name[:idx]
	}
	return name
}
