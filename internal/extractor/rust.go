package extractor

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/codemap/repomap-mcp/pkg/types"
)

// rustExtractor extracts structs, enums, free functions, and impl-block
// methods from Rust sources. Structs and enums are reported as classes so
// same-kind similarity comparison covers them.
type rustExtractor struct{}

func newRust() *rustExtractor { return &rustExtractor{} }

func (*rustExtractor) Language() types.Language { return types.LangRust }

func (*rustExtractor) Extensions() []string { return []string{"rs"} }

func (*rustExtractor) Extract(ctx context.Context, relPath string, src []byte) []types.Symbol {
	tree := parseTree(ctx, rust.GetLanguage(), src)
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
		case "struct_item", "enum_item":
			if nameNode := node.ChildByFieldName("name"); nameNode != nil {
				name := nodeText(nameNode, src)
				symbols = append(symbols, types.Symbol{
					Name:      name,
					Kind:      types.KindClass,
					Signature: name,
					Docstring: docCommentBefore(node, src),
					FilePath:  relPath,
					LineStart: startLine(node),
					LineEnd:   endLine(node),
				})
			}

		case "impl_item":
			// Functions inside the impl body become methods of the target type.
			if typeNode := node.ChildByFieldName("type"); typeNode != nil {
				stack = pushChildren(stack, node, nodeText(typeNode, src))
				continue
			}

		case "function_item":
			nameNode := node.ChildByFieldName("name")
			if nameNode == nil {
				break
			}
			sym := types.Symbol{
				Name:      nodeText(nameNode, src),
				Kind:      types.KindFunction,
				Signature: rustSignature(node, src),
				Docstring: docCommentBefore(node, src),
				FilePath:  relPath,
				LineStart: startLine(node),
				LineEnd:   endLine(node),
			}
			if f.parent != "" {
				sym.Kind = types.KindMethod
				sym.Parent = f.parent
			}
			symbols = append(symbols, sym)
		}

		stack = pushChildren(stack, node, f.parent)
	}

	return symbols
}

// rustSignature renders fn_name(params) -> Ret in Rust's own idiom.
func rustSignature(node *sitter.Node, src []byte) string {
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
