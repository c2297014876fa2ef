package extractor

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"

	"github.com/codemap/repomap-mcp/pkg/types"
)

// cppExtractor extracts classes, structs, free functions, and methods
// (including in-class prototypes) from C++ sources. Structs are reported as
// classes so same-kind similarity comparison covers both.
type cppExtractor struct{}

func newCpp() *cppExtractor { return &cppExtractor{} }

func (*cppExtractor) Language() types.Language { return types.LangCpp }

func (*cppExtractor) Extensions() []string {
	return []string{"cpp", "cc", "cxx", "hpp", "h", "hxx"}
}

func (*cppExtractor) Extract(ctx context.Context, relPath string, src []byte) []types.Symbol {
	tree := parseTree(ctx, cpp.GetLanguage(), src)
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
		case "class_specifier", "struct_specifier":
			nameNode := node.ChildByFieldName("name")
			if nameNode == nil {
				break
			}
			name := nodeText(nameNode, src)
			// Doc comments may sit before an enclosing declaration wrapper.
			doc := docCommentBefore(node, src)
			if doc == "" {
				if p := node.Parent(); p != nil && p.Type() != "translation_unit" {
					doc = docCommentBefore(p, src)
				}
			}
			symbols = append(symbols, types.Symbol{
				Name:      name,
				Kind:      types.KindClass,
				Signature: name,
				Docstring: doc,
				FilePath:  relPath,
				LineStart: startLine(node),
				LineEnd:   endLine(node),
			})
			stack = pushChildren(stack, node, name)
			continue

		case "function_definition":
			declarator := node.ChildByFieldName("declarator")
			if declarator == nil {
				break
			}
			sym := types.Symbol{
				Name:      cppFuncName(declarator, src),
				Kind:      types.KindFunction,
				Signature: nodeText(declarator, src),
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

		case "declaration":
			// Method prototypes inside a class body.
			if f.parent == "" {
				break
			}
			for i := 0; i < int(node.NamedChildCount()); i++ {
				child := node.NamedChild(i)
				if child.Type() != "function_declarator" {
					continue
				}
				symbols = append(symbols, types.Symbol{
					Name:      cppFuncName(child, src),
					Kind:      types.KindMethod,
					Signature: nodeText(child, src),
					Docstring: docCommentBefore(node, src),
					FilePath:  relPath,
					LineStart: startLine(node),
					LineEnd:   endLine(node),
					Parent:    f.parent,
				})
			}
		}

		stack = pushChildren(stack, node, f.parent)
	}

	return symbols
}

// cppFuncName digs the bare function name out of a declarator, stripping
// any ClassName:: qualification.
func cppFuncName(declarator *sitter.Node, src []byte) string {
	if declarator.Type() == "function_declarator" {
		if inner := declarator.ChildByFieldName("declarator"); inner != nil {
			text := nodeText(inner, src)
			if idx := strings.LastIndex(text, "::"); idx >= 0 {
				return text[idx+2:]
			}
			return text
		}
	}
	return nodeText(declarator, src)
}
