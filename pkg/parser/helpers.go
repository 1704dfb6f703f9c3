package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"serpent/interpreter-go/pkg/ast"
)

// DefaultMaxDepth bounds statement and expression nesting while the
// concrete tree is converted. Statements, expressions and f-string
// replacement fields count; helper nodes such as arguments, keyword and
// comprehension do not, so the typed tree can be deeper than this (see
// pyast.DepthForParser).
const DefaultMaxDepth = 1000

// parseContext carries the source bytes and the nesting counter shared by
// the conversion helpers.
type parseContext struct {
	source   []byte
	depth    int
	maxDepth int
}

func newParseContext(source []byte, maxDepth int) *parseContext {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &parseContext{source: source, maxDepth: maxDepth}
}

func (ctx *parseContext) enter(node *sitter.Node) error {
	ctx.depth++
	if ctx.depth > ctx.maxDepth {
		ctx.depth--
		return &ParseError{Message: ErrTooDeep.Error(), Location: locationForNode(node), Err: ErrTooDeep}
	}
	return nil
}

func (ctx *parseContext) leave() {
	ctx.depth--
}

func (ctx *parseContext) text(node *sitter.Node) string {
	return sliceContent(node, ctx.source)
}

func sliceContent(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return sliceRange(source, node.StartByte(), node.EndByte())
}

func sliceRange(source []byte, start, end uint) string {
	if end < start || end > uint(len(source)) {
		return ""
	}
	return string(source[start:end])
}

func isIgnorableNode(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	switch node.Kind() {
	case "comment", "line_continuation":
		return true
	default:
		return false
	}
}

// namedChildren lists the named children of node, skipping comments.
func namedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, node.NamedChildCount())
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || isIgnorableNode(child) {
			continue
		}
		out = append(out, child)
	}
	return out
}

// fieldChildren lists every child of node stored under field.
func fieldChildren(node *sitter.Node, field string) []*sitter.Node {
	var out []*sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		if node.FieldNameForChild(uint32(i)) != field {
			continue
		}
		if child := node.Child(i); child != nil {
			out = append(out, child)
		}
	}
	return out
}

// hasToken reports whether node has an anonymous child spelled kind.
func hasToken(node *sitter.Node, kind string) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && !child.IsNamed() && child.Kind() == kind {
			return true
		}
	}
	return false
}

func locOf(node *sitter.Node) ast.Location {
	start := node.StartPosition()
	return ast.Location{Row: int(start.Row) + 1, Column: int(start.Column)}
}

func at(node *sitter.Node) ast.Located {
	return ast.Located{Loc: locOf(node)}
}
