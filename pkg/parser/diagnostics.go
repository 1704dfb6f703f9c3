package parser

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// SourceLocation captures a source span for parser diagnostics. Lines and
// columns are 1-based.
type SourceLocation struct {
	Line      int
	Column    int
	EndLine   int
	EndColumn int
}

// ParseError includes a message plus a best-effort source location.
type ParseError struct {
	Message  string
	Location SourceLocation
	Err      error
}

func (e *ParseError) Error() string {
	if e.Location.Line == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (line %d, column %d)", e.Message, e.Location.Line, e.Location.Column)
}

// ErrTooDeep is wrapped by the ParseError reported for source nested beyond
// the converter's depth limit.
var ErrTooDeep = errors.New("parser: too many nested expressions")

func (e *ParseError) Unwrap() error {
	return e.Err
}

func wrapParseError(node *sitter.Node, err error) error {
	if err == nil {
		return nil
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return parseErr
	}
	if node == nil {
		return err
	}
	return &ParseError{
		Message:  err.Error(),
		Location: locationForNode(node),
	}
}

func errorAt(node *sitter.Node, format string, args ...any) *ParseError {
	return &ParseError{
		Message:  "parser: " + fmt.Sprintf(format, args...),
		Location: locationForNode(node),
	}
}

func unsupported(node *sitter.Node) *ParseError {
	return errorAt(node, "unsupported syntax: %s", strings.ReplaceAll(node.Kind(), "_", " "))
}

// syntaxError reports the earliest MISSING node tree-sitter inserted, naming
// what it stands for, or failing that the earliest ERROR node.
func syntaxError(root *sitter.Node) *ParseError {
	if missing := earliest(root, (*sitter.Node).IsMissing); missing != nil {
		return errorAt(missing, "syntax error: expected %s", describeKind(missing.Kind()))
	}
	if bad := earliest(root, (*sitter.Node).IsError); bad != nil {
		return errorAt(bad, "syntax error")
	}
	return errorAt(root, "syntax error")
}

func locationForNode(node *sitter.Node) SourceLocation {
	if node == nil {
		return SourceLocation{}
	}
	start := node.StartPosition()
	end := node.EndPosition()
	return SourceLocation{
		Line:      int(start.Row) + 1,
		Column:    int(start.Column) + 1,
		EndLine:   int(end.Row) + 1,
		EndColumn: int(end.Column) + 1,
	}
}

// earliest returns the node with the smallest start byte among those
// matching pred, searching root and all its descendants.
func earliest(root *sitter.Node, pred func(*sitter.Node) bool) *sitter.Node {
	if root == nil {
		return nil
	}
	var found *sitter.Node
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if pred(n) && (found == nil || n.StartByte() < found.StartByte()) {
			found = n
		}
		for i := n.ChildCount(); i > 0; i-- {
			if child := n.Child(i - 1); child != nil {
				stack = append(stack, child)
			}
		}
	}
	return found
}

// describeKind spells a grammar kind for a message: punctuation is quoted,
// named kinds read as words.
func describeKind(kind string) string {
	kind = strings.TrimSpace(kind)
	switch {
	case kind == "":
		return "token"
	case strings.IndexFunc(kind, isWordRune) < 0:
		return "'" + kind + "'"
	default:
		return strings.ReplaceAll(kind, "_", " ")
	}
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
