package parser

import (
	"fmt"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"serpent/interpreter-go/pkg/ast"
	"serpent/interpreter-go/pkg/parser/language"
)

// ModuleParser wraps a tree-sitter parser configured for Python source.
// It is safe for concurrent use; parses are serialized.
type ModuleParser struct {
	mu       sync.Mutex
	parser   *sitter.Parser
	maxDepth int
}

// NewModuleParser constructs a parser with the Python language loaded.
func NewModuleParser() (*ModuleParser, error) {
	lang := language.Python()
	if lang == nil {
		return nil, fmt.Errorf("parser: python language not available")
	}

	p := sitter.NewParser()
	if err := p.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("parser: %w", err)
	}

	return &ModuleParser{parser: p, maxDepth: DefaultMaxDepth}, nil
}

// SetMaxDepth changes the nesting bound. Zero or less restores the default.
func (p *ModuleParser) SetMaxDepth(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n <= 0 {
		n = DefaultMaxDepth
	}
	p.maxDepth = n
}

// Close releases parser resources.
func (p *ModuleParser) Close() {
	if p == nil || p.parser == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.parser.Close()
	p.parser = nil
}

// ParseModule parses source in exec mode.
func (p *ModuleParser) ParseModule(source []byte) (*ast.Module, error) {
	mod, err := p.Parse(source, ast.ModeExec)
	if err != nil {
		return nil, err
	}
	return mod.(*ast.Module), nil
}

// Parse parses source into the tree root for mode: a Module for exec, an
// Expression holding the single expression for eval, an Interactive for
// single.
func (p *ModuleParser) Parse(source []byte, mode ast.Mode) (ast.Mod, error) {
	if p == nil {
		return nil, fmt.Errorf("parser: nil parser")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.parser == nil {
		return nil, fmt.Errorf("parser: parser is closed")
	}

	tree := p.parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("parser: parse cancelled")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.Kind() != "module" {
		if root != nil && root.HasError() {
			return nil, syntaxError(root)
		}
		return nil, fmt.Errorf("parser: unexpected root node")
	}
	if root.HasError() {
		return nil, syntaxError(root)
	}

	ctx := newParseContext(source, p.maxDepth)
	switch mode {
	case ast.ModeEval:
		body, err := ctx.parseEvalBody(root)
		if err != nil {
			return nil, err
		}
		return &ast.Expression{Body: body}, nil
	case ast.ModeSingle:
		body, err := ctx.parseBlock(root)
		if err != nil {
			return nil, err
		}
		return &ast.Interactive{Body: body}, nil
	default:
		body, err := ctx.parseBlock(root)
		if err != nil {
			return nil, err
		}
		return &ast.Module{Body: body}, nil
	}
}

// parseEvalBody accepts a module made of exactly one expression statement.
func (ctx *parseContext) parseEvalBody(root *sitter.Node) (ast.Expr, error) {
	stmts := namedChildren(root)
	if len(stmts) != 1 || stmts[0].Kind() != "expression_statement" {
		return nil, errorAt(root, "eval mode expects a single expression")
	}
	parts := namedChildren(stmts[0])
	for _, part := range parts {
		switch part.Kind() {
		case "assignment", "augmented_assignment":
			return nil, errorAt(part, "eval mode expects a single expression")
		}
	}
	return ctx.parseExpressionList(stmts[0], parts)
}
