package compiler

import (
	"errors"
	"fmt"

	"serpent/interpreter-go/pkg/ast"
)

// DefaultMaxDepth bounds statement and expression nesting during code
// generation.
const DefaultMaxDepth = 1000

// Options configures code generation.
type Options struct {
	Mode ast.Mode
	// Optimize >= 1 drops assert statements.
	Optimize int
	MaxDepth int
}

// CompileError reports a tree the backend cannot turn into code.
type CompileError struct {
	Message  string
	Filename string
	Location ast.Location
}

func (e *CompileError) Error() string {
	if e.Location.Row > 0 {
		return fmt.Sprintf("compiler: %s (%s, line %d)", e.Message, e.filename(), e.Location.Row)
	}
	return fmt.Sprintf("compiler: %s", e.Message)
}

func (e *CompileError) filename() string {
	if e.Filename == "" {
		return "<unknown>"
	}
	return e.Filename
}

// Compiler is the backend. It keeps no state between calls and is safe for
// concurrent use.
type Compiler struct{}

func New() *Compiler {
	return &Compiler{}
}

// CompileTop compiles a tree root. The root kind must match opts.Mode.
func (c *Compiler) CompileTop(mod ast.Mod, filename string, opts Options) (*CodeObject, error) {
	return CompileTop(mod, filename, opts)
}

// CompileTop compiles a tree root. The root kind must match opts.Mode.
func CompileTop(mod ast.Mod, filename string, opts Options) (*CodeObject, error) {
	if mod == nil {
		return nil, &CompileError{Message: "missing tree root", Filename: filename}
	}
	if want := opts.Mode.RootType(); mod.NodeType() != want {
		return nil, &CompileError{
			Message:  fmt.Sprintf("expected %s node for %s mode, got %s", want, opts.Mode, mod.NodeType()),
			Filename: filename,
		}
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	g := &generator{opts: opts, filename: filename}
	code, err := g.top(mod)
	if err != nil {
		var ce *CompileError
		if errors.As(err, &ce) && ce.Filename == "" {
			ce.Filename = filename
		}
		return nil, err
	}
	return code, nil
}
