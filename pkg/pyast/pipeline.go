package pyast

import (
	"context"
	"errors"
	"time"

	"serpent/interpreter-go/pkg/ast"
	"serpent/interpreter-go/pkg/compiler"
	"serpent/interpreter-go/pkg/ctxlog"
	"serpent/interpreter-go/pkg/runtime"
)

// Parser turns source text into a typed tree.
type Parser interface {
	Parse(source []byte, mode ast.Mode) (ast.Mod, error)
}

// Compiler turns a typed tree into a code object. opts is passed through
// untouched.
type Compiler interface {
	CompileTop(mod ast.Mod, filename string, opts compiler.Options) (*compiler.CodeObject, error)
}

// Bridge connects the parser and the compiler through the object tree.
type Bridge struct {
	parser   Parser
	compiler Compiler
	opts     options
}

func NewBridge(p Parser, c Compiler, opts ...Option) *Bridge {
	return &Bridge{parser: p, compiler: c, opts: buildOptions(opts)}
}

func (b *Bridge) Namespace() *Namespace { return b.opts.namespace }

// CompilerOptions returns the configuration handed to the compiler.
func (b *Bridge) CompilerOptions() compiler.Options { return b.opts.compiler }

// Parse runs the parser and converts its tree to objects. Parser failures
// become a ValueError carrying the diagnostic text.
func (b *Bridge) Parse(ctx context.Context, source string, mode ast.Mode) (runtime.Value, error) {
	mod, err := b.parseTyped(ctx, source, mode)
	if err != nil {
		return nil, err
	}
	return ToObject(b.opts.namespace, mod), nil
}

func (b *Bridge) parseTyped(ctx context.Context, source string, mode ast.Mode) (ast.Mod, error) {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()
	mod, err := b.parser.Parse([]byte(source), mode)
	if err != nil {
		logger.Debug("parse failed", "mode", mode.String(), "error", err)
		return nil, valueError(err)
	}
	logger.Debug("parsed", "mode", mode.String(), "bytes", len(source), "elapsed", time.Since(start))
	return mod, nil
}

// Compile validates tree, rebuilds the typed node and hands it to the
// compiler. Validation failures surface as TypeError (ValueError for range
// errors, RecursionError for over-deep trees); compiler failures as
// ValueError.
func (b *Bridge) Compile(ctx context.Context, tree runtime.Value, filename string, mode ast.Mode) (*compiler.CodeObject, error) {
	mod, err := FromObject[ast.Mod](tree, WithNamespace(b.opts.namespace), WithMaxDepth(b.opts.maxDepth))
	if err != nil {
		ctxlog.FromContext(ctx).Debug("tree rejected", "filename", filename, "error", err)
		return nil, structuralError(err)
	}
	return b.compileTyped(ctx, mod, filename, mode)
}

func (b *Bridge) compileTyped(ctx context.Context, mod ast.Mod, filename string, mode ast.Mode) (*compiler.CodeObject, error) {
	logger := ctxlog.FromContext(ctx)
	opts := b.opts.compiler
	opts.Mode = mode
	start := time.Now()
	code, err := b.compiler.CompileTop(mod, filename, opts)
	if err != nil {
		logger.Debug("compile failed", "filename", filename, "mode", mode.String(), "error", err)
		return nil, valueError(err)
	}
	logger.Debug("compiled", "filename", filename, "mode", mode.String(), "elapsed", time.Since(start))
	return code, nil
}

// Result is what CompileSource produces: the object tree when only the
// tree was requested, the code object otherwise.
type Result struct {
	Tree runtime.Value
	Code *compiler.CodeObject
}

// CompileSource is the shared entry point behind the compile builtin.
// With PyCFOnlyAST in flags it stops after parsing.
func (b *Bridge) CompileSource(ctx context.Context, source, filename string, mode ast.Mode, flags int) (*Result, error) {
	if flags&PyCFOnlyAST != 0 {
		tree, err := b.Parse(ctx, source, mode)
		if err != nil {
			return nil, err
		}
		return &Result{Tree: tree}, nil
	}
	mod, err := b.parseTyped(ctx, source, mode)
	if err != nil {
		return nil, err
	}
	code, err := b.compileTyped(ctx, mod, filename, mode)
	if err != nil {
		return nil, err
	}
	return &Result{Code: code}, nil
}

// AsError reports whether err came from a pipeline entry point.
func AsError(err error) (*Error, bool) {
	var pe *Error
	ok := errors.As(err, &pe)
	return pe, ok
}
