// Package interpreter executes code objects produced by the compiler. It
// owns the builtins, the importable modules and the compile, exec and eval
// entry points that route through the AST bridge.
package interpreter

import (
	"context"
	"io"
	"os"

	"serpent/interpreter-go/pkg/ast"
	"serpent/interpreter-go/pkg/compiler"
	"serpent/interpreter-go/pkg/ctxlog"
	"serpent/interpreter-go/pkg/pyast"
	"serpent/interpreter-go/pkg/runtime"
)

// DefaultRecursionLimit bounds nested frames.
const DefaultRecursionLimit = 1000

// Interpreter runs code objects. It is not safe for concurrent use; create
// one per goroutine.
type Interpreter struct {
	bridge   *pyast.Bridge
	builtins *runtime.Dict
	modules  map[string]*runtime.Module
	stdout   io.Writer
	limit    int

	frames []*frame
	consts map[*compiler.CodeObject][]runtime.Value
}

type Option func(*Interpreter)

// WithStdout redirects print and interactive echo.
func WithStdout(w io.Writer) Option {
	return func(i *Interpreter) { i.stdout = w }
}

func WithRecursionLimit(n int) Option {
	return func(i *Interpreter) {
		if n > 0 {
			i.limit = n
		}
	}
}

// New creates an interpreter whose compile builtin and ast module use
// bridge.
func New(bridge *pyast.Bridge, opts ...Option) *Interpreter {
	i := &Interpreter{
		bridge:  bridge,
		modules: make(map[string]*runtime.Module),
		stdout:  os.Stdout,
		limit:   DefaultRecursionLimit,
		consts:  make(map[*compiler.CodeObject][]runtime.Value),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.builtins = i.newBuiltins()
	i.registerModules()
	return i
}

func (i *Interpreter) Bridge() *pyast.Bridge { return i.bridge }

// Builtins is the dict consulted after globals.
func (i *Interpreter) Builtins() *runtime.Dict { return i.builtins }

// NewGlobals returns a fresh module namespace called name.
func (i *Interpreter) NewGlobals(name string) *runtime.Dict {
	globals := runtime.NewDict()
	_ = globals.SetStr("__name__", runtime.Str(name))
	return globals
}

// Exec compiles source as a module and runs it in a fresh "__main__"
// namespace, which is returned.
func (i *Interpreter) Exec(ctx context.Context, source, filename string) (*runtime.Dict, error) {
	res, err := i.bridge.CompileSource(ctx, source, filename, ast.ModeExec, 0)
	if err != nil {
		return nil, err
	}
	globals := i.NewGlobals("__main__")
	if _, err := i.Run(ctx, res.Code, globals, nil); err != nil {
		return globals, err
	}
	return globals, nil
}

// Eval compiles source as an expression and evaluates it against globals,
// or a fresh namespace when globals is nil.
func (i *Interpreter) Eval(ctx context.Context, source string, globals *runtime.Dict) (runtime.Value, error) {
	res, err := i.bridge.CompileSource(ctx, source, "<string>", ast.ModeEval, 0)
	if err != nil {
		return nil, err
	}
	if globals == nil {
		globals = i.NewGlobals("__main__")
	}
	return i.Run(ctx, res.Code, globals, nil)
}

// Run executes a top-level code object. A nil locals shares globals.
func (i *Interpreter) Run(ctx context.Context, code *compiler.CodeObject, globals, locals *runtime.Dict) (runtime.Value, error) {
	if locals == nil {
		locals = globals
	}
	ctxlog.FromContext(ctx).Debug("run", "code", code.Name, "filename", code.Filename, "mode", code.Mode)
	return i.runFrame(ctx, &frame{code: code, globals: globals, locals: locals})
}

// Import returns a registered module.
func (i *Interpreter) Import(name string) (*runtime.Module, error) {
	if m, ok := i.modules[name]; ok {
		return m, nil
	}
	return nil, runtime.NewException(runtime.ImportErrorClass, "No module named '%s'", name)
}

// AddModule makes m importable under its name.
func (i *Interpreter) AddModule(m *runtime.Module) {
	i.modules[m.Name] = m
}

func (i *Interpreter) current() *frame {
	if len(i.frames) == 0 {
		return nil
	}
	return i.frames[len(i.frames)-1]
}

func (i *Interpreter) constants(code *compiler.CodeObject) ([]runtime.Value, error) {
	if consts, ok := i.consts[code]; ok {
		return consts, nil
	}
	consts := make([]runtime.Value, len(code.Consts))
	for n, c := range code.Consts {
		lit, err := c.Literal()
		if err != nil {
			return nil, err
		}
		consts[n] = fromLiteral(lit)
	}
	i.consts[code] = consts
	return consts, nil
}

func fromLiteral(v ast.ConstantValue) runtime.Value {
	switch x := v.(type) {
	case ast.ConstBool:
		return runtime.Bool(x)
	case ast.ConstStr:
		return runtime.Str(x)
	case ast.ConstBytes:
		return runtime.Bytes(append([]byte(nil), x...))
	case ast.ConstInt:
		return runtime.Int{V: x.Value}
	case ast.ConstFloat:
		return runtime.Float(x)
	case ast.ConstComplex:
		return runtime.Complex{Real: x.Real, Imag: x.Imag}
	case ast.ConstEllipsis:
		return runtime.Ellipsis
	case ast.ConstTuple:
		out := make(runtime.Tuple, len(x))
		for n, item := range x {
			out[n] = fromLiteral(item)
		}
		return out
	}
	return runtime.None
}
