package pyast

import (
	"fmt"

	"serpent/interpreter-go/pkg/ast"
	"serpent/interpreter-go/pkg/compiler"
	"serpent/interpreter-go/pkg/runtime"
)

type options struct {
	maxDepth  int
	namespace *Namespace
	compiler  compiler.Options
}

// Option configures conversion and the pipeline.
type Option func(*options)

// WithMaxDepth bounds from-object nesting. Zero or less selects
// DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(o *options) { o.maxDepth = n }
}

// WithNamespace selects the class namespace; Default() otherwise.
func WithNamespace(ns *Namespace) Option {
	return func(o *options) { o.namespace = ns }
}

// WithCompilerOptions sets the configuration handed to the compiler.
func WithCompilerOptions(opts compiler.Options) Option {
	return func(o *options) { o.compiler = opts }
}

func buildOptions(opts []Option) options {
	o := options{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&o)
	}
	if o.namespace == nil {
		o.namespace = Default()
	}
	if o.maxDepth <= 0 {
		o.maxDepth = DefaultMaxDepth
	}
	return o
}

// ToObject converts a typed node into an object graph of ns's classes.
// It never fails: fields are attached in declaration order, followed by
// lineno and col_offset for located kinds.
func ToObject(ns *Namespace, node ast.Node) runtime.Value {
	if ns == nil {
		ns = Default()
	}
	c := newConverter(ns, DefaultMaxDepth)
	switch n := node.(type) {
	case nil:
		return runtime.None
	case ast.Mod:
		return modSum.toObject(c, n)
	case ast.Stmt:
		return stmtSum.toObject(c, n)
	case ast.Expr:
		return exprSum.toObject(c, n)
	case *ast.Arguments:
		return argumentsKind.toObject(c, n)
	case *ast.Arg:
		return argKind.toObject(c, n)
	case *ast.Keyword:
		return keywordKind.toObject(c, n)
	case *ast.Alias:
		return aliasKind.toObject(c, n)
	}
	return runtime.None
}

// FromObject validates an object graph and rebuilds the typed node. T is
// one of ast.Mod, ast.Stmt, ast.Expr, *ast.Arguments, *ast.Arg,
// *ast.Keyword or *ast.Alias. The first failure is returned unchanged.
func FromObject[T ast.Node](obj runtime.Value, opts ...Option) (T, error) {
	o := buildOptions(opts)
	c := newConverter(o.namespace, o.maxDepth)
	var (
		zero T
		out  any
		err  error
	)
	switch any(&zero).(type) {
	case *ast.Mod:
		out, err = modSum.fromObject(c, obj)
	case *ast.Stmt:
		out, err = stmtSum.fromObject(c, obj)
	case *ast.Expr:
		out, err = exprSum.fromObject(c, obj)
	case **ast.Arguments:
		out, err = argumentsKind.fromObject(c, obj)
	case **ast.Arg:
		out, err = argKind.fromObject(c, obj)
	case **ast.Keyword:
		out, err = keywordKind.fromObject(c, obj)
	case **ast.Alias:
		out, err = aliasKind.fromObject(c, obj)
	default:
		return zero, fmt.Errorf("pyast: no conversion to %T", &zero)
	}
	if err != nil {
		return zero, err
	}
	return out.(T), nil
}
