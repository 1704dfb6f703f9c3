package compiler

import (
	"fmt"
	"math"

	"serpent/interpreter-go/pkg/ast"
)

type loop struct {
	start  int
	isFor  bool
	breaks []int
}

type generator struct {
	opts        Options
	filename    string
	code        *CodeObject
	scope       *scope
	loops       []*loop
	depth       int
	interactive bool
}

func (g *generator) newCode(name string, line int) *CodeObject {
	return &CodeObject{
		Version:   BytecodeVersion,
		Filename:  g.filename,
		Name:      name,
		FirstLine: line,
	}
}

func (g *generator) top(mod ast.Mod) (*CodeObject, error) {
	g.scope = newModuleScope()
	switch n := mod.(type) {
	case *ast.Module:
		g.code = g.newCode("<module>", firstLine(n.Body))
		if err := g.stmts(n.Body); err != nil {
			return nil, err
		}
		g.code.Emit(OpLoadNone)
		g.code.Emit(OpReturnValue)
	case *ast.Interactive:
		g.code = g.newCode("<module>", firstLine(n.Body))
		g.interactive = true
		if err := g.stmts(n.Body); err != nil {
			return nil, err
		}
		g.code.Emit(OpLoadNone)
		g.code.Emit(OpReturnValue)
	case *ast.Expression:
		if n.Body == nil {
			return nil, g.errorf(ast.Location{}, "Expression has no body")
		}
		g.code = g.newCode("<module>", n.Body.Location().Row)
		g.code.MarkLine(n.Body.Location().Row)
		if err := g.expr(n.Body); err != nil {
			return nil, err
		}
		g.code.Emit(OpReturnValue)
	default:
		return nil, g.errorf(ast.Location{}, "unsupported tree root %s", mod.NodeType())
	}
	g.code.Mode = g.opts.Mode.String()
	if err := g.checkLimits(g.code); err != nil {
		return nil, err
	}
	return g.code, nil
}

func firstLine(body []ast.Stmt) int {
	if len(body) == 0 || body[0] == nil {
		return 1
	}
	return body[0].Location().Row
}

func (g *generator) errorf(loc ast.Location, format string, args ...any) error {
	return &CompileError{Message: fmt.Sprintf(format, args...), Filename: g.filename, Location: loc}
}

func (g *generator) enter(loc ast.Location) error {
	g.depth++
	if g.depth > g.opts.MaxDepth {
		g.depth--
		return g.errorf(loc, "tree too deeply nested")
	}
	return nil
}

func (g *generator) leave() {
	g.depth--
}

// checkLimits rejects code objects whose operands would not fit in 16 bits.
func (g *generator) checkLimits(co *CodeObject) error {
	if len(co.Code) > math.MaxUint16 || len(co.Consts) > math.MaxUint16+1 ||
		len(co.Names) > math.MaxUint16+1 || len(co.VarNames) > math.MaxUint16+1 {
		return g.errorf(ast.Location{Row: co.FirstLine}, "code object %s too large", co.Name)
	}
	return nil
}

type nameOp int

const (
	opLoad nameOp = iota
	opStore
	opDelete
)

var nameOpcodes = map[nameAccess][3]Opcode{
	accessName:   {OpLoadName, OpStoreName, OpDeleteName},
	accessGlobal: {OpLoadGlobal, OpStoreGlobal, OpDeleteGlobal},
	accessFast:   {OpLoadFast, OpStoreFast, OpDeleteFast},
}

func (g *generator) name(name string, op nameOp, loc ast.Location) error {
	access, slot, err := g.scope.resolve(name)
	if err != nil {
		if ce, ok := err.(*CompileError); ok {
			ce.Filename, ce.Location = g.filename, loc
		}
		return err
	}
	opcode := nameOpcodes[access][op]
	if access == accessFast {
		g.code.EmitU16(opcode, uint16(slot))
		return nil
	}
	g.code.EmitU16(opcode, g.code.AddName(name))
	return nil
}

func (g *generator) constant(v ast.ConstantValue) {
	if _, ok := v.(ast.ConstNone); ok || v == nil {
		g.code.Emit(OpLoadNone)
		return
	}
	g.code.EmitU16(OpLoadConst, g.code.AddConstant(ConstantOf(v)))
}

// function compiles a function or lambda body into a nested code object
// and returns its index in the enclosing code object.
func (g *generator) function(name string, args *ast.Arguments, loc ast.Location, body []ast.Stmt, lambda ast.Expr) (uint16, error) {
	if args == nil {
		args = &ast.Arguments{}
	}
	s, err := newFunctionScope(g.scope, name, args.Names(), body)
	if err != nil {
		if ce, ok := err.(*CompileError); ok {
			ce.Filename = g.filename
			if ce.Location.Row == 0 {
				ce.Location = loc
			}
		}
		return 0, err
	}
	child := g.newCode(name, loc.Row)
	child.Flags = FlagFunction
	child.ArgCount = len(args.PosOnlyArgs) + len(args.Args)
	child.PosOnlyCount = len(args.PosOnlyArgs)
	child.KwOnlyCount = len(args.KwOnlyArgs)
	if args.Vararg != nil {
		child.Flags |= FlagVarArgs
	}
	if args.Kwarg != nil {
		child.Flags |= FlagVarKeywords
	}

	parent, parentScope, parentLoops, parentInteractive := g.code, g.scope, g.loops, g.interactive
	g.code, g.scope, g.loops, g.interactive = child, s, nil, false
	defer func() {
		g.code, g.scope, g.loops, g.interactive = parent, parentScope, parentLoops, parentInteractive
	}()

	child.MarkLine(loc.Row)
	if lambda != nil {
		if err := g.expr(lambda); err != nil {
			return 0, err
		}
		child.Emit(OpReturnValue)
	} else {
		if err := g.stmts(body); err != nil {
			return 0, err
		}
		child.Emit(OpLoadNone)
		child.Emit(OpReturnValue)
	}
	child.VarNames = append([]string(nil), s.order...)
	if err := g.checkLimits(child); err != nil {
		return 0, err
	}
	return parent.AddCode(child), nil
}

// defaults pushes positional and keyword-only defaults and returns the
// MAKE_FUNCTION flags describing them.
func (g *generator) defaults(args *ast.Arguments) (byte, error) {
	if args == nil {
		return 0, nil
	}
	var flags byte
	if len(args.Defaults) > 0 {
		if len(args.Defaults) > len(args.PosOnlyArgs)+len(args.Args) {
			return 0, g.errorf(ast.Location{}, "more positional defaults than args on arguments")
		}
		for _, d := range args.Defaults {
			if err := g.expr(d); err != nil {
				return 0, err
			}
		}
		g.code.EmitU16(OpBuildTuple, uint16(len(args.Defaults)))
		flags |= MakeFunctionDefaults
	}
	if len(args.KwDefaults) != len(args.KwOnlyArgs) {
		return 0, g.errorf(ast.Location{}, "length of kwonlyargs is not the same as kw_defaults on arguments")
	}
	n := 0
	for i, d := range args.KwDefaults {
		if d == nil {
			continue
		}
		g.constant(ast.ConstStr(args.KwOnlyArgs[i].Arg))
		if err := g.expr(d); err != nil {
			return 0, err
		}
		n++
	}
	if n > 0 {
		g.code.EmitU16(OpBuildMap, uint16(n))
		flags |= MakeFunctionKwDefaults
	}
	return flags, nil
}
