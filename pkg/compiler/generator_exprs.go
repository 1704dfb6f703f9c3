package compiler

import (
	"serpent/interpreter-go/pkg/ast"
)

func (g *generator) exprs(list []ast.Expr) error {
	for _, e := range list {
		if err := g.expr(e); err != nil {
			return err
		}
	}
	return nil
}

// expr emits code leaving the value of e on the stack.
func (g *generator) expr(e ast.Expr) error {
	if e == nil {
		return g.errorf(ast.Location{}, "missing expression")
	}
	loc := e.Location()
	if err := g.enter(loc); err != nil {
		return err
	}
	defer g.leave()

	switch n := e.(type) {
	case *ast.BoolOp:
		return g.boolOp(n)
	case *ast.BinOp:
		if err := g.expr(n.Left); err != nil {
			return err
		}
		if err := g.expr(n.Right); err != nil {
			return err
		}
		g.code.EmitU8(OpBinary, byte(n.Op))
	case *ast.UnaryOp:
		if err := g.expr(n.Operand); err != nil {
			return err
		}
		g.code.EmitU8(OpUnary, byte(n.Op))
	case *ast.Lambda:
		flags, err := g.defaults(n.Args)
		if err != nil {
			return err
		}
		idx, err := g.function("<lambda>", n.Args, loc, nil, n.Body)
		if err != nil {
			return err
		}
		g.code.EmitU16U8(OpMakeFunction, idx, flags)
	case *ast.IfExp:
		if err := g.expr(n.Test); err != nil {
			return err
		}
		orElse := g.code.EmitJump(OpPopJumpIfFalse)
		if err := g.expr(n.Body); err != nil {
			return err
		}
		end := g.code.EmitJump(OpJump)
		g.code.PatchJump(orElse)
		if err := g.expr(n.OrElse); err != nil {
			return err
		}
		g.code.PatchJump(end)
	case *ast.Dict:
		if len(n.Keys) != len(n.Values) {
			return g.errorf(loc, "Dict doesn't have the same number of keys as values")
		}
		for i, k := range n.Keys {
			if k == nil {
				return g.errorf(loc, "dict unpacking is not supported")
			}
			if err := g.expr(k); err != nil {
				return err
			}
			if err := g.expr(n.Values[i]); err != nil {
				return err
			}
		}
		g.code.EmitU16(OpBuildMap, uint16(len(n.Keys)))
	case *ast.Set:
		return g.errorf(loc, "set displays are not supported")
	case *ast.Compare:
		return g.compare(n)
	case *ast.Call:
		return g.call(n)
	case *ast.FormattedValue:
		return g.formattedValue(n)
	case *ast.JoinedStr:
		if len(n.Values) == 0 {
			g.constant(ast.ConstStr(""))
			return nil
		}
		if err := g.exprs(n.Values); err != nil {
			return err
		}
		g.code.EmitU16(OpBuildString, uint16(len(n.Values)))
	case *ast.Constant:
		g.constant(n.Value)
	case *ast.Attribute:
		if err := g.checkContext(n.Ctx, ast.Load, loc); err != nil {
			return err
		}
		if err := g.expr(n.Value); err != nil {
			return err
		}
		g.code.EmitU16(OpLoadAttr, g.code.AddName(n.Attr))
	case *ast.Subscript:
		if err := g.checkContext(n.Ctx, ast.Load, loc); err != nil {
			return err
		}
		if err := g.expr(n.Value); err != nil {
			return err
		}
		if err := g.expr(n.Slice); err != nil {
			return err
		}
		g.code.Emit(OpLoadSubscr)
	case *ast.Starred:
		return g.errorf(loc, "can't use starred expression here")
	case *ast.Name:
		if err := g.checkContext(n.Ctx, ast.Load, loc); err != nil {
			return err
		}
		return g.name(n.ID, opLoad, loc)
	case *ast.List:
		if err := g.checkContext(n.Ctx, ast.Load, loc); err != nil {
			return err
		}
		if err := g.exprs(n.Elts); err != nil {
			return err
		}
		g.code.EmitU16(OpBuildList, uint16(len(n.Elts)))
	case *ast.Tuple:
		if err := g.checkContext(n.Ctx, ast.Load, loc); err != nil {
			return err
		}
		if err := g.exprs(n.Elts); err != nil {
			return err
		}
		g.code.EmitU16(OpBuildTuple, uint16(len(n.Elts)))
	case *ast.Slice:
		var count byte = 2
		for i, bound := range []ast.Expr{n.Lower, n.Upper, n.Step} {
			if bound == nil {
				if i < 2 {
					g.code.Emit(OpLoadNone)
				}
				continue
			}
			if err := g.expr(bound); err != nil {
				return err
			}
			if i == 2 {
				count = 3
			}
		}
		g.code.EmitU8(OpBuildSlice, count)
	default:
		return g.errorf(loc, "unsupported expression %s", e.NodeType())
	}
	return nil
}

func (g *generator) boolOp(n *ast.BoolOp) error {
	if len(n.Values) < 2 {
		return g.errorf(n.Loc, "BoolOp with less than 2 values")
	}
	jump := OpJumpIfFalseOrPop
	if n.Op == ast.Or {
		jump = OpJumpIfTrueOrPop
	}
	var ends []int
	for i, v := range n.Values {
		if err := g.expr(v); err != nil {
			return err
		}
		if i < len(n.Values)-1 {
			ends = append(ends, g.code.EmitJump(jump))
		}
	}
	for _, end := range ends {
		g.code.PatchJump(end)
	}
	return nil
}

// compare emits a comparison chain. Every intermediate operand is
// evaluated once; a false link short-circuits with its result.
func (g *generator) compare(n *ast.Compare) error {
	if len(n.Ops) == 0 {
		return g.errorf(n.Loc, "Compare with no comparators")
	}
	if len(n.Ops) != len(n.Comparators) {
		return g.errorf(n.Loc, "Compare has a different number of comparators and operands")
	}
	if err := g.expr(n.Left); err != nil {
		return err
	}
	var cleanups []int
	last := len(n.Ops) - 1
	for i, op := range n.Ops {
		if err := g.expr(n.Comparators[i]); err != nil {
			return err
		}
		if i < last {
			g.code.Emit(OpDup)
			g.code.Emit(OpRot3)
		}
		g.code.EmitU8(OpCompare, byte(op))
		if i < last {
			cleanups = append(cleanups, g.code.EmitJump(OpJumpIfFalseOrPop))
		}
	}
	if len(cleanups) == 0 {
		return nil
	}
	end := g.code.EmitJump(OpJump)
	for _, c := range cleanups {
		g.code.PatchJump(c)
	}
	g.code.Emit(OpRot2)
	g.code.Emit(OpPop)
	g.code.PatchJump(end)
	return nil
}

func (g *generator) call(n *ast.Call) error {
	if err := g.expr(n.Func); err != nil {
		return err
	}
	for _, a := range n.Args {
		if _, ok := a.(*ast.Starred); ok {
			return g.errorf(a.Location(), "starred call arguments are not supported")
		}
		if err := g.expr(a); err != nil {
			return err
		}
	}
	if len(n.Keywords) == 0 {
		g.code.EmitU16(OpCall, uint16(len(n.Args)))
		return nil
	}
	names := make(ast.ConstTuple, 0, len(n.Keywords))
	for _, kw := range n.Keywords {
		if kw.Arg == nil {
			return g.errorf(kw.Loc, "keyword argument unpacking is not supported")
		}
		if err := g.expr(kw.Value); err != nil {
			return err
		}
		names = append(names, ast.ConstStr(*kw.Arg))
	}
	g.constant(names)
	g.code.EmitU16(OpCallKw, uint16(len(n.Args)+len(n.Keywords)))
	return nil
}

func (g *generator) formattedValue(n *ast.FormattedValue) error {
	if err := g.expr(n.Value); err != nil {
		return err
	}
	var flags byte
	if n.Conversion != nil {
		switch *n.Conversion {
		case ast.ConversionStr:
			flags = FormatConvStr
		case ast.ConversionRepr:
			flags = FormatConvRepr
		case ast.ConversionAscii:
			flags = FormatConvAscii
		}
	}
	if n.FormatSpec != nil {
		if err := g.expr(n.FormatSpec); err != nil {
			return err
		}
		flags |= FormatHasSpec
	}
	g.code.EmitU8(OpFormatValue, flags)
	return nil
}

func (g *generator) checkContext(got, want ast.ExprContext, loc ast.Location) error {
	if got != want {
		return g.errorf(loc, "expression must have %s context but has %s instead", want, got)
	}
	return nil
}

// describe names an expression kind the way assignment errors do.
func describe(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.Call:
		return "function call"
	case *ast.Constant:
		return "literal"
	case *ast.Lambda:
		return "lambda"
	case *ast.BinOp, *ast.UnaryOp, *ast.BoolOp:
		return "expression"
	case *ast.Compare:
		return "comparison"
	case *ast.IfExp:
		return "conditional expression"
	case *ast.Dict:
		return "dict literal"
	case *ast.Set:
		return "set display"
	case *ast.JoinedStr, *ast.FormattedValue:
		return "f-string expression"
	case *ast.Name:
		return n.ID
	default:
		return string(e.NodeType())
	}
}
