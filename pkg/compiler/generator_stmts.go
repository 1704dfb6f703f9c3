package compiler

import (
	"serpent/interpreter-go/pkg/ast"
)

func (g *generator) stmts(body []ast.Stmt) error {
	for _, st := range body {
		if err := g.stmt(st); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) stmt(st ast.Stmt) error {
	if st == nil {
		return g.errorf(ast.Location{}, "missing statement")
	}
	loc := st.Location()
	if err := g.enter(loc); err != nil {
		return err
	}
	defer g.leave()
	g.code.MarkLine(loc.Row)

	switch n := st.(type) {
	case *ast.FunctionDef:
		return g.functionDef(n)
	case *ast.Return:
		if g.scope.kind != scopeFunction {
			return g.errorf(loc, "'return' outside function")
		}
		if n.Value == nil {
			g.code.Emit(OpLoadNone)
		} else if err := g.expr(n.Value); err != nil {
			return err
		}
		g.code.Emit(OpReturnValue)
	case *ast.Delete:
		for _, t := range n.Targets {
			if err := g.delete(t); err != nil {
				return err
			}
		}
	case *ast.Assign:
		if len(n.Targets) == 0 {
			return g.errorf(loc, "empty targets on Assign")
		}
		if err := g.expr(n.Value); err != nil {
			return err
		}
		for i, t := range n.Targets {
			if i < len(n.Targets)-1 {
				g.code.Emit(OpDup)
			}
			if err := g.store(t); err != nil {
				return err
			}
		}
	case *ast.AugAssign:
		return g.augAssign(n)
	case *ast.AnnAssign:
		switch n.Target.(type) {
		case *ast.Name, *ast.Attribute, *ast.Subscript:
		default:
			return g.errorf(loc, "illegal target for annotation")
		}
		if n.Value != nil {
			if err := g.expr(n.Value); err != nil {
				return err
			}
			return g.store(n.Target)
		}
	case *ast.For:
		return g.forLoop(n)
	case *ast.While:
		return g.whileLoop(n)
	case *ast.If:
		return g.ifStmt(n)
	case *ast.Raise:
		return g.raise(n)
	case *ast.Assert:
		if g.opts.Optimize >= 1 {
			return nil
		}
		return g.assert(n)
	case *ast.Import:
		for _, alias := range n.Names {
			var leaf byte
			if alias.AsName != nil {
				leaf = 1
			}
			g.code.EmitU16U8(OpImportName, g.code.AddName(alias.Name), leaf)
			if err := g.name(importBinding(alias), opStore, loc); err != nil {
				return err
			}
		}
	case *ast.ImportFrom:
		return g.importFrom(n)
	case *ast.Global:
	case *ast.Nonlocal:
		if g.scope.kind == scopeModule {
			return g.errorf(loc, "nonlocal declaration not allowed at module level")
		}
		return g.errorf(loc, "nonlocal declarations are not supported")
	case *ast.ExprStmt:
		if err := g.expr(n.Value); err != nil {
			return err
		}
		if g.interactive {
			g.code.Emit(OpPrintExpr)
		} else {
			g.code.Emit(OpPop)
		}
	case *ast.Pass:
	case *ast.Break:
		if len(g.loops) == 0 {
			return g.errorf(loc, "'break' outside loop")
		}
		l := g.loops[len(g.loops)-1]
		if l.isFor {
			g.code.Emit(OpPop)
		}
		l.breaks = append(l.breaks, g.code.EmitJump(OpJump))
	case *ast.Continue:
		if len(g.loops) == 0 {
			return g.errorf(loc, "'continue' not properly in loop")
		}
		g.code.EmitU16(OpJump, uint16(g.loops[len(g.loops)-1].start))
	default:
		return g.errorf(loc, "unsupported statement %s", st.NodeType())
	}
	return nil
}

func (g *generator) functionDef(n *ast.FunctionDef) error {
	for _, d := range n.DecoratorList {
		if err := g.expr(d); err != nil {
			return err
		}
	}
	flags, err := g.defaults(n.Args)
	if err != nil {
		return err
	}
	idx, err := g.function(n.Name, n.Args, n.Loc, n.Body, nil)
	if err != nil {
		return err
	}
	g.code.EmitU16U8(OpMakeFunction, idx, flags)
	for range n.DecoratorList {
		g.code.EmitU16(OpCall, 1)
	}
	return g.name(n.Name, opStore, n.Loc)
}

func (g *generator) ifStmt(n *ast.If) error {
	if err := g.expr(n.Test); err != nil {
		return err
	}
	orElse := g.code.EmitJump(OpPopJumpIfFalse)
	if err := g.stmts(n.Body); err != nil {
		return err
	}
	if len(n.OrElse) == 0 {
		g.code.PatchJump(orElse)
		return nil
	}
	end := g.code.EmitJump(OpJump)
	g.code.PatchJump(orElse)
	if err := g.stmts(n.OrElse); err != nil {
		return err
	}
	g.code.PatchJump(end)
	return nil
}

func (g *generator) whileLoop(n *ast.While) error {
	l := &loop{start: g.code.CurrentOffset()}
	if err := g.expr(n.Test); err != nil {
		return err
	}
	exit := g.code.EmitJump(OpPopJumpIfFalse)
	g.loops = append(g.loops, l)
	if err := g.stmts(n.Body); err != nil {
		return err
	}
	g.loops = g.loops[:len(g.loops)-1]
	g.code.EmitU16(OpJump, uint16(l.start))
	g.code.PatchJump(exit)
	if err := g.stmts(n.OrElse); err != nil {
		return err
	}
	for _, b := range l.breaks {
		g.code.PatchJump(b)
	}
	return nil
}

func (g *generator) forLoop(n *ast.For) error {
	if err := g.expr(n.Iter); err != nil {
		return err
	}
	g.code.Emit(OpGetIter)
	l := &loop{start: g.code.CurrentOffset(), isFor: true}
	exit := g.code.EmitJump(OpForIter)
	if err := g.store(n.Target); err != nil {
		return err
	}
	g.loops = append(g.loops, l)
	if err := g.stmts(n.Body); err != nil {
		return err
	}
	g.loops = g.loops[:len(g.loops)-1]
	g.code.EmitU16(OpJump, uint16(l.start))
	g.code.PatchJump(exit)
	if err := g.stmts(n.OrElse); err != nil {
		return err
	}
	for _, b := range l.breaks {
		g.code.PatchJump(b)
	}
	return nil
}

func (g *generator) raise(n *ast.Raise) error {
	var count byte
	if n.Exc != nil {
		if err := g.expr(n.Exc); err != nil {
			return err
		}
		count++
		if n.Cause != nil {
			if err := g.expr(n.Cause); err != nil {
				return err
			}
			count++
		}
	} else if n.Cause != nil {
		return g.errorf(n.Loc, "Raise with cause but no exception")
	}
	g.code.EmitU8(OpRaise, count)
	return nil
}

func (g *generator) assert(n *ast.Assert) error {
	if err := g.expr(n.Test); err != nil {
		return err
	}
	end := g.code.EmitJump(OpPopJumpIfTrue)
	g.code.Emit(OpLoadAssertionError)
	if n.Msg != nil {
		if err := g.expr(n.Msg); err != nil {
			return err
		}
		g.code.EmitU16(OpCall, 1)
	}
	g.code.EmitU8(OpRaise, 1)
	g.code.PatchJump(end)
	return nil
}

func (g *generator) importFrom(n *ast.ImportFrom) error {
	if n.Level != nil && *n.Level > 0 {
		return g.errorf(n.Loc, "relative imports are not supported")
	}
	if n.Module == nil {
		return g.errorf(n.Loc, "ImportFrom without a module")
	}
	g.code.EmitU16U8(OpImportName, g.code.AddName(*n.Module), 1)
	if len(n.Names) == 1 && n.Names[0].Name == "*" {
		if g.scope.kind != scopeModule {
			return g.errorf(n.Loc, "import * only allowed at module level")
		}
		g.code.Emit(OpImportStar)
		return nil
	}
	for _, alias := range n.Names {
		g.code.EmitU16(OpImportFrom, g.code.AddName(alias.Name))
		bound := alias.Name
		if alias.AsName != nil {
			bound = *alias.AsName
		}
		if err := g.name(bound, opStore, n.Loc); err != nil {
			return err
		}
	}
	g.code.Emit(OpPop)
	return nil
}

// store pops the top of stack into target.
func (g *generator) store(target ast.Expr) error {
	if target == nil {
		return g.errorf(ast.Location{}, "missing assignment target")
	}
	loc := target.Location()
	switch t := target.(type) {
	case *ast.Name:
		if err := g.checkContext(t.Ctx, ast.Store, loc); err != nil {
			return err
		}
		return g.name(t.ID, opStore, loc)
	case *ast.Attribute:
		if err := g.checkContext(t.Ctx, ast.Store, loc); err != nil {
			return err
		}
		if err := g.expr(t.Value); err != nil {
			return err
		}
		g.code.EmitU16(OpStoreAttr, g.code.AddName(t.Attr))
	case *ast.Subscript:
		if err := g.checkContext(t.Ctx, ast.Store, loc); err != nil {
			return err
		}
		if err := g.expr(t.Value); err != nil {
			return err
		}
		if err := g.expr(t.Slice); err != nil {
			return err
		}
		g.code.Emit(OpStoreSubscr)
	case *ast.Tuple:
		if err := g.checkContext(t.Ctx, ast.Store, loc); err != nil {
			return err
		}
		return g.unpack(t.Elts)
	case *ast.List:
		if err := g.checkContext(t.Ctx, ast.Store, loc); err != nil {
			return err
		}
		return g.unpack(t.Elts)
	case *ast.Starred:
		return g.errorf(loc, "starred assignment target must be in a list or tuple")
	default:
		return g.errorf(loc, "cannot assign to %s", describe(target))
	}
	return nil
}

func (g *generator) unpack(elts []ast.Expr) error {
	for _, elt := range elts {
		if _, ok := elt.(*ast.Starred); ok {
			return g.errorf(elt.Location(), "starred assignment targets are not supported")
		}
	}
	g.code.EmitU16(OpUnpackSequence, uint16(len(elts)))
	for _, elt := range elts {
		if err := g.store(elt); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) delete(target ast.Expr) error {
	if target == nil {
		return g.errorf(ast.Location{}, "missing deletion target")
	}
	loc := target.Location()
	switch t := target.(type) {
	case *ast.Name:
		if err := g.checkContext(t.Ctx, ast.Del, loc); err != nil {
			return err
		}
		return g.name(t.ID, opDelete, loc)
	case *ast.Attribute:
		if err := g.checkContext(t.Ctx, ast.Del, loc); err != nil {
			return err
		}
		if err := g.expr(t.Value); err != nil {
			return err
		}
		g.code.EmitU16(OpDeleteAttr, g.code.AddName(t.Attr))
	case *ast.Subscript:
		if err := g.checkContext(t.Ctx, ast.Del, loc); err != nil {
			return err
		}
		if err := g.expr(t.Value); err != nil {
			return err
		}
		if err := g.expr(t.Slice); err != nil {
			return err
		}
		g.code.Emit(OpDeleteSubscr)
	case *ast.Tuple:
		for _, elt := range t.Elts {
			if err := g.delete(elt); err != nil {
				return err
			}
		}
	case *ast.List:
		for _, elt := range t.Elts {
			if err := g.delete(elt); err != nil {
				return err
			}
		}
	default:
		return g.errorf(loc, "cannot delete %s", describe(target))
	}
	return nil
}

func (g *generator) augAssign(n *ast.AugAssign) error {
	loc := n.Target.Location()
	switch t := n.Target.(type) {
	case *ast.Name:
		if err := g.checkContext(t.Ctx, ast.Store, loc); err != nil {
			return err
		}
		if err := g.name(t.ID, opLoad, loc); err != nil {
			return err
		}
		if err := g.expr(n.Value); err != nil {
			return err
		}
		g.code.EmitU8(OpBinary, byte(n.Op))
		return g.name(t.ID, opStore, loc)
	case *ast.Attribute:
		if err := g.checkContext(t.Ctx, ast.Store, loc); err != nil {
			return err
		}
		if err := g.expr(t.Value); err != nil {
			return err
		}
		g.code.Emit(OpDup)
		attr := g.code.AddName(t.Attr)
		g.code.EmitU16(OpLoadAttr, attr)
		if err := g.expr(n.Value); err != nil {
			return err
		}
		g.code.EmitU8(OpBinary, byte(n.Op))
		g.code.Emit(OpRot2)
		g.code.EmitU16(OpStoreAttr, attr)
	case *ast.Subscript:
		if err := g.checkContext(t.Ctx, ast.Store, loc); err != nil {
			return err
		}
		if err := g.expr(t.Value); err != nil {
			return err
		}
		if err := g.expr(t.Slice); err != nil {
			return err
		}
		g.code.Emit(OpDup2)
		g.code.Emit(OpLoadSubscr)
		if err := g.expr(n.Value); err != nil {
			return err
		}
		g.code.EmitU8(OpBinary, byte(n.Op))
		g.code.Emit(OpRot3)
		g.code.Emit(OpStoreSubscr)
	default:
		return g.errorf(loc, "'%s' is an illegal expression for augmented assignment", describe(n.Target))
	}
	return nil
}
