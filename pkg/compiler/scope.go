package compiler

import (
	"fmt"

	"serpent/interpreter-go/pkg/ast"
)

type scopeKind int

const (
	scopeModule scopeKind = iota
	scopeFunction
)

type nameAccess int

const (
	accessName   nameAccess = iota // LOAD_NAME family
	accessGlobal                   // LOAD_GLOBAL family
	accessFast                     // LOAD_FAST family
)

// scope holds the bindings of one module or function body.
type scope struct {
	kind    scopeKind
	name    string
	parent  *scope
	locals  map[string]int // fast slot per local name
	order   []string
	globals map[string]bool
}

func newModuleScope() *scope {
	return &scope{kind: scopeModule, name: "<module>", locals: map[string]int{}, globals: map[string]bool{}}
}

// newFunctionScope analyses body and binds params first so they occupy the
// leading fast slots.
func newFunctionScope(parent *scope, name string, params []string, body []ast.Stmt) (*scope, error) {
	s := &scope{kind: scopeFunction, name: name, parent: parent, locals: map[string]int{}, globals: map[string]bool{}}
	for _, p := range params {
		if _, dup := s.locals[p]; dup {
			return nil, &CompileError{Message: fmt.Sprintf("duplicate argument '%s' in function definition", p)}
		}
		s.bind(p)
	}
	b := binder{s: s, params: params}
	if err := b.stmts(body); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *scope) bind(name string) {
	if _, ok := s.locals[name]; ok {
		return
	}
	s.locals[name] = len(s.order)
	s.order = append(s.order, name)
}

// resolve decides how name is accessed from this scope. Names bound in an
// enclosing function are free variables, which are not supported.
func (s *scope) resolve(name string) (nameAccess, int, error) {
	if s.kind == scopeModule {
		return accessName, 0, nil
	}
	if s.globals[name] {
		return accessGlobal, 0, nil
	}
	if slot, ok := s.locals[name]; ok {
		return accessFast, slot, nil
	}
	for p := s.parent; p != nil && p.kind == scopeFunction; p = p.parent {
		if p.globals[name] {
			break
		}
		if _, ok := p.locals[name]; ok {
			return 0, 0, &CompileError{Message: fmt.Sprintf("free variable '%s' referenced in '%s' is not supported", name, s.name)}
		}
	}
	return accessGlobal, 0, nil
}

// binder collects the names a function body binds. It does not descend into
// nested function bodies.
type binder struct {
	s      *scope
	params []string
}

func (b binder) stmts(body []ast.Stmt) error {
	for _, st := range body {
		if err := b.stmt(st); err != nil {
			return err
		}
	}
	return nil
}

func (b binder) stmt(st ast.Stmt) error {
	switch n := st.(type) {
	case *ast.FunctionDef:
		b.name(n.Name)
	case *ast.Assign:
		for _, t := range n.Targets {
			b.target(t)
		}
	case *ast.AugAssign:
		b.target(n.Target)
	case *ast.AnnAssign:
		b.target(n.Target)
	case *ast.Delete:
		for _, t := range n.Targets {
			b.target(t)
		}
	case *ast.For:
		b.target(n.Target)
		if err := b.stmts(n.Body); err != nil {
			return err
		}
		return b.stmts(n.OrElse)
	case *ast.While:
		if err := b.stmts(n.Body); err != nil {
			return err
		}
		return b.stmts(n.OrElse)
	case *ast.If:
		if err := b.stmts(n.Body); err != nil {
			return err
		}
		return b.stmts(n.OrElse)
	case *ast.Import:
		for _, a := range n.Names {
			b.name(importBinding(a))
		}
	case *ast.ImportFrom:
		for _, a := range n.Names {
			if a.Name == "*" {
				return &CompileError{Message: "import * only allowed at module level", Location: n.Loc}
			}
			b.name(importBinding(a))
		}
	case *ast.Global:
		for _, name := range n.Names {
			for _, p := range b.params {
				if p == name {
					return &CompileError{Message: fmt.Sprintf("name '%s' is parameter and global", name), Location: n.Loc}
				}
			}
			if _, bound := b.s.locals[name]; bound {
				return &CompileError{Message: fmt.Sprintf("name '%s' is assigned to before global declaration", name), Location: n.Loc}
			}
			b.s.globals[name] = true
		}
	case *ast.Nonlocal:
		return &CompileError{Message: "nonlocal declarations are not supported", Location: n.Loc}
	}
	return nil
}

func (b binder) target(t ast.Expr) {
	switch n := t.(type) {
	case *ast.Name:
		b.name(n.ID)
	case *ast.Starred:
		b.target(n.Value)
	case *ast.Tuple:
		for _, elt := range n.Elts {
			b.target(elt)
		}
	case *ast.List:
		for _, elt := range n.Elts {
			b.target(elt)
		}
	}
}

func (b binder) name(name string) {
	if b.s.globals[name] {
		return
	}
	b.s.bind(name)
}

// importBinding is the name an import alias binds: the alias, or the first
// component of a dotted module name.
func importBinding(a *ast.Alias) string {
	if a.AsName != nil {
		return *a.AsName
	}
	for i := 0; i < len(a.Name); i++ {
		if a.Name[i] == '.' {
			return a.Name[:i]
		}
	}
	return a.Name
}
