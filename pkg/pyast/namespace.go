package pyast

import (
	"context"
	"sync"

	"serpent/interpreter-go/pkg/ast"
	"serpent/interpreter-go/pkg/runtime"
)

// ModuleName is the name the node classes are published under.
const ModuleName = "_ast"

// PyCFOnlyAST asks the shared compile entry point to stop after parsing
// and return the object tree.
const PyCFOnlyAST = 0x0400

// Namespace owns the AST base class, the abstract category classes and one
// class per registered node kind. Class identity is per namespace.
type Namespace struct {
	Base       *runtime.Class
	categories map[ast.Category]*runtime.Class
	classes    map[string]*runtime.Class
	order      []*runtime.Class
}

func NewNamespace() *Namespace {
	ns := &Namespace{
		categories: make(map[ast.Category]*runtime.Class),
		classes:    make(map[string]*runtime.Class),
	}
	ns.Base = runtime.NewClass("AST", ModuleName, runtime.ObjectClass)
	ns.Base.HasDict = true
	ns.Base.New = newNode
	for _, cat := range ast.Categories() {
		cls := runtime.NewClass(string(cat), ModuleName, ns.Base)
		ns.categories[cat] = cls
	}
	for _, info := range ast.Registry() {
		base := ns.Base
		if info.Category != ast.CategoryNone {
			base = ns.categories[info.Category]
		}
		cls := runtime.NewClass(info.Name, ModuleName, base)
		cls.Fields = append([]string{}, info.Fields...)
		if info.Located {
			cls.Attributes = ast.LocationAttributes()
		} else {
			cls.Attributes = []string{}
		}
		ns.classes[info.Name] = cls
		ns.order = append(ns.order, cls)
	}
	for _, cls := range ns.categories {
		if cls.Name == string(ast.CategoryStmt) || cls.Name == string(ast.CategoryExpr) {
			cls.Attributes = ast.LocationAttributes()
		}
	}
	return ns
}

var defaultNamespace = sync.OnceValue(NewNamespace)

// Default returns the process-wide namespace used when callers do not
// build their own.
func Default() *Namespace { return defaultNamespace() }

// Class returns the concrete node class called name.
func (ns *Namespace) Class(name string) (*runtime.Class, bool) {
	cls, ok := ns.classes[name]
	return cls, ok
}

// Category returns the abstract base class of a sum category.
func (ns *Namespace) Category(cat ast.Category) (*runtime.Class, bool) {
	cls, ok := ns.categories[cat]
	return cls, ok
}

// Classes lists the concrete node classes in registry order.
func (ns *Namespace) Classes() []*runtime.Class {
	return append([]*runtime.Class(nil), ns.order...)
}

// IsNode reports whether v is an instance of the namespace's AST base.
func (ns *Namespace) IsNode(v runtime.Value) bool {
	return runtime.IsInstance(v, ns.Base)
}

// kindOf resolves the nearest concrete node class of obj, so instances of
// user subclasses convert as their node kind.
func (ns *Namespace) kindOf(obj *runtime.Object) (string, bool) {
	for cls := obj.Class(); cls != nil; cls = cls.Base {
		if own, ok := ns.classes[cls.Name]; ok && own == cls {
			return cls.Name, true
		}
	}
	return "", false
}

func (ns *Namespace) instantiate(name string) *runtime.Object {
	cls, ok := ns.classes[name]
	if !ok {
		cls = ns.Base
	}
	return runtime.NewObject(cls)
}

// Module renders the namespace as an importable module value.
func (ns *Namespace) Module() *runtime.Module {
	m := runtime.NewModule(ModuleName)
	set := func(name string, v runtime.Value) {
		// a fresh module dict has no outstanding borrows
		_ = m.Dict.SetStr(name, v)
	}
	set("AST", ns.Base)
	set("PyCF_ONLY_AST", runtime.NewInt(PyCFOnlyAST))
	for _, cat := range ast.Categories() {
		set(string(cat), ns.categories[cat])
	}
	for _, cls := range ns.order {
		set(cls.Name, cls)
	}
	return m
}

// newNode is the constructor shared by every node class: positional
// arguments fill _fields in order, keywords set attributes by name.
func newNode(_ context.Context, cls *runtime.Class, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	var fields []string
	for cur := cls; cur != nil; cur = cur.Base {
		if cur.Fields != nil {
			fields = cur.Fields
			break
		}
	}
	if len(args) > len(fields) {
		return nil, runtime.NewException(runtime.TypeErrorClass,
			"%s constructor takes at most %d positional argument%s", cls.Name, len(fields), plural(len(fields)))
	}
	obj := runtime.NewObject(cls)
	for i, arg := range args {
		if err := obj.Dict.SetStr(fields[i], arg); err != nil {
			return nil, err
		}
	}
	for _, kw := range kwargs {
		if i := indexOf(fields, kw.Name); i >= 0 && i < len(args) {
			return nil, runtime.NewException(runtime.TypeErrorClass,
				"%s got multiple values for argument '%s'", cls.Name, kw.Name)
		}
		if err := obj.Dict.SetStr(kw.Name, kw.Value); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
