package pyast

import (
	"serpent/interpreter-go/pkg/ast"
	"serpent/interpreter-go/pkg/runtime"
)

// field converts one named attribute of a node struct T.
type field[T any] struct {
	name     string
	optional bool
	to       func(c *converter, n *T) runtime.Value
	from     func(c *converter, n *T, v runtime.Value) error
}

func req[T, F any](name string, cd codec[F], ref func(*T) *F) field[T] {
	return field[T]{
		name: name,
		to:   func(c *converter, n *T) runtime.Value { return cd.toObject(c, *ref(n)) },
		from: func(c *converter, n *T, v runtime.Value) error {
			got, err := cd.fromObject(c, v)
			if err != nil {
				return err
			}
			*ref(n) = got
			return nil
		},
	}
}

// opt declares a field that may be None or absent.
func opt[T any, F comparable](name string, cd codec[F], ref func(*T) *F) field[T] {
	f := req(name, optional(cd), ref)
	f.optional = true
	return f
}

// kind is the conversion table of one concrete node class.
type kind[T any] struct {
	name    string
	fields  []field[T]
	located bool
}

func (k *kind[T]) toObject(c *converter, n *T) runtime.Value {
	if n == nil {
		return runtime.None
	}
	obj := c.ns.instantiate(k.name)
	// obj is fresh, so its dict cannot be borrowed and Set cannot fail.
	for _, f := range k.fields {
		_ = obj.Dict.SetStr(f.name, f.to(c, n))
	}
	if k.located {
		if l, ok := any(n).(interface{ Location() ast.Location }); ok {
			_ = AttachLocation(obj, l.Location())
		}
	}
	return obj
}

func (k *kind[T]) fromObject(c *converter, v runtime.Value) (*T, error) {
	obj, ok := v.(*runtime.Object)
	if !ok {
		return nil, mismatch(k.name, v)
	}
	if name, ok := c.ns.kindOf(obj); !ok || name != k.name {
		return nil, mismatch(k.name, v)
	}
	return k.decode(c, obj)
}

func (k *kind[T]) decode(c *converter, obj *runtime.Object) (*T, error) {
	if err := c.enter(); err != nil {
		return nil, err
	}
	defer c.leave()
	n := new(T)
	for _, f := range k.fields {
		v, ok, err := obj.Dict.GetStr(f.name)
		if err != nil {
			return nil, err
		}
		if !ok {
			if f.optional {
				continue
			}
			return nil, &MissingFieldError{Field: f.name, Kind: k.name}
		}
		if err := f.from(c, n, v); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// sum dispatches a category (mod, stmt, expr) to its member kinds by class.
type sum[S ast.Node] struct {
	category ast.Category
	members  map[string]member[S]
}

type member[S any] struct {
	to   func(c *converter, s S) runtime.Value
	from func(c *converter, obj *runtime.Object) (S, error)
}

func newSum[S ast.Node](category ast.Category) *sum[S] {
	return &sum[S]{category: category, members: make(map[string]member[S])}
}

func addMember[S ast.Node, T any](s *sum[S], k *kind[T]) {
	s.members[k.name] = member[S]{
		to: func(c *converter, v S) runtime.Value {
			n, _ := any(v).(*T)
			return k.toObject(c, n)
		},
		from: func(c *converter, obj *runtime.Object) (S, error) {
			n, err := k.decode(c, obj)
			if err != nil {
				var zero S
				return zero, err
			}
			return any(n).(S), nil
		},
	}
}

func (s *sum[S]) toObject(c *converter, v S) runtime.Value {
	if any(v) == nil {
		return runtime.None
	}
	m, ok := s.members[string(v.NodeType())]
	if !ok {
		return runtime.None
	}
	return m.to(c, v)
}

func (s *sum[S]) fromObject(c *converter, v runtime.Value) (S, error) {
	if obj, ok := v.(*runtime.Object); ok {
		if name, ok := c.ns.kindOf(obj); ok {
			if m, ok := s.members[name]; ok {
				return m.from(c, obj)
			}
		}
	}
	var zero S
	return zero, mismatch("some sort of "+string(s.category), v)
}

var (
	modSum  = newSum[ast.Mod](ast.CategoryMod)
	stmtSum = newSum[ast.Stmt](ast.CategoryStmt)
	exprSum = newSum[ast.Expr](ast.CategoryExpr)

	argumentsKind = &kind[ast.Arguments]{name: string(ast.NodeArguments)}
	argKind       = &kind[ast.Arg]{name: string(ast.NodeArg), located: true}
	keywordKind   = &kind[ast.Keyword]{name: string(ast.NodeKeyword), located: true}
	aliasKind     = &kind[ast.Alias]{name: string(ast.NodeAlias)}
)

func init() {
	var (
		str      codec[string]              = strCodec{}
		optStr   codec[*string]             = boxed(str)
		optUint  codec[*uint]               = boxed[uint](uintCodec{})
		flag     codec[bool]                = boolCodec{}
		names    codec[[]string]            = seqOf(str)
		expr     codec[ast.Expr]            = exprSum
		exprs    codec[[]ast.Expr]          = seqOf(expr)
		optExprs codec[[]ast.Expr]          = seqOf(optional(expr))
		stmts    codec[[]ast.Stmt]          = seqOf[ast.Stmt](stmtSum)
		constant codec[ast.ConstantValue]   = constCodec{}
		conv     codec[*ast.ConversionFlag] = boxed[ast.ConversionFlag](convFlagCodec{})

		arguments codec[*ast.Arguments] = argumentsKind
		arg       codec[*ast.Arg]       = argKind
		args      codec[[]*ast.Arg]     = seqOf(arg)
		keywords  codec[[]*ast.Keyword] = seqOf[*ast.Keyword](keywordKind)
		aliases   codec[[]*ast.Alias]   = seqOf[*ast.Alias](aliasKind)

		ctx     codec[ast.ExprContext]   = variantsOf(ast.CategoryExprContext, ast.ExprContexts())
		boolop  codec[ast.BoolOperator]  = variantsOf(ast.CategoryBoolOp, ast.BoolOperators())
		binop   codec[ast.Operator]      = variantsOf(ast.CategoryOperator, ast.Operators())
		unaryop codec[ast.UnaryOperator] = variantsOf(ast.CategoryUnaryOp, ast.UnaryOperators())
		cmpops  codec[[]ast.CmpOperator] = seqOf(variantsOf(ast.CategoryCmpOp, ast.CmpOperators()))
	)

	// products
	argumentsKind.fields = []field[ast.Arguments]{
		req("posonlyargs", args, func(n *ast.Arguments) *[]*ast.Arg { return &n.PosOnlyArgs }),
		req("args", args, func(n *ast.Arguments) *[]*ast.Arg { return &n.Args }),
		opt("vararg", arg, func(n *ast.Arguments) **ast.Arg { return &n.Vararg }),
		req("kwonlyargs", args, func(n *ast.Arguments) *[]*ast.Arg { return &n.KwOnlyArgs }),
		req("kw_defaults", optExprs, func(n *ast.Arguments) *[]ast.Expr { return &n.KwDefaults }),
		opt("kwarg", arg, func(n *ast.Arguments) **ast.Arg { return &n.Kwarg }),
		req("defaults", exprs, func(n *ast.Arguments) *[]ast.Expr { return &n.Defaults }),
	}
	argKind.fields = []field[ast.Arg]{
		req("arg", str, func(n *ast.Arg) *string { return &n.Arg }),
		opt("annotation", expr, func(n *ast.Arg) *ast.Expr { return &n.Annotation }),
		opt("type_comment", optStr, func(n *ast.Arg) **string { return &n.TypeComment }),
	}
	keywordKind.fields = []field[ast.Keyword]{
		opt("arg", optStr, func(n *ast.Keyword) **string { return &n.Arg }),
		req("value", expr, func(n *ast.Keyword) *ast.Expr { return &n.Value }),
	}
	aliasKind.fields = []field[ast.Alias]{
		req("name", str, func(n *ast.Alias) *string { return &n.Name }),
		opt("asname", optStr, func(n *ast.Alias) **string { return &n.AsName }),
	}

	// mod
	addMember(modSum, &kind[ast.Module]{name: "Module", fields: []field[ast.Module]{
		req("body", stmts, func(n *ast.Module) *[]ast.Stmt { return &n.Body }),
	}})
	addMember(modSum, &kind[ast.Interactive]{name: "Interactive", fields: []field[ast.Interactive]{
		req("body", stmts, func(n *ast.Interactive) *[]ast.Stmt { return &n.Body }),
	}})
	addMember(modSum, &kind[ast.Expression]{name: "Expression", fields: []field[ast.Expression]{
		req("body", expr, func(n *ast.Expression) *ast.Expr { return &n.Body }),
	}})

	// stmt
	addMember(stmtSum, &kind[ast.FunctionDef]{name: "FunctionDef", located: true, fields: []field[ast.FunctionDef]{
		req("name", str, func(n *ast.FunctionDef) *string { return &n.Name }),
		req("args", arguments, func(n *ast.FunctionDef) **ast.Arguments { return &n.Args }),
		req("body", stmts, func(n *ast.FunctionDef) *[]ast.Stmt { return &n.Body }),
		req("decorator_list", exprs, func(n *ast.FunctionDef) *[]ast.Expr { return &n.DecoratorList }),
		opt("returns", expr, func(n *ast.FunctionDef) *ast.Expr { return &n.Returns }),
		opt("type_comment", optStr, func(n *ast.FunctionDef) **string { return &n.TypeComment }),
	}})
	addMember(stmtSum, &kind[ast.Return]{name: "Return", located: true, fields: []field[ast.Return]{
		opt("value", expr, func(n *ast.Return) *ast.Expr { return &n.Value }),
	}})
	addMember(stmtSum, &kind[ast.Delete]{name: "Delete", located: true, fields: []field[ast.Delete]{
		req("targets", exprs, func(n *ast.Delete) *[]ast.Expr { return &n.Targets }),
	}})
	addMember(stmtSum, &kind[ast.Assign]{name: "Assign", located: true, fields: []field[ast.Assign]{
		req("targets", exprs, func(n *ast.Assign) *[]ast.Expr { return &n.Targets }),
		req("value", expr, func(n *ast.Assign) *ast.Expr { return &n.Value }),
		opt("type_comment", optStr, func(n *ast.Assign) **string { return &n.TypeComment }),
	}})
	addMember(stmtSum, &kind[ast.AugAssign]{name: "AugAssign", located: true, fields: []field[ast.AugAssign]{
		req("target", expr, func(n *ast.AugAssign) *ast.Expr { return &n.Target }),
		req("op", binop, func(n *ast.AugAssign) *ast.Operator { return &n.Op }),
		req("value", expr, func(n *ast.AugAssign) *ast.Expr { return &n.Value }),
	}})
	addMember(stmtSum, &kind[ast.AnnAssign]{name: "AnnAssign", located: true, fields: []field[ast.AnnAssign]{
		req("target", expr, func(n *ast.AnnAssign) *ast.Expr { return &n.Target }),
		req("annotation", expr, func(n *ast.AnnAssign) *ast.Expr { return &n.Annotation }),
		opt("value", expr, func(n *ast.AnnAssign) *ast.Expr { return &n.Value }),
		req("simple", flag, func(n *ast.AnnAssign) *bool { return &n.Simple }),
	}})
	addMember(stmtSum, &kind[ast.For]{name: "For", located: true, fields: []field[ast.For]{
		req("target", expr, func(n *ast.For) *ast.Expr { return &n.Target }),
		req("iter", expr, func(n *ast.For) *ast.Expr { return &n.Iter }),
		req("body", stmts, func(n *ast.For) *[]ast.Stmt { return &n.Body }),
		req("orelse", stmts, func(n *ast.For) *[]ast.Stmt { return &n.OrElse }),
		opt("type_comment", optStr, func(n *ast.For) **string { return &n.TypeComment }),
	}})
	addMember(stmtSum, &kind[ast.While]{name: "While", located: true, fields: []field[ast.While]{
		req("test", expr, func(n *ast.While) *ast.Expr { return &n.Test }),
		req("body", stmts, func(n *ast.While) *[]ast.Stmt { return &n.Body }),
		req("orelse", stmts, func(n *ast.While) *[]ast.Stmt { return &n.OrElse }),
	}})
	addMember(stmtSum, &kind[ast.If]{name: "If", located: true, fields: []field[ast.If]{
		req("test", expr, func(n *ast.If) *ast.Expr { return &n.Test }),
		req("body", stmts, func(n *ast.If) *[]ast.Stmt { return &n.Body }),
		req("orelse", stmts, func(n *ast.If) *[]ast.Stmt { return &n.OrElse }),
	}})
	addMember(stmtSum, &kind[ast.Raise]{name: "Raise", located: true, fields: []field[ast.Raise]{
		opt("exc", expr, func(n *ast.Raise) *ast.Expr { return &n.Exc }),
		opt("cause", expr, func(n *ast.Raise) *ast.Expr { return &n.Cause }),
	}})
	addMember(stmtSum, &kind[ast.Assert]{name: "Assert", located: true, fields: []field[ast.Assert]{
		req("test", expr, func(n *ast.Assert) *ast.Expr { return &n.Test }),
		opt("msg", expr, func(n *ast.Assert) *ast.Expr { return &n.Msg }),
	}})
	addMember(stmtSum, &kind[ast.Import]{name: "Import", located: true, fields: []field[ast.Import]{
		req("names", aliases, func(n *ast.Import) *[]*ast.Alias { return &n.Names }),
	}})
	addMember(stmtSum, &kind[ast.ImportFrom]{name: "ImportFrom", located: true, fields: []field[ast.ImportFrom]{
		opt("module", optStr, func(n *ast.ImportFrom) **string { return &n.Module }),
		req("names", aliases, func(n *ast.ImportFrom) *[]*ast.Alias { return &n.Names }),
		opt("level", optUint, func(n *ast.ImportFrom) **uint { return &n.Level }),
	}})
	addMember(stmtSum, &kind[ast.Global]{name: "Global", located: true, fields: []field[ast.Global]{
		req("names", names, func(n *ast.Global) *[]string { return &n.Names }),
	}})
	addMember(stmtSum, &kind[ast.Nonlocal]{name: "Nonlocal", located: true, fields: []field[ast.Nonlocal]{
		req("names", names, func(n *ast.Nonlocal) *[]string { return &n.Names }),
	}})
	addMember(stmtSum, &kind[ast.ExprStmt]{name: "Expr", located: true, fields: []field[ast.ExprStmt]{
		req("value", expr, func(n *ast.ExprStmt) *ast.Expr { return &n.Value }),
	}})
	addMember(stmtSum, &kind[ast.Pass]{name: "Pass", located: true})
	addMember(stmtSum, &kind[ast.Break]{name: "Break", located: true})
	addMember(stmtSum, &kind[ast.Continue]{name: "Continue", located: true})

	// expr
	addMember(exprSum, &kind[ast.BoolOp]{name: "BoolOp", located: true, fields: []field[ast.BoolOp]{
		req("op", boolop, func(n *ast.BoolOp) *ast.BoolOperator { return &n.Op }),
		req("values", exprs, func(n *ast.BoolOp) *[]ast.Expr { return &n.Values }),
	}})
	addMember(exprSum, &kind[ast.BinOp]{name: "BinOp", located: true, fields: []field[ast.BinOp]{
		req("left", expr, func(n *ast.BinOp) *ast.Expr { return &n.Left }),
		req("op", binop, func(n *ast.BinOp) *ast.Operator { return &n.Op }),
		req("right", expr, func(n *ast.BinOp) *ast.Expr { return &n.Right }),
	}})
	addMember(exprSum, &kind[ast.UnaryOp]{name: "UnaryOp", located: true, fields: []field[ast.UnaryOp]{
		req("op", unaryop, func(n *ast.UnaryOp) *ast.UnaryOperator { return &n.Op }),
		req("operand", expr, func(n *ast.UnaryOp) *ast.Expr { return &n.Operand }),
	}})
	addMember(exprSum, &kind[ast.Lambda]{name: "Lambda", located: true, fields: []field[ast.Lambda]{
		req("args", arguments, func(n *ast.Lambda) **ast.Arguments { return &n.Args }),
		req("body", expr, func(n *ast.Lambda) *ast.Expr { return &n.Body }),
	}})
	addMember(exprSum, &kind[ast.IfExp]{name: "IfExp", located: true, fields: []field[ast.IfExp]{
		req("test", expr, func(n *ast.IfExp) *ast.Expr { return &n.Test }),
		req("body", expr, func(n *ast.IfExp) *ast.Expr { return &n.Body }),
		req("orelse", expr, func(n *ast.IfExp) *ast.Expr { return &n.OrElse }),
	}})
	addMember(exprSum, &kind[ast.Dict]{name: "Dict", located: true, fields: []field[ast.Dict]{
		req("keys", optExprs, func(n *ast.Dict) *[]ast.Expr { return &n.Keys }),
		req("values", exprs, func(n *ast.Dict) *[]ast.Expr { return &n.Values }),
	}})
	addMember(exprSum, &kind[ast.Set]{name: "Set", located: true, fields: []field[ast.Set]{
		req("elts", exprs, func(n *ast.Set) *[]ast.Expr { return &n.Elts }),
	}})
	addMember(exprSum, &kind[ast.Compare]{name: "Compare", located: true, fields: []field[ast.Compare]{
		req("left", expr, func(n *ast.Compare) *ast.Expr { return &n.Left }),
		req("ops", cmpops, func(n *ast.Compare) *[]ast.CmpOperator { return &n.Ops }),
		req("comparators", exprs, func(n *ast.Compare) *[]ast.Expr { return &n.Comparators }),
	}})
	addMember(exprSum, &kind[ast.Call]{name: "Call", located: true, fields: []field[ast.Call]{
		req("func", expr, func(n *ast.Call) *ast.Expr { return &n.Func }),
		req("args", exprs, func(n *ast.Call) *[]ast.Expr { return &n.Args }),
		req("keywords", keywords, func(n *ast.Call) *[]*ast.Keyword { return &n.Keywords }),
	}})
	addMember(exprSum, &kind[ast.FormattedValue]{name: "FormattedValue", located: true, fields: []field[ast.FormattedValue]{
		req("value", expr, func(n *ast.FormattedValue) *ast.Expr { return &n.Value }),
		opt("conversion", conv, func(n *ast.FormattedValue) **ast.ConversionFlag { return &n.Conversion }),
		opt("format_spec", expr, func(n *ast.FormattedValue) *ast.Expr { return &n.FormatSpec }),
	}})
	addMember(exprSum, &kind[ast.JoinedStr]{name: "JoinedStr", located: true, fields: []field[ast.JoinedStr]{
		req("values", exprs, func(n *ast.JoinedStr) *[]ast.Expr { return &n.Values }),
	}})
	addMember(exprSum, &kind[ast.Constant]{name: "Constant", located: true, fields: []field[ast.Constant]{
		req("value", constant, func(n *ast.Constant) *ast.ConstantValue { return &n.Value }),
		opt("kind", optStr, func(n *ast.Constant) **string { return &n.Kind }),
	}})
	addMember(exprSum, &kind[ast.Attribute]{name: "Attribute", located: true, fields: []field[ast.Attribute]{
		req("value", expr, func(n *ast.Attribute) *ast.Expr { return &n.Value }),
		req("attr", str, func(n *ast.Attribute) *string { return &n.Attr }),
		req("ctx", ctx, func(n *ast.Attribute) *ast.ExprContext { return &n.Ctx }),
	}})
	addMember(exprSum, &kind[ast.Subscript]{name: "Subscript", located: true, fields: []field[ast.Subscript]{
		req("value", expr, func(n *ast.Subscript) *ast.Expr { return &n.Value }),
		req("slice", expr, func(n *ast.Subscript) *ast.Expr { return &n.Slice }),
		req("ctx", ctx, func(n *ast.Subscript) *ast.ExprContext { return &n.Ctx }),
	}})
	addMember(exprSum, &kind[ast.Starred]{name: "Starred", located: true, fields: []field[ast.Starred]{
		req("value", expr, func(n *ast.Starred) *ast.Expr { return &n.Value }),
		req("ctx", ctx, func(n *ast.Starred) *ast.ExprContext { return &n.Ctx }),
	}})
	addMember(exprSum, &kind[ast.Name]{name: "Name", located: true, fields: []field[ast.Name]{
		req("id", str, func(n *ast.Name) *string { return &n.ID }),
		req("ctx", ctx, func(n *ast.Name) *ast.ExprContext { return &n.Ctx }),
	}})
	addMember(exprSum, &kind[ast.List]{name: "List", located: true, fields: []field[ast.List]{
		req("elts", exprs, func(n *ast.List) *[]ast.Expr { return &n.Elts }),
		req("ctx", ctx, func(n *ast.List) *ast.ExprContext { return &n.Ctx }),
	}})
	addMember(exprSum, &kind[ast.Tuple]{name: "Tuple", located: true, fields: []field[ast.Tuple]{
		req("elts", exprs, func(n *ast.Tuple) *[]ast.Expr { return &n.Elts }),
		req("ctx", ctx, func(n *ast.Tuple) *ast.ExprContext { return &n.Ctx }),
	}})
	addMember(exprSum, &kind[ast.Slice]{name: "Slice", located: true, fields: []field[ast.Slice]{
		opt("lower", expr, func(n *ast.Slice) *ast.Expr { return &n.Lower }),
		opt("upper", expr, func(n *ast.Slice) *ast.Expr { return &n.Upper }),
		opt("step", expr, func(n *ast.Slice) *ast.Expr { return &n.Step }),
	}})
}
