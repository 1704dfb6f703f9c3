package ast

// Category is the abstract base a node class derives from. Product kinds
// (arguments, arg, keyword, alias) have no category and derive from the
// root node class directly.
type Category string

const (
	CategoryNone        Category = ""
	CategoryMod         Category = "mod"
	CategoryStmt        Category = "stmt"
	CategoryExpr        Category = "expr"
	CategoryExprContext Category = "expr_context"
	CategoryBoolOp      Category = "boolop"
	CategoryOperator    Category = "operator"
	CategoryUnaryOp     Category = "unaryop"
	CategoryCmpOp       Category = "cmpop"
)

// Categories lists the abstract bases in registry order.
func Categories() []Category {
	return []Category{
		CategoryMod, CategoryStmt, CategoryExpr, CategoryExprContext,
		CategoryBoolOp, CategoryOperator, CategoryUnaryOp, CategoryCmpOp,
	}
}

// KindInfo describes one concrete node class.
type KindInfo struct {
	Name     string
	Category Category
	// Fields is the _fields tuple, in declaration order.
	Fields []string
	// Located kinds carry lineno and col_offset.
	Located bool
}

var locationAttributes = []string{"lineno", "col_offset"}

// LocationAttributes is the _attributes tuple of located kinds.
func LocationAttributes() []string {
	return append([]string(nil), locationAttributes...)
}

func stmt(name NodeType, fields ...string) KindInfo {
	return KindInfo{Name: string(name), Category: CategoryStmt, Fields: fields, Located: true}
}

func expr(name NodeType, fields ...string) KindInfo {
	return KindInfo{Name: string(name), Category: CategoryExpr, Fields: fields, Located: true}
}

func enumKinds[T interface{ String() string }](cat Category, variants []T) []KindInfo {
	out := make([]KindInfo, len(variants))
	for i, v := range variants {
		out[i] = KindInfo{Name: v.String(), Category: cat}
	}
	return out
}

var registry = buildRegistry()

func buildRegistry() []KindInfo {
	kinds := []KindInfo{
		{Name: string(NodeModule), Category: CategoryMod, Fields: []string{"body"}},
		{Name: string(NodeInteractive), Category: CategoryMod, Fields: []string{"body"}},
		{Name: string(NodeExpression), Category: CategoryMod, Fields: []string{"body"}},

		stmt(NodeFunctionDef, "name", "args", "body", "decorator_list", "returns", "type_comment"),
		stmt(NodeReturn, "value"),
		stmt(NodeDelete, "targets"),
		stmt(NodeAssign, "targets", "value", "type_comment"),
		stmt(NodeAugAssign, "target", "op", "value"),
		stmt(NodeAnnAssign, "target", "annotation", "value", "simple"),
		stmt(NodeFor, "target", "iter", "body", "orelse", "type_comment"),
		stmt(NodeWhile, "test", "body", "orelse"),
		stmt(NodeIf, "test", "body", "orelse"),
		stmt(NodeRaise, "exc", "cause"),
		stmt(NodeAssert, "test", "msg"),
		stmt(NodeImport, "names"),
		stmt(NodeImportFrom, "module", "names", "level"),
		stmt(NodeGlobal, "names"),
		stmt(NodeNonlocal, "names"),
		stmt(NodeExpr, "value"),
		stmt(NodePass),
		stmt(NodeBreak),
		stmt(NodeContinue),

		expr(NodeBoolOp, "op", "values"),
		expr(NodeBinOp, "left", "op", "right"),
		expr(NodeUnaryOp, "op", "operand"),
		expr(NodeLambda, "args", "body"),
		expr(NodeIfExp, "test", "body", "orelse"),
		expr(NodeDict, "keys", "values"),
		expr(NodeSet, "elts"),
		expr(NodeCompare, "left", "ops", "comparators"),
		expr(NodeCall, "func", "args", "keywords"),
		expr(NodeFormattedValue, "value", "conversion", "format_spec"),
		expr(NodeJoinedStr, "values"),
		expr(NodeConstant, "value", "kind"),
		expr(NodeAttribute, "value", "attr", "ctx"),
		expr(NodeSubscript, "value", "slice", "ctx"),
		expr(NodeStarred, "value", "ctx"),
		expr(NodeName, "id", "ctx"),
		expr(NodeList, "elts", "ctx"),
		expr(NodeTuple, "elts", "ctx"),
		expr(NodeSlice, "lower", "upper", "step"),
	}
	kinds = append(kinds, enumKinds(CategoryExprContext, ExprContexts())...)
	kinds = append(kinds, enumKinds(CategoryBoolOp, BoolOperators())...)
	kinds = append(kinds, enumKinds(CategoryOperator, Operators())...)
	kinds = append(kinds, enumKinds(CategoryUnaryOp, UnaryOperators())...)
	kinds = append(kinds, enumKinds(CategoryCmpOp, CmpOperators())...)
	kinds = append(kinds,
		KindInfo{Name: string(NodeArguments), Fields: []string{
			"posonlyargs", "args", "vararg", "kwonlyargs", "kw_defaults", "kwarg", "defaults",
		}},
		KindInfo{Name: string(NodeArg), Fields: []string{"arg", "annotation", "type_comment"}, Located: true},
		KindInfo{Name: string(NodeKeyword), Fields: []string{"arg", "value"}, Located: true},
		KindInfo{Name: string(NodeAlias), Fields: []string{"name", "asname"}},
	)
	return kinds
}

// Registry returns every concrete node class in registry order.
func Registry() []KindInfo {
	out := make([]KindInfo, len(registry))
	copy(out, registry)
	return out
}

// Lookup finds a node class by name.
func Lookup(name string) (KindInfo, bool) {
	for _, k := range registry {
		if k.Name == name {
			return k, true
		}
	}
	return KindInfo{}, false
}
