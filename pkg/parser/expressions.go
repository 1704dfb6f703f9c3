package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"serpent/interpreter-go/pkg/ast"
)

// parseExpressionList turns comma-separated parts into a tuple, or returns
// the single part when container has no comma.
func (ctx *parseContext) parseExpressionList(container *sitter.Node, parts []*sitter.Node) (ast.Expr, error) {
	if len(parts) == 1 && !hasToken(container, ",") {
		return ctx.parseExpr(parts[0])
	}
	elts, err := ctx.parseExprs(parts)
	if err != nil {
		return nil, err
	}
	return &ast.Tuple{Located: at(container), Elts: elts, Ctx: ast.Load}, nil
}

func (ctx *parseContext) parseExprs(nodes []*sitter.Node) ([]ast.Expr, error) {
	out := make([]ast.Expr, 0, len(nodes))
	for _, n := range nodes {
		e, err := ctx.parseExpr(n)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// parseTarget converts an assignment or deletion target and stamps ctx on
// it and every nested target.
func (ctx *parseContext) parseTarget(node *sitter.Node, exprCtx ast.ExprContext) (ast.Expr, error) {
	if node == nil {
		return nil, errorAt(node, "missing target")
	}
	target, err := ctx.parseExpr(node)
	if err != nil {
		return nil, err
	}
	if !ast.SetContext(target, exprCtx) {
		verb := "assign to"
		if exprCtx == ast.Del {
			verb = "delete"
		}
		return nil, errorAt(node, "cannot %s %s", verb, describeNode(node))
	}
	return target, nil
}

func (ctx *parseContext) parseExpr(node *sitter.Node) (ast.Expr, error) {
	if node == nil {
		return nil, errorAt(node, "missing expression")
	}
	if err := ctx.enter(node); err != nil {
		return nil, err
	}
	defer ctx.leave()

	switch node.Kind() {
	case "identifier", "keyword_identifier":
		return &ast.Name{Located: at(node), ID: ctx.text(node), Ctx: ast.Load}, nil
	case "integer", "float":
		return ctx.parseNumber(node)
	case "string":
		return ctx.parseString(node)
	case "concatenated_string":
		return ctx.parseConcatenated(node)
	case "true":
		return &ast.Constant{Located: at(node), Value: ast.ConstBool(true)}, nil
	case "false":
		return &ast.Constant{Located: at(node), Value: ast.ConstBool(false)}, nil
	case "none":
		return &ast.Constant{Located: at(node), Value: ast.ConstNone{}}, nil
	case "ellipsis":
		return &ast.Constant{Located: at(node), Value: ast.ConstEllipsis{}}, nil
	case "parenthesized_expression", "type":
		parts := namedChildren(node)
		if len(parts) != 1 {
			return nil, errorAt(node, "invalid parenthesized expression")
		}
		return ctx.parseExpr(parts[0])
	case "binary_operator":
		return ctx.parseBinary(node)
	case "unary_operator":
		return ctx.parseUnary(node)
	case "not_operator":
		operand, err := ctx.parseExpr(node.ChildByFieldName("argument"))
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Located: at(node), Op: ast.Not, Operand: operand}, nil
	case "boolean_operator":
		return ctx.parseBoolean(node)
	case "comparison_operator":
		return ctx.parseComparison(node)
	case "conditional_expression":
		parts := namedChildren(node)
		if len(parts) != 3 {
			return nil, errorAt(node, "invalid conditional expression")
		}
		exprs, err := ctx.parseExprs(parts)
		if err != nil {
			return nil, err
		}
		return &ast.IfExp{Located: at(node), Body: exprs[0], Test: exprs[1], OrElse: exprs[2]}, nil
	case "lambda":
		args, err := ctx.parseParameters(node.ChildByFieldName("parameters"))
		if err != nil {
			return nil, err
		}
		body, err := ctx.parseExpr(node.ChildByFieldName("body"))
		if err != nil {
			return nil, err
		}
		return &ast.Lambda{Located: at(node), Args: args, Body: body}, nil
	case "call":
		return ctx.parseCall(node)
	case "attribute":
		value, err := ctx.parseExpr(node.ChildByFieldName("object"))
		if err != nil {
			return nil, err
		}
		attr := node.ChildByFieldName("attribute")
		return &ast.Attribute{Located: at(node), Value: value, Attr: ctx.text(attr), Ctx: ast.Load}, nil
	case "subscript":
		return ctx.parseSubscript(node)
	case "slice":
		return ctx.parseSlice(node)
	case "list", "list_pattern":
		elts, err := ctx.parseExprs(namedChildren(node))
		if err != nil {
			return nil, err
		}
		return &ast.List{Located: at(node), Elts: elts, Ctx: ast.Load}, nil
	case "tuple", "tuple_pattern":
		elts, err := ctx.parseExprs(namedChildren(node))
		if err != nil {
			return nil, err
		}
		return &ast.Tuple{Located: at(node), Elts: elts, Ctx: ast.Load}, nil
	case "expression_list", "pattern_list":
		elts, err := ctx.parseExprs(namedChildren(node))
		if err != nil {
			return nil, err
		}
		return &ast.Tuple{Located: at(node), Elts: elts, Ctx: ast.Load}, nil
	case "set":
		elts, err := ctx.parseExprs(namedChildren(node))
		if err != nil {
			return nil, err
		}
		return &ast.Set{Located: at(node), Elts: elts}, nil
	case "dictionary":
		return ctx.parseDictionary(node)
	case "list_splat", "list_splat_pattern":
		parts := namedChildren(node)
		if len(parts) != 1 {
			return nil, errorAt(node, "invalid starred expression")
		}
		value, err := ctx.parseExpr(parts[0])
		if err != nil {
			return nil, err
		}
		return &ast.Starred{Located: at(node), Value: value, Ctx: ast.Load}, nil
	default:
		return nil, unsupported(node)
	}
}

func (ctx *parseContext) parseBinary(node *sitter.Node) (ast.Expr, error) {
	opNode := node.ChildByFieldName("operator")
	op, ok := ast.OperatorFromSymbol(ctx.text(opNode))
	if !ok {
		return nil, errorAt(opNode, "unknown binary operator %q", ctx.text(opNode))
	}
	left, err := ctx.parseExpr(node.ChildByFieldName("left"))
	if err != nil {
		return nil, err
	}
	right, err := ctx.parseExpr(node.ChildByFieldName("right"))
	if err != nil {
		return nil, err
	}
	return &ast.BinOp{Located: at(node), Left: left, Op: op, Right: right}, nil
}

var unaryOperators = map[string]ast.UnaryOperator{
	"+": ast.UAdd,
	"-": ast.USub,
	"~": ast.Invert,
}

func (ctx *parseContext) parseUnary(node *sitter.Node) (ast.Expr, error) {
	opNode := node.ChildByFieldName("operator")
	op, ok := unaryOperators[ctx.text(opNode)]
	if !ok {
		return nil, errorAt(opNode, "unknown unary operator %q", ctx.text(opNode))
	}
	operand, err := ctx.parseExpr(node.ChildByFieldName("argument"))
	if err != nil {
		return nil, err
	}
	return &ast.UnaryOp{Located: at(node), Op: op, Operand: operand}, nil
}

// parseBoolean flattens left-nested chains of the same operator into one
// BoolOp, as in a and b and c.
func (ctx *parseContext) parseBoolean(node *sitter.Node) (ast.Expr, error) {
	opText := ctx.text(node.ChildByFieldName("operator"))
	op := ast.And
	if opText == "or" {
		op = ast.Or
	}
	var operands []*sitter.Node
	cur := node
	for {
		operands = append(operands, cur.ChildByFieldName("right"))
		left := cur.ChildByFieldName("left")
		if left.Kind() == "boolean_operator" && ctx.text(left.ChildByFieldName("operator")) == opText {
			cur = left
			continue
		}
		operands = append(operands, left)
		break
	}
	values := make([]ast.Expr, len(operands))
	for i, operand := range operands {
		v, err := ctx.parseExpr(operand)
		if err != nil {
			return nil, err
		}
		values[len(operands)-1-i] = v
	}
	return &ast.BoolOp{Located: at(node), Op: op, Values: values}, nil
}

func (ctx *parseContext) parseComparison(node *sitter.Node) (ast.Expr, error) {
	cmp := &ast.Compare{Located: at(node)}
	first := true
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || isIgnorableNode(child) {
			continue
		}
		if node.FieldNameForChild(uint32(i)) == "operators" {
			symbol := strings.Join(strings.Fields(ctx.text(child)), " ")
			op, ok := ast.CmpOperatorFromSymbol(symbol)
			if !ok {
				return nil, errorAt(child, "unknown comparison operator %q", symbol)
			}
			cmp.Ops = append(cmp.Ops, op)
			continue
		}
		if !child.IsNamed() {
			continue
		}
		operand, err := ctx.parseExpr(child)
		if err != nil {
			return nil, err
		}
		if first {
			cmp.Left = operand
			first = false
		} else {
			cmp.Comparators = append(cmp.Comparators, operand)
		}
	}
	if cmp.Left == nil || len(cmp.Ops) != len(cmp.Comparators) {
		return nil, errorAt(node, "invalid comparison")
	}
	return cmp, nil
}

func (ctx *parseContext) parseCall(node *sitter.Node) (ast.Expr, error) {
	fn, err := ctx.parseExpr(node.ChildByFieldName("function"))
	if err != nil {
		return nil, err
	}
	call := &ast.Call{Located: at(node), Func: fn}
	argsNode := node.ChildByFieldName("arguments")
	if argsNode == nil {
		return nil, errorAt(node, "call missing arguments")
	}
	if argsNode.Kind() != "argument_list" {
		return nil, unsupported(argsNode)
	}
	for _, arg := range namedChildren(argsNode) {
		switch arg.Kind() {
		case "keyword_argument":
			value, err := ctx.parseExpr(arg.ChildByFieldName("value"))
			if err != nil {
				return nil, err
			}
			name := ast.Str(ctx.text(arg.ChildByFieldName("name")))
			call.Keywords = append(call.Keywords, &ast.Keyword{Located: at(arg), Arg: name, Value: value})
		case "dictionary_splat":
			parts := namedChildren(arg)
			if len(parts) != 1 {
				return nil, errorAt(arg, "invalid keyword unpacking")
			}
			value, err := ctx.parseExpr(parts[0])
			if err != nil {
				return nil, err
			}
			call.Keywords = append(call.Keywords, &ast.Keyword{Located: at(arg), Value: value})
		default:
			if len(call.Keywords) > 0 && arg.Kind() != "list_splat" {
				return nil, errorAt(arg, "positional argument follows keyword argument")
			}
			value, err := ctx.parseExpr(arg)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, value)
		}
	}
	return call, nil
}

func (ctx *parseContext) parseSubscript(node *sitter.Node) (ast.Expr, error) {
	value, err := ctx.parseExpr(node.ChildByFieldName("value"))
	if err != nil {
		return nil, err
	}
	indices := fieldChildren(node, "subscript")
	if len(indices) == 0 {
		return nil, errorAt(node, "subscript missing index")
	}
	var index ast.Expr
	if len(indices) == 1 && !hasToken(node, ",") {
		if index, err = ctx.parseExpr(indices[0]); err != nil {
			return nil, err
		}
	} else {
		elts, err := ctx.parseExprs(indices)
		if err != nil {
			return nil, err
		}
		index = &ast.Tuple{Located: at(indices[0]), Elts: elts, Ctx: ast.Load}
	}
	return &ast.Subscript{Located: at(node), Value: value, Slice: index, Ctx: ast.Load}, nil
}

// parseSlice places each bound by the colons that precede it.
func (ctx *parseContext) parseSlice(node *sitter.Node) (ast.Expr, error) {
	slice := &ast.Slice{Located: at(node)}
	colons := 0
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || isIgnorableNode(child) {
			continue
		}
		if !child.IsNamed() {
			if child.Kind() == ":" {
				colons++
			}
			continue
		}
		bound, err := ctx.parseExpr(child)
		if err != nil {
			return nil, err
		}
		switch colons {
		case 0:
			slice.Lower = bound
		case 1:
			slice.Upper = bound
		default:
			slice.Step = bound
		}
	}
	return slice, nil
}

func (ctx *parseContext) parseDictionary(node *sitter.Node) (ast.Expr, error) {
	dict := &ast.Dict{Located: at(node)}
	for _, entry := range namedChildren(node) {
		switch entry.Kind() {
		case "pair":
			key, err := ctx.parseExpr(entry.ChildByFieldName("key"))
			if err != nil {
				return nil, err
			}
			value, err := ctx.parseExpr(entry.ChildByFieldName("value"))
			if err != nil {
				return nil, err
			}
			dict.Keys = append(dict.Keys, key)
			dict.Values = append(dict.Values, value)
		case "dictionary_splat":
			parts := namedChildren(entry)
			if len(parts) != 1 {
				return nil, errorAt(entry, "invalid dict unpacking")
			}
			value, err := ctx.parseExpr(parts[0])
			if err != nil {
				return nil, err
			}
			dict.Keys = append(dict.Keys, nil)
			dict.Values = append(dict.Values, value)
		default:
			return nil, unsupported(entry)
		}
	}
	return dict, nil
}

// describeNode names a concrete node kind for assignment diagnostics.
func describeNode(node *sitter.Node) string {
	switch node.Kind() {
	case "call":
		return "function call"
	case "integer", "float", "string", "concatenated_string", "true", "false", "none", "ellipsis":
		return "literal"
	case "comparison_operator":
		return "comparison"
	case "binary_operator", "unary_operator", "boolean_operator", "not_operator":
		return "expression"
	case "conditional_expression":
		return "conditional expression"
	case "dictionary":
		return "dict literal"
	case "set":
		return "set display"
	case "lambda":
		return "lambda"
	default:
		return strings.ReplaceAll(node.Kind(), "_", " ")
	}
}
