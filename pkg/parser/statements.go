package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"serpent/interpreter-go/pkg/ast"
)

// parseBlock converts every statement under a module or block node.
func (ctx *parseContext) parseBlock(node *sitter.Node) ([]ast.Stmt, error) {
	if node == nil {
		return nil, nil
	}
	children := namedChildren(node)
	body := make([]ast.Stmt, 0, len(children))
	for _, child := range children {
		stmt, err := ctx.parseStatement(child)
		if err != nil {
			return nil, wrapParseError(child, err)
		}
		body = append(body, stmt)
	}
	return body, nil
}

func (ctx *parseContext) parseStatement(node *sitter.Node) (ast.Stmt, error) {
	if err := ctx.enter(node); err != nil {
		return nil, err
	}
	defer ctx.leave()

	switch node.Kind() {
	case "expression_statement":
		return ctx.parseExpressionStatement(node)
	case "return_statement":
		stmt := &ast.Return{Located: at(node)}
		if parts := namedChildren(node); len(parts) > 0 {
			value, err := ctx.parseExpressionList(node, parts)
			if err != nil {
				return nil, err
			}
			stmt.Value = value
		}
		return stmt, nil
	case "delete_statement":
		return ctx.parseDelete(node)
	case "raise_statement":
		return ctx.parseRaise(node)
	case "assert_statement":
		parts := namedChildren(node)
		if len(parts) == 0 || len(parts) > 2 {
			return nil, errorAt(node, "assert expects a test and an optional message")
		}
		test, err := ctx.parseExpr(parts[0])
		if err != nil {
			return nil, err
		}
		stmt := &ast.Assert{Located: at(node), Test: test}
		if len(parts) == 2 {
			if stmt.Msg, err = ctx.parseExpr(parts[1]); err != nil {
				return nil, err
			}
		}
		return stmt, nil
	case "pass_statement":
		return &ast.Pass{Located: at(node)}, nil
	case "break_statement":
		return &ast.Break{Located: at(node)}, nil
	case "continue_statement":
		return &ast.Continue{Located: at(node)}, nil
	case "global_statement":
		return &ast.Global{Located: at(node), Names: ctx.identifiers(node)}, nil
	case "nonlocal_statement":
		return &ast.Nonlocal{Located: at(node), Names: ctx.identifiers(node)}, nil
	case "import_statement":
		names, err := ctx.parseAliases(node)
		if err != nil {
			return nil, err
		}
		return &ast.Import{Located: at(node), Names: names}, nil
	case "import_from_statement", "future_import_statement":
		return ctx.parseImportFrom(node)
	case "if_statement":
		return ctx.parseIf(node)
	case "while_statement":
		return ctx.parseWhile(node)
	case "for_statement":
		return ctx.parseFor(node)
	case "function_definition":
		return ctx.parseFunctionDef(node, nil)
	case "decorated_definition":
		return ctx.parseDecorated(node)
	default:
		return nil, unsupported(node)
	}
}

func (ctx *parseContext) parseExpressionStatement(node *sitter.Node) (ast.Stmt, error) {
	parts := namedChildren(node)
	if len(parts) == 1 {
		switch parts[0].Kind() {
		case "assignment":
			return ctx.parseAssignment(parts[0])
		case "augmented_assignment":
			return ctx.parseAugAssign(parts[0])
		}
	}
	value, err := ctx.parseExpressionList(node, parts)
	if err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Located: at(node), Value: value}, nil
}

func (ctx *parseContext) parseAssignment(node *sitter.Node) (ast.Stmt, error) {
	left := node.ChildByFieldName("left")
	if typeNode := node.ChildByFieldName("type"); typeNode != nil {
		return ctx.parseAnnAssign(node, left, typeNode)
	}

	targets := []*sitter.Node{left}
	right := node.ChildByFieldName("right")
	for right != nil && right.Kind() == "assignment" {
		if right.ChildByFieldName("type") != nil {
			return nil, errorAt(right, "invalid syntax")
		}
		targets = append(targets, right.ChildByFieldName("left"))
		right = right.ChildByFieldName("right")
	}
	if right == nil {
		return nil, errorAt(node, "assignment missing value")
	}
	if right.Kind() == "augmented_assignment" {
		return nil, errorAt(right, "invalid syntax")
	}

	stmt := &ast.Assign{Located: at(node)}
	for _, t := range targets {
		target, err := ctx.parseTarget(t, ast.Store)
		if err != nil {
			return nil, err
		}
		stmt.Targets = append(stmt.Targets, target)
	}
	value, err := ctx.parseRightHandSide(right)
	if err != nil {
		return nil, err
	}
	stmt.Value = value
	return stmt, nil
}

func (ctx *parseContext) parseAnnAssign(node, left, typeNode *sitter.Node) (ast.Stmt, error) {
	if left.Kind() == "pattern_list" {
		return nil, errorAt(left, "only single target (not tuple) can be annotated")
	}
	target, err := ctx.parseTarget(left, ast.Store)
	if err != nil {
		return nil, err
	}
	switch target.(type) {
	case *ast.Tuple:
		return nil, errorAt(left, "only single target (not tuple) can be annotated")
	case *ast.List:
		return nil, errorAt(left, "only single target (not list) can be annotated")
	}
	annotation, err := ctx.parseExpr(typeNode)
	if err != nil {
		return nil, err
	}
	stmt := &ast.AnnAssign{
		Located:    at(node),
		Target:     target,
		Annotation: annotation,
		Simple:     left.Kind() == "identifier",
	}
	if right := node.ChildByFieldName("right"); right != nil {
		if stmt.Value, err = ctx.parseRightHandSide(right); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (ctx *parseContext) parseAugAssign(node *sitter.Node) (ast.Stmt, error) {
	opNode := node.ChildByFieldName("operator")
	op, ok := ast.OperatorFromSymbol(ctx.text(opNode))
	if !ok {
		return nil, errorAt(opNode, "unknown augmented assignment operator %q", ctx.text(opNode))
	}
	left := node.ChildByFieldName("left")
	target, err := ctx.parseTarget(left, ast.Store)
	if err != nil {
		return nil, err
	}
	switch target.(type) {
	case *ast.Name, *ast.Attribute, *ast.Subscript:
	default:
		return nil, errorAt(left, "'%s' is an illegal expression for augmented assignment", describeNode(left))
	}
	value, err := ctx.parseRightHandSide(node.ChildByFieldName("right"))
	if err != nil {
		return nil, err
	}
	return &ast.AugAssign{Located: at(node), Target: target, Op: op, Value: value}, nil
}

func (ctx *parseContext) parseRightHandSide(node *sitter.Node) (ast.Expr, error) {
	if node == nil {
		return nil, errorAt(node, "missing value")
	}
	switch node.Kind() {
	case "expression_list", "pattern_list":
		return ctx.parseExpressionList(node, namedChildren(node))
	case "yield":
		return nil, unsupported(node)
	}
	return ctx.parseExpr(node)
}

func (ctx *parseContext) parseDelete(node *sitter.Node) (ast.Stmt, error) {
	parts := namedChildren(node)
	if len(parts) == 1 && parts[0].Kind() == "expression_list" {
		parts = namedChildren(parts[0])
	}
	stmt := &ast.Delete{Located: at(node)}
	for _, part := range parts {
		target, err := ctx.parseTarget(part, ast.Del)
		if err != nil {
			return nil, err
		}
		stmt.Targets = append(stmt.Targets, target)
	}
	return stmt, nil
}

func (ctx *parseContext) parseRaise(node *sitter.Node) (ast.Stmt, error) {
	stmt := &ast.Raise{Located: at(node)}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || !child.IsNamed() || isIgnorableNode(child) {
			continue
		}
		value, err := ctx.parseRightHandSide(child)
		if err != nil {
			return nil, err
		}
		if node.FieldNameForChild(uint32(i)) == "cause" {
			stmt.Cause = value
		} else {
			stmt.Exc = value
		}
	}
	return stmt, nil
}

func (ctx *parseContext) identifiers(node *sitter.Node) []string {
	var names []string
	for _, child := range namedChildren(node) {
		names = append(names, ctx.text(child))
	}
	return names
}

// dottedName rebuilds a dotted_name without any interior whitespace.
func (ctx *parseContext) dottedName(node *sitter.Node) string {
	if node.Kind() != "dotted_name" {
		return ctx.text(node)
	}
	parts := make([]string, 0, node.NamedChildCount())
	for _, child := range namedChildren(node) {
		parts = append(parts, ctx.text(child))
	}
	return strings.Join(parts, ".")
}

func (ctx *parseContext) parseAliases(node *sitter.Node) ([]*ast.Alias, error) {
	var aliases []*ast.Alias
	for _, child := range fieldChildren(node, "name") {
		switch child.Kind() {
		case "dotted_name":
			aliases = append(aliases, &ast.Alias{Name: ctx.dottedName(child)})
		case "aliased_import":
			alias := &ast.Alias{Name: ctx.dottedName(child.ChildByFieldName("name"))}
			if as := child.ChildByFieldName("alias"); as != nil {
				alias.AsName = ast.Str(ctx.text(as))
			}
			aliases = append(aliases, alias)
		default:
			return nil, unsupported(child)
		}
	}
	return aliases, nil
}

func (ctx *parseContext) parseImportFrom(node *sitter.Node) (ast.Stmt, error) {
	stmt := &ast.ImportFrom{Located: at(node)}
	var level uint
	if node.Kind() == "future_import_statement" {
		stmt.Module = ast.Str("__future__")
	} else {
		moduleNode := node.ChildByFieldName("module_name")
		if moduleNode == nil {
			return nil, errorAt(node, "import from missing module")
		}
		switch moduleNode.Kind() {
		case "relative_import":
			for _, part := range namedChildren(moduleNode) {
				switch part.Kind() {
				case "import_prefix":
					level = uint(strings.Count(ctx.text(part), "."))
				case "dotted_name":
					stmt.Module = ast.Str(ctx.dottedName(part))
				}
			}
		default:
			stmt.Module = ast.Str(ctx.dottedName(moduleNode))
		}
	}
	stmt.Level = &level

	for _, child := range namedChildren(node) {
		if child.Kind() == "wildcard_import" {
			stmt.Names = []*ast.Alias{{Name: "*"}}
			return stmt, nil
		}
	}
	names, err := ctx.parseAliases(node)
	if err != nil {
		return nil, err
	}
	stmt.Names = names
	return stmt, nil
}

func (ctx *parseContext) parseIf(node *sitter.Node) (ast.Stmt, error) {
	test, err := ctx.parseExpr(node.ChildByFieldName("condition"))
	if err != nil {
		return nil, err
	}
	body, err := ctx.parseBlock(node.ChildByFieldName("consequence"))
	if err != nil {
		return nil, err
	}
	stmt := &ast.If{Located: at(node), Test: test, Body: body}

	// elif clauses nest as a single If in the enclosing orelse.
	alternatives := fieldChildren(node, "alternative")
	var orElse []ast.Stmt
	for i := len(alternatives) - 1; i >= 0; i-- {
		alt := alternatives[i]
		switch alt.Kind() {
		case "else_clause":
			if orElse, err = ctx.parseBlock(alt.ChildByFieldName("body")); err != nil {
				return nil, err
			}
		case "elif_clause":
			elifTest, err := ctx.parseExpr(alt.ChildByFieldName("condition"))
			if err != nil {
				return nil, err
			}
			elifBody, err := ctx.parseBlock(alt.ChildByFieldName("consequence"))
			if err != nil {
				return nil, err
			}
			orElse = []ast.Stmt{&ast.If{Located: at(alt), Test: elifTest, Body: elifBody, OrElse: orElse}}
		default:
			return nil, unsupported(alt)
		}
	}
	stmt.OrElse = orElse
	return stmt, nil
}

func (ctx *parseContext) parseElse(node *sitter.Node) ([]ast.Stmt, error) {
	alt := node.ChildByFieldName("alternative")
	if alt == nil {
		return nil, nil
	}
	return ctx.parseBlock(alt.ChildByFieldName("body"))
}

func (ctx *parseContext) parseWhile(node *sitter.Node) (ast.Stmt, error) {
	test, err := ctx.parseExpr(node.ChildByFieldName("condition"))
	if err != nil {
		return nil, err
	}
	body, err := ctx.parseBlock(node.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	orElse, err := ctx.parseElse(node)
	if err != nil {
		return nil, err
	}
	return &ast.While{Located: at(node), Test: test, Body: body, OrElse: orElse}, nil
}

func (ctx *parseContext) parseFor(node *sitter.Node) (ast.Stmt, error) {
	if hasToken(node, "async") {
		return nil, errorAt(node, "unsupported syntax: async for")
	}
	target, err := ctx.parseTarget(node.ChildByFieldName("left"), ast.Store)
	if err != nil {
		return nil, err
	}
	iter, err := ctx.parseRightHandSide(node.ChildByFieldName("right"))
	if err != nil {
		return nil, err
	}
	body, err := ctx.parseBlock(node.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	orElse, err := ctx.parseElse(node)
	if err != nil {
		return nil, err
	}
	return &ast.For{Located: at(node), Target: target, Iter: iter, Body: body, OrElse: orElse}, nil
}

func (ctx *parseContext) parseFunctionDef(node *sitter.Node, decorators []ast.Expr) (ast.Stmt, error) {
	if hasToken(node, "async") {
		return nil, errorAt(node, "unsupported syntax: async def")
	}
	if node.ChildByFieldName("type_parameters") != nil {
		return nil, errorAt(node, "unsupported syntax: type parameters")
	}
	args, err := ctx.parseParameters(node.ChildByFieldName("parameters"))
	if err != nil {
		return nil, err
	}
	body, err := ctx.parseBlock(node.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	stmt := &ast.FunctionDef{
		Located:       at(node),
		Name:          ctx.text(node.ChildByFieldName("name")),
		Args:          args,
		Body:          body,
		DecoratorList: decorators,
	}
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		if stmt.Returns, err = ctx.parseExpr(ret); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (ctx *parseContext) parseDecorated(node *sitter.Node) (ast.Stmt, error) {
	var decorators []ast.Expr
	for _, child := range namedChildren(node) {
		if child.Kind() != "decorator" {
			continue
		}
		parts := namedChildren(child)
		if len(parts) != 1 {
			return nil, errorAt(child, "invalid decorator")
		}
		expr, err := ctx.parseExpr(parts[0])
		if err != nil {
			return nil, err
		}
		decorators = append(decorators, expr)
	}
	def := node.ChildByFieldName("definition")
	if def == nil || def.Kind() != "function_definition" {
		if def == nil {
			return nil, errorAt(node, "decorator without definition")
		}
		return nil, unsupported(def)
	}
	return ctx.parseFunctionDef(def, decorators)
}
