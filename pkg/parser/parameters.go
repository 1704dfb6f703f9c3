package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"serpent/interpreter-go/pkg/ast"
)

// paramState tracks which section of a parameter list is being filled.
type paramState int

const (
	paramPositional paramState = iota
	paramKeywordOnly
	paramDone
)

// parseParameters converts a parameters or lambda_parameters node. A nil
// node yields an empty argument list.
func (ctx *parseContext) parseParameters(node *sitter.Node) (*ast.Arguments, error) {
	args := &ast.Arguments{}
	if node == nil {
		return args, nil
	}
	state := paramPositional
	sawDefault := false
	for _, param := range namedChildren(node) {
		if state == paramDone {
			return nil, errorAt(param, "arguments cannot follow var-keyword argument")
		}
		switch param.Kind() {
		case "positional_separator":
			if state != paramPositional || len(args.PosOnlyArgs) > 0 {
				return nil, errorAt(param, "/ must be ahead of *")
			}
			if len(args.Args) == 0 {
				return nil, errorAt(param, "at least one argument must precede /")
			}
			args.PosOnlyArgs, args.Args = args.Args, nil
			continue
		case "keyword_separator":
			if state != paramPositional {
				return nil, errorAt(param, "* argument may appear only once")
			}
			state = paramKeywordOnly
			continue
		case "dictionary_splat_pattern":
			arg, err := ctx.splatArg(param, nil)
			if err != nil {
				return nil, err
			}
			args.Kwarg = arg
			state = paramDone
			continue
		case "list_splat_pattern":
			if state != paramPositional {
				return nil, errorAt(param, "* argument may appear only once")
			}
			arg, err := ctx.splatArg(param, nil)
			if err != nil {
				return nil, err
			}
			args.Vararg = arg
			state = paramKeywordOnly
			continue
		}

		arg, defaultValue, splat, err := ctx.parameter(param)
		if err != nil {
			return nil, err
		}
		switch splat {
		case "list_splat_pattern":
			if state != paramPositional {
				return nil, errorAt(param, "* argument may appear only once")
			}
			args.Vararg = arg
			state = paramKeywordOnly
			continue
		case "dictionary_splat_pattern":
			args.Kwarg = arg
			state = paramDone
			continue
		}

		if state == paramKeywordOnly {
			args.KwOnlyArgs = append(args.KwOnlyArgs, arg)
			args.KwDefaults = append(args.KwDefaults, defaultValue)
			continue
		}
		if defaultValue == nil {
			if sawDefault {
				return nil, errorAt(param, "non-default argument follows default argument")
			}
		} else {
			sawDefault = true
			args.Defaults = append(args.Defaults, defaultValue)
		}
		args.Args = append(args.Args, arg)
	}
	if state == paramKeywordOnly && args.Vararg == nil && len(args.KwOnlyArgs) == 0 {
		return nil, errorAt(node, "named arguments must follow bare *")
	}
	return args, nil
}

// parameter converts a plain, typed or defaulted parameter. For a typed
// star parameter splat names the pattern kind.
func (ctx *parseContext) parameter(node *sitter.Node) (arg *ast.Arg, defaultValue ast.Expr, splat string, err error) {
	switch node.Kind() {
	case "identifier":
		return &ast.Arg{Located: at(node), Arg: ctx.text(node)}, nil, "", nil
	case "typed_parameter":
		annotation, err := ctx.parseExpr(node.ChildByFieldName("type"))
		if err != nil {
			return nil, nil, "", err
		}
		parts := namedChildren(node)
		if len(parts) == 0 {
			return nil, nil, "", errorAt(node, "missing parameter name")
		}
		target := parts[0]
		switch target.Kind() {
		case "identifier":
			return &ast.Arg{Located: at(target), Arg: ctx.text(target), Annotation: annotation}, nil, "", nil
		case "list_splat_pattern", "dictionary_splat_pattern":
			arg, err := ctx.splatArg(target, annotation)
			return arg, nil, target.Kind(), err
		default:
			return nil, nil, "", unsupported(target)
		}
	case "default_parameter", "typed_default_parameter":
		name := node.ChildByFieldName("name")
		if name == nil || name.Kind() != "identifier" {
			if name == nil {
				name = node
			}
			return nil, nil, "", unsupported(name)
		}
		arg = &ast.Arg{Located: at(name), Arg: ctx.text(name)}
		if typeNode := node.ChildByFieldName("type"); typeNode != nil {
			if arg.Annotation, err = ctx.parseExpr(typeNode); err != nil {
				return nil, nil, "", err
			}
		}
		if defaultValue, err = ctx.parseExpr(node.ChildByFieldName("value")); err != nil {
			return nil, nil, "", err
		}
		return arg, defaultValue, "", nil
	default:
		return nil, nil, "", unsupported(node)
	}
}

func (ctx *parseContext) splatArg(node *sitter.Node, annotation ast.Expr) (*ast.Arg, error) {
	parts := namedChildren(node)
	if len(parts) != 1 || parts[0].Kind() != "identifier" {
		return nil, errorAt(node, "invalid star parameter")
	}
	return &ast.Arg{Located: at(parts[0]), Arg: ctx.text(parts[0]), Annotation: annotation}, nil
}
