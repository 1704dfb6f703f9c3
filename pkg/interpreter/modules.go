package interpreter

import (
	"context"

	"serpent/interpreter-go/pkg/pyast"
	"serpent/interpreter-go/pkg/runtime"
)

// registerModules installs _ast and the ast convenience module on top of
// it.
func (i *Interpreter) registerModules() {
	ns := i.bridge.Namespace()
	low := ns.Module()
	i.AddModule(low)

	high := runtime.NewModule("ast")
	if attrs, err := low.Dict.Attributes(); err == nil {
		for _, kw := range attrs {
			_ = high.Dict.SetStr(kw.Name, kw.Value)
		}
	}
	_ = high.Dict.SetStr("parse", runtime.NewNativeFunction("parse", i.astParse))
	_ = high.Dict.SetStr("dump", runtime.NewNativeFunction("dump", i.astDump))
	i.AddModule(high)
}

// astParse is ast.parse(source, filename='<unknown>', mode='exec').
func (i *Interpreter) astParse(ctx context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	bound, err := bindArgs("parse", args, kwargs, 1, "source", "filename", "mode")
	if err != nil {
		return nil, err
	}
	if bound[1] == nil {
		bound[1] = runtime.Str("<unknown>")
	}
	if bound[2] == nil {
		bound[2] = runtime.Str("exec")
	}
	return i.builtinCompile(ctx, []runtime.Value{bound[0], bound[1], bound[2], runtime.NewInt(pyast.PyCFOnlyAST)}, nil)
}

// astDump is ast.dump(node, include_attributes=False).
func (i *Interpreter) astDump(_ context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	bound, err := bindArgs("dump", args, kwargs, 1, "node", "include_attributes")
	if err != nil {
		return nil, err
	}
	if !i.bridge.Namespace().IsNode(bound[0]) {
		return nil, typeError("expected AST, got '%s'", runtime.TypeName(bound[0]))
	}
	include := bound[1] != nil && truthy(bound[1])
	return runtime.Str(pyast.Dump(bound[0], include)), nil
}
