package pyast_test

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"serpent/interpreter-go/pkg/ast"
	"serpent/interpreter-go/pkg/compiler"
	"serpent/interpreter-go/pkg/parser"
	"serpent/interpreter-go/pkg/pyast"
	"serpent/interpreter-go/pkg/runtime"
)

var treeOptions = cmp.Options{
	cmpopts.IgnoreTypes(ast.Located{}),
	cmpopts.EquateEmpty(),
	cmp.Comparer(func(a, b *big.Int) bool { return a.Cmp(b) == 0 }),
}

func newBridge(t *testing.T, opts ...pyast.Option) *pyast.Bridge {
	t.Helper()
	mp, err := parser.NewModuleParser()
	require.NoError(t, err)
	t.Cleanup(mp.Close)
	return pyast.NewBridge(mp, compiler.New(), opts...)
}

// node builds an instance through the class constructor, as user code would.
func node(t *testing.T, ns *pyast.Namespace, kind string, kwargs ...runtime.KeywordArg) *runtime.Object {
	t.Helper()
	cls, ok := ns.Class(kind)
	require.True(t, ok, "no class %s", kind)
	v, err := runtime.Call(context.Background(), cls, nil, kwargs)
	require.NoError(t, err)
	return v.(*runtime.Object)
}

func kw(name string, v runtime.Value) runtime.KeywordArg {
	return runtime.KeywordArg{Name: name, Value: v}
}

func parseTyped(t *testing.T, source string) ast.Mod {
	t.Helper()
	mp, err := parser.NewModuleParser()
	require.NoError(t, err)
	defer mp.Close()
	mod, err := mp.Parse([]byte(source), ast.ModeExec)
	require.NoError(t, err)
	return mod
}

func TestRoundTripPreservesTree(t *testing.T) {
	source := `
import os.path as p
from m import a, b as c
def f(x, /, y=1, *rest, z, **kw) -> int:
    global g
    if x and not y or z < 3 <= kw:
        return [x, (y,), {1: 'a'}][0]
    while x:
        x -= 1
    else:
        pass
    for i, j in rest:
        del kw[i]
        break
    raise ValueError('bad') from None
h = lambda q=2: q.attr[1:2:3] if q else f"{q!r:>{x}}" + b'\x00'
assert h, 'msg'
`
	mod := parseTyped(t, source)
	ns := pyast.NewNamespace()
	obj := pyast.ToObject(ns, mod)

	back, err := pyast.FromObject[ast.Mod](obj, pyast.WithNamespace(ns))
	require.NoError(t, err)
	if diff := cmp.Diff(mod, back, treeOptions); diff != "" {
		t.Fatalf("round trip changed the tree (-want +got):\n%s", diff)
	}
}

func TestToObjectAttachesLocations(t *testing.T) {
	mod := parseTyped(t, "\n  \nx = 1\n")
	obj := pyast.ToObject(nil, mod).(*runtime.Object)
	body, err := runtime.GetAttr(obj, "body")
	require.NoError(t, err)
	assign := body.(*runtime.List).Snapshot()[0]

	lineno, err := runtime.GetAttr(assign, "lineno")
	require.NoError(t, err)
	require.Equal(t, runtime.NewInt(3), lineno)
	col, err := runtime.GetAttr(assign, "col_offset")
	require.NoError(t, err)
	require.Equal(t, runtime.NewInt(0), col)

	_, err = runtime.GetAttr(obj, "lineno")
	require.Error(t, err, "mod nodes carry no location")
}

func TestFromObjectMissingField(t *testing.T) {
	ns := pyast.NewNamespace()
	name := node(t, ns, "Name", kw("id", runtime.Str("x")))

	_, err := pyast.FromObject[ast.Expr](name, pyast.WithNamespace(ns))
	var missing *pyast.MissingFieldError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "ctx", missing.Field)
	require.Equal(t, "Name", missing.Kind)

	// Optional fields may be absent.
	ret := node(t, ns, "Return")
	stmt, err := pyast.FromObject[ast.Stmt](ret, pyast.WithNamespace(ns))
	require.NoError(t, err)
	require.Nil(t, stmt.(*ast.Return).Value)
}

func TestFromObjectRejectsWrongCategory(t *testing.T) {
	ns := pyast.NewNamespace()
	pass := node(t, ns, "Pass")
	_, err := pyast.FromObject[ast.Expr](pass, pyast.WithNamespace(ns))
	var mismatch *pyast.TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, "some sort of expr", mismatch.Expected)
	require.Equal(t, "Pass", mismatch.Got)

	// Classes from another namespace are foreign.
	other := node(t, pyast.NewNamespace(), "Pass")
	_, err = pyast.FromObject[ast.Stmt](other, pyast.WithNamespace(ns))
	require.ErrorAs(t, err, &mismatch)
}

func TestSubclassInstancesConvertAsTheirKind(t *testing.T) {
	ns := pyast.NewNamespace()
	base, _ := ns.Class("Pass")
	sub := runtime.NewClass("MyPass", "user", base)
	v, err := runtime.Call(context.Background(), sub, nil, nil)
	require.NoError(t, err)

	stmt, err := pyast.FromObject[ast.Stmt](v, pyast.WithNamespace(ns))
	require.NoError(t, err)
	require.IsType(t, &ast.Pass{}, stmt)
}

func TestConstantFidelity(t *testing.T) {
	ns := pyast.NewNamespace()
	cases := []struct {
		value runtime.Value
		want  ast.ConstantValue
	}{
		{runtime.True, ast.ConstBool(true)},
		{runtime.NewInt(1), ast.Int(1)},
		{runtime.Float(1), ast.ConstFloat(1)},
		{runtime.None, ast.ConstNone{}},
		{runtime.Ellipsis, ast.ConstEllipsis{}},
		{runtime.Bytes("ab"), ast.ConstBytes("ab")},
		{runtime.Complex{Imag: 2}, ast.ConstComplex{Imag: 2}},
		{
			runtime.Tuple{runtime.NewInt(1), runtime.Tuple{runtime.Str("s"), runtime.False}},
			ast.ConstTuple{ast.Int(1), ast.ConstTuple{ast.ConstStr("s"), ast.ConstBool(false)}},
		},
	}
	for _, tc := range cases {
		t.Run(runtime.Repr(tc.value), func(t *testing.T) {
			c := node(t, ns, "Constant", kw("value", tc.value))
			got, err := pyast.FromObject[ast.Expr](c, pyast.WithNamespace(ns))
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got.(*ast.Constant).Value, treeOptions); diff != "" {
				t.Fatalf("constant mismatch (-want +got):\n%s", diff)
			}
		})
	}

	bad := node(t, ns, "Constant", kw("value", runtime.NewList()))
	_, err := pyast.FromObject[ast.Expr](bad, pyast.WithNamespace(ns))
	var unsupported *pyast.UnsupportedConstantError
	require.ErrorAs(t, err, &unsupported)
	require.Equal(t, "list", unsupported.TypeName)
}

func TestTupleConstantToObject(t *testing.T) {
	ns := pyast.NewNamespace()
	want := &ast.Constant{Value: ast.ConstTuple{ast.Int(1), ast.ConstStr("a")}}
	obj := pyast.ToObject(ns, want)

	value, err := runtime.GetAttr(obj, "value")
	require.NoError(t, err)
	tuple, ok := value.(runtime.Tuple)
	require.True(t, ok, "value is %T", value)
	require.Len(t, tuple, 2)
	require.Equal(t, runtime.Str("a"), tuple[1])

	got, err := pyast.FromObject[ast.Expr](obj, pyast.WithNamespace(ns))
	require.NoError(t, err)
	if diff := cmp.Diff(ast.Expr(want), got, treeOptions); diff != "" {
		t.Fatalf("tuple constant mismatch (-want +got):\n%s", diff)
	}
}

func TestIntegerFieldsAreTruthy(t *testing.T) {
	ns := pyast.NewNamespace()
	annotated := func(simple runtime.Value) runtime.Value {
		target := node(t, ns, "Name", kw("id", runtime.Str("x")), kw("ctx", node(t, ns, "Store")))
		annotation := node(t, ns, "Name", kw("id", runtime.Str("int")), kw("ctx", node(t, ns, "Load")))
		return node(t, ns, "AnnAssign", kw("target", target), kw("annotation", annotation), kw("simple", simple))
	}
	cases := []struct {
		simple runtime.Value
		want   bool
	}{
		{runtime.NewInt(2), true},
		{runtime.NewInt(-5), true},
		{runtime.NewInt(1), true},
		{runtime.NewInt(0), false},
		{runtime.True, true},
		{runtime.False, false},
	}
	for _, tc := range cases {
		got, err := pyast.FromObject[ast.Stmt](annotated(tc.simple), pyast.WithNamespace(ns))
		require.NoError(t, err, "simple=%s", runtime.Repr(tc.simple))
		require.Equal(t, tc.want, got.(*ast.AnnAssign).Simple, "simple=%s", runtime.Repr(tc.simple))
	}
}

func TestConversionFlagBounds(t *testing.T) {
	ns := pyast.NewNamespace()
	formatted := func(conversion int64) runtime.Value {
		value := node(t, ns, "Name", kw("id", runtime.Str("x")), kw("ctx", node(t, ns, "Load")))
		return node(t, ns, "FormattedValue", kw("value", value), kw("conversion", runtime.NewInt(conversion)))
	}

	for _, ok := range []int64{97, 114, 115} {
		got, err := pyast.FromObject[ast.Expr](formatted(ok), pyast.WithNamespace(ns))
		require.NoError(t, err)
		require.Equal(t, ast.ConversionFlag(ok), *got.(*ast.FormattedValue).Conversion)
	}
	for _, bad := range []int64{-1, 98, 116, 1 << 20} {
		_, err := pyast.FromObject[ast.Expr](formatted(bad), pyast.WithNamespace(ns))
		var ordinal *pyast.InvalidEnumOrdinalError
		require.ErrorAs(t, err, &ordinal, "conversion %d", bad)
	}
}

func TestImportLevelRange(t *testing.T) {
	ns := pyast.NewNamespace()
	stmt := node(t, ns, "ImportFrom",
		kw("module", runtime.Str("m")),
		kw("names", runtime.NewList(node(t, ns, "alias", kw("name", runtime.Str("a"))))),
		kw("level", runtime.NewInt(-1)),
	)
	_, err := pyast.FromObject[ast.Stmt](stmt, pyast.WithNamespace(ns))
	var rng *pyast.OutOfRangeError
	require.ErrorAs(t, err, &rng)

	huge := node(t, ns, "ImportFrom",
		kw("module", runtime.Str("m")),
		kw("names", runtime.NewList(node(t, ns, "alias", kw("name", runtime.Str("a"))))),
		kw("level", runtime.Int{V: new(big.Int).Lsh(big.NewInt(1), 70)}),
	)
	_, err = pyast.FromObject[ast.Stmt](huge, pyast.WithNamespace(ns))
	require.ErrorAs(t, err, &rng)
	require.ErrorContains(t, err, "out of range for uint")

	bridge := newBridge(t, pyast.WithNamespace(ns))
	mod := node(t, ns, "Module", kw("body", runtime.NewList(stmt)))
	_, err = bridge.Compile(context.Background(), mod, "<test>", ast.ModeExec)
	pe, ok := pyast.AsError(err)
	require.True(t, ok)
	require.Equal(t, pyast.ValueError, pe.Kind)
}

func TestSequenceOrderIsKept(t *testing.T) {
	ns := pyast.NewNamespace()
	names := runtime.Tuple{runtime.Str("c"), runtime.Str("a"), runtime.Str("b")}
	stmt := node(t, ns, "Global", kw("names", names))
	got, err := pyast.FromObject[ast.Stmt](stmt, pyast.WithNamespace(ns))
	require.NoError(t, err)
	require.Equal(t, []string{"c", "a", "b"}, got.(*ast.Global).Names)
}

func TestSelfReferentialTreeIsRejected(t *testing.T) {
	ns := pyast.NewNamespace()
	binop := node(t, ns, "BinOp", kw("op", node(t, ns, "Add")), kw("right", node(t, ns, "Constant", kw("value", runtime.NewInt(1)))))
	require.NoError(t, binop.Dict.SetStr("left", binop))

	_, err := pyast.FromObject[ast.Expr](binop, pyast.WithNamespace(ns), pyast.WithMaxDepth(50))
	require.ErrorIs(t, err, pyast.ErrTreeTooDeep)

	bridge := newBridge(t, pyast.WithNamespace(ns))
	expr := node(t, ns, "Expression", kw("body", binop))
	_, err = bridge.Compile(context.Background(), expr, "<test>", ast.ModeEval)
	pe, ok := pyast.AsError(err)
	require.True(t, ok)
	require.Equal(t, pyast.RecursionError, pe.Kind)
	require.Equal(t, runtime.RecursionErrorClass, pe.Exception().Class())
}

func TestParserLimitedSourceCompilesFromObjects(t *testing.T) {
	const limit = 40
	mp, err := parser.NewModuleParser()
	require.NoError(t, err)
	t.Cleanup(mp.Close)
	mp.SetMaxDepth(limit)

	// Each call level adds a keyword node the parser does not count.
	var source string
	for n := limit; n > 0; n-- {
		source = strings.Repeat("f(a=", n) + "0" + strings.Repeat(")", n) + "\n"
		if _, err := mp.Parse([]byte(source), ast.ModeExec); err == nil {
			break
		}
	}

	ctx := context.Background()
	bridge := pyast.NewBridge(mp, compiler.New(), pyast.WithMaxDepth(pyast.DepthForParser(limit)))
	tree, err := bridge.Parse(ctx, source, ast.ModeExec)
	require.NoError(t, err)
	_, err = bridge.Compile(ctx, tree, "<nested>", ast.ModeExec)
	require.NoError(t, err)

	tight := pyast.NewBridge(mp, compiler.New(), pyast.WithMaxDepth(limit))
	_, err = tight.Compile(ctx, tree, "<nested>", ast.ModeExec)
	pe, ok := pyast.AsError(err)
	require.True(t, ok)
	require.Equal(t, pyast.RecursionError, pe.Kind)
}

func TestBridgeParseThenCompile(t *testing.T) {
	ctx := context.Background()
	bridge := newBridge(t)

	tree, err := bridge.Parse(ctx, "x = 1\n", ast.ModeExec)
	require.NoError(t, err)
	code, err := bridge.Compile(ctx, tree, "<string>", ast.ModeExec)
	require.NoError(t, err)
	require.Equal(t, "<module>", code.Name)
	require.Equal(t, []string{"x"}, code.Names)

	// Removing a required field is a structural error.
	body, err := runtime.GetAttr(tree, "body")
	require.NoError(t, err)
	assign := body.(*runtime.List).Snapshot()[0]
	require.NoError(t, runtime.DelAttr(assign, "value"))
	_, err = bridge.Compile(ctx, tree, "<string>", ast.ModeExec)
	pe, ok := pyast.AsError(err)
	require.True(t, ok)
	require.Equal(t, pyast.TypeError, pe.Kind)
	require.Contains(t, pe.Msg, `required field "value" missing from Assign`)
}

func TestBridgeReportsParserAndCompilerFailures(t *testing.T) {
	ctx := context.Background()
	bridge := newBridge(t)

	_, err := bridge.Parse(ctx, "x = (\n", ast.ModeExec)
	pe, ok := pyast.AsError(err)
	require.True(t, ok)
	require.Equal(t, pyast.ValueError, pe.Kind)

	var parseErr *parser.ParseError
	require.True(t, errors.As(err, &parseErr))

	_, err = bridge.CompileSource(ctx, "return 1\n", "<string>", ast.ModeExec, 0)
	pe, ok = pyast.AsError(err)
	require.True(t, ok)
	require.Equal(t, pyast.ValueError, pe.Kind)
	require.Contains(t, pe.Msg, "'return' outside function")
}

func TestCompileSourceOnlyAST(t *testing.T) {
	bridge := newBridge(t)
	res, err := bridge.CompileSource(context.Background(), "1 + 2", "<string>", ast.ModeEval, pyast.PyCFOnlyAST)
	require.NoError(t, err)
	require.Nil(t, res.Code)
	require.Equal(t,
		"Expression(body=BinOp(left=Constant(value=1, kind=None), op=Add(), right=Constant(value=2, kind=None)))",
		pyast.Dump(res.Tree, false))

	res, err = bridge.CompileSource(context.Background(), "1 + 2", "<string>", ast.ModeEval, 0)
	require.NoError(t, err)
	require.NotNil(t, res.Code)
	require.Nil(t, res.Tree)
}

func TestCompileModeMismatch(t *testing.T) {
	ctx := context.Background()
	bridge := newBridge(t)
	tree, err := bridge.Parse(ctx, "x", ast.ModeEval)
	require.NoError(t, err)
	_, err = bridge.Compile(ctx, tree, "<string>", ast.ModeExec)
	pe, ok := pyast.AsError(err)
	require.True(t, ok)
	require.Contains(t, pe.Msg, "expected Module node for exec mode, got Expression")
}

func TestDump(t *testing.T) {
	mod := parseTyped(t, "x = 'a'\n")
	obj := pyast.ToObject(nil, mod)
	require.Equal(t,
		"Module(body=[Assign(targets=[Name(id='x', ctx=Store())], value=Constant(value='a', kind=None), type_comment=None)])",
		pyast.Dump(obj, false))
	require.Contains(t, pyast.Dump(obj, true), "Name(id='x', ctx=Store(), lineno=1, col_offset=0)")

	// A node reachable from itself prints a placeholder.
	ns := pyast.Default()
	list := node(t, ns, "List", kw("ctx", node(t, ns, "Load")))
	require.NoError(t, list.Dict.SetStr("elts", runtime.NewList(list)))
	require.Equal(t, "List(elts=[List(...)], ctx=Load())", pyast.Dump(list, false))
}

func TestNamespaceModule(t *testing.T) {
	ns := pyast.NewNamespace()
	mod := ns.Module()
	flag, err := runtime.GetAttr(mod, "PyCF_ONLY_AST")
	require.NoError(t, err)
	require.Equal(t, runtime.NewInt(0x400), flag)

	binop, err := runtime.GetAttr(mod, "BinOp")
	require.NoError(t, err)
	fields, err := runtime.GetAttr(binop, "_fields")
	require.NoError(t, err)
	require.Equal(t, runtime.Tuple{runtime.Str("left"), runtime.Str("op"), runtime.Str("right")}, fields)

	attrs, err := runtime.GetAttr(binop, "_attributes")
	require.NoError(t, err)
	require.Equal(t, runtime.Tuple{runtime.Str("lineno"), runtime.Str("col_offset")}, attrs)

	exprCls, ok := ns.Category(ast.CategoryExpr)
	require.True(t, ok)
	require.True(t, binop.(*runtime.Class).IsSubclass(exprCls))
	require.True(t, binop.(*runtime.Class).IsSubclass(ns.Base))
}

func TestNodeConstructor(t *testing.T) {
	ctx := context.Background()
	ns := pyast.NewNamespace()
	cls, _ := ns.Class("BinOp")

	v, err := runtime.Call(ctx, cls, []runtime.Value{runtime.NewInt(1)}, []runtime.KeywordArg{kw("right", runtime.NewInt(2))})
	require.NoError(t, err)
	left, err := runtime.GetAttr(v, "left")
	require.NoError(t, err)
	require.Equal(t, runtime.NewInt(1), left)

	_, err = runtime.Call(ctx, cls, []runtime.Value{runtime.None, runtime.None, runtime.None, runtime.None}, nil)
	require.ErrorContains(t, err, "BinOp constructor takes at most 3 positional arguments")

	_, err = runtime.Call(ctx, cls, []runtime.Value{runtime.None}, []runtime.KeywordArg{kw("left", runtime.None)})
	require.ErrorContains(t, err, "BinOp got multiple values for argument 'left'")
}
