package parser_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"serpent/interpreter-go/pkg/ast"
	"serpent/interpreter-go/pkg/parser"
)

func newParser(t *testing.T) *parser.ModuleParser {
	t.Helper()
	mp, err := parser.NewModuleParser()
	if err != nil {
		t.Fatalf("NewModuleParser: %v", err)
	}
	t.Cleanup(func() { mp.Close() })
	return mp
}

func parseModule(t *testing.T, source string) *ast.Module {
	t.Helper()
	mod, err := newParser(t).ParseModule([]byte(source))
	if err != nil {
		t.Fatalf("ParseModule(%q): %v", source, err)
	}
	return mod
}

func parseEval(t *testing.T, source string) ast.Expr {
	t.Helper()
	mod, err := newParser(t).Parse([]byte(source), ast.ModeEval)
	if err != nil {
		t.Fatalf("Parse(%q, eval): %v", source, err)
	}
	expr, ok := mod.(*ast.Expression)
	if !ok {
		t.Fatalf("expected *ast.Expression, got %T", mod)
	}
	return expr.Body
}

var ignoreLocations = cmp.Options{
	cmpopts.IgnoreTypes(ast.Located{}),
	cmpopts.EquateEmpty(),
	cmp.Comparer(func(a, b *big.Int) bool { return a.Cmp(b) == 0 }),
}

func name(id string, ctx ast.ExprContext) *ast.Name {
	return &ast.Name{ID: id, Ctx: ctx}
}

func num(v int64) *ast.Constant {
	return &ast.Constant{Value: ast.Int(v)}
}

func str(s string) *ast.Constant {
	return &ast.Constant{Value: ast.ConstStr(s)}
}

func requireExpr(t *testing.T, want ast.Expr, got ast.Expr) {
	t.Helper()
	if diff := cmp.Diff(want, got, ignoreLocations); diff != "" {
		t.Fatalf("expression mismatch (-want +got):\n%s", diff)
	}
}

func TestParseAssignmentLocations(t *testing.T) {
	mod := parseModule(t, "# header\nx = 1\n")
	require.Len(t, mod.Body, 1)
	assign, ok := mod.Body[0].(*ast.Assign)
	require.True(t, ok, "got %T", mod.Body[0])
	require.Equal(t, ast.Location{Row: 2, Column: 0}, assign.Loc)
	require.Len(t, assign.Targets, 1)
	requireExpr(t, name("x", ast.Store), assign.Targets[0])
	requireExpr(t, num(1), assign.Value)
	require.Equal(t, ast.Location{Row: 2, Column: 4}, assign.Value.Location())
}

func TestParseChainedAssignmentAndUnpacking(t *testing.T) {
	mod := parseModule(t, "a = b = 1\nx, [y, *z] = t\n")
	require.Len(t, mod.Body, 2)

	chained := mod.Body[0].(*ast.Assign)
	require.Len(t, chained.Targets, 2)
	requireExpr(t, name("a", ast.Store), chained.Targets[0])
	requireExpr(t, name("b", ast.Store), chained.Targets[1])

	unpack := mod.Body[1].(*ast.Assign)
	want := &ast.Tuple{Ctx: ast.Store, Elts: []ast.Expr{
		name("x", ast.Store),
		&ast.List{Ctx: ast.Store, Elts: []ast.Expr{
			name("y", ast.Store),
			&ast.Starred{Ctx: ast.Store, Value: name("z", ast.Store)},
		}},
	}}
	requireExpr(t, want, unpack.Targets[0])
}

func TestParseOperators(t *testing.T) {
	requireExpr(t, &ast.BinOp{
		Left:  num(1),
		Op:    ast.Add,
		Right: &ast.BinOp{Left: num(2), Op: ast.Mult, Right: num(3)},
	}, parseEval(t, "1 + 2 * 3"))

	requireExpr(t, &ast.BoolOp{
		Op:     ast.And,
		Values: []ast.Expr{name("a", ast.Load), name("b", ast.Load), name("c", ast.Load)},
	}, parseEval(t, "a and b and c"))

	requireExpr(t, &ast.Compare{
		Left:        name("a", ast.Load),
		Ops:         []ast.CmpOperator{ast.Lt, ast.NotIn, ast.IsNot},
		Comparators: []ast.Expr{name("b", ast.Load), name("c", ast.Load), name("d", ast.Load)},
	}, parseEval(t, "a < b not in c is not d"))

	requireExpr(t, &ast.UnaryOp{
		Op:      ast.Not,
		Operand: &ast.UnaryOp{Op: ast.USub, Operand: name("x", ast.Load)},
	}, parseEval(t, "not -x"))
}

func TestParseCallsAndSubscripts(t *testing.T) {
	requireExpr(t, &ast.Call{
		Func: &ast.Attribute{Value: name("obj", ast.Load), Attr: "method", Ctx: ast.Load},
		Args: []ast.Expr{num(1), &ast.Starred{Ctx: ast.Load, Value: name("rest", ast.Load)}},
		Keywords: []*ast.Keyword{
			{Arg: ast.Str("key"), Value: str("v")},
			{Value: name("opts", ast.Load)},
		},
	}, parseEval(t, "obj.method(1, *rest, key='v', **opts)"))

	requireExpr(t, &ast.Subscript{
		Value: name("m", ast.Load),
		Slice: &ast.Tuple{Ctx: ast.Load, Elts: []ast.Expr{
			&ast.Slice{Upper: num(2)},
			&ast.Slice{Lower: num(1), Step: num(3)},
		}},
		Ctx: ast.Load,
	}, parseEval(t, "m[:2, 1::3]"))
}

func TestParseLiterals(t *testing.T) {
	cases := []struct {
		source string
		want   ast.ConstantValue
	}{
		{"0x_ff", ast.Int(255)},
		{"1_000", ast.Int(1000)},
		{"0o17", ast.Int(15)},
		{"00", ast.Int(0)},
		{"2.5", ast.ConstFloat(2.5)},
		{"1e400", ast.ConstFloat(posInf())},
		{"3j", ast.ConstComplex{Imag: 3}},
		{"None", ast.ConstNone{}},
		{"...", ast.ConstEllipsis{}},
		{`'a\tb\x41é\q'`, ast.ConstStr("a\tbAé\\q")},
		{`r'\n'`, ast.ConstStr(`\n`)},
		{`b'\xff\n'`, ast.ConstBytes("\xff\n")},
		{`'ab' "cd"`, ast.ConstStr("abcd")},
		{"'''line\\\nmore'''", ast.ConstStr("linemore")},
	}
	for _, tc := range cases {
		t.Run(tc.source, func(t *testing.T) {
			got, ok := parseEval(t, tc.source).(*ast.Constant)
			require.True(t, ok)
			if diff := cmp.Diff(tc.want, got.Value, ignoreLocations); diff != "" {
				t.Fatalf("constant mismatch (-want +got):\n%s", diff)
			}
		})
	}

	long := parseEval(t, "123456789012345678901234567890").(*ast.Constant)
	require.Equal(t, "123456789012345678901234567890", long.Value.(ast.ConstInt).Value.String())

	u := parseEval(t, "u'x'").(*ast.Constant)
	require.NotNil(t, u.Kind)
	require.Equal(t, "u", *u.Kind)
}

func posInf() float64 {
	var zero float64
	return 1 / zero
}

func TestParseFormattedStrings(t *testing.T) {
	repr := ast.ConversionRepr
	requireExpr(t, &ast.JoinedStr{Values: []ast.Expr{
		str("a{"),
		&ast.FormattedValue{Value: name("x", ast.Load), Conversion: &repr},
		str(" "),
		&ast.FormattedValue{
			Value:      name("y", ast.Load),
			FormatSpec: &ast.JoinedStr{Values: []ast.Expr{str(">"), &ast.FormattedValue{Value: name("w", ast.Load)}}},
		},
		str("!"),
	}}, parseEval(t, `f"a{{{x!r} " f"{y:>{w}}!"`))

	requireExpr(t, &ast.JoinedStr{Values: []ast.Expr{
		str("x="),
		&ast.FormattedValue{Value: name("x", ast.Load), Conversion: &repr},
	}}, parseEval(t, `f"{x=}"`))

	requireExpr(t, &ast.JoinedStr{Values: []ast.Expr{}}, parseEval(t, `f""`))
}

func TestParseFunctionDefinition(t *testing.T) {
	mod := parseModule(t, `
@decorate
def f(a, b=1, /, c: int = 2, *args, d, e=3, **kw) -> str:
    global g
    return a
`)
	require.Len(t, mod.Body, 1)
	fn, ok := mod.Body[0].(*ast.FunctionDef)
	require.True(t, ok, "got %T", mod.Body[0])
	require.Equal(t, "f", fn.Name)
	require.Len(t, fn.DecoratorList, 1)
	requireExpr(t, name("str", ast.Load), fn.Returns)

	args := fn.Args
	require.Equal(t, []string{"a", "b", "c", "args", "d", "e", "kw"}, args.Names())
	require.Len(t, args.PosOnlyArgs, 2)
	require.Len(t, args.Args, 1)
	requireExpr(t, name("int", ast.Load), args.Args[0].Annotation)
	require.Len(t, args.Defaults, 2)
	require.Len(t, args.KwDefaults, 2)
	require.Nil(t, args.KwDefaults[0])
	requireExpr(t, num(3), args.KwDefaults[1])

	require.Len(t, fn.Body, 2)
	require.IsType(t, &ast.Global{}, fn.Body[0])
	require.IsType(t, &ast.Return{}, fn.Body[1])
}

func TestParseControlFlow(t *testing.T) {
	mod := parseModule(t, `
if a:
    pass
elif b:
    x += 1
else:
    del y[0], z.w
for i in range(3):
    break
else:
    continue
while n:
    n -= 1
`)
	require.Len(t, mod.Body, 3)

	ifStmt := mod.Body[0].(*ast.If)
	require.Len(t, ifStmt.OrElse, 1)
	elif := ifStmt.OrElse[0].(*ast.If)
	aug := elif.Body[0].(*ast.AugAssign)
	require.Equal(t, ast.Add, aug.Op)
	del := elif.OrElse[0].(*ast.Delete)
	require.Len(t, del.Targets, 2)
	require.Equal(t, ast.Del, del.Targets[0].(*ast.Subscript).Ctx)
	require.Equal(t, ast.Del, del.Targets[1].(*ast.Attribute).Ctx)

	loop := mod.Body[1].(*ast.For)
	requireExpr(t, name("i", ast.Store), loop.Target)
	require.Len(t, loop.OrElse, 1)

	require.IsType(t, &ast.While{}, mod.Body[2])
}

func TestParseImports(t *testing.T) {
	mod := parseModule(t, "import os.path as p, sys\nfrom .pkg import a as b\nfrom m import *\n")
	imp := mod.Body[0].(*ast.Import)
	require.Len(t, imp.Names, 2)
	require.Equal(t, "os.path", imp.Names[0].Name)
	require.Equal(t, "p", *imp.Names[0].AsName)
	require.Nil(t, imp.Names[1].AsName)

	rel := mod.Body[1].(*ast.ImportFrom)
	require.Equal(t, "pkg", *rel.Module)
	require.Equal(t, uint(1), *rel.Level)

	star := mod.Body[2].(*ast.ImportFrom)
	require.Equal(t, "*", star.Names[0].Name)
	require.Equal(t, uint(0), *star.Level)
}

func TestParseModes(t *testing.T) {
	mp := newParser(t)

	single, err := mp.Parse([]byte("x\n"), ast.ModeSingle)
	require.NoError(t, err)
	require.IsType(t, &ast.Interactive{}, single)

	_, err = mp.Parse([]byte("x = 1\n"), ast.ModeEval)
	require.Error(t, err)

	tuple := parseEval(t, "1, 2")
	require.IsType(t, &ast.Tuple{}, tuple)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		source string
		want   string
	}{
		{"del f()\n", "cannot delete function call"},
		{"del 1\n", "cannot delete literal"},
		{"def f(a=1, b): pass\n", "non-default argument follows default argument"},
		{"x = b'é'\n", "bytes can only contain ASCII literal characters"},
		{"x = b'a' 'b'\n", "cannot mix bytes and nonbytes literals"},
		{"x = 012\n", "leading zeros"},
		{"async def f(): pass\n", "unsupported"},
		{"x = (\n", "syntax error"},
	}
	for _, tc := range cases {
		t.Run(tc.source, func(t *testing.T) {
			_, err := newParser(t).ParseModule([]byte(tc.source))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
			var parseErr *parser.ParseError
			require.True(t, errors.As(err, &parseErr))
			require.Positive(t, parseErr.Location.Line)
		})
	}
}

func TestParseDepthLimit(t *testing.T) {
	mp := newParser(t)
	mp.SetMaxDepth(20)
	source := "x = " + repeat("(", 40) + "1" + repeat(")", 40) + "\n"
	_, err := mp.ParseModule([]byte(source))
	require.Error(t, err)
	require.ErrorIs(t, err, parser.ErrTooDeep)

	_, err = mp.ParseModule([]byte("x = ((1))\n"))
	require.NoError(t, err)

	// Replacement fields and their specifiers count as levels.
	mp.SetMaxDepth(5)
	_, err = mp.ParseModule([]byte("f'{x:{y}}'\n"))
	require.ErrorIs(t, err, parser.ErrTooDeep)
	_, err = mp.ParseModule([]byte("f'{x}'\n"))
	require.NoError(t, err)
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
