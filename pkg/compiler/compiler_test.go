package compiler

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serpent/interpreter-go/pkg/ast"
)

func name(id string, ctx ast.ExprContext) *ast.Name {
	return &ast.Name{Located: ast.At(1, 0), ID: id, Ctx: ctx}
}

func num(v int64) *ast.Constant {
	return &ast.Constant{Located: ast.At(1, 0), Value: ast.Int(v)}
}

func module(body ...ast.Stmt) *ast.Module {
	return &ast.Module{Body: body}
}

func assign(target ast.Expr, value ast.Expr) *ast.Assign {
	return &ast.Assign{Located: ast.At(1, 0), Targets: []ast.Expr{target}, Value: value}
}

func compileExec(t *testing.T, mod ast.Mod) *CodeObject {
	t.Helper()
	code, err := CompileTop(mod, "<test>", Options{Mode: ast.ModeExec})
	require.NoError(t, err)
	return code
}

func requireCompileError(t *testing.T, err error, fragment string) {
	t.Helper()
	require.Error(t, err)
	var ce *CompileError
	require.True(t, errors.As(err, &ce), "expected *CompileError, got %T", err)
	assert.Contains(t, ce.Message, fragment)
}

func TestCompileSimpleAssignment(t *testing.T) {
	code := compileExec(t, module(assign(name("x", ast.Store), num(1))))
	want := []byte{
		byte(OpLoadConst), 0, 0,
		byte(OpStoreName), 0, 0,
		byte(OpLoadNone),
		byte(OpReturnValue),
	}
	assert.Equal(t, want, code.Code)
	assert.Equal(t, []string{"x"}, code.Names)
	require.Len(t, code.Consts, 1)
	assert.Equal(t, "1", code.Consts[0].String())
	assert.Equal(t, "exec", code.Mode)
	assert.Equal(t, 1, code.LineFor(0))
}

func TestCompileEvalExpression(t *testing.T) {
	tree := &ast.Expression{Body: &ast.BinOp{Located: ast.At(1, 0), Left: num(1), Op: ast.Add, Right: num(2)}}
	code, err := CompileTop(tree, "<eval>", Options{Mode: ast.ModeEval})
	require.NoError(t, err)
	want := []byte{
		byte(OpLoadConst), 0, 0,
		byte(OpLoadConst), 0, 1,
		byte(OpBinary), byte(ast.Add),
		byte(OpReturnValue),
	}
	assert.Equal(t, want, code.Code)
}

func TestCompileRejectsRootForOtherMode(t *testing.T) {
	_, err := CompileTop(module(), "m.py", Options{Mode: ast.ModeEval})
	requireCompileError(t, err, "expected Expression node for eval mode, got Module")

	_, err = New().CompileTop(&ast.Expression{Body: num(1)}, "m.py", Options{Mode: ast.ModeSingle})
	requireCompileError(t, err, "expected Interactive node")
}

func TestCompileInteractivePrintsExpressions(t *testing.T) {
	tree := &ast.Interactive{Body: []ast.Stmt{&ast.ExprStmt{Located: ast.At(1, 0), Value: num(3)}}}
	code, err := CompileTop(tree, "<stdin>", Options{Mode: ast.ModeSingle})
	require.NoError(t, err)
	assert.Equal(t, byte(OpPrintExpr), code.Code[3])
}

func TestCompileFunctionLocals(t *testing.T) {
	fn := &ast.FunctionDef{
		Located: ast.At(1, 0),
		Name:    "f",
		Args:    &ast.Arguments{Args: []*ast.Arg{{Located: ast.At(1, 6), Arg: "a"}}},
		Body: []ast.Stmt{
			assign(name("b", ast.Store), name("a", ast.Load)),
			&ast.Return{Located: ast.At(3, 4), Value: name("b", ast.Load)},
		},
	}
	code := compileExec(t, module(fn))
	require.Len(t, code.Codes, 1)
	child := code.Codes[0]
	assert.Equal(t, "f", child.Name)
	assert.Equal(t, 1, child.ArgCount)
	assert.Equal(t, []string{"a", "b"}, child.VarNames)
	assert.Equal(t, []string{"a"}, child.ParamNames())
	assert.Equal(t, FlagFunction, child.Flags)
	want := []byte{
		byte(OpLoadFast), 0, 0,
		byte(OpStoreFast), 0, 1,
		byte(OpLoadFast), 0, 1,
		byte(OpReturnValue),
		byte(OpLoadNone),
		byte(OpReturnValue),
	}
	assert.Equal(t, want, child.Code)
	assert.Equal(t, 3, child.LineFor(6))
}

func TestCompileGlobalsInsideFunction(t *testing.T) {
	fn := &ast.FunctionDef{
		Located: ast.At(1, 0),
		Name:    "f",
		Args:    &ast.Arguments{},
		Body: []ast.Stmt{
			&ast.Global{Located: ast.At(2, 4), Names: []string{"counter"}},
			assign(name("counter", ast.Store), name("limit", ast.Load)),
		},
	}
	child := compileExec(t, module(fn)).Codes[0]
	assert.Empty(t, child.VarNames)
	assert.Equal(t, byte(OpLoadGlobal), child.Code[0])
	assert.Equal(t, byte(OpStoreGlobal), child.Code[3])
}

func TestCompileRejectsUnsupportedScopes(t *testing.T) {
	inner := &ast.FunctionDef{
		Located: ast.At(3, 4),
		Name:    "inner",
		Args:    &ast.Arguments{},
		Body:    []ast.Stmt{&ast.Return{Located: ast.At(4, 8), Value: &ast.Name{Located: ast.At(4, 15), ID: "x", Ctx: ast.Load}}},
	}
	outer := &ast.FunctionDef{
		Located: ast.At(1, 0),
		Name:    "outer",
		Args:    &ast.Arguments{},
		Body:    []ast.Stmt{assign(name("x", ast.Store), num(1)), inner},
	}
	_, err := CompileTop(module(outer), "m.py", Options{})
	requireCompileError(t, err, "free variable 'x' referenced in 'inner' is not supported")
	assert.Contains(t, err.Error(), "m.py, line 4")

	nonlocal := &ast.FunctionDef{
		Located: ast.At(1, 0),
		Name:    "g",
		Args:    &ast.Arguments{},
		Body:    []ast.Stmt{&ast.Nonlocal{Located: ast.At(2, 4), Names: []string{"x"}}},
	}
	_, err = CompileTop(module(nonlocal), "m.py", Options{})
	requireCompileError(t, err, "nonlocal declarations are not supported")
}

func TestCompileControlFlowErrors(t *testing.T) {
	cases := []struct {
		name string
		stmt ast.Stmt
		want string
	}{
		{"return", &ast.Return{Located: ast.At(1, 0)}, "'return' outside function"},
		{"break", &ast.Break{Located: ast.At(1, 0)}, "'break' outside loop"},
		{"continue", &ast.Continue{Located: ast.At(1, 0)}, "'continue' not properly in loop"},
		{"store into load name", assign(name("x", ast.Load), num(1)), "must have Store context but has Load instead"},
		{"assign to call", assign(&ast.Call{Located: ast.At(1, 0), Func: name("f", ast.Load)}, num(1)), "cannot assign to function call"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CompileTop(module(tc.stmt), "m.py", Options{})
			requireCompileError(t, err, tc.want)
		})
	}
}

func TestCompileWhileLoopJumps(t *testing.T) {
	loop := &ast.While{
		Located: ast.At(1, 0),
		Test:    name("running", ast.Load),
		Body:    []ast.Stmt{&ast.Break{Located: ast.At(2, 4)}},
	}
	code := compileExec(t, module(loop))
	// LOAD_NAME running; POP_JUMP_IF_FALSE end; JUMP end (break); JUMP 0; end:
	require.Equal(t, byte(OpPopJumpIfFalse), code.Code[3])
	end := int(code.ReadU16(4))
	require.Equal(t, byte(OpJump), code.Code[6])
	assert.Equal(t, end, int(code.ReadU16(7)))
	require.Equal(t, byte(OpJump), code.Code[9])
	assert.Equal(t, 0, int(code.ReadU16(10)))
	assert.Equal(t, 12, end)
}

func TestCompileOptimizeDropsAsserts(t *testing.T) {
	tree := module(&ast.Assert{Located: ast.At(1, 0), Test: name("ok", ast.Load)})
	plain, err := CompileTop(tree, "m.py", Options{})
	require.NoError(t, err)
	optimized, err := CompileTop(tree, "m.py", Options{Optimize: 1})
	require.NoError(t, err)
	assert.Contains(t, Disassemble(plain), "LOAD_ASSERTION_ERROR")
	assert.NotContains(t, Disassemble(optimized), "LOAD_ASSERTION_ERROR")
}

func TestCompileDepthLimit(t *testing.T) {
	var e ast.Expr = num(0)
	for i := 0; i < 50; i++ {
		e = &ast.UnaryOp{Located: ast.At(1, 0), Op: ast.USub, Operand: e}
	}
	tree := &ast.Expression{Body: e}
	_, err := CompileTop(tree, "<eval>", Options{Mode: ast.ModeEval, MaxDepth: 10})
	requireCompileError(t, err, "too deeply nested")

	_, err = CompileTop(tree, "<eval>", Options{Mode: ast.ModeEval})
	require.NoError(t, err)
}

func TestConstantPoolKeepsNumericKindsApart(t *testing.T) {
	tree := &ast.Expression{Body: &ast.Tuple{
		Located: ast.At(1, 0),
		Elts: []ast.Expr{
			num(1),
			&ast.Constant{Located: ast.At(1, 3), Value: ast.ConstFloat(1)},
			&ast.Constant{Located: ast.At(1, 8), Value: ast.ConstBool(true)},
			num(1),
		},
	}}
	code, err := CompileTop(tree, "<eval>", Options{Mode: ast.ModeEval})
	require.NoError(t, err)
	require.Len(t, code.Consts, 3)
	assert.Equal(t, []ConstKind{ConstInt, ConstFloat, ConstBool}, []ConstKind{code.Consts[0].Kind, code.Consts[1].Kind, code.Consts[2].Kind})
}

func TestMarshalRoundTrip(t *testing.T) {
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	fn := &ast.FunctionDef{
		Located: ast.At(1, 0),
		Name:    "f",
		Args:    &ast.Arguments{Args: []*ast.Arg{{Located: ast.At(1, 6), Arg: "a"}}},
		Body:    []ast.Stmt{&ast.Return{Located: ast.At(2, 4), Value: name("a", ast.Load)}},
	}
	tree := module(
		fn,
		assign(name("big", ast.Store), &ast.Constant{Located: ast.At(3, 0), Value: ast.ConstInt{Value: huge}}),
		assign(name("pair", ast.Store), &ast.Constant{Located: ast.At(4, 0), Value: ast.ConstTuple{ast.ConstStr("a"), ast.ConstBytes("b")}}),
	)
	code := compileExec(t, tree)

	data, err := Marshal(code)
	require.NoError(t, err)
	again, err := Marshal(code)
	require.NoError(t, err)
	assert.Equal(t, data, again, "encoding must be deterministic")

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	if diff := cmp.Diff(code, decoded); diff != "" {
		t.Fatalf("code object mismatch (-want +got):\n%s", diff)
	}
	lit, err := decoded.Consts[0].Literal()
	require.NoError(t, err)
	assert.Equal(t, 0, lit.(ast.ConstInt).Value.Cmp(huge))
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	_, err := Unmarshal([]byte{0xff, 0x00})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "compiler: "))
}

func TestDisassembleListsNestedCode(t *testing.T) {
	fn := &ast.FunctionDef{
		Located: ast.At(1, 0),
		Name:    "double",
		Args:    &ast.Arguments{Args: []*ast.Arg{{Located: ast.At(1, 11), Arg: "n"}}},
		Body: []ast.Stmt{&ast.Return{Located: ast.At(2, 4), Value: &ast.BinOp{
			Located: ast.At(2, 11), Left: name("n", ast.Load), Op: ast.Mult, Right: num(2),
		}}},
	}
	out := Disassemble(compileExec(t, module(fn)))
	assert.Contains(t, out, "; === <module> (<test>) ===")
	assert.Contains(t, out, "; === double (<test>) ===")
	assert.Contains(t, out, "; Parameters (1): n")
	assert.Contains(t, out, "MAKE_FUNCTION")
	assert.Contains(t, out, fmtOp("BINARY_OP", "2 ; *"))
	assert.Contains(t, out, fmtOp("LOAD_FAST", "0 ; n"))
}

func TestOpcodeTableIsComplete(t *testing.T) {
	seen := map[string]Opcode{}
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		require.False(t, strings.HasPrefix(info.Name, "UNKNOWN"), "opcode 0x%02X", byte(op))
		if prev, dup := seen[info.Name]; dup {
			t.Fatalf("opcodes 0x%02X and 0x%02X share name %s", byte(prev), byte(op), info.Name)
		}
		seen[info.Name] = op
	}
	assert.Equal(t, "UNKNOWN(0xFE)", Opcode(0xFE).String())
	assert.True(t, OpForIter.IsJump())
	assert.False(t, OpGetIter.IsJump())
}

func fmtOp(name, rest string) string {
	return fmt.Sprintf("%-20s %s", name, rest)
}
