package interpreter_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"serpent/interpreter-go/pkg/compiler"
	"serpent/interpreter-go/pkg/interpreter"
	"serpent/interpreter-go/pkg/parser"
	"serpent/interpreter-go/pkg/pyast"
	"serpent/interpreter-go/pkg/runtime"
)

func newInterpreter(t *testing.T, opts ...interpreter.Option) (*interpreter.Interpreter, *bytes.Buffer) {
	t.Helper()
	mp, err := parser.NewModuleParser()
	require.NoError(t, err)
	t.Cleanup(mp.Close)
	var out bytes.Buffer
	opts = append([]interpreter.Option{interpreter.WithStdout(&out)}, opts...)
	return interpreter.New(pyast.NewBridge(mp, compiler.New()), opts...), &out
}

// run executes source as __main__ and returns what it printed.
func run(t *testing.T, source string) string {
	t.Helper()
	interp, out := newInterpreter(t)
	_, err := interp.Exec(context.Background(), source, "<test>")
	require.NoError(t, err)
	return out.String()
}

// raised executes source and returns the exception that escaped it.
func raised(t *testing.T, source string) *runtime.Exception {
	t.Helper()
	interp, _ := newInterpreter(t)
	_, err := interp.Exec(context.Background(), source, "<test>")
	require.Error(t, err)
	var exc *runtime.Exception
	require.True(t, errors.As(err, &exc), "not an exception: %v", err)
	return exc
}

func TestArithmetic(t *testing.T) {
	out := run(t, `
x = 7
y = 2
print(x + y, x - y, x * y, x / y, x // y, x % y, x ** y)
print(-7 // 2, -7 % 2, 7.5 // 2, 2 ** -1)
print(1 << 70)
print(1 < 3 < 5, 1 < 7 < 5, not 0, 3 if x else 4)
`)
	require.Equal(t, "9 5 14 3.5 3 1 49\n-4 1 3.0 0.5\n1180591620717411303424\nTrue False True 3\n", out)
}

func TestDivisionByZero(t *testing.T) {
	exc := raised(t, "1 // 0\n")
	require.Same(t, runtime.ZeroDivisionErrorClass, exc.Class())
	require.Equal(t, "integer division or modulo by zero", exc.Message)

	exc = raised(t, "1.0 / 0\n")
	require.Equal(t, "float division by zero", exc.Message)
}

func TestFunctionsBindArguments(t *testing.T) {
	out := run(t, `
def greet(name, greeting="hello", *rest, sep=", ", **extra):
    return greeting + sep + name + str(len(rest)) + str(len(extra))

print(greet("bob"))
print(greet("amy", "hi", 1, 2, sep="-", x=1))
f = lambda a, b=2: a * b
print(f(3), f(3, b=4))
`)
	require.Equal(t, "hello, bob00\nhi-amy21\n6 12\n", out)
}

func TestFunctionBindingErrors(t *testing.T) {
	cases := []struct {
		call string
		msg  string
	}{
		{"f(1, 2, 3, 4)", "f() takes from 2 to 3 positional arguments but 4 were given"},
		{"f(1)", "f() missing 1 required positional argument: 'b'"},
		{"f()", "f() missing 2 required positional arguments: 'a' and 'b'"},
		{"f(1, 2, a=3)", "f() got multiple values for argument 'a'"},
		{"f(1, 2, z=3)", "f() got an unexpected keyword argument 'z'"},
	}
	for _, tc := range cases {
		t.Run(tc.call, func(t *testing.T) {
			exc := raised(t, "def f(a, b, c=0):\n    return a\n"+tc.call+"\n")
			require.Same(t, runtime.TypeErrorClass, exc.Class())
			require.Equal(t, tc.msg, exc.Message)
		})
	}
}

func TestDecoratorsApplyInOrder(t *testing.T) {
	out := run(t, `
calls = []
def logged(fn):
    calls.append(fn.__name__)
    return fn

@logged
def inc(x):
    return x + 1

print(inc(5), calls)
`)
	require.Equal(t, "6 ['inc']\n", out)
}

func TestLoops(t *testing.T) {
	out := run(t, `
total = 0
for i in range(10):
    if i % 2 == 0:
        continue
    if i > 7:
        break
    total += i
print(total)
n = 0
while n < 3:
    n += 1
print(n)
for a, b in [(1, 2), (3, 4)]:
    print(a + b)
`)
	require.Equal(t, "16\n3\n3\n7\n", out)
}

func TestCollections(t *testing.T) {
	out := run(t, `
d = {"a": 1, "b": 2}
d["c"] = 3
del d["a"]
d["b"] += 5
print(d, len(d), "b" in d, list(d.keys()))
xs = [3, 1, 2]
xs.sort()
xs.append(10)
print(xs, xs[-1], xs[1:3], xs[::-1])
xs[0:2] = [7]
print(xs)
a, b = 1, 2
a, b = b, a
print(a, b)
print("hello"[1:4], (1, 2, 3)[-2], "a,b,c".split(","), "-".join(["x", "y"]))
`)
	require.Equal(t, strings.Join([]string{
		"{'b': 7, 'c': 3} 2 True ['b', 'c']",
		"[1, 2, 3, 10] 10 [2, 3] [10, 3, 2, 1]",
		"[7, 3, 10]",
		"2 1",
		"ell 2 ['a', 'b', 'c'] x-y",
	}, "\n")+"\n", out)
}

func TestSubscriptErrors(t *testing.T) {
	exc := raised(t, "[1, 2][5]\n")
	require.Same(t, runtime.IndexErrorClass, exc.Class())
	require.Equal(t, "list index out of range", exc.Message)

	exc = raised(t, "{'a': 1}['b']\n")
	require.Same(t, runtime.KeyErrorClass, exc.Class())
	require.Equal(t, "'b'", exc.Message)
}

func TestBuiltins(t *testing.T) {
	out := run(t, `
print(list(range(2, 10, 3)), len(range(0, 10, 2)), 4 in range(0, 10, 2), range(5)[-1])
print(sorted([3, 1, 2], reverse=True), min(4, 2, 8), max([1, 5, 3]), sum([1, 2, 3]))
print(list(enumerate("ab")), list(zip([1, 2], "xy")), any([0, 1]), all([]))
print(isinstance(True, int), divmod(-7, 2), abs(-3), repr("q"), chr(65), ord("a"))
print(1, 2, sep="-", end="!\n")
`)
	require.Equal(t, strings.Join([]string{
		"[2, 5, 8] 5 True 4",
		"[3, 2, 1] 2 5 6",
		"[(0, 'a'), (1, 'b')] [(1, 'x'), (2, 'y')] True True",
		"True (-4, 1) 3 'q' A 97",
		"1-2!",
	}, "\n")+"\n", out)
}

func TestFormatting(t *testing.T) {
	out := run(t, `
name = "world"
pi = 3.14159
n = 255
print(f"hello {name!r} {pi:.2f} {n:#x} {n:>6} {name:*^9} {1234567:,}")
print(f"{pi=}")
print("{} + {} = {:>3}".format(1, 2, 3), "{x}!".format(x="ok"))
`)
	require.Equal(t, strings.Join([]string{
		"hello 'world' 3.14 0xff    255 **world** 1,234,567",
		"pi=3.14159",
		"1 + 2 =   3 ok!",
	}, "\n")+"\n", out)
}

func TestCompileThroughTheBridge(t *testing.T) {
	out := run(t, `
import ast
tree = compile("x = 1 + 2", "<src>", "exec", ast.PyCF_ONLY_AST)
print(type(tree).__name__, ast.dump(tree.body[0].value))
exec(compile(tree, "<src>", "exec"))
print(x)
tree.body[0].value.right.value = 40
exec(compile(tree, "<src>", "exec"))
print(x)
print(eval("x * 2"))
again = compile(tree, "<src>", "exec", ast.PyCF_ONLY_AST)
print(again is tree)
`)
	require.Equal(t, strings.Join([]string{
		"Module BinOp(left=Constant(value=1, kind=None), op=Add(), right=Constant(value=2, kind=None))",
		"3",
		"42",
		"84",
		"True",
	}, "\n")+"\n", out)
}

func TestASTParseAndBuild(t *testing.T) {
	out := run(t, `
from ast import Name, Load
n = Name("x", Load())
print(n.id, type(n.ctx).__name__)
import ast
tree = ast.parse("1 + 2", mode="eval")
print(eval(compile(tree, "<e>", "eval")))
`)
	require.Equal(t, "x Load\n3\n", out)
}

func TestCompileRejectsBadInput(t *testing.T) {
	exc := raised(t, `compile("1", "<s>", "bogus")`+"\n")
	require.Same(t, runtime.ValueErrorClass, exc.Class())
	require.Equal(t, "compile() mode must be 'exec', 'eval' or 'single'", exc.Message)

	exc = raised(t, `compile(42, "<s>", "exec")`+"\n")
	require.Same(t, runtime.TypeErrorClass, exc.Class())

	exc = raised(t, `
import ast
tree = ast.parse("y = 1")
del tree.body[0].value
compile(tree, "<t>", "exec")
`)
	require.Same(t, runtime.TypeErrorClass, exc.Class())
	require.Contains(t, exc.Message, "value")

	exc = raised(t, "import ast\nast.dump(3)\n")
	require.Equal(t, "expected AST, got 'int'", exc.Message)
}

func TestSingleModeEchoesExpressions(t *testing.T) {
	out := run(t, `
exec(compile("1 + 1", "<s>", "single"))
exec(compile("None", "<s>", "single"))
exec(compile("'a'", "<s>", "single"))
`)
	require.Equal(t, "2\n'a'\n", out)
}

func TestAssertAndRaise(t *testing.T) {
	exc := raised(t, "assert 1 == 2, 'mismatch'\n")
	require.Same(t, runtime.AssertionErrorClass, exc.Class())
	require.Equal(t, "mismatch", exc.Message)

	require.Equal(t, "", run(t, "assert 1 == 1\n"))

	exc = raised(t, "raise ValueError('bad') from KeyError('k')\n")
	require.Same(t, runtime.ValueErrorClass, exc.Class())
	var cause *runtime.Exception
	require.True(t, errors.As(exc.Cause, &cause))
	require.Same(t, runtime.KeyErrorClass, cause.Class())

	exc = raised(t, "raise TypeError\n")
	require.Same(t, runtime.TypeErrorClass, exc.Class())

	exc = raised(t, "raise\n")
	require.Equal(t, "No active exception to reraise", exc.Message)

	exc = raised(t, "raise 5\n")
	require.Equal(t, "exceptions must derive from BaseException", exc.Message)
}

func TestTracebackListsFrames(t *testing.T) {
	interp, _ := newInterpreter(t)
	_, err := interp.Exec(context.Background(), `def inner(n):
    return 10 // n

def outer():
    return inner(0)

outer()
`, "prog.py")
	var ee *interpreter.ExecError
	require.True(t, errors.As(err, &ee))
	names := make([]string, len(ee.Trace))
	for n, entry := range ee.Trace {
		names[n] = entry.Name
		require.Equal(t, "prog.py", entry.Filename)
	}
	require.Equal(t, []string{"inner", "outer", "<module>"}, names)

	tb := ee.Traceback()
	require.True(t, strings.HasPrefix(tb, "Traceback (most recent call last):\n"))
	require.True(t, strings.HasSuffix(tb, "ZeroDivisionError: integer division or modulo by zero"))
}

func TestNameResolution(t *testing.T) {
	exc := raised(t, "print(undefined_name)\n")
	require.Same(t, runtime.NameErrorClass, exc.Class())
	require.Equal(t, "name 'undefined_name' is not defined", exc.Message)

	exc = raised(t, `
def f():
    y = x
    x = 1
f()
`)
	require.True(t, exc.Class().IsSubclass(runtime.NameErrorClass))
	require.Equal(t, "UnboundLocalError", exc.Class().Name)
	require.Equal(t, "cannot access local variable 'x' where it is not associated with a value", exc.Message)

	out := run(t, `
counter = 0
def bump():
    global counter
    counter = counter + 1
bump()
bump()
print(counter)
`)
	require.Equal(t, "2\n", out)
}

func TestRecursionLimit(t *testing.T) {
	interp, _ := newInterpreter(t, interpreter.WithRecursionLimit(50))
	_, err := interp.Exec(context.Background(), "def f(n):\n    return f(n + 1)\nf(0)\n", "<test>")
	var exc *runtime.Exception
	require.True(t, errors.As(err, &exc))
	require.Equal(t, "RecursionError", exc.Class().Name)
	require.Equal(t, "maximum recursion depth exceeded", exc.Message)
}

func TestCancellationStopsExecution(t *testing.T) {
	interp, _ := newInterpreter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := interp.Exec(ctx, "while True:\n    pass\n", "<test>")
	require.ErrorIs(t, err, context.Canceled)
}

func TestImports(t *testing.T) {
	out := run(t, `
from _ast import *
print(Constant.__name__, issubclass(Constant, AST))
import ast
print(ast.Module is Module)
`)
	require.Equal(t, "Constant True\nTrue\n", out)

	exc := raised(t, "import nothing_here\n")
	require.Same(t, runtime.ImportErrorClass, exc.Class())
	require.Equal(t, "No module named 'nothing_here'", exc.Message)

	exc = raised(t, "from ast import nothing_here\n")
	require.Equal(t, "cannot import name 'nothing_here' from 'ast'", exc.Message)
}

func TestEvalFromGo(t *testing.T) {
	interp, _ := newInterpreter(t)
	globals := interp.NewGlobals("__main__")
	require.NoError(t, globals.SetStr("base", runtime.NewInt(1000)))
	v, err := interp.Eval(context.Background(), "base + 2 ** 4 + len('abc')", globals)
	require.NoError(t, err)
	require.Equal(t, "1019", runtime.Repr(v))
}

func TestExecReturnsGlobals(t *testing.T) {
	interp, _ := newInterpreter(t)
	globals, err := interp.Exec(context.Background(), "answer = 6 * 7\n", "<test>")
	require.NoError(t, err)
	v, ok, err := globals.GetStr("answer")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "42", runtime.Repr(v))
}

func TestMethods(t *testing.T) {
	out := run(t, `
s = "  Hello World  "
print(s.strip().lower(), s.strip().startswith("Hello"), "abcabc".count("b"), "abc".find("z"))
xs = [1, 2, 3]
print(xs.pop(), xs, xs.index(2))
d = {"a": 1}
print(d.get("b", 0), d.setdefault("b", 5), sorted(d.items()))
`)
	require.Equal(t, "hello world True 2 -1\n3 [1, 2] 1\n0 5 [('a', 1), ('b', 5)]\n", out)
}
