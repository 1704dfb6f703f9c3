package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"serpent/interpreter-go/pkg/ast"
	"serpent/interpreter-go/pkg/compiler"
	"serpent/interpreter-go/pkg/driver"
	"serpent/interpreter-go/pkg/interpreter"
	"serpent/interpreter-go/pkg/parser"
	"serpent/interpreter-go/pkg/pyast"
)

func testBridge(t *testing.T) *pyast.Bridge {
	t.Helper()
	mp, err := parser.NewModuleParser()
	require.NoError(t, err)
	t.Cleanup(mp.Close)
	return pyast.NewBridge(mp, compiler.New())
}

func TestWriteDiff(t *testing.T) {
	var buf bytes.Buffer
	require.False(t, writeDiff(&buf, "a\nb\n", "a\nb\n", false))
	require.Empty(t, buf.String())

	require.True(t, writeDiff(&buf, "a\nb\nc\n", "a\nx\nc\n", false))
	require.Equal(t, " a\n-b\n+x\n c\n", buf.String())
}

func TestDumpSourceOneStatementPerLine(t *testing.T) {
	out, err := dumpSource(context.Background(), testBridge(t), "x = 1\npass\n", ast.ModeExec, false)
	require.NoError(t, err)
	require.Equal(t, "Assign(targets=[Name(id='x', ctx=Store())], value=Constant(value=1, kind=None), type_comment=None)\nPass()\n", out)

	out, err = dumpSource(context.Background(), testBridge(t), "1", ast.ModeEval, false)
	require.NoError(t, err)
	require.Equal(t, "Expression(body=Constant(value=1, kind=None))\n", out)
}

func TestRoundtripIsStable(t *testing.T) {
	source := `
import os
def f(a, b=2, *c, d, **e):
    return a + b
for i in range(3):
    print(f"{i!r:>4}")
`
	before, after, err := roundtrip(context.Background(), testBridge(t), source, ast.ModeExec, false)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestSetupReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "serpent.yml")
	require.NoError(t, os.WriteFile(path, []byte("compiler:\n  optimize: 1\n"), 0o644))

	cfg := &MainConfig{Config: path}
	require.NoError(t, cfg.setup())
	require.Equal(t, 1, cfg.settings.Compiler.Optimize)

	bridge, release, err := cfg.bridge()
	require.NoError(t, err)
	defer release()
	require.Equal(t, 1, bridge.CompilerOptions().Optimize)

	// Optimize 1 drops asserts.
	var out bytes.Buffer
	interp := interpreter.New(bridge, interpreter.WithStdout(&out))
	_, err = interp.Exec(cfg.ctx, "assert False\nprint('ok')\n", "<cfg>")
	require.NoError(t, err)
	require.Equal(t, "ok\n", out.String())
}

func TestArtifactRunsLikeSource(t *testing.T) {
	bridge := testBridge(t)
	res, err := bridge.CompileSource(context.Background(), "print(sum([1, 2, 3]))\n", "prog.py", ast.ModeExec, 0)
	require.NoError(t, err)
	data, err := compiler.Marshal(res.Code)
	require.NoError(t, err)
	code, err := compiler.Unmarshal(data)
	require.NoError(t, err)

	var out bytes.Buffer
	interp := interpreter.New(bridge, interpreter.WithStdout(&out))
	globals := interp.NewGlobals("__main__")
	_, err = interp.Run(context.Background(), code, globals, globals)
	require.NoError(t, err)
	require.Equal(t, "6\n", out.String())
}

func TestDefaultConfigBridge(t *testing.T) {
	cfg := &MainConfig{settings: driver.DefaultConfig()}
	bridge, release, err := cfg.bridge()
	require.NoError(t, err)
	defer release()
	require.Equal(t, compiler.DefaultMaxDepth, bridge.CompilerOptions().MaxDepth)
}
