package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/scott-cotton/cli"

	"serpent/interpreter-go/pkg/ast"
	"serpent/interpreter-go/pkg/compiler"
	"serpent/interpreter-go/pkg/driver"
	"serpent/interpreter-go/pkg/interpreter"
	"serpent/interpreter-go/pkg/pyast"
	"serpent/interpreter-go/pkg/runtime"
)

// artifactExt marks files holding a compiled code object.
const artifactExt = ".spc"

func oneFile(cmd string, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: %s requires exactly one file, got %d arguments", cli.ErrUsage, cmd, len(args))
	}
	return args[0], nil
}

func parseFile(cfg *ParseConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Parse.Parse(cc, args)
	if err != nil {
		return err
	}
	file, err := oneFile("parse", args)
	if err != nil {
		return err
	}
	mode, err := parseMode(cfg.Mode)
	if err != nil {
		return err
	}
	if err := cfg.setup(); err != nil {
		return err
	}
	src, err := driver.LoadSource(file, cfg.Rev)
	if err != nil {
		return err
	}
	bridge, release, err := cfg.bridge()
	if err != nil {
		return err
	}
	defer release()
	dump, err := dumpSource(cfg.ctx, bridge, src.Text, mode, cfg.Attrs)
	if err != nil {
		cfg.errorf("%s: %v\n", src.Filename(), err)
		return cli.ExitCodeErr(1)
	}
	_, err = fmt.Fprint(cc.Out, dump)
	return err
}

func compileFile(cfg *CompileConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Compile.Parse(cc, args)
	if err != nil {
		return err
	}
	file, err := oneFile("compile", args)
	if err != nil {
		return err
	}
	mode, err := parseMode(cfg.Mode)
	if err != nil {
		return err
	}
	if err := cfg.setup(); err != nil {
		return err
	}
	src, err := driver.LoadSource(file, cfg.Rev)
	if err != nil {
		return err
	}
	bridge, release, err := cfg.bridge()
	if err != nil {
		return err
	}
	defer release()
	res, err := bridge.CompileSource(cfg.ctx, src.Text, src.Filename(), mode, 0)
	if err != nil {
		cfg.errorf("%s: %v\n", src.Filename(), err)
		return cli.ExitCodeErr(1)
	}
	if cfg.Out == "" {
		_, err = fmt.Fprint(cc.Out, compiler.Disassemble(res.Code))
		return err
	}
	data, err := compiler.Marshal(res.Code)
	if err != nil {
		return err
	}
	out := cfg.Out
	if filepath.Ext(out) == "" {
		out += artifactExt
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	return nil
}

func runFile(cfg *RunConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Run.Parse(cc, args)
	if err != nil {
		return err
	}
	file, err := oneFile("run", args)
	if err != nil {
		return err
	}
	if err := cfg.setup(); err != nil {
		return err
	}
	bridge, release, err := cfg.bridge()
	if err != nil {
		return err
	}
	defer release()
	interp := interpreter.New(bridge, interpreter.WithStdout(cc.Out))

	if strings.HasSuffix(file, artifactExt) && cfg.Rev == "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		code, err := compiler.Unmarshal(data)
		if err != nil {
			return err
		}
		globals := interp.NewGlobals("__main__")
		_, err = interp.Run(cfg.ctx, code, globals, globals)
		return cfg.reportExec(err)
	}

	src, err := driver.LoadSource(file, cfg.Rev)
	if err != nil {
		return err
	}
	_, err = interp.Exec(cfg.ctx, src.Text, src.Filename())
	return cfg.reportExec(err)
}

// reportExec prints an escaped exception as a traceback and turns it into
// exit status 1.
func (cfg *MainConfig) reportExec(err error) error {
	if err == nil {
		return nil
	}
	var ee *interpreter.ExecError
	if errors.As(err, &ee) {
		cfg.errorf("%s\n", ee.Traceback())
		return cli.ExitCodeErr(1)
	}
	if pe, ok := pyast.AsError(err); ok {
		cfg.errorf("%v\n", pe.Exception())
		return cli.ExitCodeErr(1)
	}
	return err
}

func roundtripFile(cfg *RoundtripConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Roundtrip.Parse(cc, args)
	if err != nil {
		return err
	}
	file, err := oneFile("roundtrip", args)
	if err != nil {
		return err
	}
	mode, err := parseMode(cfg.Mode)
	if err != nil {
		return err
	}
	if err := cfg.setup(); err != nil {
		return err
	}
	src, err := driver.LoadSource(file, "")
	if err != nil {
		return err
	}
	bridge, release, err := cfg.bridge()
	if err != nil {
		return err
	}
	defer release()
	before, after, err := roundtrip(cfg.ctx, bridge, src.Text, mode, cfg.Attrs)
	if err != nil {
		cfg.errorf("%s: %v\n", src.Filename(), err)
		return cli.ExitCodeErr(1)
	}
	if writeDiff(cc.Out, before, after, cfg.colorize(cc.Out)) {
		return cli.ExitCodeErr(1)
	}
	return nil
}

func diffFile(cfg *DiffConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Diff.Parse(cc, args)
	if err != nil {
		return err
	}
	file, err := oneFile("diff", args)
	if err != nil {
		return err
	}
	if cfg.Rev == "" {
		return fmt.Errorf("%w: diff requires -rev", cli.ErrUsage)
	}
	mode, err := parseMode(cfg.Mode)
	if err != nil {
		return err
	}
	if err := cfg.setup(); err != nil {
		return err
	}
	bridge, release, err := cfg.bridge()
	if err != nil {
		return err
	}
	defer release()

	dumps := make([]string, 2)
	for i, rev := range []string{cfg.Rev, cfg.Against} {
		src, err := driver.LoadSource(file, rev)
		if err != nil {
			return err
		}
		if dumps[i], err = dumpSource(cfg.ctx, bridge, src.Text, mode, cfg.Attrs); err != nil {
			cfg.errorf("%s: %v\n", src.Filename(), err)
			return cli.ExitCodeErr(1)
		}
	}
	if writeDiff(cc.Out, dumps[0], dumps[1], cfg.colorize(cc.Out)) {
		return cli.ExitCodeErr(1)
	}
	return nil
}

// dumpSource parses text and renders its object tree.
func dumpSource(ctx context.Context, bridge *pyast.Bridge, text string, mode ast.Mode, attrs bool) (string, error) {
	tree, err := bridge.Parse(ctx, text, mode)
	if err != nil {
		return "", err
	}
	return dumpLines(tree, attrs), nil
}

// dumpLines renders a module body one statement per line so line diffs
// point at the statement that changed. Other roots dump on one line.
func dumpLines(tree runtime.Value, attrs bool) string {
	body, err := runtime.GetAttr(tree, "body")
	list, ok := body.(*runtime.List)
	if err != nil || !ok {
		return pyast.Dump(tree, attrs) + "\n"
	}
	var b strings.Builder
	for _, stmt := range list.Snapshot() {
		b.WriteString(pyast.Dump(stmt, attrs))
		b.WriteByte('\n')
	}
	return b.String()
}

// roundtrip dumps the object tree of text before and after a conversion to
// typed nodes and back.
func roundtrip(ctx context.Context, bridge *pyast.Bridge, text string, mode ast.Mode, attrs bool) (string, string, error) {
	tree, err := bridge.Parse(ctx, text, mode)
	if err != nil {
		return "", "", err
	}
	ns := bridge.Namespace()
	typed, err := pyast.FromObject[ast.Mod](tree, pyast.WithNamespace(ns))
	if err != nil {
		return "", "", err
	}
	back := pyast.ToObject(ns, typed)
	return dumpLines(tree, attrs), dumpLines(back, attrs), nil
}
