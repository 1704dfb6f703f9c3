package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Main, "serpent").
		WithSynopsis("serpent [opts] command [opts]").
		WithDescription("serpent parses, compiles and runs Python source through the AST bridge.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return serpentMain(cfg, cc, args)
		}).
		WithSubs(
			ParseCommand(cfg),
			CompileCommand(cfg),
			RunCommand(cfg),
			RoundtripCommand(cfg),
			DiffCommand(cfg))
}

func serpentMain(cfg *MainConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Main.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return cli.ErrNoCommandProvided
	}
	sub := cfg.Main.FindSub(cc, args[0])
	if sub == nil {
		return fmt.Errorf("%w: %q not found", cli.ErrNoSuchCommand, args[0])
	}
	err = sub.Run(cc, args[1:])
	if errors.Is(err, cli.ErrUsage) {
		sub.Usage(cc, err)
		os.Exit(sub.Exit(cc, err))
	}
	return err
}

func ParseCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ParseConfig{MainConfig: mainCfg, Mode: "exec"}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Parse, "parse").
		WithAliases("p").
		WithSynopsis("parse [-mode m] [-attrs] [-rev r] file").
		WithDescription("dump the object tree of a source file").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return parseFile(cfg, cc, args)
		})
}

func CompileCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &CompileConfig{MainConfig: mainCfg, Mode: "exec"}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Compile, "compile").
		WithAliases("c").
		WithSynopsis("compile [-mode m] [-o out] [-rev r] file").
		WithDescription("disassemble a source file, or write its bytecode artifact").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return compileFile(cfg, cc, args)
		})
}

func RunCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &RunConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Run, "run").
		WithAliases("r").
		WithSynopsis("run [-rev r] file").
		WithDescription("execute a source file or bytecode artifact").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return runFile(cfg, cc, args)
		})
}

func RoundtripCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &RoundtripConfig{MainConfig: mainCfg, Mode: "exec"}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Roundtrip, "roundtrip").
		WithAliases("rt").
		WithSynopsis("roundtrip [-mode m] [-attrs] file").
		WithDescription("convert a file's tree to typed nodes and back, reporting any difference").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return roundtripFile(cfg, cc, args)
		})
}

func DiffCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &DiffConfig{MainConfig: mainCfg, Mode: "exec"}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Diff, "diff").
		WithAliases("d").
		WithSynopsis("diff -rev r [-against r2] file").
		WithDescription("diff the object tree of a file between revisions").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return diffFile(cfg, cc, args)
		})
}
