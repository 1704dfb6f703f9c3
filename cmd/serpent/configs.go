package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"

	"serpent/interpreter-go/pkg/ast"
	"serpent/interpreter-go/pkg/compiler"
	"serpent/interpreter-go/pkg/ctxlog"
	"serpent/interpreter-go/pkg/driver"
	"serpent/interpreter-go/pkg/parser"
	"serpent/interpreter-go/pkg/pyast"
)

type MainConfig struct {
	Config  string `cli:"name=config desc='configuration file (default: nearest serpent.yml or serpent.toml)'"`
	Verbose bool   `cli:"name=v desc='log at debug level'"`
	Color   bool   `cli:"name=color desc='colour output even when it is not a terminal'"`

	Main *cli.Command

	settings *driver.Config
	ctx      context.Context
}

// setup loads the configuration and installs the logger. Subcommands call
// it after their own flags are parsed.
func (cfg *MainConfig) setup() error {
	if cfg.ctx != nil {
		return nil
	}
	var (
		settings *driver.Config
		err      error
	)
	if cfg.Config != "" {
		settings, err = driver.LoadConfig(cfg.Config)
	} else {
		settings, err = driver.FindAndLoad(".")
	}
	if err != nil {
		return err
	}
	level := settings.Log.Level
	if cfg.Verbose {
		level = "debug"
	}
	logger := ctxlog.New(os.Stderr, settings.Log.Format, level)
	cfg.settings = settings
	cfg.ctx = ctxlog.WithLogger(context.Background(), logger)
	if settings.Path != "" {
		logger.Debug("loaded configuration", slog.String("path", settings.Path))
	}
	return nil
}

// bridge builds a pipeline from the loaded configuration. The returned
// function releases the parser.
func (cfg *MainConfig) bridge() (*pyast.Bridge, func(), error) {
	mp, err := parser.NewModuleParser()
	if err != nil {
		return nil, nil, err
	}
	mp.SetMaxDepth(cfg.settings.Parser.MaxDepth)
	return pyast.NewBridge(mp, compiler.New(), cfg.settings.BridgeOptions()...), mp.Close, nil
}

// colorize reports whether output to w should carry colour.
func (cfg *MainConfig) colorize(w io.Writer) bool {
	if cfg.Color {
		return true
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// errorf prints a diagnostic on stderr, in red on a terminal.
func (cfg *MainConfig) errorf(format string, args ...any) {
	c := color.New(color.FgRed)
	if cfg.colorize(os.Stderr) {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	c.Fprintf(os.Stderr, format, args...)
}

func parseMode(name string) (ast.Mode, error) {
	mode, err := ast.ParseMode(name)
	if err != nil {
		return mode, fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	return mode, nil
}

type ParseConfig struct {
	*MainConfig
	Mode  string `cli:"name=mode desc='exec, eval or single'"`
	Attrs bool   `cli:"name=attrs desc='include location attributes'"`
	Rev   string `cli:"name=rev desc='read the file at a git revision'"`

	Parse *cli.Command
}

type CompileConfig struct {
	*MainConfig
	Mode string `cli:"name=mode desc='exec, eval or single'"`
	Out  string `cli:"name=o desc='write a bytecode artifact instead of a listing'"`
	Rev  string `cli:"name=rev desc='read the file at a git revision'"`

	Compile *cli.Command
}

type RunConfig struct {
	*MainConfig
	Rev string `cli:"name=rev desc='read the file at a git revision'"`

	Run *cli.Command
}

type RoundtripConfig struct {
	*MainConfig
	Mode  string `cli:"name=mode desc='exec, eval or single'"`
	Attrs bool   `cli:"name=attrs desc='compare location attributes too'"`

	Roundtrip *cli.Command
}

type DiffConfig struct {
	*MainConfig
	Rev     string `cli:"name=rev desc='revision to compare from (required)'"`
	Against string `cli:"name=against desc='revision to compare to (default: working tree)'"`
	Mode    string `cli:"name=mode desc='exec, eval or single'"`
	Attrs   bool   `cli:"name=attrs desc='include location attributes'"`

	Diff *cli.Command
}
