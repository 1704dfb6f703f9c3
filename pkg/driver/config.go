// Package driver loads project configuration and source text for the
// command line tools.
package driver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"serpent/interpreter-go/pkg/compiler"
	"serpent/interpreter-go/pkg/parser"
	"serpent/interpreter-go/pkg/pyast"
)

// ConfigNames lists the file names FindConfig looks for, in order.
var ConfigNames = []string{"serpent.yml", "serpent.yaml", "serpent.toml"}

// Config is the parsed contents of a serpent configuration file.
type Config struct {
	Path     string         `yaml:"-" toml:"-"`
	Parser   ParserConfig   `yaml:"parser" toml:"parser"`
	Compiler CompilerConfig `yaml:"compiler" toml:"compiler"`
	Bridge   BridgeConfig   `yaml:"bridge" toml:"bridge"`
	Log      LogConfig      `yaml:"log" toml:"log"`
}

type ParserConfig struct {
	MaxDepth int `yaml:"max_depth" toml:"max_depth"`
}

type CompilerConfig struct {
	Optimize int `yaml:"optimize" toml:"optimize"`
	MaxDepth int `yaml:"max_depth" toml:"max_depth"`
}

// BridgeConfig bounds the object trees Compile accepts. An unset MaxDepth
// follows the parser's, scaled so parsed source always converts back.
type BridgeConfig struct {
	MaxDepth int `yaml:"max_depth" toml:"max_depth"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// ValidationError aggregates configuration problems.
type ValidationError struct {
	Path   string
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "config: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("config: ")
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString("validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig parses path, choosing the decoder by extension. Unknown keys
// are rejected.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", absPath, err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(absPath)); ext {
	case ".yml", ".yaml":
		err = decodeYAML(data, &cfg)
	case ".toml":
		err = decodeTOML(data, &cfg)
	default:
		return nil, fmt.Errorf("config: %s: unsupported extension %q", absPath, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", absPath, err)
	}

	cfg.Path = absPath
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func decodeTOML(data []byte, cfg *Config) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// FindConfig walks up from dir looking for a configuration file. It returns
// "" when none exists between dir and the filesystem root.
func FindConfig(dir string) (string, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("config: resolve %s: %w", dir, err)
	}
	for {
		for _, name := range ConfigNames {
			candidate := filepath.Join(current, name)
			info, err := os.Stat(candidate)
			if err == nil && !info.IsDir() {
				return candidate, nil
			}
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("config: stat %s: %w", candidate, err)
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", nil
		}
		current = parent
	}
}

// FindAndLoad loads the nearest configuration above dir, falling back to
// the defaults.
func FindAndLoad(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

func (c *Config) applyDefaults() {
	if c.Parser.MaxDepth == 0 {
		c.Parser.MaxDepth = parser.DefaultMaxDepth
	}
	if c.Compiler.MaxDepth == 0 {
		c.Compiler.MaxDepth = compiler.DefaultMaxDepth
	}
	if c.Bridge.MaxDepth == 0 {
		c.Bridge.MaxDepth = pyast.DepthForParser(c.Parser.MaxDepth)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	errs := ValidationError{Path: c.Path}
	if c.Compiler.Optimize < 0 || c.Compiler.Optimize > 2 {
		errs.Issues = append(errs.Issues, fmt.Sprintf("compiler.optimize must be 0, 1 or 2 (got %d)", c.Compiler.Optimize))
	}
	if c.Parser.MaxDepth < 0 {
		errs.Issues = append(errs.Issues, "parser.max_depth must be positive")
	}
	if c.Compiler.MaxDepth < 0 {
		errs.Issues = append(errs.Issues, "compiler.max_depth must be positive")
	}
	if c.Bridge.MaxDepth < 0 {
		errs.Issues = append(errs.Issues, "bridge.max_depth must be positive")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs.Issues = append(errs.Issues, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs.Issues = append(errs.Issues, fmt.Sprintf("log.format %q is not text or json", c.Log.Format))
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

// CompilerOptions converts the compiler section for the bridge.
func (c *Config) CompilerOptions() compiler.Options {
	return compiler.Options{Optimize: c.Compiler.Optimize, MaxDepth: c.Compiler.MaxDepth}
}

// BridgeOptions returns the bridge options the configuration implies.
func (c *Config) BridgeOptions() []pyast.Option {
	return []pyast.Option{
		pyast.WithMaxDepth(c.Bridge.MaxDepth),
		pyast.WithCompilerOptions(c.CompilerOptions()),
	}
}
