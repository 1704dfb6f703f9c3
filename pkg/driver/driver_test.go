package driver

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"serpent/interpreter-go/pkg/compiler"
	"serpent/interpreter-go/pkg/parser"
	"serpent/interpreter-go/pkg/pyast"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.TrimSpace(contents)+"\n"), 0o644))
}

func TestLoadConfigYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "serpent.yml")
	writeFile(t, path, `
compiler:
  optimize: 1
bridge:
  max_depth: 50
log:
  level: debug
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 1, cfg.Compiler.Optimize)
	require.Equal(t, compiler.DefaultMaxDepth, cfg.Compiler.MaxDepth)
	require.Equal(t, 50, cfg.Bridge.MaxDepth)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "text", cfg.Log.Format)
	require.Equal(t, compiler.Options{Optimize: 1, MaxDepth: compiler.DefaultMaxDepth}, cfg.CompilerOptions())
	require.Len(t, cfg.BridgeOptions(), 2)
}

func TestLoadConfigTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "serpent.toml")
	writeFile(t, path, `
[compiler]
max_depth = 200

[log]
format = "json"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 200, cfg.Compiler.MaxDepth)
	require.Equal(t, pyast.DefaultMaxDepth, cfg.Bridge.MaxDepth)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestBridgeDepthFollowsParser(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "serpent.yml")
	writeFile(t, path, "parser:\n  max_depth: 40\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 40, cfg.Parser.MaxDepth)
	require.Equal(t, pyast.DepthForParser(40), cfg.Bridge.MaxDepth)

	def := DefaultConfig()
	require.Equal(t, parser.DefaultMaxDepth, def.Parser.MaxDepth)
	require.Equal(t, pyast.DefaultMaxDepth, def.Bridge.MaxDepth)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "serpent.yml")
	writeFile(t, yamlPath, "compiler:\n  optimise: 1\n")
	_, err := LoadConfig(yamlPath)
	require.ErrorContains(t, err, "optimise")

	tomlPath := filepath.Join(dir, "serpent.toml")
	writeFile(t, tomlPath, "[bridge]\ndepth = 3\n")
	_, err = LoadConfig(tomlPath)
	require.ErrorContains(t, err, "bridge.depth")

	_, err = LoadConfig(filepath.Join(dir, "serpent.json"))
	require.Error(t, err)
}

func TestLoadConfigValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "serpent.yaml")
	writeFile(t, path, `
compiler:
  optimize: 5
log:
  level: loud
  format: xml
`)
	_, err := LoadConfig(path)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Issues, 3)
	require.Contains(t, err.Error(), "compiler.optimize must be 0, 1 or 2 (got 5)")
}

func TestEmptyConfigUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "serpent.yml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	want := DefaultConfig()
	want.Path = cfg.Path
	require.Equal(t, want, cfg)
}

func TestFindConfigWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	writeFile(t, filepath.Join(root, "a", "serpent.toml"), "[log]\nlevel = \"warn\"\n")

	path, err := FindConfig(nested)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "a", "serpent.toml"), path)

	cfg, err := FindAndLoad(nested)
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.Log.Level)

	// YAML wins over TOML in the same directory.
	writeFile(t, filepath.Join(root, "a", "b", "serpent.yml"), "log:\n  level: error\n")
	cfg, err = FindAndLoad(nested)
	require.NoError(t, err)
	require.Equal(t, "error", cfg.Log.Level)
}

func commit(t *testing.T, repo *git.Repository, message string, paths ...string) string {
	t.Helper()
	worktree, err := repo.Worktree()
	require.NoError(t, err)
	for _, path := range paths {
		_, err := worktree.Add(path)
		require.NoError(t, err)
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Serpent",
			Email: "serpent@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)
	return hash.String()
}

func TestLoadSourceAtRevision(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	path := filepath.Join(dir, "pkg", "main.py")
	writeFile(t, path, "x = 1")
	first := commit(t, repo, "first", "pkg/main.py")
	writeFile(t, path, "x = 2")
	commit(t, repo, "second", "pkg/main.py")
	writeFile(t, path, "x = 3")

	src, err := LoadSource(path, "")
	require.NoError(t, err)
	require.Equal(t, "x = 3\n", src.Text)
	require.Equal(t, path, src.Filename())

	src, err = LoadSource(path, "HEAD")
	require.NoError(t, err)
	require.Equal(t, "x = 2\n", src.Text)
	require.Equal(t, "HEAD:"+path, src.Filename())

	src, err = LoadSource(path, first)
	require.NoError(t, err)
	require.Equal(t, "x = 1\n", src.Text)

	_, err = LoadSource(path, "no-such-branch")
	require.ErrorContains(t, err, "resolve revision")
}

func TestLoadSourceOutsideRepository(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.py")
	writeFile(t, path, "pass")

	_, err := LoadSource(filepath.Join(dir, "missing.py"), "")
	require.Error(t, err)

	if _, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true}); err == nil {
		t.Skip("temporary directory is inside a git repository")
	}
	_, err = LoadSource(path, "HEAD")
	require.ErrorIs(t, err, ErrNotInRepository)
}
