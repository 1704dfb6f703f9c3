package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Source is program text together with where it came from.
type Source struct {
	Path     string
	Revision string
	Text     string
}

// Filename is the name code objects compiled from s should carry.
func (s *Source) Filename() string {
	if s.Revision == "" {
		return s.Path
	}
	return s.Revision + ":" + s.Path
}

// ErrNotInRepository is returned when a revision is requested for a file
// outside any git repository.
var ErrNotInRepository = errors.New("source: not inside a git repository")

// LoadSource reads path from disk, or from the commit rev names when rev is
// non-empty.
func LoadSource(path, rev string) (*Source, error) {
	if rev == "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("source: read %s: %w", path, err)
		}
		return &Source{Path: path, Text: string(data)}, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("source: resolve %s: %w", path, err)
	}
	repo, err := git.PlainOpenWithOptions(filepath.Dir(absPath), &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotInRepository, path)
		}
		return nil, fmt.Errorf("source: open repository for %s: %w", path, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("source: worktree: %w", err)
	}
	root, err := filepath.EvalSymlinks(worktree.Filesystem.Root())
	if err != nil {
		return nil, fmt.Errorf("source: resolve worktree root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(filepath.Dir(absPath))
	if err != nil {
		return nil, fmt.Errorf("source: resolve %s: %w", path, err)
	}
	rel, err := filepath.Rel(root, filepath.Join(resolved, filepath.Base(absPath)))
	if err != nil {
		return nil, fmt.Errorf("source: %s is outside %s: %w", path, root, err)
	}

	commit, err := resolveCommit(repo, rev)
	if err != nil {
		return nil, err
	}
	file, err := commit.File(filepath.ToSlash(rel))
	if err != nil {
		return nil, fmt.Errorf("source: %s at %s: %w", rel, rev, err)
	}
	text, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("source: read %s at %s: %w", rel, rev, err)
	}
	return &Source{Path: path, Revision: rev, Text: text}, nil
}

func resolveCommit(repo *git.Repository, rev string) (*object.Commit, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("source: resolve revision %s: %w", rev, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("source: commit %s: %w", rev, err)
	}
	return commit, nil
}
