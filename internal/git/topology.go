package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrNotARepository indicates the given directory is not inside a git
// repository.
var ErrNotARepository = errors.New("not inside a git repository")

// Topology describes where a repository's worktrees live.
// It is computed fresh per command invocation and never persisted.
type Topology struct {
	// MainRoot is the main worktree, the parent of the shared .git
	// directory. It anchors where sibling worktrees are created.
	MainRoot string

	// CurrentRoot is the worktree the operation was invoked from.
	CurrentRoot string

	// ProjectName is the directory name of MainRoot, used for default
	// worktree naming.
	ProjectName string

	// ParentDir is the directory under which sibling worktrees are
	// created. Defaults to the parent of MainRoot.
	ParentDir string
}

// IsMain reports whether path is the main worktree.
func (t Topology) IsMain(path string) bool {
	return filepath.Clean(path) == filepath.Clean(t.MainRoot)
}

// ResolveTopology determines the repository topology for a directory
// presumed to be inside a git repository. Returns ErrNotARepository
// when dir is not inside one.
func ResolveTopology(ctx context.Context, dir string) (Topology, error) {
	toplevel, err := outputGit(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return Topology{}, fmt.Errorf("%w: %s", ErrNotARepository, dir)
	}
	currentRoot := strings.TrimSpace(string(toplevel))

	commonDir, err := outputGit(ctx, dir, "rev-parse", "--path-format=absolute", "--git-common-dir")
	if err != nil {
		return Topology{}, fmt.Errorf("%w: %s", ErrNotARepository, dir)
	}

	// The common dir is <mainRoot>/.git for every linked worktree.
	gitDir := filepath.Clean(strings.TrimSpace(string(commonDir)))
	mainRoot := currentRoot
	if filepath.Base(gitDir) == ".git" {
		mainRoot = filepath.Dir(gitDir)
	}

	return Topology{
		MainRoot:    mainRoot,
		CurrentRoot: currentRoot,
		ProjectName: filepath.Base(mainRoot),
		ParentDir:   filepath.Dir(mainRoot),
	}, nil
}
