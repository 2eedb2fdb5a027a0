package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Worktree is one record of the repository's worktree registry.
type Worktree struct {
	Path       string `json:"path"`
	Head       string `json:"head,omitempty"`
	Branch     string `json:"branch,omitempty"` // short name; empty when detached
	Detached   bool   `json:"detached,omitempty"`
	Bare       bool   `json:"bare,omitempty"`
	Locked     bool   `json:"locked,omitempty"`
	LockReason string `json:"lock_reason,omitempty"`
	Prunable   bool   `json:"prunable,omitempty"`
}

// ParseWorktrees parses `git worktree list --porcelain` output.
//
// The format is line-oriented: a record starts with "worktree <path>",
// subsequent attribute lines apply to it, and a blank line terminates
// it. Locked records may or may not carry a trailing reason; detached
// records have no branch line.
func ParseWorktrees(out []byte) []Worktree {
	var worktrees []Worktree
	var current Worktree

	flush := func() {
		if current.Path != "" {
			worktrees = append(worktrees, current)
		}
		current = Worktree{}
	}

	for _, line := range strings.Split(string(out), "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			current.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "HEAD "):
			current.Head = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			ref := strings.TrimPrefix(line, "branch ")
			current.Branch = strings.TrimPrefix(ref, "refs/heads/")
		case line == "detached":
			current.Detached = true
		case line == "bare":
			current.Bare = true
		case line == "locked":
			current.Locked = true
		case strings.HasPrefix(line, "locked "):
			current.Locked = true
			current.LockReason = strings.TrimPrefix(line, "locked ")
		case line == "prunable" || strings.HasPrefix(line, "prunable "):
			current.Prunable = true
		case line == "":
			flush()
		}
	}
	flush()

	return worktrees
}

// ListWorktrees returns the repository's worktree registry.
//
// Stale entries are pruned first on a best-effort basis so that the
// result reflects directories that still exist; prune failures are
// swallowed since any external actor may race us on the registry.
func ListWorktrees(ctx context.Context, repoRoot string) ([]Worktree, error) {
	_ = PruneWorktrees(ctx, repoRoot)

	out, err := outputGit(ctx, repoRoot, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("failed to list worktrees: %v", err)
	}
	return ParseWorktrees(out), nil
}

// PruneWorktrees removes registry entries whose backing directory
// vanished. Locked entries are never pruned by git.
func PruneWorktrees(ctx context.Context, repoRoot string) error {
	return runGit(ctx, repoRoot, "worktree", "prune")
}

// AddWorktree creates a worktree at path. With create set, a new
// branch is created, starting at baseRef when non-empty (HEAD
// otherwise); without it the existing branch is checked out.
func AddWorktree(ctx context.Context, repoRoot, path, branch string, create bool, baseRef string) error {
	args := []string{"worktree", "add", path}
	if create {
		args = append(args, "-b", branch)
		if baseRef != "" {
			args = append(args, baseRef)
		}
	} else {
		args = append(args, branch)
	}

	if err := runGit(ctx, repoRoot, args...); err != nil {
		return fmt.Errorf("failed to create worktree: %v", err)
	}
	return nil
}

// RemoveWorktree removes the worktree at path.
func RemoveWorktree(ctx context.Context, repoRoot, path string, force bool) error {
	args := []string{"worktree", "remove", path}
	if force {
		args = append(args, "--force")
	}

	if err := runGit(ctx, repoRoot, args...); err != nil {
		return fmt.Errorf("failed to remove worktree: %v", err)
	}
	return nil
}

// FindByBranch returns the worktree holding branch, or nil. Detached
// records never match; git guarantees at most one non-detached record
// per branch.
func FindByBranch(worktrees []Worktree, branch string) *Worktree {
	for i := range worktrees {
		if !worktrees[i].Detached && worktrees[i].Branch == branch {
			return &worktrees[i]
		}
	}
	return nil
}

// FindByPath returns the worktree registered at path, or nil.
func FindByPath(worktrees []Worktree, path string) *Worktree {
	cleaned := filepath.Clean(path)
	for i := range worktrees {
		if filepath.Clean(worktrees[i].Path) == cleaned {
			return &worktrees[i]
		}
	}
	return nil
}

// IsWorktreeRoot reports whether dir is the root of a linked worktree,
// i.e. contains a .git file (the main worktree has a .git directory).
func IsWorktreeRoot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && !info.IsDir()
}

// ContainsPath reports whether path is worktreePath or inside it.
func ContainsPath(worktreePath, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(worktreePath), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}
