package git

import (
	"context"
	"strings"
)

// DirtyState classifies a worktree's working-tree status.
type DirtyState int

const (
	// Clean means no uncommitted changes or untracked files.
	Clean DirtyState = iota
	// Dirty means the worktree has uncommitted work.
	Dirty
	// Unknown means the status query failed. Callers must not treat
	// this as dirty, to avoid false escalation.
	Unknown
)

func (s DirtyState) String() string {
	switch s {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	default:
		return "unknown"
	}
}

// Status returns the working-tree status of the worktree at path.
func Status(ctx context.Context, path string) DirtyState {
	out, err := outputGit(ctx, path, "status", "--porcelain")
	if err != nil {
		return Unknown
	}
	if strings.TrimSpace(string(out)) == "" {
		return Clean
	}
	return Dirty
}

// IsDirty reports whether the worktree at path has uncommitted work.
// An unknown status counts as clean.
func IsDirty(ctx context.Context, path string) bool {
	return Status(ctx, path) == Dirty
}
