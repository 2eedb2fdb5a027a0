// Package worktree derives filesystem paths for new worktrees and
// resolves conflicts against the registry and the disk.
package worktree

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nlowe/arbor/internal/git"
	"github.com/nlowe/arbor/internal/ui"
)

// ErrInvalidBranchForPath indicates a branch name that normalizes to
// nothing, so no default path can be synthesized and no interactive
// capability is available to ask for one.
var ErrInvalidBranchForPath = errors.New("branch name yields no usable directory name")

// Normalize converts a branch name into a directory-name slug:
// lowercase, the refs/heads/ prefix stripped, every run of characters
// outside [a-z0-9] collapsed into a single dash, leading and trailing
// dashes trimmed. Normalize is idempotent.
func Normalize(branch string) string {
	s := strings.ToLower(strings.TrimPrefix(branch, "refs/heads/"))

	var b strings.Builder
	dash := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		} else {
			dash = true
		}
	}
	return b.String()
}

// FormatName expands a worktree naming template. Supported
// placeholders: {project} and {branch} (the normalized slug).
func FormatName(format, project, slug string) string {
	name := strings.ReplaceAll(format, "{project}", project)
	return strings.ReplaceAll(name, "{branch}", slug)
}

// Allocator resolves a free directory for a new worktree.
type Allocator struct {
	// Prompter is the interactive capability used to resolve
	// conflicts. When nil, conflicts are fatal.
	Prompter ui.Prompter

	// Format is the naming template, e.g. "{project}-{branch}".
	Format string
}

// Resolve returns a directory path for a new worktree of branch.
//
// The default candidate is parentDir/<formatted name>. While the
// candidate collides with a registered worktree path or an existing
// non-empty directory, the specific reason is reported and an
// alternative is requested through the prompter; without one the first
// collision is a fatal error. Returns ui.ErrCancelled when the user
// gives up.
func (a *Allocator) Resolve(topo git.Topology, registry []git.Worktree, branch string) (string, error) {
	slug := Normalize(branch)

	var candidate string
	if slug == "" {
		if a.Prompter == nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidBranchForPath, branch)
		}
		a.Prompter.Notify(fmt.Sprintf("branch %q yields no usable directory name", branch), ui.Warn)
		entered, err := a.Prompter.Input("Directory for the new worktree", "")
		if err != nil {
			return "", err
		}
		if entered == "" {
			return "", ui.ErrCancelled
		}
		candidate = resolveEntry(topo.ParentDir, entered)
	} else {
		candidate = filepath.Join(topo.ParentDir, FormatName(a.format(), topo.ProjectName, slug))
	}

	for {
		reason := conflict(registry, candidate)
		if reason == "" {
			return candidate, nil
		}

		if a.Prompter == nil {
			return "", fmt.Errorf("cannot use %s: %s", candidate, reason)
		}

		a.Prompter.Notify(fmt.Sprintf("cannot use %s: %s", candidate, reason), ui.Warn)
		entered, err := a.Prompter.Input("Alternative directory", "")
		if err != nil {
			return "", err
		}
		if entered == "" {
			return "", ui.ErrCancelled
		}
		candidate = resolveEntry(topo.ParentDir, entered)
	}
}

func (a *Allocator) format() string {
	if a.Format == "" {
		return "{project}-{branch}"
	}
	return a.Format
}

// resolveEntry interprets user input as absolute, ~-relative or
// relative to the parent directory.
func resolveEntry(parentDir, entry string) string {
	switch {
	case filepath.IsAbs(entry):
		return filepath.Clean(entry)
	case strings.HasPrefix(entry, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Clean(entry)
		}
		return filepath.Join(home, entry[2:])
	default:
		return filepath.Join(parentDir, entry)
	}
}

// conflict reports why candidate cannot be used, or "" when it is free.
func conflict(registry []git.Worktree, candidate string) string {
	if wt := git.FindByPath(registry, candidate); wt != nil {
		if wt.Branch != "" {
			return fmt.Sprintf("already a worktree for branch %s", wt.Branch)
		}
		return "already a registered worktree"
	}

	if nonEmptyDir(candidate) {
		return "directory exists and is not empty"
	}
	return ""
}

// nonEmptyDir reports whether path exists as a directory with entries.
// An empty directory is reusable: git worktree add accepts it.
func nonEmptyDir(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.IsDir() {
		// A plain file at the path is occupied too.
		return err == nil
	}

	_, err = f.ReadDir(1)
	return err != io.EOF
}
