// Package archive decides whether a worktree can be removed and
// whether its branch is safe to delete afterwards.
package archive

import (
	"context"
	"fmt"

	"github.com/nlowe/arbor/internal/git"
	"github.com/nlowe/arbor/internal/ui"
)

// Policy controls how a dirty worktree is handled.
type Policy string

const (
	// PolicySkip leaves dirty worktrees alone.
	PolicySkip Policy = "skip"
	// PolicyStash stashes uncommitted work before removal.
	PolicyStash Policy = "stash"
	// PolicyForce removes the worktree without stashing.
	PolicyForce Policy = "force"
	// PolicyPrompt asks the user to choose stash, force or cancel.
	PolicyPrompt Policy = "prompt"
)

// ParsePolicy validates a policy string.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicySkip, PolicyStash, PolicyForce, PolicyPrompt:
		return Policy(s), nil
	}
	return "", fmt.Errorf("invalid policy %q (want skip, stash, force or prompt)", s)
}

// SkipReason explains why an archive attempt did not remove a worktree.
type SkipReason string

const (
	SkipNone         SkipReason = ""
	SkipNoWorktree   SkipReason = "no-worktree"
	SkipMainWorktree SkipReason = "main-worktree"
	SkipLocked       SkipReason = "locked"
	SkipCurrentCwd   SkipReason = "current-cwd"
	SkipDirty        SkipReason = "dirty"
	SkipCancelled    SkipReason = "cancelled"
)

// Outcome reports what one archive attempt did. Safety skips are
// outcomes, not errors; only external-tool failures are errors.
type Outcome struct {
	Branch        string
	WorktreePath  string
	Removed       bool
	BranchDeleted bool
	Skipped       SkipReason
	LockReason    string // set when Skipped == SkipLocked
	StashHandle   string // content hash of the stash pushed, if any
}

// Git is the subset of git operations the engine needs.
type Git interface {
	Status(ctx context.Context, path string) git.DirtyState
	StashPush(ctx context.Context, path, message string) (string, error)
	RemoveWorktree(ctx context.Context, repoRoot, path string, force bool) error
	UpstreamBranch(ctx context.Context, repoRoot, branch string) string
	AheadBehind(ctx context.Context, repoRoot, local, upstream string) (int, int, error)
	DeleteBranch(ctx context.Context, repoRoot, branch string, force bool) error
}

// Engine archives worktrees.
type Engine struct {
	Git Git
	// Prompter is the interactive capability. When nil, every decision
	// that would prompt falls back to a safe default or an error,
	// never a silent destructive action.
	Prompter ui.Prompter
}

// Request describes one archive attempt.
type Request struct {
	Topology      git.Topology
	Branch        string
	Worktree      *git.Worktree // registry record for Branch, nil if none
	Policy        Policy
	DefaultBranch string
	WorkDir       string // the caller's current working directory
}

// Archive removes the worktree holding the requested branch and then
// attempts to delete the branch when that is judged safe.
//
// Branch deletion is best-effort and happens only after removal
// succeeded; a failed deletion still reports Removed true. The
// repository's default branch is never deleted.
func (e *Engine) Archive(ctx context.Context, req Request) (Outcome, error) {
	out := Outcome{Branch: req.Branch}

	wt := req.Worktree
	if wt == nil {
		out.Skipped = SkipNoWorktree
		return out, nil
	}
	out.WorktreePath = wt.Path

	switch {
	case req.Topology.IsMain(wt.Path):
		out.Skipped = SkipMainWorktree
		return out, nil
	case wt.Locked:
		out.Skipped = SkipLocked
		out.LockReason = wt.LockReason
		return out, nil
	case req.WorkDir != "" && git.ContainsPath(wt.Path, req.WorkDir):
		// Cannot remove the directory the process is standing in.
		out.Skipped = SkipCurrentCwd
		return out, nil
	}

	force := false
	if e.Git.Status(ctx, wt.Path) == git.Dirty {
		policy := req.Policy
		if policy == PolicyPrompt {
			chosen, err := e.promptDirtyPolicy(req.Branch)
			if err != nil {
				if err == ui.ErrCancelled {
					out.Skipped = SkipCancelled
					return out, nil
				}
				return out, err
			}
			policy = chosen
		}

		switch policy {
		case PolicySkip:
			out.Skipped = SkipDirty
			return out, nil
		case PolicyStash:
			handle, err := e.Git.StashPush(ctx, wt.Path, "arbor: archive "+req.Branch)
			if err != nil {
				return out, err
			}
			out.StashHandle = handle
		case PolicyForce:
			force = true
		}
	}

	// Removal failures are fatal, not skips.
	if err := e.Git.RemoveWorktree(ctx, req.Topology.MainRoot, wt.Path, force); err != nil {
		return out, err
	}
	out.Removed = true

	if wt.Detached || req.Branch == "" || req.Branch == req.DefaultBranch {
		return out, nil
	}

	out.BranchDeleted = e.deleteBranch(ctx, req)
	return out, nil
}

// promptDirtyPolicy asks how to handle a dirty worktree. Errors when
// no interactive capability is available: a dirty worktree must never
// be removed on a guess.
func (e *Engine) promptDirtyPolicy(branch string) (Policy, error) {
	if e.Prompter == nil {
		return "", fmt.Errorf("worktree for %s has uncommitted changes; use --policy skip, stash or force", branch)
	}

	idx, err := e.Prompter.Select(
		fmt.Sprintf("Worktree for %s has uncommitted changes", branch),
		[]string{"Stash changes", "Discard changes (force)", "Cancel"},
	)
	if err != nil {
		return "", err
	}
	switch idx {
	case 0:
		return PolicyStash, nil
	case 1:
		return PolicyForce, nil
	default:
		return "", ui.ErrCancelled
	}
}

// deleteBranch attempts to delete the branch after its worktree was
// removed. Every destructive escalation requires confirmation; without
// a prompter the branch is kept.
func (e *Engine) deleteBranch(ctx context.Context, req Request) bool {
	repoRoot := req.Topology.MainRoot
	branch := req.Branch

	upstream := e.Git.UpstreamBranch(ctx, repoRoot, branch)
	if upstream == "" {
		// No upstream means no signal that the work exists anywhere
		// else. Deletion only with explicit confirmation.
		return e.confirmForceDelete(ctx, req,
			fmt.Sprintf("Branch %s has no upstream; its commits may exist nowhere else.", branch))
	}

	ahead, _, err := e.Git.AheadBehind(ctx, repoRoot, branch, upstream)
	switch {
	case err != nil:
		// Conservative fallback: push state unknown, confirm first.
		return e.confirmForceDelete(ctx, req,
			fmt.Sprintf("Could not compare %s with %s: %v.", branch, upstream, err))
	case ahead > 0:
		return e.confirmForceDelete(ctx, req,
			fmt.Sprintf("Branch %s is %d commit(s) ahead of %s (unpushed work).", branch, ahead, upstream))
	}

	// Fully pushed (or behind): try the safe delete first. Git refuses
	// it when the branch is not merged into the current branch here;
	// escalate that refusal to an explicit force-delete confirmation.
	if err := e.Git.DeleteBranch(ctx, repoRoot, branch, false); err != nil {
		return e.confirmForceDelete(ctx, req,
			fmt.Sprintf("Safe delete of %s was refused: %v.", branch, err))
	}
	return true
}

func (e *Engine) confirmForceDelete(ctx context.Context, req Request, detail string) bool {
	if e.Prompter == nil {
		return false
	}

	ok, err := e.Prompter.Confirm(
		fmt.Sprintf("Force-delete branch %s?", req.Branch),
		detail,
	)
	if err != nil || !ok {
		// Cancelling here is non-destructive: the worktree is already
		// gone, the branch simply stays.
		return false
	}

	if err := e.Git.DeleteBranch(ctx, req.Topology.MainRoot, req.Branch, true); err != nil {
		e.Prompter.Notify(err.Error(), ui.Warn)
		return false
	}
	return true
}
