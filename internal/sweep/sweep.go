// Package sweep batches worktree archival across a whole repository.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nlowe/arbor/internal/archive"
	"github.com/nlowe/arbor/internal/git"
	"github.com/nlowe/arbor/internal/ui"
)

// Git is the subset of git operations the sweep needs on top of the
// archive engine's.
type Git interface {
	archive.Git
	ListWorktrees(ctx context.Context, repoRoot string) ([]git.Worktree, error)
	FetchAll(ctx context.Context, repoRoot string) error
}

// Candidate is a worktree eligible for cleaning: non-main,
// non-current, on a branch with a configured upstream.
type Candidate struct {
	Worktree git.Worktree
	Upstream string
	Dirty    bool
}

// Report aggregates one sweep's results.
type Report struct {
	Archived []archive.Outcome
	Skipped  []archive.Outcome
	// Locked worktrees are reported, never silently dropped.
	Locked []git.Worktree
	// NoUpstream worktrees are excluded from cleaning entirely:
	// without an upstream there is no pushed-state signal.
	NoUpstream []git.Worktree
	Cancelled  bool
}

// Sweeper classifies and batch-archives a repository's worktrees.
type Sweeper struct {
	Git      Git
	Engine   *archive.Engine
	Prompter ui.Prompter

	// FetchTimeout bounds the remote refresh. A timeout or failure is
	// fatal for the whole sweep, since pushed status would otherwise
	// be judged against stale tracking data.
	FetchTimeout time.Duration
}

// Run performs the sweep. workDir is the caller's current working
// directory; the worktree containing it is excluded.
func (s *Sweeper) Run(ctx context.Context, topo git.Topology, defaultBranch, workDir string) (Report, error) {
	if err := s.refreshRemotes(ctx, topo.MainRoot); err != nil {
		return Report{}, err
	}

	worktrees, err := s.Git.ListWorktrees(ctx, topo.MainRoot)
	if err != nil {
		return Report{}, err
	}

	report := Report{}
	var candidates []Candidate
	for _, wt := range worktrees {
		if topo.IsMain(wt.Path) || wt.Bare {
			continue
		}
		if workDir != "" && git.ContainsPath(wt.Path, workDir) {
			continue
		}
		if wt.Detached || wt.Branch == "" {
			continue
		}
		if wt.Locked {
			report.Locked = append(report.Locked, wt)
			continue
		}

		upstream := s.Git.UpstreamBranch(ctx, topo.MainRoot, wt.Branch)
		if upstream == "" {
			report.NoUpstream = append(report.NoUpstream, wt)
			continue
		}

		candidates = append(candidates, Candidate{
			Worktree: wt,
			Upstream: upstream,
			Dirty:    s.Git.Status(ctx, wt.Path) == git.Dirty,
		})
	}

	if len(candidates) == 0 {
		return report, nil
	}

	policy, err := s.choosePolicy(candidates)
	if err != nil {
		if errors.Is(err, ui.ErrCancelled) {
			report.Cancelled = true
			return report, nil
		}
		return report, err
	}

	for _, c := range candidates {
		outcome, err := s.Engine.Archive(ctx, archive.Request{
			Topology:      topo,
			Branch:        c.Worktree.Branch,
			Worktree:      &c.Worktree,
			Policy:        policy,
			DefaultBranch: defaultBranch,
			WorkDir:       workDir,
		})
		if err != nil {
			return report, err
		}
		if outcome.Removed {
			report.Archived = append(report.Archived, outcome)
		} else {
			report.Skipped = append(report.Skipped, outcome)
		}
	}

	return report, nil
}

// choosePolicy picks one batch policy applied uniformly to every
// candidate. When any candidate is dirty the user chooses once; when
// none are, a single removal confirmation suffices and the implicit
// policy is stash (a no-op on clean worktrees).
func (s *Sweeper) choosePolicy(candidates []Candidate) (archive.Policy, error) {
	dirty := 0
	for _, c := range candidates {
		if c.Dirty {
			dirty++
		}
	}

	if s.Prompter == nil {
		if dirty > 0 {
			// Safe default without a UI: keep dirty work, clean the rest.
			return archive.PolicySkip, nil
		}
		return archive.PolicyStash, nil
	}

	if dirty == 0 {
		ok, err := s.Prompter.Confirm(
			fmt.Sprintf("Archive %d worktree(s)?", len(candidates)),
			"All candidates are clean and have upstreams.",
		)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", ui.ErrCancelled
		}
		return archive.PolicyStash, nil
	}

	idx, err := s.Prompter.Select(
		fmt.Sprintf("%d of %d worktree(s) have uncommitted changes", dirty, len(candidates)),
		[]string{"Skip dirty worktrees", "Stash all changes", "Discard all changes (force)", "Cancel"},
	)
	if err != nil {
		return "", err
	}
	switch idx {
	case 0:
		return archive.PolicySkip, nil
	case 1:
		return archive.PolicyStash, nil
	case 2:
		return archive.PolicyForce, nil
	default:
		return "", ui.ErrCancelled
	}
}

func (s *Sweeper) refreshRemotes(ctx context.Context, repoRoot string) error {
	timeout := s.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.Git.FetchAll(fetchCtx, repoRoot); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("remote fetch timed out after %s; pushed status would be stale, aborting clean", timeout)
		}
		return fmt.Errorf("remote fetch failed: %w", err)
	}
	return nil
}
