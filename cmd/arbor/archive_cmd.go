package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nlowe/arbor/internal/archive"
	"github.com/nlowe/arbor/internal/git"
	"github.com/nlowe/arbor/internal/log"
	"github.com/nlowe/arbor/internal/setup"
	"github.com/nlowe/arbor/internal/ui"
)

func newArchiveCmd() *cobra.Command {
	var policyFlag string

	cmd := &cobra.Command{
		Use:     "archive [<branch>]",
		Short:   "Remove a worktree and delete its branch when safe",
		Aliases: []string{"a"},
		GroupID: GroupCore,
		Args:    cobra.MaximumNArgs(1),
		Long: `Archive the worktree for a branch.

The worktree is removed and, when every commit is accounted for upstream,
the local branch is deleted too. Unpushed branches are only deleted after
confirmation. Dirty worktrees are handled per the policy: skip leaves the
worktree alone, stash saves the changes to a recoverable stash first,
force discards them, and prompt asks.

Without a branch argument an interactive picker lists the archivable
worktrees.

The main worktree, locked worktrees, and the worktree you are currently
inside are never archived.`,
		Example: `  arbor archive feature-x                 # Archive one branch
  arbor archive                           # Pick a worktree interactively
  arbor archive feature-x --policy stash  # Stash uncommitted changes first
  arbor archive feature-x --policy skip   # Leave dirty worktrees alone`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l := log.FromContext(ctx)

			topo, err := resolveTopology(ctx, "")
			if err != nil {
				return err
			}
			registry, err := git.ListWorktrees(ctx, topo.MainRoot)
			if err != nil {
				return fmt.Errorf("list worktrees: %w", err)
			}

			prompter := ui.NewTerminal()

			var branch string
			if len(args) == 1 {
				branch = args[0]
			} else {
				branch, err = pickBranch(topo, registry, prompter)
				if err != nil {
					if errors.Is(err, ui.ErrCancelled) {
						return nil
					}
					return err
				}
			}

			policy := cfg.DirtyPolicy
			if policyFlag != "" {
				policy = policyFlag
			}
			parsed, err := archive.ParsePolicy(policy)
			if err != nil {
				return err
			}

			wt := git.FindByBranch(registry, branch)

			// Teardown runs before removal so it can still see the tree.
			// The same exclusions the engine applies gate it, so a
			// worktree that will be refused is not torn down.
			if wt != nil && !topo.IsMain(wt.Path) && !wt.Locked && !git.ContainsPath(wt.Path, workDir) {
				actions := setup.Detect(wt.Path, setup.PhaseArchive)
				if err := setup.RunActions(ctx, wt.Path, actions); err != nil {
					l.Warnf("teardown: %v", err)
				}
			}

			engine := &archive.Engine{Git: git.Client{}, Prompter: prompter}
			outcome, err := engine.Archive(ctx, archive.Request{
				Topology:      topo,
				Branch:        branch,
				Worktree:      wt,
				Policy:        parsed,
				DefaultBranch: git.DefaultBranch(ctx, topo.MainRoot),
				WorkDir:       workDir,
			})
			if err != nil {
				return err
			}
			reportOutcome(l, outcome)

			if outcome.Removed {
				setup.RunHooks(ctx, setup.SelectHooks(cfg.Hooks, "archive"), setup.Env{
					Path:    outcome.WorktreePath,
					Branch:  branch,
					Main:    topo.MainRoot,
					Project: topo.ProjectName,
					Trigger: "archive",
				}, topo.MainRoot)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&policyFlag, "policy", "p", "", "Dirty worktree policy: skip, stash, force or prompt (default: config)")

	return cmd
}

// pickBranch runs the fuzzy picker over archivable worktrees.
func pickBranch(topo git.Topology, registry []git.Worktree, prompter ui.Prompter) (string, error) {
	if prompter == nil {
		return "", fmt.Errorf("branch argument required in non-interactive mode")
	}

	var options []ui.PickOption
	var branches []string
	for _, wt := range registry {
		if wt.Bare || wt.Detached || wt.Branch == "" {
			continue
		}
		if topo.IsMain(wt.Path) || git.ContainsPath(wt.Path, workDir) {
			continue
		}
		detail := wt.Path
		if wt.Locked {
			detail += " (locked)"
		}
		options = append(options, ui.PickOption{Label: wt.Branch, Detail: detail})
		branches = append(branches, wt.Branch)
	}
	if len(options) == 0 {
		return "", fmt.Errorf("no archivable worktrees")
	}

	i, err := ui.Pick("Archive which worktree?", options)
	if err != nil {
		return "", err
	}
	return branches[i], nil
}

// reportOutcome prints what one archive attempt did.
func reportOutcome(l *log.Logger, o archive.Outcome) {
	switch o.Skipped {
	case archive.SkipNone:
	case archive.SkipNoWorktree:
		l.Printf("Skipped %s: branch has no worktree", o.Branch)
		return
	case archive.SkipMainWorktree:
		l.Printf("Skipped %s: the main worktree is never archived", o.Branch)
		return
	case archive.SkipLocked:
		if o.LockReason != "" {
			l.Printf("Skipped %s: worktree is locked (%s)", o.Branch, o.LockReason)
		} else {
			l.Printf("Skipped %s: worktree is locked", o.Branch)
		}
		return
	case archive.SkipCurrentCwd:
		l.Printf("Skipped %s: you are currently inside this worktree", o.Branch)
		return
	case archive.SkipDirty:
		l.Printf("Skipped %s: worktree has uncommitted changes", o.Branch)
		return
	case archive.SkipCancelled:
		l.Printf("Skipped %s: cancelled", o.Branch)
		return
	default:
		l.Printf("Skipped %s (%s)", o.Branch, o.Skipped)
		return
	}

	if o.StashHandle != "" {
		l.Printf("Stashed uncommitted changes (restore with: git stash apply %s)", o.StashHandle)
	}
	if o.BranchDeleted {
		l.Printf("Archived %s: removed %s and deleted the branch", o.Branch, o.WorktreePath)
	} else {
		l.Printf("Archived %s: removed %s, branch kept", o.Branch, o.WorktreePath)
	}
}
