package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/nlowe/arbor/internal/archive"
	"github.com/nlowe/arbor/internal/git"
	"github.com/nlowe/arbor/internal/log"
	"github.com/nlowe/arbor/internal/setup"
	"github.com/nlowe/arbor/internal/sweep"
	"github.com/nlowe/arbor/internal/ui"
)

func newCleanCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:     "clean",
		Short:   "Archive every worktree whose branch is pushed",
		GroupID: GroupCore,
		Long: `Archive all worktrees at once.

Remotes are fetched first (bounded by --timeout) so pushed status is
judged against fresh tracking data; a failed or timed-out fetch aborts
the sweep. Worktrees without an upstream are left alone, as are locked
worktrees, the main worktree, and the one you are currently inside.

One dirty policy is chosen up front and applied to every candidate.
Non-interactive runs stash when everything is clean and otherwise skip
dirty worktrees.`,
		Example: `  arbor clean                # Sweep with the configured fetch timeout
  arbor clean --timeout 2m   # Allow a slow remote more time`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l := log.FromContext(ctx)

			topo, err := resolveTopology(ctx, "")
			if err != nil {
				return err
			}

			fetchTimeout := cfg.FetchTimeout.Duration
			if cmd.Flags().Changed("timeout") {
				fetchTimeout = timeout
			}

			prompter := ui.NewTerminal()
			sweeper := &sweep.Sweeper{
				Git:          git.Client{},
				Engine:       &archive.Engine{Git: git.Client{}, Prompter: prompter},
				Prompter:     prompter,
				FetchTimeout: fetchTimeout,
			}

			report, err := sweeper.Run(ctx, topo, git.DefaultBranch(ctx, topo.MainRoot), workDir)
			if err != nil {
				if errors.Is(err, ui.ErrCancelled) {
					return nil
				}
				return err
			}

			printReport(l, report)

			hooks := setup.SelectHooks(cfg.Hooks, "clean")
			for _, o := range report.Archived {
				setup.RunHooks(ctx, hooks, setup.Env{
					Path:    o.WorktreePath,
					Branch:  o.Branch,
					Main:    topo.MainRoot,
					Project: topo.ProjectName,
					Trigger: "clean",
				}, topo.MainRoot)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Remote fetch timeout (default: config)")

	return cmd
}

func printReport(l *log.Logger, report sweep.Report) {
	if report.Cancelled {
		l.Println("Cancelled")
		return
	}

	for _, o := range report.Archived {
		if o.StashHandle != "" {
			l.Printf("Archived %s (changes stashed: git stash apply %s)", o.Branch, o.StashHandle)
		} else {
			l.Printf("Archived %s", o.Branch)
		}
	}
	for _, o := range report.Skipped {
		l.Printf("Skipped %s (%s)", o.Branch, skipLabel(o))
	}
	for _, wt := range report.Locked {
		if wt.LockReason != "" {
			l.Printf("Skipped %s: locked (%s)", describeWorktree(wt), wt.LockReason)
		} else {
			l.Printf("Skipped %s: locked", describeWorktree(wt))
		}
	}
	for _, wt := range report.NoUpstream {
		l.Printf("Skipped %s: no upstream, pushed status unknown", describeWorktree(wt))
	}

	if len(report.Archived) == 0 && len(report.Skipped) == 0 &&
		len(report.Locked) == 0 && len(report.NoUpstream) == 0 {
		l.Println("Nothing to clean")
		return
	}
	l.Printf("%d archived, %d skipped", len(report.Archived),
		len(report.Skipped)+len(report.Locked)+len(report.NoUpstream))
}

func skipLabel(o archive.Outcome) string {
	switch o.Skipped {
	case archive.SkipDirty:
		return "uncommitted changes"
	case archive.SkipCancelled:
		return "cancelled"
	default:
		return string(o.Skipped)
	}
}

func describeWorktree(wt git.Worktree) string {
	if wt.Branch != "" {
		return wt.Branch
	}
	return wt.Path
}
