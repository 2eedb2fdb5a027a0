package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/nlowe/arbor/internal/git"
	"github.com/nlowe/arbor/internal/log"
	"github.com/nlowe/arbor/internal/output"
	"github.com/nlowe/arbor/internal/propagate"
	"github.com/nlowe/arbor/internal/setup"
	"github.com/nlowe/arbor/internal/ui"
	"github.com/nlowe/arbor/internal/worktree"
)

func newNewCmd() *cobra.Command {
	var (
		from     string
		dir      string
		copyPath bool
		noSetup  bool
	)

	cmd := &cobra.Command{
		Use:     "new <branch>",
		Short:   "Create a sibling worktree for a branch",
		Aliases: []string{"n"},
		GroupID: GroupCore,
		Args:    cobra.ExactArgs(1),
		Long: `Create a worktree for a branch next to the main checkout.

If the branch exists locally it is checked out; otherwise a new branch is
created from --from (default: the current HEAD). Build caches listed in
the cache pattern file are copied into the new worktree, then the
project's setup command is inferred and run.

The worktree path is printed to stdout so it can be captured:
  cd "$(arbor new feature-x)"`,
		Example: `  arbor new feature-x                  # New branch from the current HEAD
  arbor new feature-x --from v1.2.0    # New branch from a tag
  arbor new existing-branch            # Worktree for an existing branch
  arbor new feature-x --copy           # Also copy the path to the clipboard
  arbor new feature-x --no-setup       # Skip project setup`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l := log.FromContext(ctx)
			branch := args[0]

			topo, err := resolveTopology(ctx, dir)
			if err != nil {
				return err
			}

			registry, err := git.ListWorktrees(ctx, topo.MainRoot)
			if err != nil {
				return fmt.Errorf("list worktrees: %w", err)
			}
			if wt := git.FindByBranch(registry, branch); wt != nil {
				return fmt.Errorf("branch %q already has a worktree at %s", branch, wt.Path)
			}

			prompter := ui.NewTerminal()
			alloc := &worktree.Allocator{Prompter: prompter, Format: cfg.WorktreeFormat}
			path, err := alloc.Resolve(topo, registry, branch)
			if err != nil {
				return err
			}

			create := !git.BranchExists(ctx, topo.MainRoot, branch)
			if !create && from != "" {
				return fmt.Errorf("--from only applies to new branches; %q already exists", branch)
			}
			// An empty baseRef starts the branch at HEAD; running the
			// add from the invoking worktree makes that the HEAD the
			// user is looking at, not the main worktree's.
			if err := git.AddWorktree(ctx, topo.CurrentRoot, path, branch, create, from); err != nil {
				return fmt.Errorf("create worktree: %w", err)
			}
			switch {
			case create && from != "":
				l.Printf("Created worktree %s (new branch %s from %s)", path, branch, from)
			case create:
				l.Printf("Created worktree %s (new branch %s from HEAD)", path, branch)
			default:
				l.Printf("Created worktree %s (branch %s)", path, branch)
			}

			propagateCaches(ctx, topo.MainRoot, path, prompter)

			if !noSetup {
				actions := setup.Detect(path, setup.PhaseSetup)
				if err := setup.RunActions(ctx, path, actions); err != nil {
					l.Warnf("setup: %v", err)
				}
			}

			setup.RunHooks(ctx, setup.SelectHooks(cfg.Hooks, "new"), setup.Env{
				Path:    path,
				Branch:  branch,
				Main:    topo.MainRoot,
				Project: topo.ProjectName,
				Trigger: "new",
			}, path)

			output.FromContext(ctx).Println(path)
			if copyPath {
				if err := clipboard.WriteAll(path); err != nil {
					l.Warnf("copy to clipboard: %v", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Base ref for a new branch (default: the current HEAD)")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Parent directory for the worktree (default: config, then next to the main checkout)")
	cmd.Flags().BoolVarP(&copyPath, "copy", "c", false, "Copy the worktree path to the clipboard")
	cmd.Flags().BoolVar(&noSetup, "no-setup", false, "Skip project setup")

	return cmd
}

// propagateCaches seeds a fresh worktree with ignored build artifacts
// from the main checkout. Failures here never fail the command: the
// worktree is already usable, caches only make it faster.
func propagateCaches(ctx context.Context, mainRoot, path string, prompter ui.Prompter) {
	l := log.FromContext(ctx)

	patterns, err := propagate.LoadPatterns(filepath.Join(mainRoot, cfg.CacheFile))
	if err != nil {
		l.Warnf("read %s: %v", cfg.CacheFile, err)
		return
	}
	if len(patterns) == 0 {
		return
	}

	rels, err := propagate.Candidates(ctx, mainRoot, patterns)
	if err != nil {
		l.Warnf("scan caches: %v", err)
		return
	}
	if len(rels) == 0 {
		return
	}

	if prompter != nil {
		ok, err := prompter.Confirm(
			fmt.Sprintf("Copy %d cached entries into the new worktree?", len(rels)),
			summarizeEntries(rels, 10),
		)
		if err != nil || !ok {
			return
		}
	}

	var copied, skipped, failed int
	for _, res := range propagate.Copy(mainRoot, path, rels) {
		switch {
		case res.Err != nil:
			failed++
			l.Warnf("copy %s: %v", res.Rel, res.Err)
		case res.Copied:
			copied++
		case res.Skipped:
			skipped++
		}
	}
	l.Printf("Copied %d cached entries (%d skipped, %d failed)", copied, skipped, failed)
}

// summarizeEntries renders up to max relative paths, one per line,
// with a trailing "... and N more" when truncated.
func summarizeEntries(rels []string, max int) string {
	var b strings.Builder
	for i, rel := range rels {
		if i == max {
			fmt.Fprintf(&b, "... and %d more", len(rels)-max)
			break
		}
		b.WriteString(rel)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
