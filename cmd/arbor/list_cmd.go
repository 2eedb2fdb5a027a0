package main

import (
	"context"
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/spf13/cobra"

	"github.com/nlowe/arbor/internal/git"
	"github.com/nlowe/arbor/internal/output"
	"github.com/nlowe/arbor/internal/ui/styles"
)

// ListEntry is one worktree in list output.
type ListEntry struct {
	Path       string `json:"path"`
	Branch     string `json:"branch,omitempty"`
	Head       string `json:"head,omitempty"`
	Detached   bool   `json:"detached,omitempty"`
	Locked     bool   `json:"locked,omitempty"`
	LockReason string `json:"lock_reason,omitempty"`
	Prunable   bool   `json:"prunable,omitempty"`
	Dirty      bool   `json:"dirty"`
	Main       bool   `json:"main"`
	Current    bool   `json:"current"`
}

func newListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List the repository's worktrees",
		Aliases: []string{"ls"},
		GroupID: GroupCore,
		Long: `List every worktree of the current repository.

The main worktree and the one you are inside are marked, and dirty or
locked worktrees are flagged.`,
		Example: `  arbor list          # Table output
  arbor list --json   # JSON for scripting`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			topo, err := resolveTopology(ctx, "")
			if err != nil {
				return err
			}
			registry, err := git.ListWorktrees(ctx, topo.MainRoot)
			if err != nil {
				return fmt.Errorf("list worktrees: %w", err)
			}

			entries := collectEntries(ctx, topo, registry)

			out := output.FromContext(ctx)
			if asJSON {
				return out.JSON(entries)
			}
			printTable(out, entries)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func collectEntries(ctx context.Context, topo git.Topology, registry []git.Worktree) []ListEntry {
	var entries []ListEntry
	for _, wt := range registry {
		if wt.Bare {
			continue
		}
		entries = append(entries, ListEntry{
			Path:       wt.Path,
			Branch:     wt.Branch,
			Head:       shortHead(wt.Head),
			Detached:   wt.Detached,
			Locked:     wt.Locked,
			LockReason: wt.LockReason,
			Prunable:   wt.Prunable,
			Dirty:      git.IsDirty(ctx, wt.Path),
			Main:       topo.IsMain(wt.Path),
			Current:    git.ContainsPath(wt.Path, workDir),
		})
	}
	return entries
}

func printTable(out *output.Printer, entries []ListEntry) {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		branch := e.Branch
		if e.Detached {
			branch = "(detached)"
		}

		var marks []string
		if e.Main {
			marks = append(marks, "main")
		}
		if e.Current {
			marks = append(marks, "current")
		}
		if e.Locked {
			if e.LockReason != "" {
				marks = append(marks, "locked: "+e.LockReason)
			} else {
				marks = append(marks, "locked")
			}
		}
		if e.Prunable {
			marks = append(marks, "prunable")
		}

		state := "clean"
		if e.Dirty {
			state = "dirty"
		}

		rows = append(rows, []string{branch, e.Head, state, e.Path, strings.Join(marks, ", ")})
	}

	t := table.New().
		Headers("BRANCH", "HEAD", "STATE", "PATH", "").
		Rows(rows...).
		Border(lipgloss.Border{}).
		BorderTop(false).BorderBottom(false).BorderLeft(false).BorderRight(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingRight(2)
			switch {
			case row == table.HeaderRow:
				return s.Bold(true)
			case col == 2 && rows[row][col] == "dirty":
				return s.Foreground(styles.Warning)
			case col == 4:
				return s.Foreground(styles.Muted)
			}
			return s
		})

	out.Println(t.String())
}

// shortHead abbreviates a commit hash for display.
func shortHead(head string) string {
	if len(head) > 8 {
		return head[:8]
	}
	return head
}
