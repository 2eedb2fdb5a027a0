package sweep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nlowe/arbor/internal/archive"
	"github.com/nlowe/arbor/internal/git"
	"github.com/nlowe/arbor/internal/ui"
)

// fakeGit scripts the sweep's git dependency.
type fakeGit struct {
	worktrees []git.Worktree
	upstreams map[string]string
	dirty     map[string]bool
	ahead     map[string]int

	fetchErr   error
	fetchDelay time.Duration

	removed []string
	deleted []string
}

func (f *fakeGit) Status(_ context.Context, path string) git.DirtyState {
	if f.dirty[path] {
		return git.Dirty
	}
	return git.Clean
}

func (f *fakeGit) StashPush(_ context.Context, _, _ string) (string, error) {
	return "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef", nil
}

func (f *fakeGit) RemoveWorktree(_ context.Context, _, path string, _ bool) error {
	f.removed = append(f.removed, path)
	return nil
}

func (f *fakeGit) UpstreamBranch(_ context.Context, _, branch string) string {
	return f.upstreams[branch]
}

func (f *fakeGit) AheadBehind(_ context.Context, _, branch, _ string) (int, int, error) {
	return f.ahead[branch], 0, nil
}

func (f *fakeGit) DeleteBranch(_ context.Context, _, branch string, _ bool) error {
	f.deleted = append(f.deleted, branch)
	return nil
}

func (f *fakeGit) ListWorktrees(_ context.Context, _ string) ([]git.Worktree, error) {
	return f.worktrees, nil
}

func (f *fakeGit) FetchAll(ctx context.Context, _ string) error {
	if f.fetchDelay > 0 {
		select {
		case <-time.After(f.fetchDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.fetchErr
}

// confirmAllPrompter answers yes to every confirmation.
type confirmAllPrompter struct {
	selectAnswer int
}

func (p *confirmAllPrompter) Notify(string, ui.Level) {}

func (p *confirmAllPrompter) Confirm(string, string) (bool, error) { return true, nil }

func (p *confirmAllPrompter) Select(string, []string) (int, error) {
	return p.selectAnswer, nil
}

func (p *confirmAllPrompter) Input(_, def string) (string, error) { return def, nil }

func testTopology() git.Topology {
	return git.Topology{
		MainRoot:    "/repo/main",
		ProjectName: "main",
		ParentDir:   "/repo",
	}
}

func newSweeper(fg *fakeGit, p ui.Prompter) *Sweeper {
	return &Sweeper{
		Git:          fg,
		Engine:       &archive.Engine{Git: fg, Prompter: p},
		Prompter:     p,
		FetchTimeout: time.Second,
	}
}

func TestRunArchivesPushedWorktrees(t *testing.T) {
	t.Parallel()

	fg := &fakeGit{
		worktrees: []git.Worktree{
			{Path: "/repo/main", Branch: "main"},
			{Path: "/repo/main-a", Branch: "a"},
			{Path: "/repo/main-b", Branch: "b"},
			{Path: "/repo/main-c", Branch: "c"},
		},
		upstreams: map[string]string{
			"a": "origin/a",
			"b": "origin/b",
			"c": "origin/c",
		},
	}
	p := &confirmAllPrompter{}
	s := newSweeper(fg, p)

	report, err := s.Run(context.Background(), testTopology(), "main", "/elsewhere")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(report.Archived) != 3 {
		t.Fatalf("archived %d, want 3", len(report.Archived))
	}
	if len(fg.removed) != 3 {
		t.Errorf("removed %d worktrees, want 3", len(fg.removed))
	}
}

func TestRunSkipDirtyPolicy(t *testing.T) {
	t.Parallel()

	fg := &fakeGit{
		worktrees: []git.Worktree{
			{Path: "/repo/main", Branch: "main"},
			{Path: "/repo/main-a", Branch: "a"},
			{Path: "/repo/main-b", Branch: "b"},
			{Path: "/repo/main-c", Branch: "c"},
		},
		upstreams: map[string]string{
			"a": "origin/a",
			"b": "origin/b",
			"c": "origin/c",
		},
		dirty: map[string]bool{"/repo/main-b": true},
	}
	p := &confirmAllPrompter{selectAnswer: 0} // "Skip dirty worktrees"
	s := newSweeper(fg, p)

	report, err := s.Run(context.Background(), testTopology(), "main", "/elsewhere")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(report.Archived) != 2 {
		t.Errorf("archived %d, want 2", len(report.Archived))
	}
	if len(report.Skipped) != 1 || report.Skipped[0].Skipped != archive.SkipDirty {
		t.Errorf("skipped = %+v, want one dirty skip", report.Skipped)
	}
}

func TestRunExcludesMainCurrentLockedNoUpstream(t *testing.T) {
	t.Parallel()

	fg := &fakeGit{
		worktrees: []git.Worktree{
			{Path: "/repo/main", Branch: "main"},
			{Path: "/repo/main-current", Branch: "current-work"},
			{Path: "/repo/main-locked", Branch: "locked-work", Locked: true, LockReason: "CI"},
			{Path: "/repo/main-local", Branch: "local-only"},
			{Path: "/repo/main-detached", Detached: true},
			{Path: "/repo/main-pushed", Branch: "pushed"},
		},
		upstreams: map[string]string{"pushed": "origin/pushed"},
	}
	p := &confirmAllPrompter{}
	s := newSweeper(fg, p)

	report, err := s.Run(context.Background(), testTopology(), "main", "/repo/main-current/sub")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(report.Archived) != 1 || report.Archived[0].Branch != "pushed" {
		t.Errorf("archived = %+v, want only pushed", report.Archived)
	}
	if len(report.Locked) != 1 || report.Locked[0].Branch != "locked-work" {
		t.Errorf("locked = %+v, want locked-work", report.Locked)
	}
	if len(report.NoUpstream) != 1 || report.NoUpstream[0].Branch != "local-only" {
		t.Errorf("no-upstream = %+v, want local-only", report.NoUpstream)
	}
}

func TestRunFetchFailureIsFatal(t *testing.T) {
	t.Parallel()

	fg := &fakeGit{fetchErr: errors.New("could not resolve host")}
	s := newSweeper(fg, &confirmAllPrompter{})

	_, err := s.Run(context.Background(), testTopology(), "main", "")
	if err == nil {
		t.Fatal("a failed fetch must abort the sweep")
	}
	if len(fg.removed) != 0 {
		t.Error("nothing may be removed after a failed fetch")
	}
}

func TestRunFetchTimeoutIsFatal(t *testing.T) {
	t.Parallel()

	fg := &fakeGit{
		fetchDelay: time.Second,
		worktrees:  []git.Worktree{{Path: "/repo/main", Branch: "main"}},
	}
	s := newSweeper(fg, &confirmAllPrompter{})
	s.FetchTimeout = 20 * time.Millisecond

	_, err := s.Run(context.Background(), testTopology(), "main", "")
	if err == nil {
		t.Fatal("a timed-out fetch must abort the sweep")
	}
}

func TestRunNothingToClean(t *testing.T) {
	t.Parallel()

	fg := &fakeGit{
		worktrees: []git.Worktree{{Path: "/repo/main", Branch: "main"}},
	}
	s := newSweeper(fg, &confirmAllPrompter{})

	report, err := s.Run(context.Background(), testTopology(), "main", "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(report.Archived) != 0 || len(report.Skipped) != 0 {
		t.Errorf("report = %+v, want empty", report)
	}
}

func TestRunNonInteractiveDefaults(t *testing.T) {
	t.Parallel()

	t.Run("all clean stashes implicitly", func(t *testing.T) {
		t.Parallel()
		fg := &fakeGit{
			worktrees: []git.Worktree{
				{Path: "/repo/main", Branch: "main"},
				{Path: "/repo/main-a", Branch: "a"},
			},
			upstreams: map[string]string{"a": "origin/a"},
		}
		s := newSweeper(fg, nil)

		report, err := s.Run(context.Background(), testTopology(), "main", "")
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if len(report.Archived) != 1 {
			t.Errorf("archived %d, want 1", len(report.Archived))
		}
	})

	t.Run("dirty candidates are skipped", func(t *testing.T) {
		t.Parallel()
		fg := &fakeGit{
			worktrees: []git.Worktree{
				{Path: "/repo/main", Branch: "main"},
				{Path: "/repo/main-a", Branch: "a"},
				{Path: "/repo/main-b", Branch: "b"},
			},
			upstreams: map[string]string{"a": "origin/a", "b": "origin/b"},
			dirty:     map[string]bool{"/repo/main-a": true},
		}
		s := newSweeper(fg, nil)

		report, err := s.Run(context.Background(), testTopology(), "main", "")
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if len(report.Archived) != 1 || report.Archived[0].Branch != "b" {
			t.Errorf("archived = %+v, want only b", report.Archived)
		}
		if len(report.Skipped) != 1 || report.Skipped[0].Skipped != archive.SkipDirty {
			t.Errorf("skipped = %+v, want the dirty one", report.Skipped)
		}
	})
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	fg := &fakeGit{
		worktrees: []git.Worktree{
			{Path: "/repo/main", Branch: "main"},
			{Path: "/repo/main-a", Branch: "a"},
		},
		upstreams: map[string]string{"a": "origin/a"},
		dirty:     map[string]bool{"/repo/main-a": true},
	}
	p := &confirmAllPrompter{selectAnswer: 3} // "Cancel"
	s := newSweeper(fg, p)

	report, err := s.Run(context.Background(), testTopology(), "main", "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !report.Cancelled {
		t.Error("report should be marked cancelled")
	}
	if len(fg.removed) != 0 {
		t.Error("nothing may be removed after cancelling")
	}
}
