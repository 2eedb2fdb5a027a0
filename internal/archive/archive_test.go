package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/nlowe/arbor/internal/git"
	"github.com/nlowe/arbor/internal/ui"
)

// fakeGit scripts the engine's git dependency.
type fakeGit struct {
	dirty     map[string]bool // by worktree path
	upstreams map[string]string
	ahead     map[string]int
	aheadErr  error

	stashErr      error
	removeErr     error
	safeDeleteErr error
	forceDelErr   error

	stashed []string // worktree paths stashed
	removed []string
	deleted []string // "<branch>" or "<branch> (force)"
}

func (f *fakeGit) Status(_ context.Context, path string) git.DirtyState {
	if f.dirty[path] {
		return git.Dirty
	}
	return git.Clean
}

func (f *fakeGit) StashPush(_ context.Context, path, _ string) (string, error) {
	if f.stashErr != nil {
		return "", f.stashErr
	}
	f.stashed = append(f.stashed, path)
	return "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef", nil
}

func (f *fakeGit) RemoveWorktree(_ context.Context, _, path string, _ bool) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, path)
	return nil
}

func (f *fakeGit) UpstreamBranch(_ context.Context, _, branch string) string {
	return f.upstreams[branch]
}

func (f *fakeGit) AheadBehind(_ context.Context, _, branch, _ string) (int, int, error) {
	if f.aheadErr != nil {
		return 0, 0, f.aheadErr
	}
	return f.ahead[branch], 0, nil
}

func (f *fakeGit) DeleteBranch(_ context.Context, _, branch string, force bool) error {
	if force {
		if f.forceDelErr != nil {
			return f.forceDelErr
		}
		f.deleted = append(f.deleted, branch+" (force)")
		return nil
	}
	if f.safeDeleteErr != nil {
		return f.safeDeleteErr
	}
	f.deleted = append(f.deleted, branch)
	return nil
}

// scriptPrompter replays confirm and select answers.
type scriptPrompter struct {
	confirms []bool
	selects  []int
	warnings []string
}

func (p *scriptPrompter) Notify(text string, _ ui.Level) {
	p.warnings = append(p.warnings, text)
}

func (p *scriptPrompter) Confirm(_, _ string) (bool, error) {
	if len(p.confirms) == 0 {
		return false, ui.ErrCancelled
	}
	next := p.confirms[0]
	p.confirms = p.confirms[1:]
	return next, nil
}

func (p *scriptPrompter) Select(_ string, _ []string) (int, error) {
	if len(p.selects) == 0 {
		return -1, ui.ErrCancelled
	}
	next := p.selects[0]
	p.selects = p.selects[1:]
	return next, nil
}

func (p *scriptPrompter) Input(_, def string) (string, error) { return def, nil }

func testRequest(wt *git.Worktree) Request {
	return Request{
		Topology: git.Topology{
			MainRoot:    "/repo/main",
			ProjectName: "main",
			ParentDir:   "/repo",
		},
		Branch:        "feature",
		Worktree:      wt,
		Policy:        PolicySkip,
		DefaultBranch: "main",
		WorkDir:       "/somewhere/else",
	}
}

func featureWorktree() *git.Worktree {
	return &git.Worktree{Path: "/repo/main-feature", Branch: "feature"}
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"skip", "stash", "force", "prompt"} {
		if _, err := ParsePolicy(s); err != nil {
			t.Errorf("ParsePolicy(%q) failed: %v", s, err)
		}
	}
	if _, err := ParsePolicy("yolo"); err == nil {
		t.Error("ParsePolicy(yolo) should fail")
	}
}

func TestArchiveNoWorktree(t *testing.T) {
	t.Parallel()

	e := &Engine{Git: &fakeGit{}}
	out, err := e.Archive(context.Background(), testRequest(nil))
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if out.Skipped != SkipNoWorktree || out.Removed {
		t.Errorf("outcome = %+v, want no-worktree skip", out)
	}
}

func TestArchiveRefusesMainWorktree(t *testing.T) {
	t.Parallel()

	fg := &fakeGit{}
	e := &Engine{Git: fg}

	req := testRequest(&git.Worktree{Path: "/repo/main", Branch: "main"})
	out, err := e.Archive(context.Background(), req)
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if out.Skipped != SkipMainWorktree {
		t.Errorf("Skipped = %q, want main-worktree", out.Skipped)
	}
	if len(fg.removed) != 0 {
		t.Error("nothing should have been removed")
	}
}

func TestArchiveRefusesLockedWorktree(t *testing.T) {
	t.Parallel()

	e := &Engine{Git: &fakeGit{}}
	wt := featureWorktree()
	wt.Locked = true
	wt.LockReason = "CI in progress"

	out, err := e.Archive(context.Background(), testRequest(wt))
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if out.Skipped != SkipLocked || out.LockReason != "CI in progress" {
		t.Errorf("outcome = %+v, want locked skip with reason", out)
	}
}

func TestArchiveRefusesCurrentWorktree(t *testing.T) {
	t.Parallel()

	e := &Engine{Git: &fakeGit{}}
	req := testRequest(featureWorktree())
	req.WorkDir = "/repo/main-feature/sub/dir"

	out, err := e.Archive(context.Background(), req)
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if out.Skipped != SkipCurrentCwd {
		t.Errorf("Skipped = %q, want current-cwd", out.Skipped)
	}
}

func TestArchiveCleanPushedDeletesSafely(t *testing.T) {
	t.Parallel()

	fg := &fakeGit{
		upstreams: map[string]string{"feature": "origin/feature"},
		ahead:     map[string]int{"feature": 0},
	}
	e := &Engine{Git: fg}

	out, err := e.Archive(context.Background(), testRequest(featureWorktree()))
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if !out.Removed || !out.BranchDeleted {
		t.Errorf("outcome = %+v, want removed and branch deleted", out)
	}
	if len(fg.deleted) != 1 || fg.deleted[0] != "feature" {
		t.Errorf("deleted = %v, want a single safe delete", fg.deleted)
	}
}

func TestArchiveDirtyPolicySkip(t *testing.T) {
	t.Parallel()

	fg := &fakeGit{dirty: map[string]bool{"/repo/main-feature": true}}
	e := &Engine{Git: fg}

	out, err := e.Archive(context.Background(), testRequest(featureWorktree()))
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if out.Skipped != SkipDirty || out.Removed {
		t.Errorf("outcome = %+v, want dirty skip", out)
	}
	if len(fg.stashed) != 0 || len(fg.removed) != 0 {
		t.Error("skip must not stash or remove")
	}
}

func TestArchiveDirtyPolicyStash(t *testing.T) {
	t.Parallel()

	fg := &fakeGit{
		dirty:     map[string]bool{"/repo/main-feature": true},
		upstreams: map[string]string{"feature": "origin/feature"},
	}
	e := &Engine{Git: fg}

	req := testRequest(featureWorktree())
	req.Policy = PolicyStash

	out, err := e.Archive(context.Background(), req)
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if !out.Removed {
		t.Error("worktree should be removed after stashing")
	}
	if out.StashHandle == "" {
		t.Error("stash handle should be recorded")
	}
	if len(fg.stashed) != 1 {
		t.Errorf("stashed = %v, want one stash", fg.stashed)
	}
}

func TestArchiveDirtyPolicyPromptNonInteractive(t *testing.T) {
	t.Parallel()

	fg := &fakeGit{dirty: map[string]bool{"/repo/main-feature": true}}
	e := &Engine{Git: fg}

	req := testRequest(featureWorktree())
	req.Policy = PolicyPrompt

	_, err := e.Archive(context.Background(), req)
	if err == nil {
		t.Fatal("prompt policy without a prompter must error, never guess")
	}
	if !strings.Contains(err.Error(), "uncommitted changes") {
		t.Errorf("err = %v, want a dirty-worktree explanation", err)
	}
	if len(fg.removed) != 0 {
		t.Error("nothing should have been removed")
	}
}

func TestArchiveDirtyPolicyPromptChoosesStash(t *testing.T) {
	t.Parallel()

	fg := &fakeGit{
		dirty:     map[string]bool{"/repo/main-feature": true},
		upstreams: map[string]string{"feature": "origin/feature"},
	}
	p := &scriptPrompter{selects: []int{0}} // choose "Stash changes"
	e := &Engine{Git: fg, Prompter: p}

	req := testRequest(featureWorktree())
	req.Policy = PolicyPrompt

	out, err := e.Archive(context.Background(), req)
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if !out.Removed || out.StashHandle == "" {
		t.Errorf("outcome = %+v, want removal with stash", out)
	}
}

func TestArchiveDirtyPromptCancelled(t *testing.T) {
	t.Parallel()

	fg := &fakeGit{dirty: map[string]bool{"/repo/main-feature": true}}
	p := &scriptPrompter{selects: []int{2}} // "Cancel"
	e := &Engine{Git: fg, Prompter: p}

	req := testRequest(featureWorktree())
	req.Policy = PolicyPrompt

	out, err := e.Archive(context.Background(), req)
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if out.Skipped != SkipCancelled {
		t.Errorf("Skipped = %q, want cancelled", out.Skipped)
	}
}

func TestArchiveRemovalFailureIsFatal(t *testing.T) {
	t.Parallel()

	fg := &fakeGit{removeErr: errors.New("worktree remove failed")}
	e := &Engine{Git: fg}

	_, err := e.Archive(context.Background(), testRequest(featureWorktree()))
	if err == nil {
		t.Fatal("removal failure must be an error, not a skip")
	}
}

func TestArchiveNeverDeletesDefaultBranch(t *testing.T) {
	t.Parallel()

	fg := &fakeGit{
		upstreams: map[string]string{"main": "origin/main"},
	}
	e := &Engine{Git: fg}

	req := testRequest(&git.Worktree{Path: "/repo/main-extra", Branch: "main"})
	req.Branch = "main"

	out, err := e.Archive(context.Background(), req)
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if !out.Removed {
		t.Error("worktree should still be removed")
	}
	if out.BranchDeleted || len(fg.deleted) != 0 {
		t.Error("the default branch must never be deleted")
	}
}

func TestArchiveDetachedKeepsNoBranch(t *testing.T) {
	t.Parallel()

	fg := &fakeGit{}
	e := &Engine{Git: fg}

	wt := &git.Worktree{Path: "/repo/main-detached", Detached: true}
	req := testRequest(wt)
	req.Branch = ""

	out, err := e.Archive(context.Background(), req)
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if !out.Removed || out.BranchDeleted {
		t.Errorf("outcome = %+v, want removal without branch deletion", out)
	}
}

func TestArchiveNoUpstreamKeepsBranchWithoutPrompter(t *testing.T) {
	t.Parallel()

	fg := &fakeGit{} // no upstream configured
	e := &Engine{Git: fg}

	out, err := e.Archive(context.Background(), testRequest(featureWorktree()))
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if !out.Removed {
		t.Error("worktree should be removed")
	}
	if out.BranchDeleted || len(fg.deleted) != 0 {
		t.Error("a branch without upstream must survive a non-interactive run")
	}
}

func TestArchiveNoUpstreamForceDeleteConfirmed(t *testing.T) {
	t.Parallel()

	fg := &fakeGit{}
	p := &scriptPrompter{confirms: []bool{true}}
	e := &Engine{Git: fg, Prompter: p}

	out, err := e.Archive(context.Background(), testRequest(featureWorktree()))
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if !out.BranchDeleted {
		t.Error("confirmed force delete should delete the branch")
	}
	if len(fg.deleted) != 1 || fg.deleted[0] != "feature (force)" {
		t.Errorf("deleted = %v, want one force delete", fg.deleted)
	}
}

func TestArchiveUnpushedCommitsNeedConfirmation(t *testing.T) {
	t.Parallel()

	fg := &fakeGit{
		upstreams: map[string]string{"feature": "origin/feature"},
		ahead:     map[string]int{"feature": 2},
	}
	p := &scriptPrompter{confirms: []bool{false}} // decline
	e := &Engine{Git: fg, Prompter: p}

	out, err := e.Archive(context.Background(), testRequest(featureWorktree()))
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if out.BranchDeleted || len(fg.deleted) != 0 {
		t.Error("declining the confirmation must keep the branch")
	}
	if !out.Removed {
		t.Error("the worktree itself is still removed")
	}
}

func TestArchiveAheadBehindErrorIsConservative(t *testing.T) {
	t.Parallel()

	fg := &fakeGit{
		upstreams: map[string]string{"feature": "origin/feature"},
		aheadErr:  fmt.Errorf("bad revision"),
	}
	e := &Engine{Git: fg}

	out, err := e.Archive(context.Background(), testRequest(featureWorktree()))
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if out.BranchDeleted {
		t.Error("unknown push state without a prompter must keep the branch")
	}
}

func TestArchiveSafeDeleteRefusalEscalates(t *testing.T) {
	t.Parallel()

	fg := &fakeGit{
		upstreams:     map[string]string{"feature": "origin/feature"},
		ahead:         map[string]int{"feature": 0},
		safeDeleteErr: errors.New("branch not fully merged"),
	}
	p := &scriptPrompter{confirms: []bool{true}}
	e := &Engine{Git: fg, Prompter: p}

	out, err := e.Archive(context.Background(), testRequest(featureWorktree()))
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if !out.BranchDeleted {
		t.Error("confirmed escalation should force-delete")
	}
	if len(fg.deleted) != 1 || fg.deleted[0] != "feature (force)" {
		t.Errorf("deleted = %v, want one force delete", fg.deleted)
	}
}

func TestArchiveForceDeleteFailureIsDegradedSuccess(t *testing.T) {
	t.Parallel()

	fg := &fakeGit{forceDelErr: errors.New("cannot delete")}
	p := &scriptPrompter{confirms: []bool{true}}
	e := &Engine{Git: fg, Prompter: p}

	out, err := e.Archive(context.Background(), testRequest(featureWorktree()))
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if !out.Removed {
		t.Error("removal already happened and must be reported")
	}
	if out.BranchDeleted {
		t.Error("a failed delete must not be reported as deleted")
	}
	if len(p.warnings) == 0 {
		t.Error("the delete failure should be surfaced as a warning")
	}
}
