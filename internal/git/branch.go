package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// DefaultBranch returns the repository's default branch name.
func DefaultBranch(ctx context.Context, repoRoot string) string {
	// Prefer the remote HEAD symref.
	out, err := outputGit(ctx, repoRoot, "symbolic-ref", "refs/remotes/origin/HEAD")
	if err == nil {
		ref := strings.TrimSpace(string(out))
		if idx := strings.LastIndex(ref, "/"); idx != -1 {
			return ref[idx+1:]
		}
	}

	if runGit(ctx, repoRoot, "rev-parse", "--verify", "origin/main") == nil {
		return "main"
	}
	if runGit(ctx, repoRoot, "rev-parse", "--verify", "origin/master") == nil {
		return "master"
	}
	if runGit(ctx, repoRoot, "rev-parse", "--verify", "refs/heads/master") == nil &&
		runGit(ctx, repoRoot, "rev-parse", "--verify", "refs/heads/main") != nil {
		return "master"
	}

	return "main"
}

// CurrentBranch returns the checked-out branch of the worktree at
// path, or an empty string for a detached HEAD.
func CurrentBranch(ctx context.Context, path string) (string, error) {
	out, err := outputGit(ctx, path, "branch", "--show-current")
	if err != nil {
		return "", fmt.Errorf("failed to get branch: %v", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// BranchExists reports whether a local branch exists.
func BranchExists(ctx context.Context, repoRoot, branch string) bool {
	return runGit(ctx, repoRoot, "rev-parse", "--verify", "refs/heads/"+branch) == nil
}

// ResolveRef resolves a ref to its commit hash.
func ResolveRef(ctx context.Context, repoRoot, ref string) (string, error) {
	out, err := outputGit(ctx, repoRoot, "rev-parse", "--verify", ref)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %v", ref, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// UpstreamBranch returns the short upstream name of branch (e.g.
// "origin/feature-x"), or an empty string when no upstream is
// configured.
func UpstreamBranch(ctx context.Context, repoRoot, branch string) string {
	out, err := outputGit(ctx, repoRoot, "rev-parse", "--abbrev-ref", "--symbolic-full-name", branch+"@{upstream}")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// AheadBehind returns how many commits local is ahead of and behind
// upstream.
func AheadBehind(ctx context.Context, repoRoot, local, upstream string) (ahead, behind int, err error) {
	out, err := outputGit(ctx, repoRoot, "rev-list", "--left-right", "--count",
		fmt.Sprintf("%s...%s", local, upstream))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count ahead/behind for %s: %v", local, err)
	}

	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected rev-list output: %q", strings.TrimSpace(string(out)))
	}

	ahead, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("unexpected rev-list output: %q", fields[0])
	}
	behind, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("unexpected rev-list output: %q", fields[1])
	}
	return ahead, behind, nil
}

// DeleteBranch deletes a local branch. The safe form (-d) refuses
// unmerged branches; force (-D) deletes regardless.
func DeleteBranch(ctx context.Context, repoRoot, branch string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	if err := runGit(ctx, repoRoot, "branch", flag, branch); err != nil {
		return fmt.Errorf("failed to delete branch %s: %v", branch, err)
	}
	return nil
}

// FetchAll refreshes all remote tracking data, pruning stale refs.
// The caller bounds this with a context timeout.
func FetchAll(ctx context.Context, repoRoot string) error {
	if err := runGit(ctx, repoRoot, "fetch", "--all", "--prune", "--quiet"); err != nil {
		return fmt.Errorf("failed to fetch remotes: %v", err)
	}
	return nil
}
