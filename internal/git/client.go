package git

import "context"

// Client adapts the package-level git functions to the capability
// interfaces consumed by the archive engine and the clean sweep, so
// those can be exercised against fakes in tests.
type Client struct{}

func (Client) Status(ctx context.Context, path string) DirtyState {
	return Status(ctx, path)
}

func (Client) StashPush(ctx context.Context, path, message string) (string, error) {
	return StashPush(ctx, path, message)
}

func (Client) RemoveWorktree(ctx context.Context, repoRoot, path string, force bool) error {
	return RemoveWorktree(ctx, repoRoot, path, force)
}

func (Client) UpstreamBranch(ctx context.Context, repoRoot, branch string) string {
	return UpstreamBranch(ctx, repoRoot, branch)
}

func (Client) AheadBehind(ctx context.Context, repoRoot, local, upstream string) (int, int, error) {
	return AheadBehind(ctx, repoRoot, local, upstream)
}

func (Client) DeleteBranch(ctx context.Context, repoRoot, branch string, force bool) error {
	return DeleteBranch(ctx, repoRoot, branch, force)
}

func (Client) ListWorktrees(ctx context.Context, repoRoot string) ([]Worktree, error) {
	return ListWorktrees(ctx, repoRoot)
}

func (Client) FetchAll(ctx context.Context, repoRoot string) error {
	return FetchAll(ctx, repoRoot)
}
