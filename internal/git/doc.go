// Package git provides git operations via shell commands.
//
// All operations call the git CLI directly rather than using Go git
// libraries. This is simpler, more reliable, and ensures compatibility
// with user configurations (SSH keys, credential helpers, aliases).
//
// # Topology
//
//   - [ResolveTopology]: Locate the main worktree, current worktree,
//     project name and the parent directory for sibling worktrees.
//
// # Worktree Registry
//
//   - [ListWorktrees]: Parse the porcelain worktree listing, pruning
//     stale entries first. The registry is re-read on every operation
//     and never cached, since any external actor may mutate it.
//   - [AddWorktree], [RemoveWorktree], [PruneWorktrees]
//
// # Stash Coordination
//
//   - [StashPush]: Stash all changes under a traceable message,
//     returning the stash's content hash as a stable handle.
//   - [StashRestore]: Pop a stash by its handle into another worktree,
//     falling back to apply when the entry was consumed elsewhere.
//
// # Branch Queries
//
//   - [DefaultBranch], [CurrentBranch], [BranchExists], [ResolveRef]
//   - [UpstreamBranch], [AheadBehind]: Judge whether local commits
//     have been pushed.
//   - [DeleteBranch], [FetchAll]
package git
