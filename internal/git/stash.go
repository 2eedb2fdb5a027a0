package git

import (
	"context"
	"fmt"
	"strings"
)

// stashEntry pairs a stash's content hash with its current positional
// ref. Positions shift as other stash operations occur, so only the
// hash is a stable handle.
type stashEntry struct {
	Hash string
	Ref  string // e.g. stash@{0}
}

// parseStashList parses `git stash list --format=%H %gd` output.
func parseStashList(out []byte) []stashEntry {
	var entries []stashEntry
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		hash, ref, ok := strings.Cut(line, " ")
		if !ok || hash == "" || ref == "" {
			continue
		}
		entries = append(entries, stashEntry{Hash: hash, Ref: ref})
	}
	return entries
}

// StashPush stashes all changes in the worktree at path, including
// untracked files, under the given message. Returns the stash's
// content hash as a stable handle; the handle stays valid as the
// stash list shifts.
func StashPush(ctx context.Context, path, message string) (string, error) {
	if err := runGit(ctx, path, "stash", "push", "-u", "-m", message); err != nil {
		return "", fmt.Errorf("failed to stash changes: %v", err)
	}

	// Resolve the just-pushed entry to its content hash immediately;
	// the positional ref is only reliable at this point.
	out, err := outputGit(ctx, path, "rev-parse", "stash@{0}")
	if err != nil {
		return "", fmt.Errorf("failed to resolve stash: %v", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// StashRestore applies the stash identified by handle into the
// worktree at targetPath.
//
// If the handle is still present in the stash list it is popped,
// removing the entry. If it is gone (consumed elsewhere), the raw hash
// is applied instead, which preserves any remaining entry and leaves
// cleanup to the caller. On failure the stash is left intact so the
// restore can be retried manually.
func StashRestore(ctx context.Context, targetPath, handle string) error {
	out, err := outputGit(ctx, targetPath, "stash", "list", "--format=%H %gd")
	if err != nil {
		return fmt.Errorf("failed to list stashes: %v", err)
	}

	for _, entry := range parseStashList(out) {
		if entry.Hash == handle {
			if err := runGit(ctx, targetPath, "stash", "pop", entry.Ref); err != nil {
				return fmt.Errorf("failed to apply stash %s: %v", shortHash(handle), err)
			}
			return nil
		}
	}

	// Entry no longer listed; apply the raw hash.
	if err := runGit(ctx, targetPath, "stash", "apply", handle); err != nil {
		return fmt.Errorf("failed to apply stash %s: %v", shortHash(handle), err)
	}
	return nil
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
