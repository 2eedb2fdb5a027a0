// Package propagate copies version-control-ignored build artifacts
// from an existing worktree into a freshly created one, so that caches
// (node_modules, target, .venv, ...) do not have to be rebuilt from
// scratch.
package propagate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nlowe/arbor/internal/cmd"
)

// Result reports the outcome of copying one entry. Individual entry
// failures do not abort the remaining copy; callers collect and
// report them.
type Result struct {
	Rel     string
	Copied  bool
	Skipped bool // destination already existed
	Err     error
}

// LoadPatterns reads the include-pattern file at path.
// A missing file yields no patterns and no error.
func LoadPatterns(path string) ([]Pattern, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache patterns: %w", err)
	}
	defer f.Close()

	return ParsePatterns(f), nil
}

// Candidates returns the paths (relative to srcRoot) of ignored files
// in the source worktree that are selected by the include patterns.
//
// Entries living under a nested worktree are excluded: a worktree
// checked out inside an ignored directory of another must never be
// dragged along in the copy.
func Candidates(ctx context.Context, srcRoot string, patterns []Pattern) ([]string, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	out, err := cmd.Output(ctx, srcRoot, "git",
		"ls-files", "--others", "--ignored", "--exclude-standard")
	if err != nil {
		return nil, fmt.Errorf("failed to list ignored files: %v", err)
	}

	raw := strings.TrimSpace(string(out))
	if raw == "" {
		return nil, nil
	}

	nested := make(map[string]bool) // dir -> is nested worktree root
	var selected []string
	for _, rel := range strings.Split(raw, "\n") {
		rel = filepath.ToSlash(strings.TrimSpace(rel))
		if rel == "" || !Match(patterns, rel) {
			continue
		}
		if underNestedWorktree(srcRoot, rel, nested) {
			continue
		}
		selected = append(selected, rel)
	}

	return selected, nil
}

// underNestedWorktree reports whether any ancestor directory of rel is
// itself a worktree root (holds a .git file). Results are memoized in
// nested since candidates cluster under the same directories.
func underNestedWorktree(srcRoot, rel string, nested map[string]bool) bool {
	dir := path0(rel)
	for dir != "" {
		isRoot, seen := nested[dir]
		if !seen {
			info, err := os.Lstat(filepath.Join(srcRoot, filepath.FromSlash(dir), ".git"))
			isRoot = err == nil && !info.IsDir()
			nested[dir] = isRoot
		}
		if isRoot {
			return true
		}
		idx := strings.LastIndex(dir, "/")
		if idx < 0 {
			break
		}
		dir = dir[:idx]
	}
	return false
}

// path0 returns the directory portion of a slash path, or "".
func path0(rel string) string {
	idx := strings.LastIndex(rel, "/")
	if idx < 0 {
		return ""
	}
	return rel[:idx]
}

// Copy copies the given entries from srcRoot into dstRoot, one file at
// a time. Pre-existing destination entries are silently skipped, so
// the copy is idempotent. Symlinks are recreated, never followed.
func Copy(srcRoot, dstRoot string, rels []string) []Result {
	results := make([]Result, 0, len(rels))
	for _, rel := range rels {
		res := Result{Rel: rel}
		res.Copied, res.Skipped, res.Err = copyEntry(srcRoot, dstRoot, rel)
		results = append(results, res)
	}
	return results
}

func copyEntry(srcRoot, dstRoot, rel string) (copied, skipped bool, err error) {
	src := filepath.Join(srcRoot, filepath.FromSlash(rel))
	dst := filepath.Join(dstRoot, filepath.FromSlash(rel))

	// Both endpoints must stay inside their worktree roots even after
	// symlink resolution; crafted pattern/ignore combinations must not
	// produce path traversal.
	if !withinRoot(srcRoot, src) || !withinRoot(dstRoot, dst) {
		return false, false, fmt.Errorf("%s escapes the worktree root", rel)
	}

	info, err := os.Lstat(src)
	if err != nil {
		return false, false, err
	}

	// The parent check must come before MkdirAll: a symlink already
	// present under dstRoot would otherwise redirect the directory
	// creation itself outside the root.
	if !ancestorResolvesWithin(dstRoot, filepath.Dir(dst)) {
		return false, false, fmt.Errorf("%s escapes the worktree root", rel)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return false, false, err
	}
	if !resolvedWithin(srcRoot, filepath.Dir(src)) || !resolvedWithin(dstRoot, filepath.Dir(dst)) {
		return false, false, fmt.Errorf("%s escapes the worktree root", rel)
	}

	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return false, false, err
		}
		if err := os.Symlink(target, dst); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return false, true, nil
			}
			return false, false, err
		}
		return true, false, nil

	case info.IsDir():
		// ls-files yields files, but tolerate a directory entry.
		if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
			return false, false, err
		}
		return true, false, nil

	default:
		return copyFile(src, dst, info.Mode().Perm())
	}
}

// copyFile copies src to dst, skipping if dst exists. A copy-on-write
// clone is attempted first; unsupported filesystems get a byte copy.
func copyFile(src, dst string, mode fs.FileMode) (copied, skipped bool, err error) {
	if done, exists := cloneFile(src, dst, mode); done {
		return !exists, exists, nil
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, true, nil
		}
		return false, false, err
	}
	defer dstFile.Close()

	srcFile, err := os.Open(src)
	if err != nil {
		os.Remove(dst)
		return false, false, err
	}
	defer srcFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		os.Remove(dst) // don't leave partial files behind
		return false, false, err
	}
	return true, false, nil
}

// withinRoot reports whether p stays lexically inside root.
func withinRoot(root, p string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(p))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// ancestorResolvesWithin reports whether the deepest existing ancestor
// of dir resolves inside root. It is the pre-creation counterpart of
// resolvedWithin: dir itself may not exist yet, but every directory
// MkdirAll would create hangs off that ancestor.
func ancestorResolvesWithin(root, dir string) bool {
	anc := dir
	for {
		if _, err := os.Lstat(anc); err == nil {
			break
		}
		parent := filepath.Dir(anc)
		if parent == anc {
			break
		}
		anc = parent
	}
	return resolvedWithin(root, anc)
}

// resolvedWithin reports whether dir, after resolving symlinks, still
// lies inside root.
func resolvedWithin(root, dir string) bool {
	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return false
	}
	resolvedDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return false
	}
	return withinRoot(resolvedRoot, resolvedDir)
}
