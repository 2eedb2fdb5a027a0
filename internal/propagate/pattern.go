package propagate

import (
	"bufio"
	"io"
	"path"
	"strings"
)

// Pattern is one include rule from the cache-pattern file, using a
// gitignore-like subset grammar: '!' negates, a trailing '/' matches
// directories only, a leading '/' anchors to the worktree root, and a
// pattern without any slash matches at any depth.
type Pattern struct {
	raw      string
	segs     []string
	negate   bool
	dirOnly  bool
	anchored bool
}

// ParsePatterns reads patterns line by line. Blank lines and lines
// starting with '#' are skipped.
func ParsePatterns(r io.Reader) []Pattern {
	var patterns []Pattern

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		p := Pattern{raw: line}
		if strings.HasPrefix(line, "!") {
			p.negate = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			p.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		if strings.HasPrefix(line, "/") {
			p.anchored = true
			line = strings.TrimPrefix(line, "/")
		}
		if line == "" {
			continue
		}
		// Any remaining slash also anchors, as in gitignore.
		if strings.Contains(line, "/") {
			p.anchored = true
		}
		p.segs = strings.Split(line, "/")
		patterns = append(patterns, p)
	}

	return patterns
}

// Match reports whether relPath (a slash-separated file path relative
// to the worktree root) is selected by the pattern list. The last
// matching pattern in file order wins, consistent with gitignore
// precedence.
func Match(patterns []Pattern, relPath string) bool {
	include := false
	for _, p := range patterns {
		if p.matches(relPath) {
			include = !p.negate
		}
	}
	return include
}

func (p Pattern) matches(relPath string) bool {
	segs := strings.Split(relPath, "/")

	if p.anchored {
		n := len(p.segs)
		if n > len(segs) {
			return false
		}
		// A directory-only pattern must match a strict ancestor of the
		// file; a plain pattern matching a directory prefix includes
		// everything beneath it.
		if p.dirOnly && n == len(segs) {
			return false
		}
		return matchSegs(p.segs, segs[:n])
	}

	// Unanchored: a single name matched against every path segment.
	name := p.segs[0]
	for i, seg := range segs {
		if ok, _ := path.Match(name, seg); ok {
			if p.dirOnly && i == len(segs)-1 {
				continue
			}
			return true
		}
	}
	return false
}

func matchSegs(patSegs, segs []string) bool {
	for i := range patSegs {
		if ok, _ := path.Match(patSegs[i], segs[i]); !ok {
			return false
		}
	}
	return true
}
