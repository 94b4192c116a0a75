// Package exclude compiles backup exclusion patterns into a single
// predicate over absolute paths.
//
// A pattern may contain `*`, which matches any sequence of characters
// including path separators, so "*/node_modules" excludes every
// node_modules directory at any depth. A pattern that matches a directory
// excludes the directory and its entire subtree.
package exclude

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// compiled pairs a glob with enough of the original pattern to decide
// whether basename matching applies.
type compiled struct {
	glob    glob.Glob
	pattern string
	segment bool // pattern names a single path segment, match basenames too
}

// Matcher is a compiled set of exclusion patterns. It is immutable and
// safe for concurrent use.
type Matcher struct {
	patterns []compiled
}

// Compile normalizes and compiles a set of exclusion patterns.
// An unparseable pattern is a configuration error; Compile fails fast
// before any file I/O happens.
func Compile(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, raw := range patterns {
		p := Normalize(raw)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling exclude pattern %q: %w", raw, err)
		}
		m.patterns = append(m.patterns, compiled{
			glob:    g,
			pattern: p,
			segment: !strings.ContainsAny(p, "/\\"),
		})
	}
	return m, nil
}

// Normalize strips trailing separators and wildcards so a pattern naming a
// directory excludes that directory and its whole subtree, not just its
// children. "/data/tmp/*" and "/data/tmp/" both become "/data/tmp".
func Normalize(pattern string) string {
	p := filepath.ToSlash(strings.TrimSpace(pattern))
	for {
		trimmed := strings.TrimRight(p, "/\\*")
		if trimmed == p {
			break
		}
		p = trimmed
	}
	return p
}

// Match reports whether the absolute path, or any of its ancestor
// directories, matches one of the compiled patterns. Excluding a directory
// excludes its entire subtree.
func (m *Matcher) Match(absPath string) bool {
	if m == nil || len(m.patterns) == 0 {
		return false
	}

	path := filepath.ToSlash(absPath)
	for p := path; ; {
		if m.matchOne(p) {
			return true
		}
		parent := parentOf(p)
		if parent == p {
			return false
		}
		p = parent
	}
}

// matchOne tests a single path (no ancestor walk) against all patterns.
func (m *Matcher) matchOne(path string) bool {
	base := ""
	for _, c := range m.patterns {
		if c.glob.Match(path) {
			return true
		}
		if c.segment {
			if base == "" {
				base = lastSegment(path)
			}
			if c.glob.Match(base) {
				return true
			}
		}
	}
	return false
}

// Empty reports whether the matcher has no patterns.
func (m *Matcher) Empty() bool {
	return m == nil || len(m.patterns) == 0
}

// parentOf returns the parent of a slash-separated path, or the path itself
// when there is no parent left to walk.
func parentOf(path string) string {
	idx := strings.LastIndex(path, "/")
	switch {
	case idx < 0:
		return path
	case idx == 0:
		if path == "/" {
			return path
		}
		return "/"
	default:
		return path[:idx]
	}
}

// lastSegment returns the final path segment of a slash-separated path.
func lastSegment(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
