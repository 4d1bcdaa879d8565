package service

import (
	"strings"

	"github.com/gobwas/glob"
)

const wildcard = "*"

type excludedPattern struct {
	raw    string
	glob   glob.Glob // nil when the pattern does not compile
	prefix string    // set only for patterns ending in the wildcard
}

// PathFilter decides whether a request path needs credentials. Patterns are
// compiled once; matching is read-only and safe for concurrent use.
type PathFilter struct {
	patterns []excludedPattern
}

// NewPathFilter compiles the excluded path patterns. A pattern that is not a
// valid glob is kept for its prefix rule only.
func NewPathFilter(excluded []string) *PathFilter {
	f := &PathFilter{patterns: make([]excludedPattern, 0, len(excluded))}
	for _, raw := range excluded {
		f.patterns = append(f.patterns, compilePattern(raw))
	}
	return f
}

// RequiresAuth reports whether path is outside every excluded pattern.
func (f *PathFilter) RequiresAuth(path string) bool {
	if path == "" || len(f.patterns) == 0 {
		return true
	}
	path = normalizePath(path)
	for _, p := range f.patterns {
		if p.matches(path) {
			return false
		}
	}
	return true
}

// Patterns returns the raw excluded patterns.
func (f *PathFilter) Patterns() []string {
	out := make([]string, len(f.patterns))
	for i, p := range f.patterns {
		out[i] = p.raw
	}
	return out
}

// RequiresAuth is the one-shot form of PathFilter.RequiresAuth.
func RequiresAuth(path string, excluded []string) bool {
	return NewPathFilter(excluded).RequiresAuth(path)
}

func compilePattern(raw string) excludedPattern {
	p := excludedPattern{raw: raw}
	// No separators: '*' crosses '/' the way shell fnmatch does.
	if g, err := glob.Compile(escapeLiterals(raw)); err == nil {
		p.glob = g
	}
	if strings.HasSuffix(raw, wildcard) {
		p.prefix = strings.TrimSuffix(raw, wildcard)
	}
	return p
}

// escapeLiterals quotes the characters gobwas/glob treats as syntax but
// fnmatch does not, leaving only '*', '?' and '[...]' special.
func escapeLiterals(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch r {
		case '\\', '{', '}', ',':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (p excludedPattern) matches(path string) bool {
	if p.glob != nil && p.glob.Match(path) {
		return true
	}
	return p.prefix != "" && strings.HasPrefix(path, p.prefix)
}

func normalizePath(path string) string {
	if strings.HasSuffix(path, "/") {
		return path
	}
	return path + "/"
}
