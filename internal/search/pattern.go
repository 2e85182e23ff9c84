// Package search finds entries under a directory tree whose names match a
// set of glob patterns.
package search

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ParsePatterns splits text on whitespace, commas and semicolons and
// lower-cases each pattern. Empty input yields the match-all pattern "*".
func ParsePatterns(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ',', ';', ' ', '\t', '\n', '\r', '\v', '\f':
			return true
		}
		return false
	})
	if len(fields) == 0 {
		return []string{"*"}
	}
	patterns := make([]string, len(fields))
	for i, f := range fields {
		patterns[i] = strings.ToLower(f)
	}
	return patterns
}

// Matcher tests entry names against a pattern list; a name matches when any
// pattern does.
type Matcher struct {
	patterns []string
	tests    []func(name string) bool
}

// NewMatcher compiles patterns as returned by ParsePatterns.
// "*.ext" patterns become suffix compares; the rest use glob matching.
func NewMatcher(patterns []string) *Matcher {
	m := &Matcher{patterns: patterns}
	for _, p := range patterns {
		if isSimpleExt(p) {
			ext := p[1:]
			m.tests = append(m.tests, func(name string) bool {
				return strings.HasSuffix(name, ext)
			})
			continue
		}
		pat := p
		m.tests = append(m.tests, func(name string) bool {
			ok, err := doublestar.Match(pat, name)
			return err == nil && ok
		})
	}
	return m
}

// Compile is ParsePatterns followed by NewMatcher.
func Compile(text string) *Matcher {
	return NewMatcher(ParsePatterns(text))
}

func (m *Matcher) Patterns() []string {
	return m.patterns
}

// Match reports whether name matches any pattern, ignoring case.
func (m *Matcher) Match(name string) bool {
	lower := strings.ToLower(name)
	for _, t := range m.tests {
		if t(lower) {
			return true
		}
	}
	return false
}

func isSimpleExt(p string) bool {
	return strings.HasPrefix(p, "*.") && !strings.ContainsAny(p[2:], `*?[]{}\`)
}
