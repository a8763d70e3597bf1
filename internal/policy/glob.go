// Package policy implements sensitive-data policy matching over
// canonicalized paths.
package policy

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/agentci/recorder/internal/logger"
)

// Matcher matches candidate paths against blocked glob patterns. Patterns
// support *, **, ? and character classes and match case-sensitively. Both
// pattern and candidate are home-expanded and separator-normalized before
// matching, so patterns authored with either separator style work.
type Matcher struct {
	patterns []string
}

// NewMatcher creates a matcher over the given glob patterns.
func NewMatcher(patterns []string) *Matcher {
	return &Matcher{patterns: patterns}
}

// Patterns returns the configured patterns in order.
func (m *Matcher) Patterns() []string {
	return m.patterns
}

// Match reports whether path matches any configured pattern.
func (m *Matcher) Match(path string) bool {
	if len(m.patterns) == 0 {
		return false
	}
	candidate := normalize(path)
	for _, pattern := range m.patterns {
		ok, err := doublestar.Match(normalize(pattern), candidate)
		if err != nil {
			logger.Debug().Str("pattern", pattern).Err(err).Msg("Invalid blocked glob pattern")
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// normalize expands a leading home-directory shortcut and folds separators
// to forward slashes.
func normalize(path string) string {
	expanded := expandHome(path)
	return strings.ReplaceAll(expanded, `\`, "/")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
