package cache

import (
	"strings"

	apperrors "filing-backend/pkg/errors"
)

// Wildcard is the single wildcard token accepted in patterns.
const Wildcard = "*"

// Pattern is a compiled key pattern. Matching is anchored at both ends and
// the wildcard stands for any substring, including the empty one.
type Pattern struct {
	raw      string
	prefix   string
	suffix   string
	wildcard bool
}

// CompilePattern validates and compiles a pattern once so DeletePattern
// does no per-key parsing.
func CompilePattern(pattern string) (Pattern, error) {
	if pattern == "" {
		return Pattern{}, apperrors.NewInvalidPatternError(pattern, "pattern is empty")
	}

	switch strings.Count(pattern, Wildcard) {
	case 0:
		return Pattern{raw: pattern, prefix: pattern}, nil
	case 1:
		idx := strings.Index(pattern, Wildcard)
		return Pattern{
			raw:      pattern,
			prefix:   pattern[:idx],
			suffix:   pattern[idx+1:],
			wildcard: true,
		}, nil
	default:
		return Pattern{}, apperrors.NewInvalidPatternError(pattern, "more than one wildcard")
	}
}

// Match reports whether key matches the pattern.
func (p Pattern) Match(key string) bool {
	if !p.wildcard {
		return key == p.prefix
	}
	return len(key) >= len(p.prefix)+len(p.suffix) &&
		strings.HasPrefix(key, p.prefix) &&
		strings.HasSuffix(key, p.suffix)
}

// Literal reports whether the pattern names exactly one key.
func (p Pattern) Literal() bool { return !p.wildcard }

// Prefix returns the literal text before the wildcard.
func (p Pattern) Prefix() string { return p.prefix }

// Suffix returns the literal text after the wildcard.
func (p Pattern) Suffix() string { return p.suffix }

func (p Pattern) String() string { return p.raw }
