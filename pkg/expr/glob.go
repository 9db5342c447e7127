package expr

import "strings"

// Approximate path equality. Paths are '/'-separated; in a pattern, '*'
// matches any run of characters inside one segment and a segment made of
// exactly "**" matches zero or more whole segments.

// HasWildcard reports whether s is a pattern.
func HasWildcard(s string) bool {
	return strings.IndexByte(s, '*') >= 0
}

// MatchPath compares a and b, using whichever side has wildcards as the
// pattern. Plain strings compare for equality. Wildcards on both sides are
// ambiguous and reported as an error.
func MatchPath(a, b string) (bool, error) {
	wa, wb := HasWildcard(a), HasWildcard(b)
	switch {
	case wa && wb:
		return false, newEvaluationError("both operands of ~= are patterns: %q and %q", a, b)
	case wa:
		return Glob(a, b), nil
	case wb:
		return Glob(b, a), nil
	default:
		return a == b, nil
	}
}

// Glob matches path against pattern.
func Glob(pattern, path string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(path, "/"))
}

func matchSegments(pattern, path []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			rest := pattern[1:]
			for len(rest) > 0 && rest[0] == "**" {
				rest = rest[1:]
			}
			if len(rest) == 0 {
				return true
			}
			for i := 0; i <= len(path); i++ {
				if matchSegments(rest, path[i:]) {
					return true
				}
			}
			return false
		}
		if len(path) == 0 || !matchSegment(pattern[0], path[0]) {
			return false
		}
		pattern, path = pattern[1:], path[1:]
	}
	return len(path) == 0
}

// matchSegment is '*' wildcard matching with single-star backtracking.
func matchSegment(pattern, s string) bool {
	p, i := 0, 0
	star, mark := -1, 0
	for i < len(s) {
		switch {
		case p < len(pattern) && pattern[p] == '*':
			star, mark = p, i
			p++
		case p < len(pattern) && pattern[p] == s[i]:
			p++
			i++
		case star >= 0:
			p = star + 1
			mark++
			i = mark
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}
