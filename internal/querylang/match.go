package querylang

import "golang.org/x/text/cases"

// fold applies full Unicode case folding. Casers carry state, so each call
// gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

// MatchWildcard reports whether s matches pattern, where '*' matches any run
// of characters and '?' exactly one. Matching is case-insensitive.
func MatchWildcard(pattern, s string) bool {
	p := []rune(fold(pattern))
	t := []rune(fold(s))

	pi, ti := 0, 0
	star, mark := -1, 0
	for ti < len(t) {
		switch {
		case pi < len(p) && p[pi] == '*':
			star = pi
			mark = ti
			pi++
		case pi < len(p) && (p[pi] == '?' || p[pi] == t[ti]):
			pi++
			ti++
		case star >= 0:
			pi = star + 1
			mark++
			ti = mark
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}

// FoldEqual reports whether a and b are equal under Unicode case folding.
func FoldEqual(a, b string) bool {
	return fold(a) == fold(b)
}
