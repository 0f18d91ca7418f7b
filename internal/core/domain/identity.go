package domain

import "strings"

// NormalizeIdentity folds an identifier into the form used for every
// identity comparison: surrounding whitespace removed, letters lowercased.
// Interior characters, including spaces and dashes, are kept as-is.
func NormalizeIdentity(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// SameIdentity reports whether two identifiers name the same person.
// An empty identifier never matches anything, not even another empty one.
func SameIdentity(a, b string) bool {
	na := NormalizeIdentity(a)
	if na == "" {
		return false
	}
	return na == NormalizeIdentity(b)
}
