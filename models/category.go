package models

import "strings"

// Categories is the fixed taxonomy. Every persisted suggestion carries
// exactly one of these values; free-text categories are never stored.
var Categories = []string{
	"Veda",
	"Technologie",
	"Vesmir",
	"Historie",
	"Zahady",
}

// IsCategory reports whether s is an exact taxonomy member.
func IsCategory(s string) bool {
	for _, c := range Categories {
		if c == s {
			return true
		}
	}
	return false
}

// MatchCategory canonicalizes free-form classifier output to a taxonomy
// member. Matching is case-insensitive and accepts a substring relation in
// either direction ("veda", "VEDA a technika" both resolve to "Veda").
// Returns false when nothing matches; the caller must not persist anything
// in that case.
func MatchCategory(s string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(s))
	if needle == "" {
		return "", false
	}
	for _, c := range Categories {
		lc := strings.ToLower(c)
		if strings.Contains(needle, lc) || strings.Contains(lc, needle) {
			return c, true
		}
	}
	return "", false
}
