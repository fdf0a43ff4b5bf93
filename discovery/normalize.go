package discovery

import "strings"

// NormalizeURL produces the canonical identity used by every dedup
// comparison: query string and fragment stripped, lowercased, trailing
// slashes trimmed. Idempotent by construction.
func NormalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.ToLower(s)
	s = strings.TrimRight(s, "/")
	return s
}
