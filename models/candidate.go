package models

import "time"

// DiscoveryCandidate is a feed entry under consideration by one discovery
// run. Candidates are ephemeral and never persisted directly; only the
// classifier turns them into suggestions.
type DiscoveryCandidate struct {
	URL          string
	Title        string
	SourceName   string
	Snippet      string
	CategoryHint string
	PublishedAt  time.Time
}
