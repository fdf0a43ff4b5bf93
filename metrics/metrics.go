package metrics

import (
	"sync"
	"time"
)

// Metrics accumulates per-process pipeline counters. The rejection counter
// exists so the silent-drop of unclassifiable candidates stays observable
// and the per-category minimum yield can be verified in production.
type Metrics struct {
	mu sync.RWMutex

	// Counters
	FeedsFetched              int64
	FeedErrors                int64
	CandidatesCollected       int64
	DuplicatesFiltered        int64
	ProbesFailed              int64
	ClassificationsAccepted   int64
	ClassificationsRejected   int64
	SuggestionsInserted       int64
	ArticlesGenerated         int64
	GenerationFailures        int64

	// Timings
	LastDiscoveryDuration time.Duration

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) AddFeedsFetched(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FeedsFetched += int64(n)
}

func (m *Metrics) IncrementFeedErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FeedErrors++
}

func (m *Metrics) AddCandidatesCollected(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CandidatesCollected += int64(n)
}

func (m *Metrics) AddDuplicatesFiltered(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered += int64(n)
}

func (m *Metrics) IncrementProbesFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProbesFailed++
}

func (m *Metrics) IncrementClassificationsAccepted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClassificationsAccepted++
}

func (m *Metrics) IncrementClassificationsRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClassificationsRejected++
}

func (m *Metrics) AddSuggestionsInserted(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SuggestionsInserted += int64(n)
}

func (m *Metrics) IncrementArticlesGenerated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesGenerated++
}

func (m *Metrics) IncrementGenerationFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerationFailures++
}

func (m *Metrics) RecordDiscoveryDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastDiscoveryDuration = d
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) RejectedCount() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ClassificationsRejected
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"feeds_fetched":              m.FeedsFetched,
		"feed_errors":                m.FeedErrors,
		"candidates_collected":       m.CandidatesCollected,
		"duplicates_filtered":        m.DuplicatesFiltered,
		"probes_failed":              m.ProbesFailed,
		"classifications_accepted":   m.ClassificationsAccepted,
		"classifications_rejected":   m.ClassificationsRejected,
		"suggestions_inserted":       m.SuggestionsInserted,
		"articles_generated":         m.ArticlesGenerated,
		"generation_failures":        m.GenerationFailures,
		"last_discovery_duration_ms": m.LastDiscoveryDuration.Milliseconds(),
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}
