package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"newspilot/classifier"
	"newspilot/logger"
	"newspilot/metrics"
	"newspilot/models"
)

// Collector produces discovery candidates grouped by registry category.
type Collector interface {
	Collect(ctx context.Context, maxAgeDays int, categories []string) (map[string][]models.DiscoveryCandidate, error)
}

// Classifier assigns a candidate to exactly one taxonomy category.
type Classifier interface {
	Classify(ctx context.Context, cand models.DiscoveryCandidate) (*classifier.Result, error)
}

// AccessChecker is the lightweight reachability probe.
type AccessChecker interface {
	Accessible(ctx context.Context, url string) bool
}

// SnippetEnricher backfills empty snippets for accessible candidates.
type SnippetEnricher interface {
	Snippet(ctx context.Context, url string) string
}

// ArticleIndex exposes the content store's source URLs.
type ArticleIndex interface {
	ListSourceURLs(ctx context.Context) ([]string, error)
}

// SuggestionStore persists accepted suggestions and exposes existing URLs.
type SuggestionStore interface {
	ListURLs(ctx context.Context) ([]string, error)
	InsertNew(ctx context.Context, suggestions []models.Suggestion) (int, error)
}

// EventSink receives pipeline milestone notifications; may be nil.
type EventSink interface {
	SuggestionsCreated(ctx context.Context, suggestions []models.Suggestion)
}

// Options bound the cost of one discovery run.
type Options struct {
	// ProbeCandidates caps the per-category probe pool.
	ProbeCandidates int
	// ProbeAccessibleTarget stops probing a category early.
	ProbeAccessibleTarget int
	// FirstPassPerCategory is the top-N slice per requested category fed to
	// the first classification pass; backfill draws from the rest.
	FirstPassPerCategory int
	// ClassifyPoolMax caps the overall first-pass pool.
	ClassifyPoolMax int
	// MinimumPerCategory is the backfill quota.
	MinimumPerCategory int
	// DefaultMaxAgeDays substitutes for a run that asks for no age window.
	DefaultMaxAgeDays int
}

func (o *Options) applyDefaults() {
	if o.ProbeCandidates <= 0 {
		o.ProbeCandidates = 12
	}
	if o.ProbeAccessibleTarget <= 0 {
		o.ProbeAccessibleTarget = 8
	}
	if o.MinimumPerCategory <= 0 {
		o.MinimumPerCategory = 3
	}
	if o.FirstPassPerCategory <= 0 {
		o.FirstPassPerCategory = o.MinimumPerCategory
	}
	if o.ClassifyPoolMax <= 0 {
		o.ClassifyPoolMax = 120
	}
	if o.DefaultMaxAgeDays <= 0 {
		o.DefaultMaxAgeDays = 7
	}
}

// Params select the scope of one discovery run.
type Params struct {
	// MaxAgeDays bounds entry age; zero or negative falls back to the
	// configured default.
	MaxAgeDays int
	// Categories limits the run; empty means every registered category.
	Categories []string
}

// Service runs the discovery pipeline: collect → dedup → probe → classify
// with minimum-yield backfill → persist.
type Service struct {
	collector   Collector
	classifier  Classifier
	prober      AccessChecker
	enricher    SnippetEnricher
	articles    ArticleIndex
	suggestions SuggestionStore
	events      EventSink
	opts        Options
	now         func() time.Time
}

func NewService(collector Collector, cls Classifier, prober AccessChecker, articles ArticleIndex, suggestions SuggestionStore, opts Options) *Service {
	opts.applyDefaults()
	return &Service{
		collector:   collector,
		classifier:  cls,
		prober:      prober,
		articles:    articles,
		suggestions: suggestions,
		opts:        opts,
		now:         time.Now,
	}
}

// WithEnricher attaches an optional snippet enricher.
func (s *Service) WithEnricher(e SnippetEnricher) *Service {
	s.enricher = e
	return s
}

// WithEvents attaches an optional event sink.
func (s *Service) WithEvents(sink EventSink) *Service {
	s.events = sink
	return s
}

// Run executes one discovery pass and returns the suggestions accepted this
// run (status pending, URLs normalized). A failing feed or candidate never
// aborts the run; an unreadable store does.
func (s *Service) Run(ctx context.Context, params Params) ([]models.Suggestion, error) {
	start := s.now()

	if params.MaxAgeDays <= 0 {
		params.MaxAgeDays = s.opts.DefaultMaxAgeDays
	}

	collected, err := s.collector.Collect(ctx, params.MaxAgeDays, params.Categories)
	if err != nil {
		return nil, fmt.Errorf("discovery: collect: %w", err)
	}

	seen, err := s.seenSet(ctx)
	if err != nil {
		metrics.Global.SetError(err.Error())
		return nil, err
	}

	accessible := s.filterAccessible(ctx, collected, seen)

	requested := params.Categories
	if len(requested) == 0 {
		for cat := range accessible {
			requested = append(requested, cat)
		}
		sort.Strings(requested)
	}

	accepted := s.classifyWithBackfill(ctx, accessible, requested)

	inserted, err := s.suggestions.InsertNew(ctx, accepted)
	if err != nil {
		metrics.Global.SetError(err.Error())
		return nil, fmt.Errorf("discovery: persist suggestions: %w", err)
	}
	metrics.Global.AddSuggestionsInserted(inserted)

	if s.events != nil && len(accepted) > 0 {
		s.events.SuggestionsCreated(ctx, accepted)
	}

	duration := s.now().Sub(start)
	metrics.Global.RecordDiscoveryDuration(duration)
	metrics.Global.SetLastRun()
	logger.InfoWithFields("discovery run finished", logger.Fields{
		"accepted":    len(accepted),
		"inserted":    inserted,
		"duration_ms": duration.Milliseconds(),
	})
	return accepted, nil
}

// seenSet fetches every known URL once per run; per-candidate store round
// trips would dominate the run otherwise.
func (s *Service) seenSet(ctx context.Context) (map[string]bool, error) {
	articleURLs, err := s.articles.ListSourceURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovery: list article urls: %w", err)
	}
	suggestionURLs, err := s.suggestions.ListURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovery: list suggestion urls: %w", err)
	}

	seen := make(map[string]bool, len(articleURLs)+len(suggestionURLs))
	for _, u := range articleURLs {
		seen[NormalizeURL(u)] = true
	}
	for _, u := range suggestionURLs {
		seen[NormalizeURL(u)] = true
	}
	return seen, nil
}

// filterAccessible drops known URLs, orders the survivors newest-first,
// caps the probe pool and probes until the accessible target is met.
// Retained candidates enter the seen set immediately so two feeds carrying
// the same story in one run cannot both survive.
func (s *Service) filterAccessible(ctx context.Context, collected map[string][]models.DiscoveryCandidate, seen map[string]bool) map[string][]models.DiscoveryCandidate {
	duplicates := 0
	accessible := make(map[string][]models.DiscoveryCandidate, len(collected))

	for category, candidates := range collected {
		fresh := make([]models.DiscoveryCandidate, 0, len(candidates))
		for _, c := range candidates {
			key := NormalizeURL(c.URL)
			if key == "" || seen[key] {
				duplicates++
				continue
			}
			seen[key] = true
			fresh = append(fresh, c)
		}

		sort.SliceStable(fresh, func(i, j int) bool {
			return fresh[i].PublishedAt.After(fresh[j].PublishedAt)
		})
		if len(fresh) > s.opts.ProbeCandidates {
			fresh = fresh[:s.opts.ProbeCandidates]
		}

		var alive []models.DiscoveryCandidate
		for _, c := range fresh {
			if len(alive) >= s.opts.ProbeAccessibleTarget {
				break
			}
			if !s.prober.Accessible(ctx, c.URL) {
				logger.Log.Debugf("discovery: %s not accessible", c.URL)
				continue
			}
			if c.Snippet == "" && s.enricher != nil {
				c.Snippet = s.enricher.Snippet(ctx, c.URL)
			}
			alive = append(alive, c)
		}
		if len(alive) > 0 {
			accessible[category] = alive
		}
	}

	metrics.Global.AddDuplicatesFiltered(duplicates)
	return accessible
}

// classifyWithBackfill runs the first classification pass over a bounded
// pool of top candidates per requested category, then keeps drawing from
// each short category's remaining pool until the minimum is met or the
// pool is exhausted. The guarantee: a requested category with at least
// `minimum` accessible, classifiable candidates yields at least `minimum`
// suggestions.
func (s *Service) classifyWithBackfill(ctx context.Context, accessible map[string][]models.DiscoveryCandidate, requested []string) []models.Suggestion {
	var (
		accepted    []models.Suggestion
		perCategory = map[string]int{}
		processed   = map[string]bool{}
	)

	classifyOne := func(c models.DiscoveryCandidate) {
		res, err := s.classifier.Classify(ctx, c)
		if err != nil {
			if errors.Is(err, classifier.ErrUnclassifiable) {
				logger.Log.Debugf("discovery: dropped %s: %v", c.URL, err)
			} else {
				logger.Log.Warnf("discovery: classify %s: %v", c.URL, err)
			}
			return
		}
		accepted = append(accepted, models.Suggestion{
			URL:        NormalizeURL(c.URL),
			Title:      res.Title,
			SourceName: c.SourceName,
			Summary:    res.Summary,
			Category:   res.Category,
			Status:     models.SuggestionPending,
			CreatedAt:  s.now(),
		})
		perCategory[res.Category]++
	}

	// First pass: top-N per requested category, newest-first across
	// categories, capped overall.
	var pool []models.DiscoveryCandidate
	for _, category := range requested {
		candidates := accessible[category]
		n := s.opts.FirstPassPerCategory
		if n > len(candidates) {
			n = len(candidates)
		}
		pool = append(pool, candidates[:n]...)
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].PublishedAt.After(pool[j].PublishedAt)
	})
	if len(pool) > s.opts.ClassifyPoolMax {
		pool = pool[:s.opts.ClassifyPoolMax]
	}
	for _, c := range pool {
		processed[NormalizeURL(c.URL)] = true
		classifyOne(c)
	}

	// Backfill: one at a time from each short category's remaining pool.
	for _, category := range requested {
		for _, c := range accessible[category] {
			if perCategory[category] >= s.opts.MinimumPerCategory {
				break
			}
			key := NormalizeURL(c.URL)
			if processed[key] {
				continue
			}
			processed[key] = true
			classifyOne(c)
		}
	}

	return accepted
}
