package discovery_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newspilot/classifier"
	"newspilot/discovery"
	"newspilot/models"
)

type fakeCollector struct {
	out map[string][]models.DiscoveryCandidate
	// gotMaxAge, when set, records the age window the service asked for.
	gotMaxAge *int
}

func (f fakeCollector) Collect(ctx context.Context, maxAgeDays int, categories []string) (map[string][]models.DiscoveryCandidate, error) {
	if f.gotMaxAge != nil {
		*f.gotMaxAge = maxAgeDays
	}
	return f.out, nil
}

// hintClassifier echoes the category hint, rejecting URLs listed in reject.
type hintClassifier struct {
	reject map[string]bool
}

func (f hintClassifier) Classify(ctx context.Context, cand models.DiscoveryCandidate) (*classifier.Result, error) {
	if f.reject[cand.URL] {
		return nil, fmt.Errorf("%w: %q", classifier.ErrUnclassifiable, "Sport")
	}
	return &classifier.Result{
		Title:    cand.Title,
		Summary:  "summary of " + cand.Title,
		Category: cand.CategoryHint,
	}, nil
}

type fakeProber struct {
	dead map[string]bool
}

func (f fakeProber) Accessible(ctx context.Context, url string) bool {
	return !f.dead[url]
}

type fakeArticles struct {
	urls []string
}

func (f fakeArticles) ListSourceURLs(ctx context.Context) ([]string, error) {
	return f.urls, nil
}

type fakeSuggestionStore struct {
	existing []string
	inserted []models.Suggestion
}

func (f *fakeSuggestionStore) ListURLs(ctx context.Context) ([]string, error) {
	return f.existing, nil
}

func (f *fakeSuggestionStore) InsertNew(ctx context.Context, suggestions []models.Suggestion) (int, error) {
	f.inserted = append(f.inserted, suggestions...)
	return len(suggestions), nil
}

func candidate(url, category string, ageHours int) models.DiscoveryCandidate {
	return models.DiscoveryCandidate{
		URL:          url,
		Title:        "Title for " + url,
		SourceName:   "test-feed",
		Snippet:      "snippet",
		CategoryHint: category,
		PublishedAt:  time.Now().Add(-time.Duration(ageHours) * time.Hour),
	}
}

func TestRunDropsKnownURLs(t *testing.T) {
	collector := fakeCollector{out: map[string][]models.DiscoveryCandidate{
		"Veda": {
			candidate("https://example.com/known-article/?utm_source=rss", "Veda", 1),
			candidate("https://example.com/new-article", "Veda", 2),
		},
	}}
	store := &fakeSuggestionStore{existing: []string{"https://example.com/known-article"}}

	svc := discovery.NewService(collector, hintClassifier{}, fakeProber{}, fakeArticles{}, store, discovery.Options{})
	accepted, err := svc.Run(context.Background(), discovery.Params{Categories: []string{"Veda"}})
	require.NoError(t, err)

	require.Len(t, accepted, 1)
	assert.Equal(t, "https://example.com/new-article", accepted[0].URL)
	assert.Equal(t, models.SuggestionPending, accepted[0].Status)
}

func TestRunSameStoryFromTwoFeedsSurvivesOnce(t *testing.T) {
	// the same story syndicated into two categories with cosmetic URL
	// differences must yield a single suggestion
	collector := fakeCollector{out: map[string][]models.DiscoveryCandidate{
		"Veda":        {candidate("https://example.com/story/?ref=a", "Veda", 1)},
		"Technologie": {candidate("HTTPS://example.com/story#b", "Technologie", 1)},
	}}
	store := &fakeSuggestionStore{}

	svc := discovery.NewService(collector, hintClassifier{}, fakeProber{}, fakeArticles{}, store, discovery.Options{})
	accepted, err := svc.Run(context.Background(), discovery.Params{Categories: []string{"Veda", "Technologie"}})
	require.NoError(t, err)

	require.Len(t, accepted, 1)
	assert.Equal(t, "https://example.com/story", accepted[0].URL)
}

func TestRunMinimumYieldBackfill(t *testing.T) {
	var pool []models.DiscoveryCandidate
	for i := 0; i < 8; i++ {
		pool = append(pool, candidate(fmt.Sprintf("https://example.com/veda-%d", i), "Veda", i))
	}
	collector := fakeCollector{out: map[string][]models.DiscoveryCandidate{"Veda": pool}}

	// the three newest candidates are unclassifiable, so the first pass
	// alone yields nothing and the minimum must come from backfill
	cls := hintClassifier{reject: map[string]bool{
		"https://example.com/veda-0": true,
		"https://example.com/veda-1": true,
		"https://example.com/veda-2": true,
	}}
	store := &fakeSuggestionStore{}

	svc := discovery.NewService(collector, cls, fakeProber{}, fakeArticles{}, store, discovery.Options{MinimumPerCategory: 3})
	accepted, err := svc.Run(context.Background(), discovery.Params{Categories: []string{"Veda"}})
	require.NoError(t, err)

	assert.Len(t, accepted, 3)
	for _, s := range accepted {
		assert.Equal(t, "Veda", s.Category)
		assert.False(t, strings.HasSuffix(s.URL, "-0") || strings.HasSuffix(s.URL, "-1") || strings.HasSuffix(s.URL, "-2"))
	}
}

func TestRunSingleCandidateYieldsOne(t *testing.T) {
	collector := fakeCollector{out: map[string][]models.DiscoveryCandidate{
		"Historie": {candidate("https://example.com/only-one", "Historie", 1)},
	}}
	store := &fakeSuggestionStore{}

	svc := discovery.NewService(collector, hintClassifier{}, fakeProber{}, fakeArticles{}, store, discovery.Options{MinimumPerCategory: 3})
	accepted, err := svc.Run(context.Background(), discovery.Params{Categories: []string{"Historie"}})
	require.NoError(t, err)

	assert.Len(t, accepted, 1)
}

func TestRunInaccessibleCandidatesNeverPersisted(t *testing.T) {
	collector := fakeCollector{out: map[string][]models.DiscoveryCandidate{
		"Vesmir": {
			candidate("https://example.com/dead", "Vesmir", 1),
			candidate("https://example.com/alive", "Vesmir", 2),
		},
	}}
	store := &fakeSuggestionStore{}
	prober := fakeProber{dead: map[string]bool{"https://example.com/dead": true}}

	svc := discovery.NewService(collector, hintClassifier{}, prober, fakeArticles{}, store, discovery.Options{})
	accepted, err := svc.Run(context.Background(), discovery.Params{Categories: []string{"Vesmir"}})
	require.NoError(t, err)

	require.Len(t, accepted, 1)
	assert.Equal(t, "https://example.com/alive", accepted[0].URL)
	require.Len(t, store.inserted, 1)
}

func TestRunUnclassifiableDropped(t *testing.T) {
	collector := fakeCollector{out: map[string][]models.DiscoveryCandidate{
		"Zahady": {candidate("https://example.com/odd", "Zahady", 1)},
	}}
	store := &fakeSuggestionStore{}
	cls := hintClassifier{reject: map[string]bool{"https://example.com/odd": true}}

	svc := discovery.NewService(collector, cls, fakeProber{}, fakeArticles{}, store, discovery.Options{})
	accepted, err := svc.Run(context.Background(), discovery.Params{Categories: []string{"Zahady"}})
	require.NoError(t, err)

	assert.Empty(t, accepted)
	assert.Empty(t, store.inserted)
}

func TestRunZeroMaxAgeFallsBackToDefault(t *testing.T) {
	// a request without an age window must not collapse the cutoff to now
	var gotMaxAge int
	collector := fakeCollector{
		out:       map[string][]models.DiscoveryCandidate{"Veda": {candidate("https://example.com/fresh", "Veda", 2)}},
		gotMaxAge: &gotMaxAge,
	}
	store := &fakeSuggestionStore{}

	svc := discovery.NewService(collector, hintClassifier{}, fakeProber{}, fakeArticles{}, store, discovery.Options{DefaultMaxAgeDays: 5})
	accepted, err := svc.Run(context.Background(), discovery.Params{Categories: []string{"Veda"}})
	require.NoError(t, err)

	assert.Equal(t, 5, gotMaxAge)
	assert.Len(t, accepted, 1)
}

func TestRunExplicitMaxAgePassedThrough(t *testing.T) {
	var gotMaxAge int
	collector := fakeCollector{
		out:       map[string][]models.DiscoveryCandidate{},
		gotMaxAge: &gotMaxAge,
	}
	store := &fakeSuggestionStore{}

	svc := discovery.NewService(collector, hintClassifier{}, fakeProber{}, fakeArticles{}, store, discovery.Options{DefaultMaxAgeDays: 5})
	_, err := svc.Run(context.Background(), discovery.Params{MaxAgeDays: 2, Categories: []string{"Veda"}})
	require.NoError(t, err)

	assert.Equal(t, 2, gotMaxAge)
}

func TestRunArticleURLsCountAsSeen(t *testing.T) {
	collector := fakeCollector{out: map[string][]models.DiscoveryCandidate{
		"Veda": {candidate("https://example.com/already-an-article", "Veda", 1)},
	}}
	store := &fakeSuggestionStore{}
	articles := fakeArticles{urls: []string{"https://example.com/already-an-article/"}}

	svc := discovery.NewService(collector, hintClassifier{}, fakeProber{}, articles, store, discovery.Options{})
	accepted, err := svc.Run(context.Background(), discovery.Params{Categories: []string{"Veda"}})
	require.NoError(t, err)

	assert.Empty(t, accepted)
}
