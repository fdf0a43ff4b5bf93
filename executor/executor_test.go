package executor_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"newspilot/executor"
	"newspilot/generation"
	"newspilot/models"
)

type memSuggestions struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.Suggestion
}

func newMemSuggestions(items ...*models.Suggestion) *memSuggestions {
	m := &memSuggestions{items: map[primitive.ObjectID]*models.Suggestion{}}
	for _, s := range items {
		m.items[s.ID] = s
	}
	return m
}

func (m *memSuggestions) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Suggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memSuggestions) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id].Status = status
	return nil
}

type flakyGenerator struct {
	mu      sync.Mutex
	failFor map[string]bool
	calls   int
}

func (g *flakyGenerator) Generate(ctx context.Context, sourceURL, targetStatus, forcedCategory string) (*generation.Article, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.failFor[sourceURL] {
		return nil, fmt.Errorf("generation failed for %s", sourceURL)
	}
	return &generation.Article{ID: "art-" + forcedCategory, SourceURL: sourceURL, Status: targetStatus}, nil
}

type countingCounter struct {
	mu    sync.Mutex
	calls []int
}

func (c *countingCounter) IncrementProcessed(ctx context.Context, n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, n)
	return nil
}

func pending(category, url string) *models.Suggestion {
	return &models.Suggestion{
		ID:       primitive.NewObjectID(),
		URL:      url,
		Category: category,
		Status:   models.SuggestionPending,
	}
}

func TestProcessBatchPartialFailure(t *testing.T) {
	items := []*models.Suggestion{
		pending("Veda", "https://example.com/a"),
		pending("Technologie", "https://example.com/b"),
		pending("Vesmir", "https://example.com/c"),
		pending("Historie", "https://example.com/d"),
		pending("Zahady", "https://example.com/e"),
	}
	store := newMemSuggestions(items...)
	gen := &flakyGenerator{failFor: map[string]bool{
		"https://example.com/b": true,
		"https://example.com/d": true,
	}}
	counter := &countingCounter{}

	exec := executor.New(store, gen, counter, 3)
	ids := make([]primitive.ObjectID, 0, len(items))
	for _, s := range items {
		ids = append(ids, s.ID)
	}
	res, err := exec.ProcessBatch(context.Background(), ids)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Attempted)
	assert.Equal(t, 3, res.Succeeded)

	// failures stay pending for the next batch, successes are terminal
	assert.Equal(t, models.SuggestionProcessed, store.items[items[0].ID].Status)
	assert.Equal(t, models.SuggestionPending, store.items[items[1].ID].Status)
	assert.Equal(t, models.SuggestionProcessed, store.items[items[2].ID].Status)
	assert.Equal(t, models.SuggestionPending, store.items[items[3].ID].Status)
	assert.Equal(t, models.SuggestionProcessed, store.items[items[4].ID].Status)

	assert.Equal(t, []int{3}, counter.calls, "counter incremented once per batch")
}

func TestProcessBatchOnePerCategory(t *testing.T) {
	first := pending("Veda", "https://example.com/first")
	second := pending("Veda", "https://example.com/second")
	store := newMemSuggestions(first, second)
	gen := &flakyGenerator{}

	exec := executor.New(store, gen, &countingCounter{}, 2)
	res, err := exec.ProcessBatch(context.Background(), []primitive.ObjectID{first.ID, second.ID})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Attempted)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, models.SuggestionProcessed, store.items[first.ID].Status)
	assert.Equal(t, models.SuggestionPending, store.items[second.ID].Status)
}

func TestProcessBatchSkipsMissingAndTerminal(t *testing.T) {
	done := pending("Veda", "https://example.com/done")
	done.Status = models.SuggestionProcessed
	store := newMemSuggestions(done)

	exec := executor.New(store, &flakyGenerator{}, &countingCounter{}, 2)
	res, err := exec.ProcessBatch(context.Background(), []primitive.ObjectID{done.ID, primitive.NewObjectID()})
	require.NoError(t, err)

	assert.Zero(t, res.Attempted)
	assert.Zero(t, res.Succeeded)
}

func TestProcessBatchEmpty(t *testing.T) {
	exec := executor.New(newMemSuggestions(), &flakyGenerator{}, &countingCounter{}, 2)
	res, err := exec.ProcessBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, res.Attempted)
}
