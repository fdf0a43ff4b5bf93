package executor

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"newspilot/generation"
	"newspilot/logger"
	"newspilot/metrics"
	"newspilot/models"
)

// SuggestionStore is what the executor needs from suggestion storage.
type SuggestionStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Suggestion, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error
}

// Generator produces an article for one suggestion.
type Generator interface {
	Generate(ctx context.Context, sourceURL, targetStatus, forcedCategory string) (*generation.Article, error)
}

// Counter accumulates the number of suggestions processed across runs.
type Counter interface {
	IncrementProcessed(ctx context.Context, n int) error
}

// EventSink receives the batch result; may be nil.
type EventSink interface {
	BatchProcessed(ctx context.Context, attempted, succeeded int)
}

// Result summarizes one batch run.
type Result struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
}

type itemResult struct {
	id  primitive.ObjectID
	err error
}

// Executor fans a batch of suggestion IDs out to the content generator,
// bounded by MaxConcurrency. Failures are isolated per item: a failed
// suggestion stays pending and does not affect its siblings.
type Executor struct {
	suggestions    SuggestionStore
	generator      Generator
	counter        Counter
	events         EventSink
	maxConcurrency int
	targetStatus   string
}

func New(suggestions SuggestionStore, generator Generator, counter Counter, maxConcurrency int) *Executor {
	if maxConcurrency <= 0 {
		maxConcurrency = 15
	}
	return &Executor{
		suggestions:    suggestions,
		generator:      generator,
		counter:        counter,
		maxConcurrency: maxConcurrency,
		targetStatus:   "draft",
	}
}

// WithEvents attaches an optional event sink.
func (e *Executor) WithEvents(sink EventSink) *Executor {
	e.events = sink
	return e
}

// ProcessBatch loads the given suggestions, keeps at most one per
// category, and generates articles for them in parallel. Every item
// settles before the result is returned.
func (e *Executor) ProcessBatch(ctx context.Context, ids []primitive.ObjectID) (Result, error) {
	batch, err := e.loadBatch(ctx, ids)
	if err != nil {
		return Result{}, err
	}
	if len(batch) == 0 {
		return Result{}, nil
	}

	results := make([]itemResult, len(batch))
	sem := make(chan struct{}, e.maxConcurrency)
	var wg sync.WaitGroup
	for i := range batch {
		wg.Add(1)
		go func(i int, s models.Suggestion) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = itemResult{id: s.ID, err: e.processOne(ctx, s)}
		}(i, batch[i])
	}
	wg.Wait()

	res := Result{Attempted: len(batch)}
	for _, r := range results {
		if r.err != nil {
			logger.Log.Warnf("executor: suggestion %s failed: %v", r.id.Hex(), r.err)
			continue
		}
		res.Succeeded++
	}
	if res.Succeeded > 0 && e.counter != nil {
		if err := e.counter.IncrementProcessed(ctx, res.Succeeded); err != nil {
			logger.Log.Warnf("executor: increment processed count: %v", err)
		}
	}
	if e.events != nil {
		e.events.BatchProcessed(ctx, res.Attempted, res.Succeeded)
	}
	logger.Log.Infof("executor: batch done, %d/%d succeeded", res.Succeeded, res.Attempted)
	return res, nil
}

// loadBatch resolves IDs to pending suggestions and keeps the first
// suggestion seen per category.
func (e *Executor) loadBatch(ctx context.Context, ids []primitive.ObjectID) ([]models.Suggestion, error) {
	var batch []models.Suggestion
	perCategory := make(map[string]bool)
	for _, id := range ids {
		s, err := e.suggestions.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if s == nil || s.Status != models.SuggestionPending {
			continue
		}
		if perCategory[s.Category] {
			continue
		}
		perCategory[s.Category] = true
		batch = append(batch, *s)
	}
	return batch, nil
}

func (e *Executor) processOne(ctx context.Context, s models.Suggestion) error {
	_, err := e.generator.Generate(ctx, s.URL, e.targetStatus, s.Category)
	if err != nil {
		metrics.Global.IncrementGenerationFailures()
		return err
	}
	metrics.Global.IncrementArticlesGenerated()
	return e.suggestions.UpdateStatus(ctx, s.ID, models.SuggestionProcessed)
}
