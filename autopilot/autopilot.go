package autopilot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"newspilot/discovery"
	"newspilot/generation"
	"newspilot/logger"
	"newspilot/metrics"
	"newspilot/models"
	"newspilot/publisher"
)

// Mode is the scheduler command variant. Automatic runs go through the
// enabled/window/guard checks; Manual and Forced bypass them.
type Mode int

const (
	Automatic Mode = iota
	Manual
	Forced
)

func (m Mode) String() string {
	switch m {
	case Manual:
		return "manual"
	case Forced:
		return "forced"
	default:
		return "automatic"
	}
}

// ParseMode maps the wire form back to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "automatic":
		return Automatic, nil
	case "manual":
		return Manual, nil
	case "forced":
		return Forced, nil
	}
	return Automatic, fmt.Errorf("unknown mode %q", s)
}

// Command is one scheduler invocation. CronTrigger marks the scheduler's
// own cron identity, which is trusted without a credential.
type Command struct {
	Mode        Mode
	Credential  string
	CronTrigger bool
}

type OutcomeKind string

const (
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeSuccess OutcomeKind = "success"
	OutcomeError   OutcomeKind = "error"
)

// ReasonUnauthorized distinguishes a rejected credential from ordinary
// failures; no partial work happens before this check.
const ReasonUnauthorized = "unauthorized"

// Outcome is the structured result of every invocation; callers never see
// a bare panic or error value.
type Outcome struct {
	Kind    OutcomeKind `json:"kind"`
	Reason  string      `json:"reason,omitempty"`
	Message string      `json:"message,omitempty"`
	Count   int         `json:"count"`
}

// SettingsStore is the single shared mutable record the scheduler races
// on. Reads and writes are not transactional; see DESIGN.md.
type SettingsStore interface {
	GetSocialBot(ctx context.Context) (models.SocialBotSettings, error)
	PutSocialBot(ctx context.Context, s models.SocialBotSettings) error
}

// Discoverer runs the discovery pipeline scoped to one category.
type Discoverer interface {
	Run(ctx context.Context, params discovery.Params) ([]models.Suggestion, error)
}

// ArticleIndex re-checks freshness against current article source URLs.
type ArticleIndex interface {
	ListSourceURLs(ctx context.Context) ([]string, error)
}

// Generator produces an article from a suggestion's source URL.
type Generator interface {
	Generate(ctx context.Context, sourceURL, targetStatus, forcedCategory string) (*generation.Article, error)
}

// SocialPublisher drafts and publishes social posts for an article.
type SocialPublisher interface {
	Draft(ctx context.Context, articleID string, platforms []string) ([]publisher.Post, error)
	Publish(ctx context.Context, postID string) error
}

// SuggestionMarker moves a consumed suggestion to processed.
type SuggestionMarker interface {
	MarkProcessedByURL(ctx context.Context, url string) error
}

// EventSink receives the terminal outcome; may be nil.
type EventSink interface {
	AutopilotCompleted(ctx context.Context, outcome, category, message string, count int)
}

// Config carries the scheduler knobs.
type Config struct {
	Secret        string
	WindowMinutes int
	GuardMinutes  int
	FreshnessDays int
	RunBudget     time.Duration
	Platforms     []string
	Location      *time.Location
}

// Scheduler is the per-invocation decision procedure. It is not a
// long-running process: an external trigger (cron tick or user action)
// calls Run, which decides synchronously and records its progress in the
// shared settings record at every transition.
type Scheduler struct {
	settings    SettingsStore
	discovery   Discoverer
	articles    ArticleIndex
	generator   Generator
	publisher   SocialPublisher
	suggestions SuggestionMarker
	events      EventSink
	cfg         Config
	now         func() time.Time
}

func NewScheduler(settings SettingsStore, disc Discoverer, articles ArticleIndex, gen Generator, pub SocialPublisher, suggestions SuggestionMarker, cfg Config) *Scheduler {
	if cfg.WindowMinutes <= 0 {
		cfg.WindowMinutes = 60
	}
	if cfg.GuardMinutes <= 0 {
		cfg.GuardMinutes = 70
	}
	if cfg.FreshnessDays <= 0 {
		cfg.FreshnessDays = 3
	}
	if cfg.RunBudget <= 0 {
		cfg.RunBudget = 300 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Scheduler{
		settings:    settings,
		discovery:   disc,
		articles:    articles,
		generator:   gen,
		publisher:   pub,
		suggestions: suggestions,
		cfg:         cfg,
		now:         time.Now,
	}
}

// WithEvents attaches an optional event sink.
func (s *Scheduler) WithEvents(sink EventSink) *Scheduler {
	s.events = sink
	return s
}

// Run executes one scheduler decision:
// CheckAuth → CheckEnabled → CheckWindow → SelectCategory → Discover →
// FilterFresh → Generate → Publish → RecordResult.
func (s *Scheduler) Run(ctx context.Context, cmd Command) Outcome {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RunBudget)
	defer cancel()

	// CheckAuth: fail fast, no partial work, distinct from "skipped".
	if !cmd.CronTrigger && s.cfg.Secret != "" && cmd.Credential != s.cfg.Secret {
		return Outcome{Kind: OutcomeError, Reason: ReasonUnauthorized, Message: "invalid credential"}
	}

	st, err := s.settings.GetSocialBot(ctx)
	if err != nil {
		return Outcome{Kind: OutcomeError, Message: fmt.Sprintf("settings unavailable: %v", err)}
	}

	// CheckEnabled
	if !st.Enabled && cmd.Mode == Automatic {
		return s.skip(ctx, &st, "disabled")
	}

	now := s.now().In(s.cfg.Location)

	// CheckWindow and the idempotency guard apply to automatic runs only.
	if cmd.Mode == Automatic {
		if !s.inWindow(now, st.PostingTimes) {
			return s.skip(ctx, &st, "not scheduled now")
		}
		// LastRun is armed only by a successful run; skips and failures
		// leave it alone, so the guard holds across repeated ticks even
		// though every tick rewrites the live status line.
		guard := time.Duration(s.cfg.GuardMinutes) * time.Minute
		if st.LastRun != nil && now.Sub(*st.LastRun) < guard {
			return s.skip(ctx, &st, "already run this window")
		}
	}

	// SelectCategory: round-robin, clamped when the list shrank.
	categories := st.TargetCategories
	if len(categories) == 0 {
		categories = models.Categories
	}
	index := st.LastCategoryIndex + 1
	if index < 0 || index >= len(categories) {
		index = 0
	}
	category := categories[index]
	st.LastCategoryIndex = index
	s.recordStatus(ctx, &st, fmt.Sprintf("running: selected category %s", category))

	// Discover: scoped to the selected category, short freshness window.
	suggestions, err := s.discovery.Run(ctx, discovery.Params{
		MaxAgeDays: s.cfg.FreshnessDays,
		Categories: []string{category},
	})
	if err != nil {
		return s.fail(ctx, &st, category, fmt.Errorf("discover: %w", err))
	}
	s.recordStatus(ctx, &st, fmt.Sprintf("running: discovered %d suggestions", len(suggestions)))

	// FilterFresh: a second dedup pass, since Discover ran against a
	// snapshot of the article set.
	pick, err := s.pickFresh(ctx, suggestions, category)
	if err != nil {
		return s.fail(ctx, &st, category, err)
	}
	if pick == nil {
		return s.skip(ctx, &st, "no fresh suggestions")
	}

	// Generate
	s.recordStatus(ctx, &st, fmt.Sprintf("running: generating article from %s", pick.URL))
	article, err := s.generator.Generate(ctx, pick.URL, "published", pick.Category)
	if err != nil {
		metrics.Global.IncrementGenerationFailures()
		return s.fail(ctx, &st, category, fmt.Errorf("generate: %w", err))
	}
	metrics.Global.IncrementArticlesGenerated()
	if err := s.suggestions.MarkProcessedByURL(ctx, pick.URL); err != nil {
		logger.Log.Warnf("autopilot: mark processed %s: %v", pick.URL, err)
	}

	// Publish
	s.recordStatus(ctx, &st, fmt.Sprintf("running: drafting posts for article %s", article.ID))
	posts, err := s.publisher.Draft(ctx, article.ID, s.cfg.Platforms)
	if err != nil {
		return s.fail(ctx, &st, category, fmt.Errorf("draft posts: %w", err))
	}
	if st.AutoPublish {
		for _, p := range posts {
			if err := s.publisher.Publish(ctx, p.ID); err != nil {
				return s.fail(ctx, &st, category, fmt.Errorf("publish post %s: %w", p.ID, err))
			}
		}
	}

	// RecordResult
	st.LastRun = &now
	message := fmt.Sprintf("success: published %q (%s)", article.Title, category)
	st.LastStatus = message
	if err := s.settings.PutSocialBot(ctx, st); err != nil {
		return Outcome{Kind: OutcomeError, Message: fmt.Sprintf("record result: %v", err)}
	}
	if s.events != nil {
		s.events.AutopilotCompleted(ctx, string(OutcomeSuccess), category, message, 1)
	}
	logger.Log.Infof("autopilot: %s", message)
	return Outcome{Kind: OutcomeSuccess, Message: message, Count: 1}
}

// inWindow reports whether any posting time t satisfies
// 0 <= now-t < window, so a late cron tick still fires.
func (s *Scheduler) inWindow(now time.Time, postingTimes []string) bool {
	window := time.Duration(s.cfg.WindowMinutes) * time.Minute
	for _, hhmm := range postingTimes {
		parsed, err := time.Parse("15:04", strings.TrimSpace(hhmm))
		if err != nil {
			logger.Log.Warnf("autopilot: bad posting time %q", hhmm)
			continue
		}
		t := time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
		delta := now.Sub(t)
		if delta >= 0 && delta < window {
			return true
		}
	}
	return false
}

// pickFresh keeps the most recent suggestion whose URL is not yet an
// article source URL, preferring the selected category.
func (s *Scheduler) pickFresh(ctx context.Context, suggestions []models.Suggestion, category string) (*models.Suggestion, error) {
	if len(suggestions) == 0 {
		return nil, nil
	}
	urls, err := s.articles.ListSourceURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list article urls: %w", err)
	}
	existing := make(map[string]bool, len(urls))
	for _, u := range urls {
		existing[discovery.NormalizeURL(u)] = true
	}

	var fallback *models.Suggestion
	for i := range suggestions {
		if existing[suggestions[i].URL] {
			continue
		}
		if suggestions[i].Category == category {
			return &suggestions[i], nil
		}
		if fallback == nil {
			fallback = &suggestions[i]
		}
	}
	return fallback, nil
}

// recordStatus persists a live progress message; an observer polling the
// settings record sees every transition.
func (s *Scheduler) recordStatus(ctx context.Context, st *models.SocialBotSettings, message string) {
	st.LastStatus = message
	if err := s.settings.PutSocialBot(ctx, *st); err != nil {
		logger.Log.Warnf("autopilot: record status: %v", err)
	}
}

func (s *Scheduler) skip(ctx context.Context, st *models.SocialBotSettings, reason string) Outcome {
	s.recordStatus(ctx, st, "skipped: "+reason)
	if s.events != nil {
		s.events.AutopilotCompleted(ctx, string(OutcomeSkipped), "", reason, 0)
	}
	return Outcome{Kind: OutcomeSkipped, Reason: reason}
}

// fail records the error into the settings record and reports it as a
// structured outcome. Nothing is retried within this invocation; the next
// scheduled tick is the retry mechanism.
func (s *Scheduler) fail(ctx context.Context, st *models.SocialBotSettings, category string, err error) Outcome {
	message := "error: " + err.Error()
	s.recordStatus(ctx, st, message)
	if s.events != nil {
		s.events.AutopilotCompleted(ctx, string(OutcomeError), category, err.Error(), 0)
	}
	logger.Log.Errorf("autopilot: %v", err)
	return Outcome{Kind: OutcomeError, Message: err.Error()}
}
