package app

import (
	"context"
	"fmt"
	"time"

	"newspilot/autopilot"
	"newspilot/classifier"
	"newspilot/config"
	"newspilot/db"
	"newspilot/discovery"
	"newspilot/events"
	"newspilot/executor"
	"newspilot/feeder"
	"newspilot/generation"
	"newspilot/logger"
	"newspilot/publisher"
	"newspilot/repositories"
)

// App holds every wired component. Both entry points build one of these
// and pick the parts they serve.
type App struct {
	Config      config.AppConfig
	Suggestions *repositories.SuggestionRepository
	Articles    *repositories.ArticleRepository
	Settings    *repositories.SettingsRepository
	Discovery   *discovery.Service
	Autopilot   *autopilot.Scheduler
	Executor    *executor.Executor
	Events      events.Publisher
}

// New wires the full pipeline from configuration: storage, feed
// aggregation, classification, discovery, scheduler, executor and the
// event publisher.
func New(ctx context.Context) (*App, error) {
	cfg := config.GetConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := db.Init(ctx); err != nil {
		return nil, fmt.Errorf("init mongodb: %w", err)
	}

	suggestions := repositories.NewSuggestionRepository(db.Database())
	articles := repositories.NewArticleRepository(db.Database())
	settings := repositories.NewSettingsRepository(db.Database())

	cls, err := classifier.New(ctx, cfg.GeminiApiKey, cfg.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("init classifier: %w", err)
	}

	sink, err := events.NewFromBrokers(cfg.KafkaBrokers, "newspilot")
	if err != nil {
		logger.Log.Warnf("kafka unavailable, events disabled: %v", err)
		sink = events.NopPublisher{}
	}

	aggregator := feeder.New(feeder.RegistryFromConfig(cfg.Feeds), cfg.Discovery.FeedConcurrency)
	disc := discovery.NewService(aggregator, cls, discovery.NewProber(), articles, suggestions, discovery.Options{
		ProbeCandidates:       cfg.Discovery.ProbeCandidates,
		ProbeAccessibleTarget: cfg.Discovery.ProbeAccessibleTarget,
		ClassifyPoolMax:       cfg.Discovery.ClassifyPoolMax,
		MinimumPerCategory:    cfg.Discovery.MinimumPerCategory,
		DefaultMaxAgeDays:     cfg.Discovery.DefaultMaxAgeDays,
	}).WithEnricher(discovery.NewEnricher()).WithEvents(sink)

	gen := generation.New(cfg.Collaborators.GenerationBaseURL)
	pub := publisher.New(cfg.Collaborators.PublisherBaseURL)

	sched := autopilot.NewScheduler(settings, disc, articles, gen, pub, suggestions, autopilot.Config{
		Secret:        cfg.AutopilotSecret,
		WindowMinutes: cfg.Autopilot.WindowMinutes,
		GuardMinutes:  cfg.Autopilot.GuardMinutes,
		FreshnessDays: cfg.Autopilot.FreshnessDays,
		RunBudget:     time.Duration(cfg.Autopilot.RunBudgetSeconds) * time.Second,
		Platforms:     cfg.Autopilot.Platforms,
		Location:      cfg.Location(),
	}).WithEvents(sink)

	exec := executor.New(suggestions, gen, settings, cfg.Executor.MaxConcurrency).WithEvents(sink)

	return &App{
		Config:      cfg,
		Suggestions: suggestions,
		Articles:    articles,
		Settings:    settings,
		Discovery:   disc,
		Autopilot:   sched,
		Executor:    exec,
		Events:      sink,
	}, nil
}

// Close flushes and releases the event publisher.
func (a *App) Close() {
	if a.Events != nil {
		a.Events.Close()
	}
}
