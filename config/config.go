package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ENV_FILE = ".env"
const CONFIG_FILE = "config.yaml"

type AppConfig struct {
	Logging       LoggingConfig       `yaml:"logging"`
	Timezone      string              `yaml:"timezone"`
	GeminiModel   string              `yaml:"gemini_model"`
	Discovery     DiscoveryConfig     `yaml:"discovery"`
	Autopilot     AutopilotConfig     `yaml:"autopilot"`
	Executor      ExecutorConfig      `yaml:"executor"`
	Collaborators CollaboratorsConfig `yaml:"collaborators"`
	Feeds         []FeedCategory      `yaml:"feeds"`

	// Secrets and connection strings come from the environment, not config.yaml.
	MongoURI        string `yaml:"-"`
	MongoDBName     string `yaml:"-"`
	GeminiApiKey    string `yaml:"-"`
	AutopilotSecret string `yaml:"-"`
	KafkaBrokers    string `yaml:"-"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type DiscoveryConfig struct {
	// FeedConcurrency bounds the worker pool fetching feed endpoints.
	FeedConcurrency int `yaml:"feed_concurrency"`

	// ProbeCandidates caps how many deduplicated candidates per category are
	// handed to the accessibility prober.
	ProbeCandidates int `yaml:"probe_candidates"`

	// ProbeAccessibleTarget stops probing a category once this many
	// accessible candidates have been collected.
	ProbeAccessibleTarget int `yaml:"probe_accessible_target"`

	// ClassifyPoolMax caps the overall first-pass classification pool.
	ClassifyPoolMax int `yaml:"classify_pool_max"`

	// MinimumPerCategory is the backfill quota for every requested category.
	MinimumPerCategory int `yaml:"minimum_per_category"`

	DefaultMaxAgeDays int `yaml:"default_max_age_days"`
}

type AutopilotConfig struct {
	WindowMinutes    int      `yaml:"window_minutes"`
	GuardMinutes     int      `yaml:"guard_minutes"`
	FreshnessDays    int      `yaml:"freshness_days"`
	RunBudgetSeconds int      `yaml:"run_budget_seconds"`
	Platforms        []string `yaml:"platforms"`
}

type ExecutorConfig struct {
	MaxConcurrency int `yaml:"max_concurrency"`
}

type CollaboratorsConfig struct {
	GenerationBaseURL string `yaml:"generation_base_url"`
	PublisherBaseURL  string `yaml:"publisher_base_url"`
}

// FeedCategory groups feed sources under one taxonomy category.
type FeedCategory struct {
	Category string       `yaml:"category"`
	Sources  []FeedSource `yaml:"sources"`
}

// FeedSource is a single feed endpoint. Charset overrides the declared
// encoding for sources that omit or misreport it, e.g. "windows-1250".
type FeedSource struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Charset string `yaml:"charset"`
}

var config *AppConfig

func InitApp() {
	// load environment variables
	godotenv.Load(filepath.Join(GetBasePath(), ENV_FILE))

	// load configuration file
	data, err := os.ReadFile(filepath.Join(GetBasePath(), CONFIG_FILE))
	if err != nil {
		panic(err)
	}

	var c AppConfig
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		panic(err)
	}
	c.applyDefaults()
	c.loadEnv()
	config = &c
}

func GetConfig() AppConfig {
	if config == nil {
		InitApp()
	}

	return *config
}

func (c *AppConfig) applyDefaults() {
	if c.Timezone == "" {
		c.Timezone = "Europe/Prague"
	}
	if c.GeminiModel == "" {
		c.GeminiModel = "gemini-2.0-flash"
	}
	if c.Discovery.FeedConcurrency <= 0 {
		c.Discovery.FeedConcurrency = 5
	}
	if c.Discovery.ProbeCandidates <= 0 {
		c.Discovery.ProbeCandidates = 12
	}
	if c.Discovery.ProbeAccessibleTarget <= 0 {
		c.Discovery.ProbeAccessibleTarget = 8
	}
	if c.Discovery.ClassifyPoolMax <= 0 {
		c.Discovery.ClassifyPoolMax = 120
	}
	if c.Discovery.MinimumPerCategory <= 0 {
		c.Discovery.MinimumPerCategory = 3
	}
	if c.Discovery.DefaultMaxAgeDays <= 0 {
		c.Discovery.DefaultMaxAgeDays = 7
	}
	if c.Autopilot.WindowMinutes <= 0 {
		c.Autopilot.WindowMinutes = 60
	}
	if c.Autopilot.GuardMinutes <= 0 {
		c.Autopilot.GuardMinutes = 70
	}
	if c.Autopilot.FreshnessDays <= 0 {
		c.Autopilot.FreshnessDays = 3
	}
	if c.Autopilot.RunBudgetSeconds <= 0 {
		c.Autopilot.RunBudgetSeconds = 300
	}
	if len(c.Autopilot.Platforms) == 0 {
		c.Autopilot.Platforms = []string{"facebook", "x"}
	}
	if c.Executor.MaxConcurrency <= 0 {
		c.Executor.MaxConcurrency = 15
	}
}

func (c *AppConfig) loadEnv() {
	c.MongoURI = os.Getenv("MONGO_URI")
	c.MongoDBName = os.Getenv("MONGO_DB_NAME")
	c.GeminiApiKey = os.Getenv("GEMINI_API_KEY")
	c.AutopilotSecret = os.Getenv("AUTOPILOT_SECRET")
	c.KafkaBrokers = os.Getenv("KAFKA_BOOTSTRAP_SERVERS")
}

// Location resolves the configured time zone, falling back to UTC.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks the parts of the configuration every entry point needs.
func (c AppConfig) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.GeminiApiKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if len(c.Feeds) == 0 {
		return fmt.Errorf("no feeds configured in %s (key: feeds)", CONFIG_FILE)
	}
	return nil
}

func GetBasePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		cfgPath := filepath.Join(dir, CONFIG_FILE)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
