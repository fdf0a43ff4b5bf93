package models

import "time"

// Settings record keys within the settings collection.
const (
	SettingsKeyAutopilot = "autopilot"
	SettingsKeySocialBot = "social_bot"
)

// AutopilotSettings tracks the manual batch-processing pipeline.
// ProcessedCount only ever grows, except through an explicit reset.
type AutopilotSettings struct {
	Enabled        bool       `bson:"enabled" json:"enabled"`
	LastRun        *time.Time `bson:"last_run,omitempty" json:"last_run,omitempty"`
	ProcessedCount int        `bson:"processed_count" json:"processed_count"`
}

// SocialBotSettings is the single shared record driving the scheduled
// publishing loop. All writers read-modify-write it without a transaction;
// see DESIGN.md for the concurrency caveat.
//
// LastRun is the completion time of the last successful run. Skipped and
// failed runs update LastStatus only; the scheduler's idempotency guard
// depends on LastRun never being set by anything but a success.
type SocialBotSettings struct {
	Enabled           bool       `bson:"enabled" json:"enabled"`
	IntervalHours     int        `bson:"interval_hours" json:"interval_hours"`
	PostingTimes      []string   `bson:"posting_times" json:"posting_times"`
	AutoPublish       bool       `bson:"auto_publish" json:"auto_publish"`
	TargetCategories  []string   `bson:"target_categories" json:"target_categories"`
	LastRun           *time.Time `bson:"last_run,omitempty" json:"last_run,omitempty"`
	LastStatus        string     `bson:"last_status" json:"last_status"`
	LastCategoryIndex int        `bson:"last_category_index" json:"last_category_index"`
}
