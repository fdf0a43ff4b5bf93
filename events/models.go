package events

import "time"

type EventType string

const (
	SuggestionsCreated EventType = "suggestion.created"
	AutopilotCompleted EventType = "autopilot.completed"
	BatchProcessed     EventType = "batch.processed"
)

// Topic carries every pipeline event; consumers filter on type.
const Topic = "pipeline.events"

// BaseEvent is shared by all event payloads.
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

// SuggestionRef is the projection downstream consumers need.
type SuggestionRef struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

// SuggestionsCreatedEvent is published after a discovery run persists new
// suggestions.
type SuggestionsCreatedEvent struct {
	BaseEvent
	Count       int             `json:"count"`
	Suggestions []SuggestionRef `json:"suggestions"`
}

// AutopilotCompletedEvent is published at the end of a scheduler run with
// its terminal outcome.
type AutopilotCompletedEvent struct {
	BaseEvent
	Outcome  string `json:"outcome"`
	Category string `json:"category,omitempty"`
	Message  string `json:"message,omitempty"`
	Count    int    `json:"count"`
}

// BatchProcessedEvent is published after the parallel executor finishes.
type BatchProcessedEvent struct {
	BaseEvent
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
}
