package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Suggestion status values. A suggestion starts pending and moves exactly
// once, to processed (consumed by generation) or ignored (dismissed).
const (
	SuggestionPending   = "pending"
	SuggestionProcessed = "processed"
	SuggestionIgnored   = "ignored"
)

// Suggestion is a classified candidate awaiting processing.
// Collection: suggestions. URL is stored in normalized form and carries a
// unique index; together with articles.source_url it forms the global
// dedup set.
type Suggestion struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	URL        string             `bson:"url" json:"url"`
	Title      string             `bson:"title" json:"title"`
	SourceName string             `bson:"source_name" json:"source_name"`
	Summary    string             `bson:"summary" json:"summary"`
	Category   string             `bson:"category" json:"category"`
	Status     string             `bson:"status" json:"status"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
