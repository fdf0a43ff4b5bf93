package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"newspilot/models"
)

// ErrInvalidTransition is returned when a status update would leave the
// pending→processed / pending→ignored state machine.
var ErrInvalidTransition = errors.New("suggestion status is terminal")

type SuggestionRepository struct {
	col *mongo.Collection
}

func NewSuggestionRepository(db *mongo.Database) *SuggestionRepository {
	return &SuggestionRepository{col: db.Collection("suggestions")}
}

// ListURLs returns the (normalized) URL of every stored suggestion in one
// round trip, for seen-set construction.
func (r *SuggestionRepository) ListURLs(ctx context.Context) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"url": 1})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var urls []string
	for cur.Next(ctx) {
		var doc struct {
			URL string `bson:"url"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		urls = append(urls, doc.URL)
	}
	return urls, cur.Err()
}

// InsertNew inserts the given suggestions with an unordered bulk write and
// reports how many actually landed. Unique-URL collisions (E11000) are a
// successful no-op, not an error; anything else is surfaced.
func (r *SuggestionRepository) InsertNew(ctx context.Context, suggestions []models.Suggestion) (int, error) {
	if len(suggestions) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, 0, len(suggestions))
	now := time.Now()
	for _, s := range suggestions {
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.Status == "" {
			s.Status = models.SuggestionPending
		}
		docs = append(docs, s)
	}

	_, err := r.col.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return len(docs), nil
	}

	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		duplicates := 0
		for _, we := range bwe.WriteErrors {
			if we.Code != 11000 {
				return 0, err
			}
			duplicates++
		}
		return len(docs) - duplicates, nil
	}
	return 0, err
}

// FindByID loads a single suggestion; a missing document returns nil, nil.
func (r *SuggestionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Suggestion, error) {
	var s models.Suggestion
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// List returns suggestions filtered by optional category and status,
// newest first.
func (r *SuggestionRepository) List(ctx context.Context, category, status string, limit int) ([]models.Suggestion, error) {
	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Suggestion
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus moves a pending suggestion to processed or ignored. The
// filter pins status=pending so a terminal suggestion can never be flipped
// back or sideways.
func (r *SuggestionRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	if status != models.SuggestionProcessed && status != models.SuggestionIgnored {
		return ErrInvalidTransition
	}
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.SuggestionPending},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// MarkProcessedByURL flips a pending suggestion identified by its
// normalized URL to processed. Missing documents are a no-op: the autopilot
// may consume an item discovered in the same invocation before any observer
// sees it.
func (r *SuggestionRepository) MarkProcessedByURL(ctx context.Context, url string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"url": url, "status": models.SuggestionPending},
		bson.M{"$set": bson.M{"status": models.SuggestionProcessed}},
	)
	return err
}
