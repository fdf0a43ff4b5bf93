package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"newspilot/models"
)

// SettingsRepository stores one document per settings key. Readers get a
// zero-value record when the key does not exist yet; the first write
// upserts it.
type SettingsRepository struct {
	col *mongo.Collection
}

func NewSettingsRepository(db *mongo.Database) *SettingsRepository {
	return &SettingsRepository{col: db.Collection("settings")}
}

type settingsDoc struct {
	Key       string                    `bson:"key"`
	Autopilot *models.AutopilotSettings `bson:"autopilot,omitempty"`
	SocialBot *models.SocialBotSettings `bson:"social_bot,omitempty"`
	UpdatedAt time.Time                 `bson:"updated_at"`
}

// GetAutopilot loads the autopilot record, defaulting to enabled=false.
func (r *SettingsRepository) GetAutopilot(ctx context.Context) (models.AutopilotSettings, error) {
	var doc settingsDoc
	err := r.col.FindOne(ctx, bson.M{"key": models.SettingsKeyAutopilot}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.AutopilotSettings{}, nil
	}
	if err != nil {
		return models.AutopilotSettings{}, err
	}
	if doc.Autopilot == nil {
		return models.AutopilotSettings{}, nil
	}
	return *doc.Autopilot, nil
}

// PutAutopilot writes the autopilot record wholesale.
func (r *SettingsRepository) PutAutopilot(ctx context.Context, s models.AutopilotSettings) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"key": models.SettingsKeyAutopilot},
		bson.M{"$set": bson.M{"autopilot": s, "updated_at": time.Now()}},
		options.Update().SetUpsert(true),
	)
	return err
}

// IncrementProcessed bumps the monotonic processed counter atomically,
// without the read-modify-write cycle the rest of the record needs.
func (r *SettingsRepository) IncrementProcessed(ctx context.Context, by int) error {
	if by <= 0 {
		return nil
	}
	now := time.Now()
	_, err := r.col.UpdateOne(ctx,
		bson.M{"key": models.SettingsKeyAutopilot},
		bson.M{
			"$inc": bson.M{"autopilot.processed_count": by},
			"$set": bson.M{"autopilot.last_run": now, "updated_at": now},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

// GetSocialBot loads the social bot record, defaulting to a disabled one.
func (r *SettingsRepository) GetSocialBot(ctx context.Context) (models.SocialBotSettings, error) {
	var doc settingsDoc
	err := r.col.FindOne(ctx, bson.M{"key": models.SettingsKeySocialBot}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.SocialBotSettings{}, nil
	}
	if err != nil {
		return models.SocialBotSettings{}, err
	}
	if doc.SocialBot == nil {
		return models.SocialBotSettings{}, nil
	}
	return *doc.SocialBot, nil
}

// PutSocialBot writes the social bot record wholesale. This is the shared
// read-modify-write record the autopilot races on; there is deliberately no
// optimistic-concurrency token here (see DESIGN.md).
func (r *SettingsRepository) PutSocialBot(ctx context.Context, s models.SocialBotSettings) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"key": models.SettingsKeySocialBot},
		bson.M{"$set": bson.M{"social_bot": s, "updated_at": time.Now()}},
		options.Update().SetUpsert(true),
	)
	return err
}
