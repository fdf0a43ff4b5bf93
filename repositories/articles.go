package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ArticleRepository reads the articles collection owned by the content
// store. The pipeline never writes articles itself; generation does that
// through its own service.
type ArticleRepository struct {
	col *mongo.Collection
}

func NewArticleRepository(db *mongo.Database) *ArticleRepository {
	return &ArticleRepository{col: db.Collection("articles")}
}

// ListSourceURLs returns every article source URL in one round trip.
func (r *ArticleRepository) ListSourceURLs(ctx context.Context) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"source_url": 1})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var urls []string
	for cur.Next(ctx) {
		var doc struct {
			SourceURL string `bson:"source_url"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		urls = append(urls, doc.SourceURL)
	}
	return urls, cur.Err()
}
