package repository

import (
	"context"
	"fmt"

	"github.com/hilthontt/teamrelay/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoMessageLog inserts one document per message; Mongo assigns _id, so
// redelivered duplicates land as separate rows.
type MongoMessageLog struct {
	collection *mongo.Collection
}

func NewMongoMessageLog(db *mongo.Database, collection string) *MongoMessageLog {
	return &MongoMessageLog{
		collection: db.Collection(collection),
	}
}

func (l *MongoMessageLog) Append(ctx context.Context, message *domain.Message) error {
	if _, err := l.collection.InsertOne(ctx, message); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (l *MongoMessageLog) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "team_code", Value: 1},
				{Key: "created_at", Value: 1},
			},
		},
	}

	_, err := l.collection.Indexes().CreateMany(ctx, indexes)
	return err
}
