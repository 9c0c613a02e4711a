package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hilthontt/teamrelay/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConnectionRegistry stores one document per connection, keyed by
// connection_id in _id.
type MongoConnectionRegistry struct {
	collection *mongo.Collection
}

func NewMongoConnectionRegistry(db *mongo.Database, collection string) *MongoConnectionRegistry {
	return &MongoConnectionRegistry{
		collection: db.Collection(collection),
	}
}

func (r *MongoConnectionRegistry) Put(ctx context.Context, conn domain.Connection) error {
	opts := options.Replace().SetUpsert(true)

	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": conn.ConnectionID}, conn, opts)
	if err != nil {
		return fmt.Errorf("put connection: %w", err)
	}
	return nil
}

func (r *MongoConnectionRegistry) Get(ctx context.Context, connectionID string) (domain.Connection, error) {
	var conn domain.Connection

	err := r.collection.FindOne(ctx, bson.M{"_id": connectionID}).Decode(&conn)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Connection{}, domain.ErrConnectionNotFound
	}
	if err != nil {
		return domain.Connection{}, fmt.Errorf("get connection: %w", err)
	}
	return conn, nil
}

func (r *MongoConnectionRegistry) Delete(ctx context.Context, connectionID string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": connectionID}); err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}
	return nil
}

func (r *MongoConnectionRegistry) ScanByGroup(ctx context.Context, teamCode string) ([]domain.Connection, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"team_code": teamCode})
	if err != nil {
		return nil, fmt.Errorf("scan connections: %w", err)
	}
	defer cursor.Close(ctx)

	conns := make([]domain.Connection, 0)
	if err := cursor.All(ctx, &conns); err != nil {
		return nil, fmt.Errorf("scan connections: %w", err)
	}
	return conns, nil
}

func (r *MongoConnectionRegistry) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "team_code", Value: 1}},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}
