package activity

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "activity_logs"

func OpenMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(uri)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return client, nil
}

// MongoRecorder stores entries in the activity_logs collection.
type MongoRecorder struct {
	col *mongo.Collection
}

func NewMongoRecorder(ctx context.Context, db *mongo.Database) (*MongoRecorder, error) {
	r := &MongoRecorder{col: db.Collection(collectionName)}
	if err := r.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *MongoRecorder) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("activity_user_time"),
		},
		{
			Keys:    bson.D{{Key: "action", Value: 1}},
			Options: options.Index().SetName("activity_action"),
		},
	})
	if err != nil {
		return fmt.Errorf("activity indexes: %w", err)
	}
	return nil
}

func (r *MongoRecorder) Record(ctx context.Context, userID, action string, details map[string]interface{}) error {
	if _, err := r.col.InsertOne(ctx, newEntry(userID, action, details)); err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}
