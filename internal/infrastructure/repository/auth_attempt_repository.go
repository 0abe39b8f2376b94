package repository

import (
	"context"
	"fmt"
	"time"

	"archie-shopify-login/internal/domain"
	"archie-shopify-login/internal/infrastructure/repository/entity"
	"archie-shopify-login/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// attemptRetention bounds how long audit entries are kept
const attemptRetention = 30 * 24 * time.Hour

// MongoAuthAttemptRepository implements AuthAttemptRepository using MongoDB
type MongoAuthAttemptRepository struct {
	collection *mongo.Collection
}

var _ ports.AuthAttemptRepository = (*MongoAuthAttemptRepository)(nil)

// NewMongoAuthAttemptRepository creates a new MongoDB repository
func NewMongoAuthAttemptRepository(db *mongo.Database) *MongoAuthAttemptRepository {
	return &MongoAuthAttemptRepository{
		collection: db.Collection("auth_attempts"),
	}
}

// EnsureIndexes creates the lookup and retention indexes
func (r *MongoAuthAttemptRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "shop", Value: 1}, {Key: "createdAt", Value: -1}}},
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(attemptRetention.Seconds())),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create auth attempt indexes: %w", err)
	}
	return nil
}

// Record inserts a handshake audit entry and updates attempt with the
// stored id and creation time
func (r *MongoAuthAttemptRepository) Record(ctx context.Context, attempt *domain.AuthAttempt) error {
	doc := entity.MongoAuthAttemptDocFromDomain(attempt)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to record auth attempt: %w", err)
	}

	*attempt = *doc.ToDomain()
	return nil
}
