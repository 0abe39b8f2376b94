package entity

import (
	"time"

	"archie-shopify-login/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoAuthAttemptDoc represents a begun handshake in MongoDB
type MongoAuthAttemptDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Shop      string             `bson:"shop"`
	StateHash string             `bson:"stateHash"`
	Online    bool               `bson:"online"`
	ReturnTo  string             `bson:"returnTo,omitempty"`
	ExpiresAt time.Time          `bson:"expiresAt"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoAuthAttemptDoc) ToDomain() *domain.AuthAttempt {
	return &domain.AuthAttempt{
		ID:        d.ID.Hex(),
		Shop:      d.Shop,
		StateHash: d.StateHash,
		Online:    d.Online,
		ReturnTo:  d.ReturnTo,
		ExpiresAt: d.ExpiresAt,
		CreatedAt: d.CreatedAt,
	}
}

// MongoAuthAttemptDocFromDomain converts a domain entity to a MongoDB document
func MongoAuthAttemptDocFromDomain(attempt *domain.AuthAttempt) *MongoAuthAttemptDoc {
	doc := &MongoAuthAttemptDoc{
		Shop:      attempt.Shop,
		StateHash: attempt.StateHash,
		Online:    attempt.Online,
		ReturnTo:  attempt.ReturnTo,
		ExpiresAt: attempt.ExpiresAt,
		CreatedAt: attempt.CreatedAt,
	}

	if attempt.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(attempt.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}
