package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// AuthAttempt records a handshake the app started with a shop. It is written
// for auditing only; the callback verifies the echoed state on its own, so
// only a digest of the state is kept.
type AuthAttempt struct {
	ID        string    `json:"id" bson:"_id"`
	Shop      string    `json:"shop" bson:"shop"`
	StateHash string    `json:"state_hash" bson:"state_hash"`
	Online    bool      `json:"online" bson:"online"`
	ReturnTo  string    `json:"return_to" bson:"return_to"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// HashState returns the hex SHA-256 digest of an OAuth state value
func HashState(state string) string {
	sum := sha256.Sum256([]byte(state))
	return hex.EncodeToString(sum[:])
}
