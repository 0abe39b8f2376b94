package ports

import (
	"context"
	"errors"
)

// ErrSessionKeyNotFound is returned by SessionStore.Get for a missing key
var ErrSessionKeyNotFound = errors.New("session key not found")

// SessionStore is a per-client key-value store addressed by session id
type SessionStore interface {
	Get(ctx context.Context, sessionID string, key string) (string, error)
	Set(ctx context.Context, sessionID string, key string, value string) error
	Delete(ctx context.Context, sessionID string, key string) error

	// Clear drops every key of the session
	Clear(ctx context.Context, sessionID string) error
}
