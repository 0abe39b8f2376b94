package ports

import (
	"context"

	"archie-shopify-login/internal/domain"
)

// AuthAttemptRepository defines the interface for handshake audit persistence
type AuthAttemptRepository interface {
	Record(ctx context.Context, attempt *domain.AuthAttempt) error
}
