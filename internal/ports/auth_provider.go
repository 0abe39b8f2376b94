package ports

import (
	"context"

	"archie-shopify-login/internal/domain"
)

// AuthProvider starts the platform's OAuth handshake
type AuthProvider interface {
	// BeginAuth returns the authorization URL to send the browser to and the
	// correlation cookie that has to travel with it
	BeginAuth(ctx context.Context, shop domain.ShopDomain, redirectPath string, isOnline bool) (*domain.AuthRedirect, error)
}

// SessionPolicy decides whether a short-lived (online) token is expected for a shop
type SessionPolicy interface {
	UserSessionExpected(shop domain.ShopDomain) bool
}

// EncryptionService seals and opens short strings such as cookie values
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
