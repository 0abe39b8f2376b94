package shopify

import (
	"archie-shopify-login/internal/domain"
	"archie-shopify-login/internal/ports"
)

type sessionPolicy struct {
	online bool
}

// NewSessionPolicy returns a policy that expects online tokens for every shop
// when the app is configured to store user sessions
func NewSessionPolicy(online bool) ports.SessionPolicy {
	return sessionPolicy{online: online}
}

func (p sessionPolicy) UserSessionExpected(_ domain.ShopDomain) bool {
	return p.online
}
