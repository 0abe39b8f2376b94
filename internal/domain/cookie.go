package domain

import "time"

// CorrelationCookie links an outgoing authorization request to its callback.
// It is always written Secure and HttpOnly.
type CorrelationCookie struct {
	Name      string
	Value     string
	ExpiresAt time.Time
}

// AuthRedirect is what the authorization provider hands back when a handshake begins
type AuthRedirect struct {
	AuthURL string
	Cookie  CorrelationCookie
}
