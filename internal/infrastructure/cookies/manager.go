package cookies

import (
	"fmt"
	"net/http"
	"time"

	"archie-shopify-login/internal/domain"
	"archie-shopify-login/internal/ports"
)

// Manager writes correlation cookies. Values are encrypted and the cookies are
// always Secure and HttpOnly; SameSite=None lets them survive the admin iframe.
type Manager struct {
	encryptionSvc ports.EncryptionService
}

// NewManager creates a new cookie manager
func NewManager(encryptionSvc ports.EncryptionService) *Manager {
	return &Manager{encryptionSvc: encryptionSvc}
}

// Store adds the encrypted cookie to the response
func (m *Manager) Store(w http.ResponseWriter, cookie domain.CorrelationCookie) error {
	if cookie.Name == "" {
		return fmt.Errorf("cookie name is required")
	}

	value, err := m.encryptionSvc.Encrypt(cookie.Value)
	if err != nil {
		return fmt.Errorf("failed to encrypt cookie %s: %w", cookie.Name, err)
	}

	c := &http.Cookie{
		Name:     cookie.Name,
		Value:    value,
		Path:     "/",
		Expires:  cookie.ExpiresAt,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	}
	if !cookie.ExpiresAt.IsZero() {
		c.MaxAge = max(int(time.Until(cookie.ExpiresAt).Seconds()), 1)
	}

	http.SetCookie(w, c)
	return nil
}

// Expire tells the browser to drop the named cookie
func (m *Manager) Expire(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}

// Open decrypts a cookie written by Store
func (m *Manager) Open(c *http.Cookie) (string, error) {
	return m.encryptionSvc.Decrypt(c.Value)
}
