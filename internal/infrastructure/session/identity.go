package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// CookieName is the cookie holding the session id
const CookieName = "_archie_session_id"

// Identity issues and reads the session id cookie
type Identity struct {
	ttl    time.Duration
	secure bool
}

// NewIdentity creates a new session id cookie handler
func NewIdentity(ttl time.Duration, secure bool) *Identity {
	return &Identity{ttl: ttl, secure: secure}
}

// Resolve returns the session id of the request, issuing a fresh one when
// the cookie is missing or not a valid id
func (i *Identity) Resolve(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	return i.Renew(w)
}

// Renew issues a new session id
func (i *Identity) Renew(w http.ResponseWriter) string {
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(i.ttl.Seconds()),
		Secure:   i.secure,
		HttpOnly: true,
		SameSite: i.sameSite(),
	})
	return id
}

func (i *Identity) sameSite() http.SameSite {
	if i.secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}
