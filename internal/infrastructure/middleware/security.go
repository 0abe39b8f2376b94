package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HeaderFrameOptions is the framing restriction header
const HeaderFrameOptions = "X-Frame-Options"

// SecurityHeadersMiddleware sets the default security headers on every response.
// Handlers that must be embeddable in the admin iframe remove X-Frame-Options.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set(HeaderFrameOptions, "SAMEORIGIN")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	}
}

// AllowFraming removes the framing restriction for the current response
func AllowFraming(w http.ResponseWriter) {
	w.Header().Del(HeaderFrameOptions)
}

// RateLimitMiddleware rejects clients that exceed rps requests per second
// (with the given burst), keyed by remote address
func RateLimitMiddleware(rps float64, burst int, logger zerolog.Logger) func(http.Handler) http.Handler {
	limiter := NewKeyedLimiter(rps, burst, 10*time.Minute)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if !limiter.Allow(key) {
				logger.Warn().Str("client", key).Str("path", r.URL.Path).Msg("Rate limit exceeded")
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
