package api

import (
	"encoding/json"
	"net/http"

	securitymiddleware "archie-shopify-login/internal/infrastructure/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterOptions configures NewRouter
type RouterOptions struct {
	LoginPath string
	// LoginRateLimit is the per-client request rate for POST /login; zero disables it
	LoginRateLimit float64
	AllowedOrigins []string
	Metrics        http.Handler
	SwaggerDoc     []byte
}

// NewRouter wires the login endpoints and the operational routes
func NewRouter(login *LoginHandler, opts RouterOptions, logger zerolog.Logger) http.Handler {
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"https://*.myshopify.com", "https://admin.shopify.com"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(securitymiddleware.SecurityHeadersMiddleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	if len(opts.SwaggerDoc) > 0 {
		r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write(opts.SwaggerDoc)
		})
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// The root is the default return address after an invalid shop; the
	// login form is where the flash gets rendered.
	loginPath := opts.LoginPath
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		target := loginPath
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusFound)
	})

	r.Route(opts.LoginPath, func(r chi.Router) {
		r.Get("/", login.New)
		r.With(loginRateLimit(opts.LoginRateLimit, logger)).Post("/", login.Create)
		r.Get("/interaction", login.TopLevelInteraction)
	})

	r.Delete("/logout", login.Destroy)
	r.Post("/logout", login.Destroy)
	r.Get("/logout", login.Destroy)

	return r
}

func loginRateLimit(rps float64, logger zerolog.Logger) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return securitymiddleware.RateLimitMiddleware(rps, int(rps*2)+1, logger)
}
