package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"archie-shopify-login/internal/application"
	"archie-shopify-login/internal/domain"
	"archie-shopify-login/internal/infrastructure/cookies"
	securitymiddleware "archie-shopify-login/internal/infrastructure/middleware"
	"archie-shopify-login/internal/infrastructure/session"
	"archie-shopify-login/internal/ports"

	"github.com/rs/zerolog"
)

type operation func(ctx context.Context, req application.LoginRequest) (*application.Decision, error)

// LoginHandler turns HTTP requests into LoginRequests and applies the
// resulting decisions to the response
type LoginHandler struct {
	service   *application.LoginService
	sessions  ports.SessionStore
	identity  *session.Identity
	cookies   *cookies.Manager
	attempts  ports.AuthAttemptRepository
	views     *views
	loginPath string
	// correlationCookie is expired on logout
	correlationCookie string
	logger            zerolog.Logger
}

// NewLoginHandler creates a new login handler. attempts may be nil.
func NewLoginHandler(
	service *application.LoginService,
	sessions ports.SessionStore,
	identity *session.Identity,
	cookieManager *cookies.Manager,
	attempts ports.AuthAttemptRepository,
	loginPath string,
	correlationCookie string,
	logger zerolog.Logger,
) (*LoginHandler, error) {
	v, err := newViews()
	if err != nil {
		return nil, err
	}
	return &LoginHandler{
		service:   service,
		sessions:  sessions,
		identity:  identity,
		cookies:   cookieManager,
		attempts:  attempts,
		views:     v,
		loginPath: loginPath,

		correlationCookie: correlationCookie,
		logger:            logger,
	}, nil
}

// New handles GET /login
func (h *LoginHandler) New(w http.ResponseWriter, r *http.Request) {
	securitymiddleware.AllowFraming(w)
	h.handle(w, r, h.service.New)
}

// Create handles POST /login
func (h *LoginHandler) Create(w http.ResponseWriter, r *http.Request) {
	securitymiddleware.AllowFraming(w)
	h.handle(w, r, h.service.Create)
}

// TopLevelInteraction handles GET /login/interaction
func (h *LoginHandler) TopLevelInteraction(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.service.TopLevelInteraction)
}

// Destroy handles logout
func (h *LoginHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.service.Destroy)
}

func (h *LoginHandler) handle(w http.ResponseWriter, r *http.Request, op operation) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed request", http.StatusBadRequest)
		return
	}

	sessionID := h.identity.Resolve(w, r)

	storedReturnTo, err := h.sessions.Get(ctx, sessionID, domain.SessionKeyReturnTo)
	if err != nil && !errors.Is(err, ports.ErrSessionKeyNotFound) {
		h.fail(w, err, "Failed to read session")
		return
	}

	decision, err := op(ctx, application.LoginRequest{
		Params:         r.Form,
		StoredReturnTo: storedReturnTo,
		Referer:        r.Referer(),
	})
	if err != nil {
		h.fail(w, err, "Login handshake failed")
		return
	}

	if err := h.apply(w, r, sessionID, decision); err != nil {
		h.fail(w, err, "Failed to apply login decision")
	}
}

func (h *LoginHandler) apply(w http.ResponseWriter, r *http.Request, sessionID string, d *application.Decision) error {
	ctx := r.Context()

	if d.ClearSession {
		if err := h.sessions.Clear(ctx, sessionID); err != nil {
			return err
		}
		sessionID = h.identity.Renew(w)
		if h.correlationCookie != "" {
			h.cookies.Expire(w, h.correlationCookie)
		}
	}
	if d.ConsumeReturnTo {
		if err := h.sessions.Delete(ctx, sessionID, domain.SessionKeyReturnTo); err != nil {
			return err
		}
	}
	if d.ReturnTo != "" {
		if err := h.sessions.Set(ctx, sessionID, domain.SessionKeyReturnTo, d.ReturnTo); err != nil {
			return err
		}
	}
	if d.Flash != nil {
		if err := h.setFlash(ctx, sessionID, d.Flash); err != nil {
			return err
		}
	}
	if d.Cookie != nil {
		if err := h.cookies.Store(w, *d.Cookie); err != nil {
			return err
		}
	}
	if d.Attempt != nil && h.attempts != nil {
		if err := h.attempts.Record(ctx, d.Attempt); err != nil {
			h.logger.Warn().Err(err).Str("shop", d.Attempt.Shop).Msg("Failed to record auth attempt")
		}
	}

	switch d.Outcome {
	case application.OutcomeRenderForm:
		flash, err := h.popFlash(ctx, sessionID)
		if err != nil {
			return err
		}
		return h.views.render(w, "new", pageData{
			Title:    "Log in",
			Flash:    flash,
			Action:   h.loginPath,
			Shop:     r.Form.Get(domain.ParamShop),
			ReturnTo: domain.MakeSafe(r.Form.Get(domain.ParamReturnTo), ""),
		})
	case application.OutcomeFullPageRedirect:
		return h.views.render(w, "redirect", pageData{Title: "Redirecting", URL: d.Location})
	case application.OutcomeRenderTopLevelInteraction:
		return h.views.render(w, "interaction", pageData{Title: "Continue", Shop: d.Shop.String(), URL: d.Location})
	default:
		http.Redirect(w, r, d.Location, http.StatusFound)
		return nil
	}
}

func (h *LoginHandler) setFlash(ctx context.Context, sessionID string, flash *domain.Flash) error {
	raw, err := json.Marshal(flash)
	if err != nil {
		return err
	}
	return h.sessions.Set(ctx, sessionID, domain.SessionKeyFlash, string(raw))
}

// popFlash returns the pending flash, if any, and removes it
func (h *LoginHandler) popFlash(ctx context.Context, sessionID string) (*domain.Flash, error) {
	raw, err := h.sessions.Get(ctx, sessionID, domain.SessionKeyFlash)
	if errors.Is(err, ports.ErrSessionKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := h.sessions.Delete(ctx, sessionID, domain.SessionKeyFlash); err != nil {
		return nil, err
	}

	var flash domain.Flash
	if err := json.Unmarshal([]byte(raw), &flash); err != nil {
		h.logger.Warn().Err(err).Msg("Discarding malformed flash")
		return nil, nil
	}
	return &flash, nil
}

func (h *LoginHandler) fail(w http.ResponseWriter, err error, msg string) {
	h.logger.Error().Err(err).Msg(msg)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}
