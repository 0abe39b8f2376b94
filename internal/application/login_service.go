package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"archie-shopify-login/internal/domain"
	"archie-shopify-login/internal/ports"

	"github.com/rs/zerolog"
)

// ErrProviderExchange wraps failures of the authorization provider
var ErrProviderExchange = errors.New("authorization provider exchange failed")

const (
	messageInvalidShop = "Invalid shop domain"
	messageLoggedOut   = "Successfully logged out"
)

// LoginConfig holds the handshake settings
type LoginConfig struct {
	EmbeddedApp         bool
	EmbeddedRedirectURL string
	LoginPath           string
	LoginCallbackPath   string
	RootURL             string
	MyshopifyDomain     string
}

// DecisionObserver receives every decision and every provider call
type DecisionObserver interface {
	ObserveDecision(state State)
	ObserveBeginAuth(elapsed time.Duration, err error)
}

// LoginService drives the login and installation handshake. It holds no
// per-request state; every call reads a LoginRequest and returns a Decision.
type LoginService struct {
	config   LoginConfig
	provider ports.AuthProvider
	policy   ports.SessionPolicy
	observer DecisionObserver
	logger   zerolog.Logger
	now      func() time.Time
}

// NewLoginService creates a new login service
func NewLoginService(
	config LoginConfig,
	provider ports.AuthProvider,
	policy ports.SessionPolicy,
	observer DecisionObserver,
	logger zerolog.Logger,
) *LoginService {
	if config.LoginPath == "" {
		config.LoginPath = "/login"
	}
	if config.RootURL == "" {
		config.RootURL = "/"
	}
	if config.MyshopifyDomain == "" {
		config.MyshopifyDomain = domain.DefaultMyshopifyDomain
	}
	return &LoginService{
		config:   config,
		provider: provider,
		policy:   policy,
		observer: observer,
		logger:   logger,
		now:      time.Now,
	}
}

// New handles GET /login. Without a shop the entry form is rendered,
// otherwise it behaves exactly like Create.
func (s *LoginService) New(ctx context.Context, req LoginRequest) (*Decision, error) {
	if strings.TrimSpace(req.Params.Get(domain.ParamShop)) == "" {
		return s.observe(&Decision{State: StateAwaitingShopInput, Outcome: OutcomeRenderForm}, StateStart), nil
	}
	return s.Create(ctx, req)
}

// Create handles POST /login
func (s *LoginService) Create(ctx context.Context, req LoginRequest) (*Decision, error) {
	shop, err := s.sanitize(req.Params)
	if err != nil {
		return s.observe(s.invalidShop(req), StateStart, StateValidatingShop), nil
	}

	var returnTo string
	if req.Params.Has(domain.ParamReturnTo) {
		returnTo = domain.MakeSafe(req.Params.Get(domain.ParamReturnTo), "/")
	}

	embedding := domain.DetectEmbedding(s.config.EmbeddedApp, req.Params)

	var decision *Decision
	switch {
	case s.config.EmbeddedRedirectURL != "" && embedding.HasEmbeddedParam:
		decision = &Decision{
			State:          StateRenderingEmbeddedRedirect,
			Outcome:        OutcomeRedirect,
			Location:       s.embeddedRedirectURL(shop, req.Params),
			AllowOtherHost: true,
		}
	case s.config.EmbeddedRedirectURL != "":
		decision, err = s.beginAuth(ctx, shop, returnTo, req)
	case embedding.IsTopLevel():
		decision, err = s.beginAuth(ctx, shop, returnTo, req)
	default:
		decision = &Decision{
			State:    StateRedirectingTopLevel,
			Outcome:  OutcomeFullPageRedirect,
			Location: s.loginURL(shop, req.Params, true),
		}
	}
	if err != nil {
		return nil, err
	}

	decision.Shop = shop
	decision.ReturnTo = returnTo
	return s.observe(decision, StateStart, StateValidatingShop), nil
}

// TopLevelInteraction handles GET /login/interaction
func (s *LoginService) TopLevelInteraction(_ context.Context, req LoginRequest) (*Decision, error) {
	shop, err := s.sanitize(req.Params)
	if err != nil {
		return s.observe(s.invalidShop(req), StateStart, StateValidatingShop), nil
	}
	return s.observe(&Decision{
		State:    StateDone,
		Outcome:  OutcomeRenderTopLevelInteraction,
		Location: s.loginURL(shop, req.Params, true),
		Shop:     shop,
	}, StateStart, StateValidatingShop), nil
}

// Destroy handles logout: the whole session is dropped and the user goes
// back to the login page, with the shop pre-filled when it can be found.
func (s *LoginService) Destroy(_ context.Context, req LoginRequest) (*Decision, error) {
	shop, err := s.sanitize(req.Params)
	if err != nil {
		shop = s.refererShop(req.Referer)
	}
	return s.observe(&Decision{
		State:        StateDone,
		Outcome:      OutcomeRedirect,
		Location:     s.loginURL(shop, req.Params, false),
		Shop:         shop,
		Flash:        &domain.Flash{Kind: domain.FlashNotice, Message: messageLoggedOut},
		ClearSession: true,
	}, StateStart), nil
}

func (s *LoginService) beginAuth(ctx context.Context, shop domain.ShopDomain, returnTo string, req LoginRequest) (*Decision, error) {
	callbackPath := "/" + strings.TrimLeft(s.config.LoginCallbackPath, "/")
	online := s.policy.UserSessionExpected(shop)

	started := s.now()
	redirect, err := s.provider.BeginAuth(ctx, shop, callbackPath, online)
	if s.observer != nil {
		s.observer.ObserveBeginAuth(s.now().Sub(started), err)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shop.String()).Msg("Failed to begin authorization")
		return nil, fmt.Errorf("%w: %w", ErrProviderExchange, err)
	}

	if returnTo == "" {
		returnTo = req.StoredReturnTo
	}

	s.logger.Info().
		Str("shop", shop.String()).
		Str("callback_path", callbackPath).
		Bool("online", online).
		Msg("Beginning OAuth authorization")

	cookie := redirect.Cookie
	return &Decision{
		State:          StateBeginningExternalAuth,
		Outcome:        OutcomeRedirect,
		Location:       redirect.AuthURL,
		AllowOtherHost: true,
		Cookie:         &cookie,
		Attempt: &domain.AuthAttempt{
			Shop:      shop.String(),
			StateHash: domain.HashState(cookie.Value),
			Online:    online,
			ReturnTo:  returnTo,
			ExpiresAt: cookie.ExpiresAt,
			CreatedAt: s.now(),
		},
	}, nil
}

func (s *LoginService) invalidShop(req LoginRequest) *Decision {
	location := s.config.RootURL
	if req.StoredReturnTo != "" {
		location = req.StoredReturnTo
	}
	return &Decision{
		State:           StateInvalidShopError,
		Outcome:         OutcomeRedirect,
		Location:        location,
		Flash:           &domain.Flash{Kind: domain.FlashError, Message: messageInvalidShop},
		ConsumeReturnTo: req.StoredReturnTo != "",
	}
}

func (s *LoginService) sanitize(params url.Values) (domain.ShopDomain, error) {
	return domain.SanitizeShopDomain(params.Get(domain.ParamShop), s.config.MyshopifyDomain)
}

// loginURL builds the login entry point with the optional shop, the host
// parameter when one was passed and the top_level marker.
func (s *LoginService) loginURL(shop domain.ShopDomain, params url.Values, topLevel bool) string {
	query := url.Values{}
	if shop != "" {
		query.Set(domain.ParamShop, shop.String())
	}
	if host := params.Get(domain.ParamHost); host != "" {
		query.Set(domain.ParamHost, host)
	}
	if topLevel {
		query.Set(domain.ParamTopLevel, "true")
	}
	if len(query) == 0 {
		return s.config.LoginPath
	}
	return s.config.LoginPath + "?" + query.Encode()
}

func (s *LoginService) embeddedRedirectURL(shop domain.ShopDomain, params url.Values) string {
	query := url.Values{}
	query.Set(domain.ParamShop, shop.String())
	if host := params.Get(domain.ParamHost); host != "" {
		query.Set(domain.ParamHost, host)
	}

	separator := "?"
	if strings.Contains(s.config.EmbeddedRedirectURL, "?") {
		separator = "&"
	}
	return s.config.EmbeddedRedirectURL + separator + query.Encode()
}

func (s *LoginService) refererShop(referer string) domain.ShopDomain {
	if referer == "" {
		return ""
	}
	u, err := url.Parse(referer)
	if err != nil {
		return ""
	}
	shop, err := domain.SanitizeShopDomain(u.Query().Get(domain.ParamShop), s.config.MyshopifyDomain)
	if err != nil {
		return ""
	}
	return shop
}

// observe records the path through the handshake and reports the terminal state
func (s *LoginService) observe(d *Decision, visited ...State) *Decision {
	d.Path = append(visited, d.State)
	if s.observer != nil {
		s.observer.ObserveDecision(d.State)
	}
	return d
}
