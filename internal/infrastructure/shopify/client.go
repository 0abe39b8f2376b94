package shopify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"archie-shopify-login/internal/domain"
	"archie-shopify-login/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

const (
	// SessionCookieName is the correlation cookie the callback reads the state from
	SessionCookieName = "shopify_app_session"

	stateAlphabet  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	stateLength    = 15
	cookieLifetime = 60 * time.Second
)

type oauthProvider struct {
	apiKey    string
	apiSecret string
	scopes    []string
	appURL    string
	logger    zerolog.Logger
	now       func() time.Time
	newState  func() (string, error)
}

// NewOAuthProvider creates the Shopify authorization provider adapter.
// appURL is the public base URL the callback path is appended to.
func NewOAuthProvider(apiKey, apiSecret string, scopes []string, appURL string, logger zerolog.Logger) ports.AuthProvider {
	return &oauthProvider{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		scopes:    scopes,
		appURL:    strings.TrimRight(appURL, "/"),
		logger:    logger,
		now:       time.Now,
		newState: func() (string, error) {
			return gonanoid.Generate(stateAlphabet, stateLength)
		},
	}
}

// BeginAuth builds the authorization URL for the shop and the cookie carrying
// the state nonce. Nothing is sent to Shopify at this point.
func (p *oauthProvider) BeginAuth(_ context.Context, shop domain.ShopDomain, redirectPath string, isOnline bool) (*domain.AuthRedirect, error) {
	if shop == "" {
		return nil, fmt.Errorf("shop is required")
	}

	state, err := p.newState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	// Shopify expects scopes to be comma-separated (no spaces)
	app := goshopify.App{
		ApiKey:      p.apiKey,
		ApiSecret:   p.apiSecret,
		RedirectUrl: p.appURL + redirectPath,
		Scope:       strings.Join(p.scopes, ","),
	}

	authURL, err := app.AuthorizeUrl(shop.String(), state)
	if err != nil {
		return nil, fmt.Errorf("failed to build authorize url: %w", err)
	}

	authURL, err = finalizeAuthURL(authURL, shop, isOnline)
	if err != nil {
		return nil, err
	}

	p.logger.Debug().
		Str("shop", shop.String()).
		Strs("scopes", p.scopes).
		Bool("online", isOnline).
		Msg("Generated OAuth authorization URL")

	return &domain.AuthRedirect{
		AuthURL: authURL,
		Cookie: domain.CorrelationCookie{
			Name:      SessionCookieName,
			Value:     state,
			ExpiresAt: p.now().Add(cookieLifetime),
		},
	}, nil
}

// finalizeAuthURL pins the host to the sanitized shop (go-shopify assumes the
// myshopify.com suffix) and asks for an online token when one is expected
func finalizeAuthURL(authURL string, shop domain.ShopDomain, isOnline bool) (string, error) {
	u, err := url.Parse(authURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse authorize url: %w", err)
	}
	u.Scheme = "https"
	u.Host = shop.String()
	if isOnline {
		q := u.Query()
		q.Set("grant_options[]", "per-user")
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
