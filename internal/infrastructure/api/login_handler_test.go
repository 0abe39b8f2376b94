package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"archie-shopify-login/internal/application"
	"archie-shopify-login/internal/domain"
	"archie-shopify-login/internal/infrastructure/cookies"
	"archie-shopify-login/internal/infrastructure/encryption"
	"archie-shopify-login/internal/infrastructure/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSessionPrefix = "test:session"
	correlationCookie = "shopify_app_session"
)

type stubProvider struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (p *stubProvider) BeginAuth(_ context.Context, shop domain.ShopDomain, redirectPath string, _ bool) (*domain.AuthRedirect, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &domain.AuthRedirect{
		AuthURL: "https://" + shop.String() + "/admin/oauth/authorize?redirect_uri=" + url.QueryEscape(redirectPath) + "&state=Ab3dEf9hIjKlMnO",
		Cookie: domain.CorrelationCookie{
			Name:      correlationCookie,
			Value:     "Ab3dEf9hIjKlMnO",
			ExpiresAt: time.Now().Add(time.Minute),
		},
	}, nil
}

type offlinePolicy struct{}

func (offlinePolicy) UserSessionExpected(domain.ShopDomain) bool { return false }

type memoryAttempts struct {
	mu       sync.Mutex
	attempts []*domain.AuthAttempt
	err      error
}

func (m *memoryAttempts) Record(_ context.Context, attempt *domain.AuthAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.attempts = append(m.attempts, attempt)
	return nil
}

type testServer struct {
	handler  http.Handler
	mr       *miniredis.Miniredis
	provider *stubProvider
	attempts *memoryAttempts
	cookies  *cookies.Manager
}

func newTestServer(t *testing.T, cfg application.LoginConfig) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	encryptionSvc, err := encryption.NewService("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	provider := &stubProvider{}
	attempts := &memoryAttempts{}
	cookieManager := cookies.NewManager(encryptionSvc)
	logger := zerolog.Nop()

	svc := application.NewLoginService(cfg, provider, offlinePolicy{}, nil, logger)
	login, err := NewLoginHandler(
		svc,
		session.NewRedisStore(client, testSessionPrefix, time.Hour),
		session.NewIdentity(time.Hour, true),
		cookieManager,
		attempts,
		"/login",
		correlationCookie,
		logger,
	)
	require.NoError(t, err)

	return &testServer{
		handler:  NewRouter(login, RouterOptions{LoginPath: "/login"}, logger),
		mr:       mr,
		provider: provider,
		attempts: attempts,
		cookies:  cookieManager,
	}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// follow issues GET target with the session cookie and keeps following
// same-origin redirects until a non-redirect response arrives
func (s *testServer) follow(t *testing.T, target string, sid *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.AddCookie(sid)
		rec := s.do(req)
		if rec.Code < 300 || rec.Code >= 400 {
			return rec
		}
		target = rec.Header().Get("Location")
		require.True(t, strings.HasPrefix(target, "/"), "unexpected redirect to %s", target)
	}
	t.Fatalf("too many redirects")
	return nil
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func sessionKey(sessionID string) string {
	return testSessionPrefix + ":" + sessionID
}

func TestLogin_NewRendersFormWithoutFrameRestriction(t *testing.T) {
	srv := newTestServer(t, application.LoginConfig{EmbeddedApp: true})

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/login?return_to=%2Fadmin%2Fsettings", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	_, present := rec.Header()["X-Frame-Options"]
	assert.False(t, present)
	assert.Contains(t, rec.Body.String(), `<form method="post" action="/login">`)
	assert.Contains(t, rec.Body.String(), `name="return_to" value="/admin/settings"`)
	assert.Nil(t, findCookie(rec, correlationCookie))
	assert.Zero(t, srv.provider.calls)
}

func TestLogin_OtherRoutesKeepFrameRestriction(t *testing.T) {
	srv := newTestServer(t, application.LoginConfig{EmbeddedApp: true})

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/login/interaction?shop=example", nil))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
}

func TestLogin_CreateEmbeddedBreaksOutOfIframe(t *testing.T) {
	srv := newTestServer(t, application.LoginConfig{EmbeddedApp: true})

	rec := srv.do(postForm("/login", url.Values{"shop": {"example"}, "return_to": {"/admin/settings"}}))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "window.top.location.href")
	assert.Contains(t, body, `top_level=true`)
	assert.Contains(t, body, `example.myshopify.com`)
	assert.Nil(t, findCookie(rec, correlationCookie))
	assert.Zero(t, srv.provider.calls)

	sid := findCookie(rec, session.CookieName)
	require.NotNil(t, sid)
	assert.Equal(t, "/admin/settings", srv.mr.HGet(sessionKey(sid.Value), domain.SessionKeyReturnTo))
}

func TestLogin_TopLevelBeginsAuth(t *testing.T) {
	srv := newTestServer(t, application.LoginConfig{EmbeddedApp: true, LoginCallbackPath: "auth/shopify/callback"})

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/login?shop=example.myshopify.com&top_level=true", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	assert.True(t, strings.HasPrefix(location, "https://example.myshopify.com/admin/oauth/authorize"))
	assert.Contains(t, location, url.QueryEscape("/auth/shopify/callback"))
	assert.Equal(t, 1, srv.provider.calls)

	c := findCookie(rec, correlationCookie)
	require.NotNil(t, c)
	assert.True(t, c.Secure)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteNoneMode, c.SameSite)

	state, err := srv.cookies.Open(c)
	require.NoError(t, err)
	assert.Equal(t, "Ab3dEf9hIjKlMnO", state)

	require.Len(t, srv.attempts.attempts, 1)
	assert.Equal(t, "example.myshopify.com", srv.attempts.attempts[0].Shop)
	assert.Equal(t, domain.HashState("Ab3dEf9hIjKlMnO"), srv.attempts.attempts[0].StateHash)
}

func TestLogin_AttemptRecordFailureDoesNotBlockRedirect(t *testing.T) {
	srv := newTestServer(t, application.LoginConfig{EmbeddedApp: false})
	srv.attempts.err = errors.New("mongo down")

	rec := srv.do(postForm("/login", url.Values{"shop": {"example"}}))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.NotNil(t, findCookie(rec, correlationCookie))
}

func TestLogin_EmbeddedRedirect(t *testing.T) {
	srv := newTestServer(t, application.LoginConfig{
		EmbeddedApp:         true,
		EmbeddedRedirectURL: "https://app.example.com/exit-iframe",
	})

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/login?shop=example&embedded=1", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://app.example.com/exit-iframe?shop=example.myshopify.com", rec.Header().Get("Location"))
	assert.Zero(t, srv.provider.calls)
	assert.Nil(t, findCookie(rec, correlationCookie))
}

func TestLogin_InvalidShopFlashesOnce(t *testing.T) {
	srv := newTestServer(t, application.LoginConfig{EmbeddedApp: true})

	rec := srv.do(postForm("/login", url.Values{"shop": {"example.com"}}))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Zero(t, srv.provider.calls)

	sid := findCookie(rec, session.CookieName)
	require.NotNil(t, sid)

	var flash domain.Flash
	require.NoError(t, json.Unmarshal([]byte(srv.mr.HGet(sessionKey(sid.Value), domain.SessionKeyFlash)), &flash))
	assert.Equal(t, domain.FlashError, flash.Kind)

	rec = srv.follow(t, rec.Header().Get("Location"), sid)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid shop domain")
	assert.Contains(t, rec.Body.String(), `<form method="post" action="/login">`)

	rec = srv.follow(t, "/", sid)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Invalid shop domain")
}

func TestRouter_RootRedirectsToLogin(t *testing.T) {
	srv := newTestServer(t, application.LoginConfig{EmbeddedApp: true})

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/?shop=example&host=YWRtaW4", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?shop=example&host=YWRtaW4", rec.Header().Get("Location"))
}

func TestLogin_InvalidShopConsumesStoredReturnTo(t *testing.T) {
	srv := newTestServer(t, application.LoginConfig{EmbeddedApp: true})

	sidValue := "4a3b0f2e-2c5d-4e8f-9a1b-7c6d5e4f3a2b"
	srv.mr.HSet(sessionKey(sidValue), domain.SessionKeyReturnTo, "/orders")

	req := postForm("/login", url.Values{"shop": {"nope.com"}})
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sidValue})
	rec := srv.do(req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/orders", rec.Header().Get("Location"))
	assert.Empty(t, srv.mr.HGet(sessionKey(sidValue), domain.SessionKeyReturnTo))
}

func TestLogin_ProviderFailureIsServerError(t *testing.T) {
	srv := newTestServer(t, application.LoginConfig{EmbeddedApp: false})
	srv.provider.err = errors.New("boom")

	rec := srv.do(postForm("/login", url.Values{"shop": {"example"}}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Nil(t, findCookie(rec, correlationCookie))
}

func TestLogin_TopLevelInteraction(t *testing.T) {
	srv := newTestServer(t, application.LoginConfig{EmbeddedApp: true})

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/login/interaction?shop=example", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Continue to example.myshopify.com")
	assert.Contains(t, rec.Body.String(), `href="/login?shop=example.myshopify.com&amp;top_level=true"`)
}

func TestLogout_ClearsSession(t *testing.T) {
	for _, method := range []string{http.MethodDelete, http.MethodPost, http.MethodGet} {
		t.Run(method, func(t *testing.T) {
			srv := newTestServer(t, application.LoginConfig{EmbeddedApp: true})

			sidValue := "4a3b0f2e-2c5d-4e8f-9a1b-7c6d5e4f3a2b"
			srv.mr.HSet(sessionKey(sidValue), domain.SessionKeyReturnTo, "/orders")
			srv.mr.HSet(sessionKey(sidValue), "shop_id", "42")

			req := httptest.NewRequest(method, "/logout?shop=example", nil)
			req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sidValue})
			rec := srv.do(req)

			require.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "/login?shop=example.myshopify.com", rec.Header().Get("Location"))
			assert.False(t, srv.mr.Exists(sessionKey(sidValue)))

			renewed := findCookie(rec, session.CookieName)
			require.NotNil(t, renewed)
			assert.NotEqual(t, sidValue, renewed.Value)

			var flash domain.Flash
			require.NoError(t, json.Unmarshal([]byte(srv.mr.HGet(sessionKey(renewed.Value), domain.SessionKeyFlash)), &flash))
			assert.Equal(t, domain.FlashNotice, flash.Kind)
			assert.Equal(t, "Successfully logged out", flash.Message)

			expired := findCookie(rec, correlationCookie)
			require.NotNil(t, expired)
			assert.Equal(t, -1, expired.MaxAge)
		})
	}
}

func TestLogin_RateLimitsCreate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	encryptionSvc, err := encryption.NewService("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	svc := application.NewLoginService(application.LoginConfig{EmbeddedApp: true}, &stubProvider{}, offlinePolicy{}, nil, zerolog.Nop())
	login, err := NewLoginHandler(svc, session.NewRedisStore(client, testSessionPrefix, time.Hour),
		session.NewIdentity(time.Hour, true), cookies.NewManager(encryptionSvc), nil, "/login", correlationCookie, zerolog.Nop())
	require.NoError(t, err)

	handler := NewRouter(login, RouterOptions{LoginPath: "/login", LoginRateLimit: 0.5}, zerolog.Nop())

	var codes []int
	for i := 0; i < 3; i++ {
		req := postForm("/login", url.Values{"shop": {"example"}})
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRouter_Health(t *testing.T) {
	srv := newTestServer(t, application.LoginConfig{})

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
