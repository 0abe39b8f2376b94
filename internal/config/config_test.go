package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setRequired(t *testing.T) {
	t.Setenv("SHOPIFY_API_KEY", "key")
	t.Setenv("SHOPIFY_API_SECRET", "secret")
	t.Setenv("COOKIE_SECRET", testSecret)
}

func TestFromEnv_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 5.0, cfg.Server.LoginRateLimit)
	assert.Equal(t, []string{"read_products"}, cfg.Shopify.Scopes)
	assert.Equal(t, "myshopify.com", cfg.Shopify.MyshopifyDomain)
	assert.False(t, cfg.Shopify.OnlineTokens)
	assert.True(t, cfg.Login.EmbeddedApp)
	assert.Equal(t, "/login", cfg.Login.LoginPath)
	assert.Equal(t, "auth/shopify/callback", cfg.Login.LoginCallbackPath)
	assert.Equal(t, "/", cfg.Login.RootURL)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.False(t, cfg.Session.SecureCookie)
}

func TestFromEnv_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_URL", "https://app.example.com")
	t.Setenv("SHOPIFY_SCOPES", "read_products, write_orders ,")
	t.Setenv("EMBEDDED_APP", "false")
	t.Setenv("ONLINE_TOKENS", "true")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("EMBEDDED_REDIRECT_URL", "https://app.example.com/exit-iframe")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, []string{"read_products", "write_orders"}, cfg.Shopify.Scopes)
	assert.False(t, cfg.Login.EmbeddedApp)
	assert.True(t, cfg.Shopify.OnlineTokens)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.True(t, cfg.Session.SecureCookie)
	assert.Equal(t, "https://app.example.com/exit-iframe", cfg.Login.EmbeddedRedirectURL)
}

func TestFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("SHOPIFY_API_KEY", "")
	t.Setenv("SHOPIFY_API_SECRET", "")
	t.Setenv("COOKIE_SECRET", testSecret)

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APIKey")
	assert.Contains(t, err.Error(), "APISecret")
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"short cookie secret", "COOKIE_SECRET", "short"},
		{"bad duration", "SESSION_TTL", "forever"},
		{"bad rate", "LOGIN_RATE_LIMIT", "fast"},
		{"negative rate", "LOGIN_RATE_LIMIT", "-1"},
		{"relative login path", "LOGIN_PATH", "login"},
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"bad port", "PORT", "http"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	for _, key := range []string{"SHOPIFY_API_KEY", "SHOPIFY_API_SECRET", "COOKIE_SECRET"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	path := filepath.Join(t.TempDir(), ".env")
	content := "SHOPIFY_API_KEY=file-key\nSHOPIFY_API_SECRET=file-secret\nCOOKIE_SECRET=" + testSecret + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, "file-key", cfg.Shopify.APIKey)
}

func TestLoad_MissingEnvFile(t *testing.T) {
	setRequired(t)

	cfg, loaded, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.False(t, loaded)
	assert.Equal(t, "key", cfg.Shopify.APIKey)
}
