// Package config loads service configuration from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Server  ServerConfig
	Shopify ShopifyConfig
	Login   LoginConfig
	Session SessionConfig
	Mongo   MongoConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string  `validate:"required,numeric"`
	AppURL         string  `validate:"required,url"`
	LogLevel       string  `validate:"oneof=trace debug info warn error"`
	LoginRateLimit float64 `validate:"gte=0"`
}

// ShopifyConfig holds the app credentials
type ShopifyConfig struct {
	APIKey          string   `validate:"required"`
	APISecret       string   `validate:"required"`
	Scopes          []string `validate:"required,min=1,dive,required"`
	MyshopifyDomain string   `validate:"required,fqdn"`
	OnlineTokens    bool
}

// LoginConfig holds the handshake settings
type LoginConfig struct {
	EmbeddedApp         bool
	EmbeddedRedirectURL string `validate:"omitempty,url"`
	LoginPath           string `validate:"required,startswith=/"`
	LoginCallbackPath   string `validate:"required"`
	RootURL             string `validate:"required"`
}

// SessionConfig holds session and cookie settings
type SessionConfig struct {
	RedisURL     string        `validate:"required"`
	TTL          time.Duration `validate:"gt=0"`
	CookieSecret string        `validate:"required,min=32"`
	SecureCookie bool
}

// MongoConfig holds the audit log database settings
type MongoConfig struct {
	URI      string `validate:"required"`
	Database string `validate:"required"`
}

// Load reads envFile when it exists, then the environment, and validates the result.
// The returned bool reports whether the .env file was found.
func Load(envFile string) (*Config, bool, error) {
	envLoaded := true
	if err := godotenv.Load(envFile); err != nil {
		envLoaded = false
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, envLoaded, err
	}
	return cfg, envLoaded, nil
}

// FromEnv builds the configuration from environment variables
func FromEnv() (*Config, error) {
	ttl, err := getDuration("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	rateLimit, err := getFloat("LOGIN_RATE_LIMIT", 5)
	if err != nil {
		return nil, err
	}

	appURL := getEnv("APP_URL", "http://localhost:8080")

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			AppURL:         appURL,
			LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
			LoginRateLimit: rateLimit,
		},
		Shopify: ShopifyConfig{
			APIKey:          os.Getenv("SHOPIFY_API_KEY"),
			APISecret:       os.Getenv("SHOPIFY_API_SECRET"),
			Scopes:          splitList(getEnv("SHOPIFY_SCOPES", "read_products")),
			MyshopifyDomain: getEnv("MYSHOPIFY_DOMAIN", "myshopify.com"),
			OnlineTokens:    getBool("ONLINE_TOKENS", false),
		},
		Login: LoginConfig{
			EmbeddedApp:         getBool("EMBEDDED_APP", true),
			EmbeddedRedirectURL: os.Getenv("EMBEDDED_REDIRECT_URL"),
			LoginPath:           getEnv("LOGIN_PATH", "/login"),
			LoginCallbackPath:   getEnv("LOGIN_CALLBACK_PATH", "auth/shopify/callback"),
			RootURL:             getEnv("ROOT_URL", "/"),
		},
		Session: SessionConfig{
			RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
			TTL:          ttl,
			CookieSecret: os.Getenv("COOKIE_SECRET"),
			SecureCookie: getBool("SECURE_COOKIE", strings.HasPrefix(appURL, "https://")),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "shopify_login"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fields := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", e.Namespace(), e.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
