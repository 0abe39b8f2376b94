package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"archie-shopify-login/docs"
	"archie-shopify-login/internal/application"
	"archie-shopify-login/internal/config"
	apiinfra "archie-shopify-login/internal/infrastructure/api"
	"archie-shopify-login/internal/infrastructure/cookies"
	"archie-shopify-login/internal/infrastructure/encryption"
	"archie-shopify-login/internal/infrastructure/metrics"
	"archie-shopify-login/internal/infrastructure/repository"
	"archie-shopify-login/internal/infrastructure/session"
	shopifyinfra "archie-shopify-login/internal/infrastructure/shopify"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, envLoaded, err := config.Load(".env")
	if !envLoaded {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.Server.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to Redis (sessions)
	redisOpts, err := redis.ParseURL(cfg.Session.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid REDIS_URL")
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	// Connect to MongoDB (auth attempt audit log)
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())

	attemptRepo := repository.NewMongoAuthAttemptRepository(mongoClient.Database(cfg.Mongo.Database))
	if err := attemptRepo.EnsureIndexes(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to ensure auth attempt indexes")
	}

	// Initialize infrastructure (implementations)
	encryptionService, err := encryption.NewService(cfg.Session.CookieSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	sessionStore := session.NewRedisStore(redisClient, "shopify_login:session", cfg.Session.TTL)
	identity := session.NewIdentity(cfg.Session.TTL, cfg.Session.SecureCookie)
	cookieManager := cookies.NewManager(encryptionService)
	recorder := metrics.NewRecorder()

	provider := shopifyinfra.NewOAuthProvider(
		cfg.Shopify.APIKey,
		cfg.Shopify.APISecret,
		cfg.Shopify.Scopes,
		cfg.Server.AppURL,
		logger,
	)
	policy := shopifyinfra.NewSessionPolicy(cfg.Shopify.OnlineTokens)

	// Initialize application services
	loginService := application.NewLoginService(
		application.LoginConfig{
			EmbeddedApp:         cfg.Login.EmbeddedApp,
			EmbeddedRedirectURL: cfg.Login.EmbeddedRedirectURL,
			LoginPath:           cfg.Login.LoginPath,
			LoginCallbackPath:   cfg.Login.LoginCallbackPath,
			RootURL:             cfg.Login.RootURL,
			MyshopifyDomain:     cfg.Shopify.MyshopifyDomain,
		},
		provider,
		policy,
		recorder,
		logger,
	)

	loginHandler, err := apiinfra.NewLoginHandler(
		loginService,
		sessionStore,
		identity,
		cookieManager,
		attemptRepo,
		cfg.Login.LoginPath,
		shopifyinfra.SessionCookieName,
		logger,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize login handler")
	}

	router := apiinfra.NewRouter(loginHandler, apiinfra.RouterOptions{
		LoginPath:      cfg.Login.LoginPath,
		LoginRateLimit: cfg.Server.LoginRateLimit,
		Metrics:        recorder.Handler(),
		SwaggerDoc:     docs.SwaggerJSON,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	logger.Info().
		Str("port", cfg.Server.Port).
		Bool("embedded", cfg.Login.EmbeddedApp).
		Str("login_path", cfg.Login.LoginPath).
		Msg("Starting API server")
	logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.Server.Port + "/swagger/index.html")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
	logger.Info().Msg("Server stopped")
}
