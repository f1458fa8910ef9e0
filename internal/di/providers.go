package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"authflow/internal/app"
	"authflow/internal/config"
	"authflow/internal/database"
	"authflow/internal/domain"
	"authflow/internal/health"
	"authflow/internal/http/handler"
	"authflow/internal/http/middleware"
	"authflow/internal/http/router"
	"authflow/internal/observability"
	"authflow/internal/repository"
	"authflow/internal/security"
	"authflow/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var TelemetrySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

// StorageSet covers everything that talks to a datastore: the migrated
// gorm handle, the optional redis client, repositories and readiness.
var StorageSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideReadinessProbeRunner,
	repository.NewUserRepository,
	repository.NewOAuthRepository,
)

// AuthSet assembles the credential, token, session and settings services
// together with the signing and cookie primitives they depend on.
var AuthSet = wire.NewSet(
	provideSessionTokenManager,
	provideCookieManager,
	service.NewSessionService,
	provideMailer,
	provideAuthService,
	provideOAuthService,
	service.NewSettingsService,
	wire.Bind(new(service.AuthServiceInterface), new(*service.AuthService)),
	wire.Bind(new(service.SettingsServiceInterface), new(*service.SettingsService)),
)

var TransportSet = wire.NewSet(
	handler.NewAuthHandler,
	provideOAuthHandler,
	handler.NewUserHandler,
	handler.NewSettingsHandler,
	handler.NewAdminHandler,
	provideGlobalRateLimiter,
	provideTokenRateLimiter,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(app.New)

type GlobalRateLimiterFunc func(http.Handler) http.Handler
type TokenRateLimiterFunc func(http.Handler) http.Handler

type MigrationRunner struct {
	cfg *config.Config
	db  *gorm.DB
}

func NewMigrationRunner(cfg *config.Config, db *gorm.DB) *MigrationRunner {
	return &MigrationRunner{cfg: cfg, db: db}
}

func (m *MigrationRunner) Run() (*database.SeedReport, error) {
	if err := database.Migrate(m.db); err != nil {
		return nil, err
	}
	return database.Seed(m.db, m.cfg.SeedDemoEmail, m.cfg.SeedDemoPassword, m.cfg.BootstrapAdminEmail)
}

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

func provideRuntimeDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	if _, err := database.Seed(db, cfg.SeedDemoEmail, cfg.SeedDemoPassword, cfg.BootstrapAdminEmail); err != nil {
		return nil, err
	}
	return db, nil
}

func provideRedisClient(cfg *config.Config) redis.UniversalClient {
	if !cfg.RateLimitRedisEnable {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func provideSessionTokenManager(cfg *config.Config) *security.SessionTokenManager {
	return security.NewSessionTokenManager(cfg.SessionIssuer, cfg.SessionAudience, cfg.SessionSecret, cfg.SessionTTL)
}

func provideCookieManager(cfg *config.Config) *security.CookieManager {
	return security.NewCookieManager(cfg.CookieDomain, cfg.CookieSecure, cfg.CookieSameSite)
}

func provideMailer(cfg *config.Config, logger *slog.Logger) service.Mailer {
	if cfg.ResendAPIKey != "" {
		return service.NewResendMailer(cfg.ResendAPIKey, cfg.MailFromAddress)
	}
	return service.NewLogMailer(logger)
}

// provideAuthService assembles the three token managers itself; they share
// one concrete type and differ only in backing table and limits.
func provideAuthService(cfg *config.Config, db *gorm.DB, userRepo repository.UserRepository, mailer service.Mailer) *service.AuthService {
	otpTokens := service.NewOTPTokenService(
		repository.NewLoginTokenRepository(db, domain.TableEmailOTPTokens),
		cfg.OTPTokenTTL, cfg.OTPTokenCooldown)
	verifyTokens := service.NewUUIDTokenService(
		repository.NewLoginTokenRepository(db, domain.TableEmailVerificationTokens),
		cfg.VerifyEmailTokenTTL, cfg.VerifyEmailCooldown)
	resetTokens := service.NewUUIDTokenService(
		repository.NewLoginTokenRepository(db, domain.TablePasswordResetTokens),
		cfg.PasswordResetTokenTTL, cfg.PasswordResetCooldown)
	return service.NewAuthService(cfg, userRepo, otpTokens, verifyTokens, resetTokens, mailer)
}

func provideOAuthService(cfg *config.Config, userRepo repository.UserRepository, oauthRepo repository.OAuthRepository) *service.OAuthService {
	providers := make([]service.OAuthProvider, 0, 2)
	if cfg.GoogleEnabled() {
		providers = append(providers, service.NewGoogleOAuthProvider(cfg))
	}
	if cfg.GithubEnabled() {
		providers = append(providers, service.NewGithubOAuthProvider(cfg))
	}
	return service.NewOAuthService(userRepo, oauthRepo, providers...)
}

func provideOAuthHandler(
	oauthSvc *service.OAuthService,
	sessions *service.SessionService,
	tokens *security.SessionTokenManager,
	cookieMgr *security.CookieManager,
	cfg *config.Config,
) *handler.OAuthHandler {
	return handler.NewOAuthHandler(oauthSvc, sessions, tokens, cookieMgr, cfg.StateSigningSecret)
}

func provideGlobalRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) GlobalRateLimiterFunc {
	if cfg.RateLimitRedisEnable && redisClient != nil {
		limiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RateLimitRedisPrefix+":api")
		return middleware.NewScopedRateLimiter(limiter, cfg.APIRateLimitPerMin, time.Minute, middleware.FailOpen, "api").Middleware()
	}
	return middleware.NewRateLimiter(cfg.APIRateLimitPerMin, time.Minute).Middleware()
}

func provideTokenRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) TokenRateLimiterFunc {
	if cfg.RateLimitRedisEnable && redisClient != nil {
		limiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RateLimitRedisPrefix+":auth")
		return middleware.NewScopedRateLimiter(limiter, cfg.AuthRateLimitPerMin, time.Minute, middleware.FailClosed, "auth").Middleware()
	}
	return middleware.NewRateLimiter(cfg.AuthRateLimitPerMin, time.Minute).Middleware()
}

func provideRouterDependencies(
	authHandler *handler.AuthHandler,
	oauthHandler *handler.OAuthHandler,
	userHandler *handler.UserHandler,
	settingsHandler *handler.SettingsHandler,
	adminHandler *handler.AdminHandler,
	tokens *security.SessionTokenManager,
	sessions *service.SessionService,
	globalLimiter GlobalRateLimiterFunc,
	tokenLimiter TokenRateLimiterFunc,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:     authHandler,
		OAuthHandler:    oauthHandler,
		UserHandler:     userHandler,
		SettingsHandler: settingsHandler,
		AdminHandler:    adminHandler,
		SessionTokens:   tokens,
		SessionService:  sessions,
		CORSOrigins:     cfg.CORSAllowedOrigins,
		APIRateLimitRPM: cfg.APIRateLimitPerMin,
		TokenLimitRPM:   cfg.AuthRateLimitPerMin,
		GlobalLimiter:   globalLimiter,
		TokenLimiter:    tokenLimiter,
		Readiness:       readiness,
		EnableOTelHTTP:  cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideReadinessProbeRunner(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient) *health.ProbeRunner {
	checkers := []health.Checker{health.NewDBChecker(db)}
	if cfg.RateLimitRedisEnable {
		checkers = append(checkers, health.NewRedisChecker(redisClient))
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, checkers...)
}
