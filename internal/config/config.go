package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPPort string
	AppURL   string

	DatabaseURL string

	SessionIssuer   string
	SessionAudience string
	SessionSecret   string
	SessionTTL      time.Duration
	CookieDomain    string
	CookieSecure    bool
	CookieSameSite  string

	CORSAllowedOrigins []string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GithubClientID     string
	GithubClientSecret string
	GithubRedirectURL  string
	StateSigningSecret string

	OTPTokenTTL           time.Duration
	OTPTokenCooldown      time.Duration
	VerifyEmailTokenTTL   time.Duration
	VerifyEmailCooldown   time.Duration
	PasswordResetTokenTTL time.Duration
	PasswordResetCooldown time.Duration

	// DemoBypassEmail enables the reviewer backdoor: with DemoMode on, this
	// account accepts any OTP code and skips outbound email. Off by default.
	DemoMode        bool
	DemoBypassEmail string

	ResendAPIKey    string
	MailFromAddress string

	SeedDemoEmail       string
	SeedDemoPassword    string
	BootstrapAdminEmail string

	AuthRateLimitPerMin  int
	APIRateLimitPerMin   int
	RateLimitRedisEnable bool
	RateLimitRedisPrefix string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int

	ReadinessProbeTimeout time.Duration

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSamplingRatio    float64
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELLogLevel              string
}

func Load() (*Config, error) {
	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		Env:         env,
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		AppURL:      getEnv("APP_URL", "http://localhost:3000"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		SessionIssuer:   getEnv("SESSION_ISSUER", "authflow"),
		SessionAudience: getEnv("SESSION_AUDIENCE", "authflow-api"),
		SessionSecret:   os.Getenv("SESSION_SECRET"),
		CookieDomain:    os.Getenv("COOKIE_DOMAIN"),
		CookieSecure:    getEnvBool("COOKIE_SECURE", true),
		CookieSameSite:  strings.ToLower(getEnv("COOKIE_SAMESITE", "lax")),

		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/v1/auth/google/callback"),
		GithubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GithubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GithubRedirectURL:  getEnv("GITHUB_REDIRECT_URL", "http://localhost:8080/api/v1/auth/github/callback"),
		StateSigningSecret: os.Getenv("OAUTH_STATE_SECRET"),

		DemoMode:        getEnvBool("AUTH_DEMO_MODE", false),
		DemoBypassEmail: strings.TrimSpace(strings.ToLower(os.Getenv("AUTH_DEMO_BYPASS_EMAIL"))),

		ResendAPIKey:    os.Getenv("RESEND_API_KEY"),
		MailFromAddress: getEnv("MAIL_FROM_ADDRESS", "onboarding@resend.dev"),

		SeedDemoEmail:       strings.TrimSpace(strings.ToLower(os.Getenv("SEED_DEMO_EMAIL"))),
		SeedDemoPassword:    os.Getenv("SEED_DEMO_PASSWORD"),
		BootstrapAdminEmail: strings.TrimSpace(strings.ToLower(os.Getenv("BOOTSTRAP_ADMIN_EMAIL"))),

		AuthRateLimitPerMin:  getEnvInt("AUTH_RATE_LIMIT_PER_MIN", 30),
		APIRateLimitPerMin:   getEnvInt("API_RATE_LIMIT_PER_MIN", 120),
		RateLimitRedisEnable: getEnvBool("RATE_LIMIT_REDIS_ENABLED", false),
		RateLimitRedisPrefix: getEnv("RATE_LIMIT_REDIS_PREFIX", "authflow:ratelimit"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getEnvInt("REDIS_DB", 0),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "authflow"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", env),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELTraceSamplingRatio:   getEnvFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", true),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", true),
		OTELLogsEnabled:          getEnvBool("OTEL_LOGS_ENABLED", true),
		OTELLogLevel:             strings.ToLower(getEnv("OTEL_LOG_LEVEL", "info")),
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"SESSION_TTL", "24h", &cfg.SessionTTL},
		{"OTP_TOKEN_TTL", "5m", &cfg.OTPTokenTTL},
		{"OTP_TOKEN_COOLDOWN", "60s", &cfg.OTPTokenCooldown},
		{"VERIFY_EMAIL_TOKEN_TTL", "15m", &cfg.VerifyEmailTokenTTL},
		{"VERIFY_EMAIL_TOKEN_COOLDOWN", "300s", &cfg.VerifyEmailCooldown},
		{"PASSWORD_RESET_TOKEN_TTL", "5m", &cfg.PasswordResetTokenTTL},
		{"PASSWORD_RESET_TOKEN_COOLDOWN", "60s", &cfg.PasswordResetCooldown},
		{"READINESS_PROBE_TIMEOUT", "2s", &cfg.ReadinessProbeTimeout},
		{"OTEL_METRICS_EXPORT_INTERVAL", "10s", &cfg.OTELMetricsExportInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if len(c.SessionSecret) < 32 {
		errs = append(errs, "SESSION_SECRET must be at least 32 chars")
	}
	if c.SessionTTL <= 0 || c.SessionTTL > 30*24*time.Hour {
		errs = append(errs, "SESSION_TTL must be between 1s and 30d")
	}
	if c.GoogleEnabled() || c.GithubEnabled() {
		if len(c.StateSigningSecret) < 16 {
			errs = append(errs, "OAUTH_STATE_SECRET must be at least 16 chars when an OAuth provider is configured")
		}
	}
	if c.DemoMode && c.DemoBypassEmail == "" {
		errs = append(errs, "AUTH_DEMO_BYPASS_EMAIL is required when AUTH_DEMO_MODE=true")
	}
	if c.OTPTokenTTL <= 0 || c.OTPTokenCooldown <= 0 ||
		c.VerifyEmailTokenTTL <= 0 || c.VerifyEmailCooldown <= 0 ||
		c.PasswordResetTokenTTL <= 0 || c.PasswordResetCooldown <= 0 {
		errs = append(errs, "token TTLs and cooldowns must be > 0")
	}
	if c.AuthRateLimitPerMin <= 0 {
		errs = append(errs, "AUTH_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, "OTEL_LOG_LEVEL must be one of debug, info, warn, error")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func (c *Config) GithubEnabled() bool {
	return c.GithubClientID != "" && c.GithubClientSecret != ""
}

func isValidLogLevel(v string) bool {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trim := strings.TrimSpace(p); trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
