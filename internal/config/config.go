package config

import (
	"log/slog"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName      string
	AppEnv       string
	AppURL       string
	Port         string
	SupportEmail string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret      string
	JWTExpiry      time.Duration
	EncryptionKey  string         // 32 bytes, hex or base64. Seals OAuth tokens at rest.
	TrustedProxies []netip.Prefix // Peers whose X-Forwarded-For is believed

	// Google (Sheets export token refresh)
	GoogleClientID     string
	GoogleClientSecret string
	SheetsBaseURL      string

	// AI providers
	LLMProvider         string // "anthropic", "openai" or "openai-assistant"; empty disables AI
	LLMAPIKey           string
	LLMModel            string
	LLMBaseURL          string
	LLMAssistantID      string
	LLMTimeout          time.Duration
	LLMRateLimit        float64 // requests per second
	LLMMaxRetries       int
	LLMMaxPollAttempts  int
	AIRequestsPerMinute int // per user, on advisor and insight endpoints

	// Insights
	InsightDebounce time.Duration
	RedisURL        string // Optional: shares the insight debounce across instances

	// Email
	EmailFrom    string
	ResendAPIKey string

	// Revenue webhooks
	StripeWebhookSecret string
	PolarWebhookSecret  string
	RevenueOwnerEmail   string // Fallback owner when a payment carries no user_id metadata

	// Observability (optional)
	SentryDSN string

	// Storage (S3-compatible: MinIO, AWS S3, Cloudflare R2, DigitalOcean Spaces, etc.)
	S3Region        string
	S3Bucket        string // Optional: empty disables CSV exports
	S3AccessKey     string
	S3SecretKey     string
	S3Endpoint      string        // Optional: for S3-compatible services (MinIO, DO Spaces, R2, etc.)
	S3PresignExpiry time.Duration // Lifetime of export download links
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName:      envString("APP_NAME", "Fractional"),
		AppEnv:       envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:       envRequired("APP_URL"), // Required: base URL for email links
		Port:         envString("PORT", "8090"),
		SupportEmail: envString("SUPPORT_EMAIL", "hello@example.com"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/fractional.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"),

		// Security
		JWTSecret:      envRequired("JWT_SECRET"),
		JWTExpiry:      envDuration("JWT_EXPIRY", 168*time.Hour), // 7 days
		EncryptionKey:  envString("ENCRYPTION_KEY", ""),
		TrustedProxies: envPrefixes("TRUSTED_PROXIES"), // e.g. "10.0.0.0/8,127.0.0.1"

		// Google
		GoogleClientID:     envString("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: envString("GOOGLE_CLIENT_SECRET", ""),
		SheetsBaseURL:      envString("SHEETS_BASE_URL", ""),

		// AI
		LLMProvider:         envString("LLM_PROVIDER", ""),
		LLMAPIKey:           envString("LLM_API_KEY", ""),
		LLMModel:            envString("LLM_MODEL", ""),
		LLMBaseURL:          envString("LLM_BASE_URL", ""),
		LLMAssistantID:      envString("LLM_ASSISTANT_ID", ""),
		LLMTimeout:          envDuration("LLM_TIMEOUT", 60*time.Second),
		LLMRateLimit:        envFloat("LLM_RATE_LIMIT", 1),
		LLMMaxRetries:       envInt("LLM_MAX_RETRIES", 3),
		LLMMaxPollAttempts:  envInt("LLM_MAX_POLL_ATTEMPTS", 30),
		AIRequestsPerMinute: envInt("AI_REQUESTS_PER_MINUTE", 10),

		// Insights
		InsightDebounce: envDuration("INSIGHT_DEBOUNCE", 5*time.Minute),
		RedisURL:        envString("REDIS_URL", ""),

		// Email (RESEND_API_KEY optional in development, required in production)
		EmailFrom:    envString("EMAIL_FROM", "noreply@example.com"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),

		// Revenue webhooks
		StripeWebhookSecret: envString("STRIPE_WEBHOOK_SECRET", ""),
		PolarWebhookSecret:  envString("POLAR_WEBHOOK_SECRET", ""),
		RevenueOwnerEmail:   envString("REVENUE_OWNER_EMAIL", ""),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Storage
		S3Region:        envString("S3_REGION", "us-east-1"),
		S3Bucket:        envString("S3_BUCKET", ""),
		S3AccessKey:     envString("S3_ACCESS_KEY", ""),
		S3SecretKey:     envString("S3_SECRET_KEY", ""),
		S3Endpoint:      envString("S3_ENDPOINT", ""),                   // Optional: for non-AWS providers
		S3PresignExpiry: envDuration("S3_PRESIGN_EXPIRY", 24*time.Hour), // Default: 1 day for export links
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction ensures all required services are configured for production deployments.
// Development allows some services (like email) to use fallback modes for easier local testing.
func validateProduction(cfg *Config) {
	if cfg.ResendAPIKey == "" {
		slog.Error("production deployment requires RESEND_API_KEY",
			"hint", "set APP_ENV=development for local testing with email log mode")
		os.Exit(1)
	}
	if cfg.EncryptionKey == "" {
		slog.Error("production deployment requires ENCRYPTION_KEY",
			"hint", "generate one with: openssl rand -hex 32")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return i
}

func envFloat(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("config invalid float, using default", "key", key, "value", v, "default", def)
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

// envPrefixes parses a comma separated list of IPs and CIDRs.
func envPrefixes(key string) []netip.Prefix {
	var prefixes []netip.Prefix
	for _, part := range strings.Split(os.Getenv(key), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if p, err := netip.ParsePrefix(part); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(part); err == nil {
			a = a.Unmap()
			prefixes = append(prefixes, netip.PrefixFrom(a, a.BitLen()))
			continue
		}
		slog.Warn("config invalid network, ignoring", "key", key, "value", part)
	}
	return prefixes
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// AIEnabled reports whether an LLM provider is configured.
func (c *Config) AIEnabled() bool {
	return c.LLMProvider != "" && c.LLMAPIKey != ""
}

// Sanitized returns a copy of the config with only public/safe fields.
// All secrets, credentials, and sensitive data are excluded.
// Safe to expose in ctx and client-facing responses.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName:      c.AppName,
		AppEnv:       c.AppEnv,
		AppURL:       c.AppURL,
		Port:         c.Port,
		SupportEmail: c.SupportEmail,

		EmailFrom: c.EmailFrom,

		GoogleClientID: c.GoogleClientID,
		LLMProvider:    c.LLMProvider,
		LLMModel:       c.LLMModel,
	}
}
