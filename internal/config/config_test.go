package config

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("FRACTIONAL_TEST_INT", "7")
	t.Setenv("FRACTIONAL_TEST_BAD_INT", "seven")
	t.Setenv("FRACTIONAL_TEST_FLOAT", "0.5")
	t.Setenv("FRACTIONAL_TEST_DURATION", "90s")
	t.Setenv("FRACTIONAL_TEST_BOOL", "true")

	assert.Equal(t, 7, envInt("FRACTIONAL_TEST_INT", 1))
	assert.Equal(t, 1, envInt("FRACTIONAL_TEST_BAD_INT", 1))
	assert.Equal(t, 0.5, envFloat("FRACTIONAL_TEST_FLOAT", 1))
	assert.Equal(t, 90*time.Second, envDuration("FRACTIONAL_TEST_DURATION", time.Second))
	assert.True(t, envBool("FRACTIONAL_TEST_BOOL", false))
	assert.Equal(t, "fallback", envString("FRACTIONAL_TEST_UNSET", "fallback"))
}

func TestEnvPrefixes(t *testing.T) {
	t.Setenv("FRACTIONAL_TEST_PROXIES", "10.0.0.0/8, 127.0.0.1,not-an-ip, ::1")

	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("127.0.0.1/32"),
		netip.MustParsePrefix("::1/128"),
	}, envPrefixes("FRACTIONAL_TEST_PROXIES"))
	assert.Empty(t, envPrefixes("FRACTIONAL_TEST_UNSET"))
}

func TestLoad(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_URL", "http://localhost:8090")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("LLM_API_KEY", "sk-test")

	cfg := Load()
	assert.True(t, cfg.IsDevelopment())
	assert.True(t, cfg.AIEnabled())
	assert.Equal(t, 30, cfg.LLMMaxPollAttempts)
	assert.Equal(t, "sqlite", cfg.DBDriver)
}

func TestSanitized_DropsSecrets(t *testing.T) {
	cfg := &Config{AppName: "Fractional", JWTSecret: "s", LLMAPIKey: "k", EncryptionKey: "e", GoogleClientSecret: "g", StripeWebhookSecret: "w"}

	safe := cfg.Sanitized()
	assert.Equal(t, "Fractional", safe.AppName)
	assert.Empty(t, safe.JWTSecret)
	assert.Empty(t, safe.LLMAPIKey)
	assert.Empty(t, safe.EncryptionKey)
	assert.Empty(t, safe.GoogleClientSecret)
	assert.Empty(t, safe.StripeWebhookSecret)
}
