package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func setRequired(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_USER", "svc")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "table_service")
	t.Setenv("JWT_SECRET", "s3cret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	for _, k := range []string{"CALL_RATE_WINDOW", "ORDER_RATE_WINDOW", "RATING_LOOKBACK", "LIVE_POLL_INTERVAL",
		"METRICS_POLL_INTERVAL", "MIN_STARS_REDIRECT", "ADMISSION_BACKEND", "DB_MIGRATE", "RABBITMQ_URL", "AMQP_URL"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, 30*time.Second, cfg.CallRateWindow)
	assert.Equal(t, 30*time.Second, cfg.OrderRateWindow)
	assert.Equal(t, 30*time.Minute, cfg.RatingLookback)
	assert.Equal(t, 2*time.Second, cfg.LiveInterval)
	assert.Equal(t, 30*time.Second, cfg.MetricsInterval)
	assert.Equal(t, 4, cfg.MinStarsRedirect)
	assert.Equal(t, "memory", cfg.AdmissionBackend)
	assert.False(t, cfg.DBMigrate)
	assert.Empty(t, cfg.RabbitURL)
	assert.Equal(t, time.Hour, cfg.AccessTTL)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CALL_RATE_WINDOW", "10s")
	t.Setenv("MIN_STARS_REDIRECT", "5")
	t.Setenv("ADMISSION_BACKEND", "Redis")
	t.Setenv("DB_MIGRATE", "true")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://guest:guest@mq:5672/")
	cfg := Load()
	assert.Equal(t, 10*time.Second, cfg.CallRateWindow)
	assert.Equal(t, 5, cfg.MinStarsRedirect)
	assert.Equal(t, "redis", cfg.AdmissionBackend)
	assert.True(t, cfg.DBMigrate)
	assert.Equal(t, "amqp://guest:guest@mq:5672/", cfg.RabbitURL)
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_KEY_STRATEGY", "bogus")
	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.TTL)
	assert.Equal(t, "ip_token", cfg.KeyStrategy)
}
