package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadRateLimitConfig_Defaults(t *testing.T) {
	cfg := LoadRateLimitConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 60, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, time.Second, cfg.RefillInterval)
	assert.Equal(t, 10*time.Minute, cfg.TTL)
	assert.Equal(t, "ip_user_route", cfg.KeyStrategy)
	assert.Equal(t, "rl", cfg.Prefix)
	assert.False(t, cfg.Debug)
}

func TestLoadRateLimitConfig_Overrides(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("RATE_LIMIT_CAPACITY", "10")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "2")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "500ms")
	t.Setenv("RATE_LIMIT_KEY_STRATEGY", "user")
	t.Setenv("RATE_LIMIT_PREFIX", "throttle")

	cfg := LoadRateLimitConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, 10, cfg.Capacity)
	assert.Equal(t, 2, cfg.RefillTokens)
	assert.Equal(t, 500*time.Millisecond, cfg.RefillInterval)
	assert.Equal(t, "user", cfg.KeyStrategy)
	assert.Equal(t, "throttle", cfg.Prefix)
}

// A TTL shorter than the refill cycle would drop buckets that are
// still refilling, so it is clamped to five intervals.
func TestLoadRateLimitConfig_TTLClamp(t *testing.T) {
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
	t.Setenv("RATE_LIMIT_TTL", "30s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 5*time.Minute, cfg.TTL)
}

func TestLoadRateLimitConfig_ClampsZeroCapacity(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-3")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_STR", "value")
	t.Setenv("X_BOOL", "true")
	t.Setenv("X_INT", "42")
	t.Setenv("X_DUR", "250ms")

	assert.Equal(t, "value", strOr("X_STR", "def"))
	assert.Equal(t, "def", strOr("X_STR_MISSING", "def"))
	assert.True(t, boolOr("X_BOOL", false))
	assert.False(t, boolOr("X_BOOL_MISSING", false))
	assert.Equal(t, 42, intOr("X_INT", 7))
	assert.Equal(t, 7, intOr("X_INT_MISSING", 7))
	assert.Equal(t, 250*time.Millisecond, durationOr("X_DUR", time.Second))
	assert.Equal(t, time.Second, durationOr("X_DUR_MISSING", time.Second))
}
