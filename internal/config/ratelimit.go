package config

import "time"

// RateLimitConfig tunes the Redis token bucket guarding the
// reservation write path.
//
// Fields:
//  Enabled        – master switch; when false the middleware passes through.
//  Capacity       – bucket size, the burst a requester may spend at once.
//  RefillTokens   – tokens added per refill interval.
//  RefillInterval – how often the bucket refills.
//  TTL            – how long an idle bucket survives in Redis.
//  KeyStrategy    – what identifies a bucket (see middleware.buildRateKey).
//  Prefix         – Redis key namespace for bucket hashes.
//  Debug          – emit X-RateLimit-* headers on throttled responses.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads limiter tuning from the environment.
// Values are clamped to working minimums, and the bucket TTL is held
// at five refill intervals or more so an idle bucket never evaporates
// mid-cycle.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        boolOr("RATE_LIMIT_ENABLED", true),
		Capacity:       intOr("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   intOr("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: durationOr("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            durationOr("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    strOr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:         strOr("RATE_LIMIT_PREFIX", "rl"),
		Debug:          boolOr("RATE_LIMIT_DEBUG", false),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg
}
