package config

import (
	"log/slog" // unknown strategies are reported, not fatal
	"strings"
	"time"
)

// Rate limit key strategies: which request attributes share a bucket.
const (
	RateKeyIP            = "ip"
	RateKeyUser          = "user"
	RateKeyIPUser        = "ip_user"
	RateKeyUserRoute     = "user_route"
	RateKeyIPUserRoute   = "ip_user_route"
	defaultRateKeyPolicy = RateKeyIPUser
)

var rateKeyStrategies = map[string]bool{
	RateKeyIP: true, RateKeyUser: true, RateKeyIPUser: true,
	RateKeyUserRoute: true, RateKeyIPUserRoute: true,
}

// RateLimitConfig drives the Redis token bucket applied to the /api
// groups: Capacity tokens, refilled by RefillTokens every RefillInterval.
// An idle bucket expires after TTL.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool // exposes the bucket key in X-RateLimit-Key
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables and clamps them to a
// usable bucket.  The TTL never drops below five refill intervals so an
// idle bucket is not forgotten before it could have refilled.
func LoadRateLimitConfig() RateLimitConfig {
	rl := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 120),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 2),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    strings.ToLower(envStr("RATE_LIMIT_KEY_STRATEGY", defaultRateKeyPolicy)),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	rl.Capacity = max(rl.Capacity, 1)
	rl.RefillTokens = max(rl.RefillTokens, 1)
	if rl.RefillInterval <= 0 {
		rl.RefillInterval = time.Second
	}
	rl.TTL = max(rl.TTL, 5*rl.RefillInterval)
	if !rateKeyStrategies[rl.KeyStrategy] {
		slog.Warn("unknown RATE_LIMIT_KEY_STRATEGY, using default", "value", rl.KeyStrategy, "default", defaultRateKeyPolicy)
		rl.KeyStrategy = defaultRateKeyPolicy
	}
	return rl
}
