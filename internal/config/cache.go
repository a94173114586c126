package config

import (
	"log/slog"
	"strings"
	"time"
)

// Cache key strategies.  The default includes the requester because every
// template view depends on who is asking; the others only suit deployments
// where all users see the same catalogue.
const (
	CacheKeyUserRouteQuery   = "user_route_query"
	CacheKeyRouteQuery       = "route_query"
	CacheKeyMethodRouteQuery = "method_route_query"
)

// CacheConfig defines settings for the response cache in front of the
// aggregate template reads.  Caching is off when Enabled is false or no
// Redis client is configured.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool // upper-case HTTP methods eligible for caching
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int // larger responses are served but not stored
}

// LoadCacheConfig reads CACHE_* environment variables.
func LoadCacheConfig() CacheConfig {
	c := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", 15*time.Second),
		KeyStrategy:  strings.ToLower(envStr("CACHE_KEY_STRATEGY", CacheKeyUserRouteQuery)),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	switch c.KeyStrategy {
	case CacheKeyUserRouteQuery, CacheKeyRouteQuery, CacheKeyMethodRouteQuery:
	default:
		slog.Warn("unknown CACHE_KEY_STRATEGY, using default", "value", c.KeyStrategy)
		c.KeyStrategy = CacheKeyUserRouteQuery
	}
	return c
}

// parseMethods turns "get, head" into {"GET": true, "HEAD": true}.
func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			m[p] = true
		}
	}
	return m
}
