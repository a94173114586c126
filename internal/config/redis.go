package config

// Redis backs the /api rate limiter and the response cache for the aggregate
// template endpoints.  Both degrade to pass-through when no client is
// available, so a failed connection at startup is logged and not fatal.

import (
	"context"
	"crypto/tls"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from the environment.  REDIS_URL
// (redis:// or rediss://) wins when set; otherwise:
//
//	REDIS_ADDR – host:port, overridden by REDIS_HOST + REDIS_PORT
//	REDIS_PASSWORD – optional password
//	REDIS_DB – database number (default 0)
//	REDIS_TLS – enable TLS
func RedisOptions() (*redis.Options, error) {
	if url := os.Getenv("REDIS_URL"); url != "" {
		return redis.ParseURL(url)
	}
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	opts := &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       envInt("REDIS_DB", 0),
	}
	if envBool("REDIS_TLS", false) {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}

// NewRedisClient returns nil when REDIS_DISABLED is set, the options are
// invalid, or the server does not answer a ping.
func NewRedisClient() *redis.Client {
	if envBool("REDIS_DISABLED", false) {
		return nil
	}
	opts, err := RedisOptions()
	if err != nil {
		slog.Warn("invalid REDIS_URL; rate limiting and caching disabled", "error", err)
		return nil
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable; rate limiting and caching disabled", "addr", opts.Addr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}
