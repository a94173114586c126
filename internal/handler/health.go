package handler // HTTP handlers

import (
	"context"      // probe deadline
	"database/sql" // primary store
	"net/http"     // status codes
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9" // optional limiter/cache backend
)

// healthReport is the /healthz body.  Redis is optional: when it is down
// the limiter and cache pass requests through, so the service reports
// "degraded" but stays in rotation.
type healthReport struct {
	Status   string `json:"status"`   // ok | degraded | down
	Database string `json:"database"` // up | down
	Redis    string `json:"redis"`    // up | down | disabled
}

// Health probes the database and, if configured, redis.  It answers 503
// only when the database does not respond.
func Health(db *sql.DB, rdb *redis.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		rep := healthReport{Status: "ok", Database: "up", Redis: "disabled"}
		if rdb != nil {
			rep.Redis = "up"
			if err := rdb.Ping(ctx).Err(); err != nil {
				rep.Redis, rep.Status = "down", "degraded"
			}
		}
		if err := db.PingContext(ctx); err != nil {
			rep.Database, rep.Status = "down", "down"
			return c.JSON(http.StatusServiceUnavailable, rep)
		}
		return c.JSON(http.StatusOK, rep)
	}
}
