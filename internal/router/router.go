package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/checklistpro/internal/handler" // import the handlers that implement business logic
	"github.com/iliyamo/checklistpro/internal/metrics"
)

// Guards are the middlewares shared by the route groups.  API and Page are
// the two flavours of the auth gate.  RateLimit applies to everything under
// /api, Cache to the aggregate template reads and Invalidate to the routes
// that change templates.
type Guards struct {
	API        echo.MiddlewareFunc
	Page       echo.MiddlewareFunc
	RateLimit  echo.MiddlewareFunc
	Cache      echo.MiddlewareFunc
	Invalidate echo.MiddlewareFunc
}

// withDefaults replaces unset guards with pass-through middleware.
func (g Guards) withDefaults() Guards {
	noop := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	if g.API == nil {
		g.API = noop
	}
	if g.Page == nil {
		g.Page = noop
	}
	if g.RateLimit == nil {
		g.RateLimit = noop
	}
	if g.Cache == nil {
		g.Cache = noop
	}
	if g.Invalidate == nil {
		g.Invalidate = noop
	}
	return g
}

// RegisterRoutes registers the unauthenticated probes: /healthz and the
// prometheus scrape endpoint.  rdb may be nil.
func RegisterRoutes(e *echo.Echo, db *sql.DB, rdb *redis.Client) {
	e.GET("/healthz", handler.Health(db, rdb))
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
}

// RegisterAuth registers all authentication‑related routes.  The form
// routes (/signup, /login, /logout) serve browsers; /api/auth serves token
// clients.  GET /api/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, g Guards) {
	g = g.withDefaults()
	e.POST("/signup", a.Signup)
	e.POST("/login", a.Login)
	e.POST("/logout", a.Logout)

	// Operations that do not require an existing session.
	pub := e.Group("/api/auth", g.RateLimit)
	pub.POST("/login", a.APILogin)
	pub.POST("/refresh", a.Refresh)
	// logout accepts a refresh token, a bearer token, or both
	pub.POST("/logout", a.APILogout)

	auth := e.Group("/api", g.API, g.RateLimit)
	auth.GET("/me", a.Me)
}
