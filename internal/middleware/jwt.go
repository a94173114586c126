package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"  // context carried into the token resolver
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/gorilla/sessions" // cookie session holding the browser's access token
	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/checklistpro/internal/model"
)

// Session cookie name and the key under which the access token is stored.
const (
	SessionName     = "checklistpro"
	SessionTokenKey = "token"
)

// Resolver turns a raw access token into the requester it belongs to.  The
// auth service implements it by verifying the JWT and confirming the user
// still exists.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (model.Identity, error)
}

// RequireAPIAuth returns an Echo middleware for JSON routes.  The access
// token is read from the Authorization header or, failing that, from the
// session cookie.  Requests without a valid token are rejected with 401.
func RequireAPIAuth(res Resolver, store sessions.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFrom(c, store)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "Authentication required"})
			}
			who, err := res.Resolve(c.Request().Context(), raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "Invalid or expired token"})
			}
			SetIdentity(c, who)
			return next(c)
		}
	}
}

// RequirePageAuth is the browser variant of RequireAPIAuth: any failure
// redirects to the login page.
func RequirePageAuth(res Resolver, store sessions.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFrom(c, store)
			if raw == "" {
				return c.Redirect(http.StatusFound, "/login")
			}
			who, err := res.Resolve(c.Request().Context(), raw)
			if err != nil {
				return c.Redirect(http.StatusFound, "/login")
			}
			SetIdentity(c, who)
			return next(c)
		}
	}
}

// tokenFrom prefers a bearer token and falls back to the session cookie.
func tokenFrom(c echo.Context, store sessions.Store) string {
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if store == nil {
		return ""
	}
	sess, err := store.Get(c.Request(), SessionName)
	if err != nil {
		return ""
	}
	tok, _ := sess.Values[SessionTokenKey].(string)
	return tok
}
