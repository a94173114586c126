package handler

import (
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities
	"time"     // token expiry timestamps

	"github.com/gorilla/sessions" // cookie session for the browser flow
	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/checklistpro/internal/apperr"     // error kinds
	"github.com/iliyamo/checklistpro/internal/middleware" // session names and identity helpers
	"github.com/iliyamo/checklistpro/internal/model"      // user records
	"github.com/iliyamo/checklistpro/internal/service"    // signup, login and token issuance
)

// AuthHandler bundles dependencies for auth endpoints: the JSON token API
// used by non-browser clients and the form routes that keep the access
// token in a cookie session.
type AuthHandler struct {
	Auth     *service.AuthService
	Sessions sessions.Store
}

func NewAuthHandler(a *service.AuthService, store sessions.Store) *AuthHandler {
	return &AuthHandler{Auth: a, Sessions: store}
}

// ----- DTOs -----

type refreshReq struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User    model.PublicUser `json:"user"`
	Access  tokenPart        `json:"access"`
	Refresh tokenPart        `json:"refresh"`
}

func newAuthResp(u *model.User, pair service.TokenPair) authResp {
	return authResp{
		User:    u.Public(),
		Access:  tokenPart{Token: pair.Access.Token, Expires: pair.Access.Exp},
		Refresh: tokenPart{Token: pair.Refresh.Raw, Expires: pair.Refresh.Exp}, // raw back to client
	}
}

// Signup: POST /signup.  Browsers are redirected to the login page.
func (h *AuthHandler) Signup(c echo.Context) error {
	var in service.SignupInput
	if err := c.Bind(&in); err != nil {
		return failPage(c, errBadBody, "/signup")
	}
	u, err := h.Auth.Signup(c.Request().Context(), in)
	if err != nil {
		return failPage(c, err, "/signup")
	}
	return done(c, http.StatusCreated, u.Public(),
		"User registered successfully", "/login")
}

// Login: POST /login.  Stores an access token in the session and
// redirects to the dashboard.
func (h *AuthHandler) Login(c echo.Context) error {
	var in service.LoginInput
	if err := c.Bind(&in); err != nil {
		return failPage(c, errBadBody, "/login")
	}
	u, err := h.Auth.Authenticate(c.Request().Context(), in)
	if err != nil {
		return failPage(c, err, "/login")
	}
	tok, err := h.Auth.AccessToken(u)
	if err != nil {
		return failPage(c, err, "/login")
	}
	sess, _ := h.Sessions.Get(c.Request(), middleware.SessionName) // a stale cookie yields a fresh session
	sess.Values[middleware.SessionTokenKey] = tok.Token
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return failPage(c, apperr.Internal("Server error", err), "/login")
	}
	return done(c, http.StatusOK, u.Public(),
		"Logged in", "/dashboard")
}

// Logout: POST /logout.  Clears the session cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	sess, _ := h.Sessions.Get(c.Request(), middleware.SessionName)
	delete(sess.Values, middleware.SessionTokenKey)
	sess.Options.MaxAge = -1
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return fail(c, apperr.Internal("Server error", err))
	}
	return done(c, http.StatusOK, nil, "Logged out", "/login")
}

// APILogin: POST /api/auth/login.  Verifies credentials and returns a new
// access/refresh pair.
func (h *AuthHandler) APILogin(c echo.Context) error {
	var in service.LoginInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	ctx := c.Request().Context()
	u, err := h.Auth.Authenticate(ctx, in)
	if err != nil {
		return fail(c, err)
	}
	pair, err := h.Auth.IssuePair(ctx, u)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, newAuthResp(u, pair), "")
}

// Refresh: POST /api/auth/refresh.  Validate by hash, revoke old, issue new.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return fail(c, apperr.InvalidInput("refreshToken is required"))
	}
	u, pair, err := h.Auth.Rotate(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, newAuthResp(u, pair), "")
}

// APILogout: POST /api/auth/logout.  A refresh token in the body revokes
// that session only; otherwise a valid bearer token revokes every session
// of its user.
func (h *AuthHandler) APILogout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req) // an empty body is allowed when a bearer token is sent

	ctx := c.Request().Context()
	var who model.Identity
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		resolved, err := h.Auth.Resolve(ctx, strings.TrimPrefix(auth, "Bearer "))
		if err != nil && strings.TrimSpace(req.RefreshToken) == "" {
			return fail(c, err)
		}
		who = resolved
	}
	if err := h.Auth.Logout(ctx, who, req.RefreshToken); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me: GET /api/me returns the resolved requester.
func (h *AuthHandler) Me(c echo.Context) error {
	return ok(c, http.StatusOK, middleware.IdentityFrom(c), "")
}
