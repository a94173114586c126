package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/checklistpro/internal/apperr"
	"github.com/iliyamo/checklistpro/internal/service"
)

// envelope is the body of every JSON API response.
type envelope struct {
	Success    bool                       `json:"success"`
	Data       any                        `json:"data,omitempty"`
	Error      string                     `json:"error,omitempty"`
	Details    map[string]string          `json:"details,omitempty"`
	Pagination *service.Pagination        `json:"pagination,omitempty"`
	Message    string                     `json:"message,omitempty"`
	Context    *service.SuggestionContext `json:"context,omitempty"`
}

func ok(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, envelope{Success: true, Data: data, Message: message})
}

// statusOf maps an error kind to its HTTP status.
func statusOf(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindInvalidInput, apperr.KindMalformedID:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// appErr converts err to an *apperr.Error and logs internal causes, which
// are never sent to the client.
func appErr(c echo.Context, err error) *apperr.Error {
	var e *apperr.Error
	if !errors.As(err, &e) {
		e = apperr.Internal("Server error", err)
	}
	if statusOf(e.Kind) == http.StatusInternalServerError {
		slog.Error(e.Message, "method", c.Request().Method, "path", c.Path(), "error", e.Err)
	}
	return e
}

// fail writes err as an error envelope.
func fail(c echo.Context, err error) error {
	e := appErr(c, err)
	return c.JSON(statusOf(e.Kind), envelope{Success: false, Error: e.Message, Details: e.Fields})
}

func badBody(c echo.Context) error {
	return fail(c, errBadBody)
}

var errBadBody = apperr.InvalidInput("Invalid request body")

// failPage answers a failed page route.  Browsers are sent back to
// redirect with the message in the "error" query parameter; API clients
// get the envelope.
func failPage(c echo.Context, err error, redirect string) error {
	if wantsJSON(c) {
		return fail(c, err)
	}
	e := appErr(c, err)
	return c.Redirect(http.StatusFound, redirect+"?"+url.Values{"error": {e.Message}}.Encode())
}

// wantsJSON reports whether a page route was called by an API client
// rather than a browser form.
func wantsJSON(c echo.Context) bool {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	accept := c.Request().Header.Get(echo.HeaderAccept)
	return strings.HasPrefix(ct, echo.MIMEApplicationJSON) || strings.HasPrefix(accept, echo.MIMEApplicationJSON)
}

// done answers a successful page route: browsers are redirected, API
// clients get the envelope.
func done(c echo.Context, status int, data any, message, redirect string) error {
	if wantsJSON(c) {
		return ok(c, status, data, message)
	}
	return c.Redirect(http.StatusFound, redirect)
}
