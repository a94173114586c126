package middleware

// identity.go holds the helpers that move the resolved requester through the
// echo context.  The auth gate stores it; handlers, the rate limiter and the
// cache read it back.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/checklistpro/internal/model"
)

const identityKey = "identity"

// SetIdentity stores the authenticated requester on the context.
func SetIdentity(c echo.Context, who model.Identity) {
	c.Set(identityKey, who)
}

// IdentityFrom returns the requester stored by the auth gate.  The zero
// Identity is returned for anonymous requests.
func IdentityFrom(c echo.Context) model.Identity {
	if who, ok := c.Get(identityKey).(model.Identity); ok {
		return who
	}
	return model.Identity{}
}

// userID returns the requester's public id, or "guest" when no user is
// authenticated.
func userID(c echo.Context) string {
	if who := IdentityFrom(c); !who.Anonymous() {
		return who.UserID
	}
	return "guest"
}
