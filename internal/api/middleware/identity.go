package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/koreamarkers/webauth/internal/core/domain"
)

type identityKey struct{}

// identityContextKey is the echo context key the gate also sets, for handlers
// that read c.Get directly.
const identityContextKey = "identity"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity attached by the gate, or nil for an
// anonymous request.
func IdentityFrom(ctx context.Context) *domain.Identity {
	id, _ := ctx.Value(identityKey{}).(*domain.Identity)
	return id
}

// CurrentIdentity is IdentityFrom for an echo context.
func CurrentIdentity(c echo.Context) *domain.Identity {
	if id, ok := c.Get(identityContextKey).(*domain.Identity); ok {
		return id
	}
	return IdentityFrom(c.Request().Context())
}
