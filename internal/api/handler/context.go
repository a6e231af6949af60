package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/koreamarkers/webauth/internal/api/middleware"
	"github.com/koreamarkers/webauth/internal/core/domain"
)

// requireIdentity returns the caller's identity or ErrUnauthorized. The access
// rules normally stop anonymous callers first; this is the handler-side check.
func requireIdentity(c echo.Context) (*domain.Identity, error) {
	id := middleware.CurrentIdentity(c)
	if id == nil || id.Username == "" {
		return nil, domain.ErrUnauthorized
	}
	return id, nil
}

// cookieValue returns the named cookie's value, or "" when absent.
func cookieValue(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
