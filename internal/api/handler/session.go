package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/koreamarkers/webauth/internal/api/middleware"
	"github.com/koreamarkers/webauth/internal/core/domain"
	"github.com/koreamarkers/webauth/internal/core/ports"
)

const (
	RefreshTokenCookie = "refreshToken"
	loginSuccessURL    = "/"
)

// SessionIssuer hands a freshly authenticated browser its token pair. It is
// the only place a refresh token is minted.
type SessionIssuer struct {
	tokens ports.TokenPolicy
	secure bool
	log    zerolog.Logger
}

func NewSessionIssuer(tokens ports.TokenPolicy, secureCookies bool, log zerolog.Logger) *SessionIssuer {
	return &SessionIssuer{
		tokens: tokens,
		secure: secureCookies,
		log:    log.With().Str("component", "session_issuer").Logger(),
	}
}

// Issue mints both tokens for username, sets the cookies and the
// Authorization header, and redirects to the home page.
func (s *SessionIssuer) Issue(c echo.Context, username string) error {
	access, err := s.tokens.IssueAccessToken(username)
	if err != nil {
		return err
	}
	refresh, err := s.tokens.IssueRefreshToken(username)
	if err != nil {
		return err
	}

	s.SetAccessToken(c, access)
	c.SetCookie(s.cookie(RefreshTokenCookie, refresh, true))

	s.log.Info().Str("username", username).Msg("session issued")
	return c.Redirect(http.StatusFound, loginSuccessURL)
}

// SetAccessToken sets the access token cookie and Authorization header.
func (s *SessionIssuer) SetAccessToken(c echo.Context, access domain.IssuedToken) {
	c.SetCookie(s.cookie(middleware.AccessTokenCookie, access, false))
	c.Response().Header().Set(echo.HeaderAuthorization, "Bearer "+access.Value)
}

// Clear expires both token cookies.
func (s *SessionIssuer) Clear(c echo.Context) {
	clearCookie(c, middleware.AccessTokenCookie, false)
	clearCookie(c, RefreshTokenCookie, true)
}

// The access cookie stays readable by page scripts; the refresh cookie does not.
func (s *SessionIssuer) cookie(name string, tok domain.IssuedToken, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    tok.Value,
		Path:     "/",
		MaxAge:   int(tok.TTL.Seconds()),
		HttpOnly: httpOnly,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
