package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/koreamarkers/webauth/internal/api/metrics"
	"github.com/koreamarkers/webauth/internal/core/domain"
	"github.com/koreamarkers/webauth/internal/core/ports"
)

// AccessTokenCookie is the cookie the gate falls back to when no bearer
// header is present.
const AccessTokenCookie = "accessToken"

// Authenticate resolves the caller's identity from a bearer token or the
// access token cookie. It never rejects a request: any failure leaves the
// request anonymous and the access rules decide what happens next.
func Authenticate(tokens ports.TokenPolicy, users ports.UserRepository, log zerolog.Logger) echo.MiddlewareFunc {
	log = log.With().Str("component", "auth_gate").Logger()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := candidateToken(c.Request())
			if token == "" {
				metrics.AuthGateTotal.WithLabelValues("anonymous").Inc()
				return next(c)
			}

			id := resolve(c, token, tokens, users, log)
			if id == nil {
				metrics.AuthGateTotal.WithLabelValues("rejected").Inc()
				return next(c)
			}

			metrics.AuthGateTotal.WithLabelValues("authenticated").Inc()
			req := c.Request()
			c.SetRequest(req.WithContext(WithIdentity(req.Context(), id)))
			c.Set(identityContextKey, id)
			return next(c)
		}
	}
}

func resolve(c echo.Context, token string, tokens ports.TokenPolicy, users ports.UserRepository, log zerolog.Logger) *domain.Identity {
	subject, err := tokens.Subject(token)
	if err != nil {
		log.Debug().Err(err).Str("path", c.Request().URL.Path).Msg("ignoring undecodable token")
		return nil
	}

	user, err := users.FindByUsername(c.Request().Context(), subject)
	if err != nil {
		log.Debug().Err(err).Str("subject", subject).Msg("token subject lookup failed")
		return nil
	}
	if !user.Enabled {
		log.Debug().Str("subject", subject).Msg("token subject is disabled")
		return nil
	}
	if !tokens.Validate(token, user.Username) || !tokens.IsAccessToken(token) {
		log.Debug().Str("subject", subject).Msg("token is not a valid access token")
		return nil
	}

	return &domain.Identity{
		Username:    user.Username,
		Role:        user.Role,
		Authorities: user.Authorities(),
	}
}

// candidateToken prefers a bearer Authorization header. Any other header,
// such as Basic credentials added by a proxy, falls through to the cookie.
func candidateToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get(echo.HeaderAuthorization), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		if tok := strings.TrimSpace(parts[1]); tok != "" {
			return tok
		}
	}
	if ck, err := r.Cookie(AccessTokenCookie); err == nil {
		return ck.Value
	}
	return ""
}
