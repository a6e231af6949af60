package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/koreamarkers/webauth/internal/api/metrics"
	"github.com/koreamarkers/webauth/internal/core/domain"
)

// Access is what a rule requires of the caller.
type Access int

const (
	// PermitAll lets anonymous callers through.
	PermitAll Access = iota
	// Authenticated requires any identity.
	Authenticated
	// HasRole requires an identity with AccessRule.Role.
	HasRole
)

// AccessRule binds a path pattern to an access requirement. A pattern ending
// in "/*" matches the prefix, anything else matches the exact path.
type AccessRule struct {
	Pattern string
	Access  Access
	Role    domain.Role
}

func (r AccessRule) matches(path string) bool {
	if prefix, ok := strings.CutSuffix(r.Pattern, "/*"); ok {
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
	return path == r.Pattern
}

// DefaultRules is the application's access policy.
func DefaultRules() []AccessRule {
	rules := make([]AccessRule, 0, 14)
	for _, p := range []string{
		"/login", "/signup", "/logout",
		"/api/auth/refresh", "/api/auth/signup",
		"/css/*", "/js/*", "/images/*",
		"/health", "/health/ready", "/metrics", "/swagger/*",
	} {
		rules = append(rules, AccessRule{Pattern: p, Access: PermitAll})
	}
	return append(rules, AccessRule{Pattern: "/api/admin/*", Access: HasRole, Role: domain.RoleAdmin})
}

// Authorize enforces rules in order; the first matching rule wins and paths
// no rule matches require authentication. It must run after Authenticate.
func Authorize(rules []AccessRule) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			access, role := Authenticated, domain.Role("")
			for _, r := range rules {
				if r.matches(path) {
					access, role = r.Access, r.Role
					break
				}
			}

			if access == PermitAll {
				return next(c)
			}

			id := CurrentIdentity(c)
			if id == nil {
				metrics.AccessDeniedTotal.WithLabelValues("unauthenticated").Inc()
				if isAPIPath(path) {
					return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				}
				return c.Redirect(http.StatusFound, "/login")
			}

			if access == HasRole && !id.HasRole(role) {
				metrics.AccessDeniedTotal.WithLabelValues("forbidden").Inc()
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

func isAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}
