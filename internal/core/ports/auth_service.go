package ports

import (
	"context"

	"github.com/koreamarkers/webauth/internal/core/domain"
)

// SignupInput carries the already-validated registration fields.
type SignupInput struct {
	Username string
	Password string
	Email    string
	Name     string
}

// RegistrationService creates new accounts.
type RegistrationService interface {
	Signup(ctx context.Context, in SignupInput) (*domain.User, error)
}

// LoginService checks interactive login credentials.
type LoginService interface {
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
}

// RefreshService exchanges a refresh token for a new access token.
type RefreshService interface {
	Refresh(ctx context.Context, refreshToken string) (domain.IssuedToken, error)
}

// TokenPolicy issues and classifies tokens.
type TokenPolicy interface {
	IssueAccessToken(username string) (domain.IssuedToken, error)
	IssueRefreshToken(username string) (domain.IssuedToken, error)
	IsAccessToken(token string) bool
	IsRefreshToken(token string) bool
	Validate(token, expectedUsername string) bool
	Subject(token string) (string, error)
}
