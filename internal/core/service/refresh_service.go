package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/koreamarkers/webauth/internal/core/domain"
	"github.com/koreamarkers/webauth/internal/core/ports"
)

// RefreshService mints a new access token from a valid refresh token. The
// refresh token itself is not rotated.
type RefreshService struct {
	tokens ports.TokenPolicy
	users  ports.UserRepository
	log    zerolog.Logger
}

func NewRefreshService(tokens ports.TokenPolicy, users ports.UserRepository, log zerolog.Logger) *RefreshService {
	return &RefreshService{tokens: tokens, users: users, log: log}
}

// Refresh checks, in order: presence, kind, then subject lookup and validity.
func (s *RefreshService) Refresh(ctx context.Context, refreshToken string) (domain.IssuedToken, error) {
	if refreshToken == "" {
		return domain.IssuedToken{}, domain.ErrNoRefreshToken
	}

	// Expired tokens do not decode, so they land here as invalid too.
	if !s.tokens.IsRefreshToken(refreshToken) {
		return domain.IssuedToken{}, domain.ErrInvalidRefreshToken
	}

	username, err := s.tokens.Subject(refreshToken)
	if err != nil {
		return domain.IssuedToken{}, domain.ErrRefreshTokenExpired
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		s.log.Debug().Err(err).Str("username", username).Msg("refresh subject lookup failed")
		return domain.IssuedToken{}, domain.ErrRefreshTokenExpired
	}

	if !s.tokens.Validate(refreshToken, user.Username) {
		return domain.IssuedToken{}, domain.ErrRefreshTokenExpired
	}

	access, err := s.tokens.IssueAccessToken(user.Username)
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("refresh: %w", err)
	}
	return access, nil
}
