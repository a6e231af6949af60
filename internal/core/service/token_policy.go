package service

import (
	"fmt"
	"time"

	"github.com/koreamarkers/webauth/internal/core/domain"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenPolicy decides token lifetimes and kinds on top of a TokenCodec.
type TokenPolicy struct {
	codec      *TokenCodec
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenPolicy returns a policy. Non-positive lifetimes fall back to the
// defaults.
func NewTokenPolicy(codec *TokenCodec, accessTTL, refreshTTL time.Duration) *TokenPolicy {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &TokenPolicy{codec: codec, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (p *TokenPolicy) AccessTTL() time.Duration  { return p.accessTTL }
func (p *TokenPolicy) RefreshTTL() time.Duration { return p.refreshTTL }

func (p *TokenPolicy) IssueAccessToken(username string) (domain.IssuedToken, error) {
	return p.issue(username, domain.TokenAccess, p.accessTTL)
}

func (p *TokenPolicy) IssueRefreshToken(username string) (domain.IssuedToken, error) {
	return p.issue(username, domain.TokenRefresh, p.refreshTTL)
}

func (p *TokenPolicy) issue(username string, kind domain.TokenKind, ttl time.Duration) (domain.IssuedToken, error) {
	now := p.codec.Now()
	claims := domain.TokenClaims{
		Subject:   username,
		Kind:      kind,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	value, err := p.codec.Encode(claims)
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("issue %s token: %w", kind, err)
	}
	return domain.IssuedToken{Value: value, ExpiresAt: claims.ExpiresAt, TTL: ttl}, nil
}

// IsAccessToken reports whether token decodes and carries the ACCESS kind.
func (p *TokenPolicy) IsAccessToken(token string) bool {
	return p.kindOf(token) == domain.TokenAccess
}

// IsRefreshToken reports whether token decodes and carries the REFRESH kind.
func (p *TokenPolicy) IsRefreshToken(token string) bool {
	return p.kindOf(token) == domain.TokenRefresh
}

func (p *TokenPolicy) kindOf(token string) domain.TokenKind {
	claims, err := p.codec.Decode(token)
	if err != nil {
		return ""
	}
	return claims.Kind
}

// Validate is true iff token decodes, its subject is expectedUsername and it
// has not yet expired. There is no leeway.
func (p *TokenPolicy) Validate(token, expectedUsername string) bool {
	claims, err := p.codec.Decode(token)
	if err != nil {
		return false
	}
	return claims.Subject == expectedUsername && p.codec.Now().Before(claims.ExpiresAt)
}

// Subject returns the subject of a verified token.
func (p *TokenPolicy) Subject(token string) (string, error) {
	claims, err := p.codec.Decode(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
