package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/koreamarkers/webauth/internal/core/domain"
)

// minSigningKeyBytes is the smallest accepted HMAC key (256 bits).
const minSigningKeyBytes = 32

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// jwtClaims is the wire shape of a token payload.
type jwtClaims struct {
	Type domain.TokenKind `json:"type"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 tokens with a shared secret.
type TokenCodec struct {
	key   []byte
	clock Clock
}

// NewTokenCodec returns a codec for secret. A nil clock means time.Now.
func NewTokenCodec(secret []byte, clock Clock) (*TokenCodec, error) {
	if len(secret) < minSigningKeyBytes {
		return nil, domain.ErrWeakSigningKey
	}
	if clock == nil {
		clock = time.Now
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &TokenCodec{key: key, clock: clock}, nil
}

// Now reports the codec's notion of the current time.
func (c *TokenCodec) Now() time.Time {
	return c.clock()
}

// Encode signs claims. Timestamps are carried with second precision.
func (c *TokenCodec) Encode(claims domain.TokenClaims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		Type: claims.Kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})

	signed, err := t.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry of token and returns its claims.
// The error wraps one of domain.ErrTokenMalformed, domain.ErrTokenSignatureInvalid
// or domain.ErrTokenExpired.
func (c *TokenCodec) Decode(token string) (*domain.TokenClaims, error) {
	var wire jwtClaims
	_, err := jwt.ParseWithClaims(token, &wire,
		func(*jwt.Token) (interface{}, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.clock),
	)
	if err != nil {
		return nil, classifyJWTError(err)
	}

	claims := &domain.TokenClaims{
		Subject: wire.Subject,
		Kind:    wire.Type,
	}
	if wire.IssuedAt != nil {
		claims.IssuedAt = wire.IssuedAt.Time
	}
	if wire.ExpiresAt != nil {
		claims.ExpiresAt = wire.ExpiresAt.Time
	}
	return claims, nil
}

func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", domain.ErrTokenSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	}
}
