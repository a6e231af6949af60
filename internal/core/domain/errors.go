package domain

import "errors"

// Registration conflicts.
var (
	ErrDuplicateUsername = errors.New("username is already in use")
	ErrDuplicateEmail    = errors.New("email is already in use")
)

// Credential and lookup errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("user is disabled")
	ErrInvalidRole        = errors.New("invalid role")
)

// Token errors. Decode failures are one of the first three.
var (
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired          = errors.New("token expired")
	ErrWeakSigningKey        = errors.New("signing key must be at least 256 bits")
)

// Refresh endpoint failures. Each maps to a 401 with its message as the reason.
var (
	ErrNoRefreshToken      = errors.New("no refresh token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

var ErrUnauthorized = errors.New("unauthorized")
var ErrForbidden = errors.New("access forbidden")
