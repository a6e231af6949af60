package domain

import "time"

// TokenKind distinguishes access tokens from refresh tokens. It is carried in
// the "type" claim.
type TokenKind string

const (
	TokenAccess  TokenKind = "ACCESS"
	TokenRefresh TokenKind = "REFRESH"
)

// TokenClaims is the decoded, verified payload of a token.
type TokenClaims struct {
	Subject   string
	Kind      TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IssuedToken is a freshly minted token together with its lifetime.
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
	TTL       time.Duration
}

// Identity is the request-scoped authenticated principal.
type Identity struct {
	Username    string   `json:"username"`
	Role        Role     `json:"-"`
	Authorities []string `json:"authorities"`
}

// HasRole reports whether the identity was granted role r.
func (i *Identity) HasRole(r Role) bool {
	return i != nil && i.Role == r
}
