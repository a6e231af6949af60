package domain

import "time"

// Role is the authorization role stored on a user record.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Authority returns the granted-authority name for the role, e.g. "ROLE_USER".
func (r Role) Authority() string {
	return "ROLE_" + string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User models a registered account. Records are immutable once created.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name,omitempty"`
	Role         Role      `json:"role"`
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"created_at"`
}

// Authorities lists the granted authorities derived from the user's role.
func (u *User) Authorities() []string {
	return []string{u.Role.Authority()}
}
