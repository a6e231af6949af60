package ports

import (
	"context"

	"github.com/koreamarkers/webauth/internal/core/domain"
)

// UserRepository is the credential store. Implementations must enforce
// username and email uniqueness at the storage layer and report violations as
// domain.ErrDuplicateUsername / domain.ErrDuplicateEmail from Insert.
type UserRepository interface {
	// FindByUsername returns domain.ErrUserNotFound when no record matches.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Insert(ctx context.Context, user *domain.User) error
}
