package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/koreamarkers/webauth/internal/core/domain"
)

const (
	pgUniqueViolation     = "23505"
	usernameConstraint    = "users_username_key"
	emailConstraint       = "users_email_key"
	sqliteUsernameColumn  = "users.username"
	sqliteEmailColumn     = "users.email"
	userColumns           = "id, username, email, password_hash, name, role, enabled, created_at"
	findByUsernameQuery   = "SELECT " + userColumns + " FROM users WHERE username = ?"
	existsByUsernameQuery = "SELECT EXISTS (SELECT 1 FROM users WHERE username = ?)"
	existsByEmailQuery    = "SELECT EXISTS (SELECT 1 FROM users WHERE email = ?)"
	insertUserQuery       = "INSERT INTO users (" + userColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
)

// UserRepository is a ports.UserRepository backed by a SQL users table.
type UserRepository struct {
	db *sql.DB

	findByUsername   string
	existsByUsername string
	existsByEmail    string
	insert           string
}

func NewUserRepository(db *sql.DB, driver string) (*UserRepository, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &UserRepository{
		db:               db,
		findByUsername:   d.rebind(findByUsernameQuery),
		existsByUsername: d.rebind(existsByUsernameQuery),
		existsByEmail:    d.rebind(existsByEmailQuery),
		insert:           d.rebind(insertUserQuery),
	}, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var (
		u    domain.User
		role string
	)
	err := r.db.QueryRowContext(ctx, r.findByUsername, username).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Name, &role, &u.Enabled, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.Role = domain.Role(role)
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, r.existsByUsername, username)
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, r.existsByEmail, email)
}

func (r *UserRepository) exists(ctx context.Context, query, arg string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var found bool
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&found); err != nil {
		return false, fmt.Errorf("exists query: %w", err)
	}
	return found, nil
}

func (r *UserRepository) Insert(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, r.insert,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Name,
		string(user.Role), user.Enabled, user.CreatedAt.UTC(),
	)
	if err != nil {
		if dup := duplicateError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// duplicateError maps unique-constraint violations from either driver onto
// the registration conflict errors. It returns nil for any other error.
func duplicateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		switch pgErr.ConstraintName {
		case usernameConstraint:
			return domain.ErrDuplicateUsername
		case emailConstraint:
			return domain.ErrDuplicateEmail
		}
		return nil
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		msg := liteErr.Error()
		switch {
		case strings.Contains(msg, sqliteUsernameColumn):
			return domain.ErrDuplicateUsername
		case strings.Contains(msg, sqliteEmailColumn):
			return domain.ErrDuplicateEmail
		}
	}
	return nil
}
