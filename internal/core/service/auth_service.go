package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/koreamarkers/webauth/internal/core/domain"
	"github.com/koreamarkers/webauth/internal/core/ports"
)

// RegistrationService implements account creation.
type RegistrationService struct {
	repo       ports.UserRepository
	log        zerolog.Logger
	hashCost   int
	clock      Clock
	generateID func() string
}

func NewRegistrationService(repo ports.UserRepository, log zerolog.Logger) *RegistrationService {
	return &RegistrationService{
		repo:       repo,
		log:        log,
		hashCost:   bcrypt.DefaultCost,
		clock:      time.Now,
		generateID: func() string { return uuid.NewString() },
	}
}

// Signup registers a regular user. The username check always runs before the
// email check, so a request conflicting on both reports the username.
func (s *RegistrationService) Signup(ctx context.Context, in ports.SignupInput) (*domain.User, error) {
	return s.register(ctx, in, domain.RoleUser)
}

// RegisterAdmin registers a user with the ADMIN role. It is only reachable
// from the admin command.
func (s *RegistrationService) RegisterAdmin(ctx context.Context, in ports.SignupInput) (*domain.User, error) {
	return s.register(ctx, in, domain.RoleAdmin)
}

func (s *RegistrationService) register(ctx context.Context, in ports.SignupInput, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	taken, err := s.repo.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("signup: check username: %w", err)
	}
	if taken {
		return nil, domain.ErrDuplicateUsername
	}

	taken, err = s.repo.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("signup: check email: %w", err)
	}
	if taken {
		return nil, domain.ErrDuplicateEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("signup: hash password: %w", err)
	}

	user := &domain.User{
		ID:           s.generateID(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Name:         in.Name,
		Role:         role,
		Enabled:      true,
		CreatedAt:    s.clock().UTC(),
	}

	// The store's unique constraints are authoritative when two signups race
	// past the checks above.
	if err := s.repo.Insert(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateUsername) || errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("signup: insert user: %w", err)
	}

	s.log.Info().
		Str("username", user.Username).
		Str("role", string(user.Role)).
		Msg("user registered")

	return user, nil
}

// LoginService verifies interactive login credentials.
type LoginService struct {
	repo ports.UserRepository
}

func NewLoginService(repo ports.UserRepository) *LoginService {
	return &LoginService{repo: repo}
}

// Authenticate returns the user when password matches the stored hash. Unknown
// users and wrong passwords are indistinguishable to the caller.
func (s *LoginService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.Enabled {
		return nil, domain.ErrUserDisabled
	}

	return user, nil
}
