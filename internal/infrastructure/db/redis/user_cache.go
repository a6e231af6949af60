package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/koreamarkers/webauth/internal/core/domain"
	"github.com/koreamarkers/webauth/internal/core/ports"
)

const defaultCacheTTL = 5 * time.Minute

// UserCache is a read-through cache in front of a UserRepository.
// Key format: user:<username>
// Redis failures are logged and the call falls through to the store.
type UserCache struct {
	next   ports.UserRepository
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewUserCache wraps next with a cache whose entries expire after ttl.
func NewUserCache(next ports.UserRepository, client *redis.Client, ttl time.Duration, log zerolog.Logger) *UserCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &UserCache{
		next:   next,
		client: client,
		ttl:    ttl,
		log:    log.With().Str("component", "user_cache").Logger(),
	}
}

// cachedUser carries the password hash, which domain.User hides from JSON.
type cachedUser struct {
	ID           string      `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"password_hash"`
	Name         string      `json:"name"`
	Role         domain.Role `json:"role"`
	Enabled      bool        `json:"enabled"`
	CreatedAt    time.Time   `json:"created_at"`
}

func (c *UserCache) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	raw, err := c.client.Get(ctx, c.key(username)).Bytes()
	switch {
	case err == nil:
		var cu cachedUser
		if jerr := json.Unmarshal(raw, &cu); jerr == nil {
			return cu.toDomain(), nil
		}
		c.log.Warn().Str("username", username).Msg("discarding undecodable cache entry")
	case !errors.Is(err, redis.Nil):
		c.log.Warn().Err(err).Msg("user cache read failed")
	}

	user, err := c.next.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(fromDomain(user))
	if err == nil {
		err = c.client.Set(ctx, c.key(username), payload, c.ttl).Err()
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("user cache write failed")
	}
	return user, nil
}

func (c *UserCache) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return c.next.ExistsByUsername(ctx, username)
}

func (c *UserCache) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return c.next.ExistsByEmail(ctx, email)
}

// Insert writes through to the store and evicts any stale entry.
func (c *UserCache) Insert(ctx context.Context, user *domain.User) error {
	if err := c.next.Insert(ctx, user); err != nil {
		return err
	}
	if err := c.client.Del(ctx, c.key(user.Username)).Err(); err != nil {
		c.log.Warn().Err(err).Msg("user cache evict failed")
	}
	return nil
}

func (c *UserCache) key(username string) string {
	return "user:" + username
}

func fromDomain(u *domain.User) cachedUser {
	return cachedUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		Role:         u.Role,
		Enabled:      u.Enabled,
		CreatedAt:    u.CreatedAt,
	}
}

func (cu cachedUser) toDomain() *domain.User {
	return &domain.User{
		ID:           cu.ID,
		Username:     cu.Username,
		Email:        cu.Email,
		PasswordHash: cu.PasswordHash,
		Name:         cu.Name,
		Role:         cu.Role,
		Enabled:      cu.Enabled,
		CreatedAt:    cu.CreatedAt,
	}
}
