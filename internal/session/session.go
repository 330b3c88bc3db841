// Package session caches the upstream user profile per bearer token. The
// upstream API owns token issuance and validation; the portal only mirrors
// the session so pages do not refetch /users/me on every request, and it
// drops the mirror the moment the upstream rejects the token.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/classtrack/portal-api/internal/models"
)

const keyPrefix = "portal:session:"

// Store holds cached profiles in redis, keyed by a hash of the bearer
// token. Entries expire with the token itself when it carries an exp claim.
type Store struct {
	redis      *redis.Client
	defaultTTL time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

// NewStore builds a session store. defaultTTL bounds every entry: it is
// the lifetime for tokens without a readable expiry and the cap for
// long-lived ones, so a stale profile never outlives it.
func NewStore(client *redis.Client, defaultTTL time.Duration, logger zerolog.Logger) *Store {
	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Minute
	}
	return &Store{
		redis:      client,
		defaultTTL: defaultTTL,
		logger:     logger.With().Str("component", "session").Logger(),
		now:        time.Now,
	}
}

// Save caches the profile for the token. Tokens that are already expired
// are not cached at all.
func (s *Store) Save(ctx context.Context, token string, profile models.Profile) error {
	ttl := s.ttlFor(token)
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal session profile: %w", err)
	}

	if err := s.redis.Set(ctx, key(token), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Get returns the cached profile for the token, reporting whether one
// exists.
func (s *Store) Get(ctx context.Context, token string) (models.Profile, bool, error) {
	payload, err := s.redis.Get(ctx, key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Profile{}, false, nil
	}
	if err != nil {
		return models.Profile{}, false, fmt.Errorf("load session: %w", err)
	}

	var profile models.Profile
	if err := json.Unmarshal(payload, &profile); err != nil {
		// A corrupt entry is dropped rather than surfaced.
		_ = s.redis.Del(ctx, key(token)).Err()
		return models.Profile{}, false, nil
	}
	return profile, true, nil
}

// Clear removes the cached session for the token.
func (s *Store) Clear(ctx context.Context, token string) error {
	if err := s.redis.Del(ctx, key(token)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// OnUnauthorized drops the session for a token the upstream rejected. The
// signature matches the fetch client's callback so the wiring is direct.
func (s *Store) OnUnauthorized(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.Clear(ctx, token); err != nil {
		s.logger.Warn().Err(err).Msg("failed to clear rejected session")
		return
	}
	s.logger.Info().Msg("cleared session after upstream rejected token")
}

// ttlFor derives the cache lifetime from the token's exp claim. The token
// is decoded without signature verification: the upstream is the only
// party that can verify it, the portal just reads the expiry. Unreadable
// or missing expiries fall back to the default TTL; expired tokens yield
// zero.
func (s *Store) ttlFor(token string) time.Duration {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return s.defaultTTL
	}

	expiry, err := parsed.Claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return s.defaultTTL
	}

	ttl := expiry.Time.Sub(s.now())
	if ttl <= 0 {
		return 0
	}
	if ttl > s.defaultTTL {
		return s.defaultTTL
	}
	return ttl
}

// key hashes the token so raw credentials never appear in redis.
func key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return keyPrefix + hex.EncodeToString(sum[:])
}
