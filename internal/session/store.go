package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found or expired")

// Store keeps session tokens in Redis with a sliding TTL. State lives
// outside the process so any server instance can resolve a token, and
// expiry is handled by Redis instead of an in-memory map that grows until
// restart.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func key(token string) string {
	return fmt.Sprintf("session:%s", token)
}

// Create issues a new token for the user.
func (s *Store) Create(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	err := s.client.Set(ctx, key(token), userID, s.ttl).Err()
	if err != nil {
		return "", err
	}
	return token, nil
}

// Get resolves a token to a user id and refreshes the TTL.
func (s *Store) Get(ctx context.Context, token string) (int64, error) {
	val, err := s.client.Get(ctx, key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrSessionNotFound
		}
		return 0, err
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, ErrSessionNotFound
	}

	// sliding expiry: activity keeps the session alive
	s.client.Expire(ctx, key(token), s.ttl)

	return userID, nil
}

// Delete invalidates a token, e.g. on logout.
func (s *Store) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, key(token)).Err()
}
