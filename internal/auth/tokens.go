package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kasirpos/kasirpos/internal/shared"
)

// TokenStore issues and resolves opaque bearer tokens backed by Redis.
// Revocation is immediate: logout deletes the key, so a stolen token dies
// with the session instead of outliving it the way a signed token would.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

type tokenPayload struct {
	UserID   int64       `json:"user_id"`
	Username string      `json:"username"`
	Name     string      `json:"name"`
	Role     shared.Role `json:"role"`
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

// Issue creates a new bearer token for the actor.
func (s *TokenStore) Issue(ctx context.Context, actor shared.Actor) (string, error) {
	token := uuid.NewString()
	payload, err := json.Marshal(tokenPayload{
		UserID:   actor.ID,
		Username: actor.Username,
		Name:     actor.Name,
		Role:     actor.Role,
	})
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.key(token), payload, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve returns the actor a token belongs to, refreshing its TTL.
func (s *TokenStore) Resolve(ctx context.Context, token string) (shared.Actor, error) {
	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shared.Actor{}, shared.ErrTokenExpired
		}
		return shared.Actor{}, err
	}
	var payload tokenPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return shared.Actor{}, err
	}
	_ = s.client.Expire(ctx, s.key(token), s.ttl).Err()
	return shared.Actor{
		ID:       payload.UserID,
		Username: payload.Username,
		Name:     payload.Name,
		Role:     payload.Role,
	}, nil
}

// Revoke deletes a token.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// TTL exposes the configured token lifetime.
func (s *TokenStore) TTL() time.Duration {
	return s.ttl
}

func (s *TokenStore) key(token string) string {
	return "token:" + token
}
