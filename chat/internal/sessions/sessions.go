// Package sessions stores refresh-token sessions in Redis. Tokens expire
// with the store TTL; revoking a token deletes it immediately.
package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

const keyPrefix = "chat:session:"

// Session records who a refresh token belongs to.
type Session struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists sessions keyed by refresh token.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore connects to Redis and verifies the connection.
func NewStore(redisURL string, ttl time.Duration) (*Store, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Store{client: client, ttl: ttl}, nil
}

// NewStoreWithClient wraps an existing client, mainly for tests.
func NewStoreWithClient(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) Create(ctx context.Context, refreshToken string, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+refreshToken, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, refreshToken string) (*Session, error) {
	data, err := s.client.Get(ctx, keyPrefix+refreshToken).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *Store) Delete(ctx context.Context, refreshToken string) error {
	deleted, err := s.client.Del(ctx, keyPrefix+refreshToken).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if deleted == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// rotateScript moves a session from the old token key to the new one in a
// single server-side step, so two concurrent refreshes with the same token
// cannot both succeed.
var rotateScript = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
	return false
end
redis.call('SET', KEYS[2], data, 'PX', ARGV[1])
redis.call('DEL', KEYS[1])
return data
`)

// Rotate atomically replaces an old refresh token with a new one. The old
// session must still exist or ErrSessionNotFound is returned.
func (s *Store) Rotate(ctx context.Context, oldToken, newToken string) (*Session, error) {
	data, err := rotateScript.Run(ctx, s.client,
		[]string{keyPrefix + oldToken, keyPrefix + newToken},
		s.ttl.Milliseconds()).Text()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to rotate session: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
