package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AmmannChristian/go-tokenx/oauth2client"
	goredis "github.com/go-redis/redis/v8"
)

// DefaultKeyPrefix is prepended to every key unless WithKeyPrefix is used.
const DefaultKeyPrefix = "oauth2:token:"

// Store keeps one oauth2client.CachedToken under a single Redis key.
type Store struct {
	client goredis.Cmdable
	prefix string
	name   string
	now    func() time.Time
}

var _ oauth2client.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix replaces DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithClock replaces time.Now when computing key TTLs.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a store that saves the token under prefix+name. Providers that
// should share a token must use the same name, typically the client ID.
func New(client goredis.Cmdable, name string, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultKeyPrefix,
		name:   name,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the Redis key the token is stored under.
func (s *Store) Key() string {
	return s.prefix + s.name
}

// Load implements oauth2client.Store. A missing key is not an error.
func (s *Store) Load(ctx context.Context) (oauth2client.CachedToken, bool, error) {
	data, err := s.client.Get(ctx, s.Key()).Bytes()
	if errors.Is(err, goredis.Nil) {
		return oauth2client.CachedToken{}, false, nil
	}
	if err != nil {
		return oauth2client.CachedToken{}, false, fmt.Errorf("redisstore: get %s: %w", s.Key(), err)
	}

	var tok oauth2client.CachedToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return oauth2client.CachedToken{}, false, fmt.Errorf("redisstore: failed to deserialize token: %w", err)
	}
	if tok.Value == "" {
		return oauth2client.CachedToken{}, false, nil
	}

	return tok, true, nil
}

// Save implements oauth2client.Store. The key expires with the token; a token
// that is already stale removes the key instead.
func (s *Store) Save(ctx context.Context, tok oauth2client.CachedToken) error {
	ttl := tok.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Delete(ctx)
	}

	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("redisstore: failed to serialize token: %w", err)
	}

	if err := s.client.Set(ctx, s.Key(), data, ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: set %s: %w", s.Key(), err)
	}
	return nil
}

// Delete removes the stored token. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.Key()).Err(); err != nil {
		return fmt.Errorf("redisstore: del %s: %w", s.Key(), err)
	}
	return nil
}
