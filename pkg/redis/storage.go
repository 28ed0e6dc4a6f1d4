package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/absolutastore/storefront-backend/pkg/storage"
)

// Storage adapts the client to storage.Storage. Values live under sf:kv:<key>.
type Storage struct {
	client *Client
	ttl    time.Duration
}

var _ storage.Storage = (*Storage)(nil)

// Storage returns a key-value adapter; ttl <= 0 keeps values without expiry.
func (c *Client) Storage(ttl time.Duration) *Storage {
	if ttl < 0 {
		ttl = 0
	}
	return &Storage{client: c, ttl: ttl}
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	if s.client == nil || s.client.store == nil {
		return nil, errors.New("redis client not initialized")
	}
	value, err := s.client.store.Get(ctx, s.client.StorageKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	if s.client == nil || s.client.store == nil {
		return errors.New("redis client not initialized")
	}
	return s.client.store.Set(ctx, s.client.StorageKey(key), value, s.ttl).Err()
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.client.StorageKey(key))
}
