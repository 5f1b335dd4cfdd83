package storage

import (
	"context"
	"errors"

	"flowdeck/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps blobs as Redis string values under a shared key prefix.
// Pause-state snapshots are small and short-lived, which fits Redis better
// than a full object store.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return NewRedisStoreWithPrefix(client, "flowdeck:blob:")
}

// NewRedisStoreWithPrefix namespaces a separate store on the same client,
// e.g. the cold archive store next to the hot blob store.
func NewRedisStoreWithPrefix(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Store(ctx context.Context, key string, data []byte) error {
	return s.client.Set(ctx, s.prefix+key, data, 0).Err()
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ports.ErrObjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	deleted, err := s.client.Del(ctx, s.prefix+key).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ports.ErrObjectNotFound
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()[len(s.prefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
