package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store against a Redis server, mirroring the
// original system's own persistence layer (it kept node/pod records
// as plain string keys and used Redis sets for "nodes", "pods" and
// each node's pod-membership set). Kept as an alternate backend
// selected by configuration alongside BoltStore.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to a Redis server at addr.
func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage: redis get %s: %w", key, err)
	}
	return data, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) AddToSet(ctx context.Context, set, member string) error {
	return s.client.SAdd(ctx, set, member).Err()
}

func (s *RedisStore) RemoveFromSet(ctx context.Context, set, member string) error {
	return s.client.SRem(ctx, set, member).Err()
}

func (s *RedisStore) Members(ctx context.Context, set string) ([]string, error) {
	return s.client.SMembers(ctx, set).Result()
}

func (s *RedisStore) DeleteWithSet(ctx context.Context, key, set, member string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SRem(ctx, set, member)
		return nil
	})
	return err
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
