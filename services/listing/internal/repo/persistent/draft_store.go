package persistent

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDraftStore keeps serialized drafts in redis. Every write refreshes the TTL so
// abandoned drafts expire on their own.
type RedisDraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDraftStore(client *redis.Client, ttl time.Duration) *RedisDraftStore {
	return &RedisDraftStore{client: client, ttl: ttl}
}

func (s *RedisDraftStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *RedisDraftStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, s.ttl).Err()
}

func (s *RedisDraftStore) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// Keys lists persisted draft keys matching pattern.
func (s *RedisDraftStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

// TTL reports how long the draft under key will be kept.
func (s *RedisDraftStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return s.client.TTL(ctx, key).Result()
}
