package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "login_attempts:"

// RedisAttemptStore keeps attempt state in Redis so lockouts survive
// restarts and are shared across replicas. Eviction rides on key TTLs.
type RedisAttemptStore struct {
	client *redis.Client
}

func NewRedisAttemptStore(client *redis.Client) *RedisAttemptStore {
	return &RedisAttemptStore{client: client}
}

func (s *RedisAttemptStore) Get(ctx context.Context, ip string) (*Attempt, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+ip).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ratelimit get: %w", err)
	}
	a := &Attempt{}
	if err := json.Unmarshal(raw, a); err != nil {
		return nil, fmt.Errorf("ratelimit decode: %w", err)
	}
	return a, nil
}

func (s *RedisAttemptStore) Set(ctx context.Context, ip string, a Attempt, ttl time.Duration) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.client.Set(ctx, redisKeyPrefix+ip, raw, ttl).Err(); err != nil {
		return fmt.Errorf("ratelimit set: %w", err)
	}
	return nil
}

func (s *RedisAttemptStore) Clear(ctx context.Context, ip string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+ip).Err(); err != nil {
		return fmt.Errorf("ratelimit clear: %w", err)
	}
	return nil
}
