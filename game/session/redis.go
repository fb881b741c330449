package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// sessionTTL bounds how long an idle session's values survive. Each write
// refreshes the expiry.
const sessionTTL = 30 * 24 * time.Hour

// RedisStore keeps session values in Redis so they survive server restarts
// and can be shared by multiple processes.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, database int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       database,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisStore{client: client}, nil
}

func redisKey(sessionID, key string) string {
	return fmt.Sprintf("namethat:session:%s:%s", sessionID, key)
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, redisKey(sessionID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read session value: %w", err)
	}
	return value, true, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, sessionID, key, value string) error {
	if err := s.client.Set(ctx, redisKey(sessionID, key), value, sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to write session value: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, sessionID, key string) error {
	if err := s.client.Del(ctx, redisKey(sessionID, key)).Err(); err != nil {
		return fmt.Errorf("failed to delete session value: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
