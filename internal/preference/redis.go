package preference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "preferences:"

// redisStore keeps one hash per actor.
type redisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

// Connect opens a redis client for addr and pings it.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (s *redisStore) Get(ctx context.Context, actorID, key string) (string, error) {
	v, err := s.client.HGet(ctx, keyPrefix+actorID, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get preference failed: %w", err)
	}
	return v, nil
}

func (s *redisStore) Set(ctx context.Context, actorID, key, value string) error {
	if err := s.client.HSet(ctx, keyPrefix+actorID, key, value).Err(); err != nil {
		return fmt.Errorf("set preference failed: %w", err)
	}
	return nil
}
