package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "authclient:access-token:"
	redisOpTimeout = 3 * time.Second
)

// RedisStore keeps the credential in Redis, for deployments where several
// processes act on behalf of the same profile
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to Redis at addr
func NewRedisStore(addr, profile string) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis address is required for the redis token store")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	return NewRedisStoreWithClient(client, profile), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client, profile string) *RedisStore {
	if profile == "" {
		profile = DefaultProfile
	}
	return &RedisStore{client: client, key: redisKeyPrefix + profile}
}

// Load reads the credential
func (r *RedisStore) Load() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	token, err := r.client.Get(ctx, r.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	return token, nil
}

// Save writes the credential without expiry; the server decides validity
func (r *RedisStore) Save(token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key, token, 0).Err(); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Delete removes the credential
func (r *RedisStore) Delete() error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// Close closes the underlying client
func (r *RedisStore) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
