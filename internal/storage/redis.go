package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultRedisTimeout = 2 * time.Second

// RedisStore keeps every value of a namespace in a single redis hash so a
// headless console and the dashboard can share one session.
type RedisStore struct {
	client  redis.UniversalClient
	key     string
	timeout time.Duration
}

type RedisOption func(*RedisStore)

// WithRedisTimeout bounds each redis round trip.
func WithRedisTimeout(timeout time.Duration) RedisOption {
	return func(s *RedisStore) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

func NewRedisStore(client redis.UniversalClient, prefix string, namespace string, opts ...RedisOption) (*RedisStore, error) {

	if client == nil {
		return nil, errors.New("redis client is nil")
	}

	if !IsValidNamespace(namespace) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNamespace, namespace)
	}

	if len(prefix) == 0 {
		prefix = "pipedeck:session"
	}

	store := &RedisStore{
		client:  client,
		key:     fmt.Sprintf("%s:%s", prefix, namespace),
		timeout: defaultRedisTimeout,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store, nil
}

func (s *RedisStore) Key() string {
	return s.key
}

func (s *RedisStore) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	value, err := s.client.HGet(ctx, s.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget %s: %w", key, err)
	}

	return value, true, nil
}

func (s *RedisStore) Set(key string, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	logrus.WithFields(logrus.Fields{
		"hash": s.key,
		"key":  key,
	}).Debugln("Writing storage value")

	if err := s.client.HSet(ctx, s.key, key, value).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Remove(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	logrus.WithFields(logrus.Fields{
		"hash": s.key,
		"keys": keys,
	}).Debugln("Removing storage values")

	if err := s.client.HDel(ctx, s.key, keys...).Err(); err != nil {
		return fmt.Errorf("redis hdel: %w", err)
	}
	return nil
}
