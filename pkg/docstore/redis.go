package docstore

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection details.
type RedisConfig struct {
	URL string
}

// RedisStore keeps every field-map in a Redis hash and every index in a Redis set.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection with a PING.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, unavailable("connect", err)
	}
	log.Println("Redis document store connected.")
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) WriteFields(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.client.HSet(ctx, key, hashArgs(fields)...).Err(); err != nil {
		return unavailable("write fields", err)
	}
	return nil
}

func (s *RedisStore) ReadFields(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, unavailable("read fields", err)
	}
	return fields, nil
}

func (s *RedisStore) AddToSet(ctx context.Context, setKey, member string) error {
	if err := s.client.SAdd(ctx, setKey, member).Err(); err != nil {
		return unavailable("add to set", err)
	}
	return nil
}

func (s *RedisStore) ListSet(ctx context.Context, setKey string) ([]string, error) {
	members, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, unavailable("list set", err)
	}
	return members, nil
}

func (s *RedisStore) SetCardinality(ctx context.Context, setKey string) (int64, error) {
	n, err := s.client.SCard(ctx, setKey).Result()
	if err != nil {
		return 0, unavailable("set cardinality", err)
	}
	return n, nil
}

// WriteIndexed runs HSET and every SADD inside one MULTI/EXEC block.
func (s *RedisStore) WriteIndexed(ctx context.Context, key string, fields map[string]string, member string, setKeys ...string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(fields) > 0 {
			pipe.HSet(ctx, key, hashArgs(fields)...)
		}
		for _, setKey := range setKeys {
			pipe.SAdd(ctx, setKey, member)
		}
		return nil
	})
	if err != nil {
		return unavailable("write indexed", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func hashArgs(fields map[string]string) []interface{} {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}
