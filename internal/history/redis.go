package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a Redis list. Entries are pushed to the
// head and the list is trimmed to the cap, so eviction matches the
// in-memory store.
type RedisStore struct {
	client *redis.Client
	key    string
	max    int
}

var _ Store = (*RedisStore)(nil)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
	// MaxEntries caps the retained list; <= 0 selects DefaultMaxEntries.
	MaxEntries int
}

// NewRedisStore connects to Redis and returns a history store.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "ussd"
	}
	max := opts.MaxEntries
	if max <= 0 {
		max = DefaultMaxEntries
	}
	return &RedisStore{client: client, key: prefix + ":history", max: max}, nil
}

// Append implements Store.Append.
func (s *RedisStore) Append(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.key, data)
	pipe.LTrim(ctx, s.key, 0, int64(s.max-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

// Recent implements Store.Recent.
func (s *RedisStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	stop := int64(s.max - 1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	raw, err := s.client.LRange(ctx, s.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	// The list is newest-first; callers expect oldest-first.
	entries := make([]Entry, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var e Entry
		if err := json.Unmarshal([]byte(raw[i]), &e); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Clear implements Store.Clear.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
