package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each window's entries in a Redis sorted set scored by the
// entry's unix-millisecond timestamp. Because the set is shared, every
// service replica sees the same counts and a key's budget is enforced
// globally.
//
// Members carry a random suffix so two requests landing in the same
// millisecond remain distinct set members instead of collapsing into one.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore verifies connectivity and returns a store backed by client.
func NewRedisStore(ctx context.Context, client redis.Cmdable) (*RedisStore, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, &StoreError{Op: "ping", Err: err}
	}
	return &RedisStore{client: client}, nil
}

// PruneAndCount drops entries older than floor and returns the live count.
// The two commands are pipelined into one round trip but are not a
// transaction with the Record that may follow.
func (s *RedisStore) PruneAndCount(ctx context.Context, key string, floor time.Time) (int64, error) {
	pipe := s.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", exclusiveScore(floor))
	count := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, &StoreError{Op: "prune and count", Err: err}
	}
	return count.Val(), nil
}

// CountSince counts entries at or after floor. Stale entries below floor are
// left in place; the next PruneAndCount for the key clears them.
func (s *RedisStore) CountSince(ctx context.Context, key string, floor time.Time) (int64, error) {
	count, err := s.client.ZCount(ctx, key, strconv.FormatInt(floor.UnixMilli(), 10), "+inf").Result()
	if err != nil {
		return 0, &StoreError{Op: "count", Err: err}
	}
	return count, nil
}

// Record adds an entry stamped at and refreshes the key's TTL.
func (s *RedisStore) Record(ctx context.Context, key string, at time.Time, ttl time.Duration) error {
	millis := at.UnixMilli()
	member := fmt.Sprintf("%d-%s", millis, uuid.NewString())

	pipe := s.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(millis), Member: member})
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return &StoreError{Op: "record", Err: err}
	}
	return nil
}

// Clear deletes all state for the given keys.
func (s *RedisStore) Clear(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return &StoreError{Op: "clear", Err: err}
	}
	return nil
}

// Close closes the underlying client when it owns a connection pool.
func (s *RedisStore) Close() error {
	if closer, ok := s.client.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// exclusiveScore formats floor as an exclusive range bound, so entries
// stamped exactly at the floor stay inside the window.
func exclusiveScore(floor time.Time) string {
	return "(" + strconv.FormatInt(floor.UnixMilli(), 10)
}
