package kv

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Backend over a single logical Redis instance. List maps to SCAN,
// so a listing is a loose snapshot: keys written mid-scan may or may not be
// seen, which the cache layer tolerates.
type Redis struct {
	client *redis.Client
}

// RedisOptions holds connection settings for the Redis backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis creates a Redis backend. The connection is lazy; use Ping to
// verify reachability.
func NewRedis(opts RedisOptions) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})}
}

// Ping verifies connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client's connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Get retrieves a value; redis.Nil maps to absent.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set stores a value with the given TTL (SET key val EX ttl).
func (r *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, val, ttl).Err()
}

// Delete removes a key. Deleting an absent key is a no-op.
func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// List pages through keys matching prefix* via SCAN. The cursor is the SCAN
// cursor; SCAN's COUNT is a hint, so pages may be smaller or slightly larger
// than limit. A zero returned cursor means the scan is complete.
func (r *Redis) List(ctx context.Context, prefix, cursor string, limit int) (Page, error) {
	if limit <= 0 {
		limit = 1000
	}
	var cur uint64
	if cursor != "" {
		parsed, err := strconv.ParseUint(cursor, 10, 64)
		if err != nil {
			return Page{}, errors.New("malformed list cursor")
		}
		cur = parsed
	}

	keys, next, err := r.client.Scan(ctx, cur, prefix+"*", int64(limit)).Result()
	if err != nil {
		return Page{}, err
	}

	page := Page{Keys: keys, Complete: next == 0}
	if !page.Complete {
		page.Cursor = strconv.FormatUint(next, 10)
	}
	return page, nil
}
