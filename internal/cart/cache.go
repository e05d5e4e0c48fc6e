package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// SummaryCache holds the header-badge summary per identity. Every Delete bumps
// the key's version, and SetIfVersion only stores while the version read before
// loading the summary is still current, so a read racing a mutation never
// caches the pre-mutation value.
type SummaryCache interface {
	Get(ctx context.Context, key string) (Summary, error)
	Version(ctx context.Context, key string) (int64, error)
	SetIfVersion(ctx context.Context, key string, version int64, s Summary) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// SummaryKeys returns the cache keys an identity's summary may live under.
func SummaryKeys(id Identity) []string {
	var keys []string
	if id.UserID != "" {
		keys = append(keys, "cart:summary:user:"+id.UserID)
	}
	if id.SessionToken != "" {
		keys = append(keys, "cart:summary:session:"+id.SessionToken)
	}
	return keys
}

// summaryKey is the key an identity's summary is read from and cached under:
// the user key when authenticated, otherwise the session key.
func summaryKey(id Identity) string {
	keys := SummaryKeys(id)
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

// versionTTL outlives any summary read in flight when the version is bumped.
const versionTTL = time.Hour

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

func (r *RedisCache) Get(ctx context.Context, key string) (Summary, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Summary{}, ErrCacheMiss
	}
	if err != nil {
		return Summary{}, fmt.Errorf("redis get failed: %w", err)
	}

	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return Summary{}, fmt.Errorf("unmarshal summary failed: %w", err)
	}
	return s, nil
}

func versionKey(key string) string {
	return key + ":version"
}

func (r *RedisCache) Version(ctx context.Context, key string) (int64, error) {
	v, err := r.client.Get(ctx, versionKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get version failed: %w", err)
	}
	return v, nil
}

func (r *RedisCache) SetIfVersion(ctx context.Context, key string, version int64, s Summary) (bool, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return false, fmt.Errorf("marshal summary failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	stored := false
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey(key)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.baseTTL+jitter)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, versionKey(key))
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis set failed: %w", err)
	}
	return stored, nil
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.Incr(ctx, versionKey(k))
			pipe.Expire(ctx, versionKey(k), versionTTL)
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// NoopCache is used when no Redis is configured; every read misses.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (Summary, error) { return Summary{}, ErrCacheMiss }
func (NoopCache) Version(context.Context, string) (int64, error) { return 0, nil }
func (NoopCache) SetIfVersion(context.Context, string, int64, Summary) (bool, error) {
	return false, nil
}
func (NoopCache) Delete(context.Context, ...string) error { return nil }
