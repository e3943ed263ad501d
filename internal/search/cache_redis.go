package search

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cybersmurf/mimm-music-search/internal/domain"
)

const redisCachePrefix = "mimm:search:"

// RedisCacheBackend is the optional second cache tier, shared between
// replicas. Values are JSON-encoded track lists with a per-entry TTL.
type RedisCacheBackend struct {
	client *redis.Client
}

func NewRedisCacheBackend(client *redis.Client) *RedisCacheBackend {
	return &RedisCacheBackend{client: client}
}

// Get returns the cached tracks for key plus the entry's remaining TTL,
// so the local tier can mirror the value without extending its lifetime.
func (r *RedisCacheBackend) Get(ctx context.Context, key string) ([]domain.Track, time.Duration, bool, error) {
	pipe := r.client.Pipeline()
	getCmd := pipe.Get(ctx, redisCachePrefix+key)
	ttlCmd := pipe.TTL(ctx, redisCachePrefix+key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, 0, false, err
	}

	data, err := getCmd.Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, 0, false, nil
		}
		return nil, 0, false, err
	}
	var tracks []domain.Track
	if err := json.Unmarshal(data, &tracks); err != nil {
		return nil, 0, false, err
	}

	ttl, err := ttlCmd.Result()
	if err != nil || ttl < 0 {
		// -1 (no expiry) and -2 (gone between the two commands) both mean
		// the remaining lifetime is unknown.
		ttl = 0
	}
	return tracks, ttl, true, nil
}

func (r *RedisCacheBackend) Set(ctx context.Context, key string, tracks []domain.Track, ttl time.Duration) error {
	data, err := json.Marshal(tracks)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisCachePrefix+key, data, ttl).Err()
}

func (r *RedisCacheBackend) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, redisCachePrefix+key).Err()
}

func (r *RedisCacheBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
