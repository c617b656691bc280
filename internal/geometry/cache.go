package geometry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Cache stores polylines keyed by CacheKey.
type Cache interface {
	Get(ctx context.Context, key string) ([][]float64, bool, error)
	Set(ctx context.Context, key string, line [][]float64, ttl time.Duration) error
}

// CacheKey hashes the profile and the ordered coordinates of one lookup.
func CacheKey(profile string, lonLat [][2]float64) string {
	h := sha256.New()
	h.Write([]byte(profile))
	for _, p := range lonLat {
		h.Write([]byte("|"))
		h.Write([]byte(strconv.FormatFloat(p[0], 'f', 6, 64)))
		h.Write([]byte(","))
		h.Write([]byte(strconv.FormatFloat(p[1], 'f', 6, 64)))
	}
	return "geom:" + hex.EncodeToString(h.Sum(nil))
}

// RedisCache keeps polylines as JSON strings with a TTL.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache connects to the Redis instance at url (redis://...).
func NewRedisCache(url string) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisCache{rdb: redis.NewClient(opt)}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([][]float64, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var line [][]float64
	if err := json.Unmarshal(raw, &line); err != nil {
		return nil, false, fmt.Errorf("decode cached geometry: %w", err)
	}
	return line, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, line [][]float64, ttl time.Duration) error {
	raw, err := json.Marshal(line)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, ttl).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

func (c *RedisCache) Close() error { return c.rdb.Close() }
