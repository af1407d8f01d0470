// Package redis implements the shared (L2) detail cache layer on Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"ledger-query/pkg/cache"

	"github.com/redis/rueidis"
)

// RedisCache stores encoded snapshots as plain Redis strings with an expiry.
type RedisCache struct {
	client rueidis.Client
	name   string
	config RedisCacheConfig
}

// RedisCacheConfig holds connection and keying settings.
type RedisCacheConfig struct {
	Name string
	// Addr is the server address for single-node mode, e.g. "localhost:6379".
	Addr string
	// ClusterAddrs enables cluster mode when set.
	ClusterAddrs []string
	Username     string
	Password     string
	// DB is the database number; cluster mode only supports 0.
	DB           int
	KeyPrefix    string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	TTL          cache.TTLPolicy
}

// DefaultRedisCacheConfig returns settings for a local single-node server.
func DefaultRedisCacheConfig() RedisCacheConfig {
	return RedisCacheConfig{
		Name:         "redis",
		Addr:         "localhost:6379",
		KeyPrefix:    "ledger:",
		DialTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
		TTL:          cache.TTLPolicy{Default: 30 * time.Second, Max: 10 * time.Minute},
	}
}

// NewRedisCache connects to Redis and verifies the connection with PING.
func NewRedisCache(config RedisCacheConfig) (*RedisCache, error) {
	if config.Name == "" {
		config.Name = "redis"
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = 5 * time.Second
	}
	if config.TTL.Default <= 0 {
		config.TTL.Default = 30 * time.Second
	}

	var initAddress []string
	switch {
	case len(config.ClusterAddrs) > 0:
		initAddress = config.ClusterAddrs
	case config.Addr != "":
		initAddress = []string{config.Addr}
	default:
		return nil, fmt.Errorf("redis: no addresses configured (set Addr or ClusterAddrs)")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:      initAddress,
		Username:         config.Username,
		Password:         config.Password,
		SelectDB:         config.DB,
		ConnWriteTimeout: config.WriteTimeout,
		MaxFlushDelay:    100 * time.Microsecond,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: failed to create client: %w", err)
	}

	r := &RedisCache{
		client: client,
		name:   config.Name,
		config: config,
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()

	if err := r.Ping(ctx); err != nil {
		client.Close()
		return nil, err
	}

	return r, nil
}

// Get returns the raw bytes stored under key.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := r.client.B().Get().Key(r.config.KeyPrefix + key).Build()
	resp := r.client.Do(ctx, cmd)

	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, cache.ErrKeyNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	data, err := resp.AsBytes()
	if err != nil {
		return nil, fmt.Errorf("redis get: failed to read response: %w", err)
	}

	return data, nil
}

// Set stores value with SET ... EX. Redis expiry has whole-second resolution,
// so TTLs are rounded up to at least one second.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if len(value) == 0 {
		return cache.ErrInvalidValue
	}

	ttl = r.config.TTL.Effective(ttl)
	if ttl < time.Second {
		ttl = time.Second
	}

	cmd := r.client.B().Set().Key(r.config.KeyPrefix + key).Value(rueidis.BinaryString(value)).Ex(ttl).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes key.
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	cmd := r.client.B().Del().Key(r.config.KeyPrefix + key).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (r *RedisCache) Ping(ctx context.Context) error {
	cmd := r.client.B().Ping().Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// TTL returns the remaining lifetime of key, or ErrKeyNotFound.
func (r *RedisCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	cmd := r.client.B().Pttl().Key(r.config.KeyPrefix + key).Build()
	ms, err := r.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, fmt.Errorf("redis pttl: %w", err)
	}

	switch ms {
	case -2:
		return 0, cache.ErrKeyNotFound
	case -1:
		return -1, nil
	default:
		return time.Duration(ms) * time.Millisecond, nil
	}
}

// Name returns the layer name.
func (r *RedisCache) Name() string {
	return r.name
}

// Close closes the client.
func (r *RedisCache) Close() error {
	r.client.Close()
	return nil
}
