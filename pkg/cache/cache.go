package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTLs
const (
	TTLReport = 5 * time.Minute  // report row, invalidated on every save
	TTLList   = 10 * time.Minute // distinct versions / subsystems
)

// Key prefixes
const (
	PrefixReport = "str:"
	PrefixList   = "strlist:"
)

// ErrUnavailable is returned by reads when no Redis client is configured
var ErrUnavailable = errors.New("redis not available")

// ErrMiss is returned when the key is not cached
var ErrMiss = errors.New("cache miss")

// Service Redis cache service. A nil client turns every write into a no-op
// and every read into ErrUnavailable, so callers fall through to the database.
type Service interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	// report rows
	GetReport(ctx context.Context, id int, dest interface{}) error
	SetReport(ctx context.Context, id int, report interface{}) error
	InvalidateReport(ctx context.Context, ids ...int) error

	// edit-form value lists (versions, subsystems)
	GetList(ctx context.Context, name string) ([]string, error)
	SetList(ctx context.Context, name string, values []string) error
	InvalidateLists(ctx context.Context) error

	IsAvailable() bool
	Ping(ctx context.Context) error
}

type redisCache struct {
	client *redis.Client
}

// NewService creates a cache service; client may be nil
func NewService(client *redis.Client) Service {
	return &redisCache{client: client}
}

func (c *redisCache) IsAvailable() bool {
	return c.client != nil
}

func (c *redisCache) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return c.client.Ping(ctx).Err()
}

// Get loads a JSON value into dest
func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrUnavailable
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}

// Set stores value as JSON
func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *redisCache) Exists(ctx context.Context, key string) (bool, error) {
	if c.client == nil {
		return false, nil
	}
	n, err := c.client.Exists(ctx, key).Result()
	return n > 0, err
}

// ========================================
// Reports
// ========================================

func reportKey(id int) string {
	return fmt.Sprintf("%s%d", PrefixReport, id)
}

func (c *redisCache) GetReport(ctx context.Context, id int, dest interface{}) error {
	return c.Get(ctx, reportKey(id), dest)
}

func (c *redisCache) SetReport(ctx context.Context, id int, report interface{}) error {
	return c.Set(ctx, reportKey(id), report, TTLReport)
}

func (c *redisCache) InvalidateReport(ctx context.Context, ids ...int) error {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, reportKey(id))
	}
	return c.Delete(ctx, keys...)
}

// ========================================
// Form lists
// ========================================

func (c *redisCache) GetList(ctx context.Context, name string) ([]string, error) {
	var values []string
	if err := c.Get(ctx, PrefixList+name, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func (c *redisCache) SetList(ctx context.Context, name string, values []string) error {
	return c.Set(ctx, PrefixList+name, values, TTLList)
}

func (c *redisCache) InvalidateLists(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.deleteByPattern(ctx, PrefixList+"*")
}

func (c *redisCache) deleteByPattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
