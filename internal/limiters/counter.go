package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCounterUnavailable wraps Redis failures.
var ErrCounterUnavailable = errors.New("counter backend unavailable")

const (
	// IPScope prefixes per-IP counter keys.
	IPScope = "ip_"
	// GenericScope prefixes generic counter keys.
	GenericScope = "generic_"

	DefaultIPTTL        = 30 * time.Second
	DefaultIPLimit      = 5
	DefaultGenericTTL   = time.Hour
	DefaultGenericLimit = 5
)

// CounterConfig tunes a [Counter].
type CounterConfig struct {
	// Prefix is prepended to every key before the scope, e.g. "sso:".
	Prefix string
	// TTL is the fixed window length.
	TTL time.Duration
	// Limit is the number of safe hits; a value >= Limit is exceeded.
	Limit int64
}

// Counter is a fixed-window counter namespace in Redis.
type Counter struct {
	redis redis.UniversalClient
	scope string
	cfg   CounterConfig
}

// NewCounter creates a counter for scope. Zero TTL or limit values are rejected
// by the callers' config validation, not here.
func NewCounter(redisClient redis.UniversalClient, scope string, cfg CounterConfig) *Counter {
	return &Counter{
		redis: redisClient,
		scope: scope,
		cfg:   cfg,
	}
}

// NewIPCounter creates the per-IP counter, filling zero TTL/limit with defaults.
func NewIPCounter(redisClient redis.UniversalClient, cfg CounterConfig) *Counter {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultIPTTL
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultIPLimit
	}
	return NewCounter(redisClient, IPScope, cfg)
}

// NewGenericCounter creates the generic counter, filling zero TTL/limit with defaults.
func NewGenericCounter(redisClient redis.UniversalClient, cfg CounterConfig) *Counter {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultGenericTTL
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultGenericLimit
	}
	return NewCounter(redisClient, GenericScope, cfg)
}

// Limit returns the configured safe number of hits.
func (c *Counter) Limit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.Limit
}

// Increment adds one hit for key and returns the new value.
func (c *Counter) Increment(ctx context.Context, key string) (int64, error) {
	if c == nil {
		return 0, nil
	}
	k := c.key(key)

	count, err := c.redis.Incr(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCounterUnavailable, err)
	}

	// Fixed window: only the first hit arms the expiry.
	if count == 1 {
		if err := c.redis.Expire(ctx, k, c.cfg.TTL).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCounterUnavailable, err)
		}
	}

	return count, nil
}

// IncrementAndCheck adds one hit for key and reports whether the counter is now
// at or above the limit.
func (c *Counter) IncrementAndCheck(ctx context.Context, key string) (bool, error) {
	if c == nil {
		return false, nil
	}
	count, err := c.Increment(ctx, key)
	if err != nil {
		return false, err
	}
	return count >= c.cfg.Limit, nil
}

// Check reports whether key is at or above the limit without counting a hit.
func (c *Counter) Check(ctx context.Context, key string) (bool, error) {
	if c == nil {
		return false, nil
	}
	count, err := c.Value(ctx, key)
	if err != nil {
		return false, err
	}
	return count >= c.cfg.Limit, nil
}

// Value returns the current count for key; a missing key counts as zero.
func (c *Counter) Value(ctx context.Context, key string) (int64, error) {
	if c == nil {
		return 0, nil
	}
	count, err := c.redis.Get(ctx, c.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrCounterUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return count, nil
}

// Reset deletes the counter for key.
func (c *Counter) Reset(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	if err := c.redis.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCounterUnavailable, err)
	}
	return nil
}

func (c *Counter) key(key string) string {
	return c.cfg.Prefix + c.scope + key
}
