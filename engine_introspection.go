package goSSO

import (
	"context"
	"errors"
	"time"
)

// ErrIntrospectionUnsupported is returned when the configured session
// repository cannot answer an introspection query.
var ErrIntrospectionUnsupported = errors.New("introspection not supported by session repository")

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	RedisAvailable bool
	RedisLatency   time.Duration
}

type sessionCounter interface {
	Count(ctx context.Context) (int64, error)
}

// Health pings Redis, which backs CAPTCHA redemption and the hit counters.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.redis == nil {
		return HealthStatus{}
	}

	start := time.Now()
	err := e.redis.Ping(ctx).Err()
	return HealthStatus{
		RedisAvailable: err == nil,
		RedisLatency:   time.Since(start),
	}
}

// ActiveSessionCount returns the number of stored auth sessions, expired ones
// included until the next sweep.
func (e *Engine) ActiveSessionCount(ctx context.Context) (int64, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}
	c, ok := e.sessions.(sessionCounter)
	if !ok {
		return 0, ErrIntrospectionUnsupported
	}
	return c.Count(ctx)
}

// HitCount returns the hits recorded for ip in the current window.
func (e *Engine) HitCount(ctx context.Context, ip string) (int64, error) {
	if e == nil || e.ipCounter == nil {
		return 0, ErrEngineNotReady
	}
	if ip == "" {
		return 0, nil
	}
	return e.ipCounter.Value(ctx, ip)
}
