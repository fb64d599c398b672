package goSSO

import (
	"log/slog"
	"sync"
	"time"

	"github.com/MrEthical07/goSSO/captcha"
	"github.com/MrEthical07/goSSO/internal/limiters"
	"github.com/MrEthical07/goSSO/internal/stores"
	"github.com/MrEthical07/goSSO/password"
	"github.com/MrEthical07/goSSO/signin"
	"github.com/MrEthical07/goSSO/token"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Engine runs the sign-in, sign-up, password recovery and session flows. It is
// safe for concurrent use once built.
type Engine struct {
	config Config
	clock  func() time.Time
	logger *slog.Logger
	redis  redis.UniversalClient

	enc       *token.Encryptor
	captcha   *captcha.Service
	used      *stores.UsedTokenStore
	pwChanges *stores.PasswordChangeStore
	users     UserRepository
	sessions  SessionRepository
	urls      *signin.URLBuilder
	responses *signin.Builder
	minter    *signin.AccessTokenMinter
	passwords *password.Argon2

	ipCounter      *limiters.Counter
	genericCounter *limiters.Counter

	audit     *auditDispatcher
	metrics   *Metrics
	tokenNote *rate.Sometimes

	sweepMu   sync.Mutex
	sweepStop chan struct{}
	sweepWG   sync.WaitGroup
	closeOnce sync.Once
}

// Close stops the session sweeper and flushes pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		e.stopSweeper()
		e.audit.Close()
	})
}

// AuditDropped returns the number of audit events lost to backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns the engine counters. It is empty when metrics are
// disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// URLs returns the URL builder used by the flows.
func (e *Engine) URLs() *signin.URLBuilder {
	return e.urls
}

// Responses returns the sign-in response builder.
func (e *Engine) Responses() *signin.Builder {
	return e.responses
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) now() time.Time {
	if e == nil || e.clock == nil {
		return time.Now()
	}
	return e.clock()
}
