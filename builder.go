package goSSO

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/MrEthical07/goSSO/captcha"
	"github.com/MrEthical07/goSSO/internal/limiters"
	"github.com/MrEthical07/goSSO/internal/stores"
	"github.com/MrEthical07/goSSO/password"
	"github.com/MrEthical07/goSSO/pbe"
	"github.com/MrEthical07/goSSO/session"
	"github.com/MrEthical07/goSSO/signin"
	"github.com/MrEthical07/goSSO/token"
)

// tokenNoteInterval spaces "token rejected" log lines after the first one.
const tokenNoteInterval = 10 * time.Second

// Builder assembles an [Engine]. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users     UserRepository
	sessions  SessionRepository
	auditSink AuditSink
	logger    *slog.Logger
	clock     func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing counters, single-use markers and, unless
// WithSessionRepository is used, auth sessions.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserRepository sets the user store. It is required.
func (b *Builder) WithUserRepository(users UserRepository) *Builder {
	b.users = users
	return b
}

// WithSessionRepository replaces the Redis session store, e.g. with the
// Postgres repository.
func (b *Builder) WithSessionRepository(sessions SessionRepository) *Builder {
	b.sessions = sessions
	return b
}

// WithAuditSink enables delivery of audit events to sink when
// Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine logger. The default discards everything.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for token creation, expiry checks and the
// probation period.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled overrides Config.Metrics.Enabled.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms overrides Config.Metrics.EnableLatencyHistograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("user repository required")
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// -------- TOKENS --------
	cipher, err := pbe.New(pbe.Config{
		Password:   cfg.Token.EncryptionPassword,
		KeySize:    pbe.KeySize(cfg.Token.KeySize),
		Iterations: cfg.Token.Iterations,
		SaltLength: cfg.Token.SaltLength,
	})
	if err != nil {
		return nil, fmt.Errorf("token cipher: %w", err)
	}
	enc := token.NewEncryptor(cipher, token.WithClock(clock))

	// -------- REDIS-BACKED STATE --------
	used := stores.NewUsedTokenStore(b.redis, cfg.Captcha.UsedPrefix)
	captchas, err := captcha.New(enc, used, captcha.Config{
		Alphabet: cfg.Captcha.Alphabet,
		Length:   cfg.Captcha.Length,
		TTL:      cfg.Captcha.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("captcha: %w", err)
	}

	sessions := b.sessions
	if sessions == nil {
		sessions = session.NewStore(b.redis, cfg.Session.RedisPrefix)
	}

	// -------- SIGN-IN RESPONSES --------
	urls := signin.NewURLBuilder(signin.URLConfig{
		BaseURL:             cfg.URLs.BaseURL,
		SubRoute:            cfg.URLs.SubRoute,
		AllowedContinueURLs: cfg.URLs.AllowedContinueURLs,
		TestMode:            cfg.URLs.TestMode,
	})
	minter := signin.NewAccessTokenMinter(enc, cfg.Token.Scope, cfg.Token.AccessTTL)
	responses := signin.NewBuilder(signin.Config{
		DevicePolicy:      cfg.SignIn.DevicePolicy,
		BrowserAppend:     cfg.SignIn.BrowserAppend,
		ApplicationAppend: cfg.SignIn.ApplicationAppend,
		CookieName:        cfg.SignIn.CookieName,
		ParameterName:     cfg.SignIn.ParameterName,
		ApplicationURL:    cfg.SignIn.ApplicationURL,
		Domain:            cfg.SignIn.Domain,
		Production:        cfg.SignIn.Production,
		AccessTTL:         cfg.Token.AccessTTL,
	}, minter)

	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:    cfg,
		clock:     clock,
		logger:    logger,
		redis:     b.redis,
		enc:       enc,
		captcha:   captchas,
		used:      used,
		pwChanges: stores.NewPasswordChangeStore(b.redis, cfg.Password.ChangeHintPrefix),
		users:     b.users,
		sessions:  sessions,
		urls:      urls,
		responses: responses,
		minter:    minter,
		passwords: ph,
		ipCounter: limiters.NewIPCounter(b.redis, limiters.CounterConfig{
			Prefix: cfg.Counters.Prefix,
			TTL:    cfg.Counters.IPTTL,
			Limit:  cfg.Counters.IPLimit,
		}),
		genericCounter: limiters.NewGenericCounter(b.redis, limiters.CounterConfig{
			Prefix: cfg.Counters.Prefix,
			TTL:    cfg.Counters.GenericTTL,
			Limit:  cfg.Counters.GenericLimit,
		}),
		audit:     newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:   NewMetrics(cfg.Metrics),
		tokenNote: &rate.Sometimes{First: 1, Interval: tokenNoteInterval},
	}

	b.built = true

	return engine, nil
}
