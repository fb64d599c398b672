// Command gosso-loadtest measures the hot paths of the engine against Redis:
// access token authentication, session refresh and CAPTCHA redemption.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	goSSO "github.com/MrEthical07/goSSO"
)

type options struct {
	users       int
	concurrency int
	ops         int
	rate        float64
	redisAddr   string
}

func main() {
	var opt options
	flag.IntVar(&opt.users, "users", 10000, "number of users (and sessions) to seed")
	flag.IntVar(&opt.concurrency, "concurrency", 256, "number of concurrent workers")
	flag.IntVar(&opt.ops, "ops", 200000, "operations per phase")
	flag.Float64Var(&opt.rate, "rate", 0, "operations per second across all workers; 0 is unlimited")
	flag.StringVar(&opt.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	flag.Parse()

	if opt.users <= 0 || opt.concurrency <= 0 || opt.ops <= 0 || opt.rate < 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency and ops must be > 0; rate must be >= 0")
		os.Exit(2)
	}

	if err := run(context.Background(), opt); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opt options) error {
	client, cleanup, err := redisClient(opt.redisAddr)
	if err != nil {
		return err
	}
	defer cleanup()

	// Every run gets its own key space so repeated runs against one Redis do
	// not see each other's counters or sessions.
	runID := uuid.NewString()
	fmt.Printf("run %s\n", runID)

	cfg := goSSO.DefaultConfig()
	cfg.Token.EncryptionPassword = "loadtest-" + runID
	cfg.Session.RedisPrefix = "lt:" + runID + ":"
	cfg.Captcha.UsedPrefix = "lt:" + runID + ":used:"
	cfg.Counters.Prefix = "lt:" + runID + ":cnt:"
	cfg.Metrics.Enabled = true

	users := newLoadUsers(opt.users)
	engine, err := goSSO.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserRepository(users).
		Build()
	if err != nil {
		return fmt.Errorf("engine build: %w", err)
	}
	defer engine.Close()

	fmt.Printf("seeding %d sessions...\n", opt.users)
	startSeed := time.Now()
	sessions := make([]goSSO.SessionTokens, opt.users)
	for i := range sessions {
		user, _ := users.GetUser(ctx, int64(i+1))
		sess, err := engine.NewSession(ctx, user)
		if err != nil {
			return fmt.Errorf("seed session: %w", err)
		}
		sessions[i] = engine.SessionTokens(sess)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	var limiter *rate.Limiter
	if opt.rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opt.rate), opt.concurrency)
	}

	authStats := runPhase(ctx, opt, limiter, func(ctx context.Context, r *rand.Rand) error {
		_, err := engine.Authenticate(ctx, sessions[r.Intn(len(sessions))].AccessToken)
		return err
	})
	refreshStats := runPhase(ctx, opt, limiter, func(ctx context.Context, r *rand.Rand) error {
		_, err := engine.NewSessionByRefreshToken(ctx, sessions[r.Intn(len(sessions))].RefreshToken)
		return err
	})
	captchaStats := runPhase(ctx, opt, limiter, func(ctx context.Context, _ *rand.Rand) error {
		return redeemCaptcha(ctx, engine)
	})

	fmt.Println("---- results ----")
	printStats("authenticate", authStats)
	printStats("refresh", refreshStats)
	printStats("captcha", captchaStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: sessions_created=%d refreshed=%d captcha_replays=%d\n",
		snap.Counters[goSSO.MetricSessionCreated],
		snap.Counters[goSSO.MetricSessionRefreshed],
		snap.Counters[goSSO.MetricCaptchaReplay])
	return nil
}

// redeemCaptcha solves a fresh challenge and checks that a second redemption
// is refused.
func redeemCaptcha(ctx context.Context, engine *goSSO.Engine) error {
	tok, _, err := engine.NewCaptcha(ctx)
	if err != nil {
		return err
	}
	text, err := engine.CaptchaText(ctx, tok)
	if err != nil {
		return err
	}
	if err := engine.VerifyCaptcha(ctx, tok, text); err != nil {
		return err
	}
	if err := engine.VerifyCaptcha(ctx, tok, text); !errors.Is(err, goSSO.ErrAlreadyUsedToken) {
		return fmt.Errorf("captcha replay accepted: %v", err)
	}
	return nil
}

func redisClient(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func runPhase(ctx context.Context, opt options, limiter *rate.Limiter, op func(context.Context, *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, opt.ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < opt.concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= opt.ops {
					return
				}
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						atomic.AddInt64(&failures, 1)
						return
					}
				}
				t0 := time.Now()
				err := op(ctx, r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
