//go:build integration
// +build integration

package test

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goSSO "github.com/MrEthical07/goSSO"
)

// redisMode describes which Redis backend a suite is running against.
type redisMode struct {
	name  string
	setup func(t *testing.T) redis.UniversalClient
}

// redisModes returns the Redis backends to test. miniredis is always
// available; REDIS_ADDR adds a standalone server. Cluster mode is not
// covered: the session store writes its blob and creation index in one
// MULTI, which needs both keys in one slot.
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) redis.UniversalClient {
				t.Helper()
				mr := miniredis.RunT(t)
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				t.Cleanup(func() { _ = rdb.Close() })
				return rdb
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) redis.UniversalClient {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				rdb.FlushDB(context.Background())
				t.Cleanup(func() {
					rdb.FlushDB(context.Background())
					_ = rdb.Close()
				})
				return rdb
			},
		})
	}

	return modes
}

func testConfig() goSSO.Config {
	cfg := goSSO.DefaultConfig()
	cfg.Token.EncryptionPassword = "integration-password"
	cfg.Token.Iterations = 16
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Metrics.Enabled = true
	return cfg
}

func newEngine(t *testing.T, rdb redis.UniversalClient, users goSSO.UserRepository, mutate func(*goSSO.Config)) *goSSO.Engine {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	engine, err := goSSO.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserRepository(users).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

// users is a minimal concurrent in-memory repository.
type users struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]goSSO.User
}

func newUsers() *users {
	return &users{byID: map[int64]goSSO.User{}}
}

func (u *users) GetUser(_ context.Context, id int64) (*goSSO.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	rec, ok := u.byID[id]
	if !ok {
		return nil, goSSO.ErrUserNotFound
	}
	return &rec, nil
}

func (u *users) GetUserByUsername(_ context.Context, name string) (*goSSO.User, error) {
	return u.find(func(rec goSSO.User) bool { return strings.EqualFold(rec.Username, name) })
}

func (u *users) GetUserByEmail(_ context.Context, email string) (*goSSO.User, error) {
	return u.find(func(rec goSSO.User) bool { return strings.EqualFold(rec.Email, email) })
}

func (u *users) find(match func(goSSO.User) bool) (*goSSO.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, rec := range u.byID {
		if match(rec) {
			return &rec, nil
		}
	}
	return nil, goSSO.ErrUserNotFound
}

func (u *users) CreateUser(_ context.Context, user *goSSO.User, hash string) (*goSSO.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, rec := range u.byID {
		if strings.EqualFold(rec.Email, user.Email) {
			return nil, goSSO.ErrEmailExists
		}
		if strings.EqualFold(rec.Username, user.Username) {
			return nil, goSSO.ErrUsernameExists
		}
	}
	u.nextID++
	rec := *user
	rec.ID = u.nextID
	rec.PasswordHash = hash
	if rec.Created.IsZero() {
		rec.Created = time.Now()
	}
	u.byID[rec.ID] = rec
	return &rec, nil
}

func (u *users) UpdateUser(_ context.Context, user *goSSO.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	rec, ok := u.byID[user.ID]
	if !ok {
		return goSSO.ErrUserNotFound
	}
	hash := rec.PasswordHash
	rec = *user
	rec.PasswordHash = hash
	u.byID[user.ID] = rec
	return nil
}

func (u *users) UpdatePassword(_ context.Context, id int64, hash string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	rec, ok := u.byID[id]
	if !ok {
		return goSSO.ErrUserNotFound
	}
	rec.PasswordHash = hash
	u.byID[id] = rec
	return nil
}

func solveCaptcha(t *testing.T, engine *goSSO.Engine) (string, string) {
	t.Helper()
	ctx := context.Background()
	tok, _, err := engine.NewCaptcha(ctx)
	if err != nil {
		t.Fatalf("NewCaptcha failed: %v", err)
	}
	text, err := engine.CaptchaText(ctx, tok)
	if err != nil {
		t.Fatalf("CaptchaText failed: %v", err)
	}
	return tok, text
}
