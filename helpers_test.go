package goSSO

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testEncryptionPassword = "test-encryption-password"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// memUsers is an in-memory UserRepository.
type memUsers struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]User
	now    func() time.Time

	updateCalls int
	failUpdate  error
}

func newMemUsers(now func() time.Time) *memUsers {
	return &memUsers{nextID: 1, users: map[int64]User{}, now: now}
}

func (m *memUsers) GetUser(_ context.Context, id int64) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (m *memUsers) GetUserByUsername(_ context.Context, username string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memUsers) CreateUser(_ context.Context, user *User, passwordHash string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return nil, ErrEmailExists
		}
		if u.Username == user.Username {
			return nil, ErrUsernameExists
		}
	}
	u := *user
	u.ID = m.nextID
	m.nextID++
	u.PasswordHash = passwordHash
	u.Created = m.now()
	m.users[u.ID] = u
	return &u, nil
}

func (m *memUsers) UpdateUser(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.failUpdate != nil {
		return m.failUpdate
	}
	u, ok := m.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	u.Username = user.Username
	u.Email = user.Email
	u.Role = user.Role
	u.SignInState = user.SignInState
	u.ConfirmationState = user.ConfirmationState
	u.LastUsedLocale = user.LastUsedLocale
	m.users[user.ID] = u
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, userID int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	m.users[userID] = u
	return nil
}

func (m *memUsers) remove(id int64) {
	m.mu.Lock()
	delete(m.users, id)
	m.mu.Unlock()
}

func (m *memUsers) set(u User) {
	m.mu.Lock()
	m.users[u.ID] = u
	m.mu.Unlock()
}

type testEnv struct {
	engine *Engine
	users  *memUsers
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	clock  *fakeClock
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.EncryptionPassword = testEncryptionPassword
	cfg.Token.Iterations = 16
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.URLs.AllowedContinueURLs = []string{"https://app.example.com/"}
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func newTestEnv(t testing.TB, mutate func(*Config), opts ...func(*Builder)) *testEnv {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	mr, rdb := newTestRedis(t)
	clock := newFakeClock()
	users := newMemUsers(clock.Now)

	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserRepository(users).
		WithClock(clock.Now)
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, users: users, mr: mr, rdb: rdb, clock: clock}
}

// addUser stores a confirmed, enabled user with the given password.
func (env *testEnv) addUser(t testing.TB, username, email, password string) *User {
	t.Helper()

	hash, err := env.engine.passwords.Hash(password)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	u, err := env.users.CreateUser(context.Background(), &User{
		Username:          username,
		Email:             email,
		Role:              RoleUser,
		SignInState:       SignInEnabled,
		ConfirmationState: Confirmed,
	}, hash)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return u
}

// solvedCaptcha issues a CAPTCHA and returns its token with the right answer.
func (env *testEnv) solvedCaptcha(t testing.TB) (string, string) {
	t.Helper()

	tok, _, err := env.engine.NewCaptcha(context.Background())
	if err != nil {
		t.Fatalf("NewCaptcha failed: %v", err)
	}
	text, err := env.engine.CaptchaText(context.Background(), tok)
	if err != nil {
		t.Fatalf("CaptchaText failed: %v", err)
	}
	return tok, text
}
