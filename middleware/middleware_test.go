package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	goSSO "github.com/MrEthical07/goSSO"
	"github.com/MrEthical07/goSSO/signin"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noUsers struct{}

func (noUsers) GetUser(context.Context, int64) (*goSSO.User, error) {
	return nil, goSSO.ErrUserNotFound
}
func (noUsers) GetUserByUsername(context.Context, string) (*goSSO.User, error) {
	return nil, goSSO.ErrUserNotFound
}
func (noUsers) GetUserByEmail(context.Context, string) (*goSSO.User, error) {
	return nil, goSSO.ErrUserNotFound
}
func (noUsers) CreateUser(context.Context, *goSSO.User, string) (*goSSO.User, error) {
	return nil, goSSO.ErrBackendUnavailable
}
func (noUsers) UpdateUser(context.Context, *goSSO.User) error { return goSSO.ErrUserNotFound }
func (noUsers) UpdatePassword(context.Context, int64, string) error {
	return goSSO.ErrUserNotFound
}

func newEngine(t *testing.T, mutate func(*goSSO.Config)) (*goSSO.Engine, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := goSSO.DefaultConfig()
	cfg.Token.EncryptionPassword = "middleware-test"
	cfg.Token.Iterations = 16
	cfg.Counters.IPLimit = 2
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := goSSO.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserRepository(noUsers{}).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine, mr
}

func accessToken(t *testing.T, engine *goSSO.Engine, role goSSO.UserRole) string {
	t.Helper()
	sess, err := engine.NewSession(context.Background(), &goSSO.User{
		ID:                7,
		Role:              role,
		SignInState:       goSSO.SignInEnabled,
		ConfirmationState: goSSO.Confirmed,
	})
	require.NoError(t, err)
	return sess.AccessToken
}

// capture records the context the final handler saw.
type capture struct {
	ctx context.Context
}

func (c *capture) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.ctx = r.Context()
	w.WriteHeader(http.StatusNoContent)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		header string
		want   string
	}{
		{"direct", "203.0.113.5:5555", "", "203.0.113.5"},
		{"spoofed header ignored", "203.0.113.5:5555", "10.0.0.1", "203.0.113.5"},
		{"loopback proxy", "127.0.0.1:9000", "198.51.100.7", "198.51.100.7"},
		{"ipv6 loopback proxy", "[::1]:9000", "198.51.100.8", "198.51.100.8"},
		{"loopback without header", "127.0.0.1:9000", "", "127.0.0.1"},
		{"empty remote", "", "", "::1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := &capture{}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			if tc.header != "" {
				req.Header.Set("X-Real-IP", tc.header)
			}
			ClientIP(c).ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tc.want, goSSO.ClientIPFromContext(c.ctx))
		})
	}
}

func TestHitsPerIP(t *testing.T) {
	engine, _ := newEngine(t, nil)

	var seen []bool
	for i := 0; i < 3; i++ {
		c := &capture{}
		h := ClientIP(HitsPerIP(engine)(c))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.5:1"
		h.ServeHTTP(httptest.NewRecorder(), req)
		seen = append(seen, goSSO.HitsExceededFromContext(c.ctx))
	}
	assert.Equal(t, []bool{false, true, true}, seen)
}

func TestHitsPerIPRedisDown(t *testing.T) {
	engine, mr := newEngine(t, nil)
	mr.Close()

	c := &capture{}
	rec := httptest.NewRecorder()
	ClientIP(HitsPerIP(engine)(c)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, goSSO.HitsExceededFromContext(c.ctx))
}

func TestDeviceType(t *testing.T) {
	tests := []struct {
		ua   string
		want signin.DeviceInputType
	}{
		{"", signin.Unknown},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36", signin.Pointer},
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1", signin.Touchscreen},
		{"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36", signin.Touchscreen},
		{"Googlebot/2.1 (+http://www.google.com/bot.html)", signin.Unknown},
	}

	for _, tc := range tests {
		c := &capture{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("User-Agent", tc.ua)
		DeviceType(c).ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, tc.want, goSSO.DeviceInputTypeFromContext(c.ctx), tc.ua)
	}
}

func TestLanguage(t *testing.T) {
	h := func(target string) string {
		c := &capture{}
		Language("en", "de")(c).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
		return goSSO.LocaleFromContext(c.ctx)
	}

	assert.Equal(t, "de", h("/?lang=DE"))
	assert.Equal(t, "en", h("/?lang=fr"))
	assert.Equal(t, "en", h("/"))
}

func TestAuthenticateFromCookie(t *testing.T) {
	engine, _ := newEngine(t, nil)
	tok := accessToken(t, engine, goSSO.RoleAdmin)

	c := &capture{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sso_token", Value: tok})
	Authenticate(engine)(c).ServeHTTP(httptest.NewRecorder(), req)

	id := goSSO.IdentityFromContext(c.ctx)
	require.NotNil(t, id)
	assert.Equal(t, int64(7), id.UserID)
	assert.True(t, id.IsAdmin())

	xsrf := goSSO.XSRFTokenFromContext(c.ctx)
	require.NotEmpty(t, xsrf)
	assert.NoError(t, engine.VerifyXSRFToken(context.Background(), xsrf, 7))
}

func TestAuthenticateSources(t *testing.T) {
	engine, _ := newEngine(t, nil)
	tok := accessToken(t, engine, goSSO.RoleUser)

	c := &capture{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	Authenticate(engine)(c).ServeHTTP(httptest.NewRecorder(), req)
	assert.NotNil(t, goSSO.IdentityFromContext(c.ctx), "bearer header")

	// BROWSER policy ignores the query parameter.
	c = &capture{}
	Authenticate(engine)(c).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?token="+url.QueryEscape(tok), nil))
	assert.Nil(t, goSSO.IdentityFromContext(c.ctx), "query under browser policy")

	appEngine, _ := newEngine(t, func(cfg *goSSO.Config) {
		cfg.SignIn.DevicePolicy = signin.PolicyApplication
		cfg.SignIn.ApplicationURL = "myapp://done"
	})
	appTok := accessToken(t, appEngine, goSSO.RoleUser)
	c = &capture{}
	Authenticate(appEngine)(c).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?token="+url.QueryEscape(appTok), nil))
	assert.NotNil(t, goSSO.IdentityFromContext(c.ctx), "query under application policy")
}

func TestAuthenticateInvalidTokenContinuesAnonymous(t *testing.T) {
	engine, _ := newEngine(t, nil)

	c := &capture{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sso_token", Value: "garbage"})
	Authenticate(engine)(c).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, goSSO.IdentityFromContext(c.ctx))
}

func TestXSRF(t *testing.T) {
	engine, _ := newEngine(t, nil)
	tok := accessToken(t, engine, goSSO.RoleUser)
	h := Authenticate(engine)(XSRF(engine)(&capture{}))

	post := func(form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/sso/profile?lang=en", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(&http.Cookie{Name: "sso_token", Value: tok})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := post(url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/sso/profile?invalidXsrfToken=true&lang=en", rec.Header().Get("Location"))

	other, err := engine.NewXSRFToken(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, post(url.Values{XSRFField: {other}}).Code)

	mine, err := engine.NewXSRFToken(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, post(url.Values{XSRFField: {mine}}).Code)

	// Safe methods pass.
	get := httptest.NewRequest(http.MethodGet, "/sso/profile", nil)
	get.AddCookie(&http.Cookie{Name: "sso_token", Value: tok})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, get)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	engine, _ := newEngine(t, nil)
	h := Authenticate(engine)(RequireAdmin(engine)(&capture{}))

	serve := func(tok string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/sso/admin", nil)
		if tok != "" {
			req.AddCookie(&http.Cookie{Name: "sso_token", Value: tok})
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := serve("")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "http://localhost:8080/sso/signin"))

	rec = serve(accessToken(t, engine, goSSO.RoleUser))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://localhost:8080", rec.Header().Get("Location"))

	assert.Equal(t, http.StatusNoContent, serve(accessToken(t, engine, goSSO.RoleAdmin)).Code)
}

func TestRequireUnauthenticated(t *testing.T) {
	engine, _ := newEngine(t, func(cfg *goSSO.Config) {
		cfg.URLs.AllowedContinueURLs = []string{"https://app.example.com/"}
	})
	h := Authenticate(engine)(RequireUnauthenticated(engine)(&capture{}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sso/signin", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/sso/signin?continue="+url.QueryEscape("https://app.example.com/x"), nil)
	req.AddCookie(&http.Cookie{Name: "sso_token", Value: accessToken(t, engine, goSSO.RoleUser)})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://app.example.com/x", rec.Header().Get("Location"))
}

func TestChain(t *testing.T) {
	engine, _ := newEngine(t, nil)
	tok := accessToken(t, engine, goSSO.RoleUser)

	c := &capture{}
	req := httptest.NewRequest(http.MethodGet, "/?lang=de", nil)
	req.RemoteAddr = "192.0.2.10:443"
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	req.AddCookie(&http.Cookie{Name: "sso_token", Value: tok})
	Chain(engine, "en", "de")(c).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "192.0.2.10", goSSO.ClientIPFromContext(c.ctx))
	assert.Equal(t, "de", goSSO.LocaleFromContext(c.ctx))
	assert.Equal(t, signin.Pointer, goSSO.DeviceInputTypeFromContext(c.ctx))
	assert.NotNil(t, goSSO.IdentityFromContext(c.ctx))
}
