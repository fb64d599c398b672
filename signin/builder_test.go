package signin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goSSO/pbe"
	"github.com/MrEthical07/goSSO/token"
)

type stubMinter struct {
	token string
	err   error
	got   Principal
}

func (m *stubMinter) MintAccessToken(_ context.Context, p Principal) (string, error) {
	m.got = p
	return m.token, m.err
}

func testConfig(policy DeviceAuthPolicy, browser AppendTokenPolicy) Config {
	return Config{
		DevicePolicy:      policy,
		BrowserAppend:     browser,
		ApplicationAppend: AppendURLParam,
		CookieName:        "sso_token",
		ParameterName:     "token",
		ApplicationURL:    "app://signin",
		Domain:            "example.com",
		Production:        true,
		AccessTTL:         time.Hour,
	}
}

func TestSignInBrowserCookie(t *testing.T) {
	m := &stubMinter{token: "TOK"}
	b := NewBuilder(testConfig(PolicyAuto, AppendCookie), m)

	resp, err := b.SignIn(context.Background(), Principal{UserID: 7, Role: "ADMIN"}, Pointer, "https://app/x")
	require.NoError(t, err)
	assert.Equal(t, BrowserStyle, resp.Style)
	assert.Equal(t, "https://app/x", resp.RedirectURL)
	require.NotNil(t, resp.Cookie)
	assert.Equal(t, "sso_token", resp.Cookie.Name)
	assert.Equal(t, "TOK", resp.Cookie.Value)
	assert.Equal(t, 3600, resp.Cookie.MaxAge)
	assert.Equal(t, "/", resp.Cookie.Path)
	assert.Equal(t, "example.com", resp.Cookie.Domain)
	assert.True(t, resp.Cookie.HttpOnly)
	assert.True(t, resp.Cookie.Secure)
	assert.Equal(t, int64(7), m.got.UserID)

	rec := httptest.NewRecorder()
	resp.Write(rec, httptest.NewRequest(http.MethodPost, "/sso/signin", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://app/x", rec.Header().Get("Location"))
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "sso_token=TOK")
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "HttpOnly")
}

func TestSignInBrowserAppend(t *testing.T) {
	b := NewBuilder(testConfig(PolicyBrowser, AppendURLFragment), &stubMinter{token: "a b"})

	resp, err := b.SignIn(context.Background(), Principal{UserID: 1}, Touchscreen, "https://app/x")
	require.NoError(t, err)
	assert.Equal(t, BrowserStyle, resp.Style)
	assert.Nil(t, resp.Cookie)
	assert.Equal(t, "https://app/x#token=a%20b", resp.RedirectURL)
}

func TestSignInApplication(t *testing.T) {
	b := NewBuilder(testConfig(PolicyApplication, AppendCookie), &stubMinter{token: "TOK"})

	resp, err := b.SignIn(context.Background(), Principal{UserID: 1}, Pointer, "https://app/x")
	require.NoError(t, err)
	assert.Equal(t, ApplicationStyle, resp.Style)
	assert.Nil(t, resp.Cookie)
	assert.Equal(t, "app://signin?token=TOK", resp.RedirectURL)
}

func TestSignInMintingFailure(t *testing.T) {
	b := NewBuilder(testConfig(PolicyAuto, AppendCookie), &stubMinter{err: errors.New("boom")})

	_, err := b.SignIn(context.Background(), Principal{UserID: 1}, Pointer, "https://app/x")
	assert.ErrorIs(t, err, ErrTokenMinting)
}

func TestSignOutClearsCookie(t *testing.T) {
	b := NewBuilder(testConfig(PolicyAuto, AppendCookie), &stubMinter{})

	resp := b.SignOut("https://sso/signin")
	rec := httptest.NewRecorder()
	resp.Write(rec, httptest.NewRequest(http.MethodGet, "/sso/signout", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://sso/signin", rec.Header().Get("Location"))
	assert.True(t, strings.Contains(rec.Header().Get("Set-Cookie"), "Max-Age=0"))
}

func TestAccessTokenMinterRoleAttribute(t *testing.T) {
	aes, err := pbe.New(pbe.Config{Password: "minter"})
	require.NoError(t, err)
	now := time.Unix(1700000000, 0)
	enc := token.NewEncryptor(aes, token.WithClock(func() time.Time { return now }))
	m := NewAccessTokenMinter(enc, "project", time.Hour)

	sealed, err := m.MintAccessToken(context.Background(), Principal{UserID: 3, Role: "MODERATOR"})
	require.NoError(t, err)
	tok, err := enc.DecryptType(sealed, token.Access)
	require.NoError(t, err)
	assert.Equal(t, "project", tok.Scope())
	assert.Equal(t, "MODERATOR", tok.AttrOr(token.AttrRole, ""))
	assert.Equal(t, int64(3600), tok.TimeToLive())

	sealed, err = m.MintAccessToken(context.Background(), Principal{UserID: 3, Role: DefaultRole})
	require.NoError(t, err)
	tok, err = enc.DecryptType(sealed, token.Access)
	require.NoError(t, err)
	_, ok := tok.Attr(token.AttrRole)
	assert.False(t, ok)
}
