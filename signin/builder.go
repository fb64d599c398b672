package signin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/goSSO/token"
)

// ErrTokenMinting marks a failure to create the access token. It is a server error.
var ErrTokenMinting = errors.New("signin: access token minting failed")

// DefaultRole is the role that is never written into access tokens.
const DefaultRole = "USER"

// Principal is the authenticated user a response is built for.
type Principal struct {
	UserID int64
	Role   string
}

// TokenMinter creates the encrypted access token for a principal.
type TokenMinter interface {
	MintAccessToken(ctx context.Context, p Principal) (string, error)
}

// AccessTokenMinter mints ACCESS tokens with an [token.Encryptor].
type AccessTokenMinter struct {
	enc   *token.Encryptor
	scope string
	ttl   time.Duration
}

// NewAccessTokenMinter returns a minter issuing tokens with scope and ttl.
func NewAccessTokenMinter(enc *token.Encryptor, scope string, ttl time.Duration) *AccessTokenMinter {
	return &AccessTokenMinter{enc: enc, scope: scope, ttl: ttl}
}

// MintAccessToken carries the role attribute only for non-default roles.
func (m *AccessTokenMinter) MintAccessToken(_ context.Context, p Principal) (string, error) {
	var extra []token.Attr
	if p.Role != "" && p.Role != DefaultRole {
		extra = append(extra, token.Attr{Key: token.AttrRole, Value: p.Role})
	}
	return m.enc.Encrypt(token.NewAccessToken(m.scope, p.UserID, m.ttl, m.enc.Now(), extra...))
}

// Config configures a [Builder].
type Config struct {
	DevicePolicy      DeviceAuthPolicy
	BrowserAppend     AppendTokenPolicy
	ApplicationAppend AppendTokenPolicy
	// CookieName names the access token cookie.
	CookieName string
	// ParameterName names the access token URL parameter.
	ParameterName string
	// ApplicationURL receives application-style redirects.
	ApplicationURL string
	// Domain scopes the cookie.
	Domain string
	// Production turns on the Secure cookie flag.
	Production bool
	// AccessTTL is the cookie Max-Age.
	AccessTTL time.Duration
}

// Response is a redirect, optionally setting a cookie.
type Response struct {
	Style       Style
	RedirectURL string
	Cookie      *http.Cookie
}

// Write sets the cookie, if any, and issues a 302 to RedirectURL.
func (r *Response) Write(w http.ResponseWriter, req *http.Request) {
	if r.Cookie != nil {
		http.SetCookie(w, r.Cookie)
	}
	http.Redirect(w, req, r.RedirectURL, http.StatusFound)
}

// Builder builds sign-in and sign-out responses. It is safe for concurrent use.
type Builder struct {
	cfg    Config
	minter TokenMinter
}

// NewBuilder returns a Builder minting tokens with minter.
func NewBuilder(cfg Config, minter TokenMinter) *Builder {
	return &Builder{cfg: cfg, minter: minter}
}

// Config returns the builder configuration.
func (b *Builder) Config() Config {
	return b.cfg
}

// SignIn mints an access token for p and returns the response appropriate to
// device. continueURL must already be sanitized by the caller.
func (b *Builder) SignIn(ctx context.Context, p Principal, device DeviceInputType, continueURL string) (*Response, error) {
	accessToken, err := b.minter.MintAccessToken(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenMinting, err)
	}

	if Decide(device, b.cfg.DevicePolicy) == ApplicationStyle {
		return &Response{
			Style:       ApplicationStyle,
			RedirectURL: AppendToken(b.cfg.ApplicationURL, b.cfg.ApplicationAppend, b.cfg.ParameterName, accessToken),
		}, nil
	}

	if b.cfg.BrowserAppend == AppendCookie {
		return &Response{
			Style:       BrowserStyle,
			RedirectURL: continueURL,
			Cookie:      b.cookie(accessToken, int(b.cfg.AccessTTL/time.Second)),
		}, nil
	}

	return &Response{
		Style:       BrowserStyle,
		RedirectURL: AppendToken(continueURL, b.cfg.BrowserAppend, b.cfg.ParameterName, accessToken),
	}, nil
}

// SignOut clears the access token cookie and redirects to signInURL.
func (b *Builder) SignOut(signInURL string) *Response {
	return &Response{
		RedirectURL: signInURL,
		Cookie:      b.cookie("", -1),
	}
}

func (b *Builder) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     b.cfg.CookieName,
		Value:    value,
		Path:     "/",
		Domain:   b.cfg.Domain,
		MaxAge:   maxAge,
		Secure:   b.cfg.Production,
		HttpOnly: true,
	}
}
