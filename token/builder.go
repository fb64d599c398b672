package token

import (
	"strconv"
	"time"
)

// Builder assembles an [ExpirableToken]. A Builder is not safe for concurrent use;
// the tokens it builds are.
type Builder struct {
	typ     Type
	scope   string
	attrs   Attributes
	created int64
	ttl     int64
}

// NewBuilder starts a token of the given type created now.
func NewBuilder(typ Type) *Builder {
	return &Builder{typ: typ, created: time.Now().Unix()}
}

// Scope sets the issuing scope.
func (b *Builder) Scope(scope string) *Builder {
	b.scope = scope
	return b
}

// Attr appends an attribute; setting an existing key replaces the value in place.
func (b *Builder) Attr(key, value string) *Builder {
	b.attrs.set(key, value)
	return b
}

// AttrInt64 appends an integer attribute.
func (b *Builder) AttrInt64(key string, value int64) *Builder {
	return b.Attr(key, strconv.FormatInt(value, 10))
}

// Attrs appends several attributes in order.
func (b *Builder) Attrs(attrs ...Attr) *Builder {
	for _, a := range attrs {
		b.attrs.set(a.Key, a.Value)
	}
	return b
}

// Created sets the creation time, truncated to whole seconds.
func (b *Builder) Created(at time.Time) *Builder {
	b.created = at.Unix()
	return b
}

// CreatedUnix sets the creation time in Unix seconds.
func (b *Builder) CreatedUnix(sec int64) *Builder {
	b.created = sec
	return b
}

// TTL sets the lifetime, truncated to whole seconds.
func (b *Builder) TTL(d time.Duration) *Builder {
	b.ttl = int64(d / time.Second)
	return b
}

// TTLSeconds sets the lifetime in seconds.
func (b *Builder) TTLSeconds(sec int64) *Builder {
	b.ttl = sec
	return b
}

// Build returns the token. The builder may be reused; later changes do not
// affect tokens already built.
func (b *Builder) Build() ExpirableToken {
	return ExpirableToken{
		typ:     b.typ,
		scope:   b.scope,
		attrs:   b.attrs.clone(),
		created: b.created,
		ttl:     b.ttl,
	}
}

// NewUserToken returns a token of typ carrying the userId attribute followed by extra.
func NewUserToken(typ Type, userID int64, ttl time.Duration, now time.Time, extra ...Attr) ExpirableToken {
	return NewBuilder(typ).
		Created(now).
		TTL(ttl).
		AttrInt64(AttrUserID, userID).
		Attrs(extra...).
		Build()
}

// NewAccessToken returns an ACCESS token for userID in scope.
func NewAccessToken(scope string, userID int64, ttl time.Duration, now time.Time, extra ...Attr) ExpirableToken {
	return NewBuilder(Access).
		Scope(scope).
		Created(now).
		TTL(ttl).
		AttrInt64(AttrUserID, userID).
		Attrs(extra...).
		Build()
}

// NewRefreshToken returns a REFRESH token for userID in scope.
func NewRefreshToken(scope string, userID int64, ttl time.Duration, now time.Time) ExpirableToken {
	return NewBuilder(Refresh).
		Scope(scope).
		Created(now).
		TTL(ttl).
		AttrInt64(AttrUserID, userID).
		Build()
}

// NewXSRFToken returns an XSRF token for userID in scope.
func NewXSRFToken(scope string, userID int64, ttl time.Duration, now time.Time) ExpirableToken {
	return NewBuilder(XSRF).
		Scope(scope).
		Created(now).
		TTL(ttl).
		AttrInt64(AttrUserID, userID).
		Build()
}

// NewCaptchaToken returns an unscoped CAPTCHA token holding the challenge text.
func NewCaptchaToken(text string, ttl time.Duration, now time.Time) ExpirableToken {
	return NewBuilder(Captcha).
		Created(now).
		TTL(ttl).
		Attr(AttrCaptcha, text).
		Build()
}

// NewEmailVerificationToken returns the token mailed to confirm email for userID.
func NewEmailVerificationToken(userID int64, email, code string, ttl time.Duration, now time.Time) ExpirableToken {
	return NewUserToken(EmailVerification, userID, ttl, now,
		Attr{Key: AttrEmail, Value: email},
		Attr{Key: AttrVerificationCode, Value: code},
	)
}

// NewSignUpVerificationToken returns the token guarding the code-entry page.
func NewSignUpVerificationToken(userID int64, code string, ttl time.Duration, now time.Time) ExpirableToken {
	return NewUserToken(SignUpVerification, userID, ttl, now,
		Attr{Key: AttrVerificationCode, Value: code},
	)
}
