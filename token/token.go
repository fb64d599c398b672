package token

import (
	"fmt"
	"strconv"
	"time"
)

// Well-known attribute keys.
const (
	AttrUserID           = "userId"
	AttrRole             = "role"
	AttrEmail            = "email"
	AttrVerificationCode = "verificationCode"
	AttrCaptcha          = "captcha"
)

// Attr is a single key/value pair passed to the factory helpers.
type Attr struct {
	Key   string
	Value string
}

// Attributes is an insertion-ordered string map. The zero value is empty and
// ready to use; values are never shared between tokens.
type Attributes struct {
	keys   []string
	values map[string]string
}

// Get returns the value stored under key.
func (a Attributes) Get(key string) (string, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Len returns the number of attributes.
func (a Attributes) Len() int {
	return len(a.keys)
}

// Keys returns the attribute keys in insertion order.
func (a Attributes) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Each calls fn for every attribute in insertion order.
func (a Attributes) Each(fn func(key, value string)) {
	for _, k := range a.keys {
		fn(k, a.values[k])
	}
}

// Map returns a copy of the attributes as a plain map.
func (a Attributes) Map() map[string]string {
	out := make(map[string]string, len(a.keys))
	for _, k := range a.keys {
		out[k] = a.values[k]
	}
	return out
}

func (a *Attributes) set(key, value string) {
	if a.values == nil {
		a.values = make(map[string]string)
	}
	if _, exists := a.values[key]; !exists {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

func (a Attributes) clone() Attributes {
	out := Attributes{
		keys:   make([]string, len(a.keys)),
		values: make(map[string]string, len(a.keys)),
	}
	copy(out.keys, a.keys)
	for k, v := range a.values {
		out.values[k] = v
	}
	return out
}

func (a Attributes) equal(b Attributes) bool {
	if len(a.keys) != len(b.keys) {
		return false
	}
	for i, k := range a.keys {
		if b.keys[i] != k || b.values[k] != a.values[k] {
			return false
		}
	}
	return true
}

// ExpirableToken is an immutable token value. Build one with [NewBuilder] or a
// factory such as [NewAccessToken].
type ExpirableToken struct {
	typ     Type
	scope   string
	attrs   Attributes
	created int64
	ttl     int64
}

// Type returns the token type.
func (t ExpirableToken) Type() Type { return t.typ }

// Scope returns the issuing scope; it may be empty.
func (t ExpirableToken) Scope() string { return t.scope }

// Created returns the creation time in Unix seconds.
func (t ExpirableToken) Created() int64 { return t.created }

// TimeToLive returns the lifetime in seconds.
func (t ExpirableToken) TimeToLive() int64 { return t.ttl }

// ExpiresAt returns the first instant at which the token is expired.
func (t ExpirableToken) ExpiresAt() time.Time {
	return time.Unix(t.created+t.ttl, 0)
}

// IsExpired reports whether created+ttl <= now.
func (t ExpirableToken) IsExpired(now time.Time) bool {
	return isExpired(t.created, t.ttl, now)
}

func isExpired(created, ttl int64, now time.Time) bool {
	return created+ttl <= now.Unix()
}

// Attributes returns a copy of the attribute map.
func (t ExpirableToken) Attributes() Attributes {
	return t.attrs.clone()
}

// Attr returns the raw value stored under key.
func (t ExpirableToken) Attr(key string) (string, bool) {
	return t.attrs.Get(key)
}

// AttrOr returns the value stored under key or def when absent.
func (t ExpirableToken) AttrOr(key, def string) string {
	if v, ok := t.attrs.Get(key); ok {
		return v
	}
	return def
}

// AttrInt64 parses the value stored under key as a base-10 integer.
func (t ExpirableToken) AttrInt64(key string) (int64, error) {
	v, ok := t.attrs.Get(key)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingAttribute, key)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAttribute, key)
	}
	return n, nil
}

// AttrFloat64 parses the value stored under key as a float.
func (t ExpirableToken) AttrFloat64(key string) (float64, error) {
	v, ok := t.attrs.Get(key)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingAttribute, key)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAttribute, key)
	}
	return f, nil
}

// AttrBool parses the value stored under key with strconv.ParseBool.
func (t ExpirableToken) AttrBool(key string) (bool, error) {
	v, ok := t.attrs.Get(key)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrMissingAttribute, key)
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrInvalidAttribute, key)
	}
	return b, nil
}

// UserID is shorthand for AttrInt64(AttrUserID).
func (t ExpirableToken) UserID() (int64, error) {
	return t.AttrInt64(AttrUserID)
}

// HasAttributes reports whether the token carries at least one attribute.
func (t ExpirableToken) HasAttributes() bool {
	return t.attrs.Len() > 0
}

// Equal reports whether both tokens carry the same fields and attributes in the
// same order.
func (t ExpirableToken) Equal(o ExpirableToken) bool {
	return t.typ == o.typ &&
		t.scope == o.scope &&
		t.created == o.created &&
		t.ttl == o.ttl &&
		t.attrs.equal(o.attrs)
}

// String renders the token for debugging. Attribute values are omitted.
func (t ExpirableToken) String() string {
	return fmt.Sprintf("%s{scope=%q created=%d ttl=%d attrs=%v}", t.typ, t.scope, t.created, t.ttl, t.attrs.keys)
}
