package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const separator = "/"

// fixedFields is created, ttl, type and scope.
const fixedFields = 4

// Serialize renders tok in the delimited plaintext form. It does not check that
// the token has attributes; Encrypt does.
func Serialize(tok ExpirableToken) string {
	var b strings.Builder
	b.Grow(64 + 16*tok.attrs.Len())

	b.WriteString(strconv.FormatInt(tok.created, 36))
	b.WriteString(separator)
	b.WriteString(strconv.FormatInt(tok.ttl, 36))
	b.WriteString(separator)
	b.WriteString(escapeField(tok.typ.String()))
	b.WriteString(separator)
	b.WriteString(escapeField(tok.scope))

	tok.attrs.Each(func(k, v string) {
		b.WriteString(separator)
		b.WriteString(escapeField(k))
		b.WriteString(separator)
		b.WriteString(escapeField(v))
	})

	return b.String()
}

// Parse reads the delimited plaintext form. Fields are consumed in order and the
// expiry check against now runs as soon as created and ttl are known.
func Parse(s string, now time.Time) (ExpirableToken, error) {
	fields := strings.Split(s, separator)
	if len(fields) < 2 {
		return ExpirableToken{}, illegal("missing time fields")
	}

	created, err := strconv.ParseInt(fields[0], 36, 64)
	if err != nil {
		return ExpirableToken{}, illegal("created: %v", err)
	}
	ttl, err := strconv.ParseInt(fields[1], 36, 64)
	if err != nil {
		return ExpirableToken{}, illegal("ttl: %v", err)
	}
	if isExpired(created, ttl, now) {
		return ExpirableToken{}, ErrExpiredToken
	}

	if len(fields) < fixedFields {
		return ExpirableToken{}, illegal("missing type or scope")
	}

	typeLiteral, err := unescapeField(fields[2])
	if err != nil {
		return ExpirableToken{}, illegal("type: %v", err)
	}
	typ, ok := ParseType(typeLiteral)
	if !ok {
		return ExpirableToken{}, illegal("unknown type %q", typeLiteral)
	}

	scope, err := unescapeField(fields[3])
	if err != nil {
		return ExpirableToken{}, illegal("scope: %v", err)
	}

	rest := fields[fixedFields:]
	if len(rest)%2 != 0 {
		return ExpirableToken{}, illegal("odd number of attribute fields")
	}
	if len(rest) == 0 {
		return ExpirableToken{}, illegal("no attributes")
	}

	var attrs Attributes
	for i := 0; i < len(rest); i += 2 {
		k, err := unescapeField(rest[i])
		if err != nil {
			return ExpirableToken{}, illegal("attribute key: %v", err)
		}
		v, err := unescapeField(rest[i+1])
		if err != nil {
			return ExpirableToken{}, illegal("attribute %q: %v", k, err)
		}
		attrs.set(k, v)
	}

	return ExpirableToken{
		typ:     typ,
		scope:   scope,
		attrs:   attrs,
		created: created,
		ttl:     ttl,
	}, nil
}

func illegal(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIllegalToken, fmt.Sprintf(format, args...))
}

func escapeField(s string) string {
	if !strings.ContainsAny(s, "%/") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%':
			b.WriteString("%25")
		case '/':
			b.WriteString("%2F")
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

var errBadEscape = errors.New("bad escape sequence")

func unescapeField(s string) (string, error) {
	if !strings.Contains(s, "%") {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			b.WriteByte(s[i])
			continue
		}
		if i+3 > len(s) {
			return "", errBadEscape
		}
		switch strings.ToUpper(s[i+1 : i+3]) {
		case "25":
			b.WriteByte('%')
		case "2F":
			b.WriteByte('/')
		default:
			return "", errBadEscape
		}
		i += 2
	}
	return b.String(), nil
}
