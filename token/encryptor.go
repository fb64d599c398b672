package token

import (
	"encoding/base64"
	"fmt"
	"time"
)

// Cipher seals and opens byte envelopes. *pbe.AES satisfies it.
type Cipher interface {
	Encrypt(plain []byte) ([]byte, error)
	Decrypt(envelope []byte) ([]byte, error)
}

// EncryptorOption customizes an [Encryptor].
type EncryptorOption func(*Encryptor)

// WithClock replaces time.Now as the source of "now" for expiry checks.
func WithClock(now func() time.Time) EncryptorOption {
	return func(e *Encryptor) {
		if now != nil {
			e.now = now
		}
	}
}

// Encryptor turns tokens into opaque strings and back.
// It is safe for concurrent use when the Cipher is.
type Encryptor struct {
	cipher Cipher
	now    func() time.Time
}

// NewEncryptor returns an Encryptor sealing with c.
func NewEncryptor(c Cipher, opts ...EncryptorOption) *Encryptor {
	e := &Encryptor{cipher: c, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the encryptor's notion of the current time.
func (e *Encryptor) Now() time.Time {
	return e.now()
}

// Encrypt serializes and seals tok. Tokens without attributes are rejected with
// ErrEmptyAttributes; cipher failures are returned as-is (they wrap pbe.ErrEncryption).
func (e *Encryptor) Encrypt(tok ExpirableToken) (string, error) {
	if !tok.HasAttributes() {
		return "", ErrEmptyAttributes
	}
	if !tok.typ.Valid() {
		return "", fmt.Errorf("token: cannot encrypt unknown type %d", tok.typ)
	}

	sealed, err := e.cipher.Encrypt([]byte(Serialize(tok)))
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens and parses s. The only errors are ErrExpiredToken and
// ErrIllegalToken (possibly wrapped with detail).
func (e *Encryptor) Decrypt(s string) (ExpirableToken, error) {
	if s == "" {
		return ExpirableToken{}, illegal("empty token")
	}
	sealed, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return ExpirableToken{}, illegal("encoding: %v", err)
	}
	plain, err := e.cipher.Decrypt(sealed)
	if err != nil {
		return ExpirableToken{}, illegal("%v", err)
	}
	return Parse(string(plain), e.now())
}

// DecryptType decrypts s and requires the token to be of type want.
func (e *Encryptor) DecryptType(s string, want Type) (ExpirableToken, error) {
	tok, err := e.Decrypt(s)
	if err != nil {
		return ExpirableToken{}, err
	}
	if tok.typ != want {
		return ExpirableToken{}, illegal("expected %s token, got %s", want, tok.typ)
	}
	return tok, nil
}
