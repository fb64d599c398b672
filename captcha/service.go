package captcha

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goSSO/internal"
	"github.com/MrEthical07/goSSO/token"
)

const (
	// DefaultAlphabet holds upper-case letters and digits without the
	// look-alikes I, O, 0 and 1. It has a single case because answers are
	// compared case-insensitively.
	DefaultAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// DefaultLength is the challenge length: 32^7 possible answers.
	DefaultLength = 7
	// DefaultTTL is the challenge token lifetime.
	DefaultTTL = 300 * time.Second
)

// UsedTokenCache remembers redeemed tokens. *stores.UsedTokenStore satisfies it.
type UsedTokenCache interface {
	IsUsed(ctx context.Context, token string) (bool, error)
	// MarkUsed returns false if the token was already marked.
	MarkUsed(ctx context.Context, token string, ttl time.Duration) (bool, error)
}

// Config tunes challenge generation. Zero values take the defaults.
type Config struct {
	Alphabet string
	Length   int
	TTL      time.Duration
}

func (c Config) withDefaults() Config {
	if c.Alphabet == "" {
		c.Alphabet = DefaultAlphabet
	}
	if c.Length <= 0 {
		c.Length = DefaultLength
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	return c
}

// Option customizes a [Service].
type Option func(*Service)

// WithTextSource replaces the random challenge generator.
func WithTextSource(fn func(alphabet string, n int) (string, error)) Option {
	return func(s *Service) {
		if fn != nil {
			s.text = fn
		}
	}
}

// Service issues and verifies CAPTCHA tokens. It is safe for concurrent use.
type Service struct {
	enc  *token.Encryptor
	used UsedTokenCache
	cfg  Config
	text func(alphabet string, n int) (string, error)
}

// New returns a Service. enc and used are required.
func New(enc *token.Encryptor, used UsedTokenCache, cfg Config, opts ...Option) (*Service, error) {
	if enc == nil {
		return nil, errors.New("captcha: encryptor is required")
	}
	if used == nil {
		return nil, errors.New("captcha: used token cache is required")
	}
	s := &Service{
		enc:  enc,
		used: used,
		cfg:  cfg.withDefaults(),
		text: internal.RandomText,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the challenge lifetime.
func (s *Service) TTL() time.Duration {
	return s.cfg.TTL
}

// NewToken creates a challenge with random text and returns its encrypted token.
func (s *Service) NewToken(ctx context.Context) (string, error) {
	text, err := s.text(s.cfg.Alphabet, s.cfg.Length)
	if err != nil {
		return "", err
	}
	return s.NewTokenWithText(ctx, text)
}

// NewTokenWithText seals text into a new challenge token.
func (s *Service) NewTokenWithText(_ context.Context, text string) (string, error) {
	return s.enc.Encrypt(token.NewCaptchaToken(text, s.cfg.TTL, s.enc.Now()))
}

// ExtractText returns the challenge text of tok. Redeemed tokens yield
// ErrAlreadyUsedToken before any decryption is attempted.
func (s *Service) ExtractText(ctx context.Context, tok string) (string, error) {
	used, err := s.used.IsUsed(ctx, tok)
	if err != nil {
		return "", err
	}
	if used {
		return "", ErrAlreadyUsedToken
	}

	t, err := s.enc.DecryptType(tok, token.Captcha)
	if err != nil {
		return "", err
	}
	text, ok := t.Attr(token.AttrCaptcha)
	if !ok {
		return "", token.ErrIllegalToken
	}
	return text, nil
}

// Verify checks answer against tok and redeems tok on success.
func (s *Service) Verify(ctx context.Context, tok, answer string) error {
	text, err := s.ExtractText(ctx, tok)
	if err != nil {
		return err
	}
	if !strings.EqualFold(text, answer) {
		return ErrInvalidTokenValue
	}

	first, err := s.used.MarkUsed(ctx, tok, s.cfg.TTL)
	if err != nil {
		return err
	}
	if !first {
		return ErrAlreadyUsedToken
	}
	return nil
}
