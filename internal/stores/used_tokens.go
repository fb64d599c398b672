package stores

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUsedTokensUnavailable wraps Redis failures of [UsedTokenStore].
var ErrUsedTokensUnavailable = errors.New("used token store unavailable")

const defaultUsedTokenPrefix = "used:"

// UsedTokenStore records single-use tokens as redeemed.
type UsedTokenStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewUsedTokenStore returns a store writing markers under prefix, or under
// "used:" when prefix is empty.
func NewUsedTokenStore(redisClient redis.UniversalClient, prefix string) *UsedTokenStore {
	if prefix == "" {
		prefix = defaultUsedTokenPrefix
	}
	return &UsedTokenStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *UsedTokenStore) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.prefix + hex.EncodeToString(sum[:])
}

// IsUsed reports whether token has been marked.
func (s *UsedTokenStore) IsUsed(ctx context.Context, token string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUsedTokensUnavailable, err)
	}
	return n > 0, nil
}

// MarkUsed marks token for ttl. It returns false when the token was already
// marked, in which case the existing marker is left untouched.
func (s *UsedTokenStore) MarkUsed(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Second
	}
	ok, err := s.redis.SetNX(ctx, s.key(token), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUsedTokensUnavailable, err)
	}
	return ok, nil
}

// Forget removes the marker for token.
func (s *UsedTokenStore) Forget(ctx context.Context, token string) error {
	if err := s.redis.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUsedTokensUnavailable, err)
	}
	return nil
}
