package stores

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrPasswordChangesUnavailable wraps Redis failures of [PasswordChangeStore].
var ErrPasswordChangesUnavailable = errors.New("password change store unavailable")

const (
	defaultPasswordChangePrefix = "pwchg:"

	fieldPreviousHash = "hash"
	fieldChangedAt    = "at"
)

// PasswordChange is the last recorded password change of a user.
type PasswordChange struct {
	PreviousHash string
	ChangedAt    time.Time
}

// PasswordChangeStore keeps the hash a user had before their most recent
// password change, one Redis hash per user. Only the latest change is kept.
type PasswordChangeStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewPasswordChangeStore returns a store writing keys under prefix.
func NewPasswordChangeStore(redisClient redis.UniversalClient, prefix string) *PasswordChangeStore {
	if prefix == "" {
		prefix = defaultPasswordChangePrefix
	}
	return &PasswordChangeStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *PasswordChangeStore) key(userID int64) string {
	return s.prefix + strconv.FormatInt(userID, 10)
}

// Record replaces the stored change for userID. The entry expires after ttl.
func (s *PasswordChangeStore) Record(ctx context.Context, userID int64, change PasswordChange, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	key := s.key(userID)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldPreviousHash, change.PreviousHash,
			fieldChangedAt, change.ChangedAt.Unix(),
		)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordChangesUnavailable, err)
	}
	return nil
}

// Last returns the stored change for userID. ok is false when nothing was
// recorded or the entry expired.
func (s *PasswordChangeStore) Last(ctx context.Context, userID int64) (change PasswordChange, ok bool, err error) {
	vals, err := s.redis.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return PasswordChange{}, false, fmt.Errorf("%w: %v", ErrPasswordChangesUnavailable, err)
	}
	hash := vals[fieldPreviousHash]
	if hash == "" {
		return PasswordChange{}, false, nil
	}
	at, err := strconv.ParseInt(vals[fieldChangedAt], 10, 64)
	if err != nil {
		return PasswordChange{}, false, fmt.Errorf("%w: bad change time: %v", ErrPasswordChangesUnavailable, err)
	}
	return PasswordChange{PreviousHash: hash, ChangedAt: time.Unix(at, 0)}, true, nil
}
