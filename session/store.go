package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRedisUnavailable wraps Redis transport failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
)

const defaultPrefix = "sso:"

// sweepBatch bounds the number of sessions removed per round trip.
const sweepBatch = 256

const deleteSessionScript = `
local existed = redis.call("DEL", KEYS[1])
redis.call("ZREM", KEYS[2], ARGV[1])
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Store persists [AuthSession] values in Redis.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace.
func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

func tokenHash(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return hex.EncodeToString(sum[:])
}

func (s *Store) key(hash string) string {
	return s.prefix + "s:" + hash
}

func (s *Store) indexKey() string {
	return s.prefix + "created"
}

// Save persists sess for ttl and records it in the creation index.
func (s *Store) Save(ctx context.Context, sess *AuthSession, ttl time.Duration) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}
	hash := tokenHash(sess.AccessToken)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(hash), data, ttl)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(sess.Created), Member: hash})
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get loads the session issued with accessToken.
func (s *Store) Get(ctx context.Context, accessToken string) (*AuthSession, error) {
	data, err := s.redis.Get(ctx, s.key(tokenHash(accessToken))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if sess.AccessToken != accessToken {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Delete removes the session issued with accessToken. Deleting a missing
// session is not an error.
func (s *Store) Delete(ctx context.Context, accessToken string) error {
	hash := tokenHash(accessToken)
	err := deleteSessionLua.Run(ctx, s.redis, []string{s.key(hash), s.indexKey()}, hash).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteCreatedBefore removes every session created strictly before cutoff and
// returns how many session blobs were deleted. Index entries whose blob had
// already expired are pruned without being counted.
func (s *Store) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	max := "(" + strconv.FormatInt(cutoff.Unix(), 10)
	var deleted int64

	for {
		hashes, err := s.redis.ZRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{
			Min:   "-inf",
			Max:   max,
			Count: sweepBatch,
		}).Result()
		if err != nil {
			return deleted, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if len(hashes) == 0 {
			return deleted, nil
		}

		keys := make([]string, len(hashes))
		members := make([]any, len(hashes))
		for i, h := range hashes {
			keys[i] = s.key(h)
			members[i] = h
		}

		var del *redis.IntCmd
		_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			del = pipe.Del(ctx, keys...)
			pipe.ZRem(ctx, s.indexKey(), members...)
			return nil
		})
		if err != nil {
			return deleted, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		deleted += del.Val()

		if len(hashes) < sweepBatch {
			return deleted, nil
		}
	}
}

// Count returns the number of indexed sessions.
func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.redis.ZCard(ctx, s.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n, nil
}

// Ping measures a Redis round trip.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
