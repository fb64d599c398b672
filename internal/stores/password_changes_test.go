package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newPasswordChangeStore(t *testing.T) (*miniredis.Miniredis, *PasswordChangeStore) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, NewPasswordChangeStore(rdb, "t:pw:")
}

func TestPasswordChangeRecordAndLast(t *testing.T) {
	mr, store := newPasswordChangeStore(t)
	ctx := context.Background()

	if _, ok, err := store.Last(ctx, 7); err != nil || ok {
		t.Fatalf("expected no change, got ok=%v err=%v", ok, err)
	}

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.Record(ctx, 7, PasswordChange{PreviousHash: "old-hash", ChangedAt: at}, time.Hour); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	change, ok, err := store.Last(ctx, 7)
	if err != nil || !ok {
		t.Fatalf("expected recorded change, got ok=%v err=%v", ok, err)
	}
	if change.PreviousHash != "old-hash" || !change.ChangedAt.Equal(at) {
		t.Fatalf("unexpected change %+v", change)
	}
	if ttl := mr.TTL("t:pw:7"); ttl != time.Hour {
		t.Fatalf("expected ttl 1h, got %v", ttl)
	}
}

func TestPasswordChangeKeepsLatestOnly(t *testing.T) {
	_, store := newPasswordChangeStore(t)
	ctx := context.Background()

	first := time.Unix(1_700_000_000, 0)
	_ = store.Record(ctx, 1, PasswordChange{PreviousHash: "h1", ChangedAt: first}, time.Hour)
	_ = store.Record(ctx, 1, PasswordChange{PreviousHash: "h2", ChangedAt: first.Add(time.Minute)}, time.Hour)

	change, ok, err := store.Last(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("expected recorded change, got ok=%v err=%v", ok, err)
	}
	if change.PreviousHash != "h2" {
		t.Fatalf("expected latest hash, got %q", change.PreviousHash)
	}
}

func TestPasswordChangeExpires(t *testing.T) {
	mr, store := newPasswordChangeStore(t)
	ctx := context.Background()

	_ = store.Record(ctx, 3, PasswordChange{PreviousHash: "h", ChangedAt: time.Unix(1, 0)}, 5*time.Second)
	mr.FastForward(6 * time.Second)

	if _, ok, err := store.Last(ctx, 3); err != nil || ok {
		t.Fatalf("expected expired entry, got ok=%v err=%v", ok, err)
	}
}

func TestPasswordChangeZeroTTLSkipsWrite(t *testing.T) {
	mr, store := newPasswordChangeStore(t)

	if err := store.Record(context.Background(), 4, PasswordChange{PreviousHash: "h", ChangedAt: time.Unix(1, 0)}, 0); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("expected no keys, got %v", keys)
	}
}

func TestPasswordChangeRedisFailure(t *testing.T) {
	mr, store := newPasswordChangeStore(t)
	mr.Close()

	_, _, err := store.Last(context.Background(), 1)
	if !errors.Is(err, ErrPasswordChangesUnavailable) {
		t.Fatalf("expected ErrPasswordChangesUnavailable, got %v", err)
	}
}
