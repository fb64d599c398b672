package goSSO

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goSSO/token"
)

func TestNewSessionPersistsPair(t *testing.T) {
	env := newTestEnv(t, nil)
	u := env.addUser(t, "alice", "alice@example.com", "correct-horse")

	sess, err := env.engine.NewSession(context.Background(), u)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if sess.UserID != u.ID || sess.Created != env.clock.Now().Unix() {
		t.Fatalf("unexpected session %+v", sess)
	}

	refresh, err := env.engine.enc.DecryptType(sess.RefreshToken, token.Refresh)
	if err != nil {
		t.Fatalf("refresh token: %v", err)
	}
	if refresh.TimeToLive() != int64((30 * 24 * time.Hour).Seconds()) {
		t.Fatalf("expected 30 day refresh ttl, got %d", refresh.TimeToLive())
	}

	got, err := env.engine.GetSession(context.Background(), sess.AccessToken)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.RefreshToken != sess.RefreshToken {
		t.Fatal("stored session does not match")
	}

	tokens := env.engine.SessionTokens(sess)
	if tokens.ExpiresIn != time.Hour {
		t.Fatalf("unexpected expires in %v", tokens.ExpiresIn)
	}
}

func TestNewSessionUnconfirmedShortRefresh(t *testing.T) {
	env := newTestEnv(t, nil)
	u := env.addUser(t, "alice", "alice@example.com", "correct-horse")
	u.ConfirmationState = Unconfirmed
	env.users.set(*u)

	sess, err := env.engine.NewSession(context.Background(), u)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	refresh, err := env.engine.enc.DecryptType(sess.RefreshToken, token.Refresh)
	if err != nil {
		t.Fatalf("refresh token: %v", err)
	}
	if refresh.TimeToLive() != int64((3 * 24 * time.Hour).Seconds()) {
		t.Fatalf("expected 3 day refresh ttl, got %d", refresh.TimeToLive())
	}
}

func TestProbationPeriod(t *testing.T) {
	env := newTestEnv(t, nil)
	u := env.addUser(t, "alice", "alice@example.com", "correct-horse")
	u.ConfirmationState = Unconfirmed
	env.users.set(*u)

	env.clock.Advance(3*24*time.Hour + time.Second)
	_, err := env.engine.NewSession(context.Background(), u)
	if !errors.Is(err, ErrProbationPeriodEnded) {
		t.Fatalf("expected ErrProbationPeriodEnded, got %v", err)
	}

	u.ConfirmationState = Confirmed
	env.users.set(*u)
	if _, err := env.engine.NewSession(context.Background(), u); err != nil {
		t.Fatalf("confirmed user must get a session: %v", err)
	}
}

func TestProbationDisabled(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.Session.DisableProbation = true })
	u := env.addUser(t, "alice", "alice@example.com", "correct-horse")
	u.ConfirmationState = Unconfirmed
	env.users.set(*u)

	env.clock.Advance(10 * 24 * time.Hour)
	if _, err := env.engine.NewSession(context.Background(), u); err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
}

func TestNewSessionByRefreshToken(t *testing.T) {
	env := newTestEnv(t, nil)
	u := env.addUser(t, "alice", "alice@example.com", "correct-horse")

	first, err := env.engine.NewSession(context.Background(), u)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	env.clock.Advance(2 * time.Hour)
	if _, err := env.engine.Authenticate(context.Background(), first.AccessToken); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected expired access token, got %v", err)
	}

	second, err := env.engine.NewSessionByRefreshToken(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("NewSessionByRefreshToken failed: %v", err)
	}
	if second.RefreshToken != first.RefreshToken {
		t.Fatal("refresh token must be kept")
	}
	if second.AccessToken == first.AccessToken {
		t.Fatal("expected a new access token")
	}
	id, err := env.engine.Authenticate(context.Background(), second.AccessToken)
	if err != nil || id.UserID != u.ID {
		t.Fatalf("Authenticate failed: %v %+v", err, id)
	}

	if _, err := env.engine.NewSessionByRefreshToken(context.Background(), second.AccessToken); !errors.Is(err, ErrIllegalToken) {
		t.Fatalf("access token must not refresh, got %v", err)
	}

	env.users.remove(u.ID)
	if _, err := env.engine.NewSessionByRefreshToken(context.Background(), first.RefreshToken); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken for deleted user, got %v", err)
	}
}

func TestNewSessionByRefreshTokenExpired(t *testing.T) {
	env := newTestEnv(t, nil)
	u := env.addUser(t, "alice", "alice@example.com", "correct-horse")

	sess, err := env.engine.NewSession(context.Background(), u)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	env.clock.Advance(31 * 24 * time.Hour)
	if _, err := env.engine.NewSessionByRefreshToken(context.Background(), sess.RefreshToken); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestRevokeSession(t *testing.T) {
	env := newTestEnv(t, nil)
	u := env.addUser(t, "alice", "alice@example.com", "correct-horse")

	sess, err := env.engine.NewSession(context.Background(), u)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if err := env.engine.RevokeSession(context.Background(), sess.AccessToken); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if _, err := env.engine.GetSession(context.Background(), sess.AccessToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	env := newTestEnv(t, nil)
	u := env.addUser(t, "alice", "alice@example.com", "correct-horse")

	old, err := env.engine.NewSession(context.Background(), u)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	env.clock.Advance(90 * time.Minute)
	fresh, err := env.engine.NewSession(context.Background(), u)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	n, err := env.engine.DeleteExpiredSessions(context.Background())
	if err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 deleted session, got %d", n)
	}
	if _, err := env.engine.GetSession(context.Background(), old.AccessToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("old session must be gone, got %v", err)
	}
	if _, err := env.engine.GetSession(context.Background(), fresh.AccessToken); err != nil {
		t.Fatalf("fresh session must survive: %v", err)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricSessionsSwept]; got != 1 {
		t.Fatalf("expected swept metric 1, got %d", got)
	}
}

func TestSessionSweeperStartStop(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.Session.SweepInitialDelay = time.Millisecond
		c.Session.SweepInterval = 5 * time.Millisecond
	})
	u := env.addUser(t, "alice", "alice@example.com", "correct-horse")

	sess, err := env.engine.NewSession(context.Background(), u)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	env.clock.Advance(2 * time.Hour)

	env.engine.StartSessionSweeper()
	env.engine.StartSessionSweeper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, err := env.engine.GetSession(context.Background(), sess.AccessToken)
		if errors.Is(err, ErrSessionNotFound) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("sweeper did not remove the session, last err %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	env.engine.Close()
	env.engine.Close()
}
