//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	goSSO "github.com/MrEthical07/goSSO"
	"github.com/MrEthical07/goSSO/storage/postgres"
)

// TestPostgresBackedEngine runs a sign-up and session round trip with users
// and sessions stored in Postgres. It needs POSTGRES_DSN.
func TestPostgresBackedEngine(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	rdb := redisModes(t)[0].setup(t)
	cfg := testConfig()
	engine, err := goSSO.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserRepository(postgres.NewUserRepository(db)).
		WithSessionRepository(postgres.NewSessionRepository(db)).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	name := "pg" + uuid.NewString()[:8]
	captchaTok, answer := solveCaptcha(t, engine)
	res, err := engine.SignUp(ctx, goSSO.SignUpRequest{
		Username:          name,
		Email:             name + "@example.com",
		Password:          "Postgres-pass-1",
		PasswordRepeat:    "Postgres-pass-1",
		CaptchaToken:      captchaTok,
		CaptchaAnswer:     answer,
		AgreementAccepted: true,
	})
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	if _, err := engine.VerifySignUp(ctx, res.SignUpVerificationToken, res.VerificationCode); err != nil {
		t.Fatalf("VerifySignUp failed: %v", err)
	}

	users := postgres.NewUserRepository(db)
	user, err := users.GetUserByUsername(ctx, name)
	if err != nil {
		t.Fatalf("GetUserByUsername failed: %v", err)
	}
	if !user.IsConfirmed() {
		t.Fatalf("expected confirmed user after verification")
	}

	sess, err := engine.NewSession(ctx, user)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	got, err := engine.GetSession(ctx, sess.AccessToken)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.UserID != user.ID || got.RefreshToken != sess.RefreshToken {
		t.Fatalf("unexpected session %+v", got)
	}

	if err := engine.RevokeSession(ctx, sess.AccessToken); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if _, err := engine.GetSession(ctx, sess.AccessToken); !errors.Is(err, goSSO.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
