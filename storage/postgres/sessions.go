package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSSO/session"
)

// SessionRepository stores auth sessions in the auth_sessions table. Row
// lifetime is governed by the engine's sweeper, so the ttl passed to Save is
// not persisted.
type SessionRepository struct {
	db DBTX
}

// NewSessionRepository returns a repository using db.
func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Save(ctx context.Context, sess *session.AuthSession, _ time.Duration) error {
	query :=
		`INSERT INTO auth_sessions (access_token, refresh_token, user_id, created)
		 VALUES ($1, $2, $3, $4)
		 `

	_, err := r.db.ExecContext(ctx, query,
		sess.AccessToken, sess.RefreshToken, sess.UserID, time.Unix(sess.Created, 0).UTC())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, accessToken string) (*session.AuthSession, error) {
	query :=
		`SELECT access_token, refresh_token, user_id, created FROM auth_sessions
		 WHERE access_token = $1
		 `

	var (
		s       session.AuthSession
		created time.Time
	)
	err := r.db.QueryRowContext(ctx, query, accessToken).Scan(&s.AccessToken, &s.RefreshToken, &s.UserID, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrSessionNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	s.Created = created.Unix()
	return &s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, accessToken string) error {
	query :=
		`DELETE FROM auth_sessions
		 WHERE access_token = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, accessToken); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query :=
		`DELETE FROM auth_sessions
		 WHERE created < $1
		 `

	res, err := r.db.ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
