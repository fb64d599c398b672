package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	goSSO "github.com/MrEthical07/goSSO"
)

const uniqueViolation = "23505"

const userColumns = `id, username, email, password_hash, role, sign_in_state, confirmation_state, last_used_locale, created`

// UserRepository implements goSSO.UserRepository over the users table.
type UserRepository struct {
	db DBTX
}

// NewUserRepository returns a repository using db.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetUser(ctx context.Context, id int64) (*goSSO.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE id = $1
		 `
	return r.getOne(ctx, query, id)
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*goSSO.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE lower(username) = lower($1)
		 `
	return r.getOne(ctx, query, username)
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*goSSO.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE lower(email) = lower($1)
		 `
	return r.getOne(ctx, query, email)
}

func (r *UserRepository) CreateUser(ctx context.Context, user *goSSO.User, passwordHash string) (*goSSO.User, error) {
	query :=
		`INSERT INTO users (username, email, password_hash, role, sign_in_state, confirmation_state, last_used_locale)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created
		 `

	out := *user
	out.PasswordHash = passwordHash

	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, passwordHash,
		string(user.Role), string(user.SignInState), string(user.ConfirmationState), user.LastUsedLocale,
	).Scan(&out.ID, &out.Created)
	if err != nil {
		return nil, translateWriteError(err)
	}

	return &out, nil
}

func (r *UserRepository) UpdateUser(ctx context.Context, user *goSSO.User) error {
	query :=
		`UPDATE users SET username = $2, email = $3, role = $4, sign_in_state = $5,
		 confirmation_state = $6, last_used_locale = $7
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email,
		string(user.Role), string(user.SignInState), string(user.ConfirmationState), user.LastUsedLocale,
	)
	if err != nil {
		return translateWriteError(err)
	}
	return requireOneRow(res)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	query :=
		`UPDATE users SET password_hash = $2
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*goSSO.User, error) {
	var u goSSO.User
	var role, signInState, confirmation string
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&role, &signInState, &confirmation, &u.LastUsedLocale, &u.Created,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goSSO.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	u.Role = goSSO.ParseUserRole(role)
	u.SignInState = goSSO.ParseSignInState(signInState)
	u.ConfirmationState = goSSO.ParseConfirmationState(confirmation)
	return &u, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return goSSO.ErrUserNotFound
	}
	return nil
}

func translateWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if strings.Contains(pgErr.ConstraintName, "email") {
			return goSSO.ErrEmailExists
		}
		return goSSO.ErrUsernameExists
	}
	return fmt.Errorf("db error: %w", err)
}
