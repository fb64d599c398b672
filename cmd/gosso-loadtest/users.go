package main

import (
	"context"
	"fmt"
	"time"

	goSSO "github.com/MrEthical07/goSSO"
)

// loadUsers is a read-only user set. Writes are accepted and discarded so
// the seeded records never change under concurrent readers.
type loadUsers struct {
	users []goSSO.User
}

func newLoadUsers(n int) *loadUsers {
	created := time.Now().UTC()
	users := make([]goSSO.User, n)
	for i := range users {
		users[i] = goSSO.User{
			ID:                int64(i + 1),
			Username:          fmt.Sprintf("user%d", i+1),
			Email:             fmt.Sprintf("user%d@loadtest.invalid", i+1),
			Role:              goSSO.RoleUser,
			SignInState:       goSSO.SignInEnabled,
			ConfirmationState: goSSO.Confirmed,
			Created:           created,
		}
	}
	return &loadUsers{users: users}
}

func (l *loadUsers) GetUser(_ context.Context, id int64) (*goSSO.User, error) {
	if id < 1 || id > int64(len(l.users)) {
		return nil, goSSO.ErrUserNotFound
	}
	u := l.users[id-1]
	return &u, nil
}

func (l *loadUsers) GetUserByUsername(context.Context, string) (*goSSO.User, error) {
	return nil, goSSO.ErrUserNotFound
}

func (l *loadUsers) GetUserByEmail(context.Context, string) (*goSSO.User, error) {
	return nil, goSSO.ErrUserNotFound
}

func (l *loadUsers) CreateUser(context.Context, *goSSO.User, string) (*goSSO.User, error) {
	return nil, goSSO.ErrInvalidInput
}

func (l *loadUsers) UpdateUser(context.Context, *goSSO.User) error { return nil }

func (l *loadUsers) UpdatePassword(context.Context, int64, string) error { return nil }
