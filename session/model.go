package session

import "time"

// AuthSession binds an issued access/refresh token pair to a user.
type AuthSession struct {
	AccessToken  string
	RefreshToken string
	UserID       int64
	// Created is Unix seconds.
	Created int64
}

// CreatedAt returns Created as a time.Time.
func (s *AuthSession) CreatedAt() time.Time {
	return time.Unix(s.Created, 0)
}
