package goSSO

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/goSSO/session"
)

// UserRole is the authorization role stored with a user.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleModerator UserRole = "MODERATOR"
	RoleUser      UserRole = "USER"
)

// ParseUserRole parses a role case-insensitively. Unknown values map to RoleUser.
func ParseUserRole(s string) UserRole {
	switch r := UserRole(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleModerator:
		return r
	default:
		return RoleUser
	}
}

// SignInState controls whether and how a user may sign in.
type SignInState string

const (
	SignInEnabled       SignInState = "ENABLED"
	SignInEnabledAsUser SignInState = "ENABLED_AS_USER"
	SignInDisabled      SignInState = "DISABLED"
)

// ParseSignInState parses a state case-insensitively. Unknown values map to
// SignInDisabled.
func ParseSignInState(s string) SignInState {
	switch st := SignInState(strings.ToUpper(strings.TrimSpace(s))); st {
	case SignInEnabled, SignInEnabledAsUser:
		return st
	default:
		return SignInDisabled
	}
}

// ConfirmationState tracks whether the user's email has been confirmed.
type ConfirmationState string

const (
	Confirmed   ConfirmationState = "CONFIRMED"
	Unconfirmed ConfirmationState = "UNCONFIRMED"
)

// ParseConfirmationState parses a state case-insensitively. Unknown values map
// to Unconfirmed.
func ParseConfirmationState(s string) ConfirmationState {
	if ConfirmationState(strings.ToUpper(strings.TrimSpace(s))) == Confirmed {
		return Confirmed
	}
	return Unconfirmed
}

// User is the account record the engine works with.
type User struct {
	ID                int64
	Username          string
	Email             string
	PasswordHash      string
	Role              UserRole
	SignInState       SignInState
	ConfirmationState ConfirmationState
	Created           time.Time
	LastUsedLocale    string
}

// EffectiveRole returns the role used for authorization. Users whose sign-in
// state is ENABLED_AS_USER act as plain users whatever their stored role.
func (u *User) EffectiveRole() UserRole {
	if u.SignInState == SignInEnabledAsUser {
		return RoleUser
	}
	if u.Role == "" {
		return RoleUser
	}
	return u.Role
}

// IsConfirmed reports whether the user has confirmed their email.
func (u *User) IsConfirmed() bool {
	return u.ConfirmationState == Confirmed
}

// CanSignIn reports whether the sign-in state allows signing in.
func (u *User) CanSignIn() bool {
	return u.SignInState == SignInEnabled || u.SignInState == SignInEnabledAsUser
}

// UserRepository persists users. Lookups of missing users return ErrUserNotFound;
// CreateUser returns ErrEmailExists or ErrUsernameExists on duplicates.
type UserRepository interface {
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, user *User, passwordHash string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}

// SessionRepository persists auth sessions. *session.Store satisfies it, as does
// the Postgres repository in storage/postgres.
type SessionRepository interface {
	Save(ctx context.Context, sess *session.AuthSession, ttl time.Duration) error
	Get(ctx context.Context, accessToken string) (*session.AuthSession, error)
	Delete(ctx context.Context, accessToken string) error
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Identity is the authenticated principal behind an access token.
type Identity struct {
	UserID int64
	Role   UserRole
	// AccessToken is the encrypted token the identity was read from.
	AccessToken string
	// IssuedAt is the access token creation time.
	IssuedAt time.Time
}

// IsAdmin reports whether i is non-nil and carries the ADMIN role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// SignInRequest is the input for [Engine.SignIn].
type SignInRequest struct {
	// EmailOrUsername is matched against the email first when it contains "@".
	EmailOrUsername string
	Password        string
	CaptchaToken    string
	CaptchaAnswer   string
	ContinueURL     string
	Locale          string
}

// SignUpRequest is the input for [Engine.SignUp].
type SignUpRequest struct {
	Username          string
	Email             string
	Password          string
	PasswordRepeat    string
	CaptchaToken      string
	CaptchaAnswer     string
	AgreementAccepted bool
	ContinueURL       string
	Locale            string
}

// SignUpResult carries everything the caller needs to mail the new user and to
// show the code-entry page.
type SignUpResult struct {
	User                    *User
	VerificationCode        string
	EmailToken              string
	SignUpVerificationToken string
	EmailConfirmationURL    string
	SignUpVerificationURL   string
}

// ForgotPasswordRequest is the input for [Engine.ForgotPassword].
type ForgotPasswordRequest struct {
	EmailOrUsername string
	CaptchaToken    string
	CaptchaAnswer   string
	ContinueURL     string
	Locale          string
}

// ForgotPasswordResult carries the restore token and its URL for mailing.
type ForgotPasswordResult struct {
	User         *User
	RestoreToken string
	RestoreURL   string
}

// RestorePasswordRequest is the input for [Engine.RestorePassword].
type RestorePasswordRequest struct {
	Token          string
	Password       string
	PasswordRepeat string
}

// SessionTokens is an issued access/refresh pair.
type SessionTokens struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access token lifetime.
	ExpiresIn time.Duration
}
