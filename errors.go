package goSSO

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSSO/captcha"
	"github.com/MrEthical07/goSSO/internal/limiters"
	"github.com/MrEthical07/goSSO/internal/stores"
	"github.com/MrEthical07/goSSO/pbe"
	"github.com/MrEthical07/goSSO/session"
	"github.com/MrEthical07/goSSO/signin"
	"github.com/MrEthical07/goSSO/token"
)

// Token errors, re-exported so callers match on goSSO.Err* only.
var (
	// ErrExpiredToken is returned for tokens whose lifetime has lapsed.
	ErrExpiredToken = token.ErrExpiredToken
	// ErrIllegalToken is returned for tokens that fail to decrypt or parse, or
	// have the wrong type.
	ErrIllegalToken = token.ErrIllegalToken
	// ErrAlreadyUsedToken is returned for single-use tokens redeemed before.
	ErrAlreadyUsedToken = captcha.ErrAlreadyUsedToken
	// ErrInvalidTokenValue is returned when a submitted answer or code does not match.
	ErrInvalidTokenValue = captcha.ErrInvalidTokenValue
	// ErrEncryption is a cipher failure while sealing a token.
	ErrEncryption = pbe.ErrEncryption
	// ErrDecryption is a cipher failure while opening an envelope.
	ErrDecryption = pbe.ErrDecryption
	// ErrTokenMinting is a failure to create an access token during sign-in.
	ErrTokenMinting = signin.ErrTokenMinting
	// ErrSessionNotFound is returned for unknown auth sessions.
	ErrSessionNotFound = session.ErrSessionNotFound
)

var (
	ErrCaptchaFailed        = errors.New("captcha verification failed")
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailExists          = errors.New("email already registered")
	ErrUsernameExists       = errors.New("username already taken")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrEmailNotConfirmed    = errors.New("email not confirmed")
	ErrSignInDisabled       = errors.New("sign in disabled")
	ErrPasswordMismatch     = errors.New("passwords do not match")
	ErrPasswordPolicy       = errors.New("password policy violation")
	ErrAgreementRequired    = errors.New("agreement not accepted")
	ErrInvalidInput         = errors.New("invalid input")
	ErrTooManyAttempts      = errors.New("too many attempts")
	ErrProbationPeriodEnded = errors.New("probation period ended")
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrForbidden            = errors.New("forbidden")
	ErrXSRFMismatch         = errors.New("xsrf token mismatch")
	ErrBackendUnavailable   = errors.New("backend unavailable")
	ErrEngineNotReady       = errors.New("engine not initialized")
)

// PasswordChangedError is returned by sign-in when the submitted password is
// the one the user had before their latest password restore. It matches
// [ErrInvalidCredentials] under errors.Is.
type PasswordChangedError struct {
	ChangedAt time.Time
}

func (e *PasswordChangedError) Error() string {
	return fmt.Sprintf("%v: password was changed at %s", ErrInvalidCredentials, e.ChangedAt.UTC().Format(time.RFC3339))
}

func (e *PasswordChangedError) Unwrap() error {
	return ErrInvalidCredentials
}

// ErrorClass buckets errors by who must act on them.
type ErrorClass uint8

const (
	// ClassNone is the class of a nil error.
	ClassNone ErrorClass = iota
	// ClassUser errors are part of normal authentication control flow and map
	// to validation messages.
	ClassUser
	// ClassServer errors are configuration or infrastructure faults and map to
	// a generic 5xx response.
	ClassServer
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassUser:
		return "user"
	default:
		return "server"
	}
}

// ClassifyError maps err to an [ErrorClass]. Errors that are not recognized are
// treated as server errors.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}

	switch {
	case isBackendError(err),
		errors.Is(err, ErrEncryption),
		errors.Is(err, ErrTokenMinting),
		errors.Is(err, ErrEngineNotReady):
		return ClassServer
	case errors.Is(err, ErrCaptchaFailed),
		errors.Is(err, ErrExpiredToken),
		errors.Is(err, ErrIllegalToken),
		errors.Is(err, ErrAlreadyUsedToken),
		errors.Is(err, ErrInvalidTokenValue),
		errors.Is(err, ErrDecryption),
		errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrEmailExists),
		errors.Is(err, ErrUsernameExists),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrEmailNotConfirmed),
		errors.Is(err, ErrSignInDisabled),
		errors.Is(err, ErrPasswordMismatch),
		errors.Is(err, ErrPasswordPolicy),
		errors.Is(err, ErrAgreementRequired),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrTooManyAttempts),
		errors.Is(err, ErrProbationPeriodEnded),
		errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrXSRFMismatch):
		return ClassUser
	default:
		return ClassServer
	}
}

// isBackendError reports Redis and storage failures.
func isBackendError(err error) bool {
	return errors.Is(err, ErrBackendUnavailable) ||
		errors.Is(err, limiters.ErrCounterUnavailable) ||
		errors.Is(err, stores.ErrUsedTokensUnavailable) ||
		errors.Is(err, stores.ErrPasswordChangesUnavailable) ||
		errors.Is(err, session.ErrRedisUnavailable) ||
		errors.Is(err, session.ErrSessionCorrupt)
}
