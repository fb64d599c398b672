package goSSO

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/MrEthical07/goSSO/internal"
	"github.com/MrEthical07/goSSO/token"
)

const (
	usernameMinLength = 4
	usernameMaxLength = 255
	emailMinLength    = 5
	emailMaxLength    = 255

	verificationCodeDigits = 6
	signUpAttemptsKey      = "signup:"
)

// SignUp registers an unconfirmed user and issues the two verification
// tokens: one for the confirmation email and one for the code-entry page.
// Delivering the email is up to the caller.
func (e *Engine) SignUp(ctx context.Context, req SignUpRequest) (*SignUpResult, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	res, err := e.signUp(ctx, req)
	if err != nil {
		if errors.Is(err, ErrEmailExists) || errors.Is(err, ErrUsernameExists) {
			e.metricInc(MetricSignUpDuplicate)
		} else {
			e.metricInc(MetricSignUpFailure)
		}
		e.emitAudit(ctx, auditEventSignUpFailure, false, 0, err, nil)
		return nil, err
	}

	e.metricInc(MetricSignUpSuccess)
	e.emitAudit(ctx, auditEventSignUpSuccess, true, res.User.ID, nil, nil)
	return res, nil
}

func (e *Engine) signUp(ctx context.Context, req SignUpRequest) (*SignUpResult, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if err := e.validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := e.checkPasswordPolicy(req.Password); err != nil {
		return nil, err
	}
	if req.Password != req.PasswordRepeat {
		return nil, ErrPasswordMismatch
	}
	if err := e.requireCaptcha(ctx, req.CaptchaToken, req.CaptchaAnswer); err != nil {
		return nil, err
	}
	if !req.AgreementAccepted {
		return nil, ErrAgreementRequired
	}

	if err := e.ensureAbsent(e.users.GetUserByEmail(ctx, email)); err != nil {
		return nil, wrapExists(err, ErrEmailExists)
	}
	if err := e.ensureAbsent(e.users.GetUserByUsername(ctx, username)); err != nil {
		return nil, wrapExists(err, ErrUsernameExists)
	}

	hash, err := e.passwords.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	lang := req.Locale
	if lang == "" {
		lang = LocaleFromContext(ctx)
	}
	user, err := e.users.CreateUser(ctx, &User{
		Username:          username,
		Email:             email,
		Role:              RoleUser,
		SignInState:       SignInEnabled,
		ConfirmationState: Unconfirmed,
		LastUsedLocale:    lang,
	}, hash)
	if err != nil {
		return nil, err
	}

	code, err := internal.NewVerificationCode(verificationCodeDigits)
	if err != nil {
		return nil, err
	}

	now := e.now()
	emailToken, err := e.enc.Encrypt(token.NewEmailVerificationToken(user.ID, user.Email, code, e.config.Token.EmailVerificationTTL, now))
	if err != nil {
		return nil, err
	}
	pageToken, err := e.enc.Encrypt(token.NewSignUpVerificationToken(user.ID, code, e.config.Token.SignUpVerificationTTL, now))
	if err != nil {
		return nil, err
	}

	return &SignUpResult{
		User:                    user,
		VerificationCode:        code,
		EmailToken:              emailToken,
		SignUpVerificationToken: pageToken,
		EmailConfirmationURL:    e.urls.EmailConfirmationURL(lang, emailToken, req.ContinueURL),
		SignUpVerificationURL:   e.urls.SignUpVerificationURL(lang, pageToken, req.ContinueURL),
	}, nil
}

// VerifySignUp confirms the user behind a SIGNUP_VERIFICATION token when code
// matches. Attempts are counted per token; past the generic limit every call
// fails with ErrTooManyAttempts.
func (e *Engine) VerifySignUp(ctx context.Context, verificationToken, code string) (*User, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	var userID int64
	fail := func(err error) (*User, error) {
		e.metricInc(MetricSignUpVerifyFailure)
		e.emitAudit(ctx, auditEventSignUpVerifyFailure, false, userID, err, nil)
		return nil, err
	}

	attemptsKey := signUpAttemptsKey + internal.HashToken(verificationToken)
	exceeded, err := e.genericCounter.IncrementAndCheck(ctx, attemptsKey)
	if err != nil {
		return fail(err)
	}
	if exceeded {
		e.emitRateLimit(ctx, "signup_verification", attemptsKey)
		return fail(ErrTooManyAttempts)
	}

	tok, err := e.enc.DecryptType(verificationToken, token.SignUpVerification)
	if err != nil {
		e.noteTokenError(ctx, "signup_verification", err)
		return fail(err)
	}
	userID, err = tokenUserID(tok)
	if err != nil {
		return fail(err)
	}

	expected := tok.AttrOr(token.AttrVerificationCode, "")
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(code))) != 1 {
		return fail(ErrInvalidTokenValue)
	}

	user, err := e.confirmUser(ctx, userID)
	if err != nil {
		return fail(err)
	}
	if err := e.genericCounter.Reset(ctx, attemptsKey); err != nil {
		e.logger.WarnContext(ctx, "sign-up attempt counter not reset", "user_id", userID, "error", err)
	}

	e.metricInc(MetricSignUpVerified)
	e.emitAudit(ctx, auditEventSignUpVerified, true, userID, nil, nil)
	return user, nil
}

// ConfirmEmail confirms the user behind an EMAIL_VERIFICATION token. The
// token's email must still be the user's email.
func (e *Engine) ConfirmEmail(ctx context.Context, emailToken string) (*User, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	var userID int64
	fail := func(err error) (*User, error) {
		e.metricInc(MetricEmailConfirmFailure)
		e.emitAudit(ctx, auditEventEmailConfirmFailure, false, userID, err, nil)
		return nil, err
	}

	tok, err := e.enc.DecryptType(emailToken, token.EmailVerification)
	if err != nil {
		e.noteTokenError(ctx, "email_verification", err)
		return fail(err)
	}
	userID, err = tokenUserID(tok)
	if err != nil {
		return fail(err)
	}

	user, err := e.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.logger.WarnContext(ctx, "email confirmation for unknown user", "user_id", userID)
		}
		return fail(err)
	}
	if email := tok.AttrOr(token.AttrEmail, ""); email != user.Email {
		e.logger.WarnContext(ctx, "email confirmation for changed email", "user_id", userID)
		return fail(ErrInvalidTokenValue)
	}

	if !user.IsConfirmed() {
		if user, err = e.confirmUser(ctx, userID); err != nil {
			return fail(err)
		}
	}

	e.metricInc(MetricEmailConfirmed)
	e.emitAudit(ctx, auditEventEmailConfirmed, true, userID, nil, nil)
	return user, nil
}

func (e *Engine) confirmUser(ctx context.Context, userID int64) (*User, error) {
	user, err := e.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsConfirmed() {
		return user, nil
	}

	updated := *user
	updated.ConfirmationState = Confirmed
	if err := e.users.UpdateUser(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// ensureAbsent turns a lookup result into nil when the user does not exist,
// errExists when it does, or the lookup error.
func (e *Engine) ensureAbsent(_ *User, err error) error {
	switch {
	case err == nil:
		return errExists
	case errors.Is(err, ErrUserNotFound):
		return nil
	default:
		return err
	}
}

var errExists = errors.New("exists")

func wrapExists(err, sentinel error) error {
	if errors.Is(err, errExists) {
		return sentinel
	}
	return err
}

func (e *Engine) validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < usernameMinLength || n > usernameMaxLength {
		return fmt.Errorf("%w: username must be %d to %d characters", ErrInvalidInput, usernameMinLength, usernameMaxLength)
	}
	if strings.Contains(username, "@") {
		return fmt.Errorf("%w: username must not contain @", ErrInvalidInput)
	}
	if isReservedUsername(username, e.config.SignUp) {
		return fmt.Errorf("%w: username is reserved", ErrInvalidInput)
	}
	return nil
}

// isReservedUsername matches username against the reserved lists, ignoring
// case and surrounding spaces.
func isReservedUsername(username string, cfg SignUpConfig) bool {
	name := strings.ToLower(strings.TrimSpace(username))
	for _, r := range cfg.ReservedUsernames {
		if name == strings.ToLower(strings.TrimSpace(r)) {
			return true
		}
	}
	for _, sub := range cfg.ReservedSubstrings {
		sub = strings.ToLower(strings.TrimSpace(sub))
		if sub != "" && strings.Contains(name, sub) {
			return true
		}
	}
	return false
}

func validateEmail(email string) error {
	n := utf8.RuneCountInString(email)
	if n < emailMinLength || n > emailMaxLength {
		return fmt.Errorf("%w: email must be %d to %d characters", ErrInvalidInput, emailMinLength, emailMaxLength)
	}
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	return nil
}
