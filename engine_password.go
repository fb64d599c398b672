package goSSO

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/MrEthical07/goSSO/internal/stores"
	"github.com/MrEthical07/goSSO/signin"
	"github.com/MrEthical07/goSSO/token"
)

// ForgotPassword issues a CONFIRM_PASSWORD_CHANGE token for the account named
// in req. The caller mails RestoreURL and then redirects to
// [Engine.ForgotPasswordRedirect].
func (e *Engine) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (*ForgotPasswordResult, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	var userID int64
	fail := func(err error) (*ForgotPasswordResult, error) {
		e.metricInc(MetricPasswordRestoreFailure)
		e.emitAudit(ctx, auditEventPasswordRestoreFailed, false, userID, err, nil)
		return nil, err
	}

	if err := e.requireCaptcha(ctx, req.CaptchaToken, req.CaptchaAnswer); err != nil {
		return fail(err)
	}

	user, err := e.lookupUser(ctx, req.EmailOrUsername)
	if err != nil {
		return fail(err)
	}
	userID = user.ID
	if !user.CanSignIn() {
		return fail(ErrSignInDisabled)
	}

	restoreToken, err := e.enc.Encrypt(token.NewUserToken(token.ConfirmPasswordChange, user.ID, e.config.Token.RestorePasswordTTL, e.now()))
	if err != nil {
		return fail(err)
	}

	lang := req.Locale
	if lang == "" {
		lang = user.LastUsedLocale
	}

	e.metricInc(MetricPasswordRestoreRequest)
	e.emitAudit(ctx, auditEventPasswordRestoreSent, true, user.ID, nil, nil)
	return &ForgotPasswordResult{
		User:         user,
		RestoreToken: restoreToken,
		RestoreURL:   e.urls.RestorePasswordURL(lang, restoreToken, req.ContinueURL),
	}, nil
}

// ForgotPasswordRedirect is the sign-in URL shown after a restore email was sent.
func (e *Engine) ForgotPasswordRedirect(lang, continueURL string) string {
	return e.urls.SignInURL(lang, continueURL, signin.StateForgotEmailSent)
}

// RestoreTokenUser returns the user a restore token was issued for, so the
// restore page can be rendered. A token that was already redeemed is rejected.
func (e *Engine) RestoreTokenUser(ctx context.Context, restoreToken string) (*User, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	_, user, err := e.openRestoreToken(ctx, restoreToken)
	if err != nil {
		return nil, err
	}
	used, err := e.used.IsUsed(ctx, restoreToken)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, ErrAlreadyUsedToken
	}
	return user, nil
}

// RestorePassword sets a new password for the user behind req.Token. The token
// is single-use. A successful restore also confirms the user's email, since
// the token could only have been read from that mailbox.
func (e *Engine) RestorePassword(ctx context.Context, req RestorePasswordRequest) (*User, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	var userID int64
	fail := func(err error) (*User, error) {
		e.metricInc(MetricPasswordRestoreFailure)
		e.emitAudit(ctx, auditEventPasswordRestoreFailed, false, userID, err, nil)
		return nil, err
	}

	tok, user, err := e.openRestoreToken(ctx, req.Token)
	if err != nil {
		return fail(err)
	}
	userID = user.ID

	if err := e.checkPasswordPolicy(req.Password); err != nil {
		return fail(err)
	}
	if req.Password != req.PasswordRepeat {
		return fail(ErrPasswordMismatch)
	}

	hash, err := e.passwords.Hash(req.Password)
	if err != nil {
		return fail(fmt.Errorf("hash password: %w", err))
	}

	fresh, err := e.used.MarkUsed(ctx, req.Token, tok.ExpiresAt().Sub(e.now())+time.Second)
	if err != nil {
		return fail(err)
	}
	if !fresh {
		return fail(ErrAlreadyUsedToken)
	}

	previousHash := user.PasswordHash
	if err := e.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		if ferr := e.used.Forget(ctx, req.Token); ferr != nil {
			e.logger.WarnContext(ctx, "restore token left marked after failed update", "user_id", user.ID, "error", ferr)
		}
		return fail(err)
	}
	user.PasswordHash = hash
	e.recordPasswordChange(ctx, user.ID, previousHash)

	if !user.IsConfirmed() {
		confirmed, err := e.confirmUser(ctx, user.ID)
		if err != nil {
			e.logger.WarnContext(ctx, "user not confirmed after password restore", "user_id", user.ID, "error", err)
		} else {
			user = confirmed
		}
	}

	e.metricInc(MetricPasswordRestoreSuccess)
	e.emitAudit(ctx, auditEventPasswordRestored, true, user.ID, nil, nil)
	return user, nil
}

// recordPasswordChange keeps the replaced hash for the sign-in hint. Failures
// are logged only; the new password is already in place.
func (e *Engine) recordPasswordChange(ctx context.Context, userID int64, previousHash string) {
	if previousHash == "" || e.config.Password.ChangeHintTTL <= 0 {
		return
	}
	err := e.pwChanges.Record(ctx, userID, stores.PasswordChange{
		PreviousHash: previousHash,
		ChangedAt:    e.now(),
	}, e.config.Password.ChangeHintTTL)
	if err != nil {
		e.logger.WarnContext(ctx, "password change not recorded", "user_id", userID, "error", err)
	}
}

// openRestoreToken decrypts a restore token and loads its user. A token whose
// user no longer exists is treated as expired.
func (e *Engine) openRestoreToken(ctx context.Context, restoreToken string) (token.ExpirableToken, *User, error) {
	tok, err := e.enc.DecryptType(restoreToken, token.ConfirmPasswordChange)
	if err != nil {
		e.noteTokenError(ctx, "restore_password", err)
		return token.ExpirableToken{}, nil, err
	}
	userID, err := tokenUserID(tok)
	if err != nil {
		return token.ExpirableToken{}, nil, err
	}
	user, err := e.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return token.ExpirableToken{}, nil, ErrExpiredToken
		}
		return token.ExpirableToken{}, nil, err
	}
	return tok, user, nil
}

// checkPasswordPolicy enforces the configured length range, counted in
// characters.
func (e *Engine) checkPasswordPolicy(pw string) error {
	n := utf8.RuneCountInString(pw)
	if n < e.config.Password.MinLength {
		return fmt.Errorf("%w: at least %d characters required", ErrPasswordPolicy, e.config.Password.MinLength)
	}
	if n > e.config.Password.MaxLength {
		return fmt.Errorf("%w: at most %d characters allowed", ErrPasswordPolicy, e.config.Password.MaxLength)
	}
	return nil
}
