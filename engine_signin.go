package goSSO

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goSSO/signin"
)

// SignIn checks the credentials in req and returns the redirect that delivers
// a fresh access token. When the caller's IP is over its hit limit (see
// [WithHitsExceeded]) a solved CAPTCHA is required first.
func (e *Engine) SignIn(ctx context.Context, req SignInRequest) (*signin.Response, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	var userID int64
	fail := func(err error) (*signin.Response, error) {
		e.metricInc(MetricSignInFailure)
		e.emitAudit(ctx, auditEventSignInFailure, false, userID, err, nil)
		return nil, err
	}

	if HitsExceededFromContext(ctx) {
		e.metricInc(MetricSignInCaptchaRequired)
		if err := e.requireCaptcha(ctx, req.CaptchaToken, req.CaptchaAnswer); err != nil {
			return fail(err)
		}
	}

	user, err := e.lookupUser(ctx, req.EmailOrUsername)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidInput) {
			return fail(ErrInvalidCredentials)
		}
		return fail(err)
	}
	userID = user.ID

	ok, err := e.passwords.Verify(req.Password, user.PasswordHash)
	if err != nil {
		e.logger.ErrorContext(ctx, "stored password hash unreadable", "user_id", user.ID, "error", err)
		return fail(fmt.Errorf("verify password: %w", err))
	}
	if !ok {
		if changed := e.passwordChangedSince(ctx, user, req.Password); changed != nil {
			return fail(changed)
		}
		return fail(ErrInvalidCredentials)
	}
	if !user.IsConfirmed() {
		return fail(ErrEmailNotConfirmed)
	}
	if !user.CanSignIn() {
		return fail(ErrSignInDisabled)
	}

	e.rememberLocale(ctx, user, req.Locale)
	e.maybeUpgradeHash(ctx, user, req.Password)

	resp, err := e.responses.SignIn(ctx, signin.Principal{
		UserID: user.ID,
		Role:   string(user.EffectiveRole()),
	}, DeviceInputTypeFromContext(ctx), e.urls.ContinueURL(req.ContinueURL))
	if err != nil {
		e.logger.ErrorContext(ctx, "sign-in response failed", "user_id", user.ID, "error", err)
		return fail(err)
	}

	e.metricInc(MetricSignInSuccess)
	e.emitAudit(ctx, auditEventSignInSuccess, true, user.ID, nil, func() map[string]string {
		return map[string]string{"style": resp.Style.String()}
	})
	return resp, nil
}

// SignOut returns the response that clears the access token cookie and
// redirects to the sign-in page.
func (e *Engine) SignOut(ctx context.Context, lang, continueURL string) *signin.Response {
	var userID int64
	if id := IdentityFromContext(ctx); id != nil {
		userID = id.UserID
	}
	e.metricInc(MetricSignOut)
	e.emitAudit(ctx, auditEventSignOut, true, userID, nil, nil)
	return e.responses.SignOut(e.urls.SignInURL(lang, continueURL, signin.StateNone))
}

// passwordChangedSince returns a [PasswordChangedError] when pw matches the
// hash recorded before the user's latest password restore.
func (e *Engine) passwordChangedSince(ctx context.Context, user *User, pw string) error {
	if e.config.Password.ChangeHintTTL <= 0 {
		return nil
	}
	change, ok, err := e.pwChanges.Last(ctx, user.ID)
	if err != nil {
		e.logger.WarnContext(ctx, "password change lookup failed", "user_id", user.ID, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	match, err := e.passwords.Verify(pw, change.PreviousHash)
	if err != nil || !match {
		return nil
	}
	e.metricInc(MetricSignInPasswordChanged)
	return &PasswordChangedError{ChangedAt: change.ChangedAt}
}

// lookupUser resolves an email or a username. Inputs containing "@" are tried
// as an email first.
func (e *Engine) lookupUser(ctx context.Context, emailOrUsername string) (*User, error) {
	v := strings.TrimSpace(emailOrUsername)
	if v == "" {
		return nil, fmt.Errorf("%w: empty email or username", ErrInvalidInput)
	}

	if strings.Contains(v, "@") {
		u, err := e.users.GetUserByEmail(ctx, v)
		if err == nil || !errors.Is(err, ErrUserNotFound) {
			return u, err
		}
	}
	return e.users.GetUserByUsername(ctx, v)
}

func (e *Engine) rememberLocale(ctx context.Context, user *User, lang string) {
	if lang == "" {
		lang = LocaleFromContext(ctx)
	}
	if lang == "" || lang == user.LastUsedLocale {
		return
	}

	updated := *user
	updated.LastUsedLocale = lang
	if err := e.users.UpdateUser(ctx, &updated); err != nil {
		e.logger.WarnContext(ctx, "last used locale not saved", "user_id", user.ID, "error", err)
		return
	}
	*user = updated
}

func (e *Engine) maybeUpgradeHash(ctx context.Context, user *User, plain string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	upgrade, err := e.passwords.NeedsUpgrade(user.PasswordHash)
	if err != nil || !upgrade {
		return
	}

	hash, err := e.passwords.Hash(plain)
	if err != nil {
		e.logger.WarnContext(ctx, "password hash upgrade generation failed", "user_id", user.ID, "error", err)
		return
	}
	if err := e.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		e.logger.WarnContext(ctx, "password hash upgrade update failed", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = hash
}
