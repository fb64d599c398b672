package goSSO

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSSO/token"
)

// Authenticate opens an access token and returns the identity it carries.
// Sessions are not consulted: a well-formed, unexpired ACCESS token is
// sufficient.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*Identity, error) {
	if e == nil || e.enc == nil {
		return nil, ErrEngineNotReady
	}
	if accessToken == "" {
		return nil, ErrUnauthenticated
	}

	start := time.Now()
	tok, err := e.enc.DecryptType(accessToken, token.Access)
	e.metrics.Observe(MetricDecryptLatency, time.Since(start))
	if err != nil {
		e.noteTokenError(ctx, "access", err)
		e.metricInc(MetricAuthenticateFailure)
		return nil, err
	}

	userID, err := tokenUserID(tok)
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		return nil, err
	}

	e.metricInc(MetricAuthenticateSuccess)
	return &Identity{
		UserID:      userID,
		Role:        ParseUserRole(tok.AttrOr(token.AttrRole, string(RoleUser))),
		AccessToken: accessToken,
		IssuedAt:    time.Unix(tok.Created(), 0),
	}, nil
}

// NewXSRFToken mints an XSRF token bound to userID.
func (e *Engine) NewXSRFToken(_ context.Context, userID int64) (string, error) {
	if e == nil || e.enc == nil {
		return "", ErrEngineNotReady
	}
	s, err := e.enc.Encrypt(token.NewXSRFToken(e.config.Token.Scope, userID, e.config.Token.XSRFTTL, e.now()))
	if err != nil {
		return "", err
	}
	e.metricInc(MetricXSRFIssued)
	return s, nil
}

// VerifyXSRFToken checks that tok is an unexpired XSRF token minted for
// userID. Every failure wraps ErrXSRFMismatch.
func (e *Engine) VerifyXSRFToken(ctx context.Context, tok string, userID int64) error {
	if e == nil || e.enc == nil {
		return ErrEngineNotReady
	}

	err := e.verifyXSRF(ctx, tok, userID)
	if err != nil {
		e.metricInc(MetricXSRFRejected)
		e.emitAudit(ctx, auditEventXSRFRejected, false, userID, err, nil)
	}
	return err
}

func (e *Engine) verifyXSRF(ctx context.Context, tok string, userID int64) error {
	if tok == "" {
		return fmt.Errorf("%w: missing token", ErrXSRFMismatch)
	}
	x, err := e.enc.DecryptType(tok, token.XSRF)
	if err != nil {
		e.noteTokenError(ctx, "xsrf", err)
		return fmt.Errorf("%w: %w", ErrXSRFMismatch, err)
	}
	owner, err := x.UserID()
	if err != nil || owner != userID {
		return fmt.Errorf("%w: token issued for another user", ErrXSRFMismatch)
	}
	return nil
}

// NewCaptcha issues a CAPTCHA token and the relative URL its challenge is
// served from.
func (e *Engine) NewCaptcha(ctx context.Context) (tok, url string, err error) {
	if e == nil || e.captcha == nil {
		return "", "", ErrEngineNotReady
	}
	tok, err = e.captcha.NewToken(ctx)
	if err != nil {
		return "", "", err
	}
	e.metricInc(MetricCaptchaIssued)
	return tok, e.urls.CaptchaURL(tok), nil
}

// CaptchaText returns the challenge text for rendering. Redeemed, expired or
// foreign tokens are rejected.
func (e *Engine) CaptchaText(ctx context.Context, tok string) (string, error) {
	if e == nil || e.captcha == nil {
		return "", ErrEngineNotReady
	}
	text, err := e.captcha.ExtractText(ctx, tok)
	if err != nil {
		e.noteTokenError(ctx, "captcha", err)
		return "", err
	}
	return text, nil
}

// VerifyCaptcha checks answer against tok and redeems tok on success.
func (e *Engine) VerifyCaptcha(ctx context.Context, tok, answer string) error {
	if e == nil || e.captcha == nil {
		return ErrEngineNotReady
	}

	err := e.captcha.Verify(ctx, tok, answer)
	switch {
	case err == nil:
		e.metricInc(MetricCaptchaSuccess)
	case errors.Is(err, ErrAlreadyUsedToken):
		e.metricInc(MetricCaptchaReplay)
	default:
		e.noteTokenError(ctx, "captcha", err)
		e.metricInc(MetricCaptchaFailure)
	}
	return err
}

// CountHit records a request from ip and reports whether the per-IP limit is
// exceeded for the current window.
func (e *Engine) CountHit(ctx context.Context, ip string) (bool, error) {
	if e == nil || e.ipCounter == nil {
		return false, ErrEngineNotReady
	}
	exceeded, err := e.ipCounter.IncrementAndCheck(ctx, ip)
	if err != nil {
		return false, err
	}
	if exceeded {
		e.emitRateLimit(ctx, "ip", ip)
	}
	return exceeded, nil
}

// requireCaptcha verifies a CAPTCHA answer as part of a flow. User-facing
// failures are wrapped with ErrCaptchaFailed; backend failures pass through.
func (e *Engine) requireCaptcha(ctx context.Context, tok, answer string) error {
	if tok == "" {
		return fmt.Errorf("%w: missing token", ErrCaptchaFailed)
	}
	err := e.VerifyCaptcha(ctx, tok, answer)
	if err != nil && ClassifyError(err) == ClassUser {
		return fmt.Errorf("%w: %w", ErrCaptchaFailed, err)
	}
	return err
}

// noteTokenError counts expired and illegal tokens and writes a security note.
// All notes of an engine share one throttle.
func (e *Engine) noteTokenError(ctx context.Context, kind string, err error) {
	var reason string
	switch {
	case errors.Is(err, ErrExpiredToken):
		e.metricInc(MetricTokenExpired)
		reason = "expired"
	case errors.Is(err, ErrIllegalToken):
		e.metricInc(MetricTokenIllegal)
		reason = "illegal"
	default:
		return
	}
	if e.tokenNote == nil {
		return
	}
	e.tokenNote.Do(func() {
		e.logger.InfoContext(ctx, "token rejected",
			"kind", kind,
			"reason", reason,
			"ip", ClientIPFromContext(ctx),
			"error", err)
	})
}

// tokenUserID reads the userId attribute of a user-bound token.
func tokenUserID(tok token.ExpirableToken) (int64, error) {
	id, err := tok.UserID()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIllegalToken, err)
	}
	return id, nil
}
