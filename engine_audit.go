package goSSO

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

const (
	auditEventSignInSuccess         = "sign_in_success"
	auditEventSignInFailure         = "sign_in_failure"
	auditEventSignUpSuccess         = "sign_up_success"
	auditEventSignUpFailure         = "sign_up_failure"
	auditEventSignUpVerified        = "sign_up_verified"
	auditEventSignUpVerifyFailure   = "sign_up_verify_failure"
	auditEventEmailConfirmed        = "email_confirmed"
	auditEventEmailConfirmFailure   = "email_confirm_failure"
	auditEventPasswordRestoreSent   = "password_restore_request"
	auditEventPasswordRestored      = "password_restored"
	auditEventPasswordRestoreFailed = "password_restore_failure"
	auditEventSignOut               = "sign_out"
	auditEventSessionCreated        = "session_created"
	auditEventSessionRefreshed      = "session_refreshed"
	auditEventSessionRefreshFailure = "session_refresh_failure"
	auditEventXSRFRejected          = "xsrf_rejected"
	auditEventRateLimitTriggered    = "rate_limit_triggered"
)

// AuditErrorCode is the stable error label written into [AuditEvent.Error].
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrEmailNotConfirmed  AuditErrorCode = "email_not_confirmed"
	auditErrSignInDisabled     AuditErrorCode = "sign_in_disabled"
	auditErrCaptcha            AuditErrorCode = "captcha_failed"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrTokenIllegal       AuditErrorCode = "token_illegal"
	auditErrTokenReplay        AuditErrorCode = "token_replay"
	auditErrInvalidCode        AuditErrorCode = "invalid_code"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrValidation         AuditErrorCode = "validation"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrProbationEnded     AuditErrorCode = "probation_ended"
	auditErrSessionNotFound    AuditErrorCode = "session_not_found"
	auditErrXSRF               AuditErrorCode = "xsrf_mismatch"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID int64,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        ClientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope, key string) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, 0, ErrTooManyAttempts, func() map[string]string {
		return map[string]string{"scope": scope, "key": key}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrEmailNotConfirmed):
		return auditErrEmailNotConfirmed
	case errors.Is(err, ErrSignInDisabled):
		return auditErrSignInDisabled
	case errors.Is(err, ErrCaptchaFailed):
		return auditErrCaptcha
	case errors.Is(err, ErrAlreadyUsedToken):
		return auditErrTokenReplay
	case errors.Is(err, ErrExpiredToken):
		return auditErrTokenExpired
	case errors.Is(err, ErrIllegalToken),
		errors.Is(err, ErrDecryption):
		return auditErrTokenIllegal
	case errors.Is(err, ErrInvalidTokenValue):
		return auditErrInvalidCode
	case errors.Is(err, ErrEmailExists),
		errors.Is(err, ErrUsernameExists):
		return auditErrDuplicate
	case errors.Is(err, ErrPasswordMismatch),
		errors.Is(err, ErrPasswordPolicy),
		errors.Is(err, ErrAgreementRequired),
		errors.Is(err, ErrInvalidInput):
		return auditErrValidation
	case errors.Is(err, ErrTooManyAttempts):
		return auditErrRateLimited
	case errors.Is(err, ErrProbationPeriodEnded):
		return auditErrProbationEnded
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrXSRFMismatch):
		return auditErrXSRF
	case isBackendError(err):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
