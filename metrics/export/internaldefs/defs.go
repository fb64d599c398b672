package internaldefs

import (
	"math"

	goSSO "github.com/MrEthical07/goSSO"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goSSO.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   goSSO.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter.
var CounterDefs = []CounterDef{
	{ID: goSSO.MetricSignInSuccess, Name: "gosso_sign_in_success_total", Help: "Successful sign-ins."},
	{ID: goSSO.MetricSignInFailure, Name: "gosso_sign_in_failure_total", Help: "Failed sign-ins."},
	{ID: goSSO.MetricSignInCaptchaRequired, Name: "gosso_sign_in_captcha_required_total", Help: "Sign-ins attempted after the per-IP hit limit was exceeded."},
	{ID: goSSO.MetricSignInPasswordChanged, Name: "gosso_sign_in_password_changed_total", Help: "Failed sign-ins with the password replaced by the latest restore."},
	{ID: goSSO.MetricSignUpSuccess, Name: "gosso_sign_up_success_total", Help: "Created accounts."},
	{ID: goSSO.MetricSignUpDuplicate, Name: "gosso_sign_up_duplicate_total", Help: "Sign-ups rejected for a taken email or username."},
	{ID: goSSO.MetricSignUpFailure, Name: "gosso_sign_up_failure_total", Help: "Sign-ups rejected for other reasons."},
	{ID: goSSO.MetricSignUpVerified, Name: "gosso_sign_up_verified_total", Help: "Sign-ups confirmed with a verification code."},
	{ID: goSSO.MetricSignUpVerifyFailure, Name: "gosso_sign_up_verify_failure_total", Help: "Failed verification code submissions."},
	{ID: goSSO.MetricEmailConfirmed, Name: "gosso_email_confirmed_total", Help: "Emails confirmed through the mailed link."},
	{ID: goSSO.MetricEmailConfirmFailure, Name: "gosso_email_confirm_failure_total", Help: "Failed email confirmations."},
	{ID: goSSO.MetricPasswordRestoreRequest, Name: "gosso_password_restore_request_total", Help: "Password restore tokens issued."},
	{ID: goSSO.MetricPasswordRestoreSuccess, Name: "gosso_password_restore_success_total", Help: "Passwords restored."},
	{ID: goSSO.MetricPasswordRestoreFailure, Name: "gosso_password_restore_failure_total", Help: "Failed password restores."},
	{ID: goSSO.MetricSignOut, Name: "gosso_sign_out_total", Help: "Sign-outs."},
	{ID: goSSO.MetricCaptchaIssued, Name: "gosso_captcha_issued_total", Help: "CAPTCHA challenges issued."},
	{ID: goSSO.MetricCaptchaSuccess, Name: "gosso_captcha_success_total", Help: "CAPTCHA challenges solved."},
	{ID: goSSO.MetricCaptchaFailure, Name: "gosso_captcha_failure_total", Help: "Wrong CAPTCHA answers."},
	{ID: goSSO.MetricCaptchaReplay, Name: "gosso_captcha_replay_total", Help: "CAPTCHA tokens presented twice."},
	{ID: goSSO.MetricTokenExpired, Name: "gosso_token_expired_total", Help: "Expired tokens presented."},
	{ID: goSSO.MetricTokenIllegal, Name: "gosso_token_illegal_total", Help: "Undecryptable or mistyped tokens presented."},
	{ID: goSSO.MetricAuthenticateSuccess, Name: "gosso_authenticate_success_total", Help: "Access tokens accepted."},
	{ID: goSSO.MetricAuthenticateFailure, Name: "gosso_authenticate_failure_total", Help: "Access tokens rejected."},
	{ID: goSSO.MetricXSRFIssued, Name: "gosso_xsrf_issued_total", Help: "XSRF tokens issued."},
	{ID: goSSO.MetricXSRFRejected, Name: "gosso_xsrf_rejected_total", Help: "XSRF tokens rejected."},
	{ID: goSSO.MetricRateLimitHit, Name: "gosso_rate_limit_hit_total", Help: "Counter checks that went over their limit."},
	{ID: goSSO.MetricSessionCreated, Name: "gosso_session_created_total", Help: "Auth sessions created."},
	{ID: goSSO.MetricSessionRefreshed, Name: "gosso_session_refreshed_total", Help: "Access tokens reissued from a refresh token."},
	{ID: goSSO.MetricSessionRefreshFailure, Name: "gosso_session_refresh_failure_total", Help: "Failed refreshes."},
	{ID: goSSO.MetricSessionsSwept, Name: "gosso_sessions_swept_total", Help: "Expired auth sessions deleted by the sweeper."},
	{ID: goSSO.MetricProbationEnded, Name: "gosso_probation_ended_total", Help: "Refreshes refused because the probation period ended."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSSO.MetricDecryptLatency, Name: "gosso_decrypt_latency_seconds", Help: "Time spent opening access tokens."},
}

// HistogramBounds are the bucket upper bounds in seconds, as exposition
// labels. They match the engine's fixed buckets.
var HistogramBounds = []string{
	"0.0001",
	"0.00025",
	"0.0005",
	"0.001",
	"0.0025",
	"0.005",
	"0.01",
	"+Inf",
}

// HistogramUpperBounds holds HistogramBounds as numbers.
var HistogramUpperBounds = []float64{
	0.0001,
	0.00025,
	0.0005,
	0.001,
	0.0025,
	0.005,
	0.01,
	math.Inf(1),
}

// AuditDroppedName and AuditDroppedHelp describe the dropped audit events
// counter, read from Engine.AuditDropped.
const AuditDroppedName = "gosso_audit_dropped_total"

const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// NormalizeBuckets copies raw into a fixed-size array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
