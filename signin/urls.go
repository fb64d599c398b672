package signin

import "strings"

// Route suffixes below URLConfig.SubRoute.
const (
	RouteCaptcha           = "/captcha"
	RouteSignIn            = "/signin"
	RouteSignOut           = "/signout"
	RouteSignUp            = "/signup"
	RouteSignUpVerify      = "/signup/verify"
	RouteSignUpVerifyEmail = "/signup/verify-email"
	RouteForgotPassword    = "/forgot-password"
	RouteRestorePassword   = "/restore-password"
)

// Query parameter names.
const (
	ParamCaptcha      = "cpt"
	ParamContinue     = "continue"
	ParamLang         = "lang"
	ParamState        = "state"
	ParamToken        = "token"
	ParamRestoreToken = "restoreToken"
)

// State is an optional outcome shown on the sign-in page.
type State string

const (
	StateNone                    State = ""
	StateEmailConfirmed          State = "EMAIL_VERIFICATION_CONFIRMED"
	StateEmailChanged            State = "EMAIL_VERIFICATION_EMAIL_CHANGED"
	StateEmailVerificationFailed State = "EMAIL_VERIFICATION_FAILED"
	StateSignedUp                State = "SUCCESSFUL_SIGN_UP"
	StatePasswordChanged         State = "PASSWORD_CHANGED"
	StateForgotEmailSent         State = "FORGOT_EMAIL_SENT"
)

var knownStates = map[State]bool{
	StateEmailConfirmed:          true,
	StateEmailChanged:            false,
	StateEmailVerificationFailed: false,
	StateSignedUp:                true,
	StatePasswordChanged:         true,
	StateForgotEmailSent:         true,
}

// ParseState parses a state case-insensitively. Unknown input yields StateNone.
func ParseState(s string) State {
	st := State(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := knownStates[st]; ok {
		return st
	}
	return StateNone
}

// Successful reports whether the state describes a positive outcome.
func (s State) Successful() bool {
	return knownStates[s]
}

// URLConfig configures a [URLBuilder].
type URLConfig struct {
	// BaseURL prefixes absolute URLs and is the fallback continue URL.
	BaseURL string
	// SubRoute prefixes every route, e.g. "/sso".
	SubRoute string
	// AllowedContinueURLs lists accepted continue URL prefixes.
	AllowedContinueURLs []string
	// TestMode accepts any continue URL.
	TestMode bool
}

// URLBuilder constructs the URLs handed out by the sign-in flows.
type URLBuilder struct {
	cfg URLConfig
}

// NewURLBuilder returns a URLBuilder. The allow-list is copied.
func NewURLBuilder(cfg URLConfig) *URLBuilder {
	cfg.AllowedContinueURLs = append([]string(nil), cfg.AllowedContinueURLs...)
	return &URLBuilder{cfg: cfg}
}

// BaseURL returns the configured base URL.
func (b *URLBuilder) BaseURL() string {
	return b.cfg.BaseURL
}

// Path returns the relative path for route.
func (b *URLBuilder) Path(route string) string {
	return b.cfg.SubRoute + route
}

// ContinueURL sanitizes a requested continue URL against the allow-list to
// prevent open redirects. Empty or unlisted URLs resolve to the base URL.
func (b *URLBuilder) ContinueURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return b.cfg.BaseURL
	}
	if b.cfg.TestMode {
		return u
	}
	for _, prefix := range b.cfg.AllowedContinueURLs {
		if prefix != "" && strings.HasPrefix(u, prefix) {
			return u
		}
	}
	return b.cfg.BaseURL
}

// CaptchaURL returns the relative URL of the challenge for captchaToken.
func (b *URLBuilder) CaptchaURL(captchaToken string) string {
	q := newQuery(b.Path(RouteCaptcha))
	q.add(ParamCaptcha, captchaToken)
	return q.String()
}

// SignInURL returns the absolute sign-in URL, optionally carrying state.
func (b *URLBuilder) SignInURL(lang, continueURL string, state State) string {
	q := b.absolute(RouteSignIn, lang)
	if state != StateNone {
		q.add(ParamState, strings.ToLower(string(state)))
	}
	q.add(ParamContinue, b.ContinueURL(continueURL))
	return q.String()
}

// SignUpVerificationURL returns the relative URL of the code-entry page.
func (b *URLBuilder) SignUpVerificationURL(lang, verificationToken, continueURL string) string {
	q := newQuery(b.Path(RouteSignUpVerify))
	q.addLang(lang)
	q.add(ParamToken, verificationToken)
	q.add(ParamContinue, b.ContinueURL(continueURL))
	return q.String()
}

// EmailConfirmationURL returns the absolute URL mailed to confirm an email.
func (b *URLBuilder) EmailConfirmationURL(lang, emailToken, continueURL string) string {
	q := b.absolute(RouteSignUpVerifyEmail, lang)
	q.add(ParamToken, emailToken)
	q.add(ParamContinue, b.ContinueURL(continueURL))
	return q.String()
}

// RestorePasswordURL returns the absolute URL mailed for password recovery.
func (b *URLBuilder) RestorePasswordURL(lang, restoreToken, continueURL string) string {
	q := b.absolute(RouteRestorePassword, lang)
	q.add(ParamRestoreToken, restoreToken)
	q.add(ParamContinue, b.ContinueURL(continueURL))
	return q.String()
}

func (b *URLBuilder) absolute(route, lang string) *query {
	q := newQuery(b.cfg.BaseURL + b.Path(route))
	q.addLang(lang)
	return q
}

type query struct {
	b   strings.Builder
	sep byte
}

func newQuery(base string) *query {
	q := &query{sep: '?'}
	q.b.WriteString(base)
	if strings.Contains(base, "?") {
		q.sep = '&'
	}
	return q
}

func (q *query) add(name, value string) {
	q.b.WriteByte(q.sep)
	q.b.WriteString(Escape(name))
	q.b.WriteByte('=')
	q.b.WriteString(Escape(value))
	q.sep = '&'
}

func (q *query) addLang(lang string) {
	if lang != "" {
		q.add(ParamLang, lang)
	}
}

func (q *query) String() string {
	return q.b.String()
}
