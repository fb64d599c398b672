package goSSO

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/MrEthical07/goSSO/captcha"
	"github.com/MrEthical07/goSSO/signin"
)

// Config is the complete engine configuration. Start from [DefaultConfig] and
// override what differs; [Config.Validate] is run by [Builder.Build].
type Config struct {
	Token    TokenConfig
	Captcha  CaptchaConfig
	Counters CountersConfig
	SignUp   SignUpConfig
	SignIn   SignInConfig
	URLs     URLConfig
	Session  SessionConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig configures the password-based token cipher and token lifetimes.
type TokenConfig struct {
	// EncryptionPassword keys every token. Rotating it invalidates all
	// outstanding tokens.
	EncryptionPassword string
	// KeySize is the AES key size in bits: 128, 192 or 256.
	KeySize    int
	Iterations int
	SaltLength int
	// Scope is written into access and refresh tokens.
	Scope string

	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	UnconfirmedRefreshTTL time.Duration
	XSRFTTL               time.Duration
	EmailVerificationTTL  time.Duration
	SignUpVerificationTTL time.Duration
	RestorePasswordTTL    time.Duration
}

/*
====================================
CAPTCHA CONFIG
====================================
*/

// CaptchaConfig configures challenge text and the single-use markers. The
// alphabet must not contain two characters that differ only in case.
type CaptchaConfig struct {
	Alphabet string
	Length   int
	TTL      time.Duration
	// UsedPrefix namespaces single-use markers in Redis.
	UsedPrefix string
}

/*
====================================
COUNTERS CONFIG
====================================
*/

// CountersConfig configures the Redis fixed-window counters.
type CountersConfig struct {
	Prefix       string
	IPTTL        time.Duration
	IPLimit      int64
	GenericTTL   time.Duration
	GenericLimit int64
}

/*
====================================
SIGN-UP CONFIG
====================================
*/

// SignUpConfig lists usernames that cannot be registered. Both lists are
// matched case-insensitively against the trimmed username: ReservedUsernames
// as whole names, ReservedSubstrings anywhere in the name.
type SignUpConfig struct {
	ReservedUsernames  []string
	ReservedSubstrings []string
}

/*
====================================
SIGN-IN CONFIG
====================================
*/

// SignInConfig configures how access tokens are delivered after sign-in.
type SignInConfig struct {
	DevicePolicy      signin.DeviceAuthPolicy
	BrowserAppend     signin.AppendTokenPolicy
	ApplicationAppend signin.AppendTokenPolicy
	CookieName        string
	ParameterName     string
	ApplicationURL    string
	Domain            string
	Production        bool
}

/*
====================================
URL CONFIG
====================================
*/

// URLConfig configures the URLs the flows hand out. TestMode accepts any
// continue URL and must not be combined with SignIn.Production.
type URLConfig struct {
	BaseURL             string
	SubRoute            string
	AllowedContinueURLs []string
	TestMode            bool
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig configures the auth session repository and its sweeper.
type SessionConfig struct {
	RedisPrefix       string
	SweepInitialDelay time.Duration
	SweepInterval     time.Duration
	SweepTimeout      time.Duration
	// DisableProbation lets unconfirmed users keep refreshing sessions past
	// UnconfirmedRefreshTTL.
	DisableProbation bool
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id parameters and the length rule for new
// passwords. Lengths count characters, not bytes.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinLength      int
	MaxLength      int
	UpgradeOnLogin bool

	// ChangeHintTTL is how long the previous hash is kept after a password
	// restore so that sign-in with the old password can say it was changed.
	// Zero disables the hint.
	ChangeHintTTL    time.Duration
	ChangeHintPrefix string
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig configures the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig enables the in-process counters and the decrypt latency
// histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			KeySize:               256,
			Iterations:            1024,
			SaltLength:            16,
			Scope:                 "project",
			AccessTTL:             time.Hour,
			RefreshTTL:            30 * 24 * time.Hour,
			UnconfirmedRefreshTTL: 3 * 24 * time.Hour,
			XSRFTTL:               30 * time.Minute,
			EmailVerificationTTL:  24 * time.Hour,
			SignUpVerificationTTL: 30 * time.Minute,
			RestorePasswordTTL:    time.Hour,
		},
		Captcha: CaptchaConfig{
			Alphabet:   captcha.DefaultAlphabet,
			Length:     captcha.DefaultLength,
			TTL:        captcha.DefaultTTL,
			UsedPrefix: "sso:used:",
		},
		Counters: CountersConfig{
			Prefix:       "sso:cnt:",
			IPTTL:        30 * time.Second,
			IPLimit:      5,
			GenericTTL:   time.Hour,
			GenericLimit: 5,
		},
		SignUp: SignUpConfig{
			ReservedUsernames: []string{
				"admin", "administrator", "root", "superuser", "system",
				"support", "help", "info", "security", "postmaster",
				"webmaster", "hostmaster", "abuse", "noreply", "no-reply",
				"moderator", "sso", "auth", "api", "www",
			},
			ReservedSubstrings: []string{"admin", "moderator"},
		},
		SignIn: SignInConfig{
			DevicePolicy:      signin.PolicyBrowser,
			BrowserAppend:     signin.AppendCookie,
			ApplicationAppend: signin.AppendURLFragment,
			CookieName:        "sso_token",
			ParameterName:     "token",
		},
		URLs: URLConfig{
			BaseURL:  "http://localhost:8080",
			SubRoute: "/sso",
		},
		Session: SessionConfig{
			RedisPrefix:       "sso:",
			SweepInitialDelay: 10 * time.Second,
			SweepInterval:     600 * time.Second,
			SweepTimeout:      30 * time.Second,
		},
		Password: PasswordConfig{
			Memory:           65536,
			Time:             3,
			Parallelism:      2,
			SaltLength:       16,
			KeyLength:        32,
			MinLength:        5,
			MaxLength:        100,
			UpgradeOnLogin:   true,
			ChangeHintTTL:    30 * 24 * time.Hour,
			ChangeHintPrefix: "sso:pwchg:",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the defaults. EncryptionPassword is left empty and
// must be set before building an engine.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.URLs.AllowedContinueURLs = append([]string(nil), cfg.URLs.AllowedContinueURLs...)
	out.SignUp.ReservedUsernames = append([]string(nil), cfg.SignUp.ReservedUsernames...)
	out.SignUp.ReservedSubstrings = append([]string(nil), cfg.SignUp.ReservedSubstrings...)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	// Token
	if c.Token.EncryptionPassword == "" {
		return errors.New("Token EncryptionPassword must be set")
	}
	if c.Token.KeySize != 128 && c.Token.KeySize != 192 && c.Token.KeySize != 256 {
		return errors.New("Token KeySize must be 128, 192 or 256")
	}
	if c.Token.Iterations <= 0 {
		return errors.New("Token Iterations must be > 0")
	}
	if c.Token.SaltLength <= 0 || c.Token.SaltLength > 0xFFFF {
		return errors.New("Token SaltLength must be in 1..65535")
	}
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be > 0")
	}
	if c.Token.RefreshTTL < c.Token.AccessTTL {
		return errors.New("Token RefreshTTL must be >= AccessTTL")
	}
	if c.Token.UnconfirmedRefreshTTL <= 0 {
		return errors.New("Token UnconfirmedRefreshTTL must be > 0")
	}
	if c.Token.XSRFTTL <= 0 {
		return errors.New("Token XSRFTTL must be > 0")
	}
	if c.Token.EmailVerificationTTL <= 0 || c.Token.SignUpVerificationTTL <= 0 || c.Token.RestorePasswordTTL <= 0 {
		return errors.New("Token verification TTLs must be > 0")
	}

	// Captcha
	if len([]rune(c.Captcha.Alphabet)) < 2 {
		return errors.New("Captcha Alphabet must have at least 2 characters")
	}
	if hasCaseFoldDuplicate(c.Captcha.Alphabet) {
		return errors.New("Captcha Alphabet must not repeat a character, ignoring case")
	}
	if c.Captcha.Length <= 0 {
		return errors.New("Captcha Length must be > 0")
	}
	if c.Captcha.TTL <= 0 {
		return errors.New("Captcha TTL must be > 0")
	}

	// Counters
	if c.Counters.IPTTL <= 0 || c.Counters.GenericTTL <= 0 {
		return errors.New("Counters TTLs must be > 0")
	}
	if c.Counters.IPLimit <= 0 || c.Counters.GenericLimit <= 0 {
		return errors.New("Counters limits must be > 0")
	}

	// Sign-in
	if c.SignIn.CookieName == "" {
		return errors.New("SignIn CookieName must be set")
	}
	if c.SignIn.ParameterName == "" {
		return errors.New("SignIn ParameterName must be set")
	}
	if c.SignIn.ApplicationAppend == signin.AppendCookie {
		return errors.New("SignIn ApplicationAppend cannot be a cookie")
	}
	if c.SignIn.DevicePolicy != signin.PolicyBrowser && c.SignIn.ApplicationURL == "" {
		return errors.New("SignIn ApplicationURL required unless DevicePolicy is BROWSER")
	}

	// URLs
	if c.URLs.BaseURL == "" {
		return errors.New("URLs BaseURL must be set")
	}
	if strings.HasSuffix(c.URLs.BaseURL, "/") {
		return errors.New("URLs BaseURL must not end with /")
	}
	if c.URLs.SubRoute != "" && !strings.HasPrefix(c.URLs.SubRoute, "/") {
		return errors.New("URLs SubRoute must start with /")
	}
	if c.SignIn.Production && c.URLs.TestMode {
		return errors.New("URLs TestMode is not allowed in production")
	}

	// Session
	if c.Session.SweepInterval <= 0 {
		return errors.New("Session SweepInterval must be > 0")
	}
	if c.Session.SweepInitialDelay < 0 {
		return errors.New("Session SweepInitialDelay must be >= 0")
	}

	// Password
	if c.Password.MinLength <= 0 {
		return errors.New("Password MinLength must be > 0")
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password MaxLength must be >= MinLength")
	}
	if c.Password.ChangeHintTTL < 0 {
		return errors.New("Password ChangeHintTTL must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}

// hasCaseFoldDuplicate reports whether two runes of s are equal under
// case folding, as answers are compared with strings.EqualFold.
func hasCaseFoldDuplicate(s string) bool {
	seen := make(map[rune]struct{}, len(s))
	for _, r := range s {
		folded := unicode.ToLower(unicode.ToUpper(r))
		if _, ok := seen[folded]; ok {
			return true
		}
		seen[folded] = struct{}{}
	}
	return false
}
