package token

// Type identifies what a token may be used for.
type Type uint8

const (
	// Access tokens prove an authenticated identity.
	Access Type = iota + 1
	// Refresh tokens mint new access tokens.
	Refresh
	// XSRF tokens bind a state-changing form post to a rendered page.
	XSRF
	// Captcha tokens carry a challenge text.
	Captcha
	// EmailVerification tokens are sent by email to confirm an address.
	EmailVerification
	// SignUpVerification tokens guard the code-entry page after sign-up.
	SignUpVerification
	// ConfirmPasswordChange tokens authorize a password restore.
	ConfirmPasswordChange
	// Custom tokens are free for application use.
	Custom
	// Auth tokens are free for application use by authentication adapters.
	Auth
)

var typeNames = [...]string{
	Access:                "ACCESS",
	Refresh:               "REFRESH",
	XSRF:                  "XSRF",
	Captcha:               "CAPTCHA",
	EmailVerification:     "EMAIL_VERIFICATION",
	SignUpVerification:    "SIGNUP_VERIFICATION",
	ConfirmPasswordChange: "CONFIRM_PASSWORD_CHANGE",
	Custom:                "CUSTOM",
	Auth:                  "AUTH",
}

// String returns the wire literal of t, or "" for an unknown type.
func (t Type) String() string {
	if int(t) >= len(typeNames) {
		return ""
	}
	return typeNames[t]
}

// Valid reports whether t is one of the declared types.
func (t Type) Valid() bool {
	return t.String() != ""
}

// ParseType maps a wire literal back to its Type.
func ParseType(s string) (Type, bool) {
	for i, name := range typeNames {
		if name != "" && name == s {
			return Type(i), true
		}
	}
	return 0, false
}
