package goSSO

import "time"

// SecurityReport is the output of [Engine.SecurityReport].
type SecurityReport struct {
	ProductionMode        bool
	TestMode              bool
	TokenKeySize          int
	TokenIterations       int
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	UnconfirmedRefreshTTL time.Duration
	ProbationEnforced     bool
	DevicePolicy          string
	BrowserAppend         string
	ContinueURLAllowList  int
	Argon2                PasswordConfigReport
	IPHitLimit            int64
	AttemptLimit          int64
	AuditEnabled          bool
}

// PasswordConfigReport lists the argon2id parameters and length rule in use.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
	MaxLength   int
}

// SecurityReport summarizes the security-relevant configuration. It never
// includes the encryption password.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		ProductionMode:        e.config.SignIn.Production,
		TestMode:              e.config.URLs.TestMode,
		TokenKeySize:          e.config.Token.KeySize,
		TokenIterations:       e.config.Token.Iterations,
		AccessTTL:             e.config.Token.AccessTTL,
		RefreshTTL:            e.config.Token.RefreshTTL,
		UnconfirmedRefreshTTL: e.config.Token.UnconfirmedRefreshTTL,
		ProbationEnforced:     !e.config.Session.DisableProbation,
		DevicePolicy:          e.config.SignIn.DevicePolicy.String(),
		BrowserAppend:         e.config.SignIn.BrowserAppend.String(),
		ContinueURLAllowList:  len(e.config.URLs.AllowedContinueURLs),
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
			MinLength:   e.config.Password.MinLength,
			MaxLength:   e.config.Password.MaxLength,
		},
		IPHitLimit:   e.config.Counters.IPLimit,
		AttemptLimit: e.config.Counters.GenericLimit,
		AuditEnabled: e.config.Audit.Enabled,
	}
}
