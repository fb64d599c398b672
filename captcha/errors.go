package captcha

import "errors"

var (
	// ErrAlreadyUsedToken is returned for a token that has already been redeemed.
	ErrAlreadyUsedToken = errors.New("captcha token already used")
	// ErrInvalidTokenValue is returned when the answer does not match the challenge.
	ErrInvalidTokenValue = errors.New("captcha answer mismatch")
)
