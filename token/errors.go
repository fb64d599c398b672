package token

import "errors"

var (
	// ErrExpiredToken is returned when a token decrypted and parsed cleanly but its
	// lifetime has elapsed.
	ErrExpiredToken = errors.New("expired token")
	// ErrIllegalToken is returned when a token cannot be decrypted, parsed or has
	// the wrong type.
	ErrIllegalToken = errors.New("illegal token")
	// ErrEmptyAttributes is returned by Encrypt for a token without attributes.
	ErrEmptyAttributes = errors.New("token has no attributes")
	// ErrMissingAttribute is returned by typed accessors when the key is absent.
	ErrMissingAttribute = errors.New("token attribute missing")
	// ErrInvalidAttribute is returned by typed accessors when the value does not parse.
	ErrInvalidAttribute = errors.New("token attribute invalid")
)
