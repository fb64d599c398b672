package password

import "errors"

var (
	// ErrEmptyPassword is returned when hashing an empty password.
	ErrEmptyPassword = errors.New("password is empty")
	// ErrPasswordTooLong is returned when a password exceeds Config.MaxPasswordBytes.
	ErrPasswordTooLong = errors.New("password is too long")
	// ErrInvalidHash is returned for stored hashes that are not argon2id PHC strings
	// this package can verify.
	ErrInvalidHash = errors.New("invalid password hash")
	// ErrInvalidConfig is returned by NewArgon2 for unusable parameters.
	ErrInvalidConfig = errors.New("invalid password hasher config")
)
