package pbe

import "errors"

var (
	// ErrEncryption wraps any failure while producing an envelope.
	ErrEncryption = errors.New("pbe: encryption failed")
	// ErrDecryption wraps any failure while opening an envelope, including a
	// malformed header, truncated input, bad padding or a wrong password.
	ErrDecryption = errors.New("pbe: decryption failed")
)
