package internal

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"unicode/utf8"
)

var (
	errEmptyAlphabet   = errors.New("empty alphabet")
	errInvalidLength   = errors.New("invalid random text length")
	errInvalidCodeSize = errors.New("invalid verification code digits")
)

// RandomText returns n runes drawn uniformly from alphabet using crypto/rand.
func RandomText(alphabet string, n int) (string, error) {
	if alphabet == "" {
		return "", errEmptyAlphabet
	}
	if n <= 0 {
		return "", errInvalidLength
	}

	runes := []rune(alphabet)
	max := big.NewInt(int64(len(runes)))

	var b strings.Builder
	b.Grow(n * utf8.UTFMax)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteRune(runes[idx.Int64()])
	}
	return b.String(), nil
}

// NewVerificationCode returns a numeric code of the given number of digits.
// Leading zeros are kept.
func NewVerificationCode(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errInvalidCodeSize
	}
	return RandomText("0123456789", digits)
}
