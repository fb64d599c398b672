package pbe

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"golang.org/x/crypto/pbkdf2"
)

// KeySize is an AES key size in bits.
type KeySize int

const (
	// KeySize128 selects AES-128.
	KeySize128 KeySize = 128
	// KeySize192 selects AES-192.
	KeySize192 KeySize = 192
	// KeySize256 selects AES-256.
	KeySize256 KeySize = 256
)

const (
	// DefaultIterations is the PBKDF2 iteration count used when Config.Iterations is zero.
	DefaultIterations = 1024
	// DefaultSaltLength is the salt size in bytes used when Config.SaltLength is zero.
	DefaultSaltLength = 16

	headerSize = 5
	bufferSize = 512
	ivLength   = aes.BlockSize
)

// Config configures an [AES] encryptor.
type Config struct {
	Password   string
	KeySize    KeySize
	Iterations int
	SaltLength int
}

// AES encrypts and decrypts envelopes with a password-derived AES key.
// It holds no mutable state and is safe for concurrent use.
type AES struct {
	password   []byte
	keySize    KeySize
	iterations int
	saltLength int
}

// New validates cfg, applies defaults for zero iteration count and salt length,
// and returns a ready encryptor.
func New(cfg Config) (*AES, error) {
	if cfg.Iterations == 0 {
		cfg.Iterations = DefaultIterations
	}
	if cfg.SaltLength == 0 {
		cfg.SaltLength = DefaultSaltLength
	}
	if cfg.KeySize == 0 {
		cfg.KeySize = KeySize128
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return &AES{
		password:   []byte(cfg.Password),
		keySize:    cfg.KeySize,
		iterations: cfg.Iterations,
		saltLength: cfg.SaltLength,
	}, nil
}

func validateConfig(cfg Config) error {
	if cfg.Password == "" {
		return errors.New("pbe: password must not be empty")
	}
	if !cfg.KeySize.valid() {
		return errors.New("pbe: key size must be 128, 192 or 256 bits")
	}
	if cfg.Iterations < 1 {
		return errors.New("pbe: iterations must be > 0")
	}
	if cfg.SaltLength < 1 || cfg.SaltLength > math.MaxUint16 {
		return errors.New("pbe: salt length must be between 1 and 65535")
	}
	return nil
}

func (k KeySize) valid() bool {
	switch k {
	case KeySize128, KeySize192, KeySize256:
		return true
	default:
		return false
	}
}

func (k KeySize) marker() byte {
	return byte(k >> 6)
}

func keySizeFromMarker(m byte) (KeySize, bool) {
	k := KeySize(int(m) << 6)
	return k, k.valid()
}

// KeySize reports the key size used for new envelopes.
func (a *AES) KeySize() KeySize {
	return a.keySize
}

// Encrypt returns the envelope for plain.
func (a *AES) Encrypt(plain []byte) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(headerSize + a.saltLength + ivLength + len(plain) + aes.BlockSize)
	if err := a.EncryptStream(&out, bytes.NewReader(plain)); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Decrypt opens an envelope produced by Encrypt or EncryptStream.
func (a *AES) Decrypt(envelope []byte) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(len(envelope))
	if err := a.DecryptStream(&out, bytes.NewReader(envelope)); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// EncryptStream reads src until EOF and writes the envelope to dst.
// A fresh salt and IV are drawn for every call.
func (a *AES) EncryptStream(dst io.Writer, src io.Reader) error {
	salt := make([]byte, a.saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("%w: salt: %v", ErrEncryption, err)
	}
	iv := make([]byte, ivLength)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return fmt.Errorf("%w: iv: %v", ErrEncryption, err)
	}

	block, err := aes.NewCipher(a.deriveKey(salt, a.keySize))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncryption, err)
	}

	header := make([]byte, headerSize, headerSize+len(salt)+len(iv))
	header[0] = a.keySize.marker()
	binary.BigEndian.PutUint16(header[1:3], uint16(len(salt)))
	binary.BigEndian.PutUint16(header[3:5], uint16(len(iv)))
	header = append(header, salt...)
	header = append(header, iv...)
	if _, err := dst.Write(header); err != nil {
		return fmt.Errorf("%w: %v", ErrEncryption, err)
	}

	mode := cipher.NewCBCEncrypter(block, iv)
	buf := make([]byte, bufferSize)
	pending := make([]byte, 0, bufferSize+aes.BlockSize)

	for {
		n, readErr := src.Read(buf)
		pending = append(pending, buf[:n]...)

		full := len(pending) - len(pending)%aes.BlockSize
		if full > 0 {
			mode.CryptBlocks(pending[:full], pending[:full])
			if _, err := dst.Write(pending[:full]); err != nil {
				return fmt.Errorf("%w: %v", ErrEncryption, err)
			}
			pending = append(pending[:0], pending[full:]...)
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("%w: %v", ErrEncryption, readErr)
		}
	}

	pad := aes.BlockSize - len(pending)
	for i := 0; i < pad; i++ {
		pending = append(pending, byte(pad))
	}
	mode.CryptBlocks(pending, pending)
	if _, err := dst.Write(pending); err != nil {
		return fmt.Errorf("%w: %v", ErrEncryption, err)
	}

	return nil
}

// DecryptStream reads an envelope from src and writes the plaintext to dst.
// On error dst may already hold a prefix of the plaintext.
func (a *AES) DecryptStream(dst io.Writer, src io.Reader) error {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(src, header); err != nil {
		return fmt.Errorf("%w: header: %v", ErrDecryption, err)
	}

	keySize, ok := keySizeFromMarker(header[0])
	if !ok {
		return fmt.Errorf("%w: unknown key size marker %d", ErrDecryption, header[0])
	}
	saltLen := int(binary.BigEndian.Uint16(header[1:3]))
	ivLen := int(binary.BigEndian.Uint16(header[3:5]))
	if saltLen == 0 {
		return fmt.Errorf("%w: empty salt", ErrDecryption)
	}
	if ivLen != ivLength {
		return fmt.Errorf("%w: iv length %d", ErrDecryption, ivLen)
	}

	saltAndIV := make([]byte, saltLen+ivLen)
	if _, err := io.ReadFull(src, saltAndIV); err != nil {
		return fmt.Errorf("%w: salt/iv: %v", ErrDecryption, err)
	}
	salt, iv := saltAndIV[:saltLen], saltAndIV[saltLen:]

	block, err := aes.NewCipher(a.deriveKey(salt, keySize))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	mode := cipher.NewCBCDecrypter(block, iv)

	buf := make([]byte, bufferSize)
	pending := make([]byte, 0, bufferSize+aes.BlockSize)

	for {
		n, readErr := src.Read(buf)
		pending = append(pending, buf[:n]...)

		// The last block carries the padding, so it is held back until EOF.
		if len(pending) > 0 {
			ready := ((len(pending) - 1) / aes.BlockSize) * aes.BlockSize
			if ready > 0 {
				mode.CryptBlocks(pending[:ready], pending[:ready])
				if _, err := dst.Write(pending[:ready]); err != nil {
					return fmt.Errorf("%w: %v", ErrDecryption, err)
				}
				pending = append(pending[:0], pending[ready:]...)
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("%w: %v", ErrDecryption, readErr)
		}
	}

	if len(pending) != aes.BlockSize {
		return fmt.Errorf("%w: ciphertext is not a whole number of blocks", ErrDecryption)
	}
	mode.CryptBlocks(pending, pending)

	plain, err := unpad(pending)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	if _, err := dst.Write(plain); err != nil {
		return fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	return nil
}

func (a *AES) deriveKey(salt []byte, keySize KeySize) []byte {
	return pbkdf2.Key(a.password, salt, a.iterations, int(keySize)/8, sha1.New)
}

func unpad(block []byte) ([]byte, error) {
	pad := int(block[len(block)-1])
	if pad == 0 || pad > aes.BlockSize {
		return nil, errors.New("bad padding")
	}
	for _, b := range block[len(block)-pad:] {
		if int(b) != pad {
			return nil, errors.New("bad padding")
		}
	}
	return block[:len(block)-pad], nil
}
