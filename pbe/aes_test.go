package pbe

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAES(t *testing.T, size KeySize) *AES {
	t.Helper()
	a, err := New(Config{Password: "Ch4ng3-Me", KeySize: size})
	require.NoError(t, err)
	return a
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func TestRoundTripAllKeySizes(t *testing.T) {
	sizes := []int{0, 1, 15, 16, 17, 511, 512, 513, 1024, 4099}

	for _, keySize := range []KeySize{KeySize128, KeySize192, KeySize256} {
		a := newTestAES(t, keySize)
		for _, n := range sizes {
			plain := randomBytes(t, n)

			envelope, err := a.Encrypt(plain)
			require.NoError(t, err, "key=%d len=%d", keySize, n)

			got, err := a.Decrypt(envelope)
			require.NoError(t, err, "key=%d len=%d", keySize, n)
			assert.True(t, bytes.Equal(plain, got), "key=%d len=%d: plaintext mismatch", keySize, n)
		}
	}
}

func TestStreamRoundTripWithSmallReads(t *testing.T) {
	a := newTestAES(t, KeySize256)
	plain := randomBytes(t, 3*bufferSize+7)

	var envelope bytes.Buffer
	require.NoError(t, a.EncryptStream(&envelope, io.LimitReader(bytes.NewReader(plain), int64(len(plain)))))

	var out bytes.Buffer
	require.NoError(t, a.DecryptStream(&out, &oneByteReader{r: bytes.NewReader(envelope.Bytes())}))
	assert.Equal(t, plain, out.Bytes())
}

func TestEnvelopeHeaderLayout(t *testing.T) {
	a := newTestAES(t, KeySize192)

	envelope, err := a.Encrypt([]byte("hello"))
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(envelope), headerSize+DefaultSaltLength+ivLength+16)
	assert.Equal(t, byte(3), envelope[0])
	assert.Equal(t, uint16(DefaultSaltLength), binary.BigEndian.Uint16(envelope[1:3]))
	assert.Equal(t, uint16(ivLength), binary.BigEndian.Uint16(envelope[3:5]))
	assert.Len(t, envelope, headerSize+DefaultSaltLength+ivLength+16)
}

func TestFreshSaltAndIVPerCall(t *testing.T) {
	a := newTestAES(t, KeySize128)
	plain := []byte("same plaintext every time")

	first, err := a.Encrypt(plain)
	require.NoError(t, err)
	second, err := a.Encrypt(plain)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestDecryptUsesMarkerKeySize(t *testing.T) {
	small := newTestAES(t, KeySize128)
	large := newTestAES(t, KeySize256)

	envelope, err := small.Encrypt([]byte("cross size"))
	require.NoError(t, err)

	got, err := large.Decrypt(envelope)
	require.NoError(t, err)
	assert.Equal(t, "cross size", string(got))
}

func TestDecryptMalformedInput(t *testing.T) {
	a := newTestAES(t, KeySize128)
	envelope, err := a.Encrypt([]byte("payload"))
	require.NoError(t, err)

	badMarker := append([]byte(nil), envelope...)
	badMarker[0] = 9

	badIV := append([]byte(nil), envelope...)
	binary.BigEndian.PutUint16(badIV[3:5], 8)

	cases := map[string][]byte{
		"empty":           nil,
		"short header":    envelope[:3],
		"truncated salt":  envelope[:headerSize+4],
		"no ciphertext":   envelope[:headerSize+DefaultSaltLength+ivLength],
		"partial block":   envelope[:len(envelope)-3],
		"unknown marker":  badMarker,
		"bad iv length":   badIV,
		"garbage trailer": append(append([]byte(nil), envelope...), 1, 2, 3),
	}

	for name, input := range cases {
		_, err := a.Decrypt(input)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, ErrDecryption), "%s: expected ErrDecryption, got %v", name, err)
	}
}

func TestDecryptWithWrongPasswordNeverYieldsPlaintext(t *testing.T) {
	a := newTestAES(t, KeySize128)
	other, err := New(Config{Password: "another-secret", KeySize: KeySize128})
	require.NoError(t, err)

	plain := []byte("attack at dawn")
	envelope, err := a.Encrypt(plain)
	require.NoError(t, err)

	got, err := other.Decrypt(envelope)
	if err == nil {
		assert.NotEqual(t, plain, got)
	} else {
		assert.ErrorIs(t, err, ErrDecryption)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	cases := map[string]Config{
		"empty password": {KeySize: KeySize128},
		"bad key size":   {Password: "x", KeySize: 100},
		"negative iter":  {Password: "x", Iterations: -1},
		"oversized salt": {Password: "x", SaltLength: 70000},
		"negative salt":  {Password: "x", SaltLength: -4},
	}
	for name, cfg := range cases {
		_, err := New(cfg)
		assert.Error(t, err, name)
	}

	a, err := New(Config{Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, KeySize128, a.KeySize())
	assert.Equal(t, DefaultIterations, a.iterations)
	assert.Equal(t, DefaultSaltLength, a.saltLength)
}

func TestConcurrentUse(t *testing.T) {
	a := newTestAES(t, KeySize256)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			plain := bytes.Repeat([]byte{byte(i)}, 100+i)
			envelope, err := a.Encrypt(plain)
			if err != nil {
				errs <- err
				return
			}
			got, err := a.Decrypt(envelope)
			if err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(got, plain) {
				errs <- errors.New("plaintext mismatch")
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent round trip failed: %v", err)
	}
}

type oneByteReader struct {
	r io.Reader
}

func (o *oneByteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return o.r.Read(p[:1])
}
