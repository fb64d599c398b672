package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const sessionFormatVersionCurrent = 1

// ErrSessionCorrupt is returned for blobs that cannot be decoded.
var ErrSessionCorrupt = errors.New("session blob corrupt")

// Encode serializes s into the versioned binary session format.
func Encode(s *AuthSession) ([]byte, error) {
	if len(s.AccessToken) > math.MaxUint16 {
		return nil, errors.New("access token too long")
	}
	if len(s.RefreshToken) > math.MaxUint16 {
		return nil, errors.New("refresh token too long")
	}

	var buf bytes.Buffer
	buf.Grow(1 + 2 + len(s.AccessToken) + 2 + len(s.RefreshToken) + 16)

	buf.WriteByte(sessionFormatVersionCurrent)

	var n [2]byte
	binary.BigEndian.PutUint16(n[:], uint16(len(s.AccessToken)))
	buf.Write(n[:])
	buf.WriteString(s.AccessToken)

	binary.BigEndian.PutUint16(n[:], uint16(len(s.RefreshToken)))
	buf.Write(n[:])
	buf.WriteString(s.RefreshToken)

	if err := binary.Write(&buf, binary.BigEndian, s.UserID); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.Created); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a blob written by [Encode].
func Decode(data []byte) (*AuthSession, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	if version != sessionFormatVersionCurrent {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrSessionCorrupt, version)
	}

	s := &AuthSession{}

	access, err := readString16(reader)
	if err != nil {
		return nil, err
	}
	s.AccessToken = access

	refresh, err := readString16(reader)
	if err != nil {
		return nil, err
	}
	s.RefreshToken = refresh

	if err := binary.Read(reader, binary.BigEndian, &s.UserID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	if err := binary.Read(reader, binary.BigEndian, &s.Created); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	if reader.Len() != 0 {
		return nil, fmt.Errorf("%w: trailing bytes", ErrSessionCorrupt)
	}

	return s, nil
}

func readString16(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	if int(n) > r.Len() {
		return "", fmt.Errorf("%w: length %d exceeds remaining %d", ErrSessionCorrupt, n, r.Len())
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	return string(b), nil
}
