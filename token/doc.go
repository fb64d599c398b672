// Package token implements expirable tokens: small immutable records (type, scope,
// ordered attributes, creation time, time to live) that are serialized to a
// delimited, escaped text form and sealed with a password-based cipher.
//
// # Wire form
//
// The plaintext is
//
//	created36 "/" ttl36 "/" TYPE "/" scope ( "/" key "/" value )*
//
// where created36 and ttl36 are base-36 integers (seconds) and every field is
// escaped so that "%" becomes "%25" and "/" becomes "%2F". The sealed envelope is
// then encoded with unpadded base64url, so the resulting string is safe to place in
// cookies, query strings and fragments without further escaping.
//
// # Expiry
//
// A token is expired when created+ttl <= now. [Encryptor.Decrypt] checks this right
// after reading the two time fields, so an expired token is reported as
// [ErrExpiredToken] even if the rest of the plaintext is damaged.
//
// # What this package must NOT do
//
//   - Store tokens; they are stateless bearer values.
//   - Perform I/O or block; encryption is delegated to a pure [Cipher].
package token
