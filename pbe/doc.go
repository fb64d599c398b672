// Package pbe implements password-based symmetric encryption: a key derived with
// PBKDF2-HMAC-SHA1 from a static password and a per-message random salt, and AES-CBC
// with PKCS#7 padding under a per-message random IV.
//
// # Envelope format
//
//	+--------+-----------+---------+------+----+------------+
//	| marker | saltLen   | ivLen   | salt | iv | ciphertext |
//	| 1 byte | u16 (BE)  | u16(BE) |      |    |            |
//	+--------+-----------+---------+------+----+------------+
//
// The marker is the key size in bits shifted right by six (2, 3 or 4 for
// AES-128, AES-192 and AES-256). Decryption derives the key size from the marker, so
// an [AES] configured for 256-bit keys still opens envelopes written with 128-bit keys
// under the same password.
//
// # Architecture boundaries
//
// This package owns byte-level encryption only. Token serialization lives in the
// token package, which consumes [AES] through a two-method interface.
//
// # What this package must NOT do
//
//   - Keep mutable state between calls; every call derives its own key material.
//   - Perform I/O other than on the reader and writer it is handed.
//   - Import any other goSSO package.
package pbe
