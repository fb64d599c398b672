// Package stores provides Redis-backed, short-lived markers used by the token
// flows.
//
// # Design
//
// [UsedTokenStore] remembers tokens that have already been redeemed, so that a
// CAPTCHA (or any other single-use token) cannot be replayed within its
// lifetime. Keys are derived from a SHA-256 of the token so that raw tokens are
// never written to Redis. Marking uses SET NX with the token's remaining TTL,
// which makes "first redeemer wins" atomic across instances.
//
// [PasswordChangeStore] keeps the previous password hash and the change time
// of a user's latest password restore, so a sign-in with the old password can
// be answered with a "password was changed" hint. Entries expire on their own.
//
// # Architecture boundaries
//
// This package owns persistence of the markers only. It does NOT decrypt
// tokens, compare answers or make authentication decisions.
//
// # What this package must NOT do
//
//   - Import goSSO or any sibling internal package.
//   - Store plaintext tokens or plaintext passwords.
package stores
