// Package session provides the [AuthSession] model, its compact binary encoding
// and a Redis-backed [Store].
//
// # Binary encoding
//
// Sessions are stored as: version byte, u16 BE access token length, access
// token, u16 BE refresh token length, refresh token, i64 BE user ID, i64 BE
// creation time (Unix seconds). The encoder is append-only: new versions add
// fields but never reinterpret old ones.
//
// # Redis layout
//
//	<prefix>s:<sha256(access token)>  session blob, TTL = refresh lifetime
//	<prefix>created                   ZSET of session key hashes scored by creation time
//
// The creation index lets [Store.DeleteCreatedBefore] drain old sessions without
// scanning the keyspace.
//
// # Architecture boundaries
//
// This package owns persistence of sessions. It does NOT mint or decrypt tokens
// and does NOT decide when a session is stale; the Engine passes the cutoff.
//
// # What this package must NOT do
//
//   - Import goSSO or token (no upward imports).
//   - Use raw tokens as Redis keys.
package session
