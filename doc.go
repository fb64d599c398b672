// Package goSSO is a single sign-on engine built on expirable, password-encrypted
// tokens. Every token the engine hands out (access, refresh, XSRF, CAPTCHA,
// email and sign-up verification, password restore) is a self-describing
// [token.ExpirableToken] sealed with AES under a PBKDF2-derived key, so a
// token can be checked without a storage round-trip.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goSSO is the public surface. It exposes [Engine], [Builder], [Config], the
// flow request/result types and the [UserRepository] and [SessionRepository]
// collaborators. Redis-backed counters and single-use markers live under
// internal/. HTTP filters live in middleware, Postgres repositories in
// storage/postgres.
//
// # What this package must NOT do
//
//   - Render pages or deliver email. Flows return encrypted tokens and
//     ready-made URLs; the caller mails and renders them.
//   - Import storage/postgres or middleware (both import goSSO).
//   - Perform I/O outside of Engine methods and the session sweeper.
//
// # Performance contract
//
// Authenticate is the hot path: one token decryption, no Redis round-trip.
// Sign-in, sign-up and restore flows perform a bounded number of repository
// and Redis calls.
package goSSO
