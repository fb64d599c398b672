// Package limiters provides the Redis-backed abuse counters used to decide when a
// request must solve a CAPTCHA or when a verification token has been tried too often.
//
// # Counters
//
//   - [NewIPCounter] counts requests per client IP (scope "ip_", 30 s window, 5 safe hits).
//   - [NewGenericCounter] counts attempts per arbitrary key, typically a sign-up
//     verification token (scope "generic_", 1 h window, 5 safe hits).
//
// Windows are fixed: the TTL is set on the first hit and never extended. A counter
// is exceeded once its value reaches the configured limit.
//
// All counters are nil-safe: calling any method on a nil receiver reports
// "not exceeded" and returns nil.
//
// # What this package must NOT do
//
//   - Import goSSO or any sibling internal package.
//   - Make policy decisions beyond counting; callers decide consequences.
package limiters
