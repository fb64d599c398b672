// Package internal holds helpers shared by goSSO packages: uniform random
// text for CAPTCHA challenges and verification codes, and token hashing for
// storage keys.
//
// # Sub-packages
//
//   - limiters: Redis fixed-window hit counters (per IP and generic keys)
//   - stores: Redis markers for redeemed single-use tokens
package internal
