// Package middleware exposes the HTTP filters that sit in front of the
// goSSO flows.
//
// # Filters
//
//   - [ClientIP] resolves the caller address.
//   - [HitsPerIP] counts requests per address and flags callers that must
//     solve a CAPTCHA.
//   - [DeviceType] classifies the User-Agent as pointer or touchscreen.
//   - [Language] selects the page locale.
//   - [Authenticate] reads the access token and attaches the identity and a
//     fresh XSRF token to the request context.
//   - [XSRF] checks the XSRF form field on state-changing requests.
//   - [RequireAuthenticated], [RequireUnauthenticated] and [RequireAdmin]
//     gate routes.
//
// [Chain] applies the standard order.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does not open
// tokens or touch Redis itself; every decision is delegated to goSSO.Engine.
package middleware
