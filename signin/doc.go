// Package signin decides how a freshly authenticated user receives an access
// token and builds the redirect that delivers it.
//
// # Delivery
//
// [Decide] maps the requesting device and the configured [DeviceAuthPolicy] to a
// [Style]:
//
//	device       BROWSER   APPLICATION   AUTO
//	POINTER      browser   application   browser
//	TOUCHSCREEN  browser   application   application
//	UNKNOWN      browser   application   application
//
// Browser style hands the token to the continue URL, either as an HTTP-only
// cookie or appended to the URL. Application style always appends it to the
// configured application URL.
//
// All URLs are built with [Escape], a percent escaper that keeps only
// [A-Za-z0-9] and "-_.*" and encodes space as %20.
//
// # What this package must NOT do
//
//   - Authenticate users or look them up; callers pass a [Principal].
//   - Retry token minting. Minting failures are server errors.
package signin
