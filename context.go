package goSSO

import (
	"context"

	"github.com/MrEthical07/goSSO/signin"
)

type clientIPContextKey struct{}
type hitsExceededContextKey struct{}
type deviceContextKey struct{}
type identityContextKey struct{}
type xsrfContextKey struct{}
type localeContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. Audit events and the
// per-IP counter read it back.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// ClientIPFromContext returns the IP set by [WithClientIP], or "".
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

// WithHitsExceeded records whether the caller's IP went over the hit limit.
// SignIn requires a solved CAPTCHA when it is set.
func WithHitsExceeded(ctx context.Context, exceeded bool) context.Context {
	return context.WithValue(ctx, hitsExceededContextKey{}, exceeded)
}

// HitsExceededFromContext returns the flag set by [WithHitsExceeded].
func HitsExceededFromContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(hitsExceededContextKey{}).(bool)
	return v
}

// WithDeviceInputType attaches the detected device type. It selects the
// sign-in response style.
func WithDeviceInputType(ctx context.Context, device signin.DeviceInputType) context.Context {
	return context.WithValue(ctx, deviceContextKey{}, device)
}

// DeviceInputTypeFromContext returns signin.Unknown when nothing was attached.
func DeviceInputTypeFromContext(ctx context.Context) signin.DeviceInputType {
	if ctx == nil {
		return signin.Unknown
	}
	d, _ := ctx.Value(deviceContextKey{}).(signin.DeviceInputType)
	return d
}

// WithIdentity attaches the authenticated identity to ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the authenticated identity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	if ctx == nil {
		return nil
	}
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}

// WithXSRFToken attaches the XSRF token minted for the current identity so
// handlers can render it into forms.
func WithXSRFToken(ctx context.Context, tok string) context.Context {
	return context.WithValue(ctx, xsrfContextKey{}, tok)
}

// XSRFTokenFromContext returns the token set by [WithXSRFToken], or "".
func XSRFTokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	tok, _ := ctx.Value(xsrfContextKey{}).(string)
	return tok
}

// WithLocale attaches the request language. SignIn stores it as the user's
// last used locale.
func WithLocale(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, localeContextKey{}, lang)
}

// LocaleFromContext returns the language set by [WithLocale], or "".
func LocaleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	lang, _ := ctx.Value(localeContextKey{}).(string)
	return lang
}
