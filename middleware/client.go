package middleware

import (
	"net"
	"net/http"
	"strings"

	goSSO "github.com/MrEthical07/goSSO"
	"github.com/MrEthical07/goSSO/signin"
	"github.com/mssola/useragent"
)

const (
	headerRealIP = "X-Real-IP"
	defaultIP    = "::1"
)

// ClientIP stores the caller address in the request context. X-Real-IP is
// honoured only when the connection comes from a loopback reverse proxy.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		next.ServeHTTP(w, r.WithContext(goSSO.WithClientIP(r.Context(), ip)))
	})
}

func clientIP(r *http.Request) string {
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}

	if isLoopback(remote) {
		if real := strings.TrimSpace(r.Header.Get(headerRealIP)); real != "" {
			return real
		}
	}
	if remote == "" {
		return defaultIP
	}
	return remote
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// HitsPerIP counts the request against the caller's address and records
// whether the limit is exceeded. Counter failures are logged and the request
// proceeds as not exceeded.
func HitsPerIP(engine *goSSO.Engine) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			exceeded, err := engine.CountHit(ctx, goSSO.ClientIPFromContext(ctx))
			if err != nil {
				engine.Logger().ErrorContext(ctx, "hit counter unavailable", "error", err)
			}
			next.ServeHTTP(w, r.WithContext(goSSO.WithHitsExceeded(ctx, exceeded)))
		})
	}
}

// DeviceType classifies the User-Agent. Mobile agents are touchscreens,
// desktop agents are pointers, and bots or unknown agents stay Unknown.
func DeviceType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		device := deviceInputType(r.UserAgent())
		next.ServeHTTP(w, r.WithContext(goSSO.WithDeviceInputType(r.Context(), device)))
	})
}

func deviceInputType(ua string) signin.DeviceInputType {
	if strings.TrimSpace(ua) == "" {
		return signin.Unknown
	}
	parsed := useragent.New(ua)
	switch {
	case parsed.Bot():
		return signin.Unknown
	case parsed.Mobile():
		return signin.Touchscreen
	case parsed.OS() != "":
		return signin.Pointer
	default:
		return signin.Unknown
	}
}

// Language stores the page locale from the "lang" query parameter. Values
// outside supported fall back to the first supported language, or "en".
func Language(supported ...string) Middleware {
	def := "en"
	if len(supported) > 0 {
		def = supported[0]
	}
	allowed := make(map[string]struct{}, len(supported))
	for _, l := range supported {
		allowed[l] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(signin.ParamLang)))
			if _, ok := allowed[lang]; !ok {
				lang = def
			}
			next.ServeHTTP(w, r.WithContext(goSSO.WithLocale(r.Context(), lang)))
		})
	}
}
