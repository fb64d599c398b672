package middleware

import (
	"net/http"

	goSSO "github.com/MrEthical07/goSSO"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies the standard filter order: ClientIP, HitsPerIP, DeviceType,
// Language and Authenticate. The first supported language is the default.
func Chain(engine *goSSO.Engine, languages ...string) Middleware {
	filters := []Middleware{
		ClientIP,
		HitsPerIP(engine),
		DeviceType,
		Language(languages...),
		Authenticate(engine),
	}
	return func(next http.Handler) http.Handler {
		for i := len(filters) - 1; i >= 0; i-- {
			next = filters[i](next)
		}
		return next
	}
}
