package middleware

import (
	"net/http"
	"net/url"

	goSSO "github.com/MrEthical07/goSSO"
)

const (
	// XSRFField is the form field carrying the XSRF token.
	XSRFField = "xsrfToken"
	// InvalidXSRFParam is added to the redirect after a rejected form post.
	InvalidXSRFParam = "invalidXsrfToken"
)

// XSRF checks state-changing requests from authenticated callers. A missing
// or foreign token redirects back to the same URL with invalidXsrfToken=true.
// Safe methods and anonymous requests pass through.
func XSRF(engine *goSSO.Engine) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := goSSO.IdentityFromContext(r.Context())
			if id == nil || isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			if err := engine.VerifyXSRFToken(r.Context(), r.FormValue(XSRFField), id.UserID); err != nil {
				engine.Logger().InfoContext(r.Context(), "xsrf check failed",
					"user_id", id.UserID, "path", r.URL.Path, "error", err)
				http.Redirect(w, r, invalidXSRFRedirect(r.URL), http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

func invalidXSRFRedirect(u *url.URL) string {
	target := *u
	q := target.Query()
	q.Set(InvalidXSRFParam, "true")
	target.RawQuery = q.Encode()
	return target.RequestURI()
}
