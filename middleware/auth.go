package middleware

import (
	"net/http"
	"strings"

	goSSO "github.com/MrEthical07/goSSO"
	"github.com/MrEthical07/goSSO/signin"
)

// Authenticate reads the access token, attaches the identity and a fresh XSRF
// token to the request context, and always calls next. Requests without a
// valid token continue unauthenticated; gate routes with
// [RequireAuthenticated] or [RequireAdmin].
//
// The token is taken from, in order: the Authorization bearer header, the
// cookie (BROWSER and AUTO policies) and the query parameter (APPLICATION
// and AUTO policies).
func Authenticate(engine *goSSO.Engine) Middleware {
	cfg := engine.Responses().Config()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accessToken, ok := requestToken(r, cfg)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			id, err := engine.Authenticate(ctx, accessToken)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx = goSSO.WithIdentity(ctx, id)
			if xsrf, err := engine.NewXSRFToken(ctx, id.UserID); err == nil {
				ctx = goSSO.WithXSRFToken(ctx, xsrf)
			} else {
				engine.Logger().ErrorContext(ctx, "xsrf token not minted", "user_id", id.UserID, "error", err)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestToken(r *http.Request, cfg signin.Config) (string, bool) {
	if tok, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return tok, true
	}
	if cfg.DevicePolicy != signin.PolicyApplication {
		if c, err := r.Cookie(cfg.CookieName); err == nil && c.Value != "" {
			return c.Value, true
		}
	}
	if cfg.DevicePolicy != signin.PolicyBrowser {
		if tok := r.URL.Query().Get(cfg.ParameterName); tok != "" {
			return tok, true
		}
	}
	return "", false
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

// RequireAuthenticated redirects anonymous callers to the sign-in page,
// continuing to the requested URL afterwards.
func RequireAuthenticated(engine *goSSO.Engine) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if goSSO.IdentityFromContext(r.Context()) == nil {
				redirectToSignIn(engine, w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUnauthenticated sends signed-in callers to their continue URL, or the
// base URL. It guards the sign-in and sign-up pages.
func RequireUnauthenticated(engine *goSSO.Engine) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if goSSO.IdentityFromContext(r.Context()) != nil {
				target := engine.URLs().ContinueURL(r.URL.Query().Get(signin.ParamContinue))
				http.Redirect(w, r, target, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin lets ADMIN callers through. Anonymous callers are sent to
// sign-in; other roles to the base URL.
func RequireAdmin(engine *goSSO.Engine) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := goSSO.IdentityFromContext(r.Context())
			switch {
			case id == nil:
				redirectToSignIn(engine, w, r)
			case !id.IsAdmin():
				http.Redirect(w, r, engine.URLs().BaseURL(), http.StatusFound)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func redirectToSignIn(engine *goSSO.Engine, w http.ResponseWriter, r *http.Request) {
	urls := engine.URLs()
	current := urls.BaseURL() + r.URL.RequestURI()
	target := urls.SignInURL(goSSO.LocaleFromContext(r.Context()), current, signin.StateNone)
	http.Redirect(w, r, target, http.StatusFound)
}
