package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/goAuthClient/guard"
)

// Decider picks the view for the current moment. *guard.Guard implements it.
type Decider interface {
	DecideWithReason(ctx context.Context) (guard.View, error)
}

// PermissionChecker reports cached session permissions.
type PermissionChecker interface {
	HasPermission(p string) bool
}

// Handlers are the three trees a guarded route can render.
type Handlers struct {
	Loading   http.Handler
	Public    http.Handler
	Protected http.Handler
}

type viewContextKey struct{}

// ViewFromContext returns the view chosen for the request by Guard or
// RequireAuthenticated.
func ViewFromContext(ctx context.Context) (guard.View, bool) {
	v, ok := ctx.Value(viewContextKey{}).(guard.View)
	return v, ok
}

// Guard serves exactly one of h's handlers per request. A nil Loading handler
// answers 503 with Retry-After. A nil Public handler answers 401.
func Guard(d Decider, h Handlers) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		view, _ := d.DecideWithReason(r.Context())
		r = r.WithContext(context.WithValue(r.Context(), viewContextKey{}, view))

		switch view {
		case guard.ViewProtected:
			serveOr(w, r, h.Protected, http.StatusNotFound)
		case guard.ViewPublic:
			serveOr(w, r, h.Public, http.StatusUnauthorized)
		default:
			if h.Loading == nil {
				w.Header().Set("Retry-After", "1")
			}
			serveOr(w, r, h.Loading, http.StatusServiceUnavailable)
		}
	})
}

// RequireAuthenticated serves next only for the protected view. Public
// visitors are redirected to loginURL.
func RequireAuthenticated(d Decider, loginURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return Guard(d, Handlers{
			Protected: next,
			Public: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, loginURL, http.StatusSeeOther)
			}),
		})
	}
}

// RequirePermission answers 403 unless checker grants p.
func RequirePermission(checker PermissionChecker, p string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if checker == nil || !checker.HasPermission(p) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func serveOr(w http.ResponseWriter, r *http.Request, h http.Handler, status int) {
	if h == nil {
		http.Error(w, http.StatusText(status), status)
		return
	}
	h.ServeHTTP(w, r)
}
