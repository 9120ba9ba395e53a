// Package gate guards every route before the router sees the request.
//
// The gate runs on each navigation, so it only checks the session token
// signature and expiry with the restricted-context verifier. It never reads
// storage.
package gate

import (
	"net/http"
	"strings"

	"github.com/louisbranch/daybook/internal/platform/requestctx"
	"github.com/louisbranch/daybook/internal/services/auth/session"
	"github.com/louisbranch/daybook/internal/services/web/platform/httpx"
	"github.com/louisbranch/daybook/internal/services/web/platform/sessioncookie"
	"github.com/louisbranch/daybook/internal/services/web/routepath"
)

// Class is the gate's view of a request path.
type Class int

const (
	// ClassProtected paths need a valid session.
	ClassProtected Class = iota
	// ClassLogin is the login entry point.
	ClassLogin
	// ClassPublic paths pass without any verification work.
	ClassPublic
)

var (
	publicPrefixes = []string{routepath.StaticPrefix, routepath.AuthAPIPrefix}
	publicExact    = map[string]struct{}{
		routepath.Health:  {},
		routepath.Favicon: {},
	}
)

// Classify returns the gate class for a request path.
func Classify(path string) Class {
	if path == routepath.Login {
		return ClassLogin
	}
	if _, ok := publicExact[path]; ok {
		return ClassPublic
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return ClassPublic
		}
	}
	return ClassProtected
}

// Gate redirects unauthenticated navigations to the login entry point.
type Gate struct {
	verifier session.TokenVerifier
}

// New returns a gate backed by the restricted-context verifier.
func New(verifier *session.EdgeVerifier) *Gate {
	return &Gate{verifier: verifier}
}

// Middleware returns the gate as an httpx middleware.
func (g *Gate) Middleware() httpx.Middleware {
	return g.Wrap
}

// Wrap guards next.
func (g *Gate) Wrap(next http.Handler) http.Handler {
	if next == nil {
		next = http.NotFoundHandler()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch Classify(r.URL.Path) {
		case ClassPublic:
			next.ServeHTTP(w, r)
		case ClassLogin:
			if _, ok := g.verify(r); ok {
				httpx.WriteRedirect(w, r, routepath.Root)
				return
			}
			next.ServeHTTP(w, r)
		default:
			claims, ok := g.verify(r)
			if !ok {
				httpx.WriteRedirect(w, r, routepath.LoginWithNext(requestTarget(r)))
				return
			}
			ctx := requestctx.WithUserID(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	})
}

func (g *Gate) verify(r *http.Request) (session.Claims, bool) {
	if g == nil || g.verifier == nil {
		return session.Claims{}, false
	}
	token, ok := sessioncookie.Read(r)
	if !ok {
		return session.Claims{}, false
	}
	return g.verifier.Verify(token)
}

// requestTarget is the path and query to return to after login. The root
// page is never carried, with or without a query.
func requestTarget(r *http.Request) string {
	target := r.URL.EscapedPath()
	if target == "" || target == routepath.Root {
		return routepath.Root
	}
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	return target
}
