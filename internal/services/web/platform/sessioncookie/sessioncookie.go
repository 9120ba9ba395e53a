// Package sessioncookie centralizes web session cookie behavior.
package sessioncookie

import (
	"net/http"
	"strings"
	"time"
)

// Name is the canonical web session cookie name.
const Name = "daybook_session"

// Policy controls cookie attributes that depend on deployment.
type Policy struct {
	// Secure marks the cookie HTTPS-only. Every environment except local sets it.
	Secure bool
	// MaxAge matches the session token lifetime.
	MaxAge time.Duration
}

// Read returns the trimmed session cookie value when present.
func Read(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(Name)
	if err != nil || cookie == nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	if value == "" {
		return "", false
	}
	return value, true
}

// Write sets the session cookie carrying token.
func Write(w http.ResponseWriter, token string, policy Policy) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     Name,
		Value:    strings.TrimSpace(token),
		Path:     "/",
		MaxAge:   int(policy.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   policy.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear overwrites the session cookie with an expired empty value.
func Clear(w http.ResponseWriter, policy Policy) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   policy.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
