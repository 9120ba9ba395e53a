// Package routepath stores canonical HTTP paths for the web service.
package routepath

import (
	"net/url"
	"strings"
)

const (
	Root               = "/"
	Login              = "/login"
	Health             = "/healthz"
	Favicon            = "/favicon.ico"
	StaticPrefix       = "/static/"
	AuthAPIPrefix      = "/api/auth/"
	AuthRegisterBegin  = "/api/auth/register/begin"
	AuthRegisterFinish = "/api/auth/register/finish"
	AuthLoginBegin     = "/api/auth/login/begin"
	AuthLoginFinish    = "/api/auth/login/finish"
	AuthSession        = "/api/auth/session"
	AuthLogout         = "/api/auth/logout"
	NextParam          = "next"
	maxNextPathLength  = 2048
)

// LoginWithNext returns the login path carrying target as the post-login
// destination. The root path needs no next parameter.
func LoginWithNext(target string) string {
	if target == "" || target == Root {
		return Login
	}
	return Login + "?" + url.Values{NextParam: {target}}.Encode()
}

// SafeNext returns next when it is a same-site relative path and Root
// otherwise.
func SafeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || len(next) > maxNextPathLength {
		return Root
	}
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return Root
	}
	if strings.ContainsAny(next, "\r\n\t") {
		return Root
	}
	parsed, err := url.Parse(next)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" {
		return Root
	}
	return next
}
