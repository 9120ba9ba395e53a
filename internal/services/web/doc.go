// Package web owns the browser-facing HTTP boundary: the JSON passkey
// ceremony API, the session endpoints, and the login entry point.
//
// Every request first passes the request gate; handlers here only see
// public paths or navigations that already carry a verified session.
package web
