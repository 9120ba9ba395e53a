// Package ceremony runs WebAuthn registration and authentication ceremonies.
//
// Each ceremony is two calls. Begin stores a single pending challenge for the
// user and returns options for the browser. Complete consumes that challenge
// before any verification runs, so a challenge answers at most one attempt.
package ceremony
