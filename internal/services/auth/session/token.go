// Package session issues and verifies stateless session tokens.
//
// Token format, shared by every verifier in this package:
//
//   - JWS compact serialization: three base64url segments without padding,
//     joined by ".".
//   - Header {"alg":"HS256","typ":"JWT"}. Verifiers accept only alg HS256;
//     other header members are ignored.
//   - Claims {"sub": userID, "iat": seconds, "exp": seconds}. sub must be a
//     non-empty string and exp is required. Numeric dates may carry a
//     fraction and are truncated to whole seconds. nbf is honored when
//     present. iss, aud and jti must have their registered types when present.
//   - Signature is HMAC-SHA256(secret, segment0 + "." + segment1).
//   - A token is valid iff the signature matches and now < exp, with no leeway.
//
// Verifier implements the format with golang-jwt. EdgeVerifier implements the
// same rules with only the standard library for pre-routing checks.
package session

import "time"

const (
	// Algorithm is the only accepted JWS algorithm.
	Algorithm = "HS256"
	// DefaultLifetime is the session lifetime when none is configured.
	DefaultLifetime = 168 * time.Hour
)

// Claims is the verified content of a session token.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenVerifier checks a session token. Any failure yields false.
type TokenVerifier interface {
	Verify(token string) (Claims, bool)
}
