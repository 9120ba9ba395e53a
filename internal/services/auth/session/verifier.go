package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier checks session tokens with golang-jwt.
type Verifier struct {
	secret []byte
	clock  func() time.Time
}

// NewVerifier returns a verifier for tokens signed with secret.
func NewVerifier(secret []byte, clock func() time.Time) *Verifier {
	if clock == nil {
		clock = time.Now
	}
	return &Verifier{secret: append([]byte(nil), secret...), clock: clock}
}

// Verify reports whether token is a valid, unexpired session token.
func (v *Verifier) Verify(token string) (Claims, bool) {
	if v == nil || len(v.secret) == 0 || token == "" {
		return Claims{}, false
	}
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{Algorithm}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.clock),
	)
	if err != nil || parsed == nil || !parsed.Valid {
		return Claims{}, false
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return Claims{}, false
	}
	out := Claims{Subject: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, true
}
