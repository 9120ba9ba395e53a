package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/louisbranch/daybook/internal/platform/errors"
)

// Issuer mints session tokens for verified users.
type Issuer struct {
	secret   []byte
	lifetime time.Duration
	clock    func() time.Time
}

// NewIssuer returns an issuer signing with secret. A non-positive lifetime
// uses DefaultLifetime and a nil clock uses time.Now.
func NewIssuer(secret []byte, lifetime time.Duration, clock func() time.Time) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, apperrors.New(apperrors.CodeConfiguration, "session secret is required")
	}
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	if clock == nil {
		clock = time.Now
	}
	return &Issuer{secret: append([]byte(nil), secret...), lifetime: lifetime, clock: clock}, nil
}

// Lifetime reports how long issued tokens stay valid.
func (i *Issuer) Lifetime() time.Duration {
	return i.lifetime
}

// Issue signs a token for userID and returns it with its expiry.
func (i *Issuer) Issue(userID string) (string, time.Time, error) {
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	now := i.clock().UTC()
	issuedAt := jwt.NewNumericDate(now)
	expiresAt := jwt.NewNumericDate(now.Add(i.lifetime))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt.Time, nil
}
