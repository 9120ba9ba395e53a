package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"math"
	"strings"
	"time"
)

// EdgeVerifier checks session tokens using only the standard library. It
// runs before routing and never touches storage.
type EdgeVerifier struct {
	secret []byte
	clock  func() time.Time
}

// NewEdgeVerifier returns an edge verifier for tokens signed with secret.
func NewEdgeVerifier(secret []byte, clock func() time.Time) *EdgeVerifier {
	if clock == nil {
		clock = time.Now
	}
	return &EdgeVerifier{secret: append([]byte(nil), secret...), clock: clock}
}

// edgeClaims mirrors the registered claim set so that type checks on every
// registered member match the full verifier.
type edgeClaims struct {
	Issuer    string          `json:"iss"`
	Subject   string          `json:"sub"`
	Audience  json.RawMessage `json:"aud"`
	ExpiresAt json.Number     `json:"exp"`
	NotBefore json.Number     `json:"nbf"`
	IssuedAt  json.Number     `json:"iat"`
	ID        string          `json:"jti"`
}

// Verify reports whether token is a valid, unexpired session token.
func (v *EdgeVerifier) Verify(token string) (Claims, bool) {
	if v == nil || len(v.secret) == 0 || token == "" {
		return Claims{}, false
	}
	headerSeg, rest, ok := strings.Cut(token, ".")
	if !ok {
		return Claims{}, false
	}
	claimsSeg, signatureSeg, ok := strings.Cut(rest, ".")
	if !ok || strings.Contains(signatureSeg, ".") {
		return Claims{}, false
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(headerSeg)
	if err != nil {
		return Claims{}, false
	}
	var header map[string]any
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return Claims{}, false
	}
	if alg, ok := header["alg"].(string); !ok || alg != Algorithm {
		return Claims{}, false
	}

	claimsJSON, err := base64.RawURLEncoding.DecodeString(claimsSeg)
	if err != nil {
		return Claims{}, false
	}
	var claims edgeClaims
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		return Claims{}, false
	}
	if !validAudience(claims.Audience) {
		return Claims{}, false
	}
	expiresAt, hasExp, ok := numericDate(claims.ExpiresAt)
	if !ok || !hasExp {
		return Claims{}, false
	}
	notBefore, hasNbf, ok := numericDate(claims.NotBefore)
	if !ok {
		return Claims{}, false
	}
	issuedAt, _, ok := numericDate(claims.IssuedAt)
	if !ok {
		return Claims{}, false
	}

	signature, err := base64.RawURLEncoding.DecodeString(signatureSeg)
	if err != nil {
		return Claims{}, false
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(token[:len(headerSeg)+1+len(claimsSeg)]))
	if !hmac.Equal(signature, mac.Sum(nil)) {
		return Claims{}, false
	}

	now := v.clock()
	if !now.Before(expiresAt) {
		return Claims{}, false
	}
	if hasNbf && now.Before(notBefore) {
		return Claims{}, false
	}
	if claims.Subject == "" {
		return Claims{}, false
	}
	return Claims{Subject: claims.Subject, IssuedAt: issuedAt, ExpiresAt: expiresAt}, true
}

// numericDate converts a JSON numeric date to whole seconds. An empty value
// means the claim was absent or null.
func numericDate(value json.Number) (time.Time, bool, bool) {
	if value == "" {
		return time.Time{}, false, true
	}
	f, err := value.Float64()
	if err != nil {
		return time.Time{}, false, false
	}
	round, frac := math.Modf(f)
	return time.Unix(int64(round), int64(frac*1e9)).Truncate(time.Second), true, true
}

// validAudience accepts an absent or null aud, a string, or an array of strings.
func validAudience(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return true
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return false
	}
	switch v := value.(type) {
	case nil, string:
		return true
	case []any:
		for _, item := range v {
			if _, ok := item.(string); !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}
