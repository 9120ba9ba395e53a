package passkey

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// SessionKind describes the WebAuthn ceremony a pending challenge belongs to.
type SessionKind string

const (
	SessionKindRegistration   SessionKind = "registration"
	SessionKindAuthentication SessionKind = "authentication"
)

// Valid reports whether k names a known ceremony.
func (k SessionKind) Valid() bool {
	return k == SessionKindRegistration || k == SessionKindAuthentication
}

const (
	defaultDisplayName     = "Daybook"
	defaultOrigin          = "http://localhost:8080"
	defaultChallengeTTL    = 5 * time.Minute
	defaultCeremonyTimeout = 60 * time.Second
)

// Config controls WebAuthn relying party settings.
type Config struct {
	RPDisplayName string   `env:"DAYBOOK_WEBAUTHN_RP_DISPLAY_NAME" envDefault:"Daybook"`
	RPID          string   `env:"DAYBOOK_WEBAUTHN_RP_ID"`
	RPOrigins     []string `env:"DAYBOOK_WEBAUTHN_RP_ORIGINS"      envSeparator:","`
	// ChallengeTTL bounds how long a pending challenge may be answered.
	ChallengeTTL time.Duration `env:"DAYBOOK_WEBAUTHN_CHALLENGE_TTL" envDefault:"5m"`
	// CeremonyTimeout is the advisory timeout sent to the authenticator.
	CeremonyTimeout time.Duration `env:"DAYBOOK_WEBAUTHN_CEREMONY_TIMEOUT" envDefault:"60s"`
}

// Normalize fills defaults and derives the RP ID from the first origin when unset.
func (c Config) Normalize() (Config, error) {
	c.RPDisplayName = strings.TrimSpace(c.RPDisplayName)
	if c.RPDisplayName == "" {
		c.RPDisplayName = defaultDisplayName
	}

	origins := make([]string, 0, len(c.RPOrigins))
	for _, origin := range c.RPOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" {
			continue
		}
		parsed, err := url.Parse(origin)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return Config{}, fmt.Errorf("invalid webauthn origin %q", origin)
		}
		origins = append(origins, origin)
	}
	if len(origins) == 0 {
		origins = []string{defaultOrigin}
	}
	c.RPOrigins = origins

	c.RPID = strings.TrimSpace(c.RPID)
	if c.RPID == "" {
		parsed, err := url.Parse(origins[0])
		if err != nil {
			return Config{}, fmt.Errorf("derive rp id: %w", err)
		}
		c.RPID = parsed.Hostname()
	}

	if c.ChallengeTTL <= 0 {
		c.ChallengeTTL = defaultChallengeTTL
	}
	if c.CeremonyTimeout <= 0 {
		c.CeremonyTimeout = defaultCeremonyTimeout
	}
	return c, nil
}

// WebAuthnConfig builds the library configuration for this relying party.
//
// Timeouts are advisory only; challenge expiry is enforced by the ledger so
// that it follows the injected clock.
func (c Config) WebAuthnConfig() *webauthn.Config {
	return &webauthn.Config{
		RPDisplayName: c.RPDisplayName,
		RPID:          c.RPID,
		RPOrigins:     append([]string(nil), c.RPOrigins...),
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			ResidentKey:      protocol.ResidentKeyRequirementPreferred,
			UserVerification: protocol.VerificationPreferred,
		},
		Timeouts: webauthn.TimeoutsConfig{
			Login: webauthn.TimeoutConfig{
				Enforce:    false,
				Timeout:    c.CeremonyTimeout,
				TimeoutUVD: c.CeremonyTimeout,
			},
			Registration: webauthn.TimeoutConfig{
				Enforce:    false,
				Timeout:    c.CeremonyTimeout,
				TimeoutUVD: c.CeremonyTimeout,
			},
		},
	}
}
