package session

import (
	"log"
	"strings"

	"github.com/louisbranch/daybook/internal/platform/config"
	apperrors "github.com/louisbranch/daybook/internal/platform/errors"
)

// MinSecretLength is the shortest secret accepted in production.
const MinSecretLength = 32

// developmentSecret signs sessions when no secret is configured outside production.
const developmentSecret = "daybook-insecure-development-session-secret"

// ResolveSecret picks the signing secret once at startup. A configured secret
// always wins. Production refuses to start without a secret of at least
// MinSecretLength bytes; other environments fall back to a fixed development
// secret and log a warning.
func ResolveSecret(cfg Config, environment config.Environment) ([]byte, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret != "" {
		if len(secret) < MinSecretLength {
			if environment.IsProduction() {
				return nil, apperrors.WithMetadata(apperrors.CodeConfiguration, "session secret is too short",
					map[string]string{"min_bytes": "32"})
			}
			log.Printf("WARNING session secret shorter than %d bytes env=%s", MinSecretLength, environment)
		}
		return []byte(secret), nil
	}
	if environment.IsProduction() {
		return nil, apperrors.New(apperrors.CodeConfiguration, "DAYBOOK_SESSION_SECRET is required in production")
	}
	log.Printf("WARNING DAYBOOK_SESSION_SECRET is not set, signing sessions with an insecure development secret env=%s", environment)
	return []byte(developmentSecret), nil
}
