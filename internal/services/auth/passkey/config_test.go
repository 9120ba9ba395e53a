package passkey

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
)

func loadFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg.Normalize()
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("DAYBOOK_WEBAUTHN_RP_ID", "")
	t.Setenv("DAYBOOK_WEBAUTHN_RP_ORIGINS", "")
	cfg, err := loadFromEnv()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.RPID != "localhost" {
		t.Fatalf("RPID = %q, want %q", cfg.RPID, "localhost")
	}
	if cfg.RPDisplayName != "Daybook" {
		t.Fatalf("RPDisplayName = %q, want %q", cfg.RPDisplayName, "Daybook")
	}
	if len(cfg.RPOrigins) != 1 || cfg.RPOrigins[0] != "http://localhost:8080" {
		t.Fatalf("RPOrigins = %v, want [%q]", cfg.RPOrigins, "http://localhost:8080")
	}
	if cfg.ChallengeTTL != 5*time.Minute {
		t.Fatalf("ChallengeTTL = %v, want %v", cfg.ChallengeTTL, 5*time.Minute)
	}
	if cfg.CeremonyTimeout != 60*time.Second {
		t.Fatalf("CeremonyTimeout = %v, want %v", cfg.CeremonyTimeout, 60*time.Second)
	}
}

func TestConfigFromEnvDerivesRPIDFromFirstOrigin(t *testing.T) {
	t.Setenv("DAYBOOK_WEBAUTHN_RP_ID", "")
	t.Setenv("DAYBOOK_WEBAUTHN_RP_ORIGINS", "https://daybook.example.com:8443/, https://b.example.com")
	cfg, err := loadFromEnv()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.RPID != "daybook.example.com" {
		t.Fatalf("RPID = %q, want %q", cfg.RPID, "daybook.example.com")
	}
	if len(cfg.RPOrigins) != 2 || cfg.RPOrigins[0] != "https://daybook.example.com:8443" || cfg.RPOrigins[1] != "https://b.example.com" {
		t.Fatalf("RPOrigins = %v", cfg.RPOrigins)
	}
}

func TestConfigFromEnvExplicitRPID(t *testing.T) {
	t.Setenv("DAYBOOK_WEBAUTHN_RP_ID", "example.com")
	t.Setenv("DAYBOOK_WEBAUTHN_RP_ORIGINS", "https://app.example.com")
	cfg, err := loadFromEnv()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.RPID != "example.com" {
		t.Fatalf("RPID = %q, want %q", cfg.RPID, "example.com")
	}
}

func TestConfigFromEnvInvalidTTL(t *testing.T) {
	t.Setenv("DAYBOOK_WEBAUTHN_CHALLENGE_TTL", "soon")
	if _, err := loadFromEnv(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNormalizeRejectsOriginWithoutScheme(t *testing.T) {
	if _, err := (Config{RPOrigins: []string{"daybook.example.com"}}).Normalize(); err == nil {
		t.Fatal("expected invalid origin error")
	}
}

func TestNormalizeFillsNonPositiveDurations(t *testing.T) {
	cfg, err := (Config{ChallengeTTL: -1, CeremonyTimeout: 0}).Normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.ChallengeTTL != 5*time.Minute || cfg.CeremonyTimeout != 60*time.Second {
		t.Fatalf("durations = %v/%v", cfg.ChallengeTTL, cfg.CeremonyTimeout)
	}
}

func TestWebAuthnConfigCarriesRelyingParty(t *testing.T) {
	cfg, err := (Config{RPOrigins: []string{"https://daybook.example.com"}}).Normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	wa := cfg.WebAuthnConfig()
	if wa.RPID != "daybook.example.com" || wa.RPDisplayName != "Daybook" {
		t.Fatalf("relying party = %q/%q", wa.RPID, wa.RPDisplayName)
	}
	if wa.Timeouts.Registration.Timeout != 60*time.Second || wa.Timeouts.Login.Enforce {
		t.Fatalf("timeouts = %+v", wa.Timeouts)
	}
}

func TestSessionKindValid(t *testing.T) {
	if !SessionKindRegistration.Valid() || !SessionKindAuthentication.Valid() {
		t.Fatal("expected known kinds to be valid")
	}
	if SessionKind("login").Valid() {
		t.Fatal("expected unknown kind to be invalid")
	}
}
