package daybook

import (
	"bytes"
	"flag"
	"testing"
	"time"

	"github.com/louisbranch/daybook/internal/platform/config"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("daybook", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "localhost:8080" {
		t.Fatalf("http_addr = %q, want %q", cfg.HTTPAddr, "localhost:8080")
	}
	if cfg.StorageDriver != "sqlite" {
		t.Fatalf("storage = %q, want sqlite", cfg.StorageDriver)
	}
	if cfg.Environment != config.EnvironmentLocal {
		t.Fatalf("environment = %q, want local", cfg.Environment)
	}
	if cfg.Session.Lifetime != 168*time.Hour {
		t.Fatalf("session lifetime = %s, want 168h", cfg.Session.Lifetime)
	}
	if cfg.Passkey.ChallengeTTL != 5*time.Minute {
		t.Fatalf("challenge ttl = %s, want 5m", cfg.Passkey.ChallengeTTL)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("DAYBOOK_HTTP_ADDR", "0.0.0.0:9000")
	t.Setenv("DAYBOOK_ENV", "production")
	t.Setenv("DAYBOOK_SESSION_TTL", "12h")
	t.Setenv("DAYBOOK_WEBAUTHN_RP_ORIGINS", "https://daybook.example,https://www.daybook.example")

	fs := flag.NewFlagSet("daybook", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-storage", "postgres", "-sqlite-path", "/tmp/unused.db"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "0.0.0.0:9000" {
		t.Fatalf("http_addr = %q", cfg.HTTPAddr)
	}
	if cfg.Environment != config.EnvironmentProduction {
		t.Fatalf("environment = %q", cfg.Environment)
	}
	if cfg.StorageDriver != "postgres" || cfg.SQLitePath != "/tmp/unused.db" {
		t.Fatalf("storage flags not applied: %+v", cfg.Config)
	}
	if cfg.Session.Lifetime != 12*time.Hour {
		t.Fatalf("session lifetime = %s", cfg.Session.Lifetime)
	}
	if len(cfg.Passkey.RPOrigins) != 2 || cfg.Passkey.RPOrigins[1] != "https://www.daybook.example" {
		t.Fatalf("origins = %v", cfg.Passkey.RPOrigins)
	}
}

func TestParseConfigBadArgs(t *testing.T) {
	fs := flag.NewFlagSet("daybook", flag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})
	if _, err := ParseConfig(fs, []string{"-unknown"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}
