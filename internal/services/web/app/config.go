package app

import (
	"fmt"
	"strings"

	"github.com/louisbranch/daybook/internal/platform/config"
	apperrors "github.com/louisbranch/daybook/internal/platform/errors"
	"github.com/louisbranch/daybook/internal/services/auth/passkey"
	"github.com/louisbranch/daybook/internal/services/auth/session"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the process configuration, built once at startup.
type Config struct {
	Environment         config.Environment `env:"DAYBOOK_ENV"                   envDefault:"local"`
	HTTPAddr            string             `env:"DAYBOOK_HTTP_ADDR"             envDefault:"localhost:8080"`
	StorageDriver       string             `env:"DAYBOOK_STORAGE_DRIVER"        envDefault:"sqlite"`
	SQLitePath          string             `env:"DAYBOOK_SQLITE_PATH"           envDefault:"data/daybook.db"`
	PostgresDSN         string             `env:"DAYBOOK_POSTGRES_DSN"`
	TrustForwardedProto bool               `env:"DAYBOOK_TRUST_FORWARDED_PROTO"`

	Passkey passkey.Config
	Session session.Config
}

// Normalize canonicalizes names and checks cross-field requirements.
func (c Config) Normalize() (Config, error) {
	environment, err := config.ParseEnvironment(string(c.Environment))
	if err != nil {
		return Config{}, apperrors.Wrap(apperrors.CodeConfiguration, "invalid DAYBOOK_ENV", err)
	}
	c.Environment = environment
	c.HTTPAddr = strings.TrimSpace(c.HTTPAddr)
	if c.HTTPAddr == "" {
		return Config{}, apperrors.New(apperrors.CodeConfiguration, "http address is required")
	}

	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	switch c.StorageDriver {
	case "", DriverSQLite:
		c.StorageDriver = DriverSQLite
		if strings.TrimSpace(c.SQLitePath) == "" {
			return Config{}, apperrors.New(apperrors.CodeConfiguration, "DAYBOOK_SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return Config{}, apperrors.New(apperrors.CodeConfiguration, "DAYBOOK_POSTGRES_DSN is required for the postgres driver")
		}
	default:
		return Config{}, apperrors.WithMetadata(apperrors.CodeConfiguration,
			fmt.Sprintf("unknown storage driver %q", c.StorageDriver),
			map[string]string{"supported": DriverSQLite + "," + DriverPostgres})
	}

	passkeyCfg, err := c.Passkey.Normalize()
	if err != nil {
		return Config{}, apperrors.Wrap(apperrors.CodeConfiguration, "invalid passkey configuration", err)
	}
	c.Passkey = passkeyCfg
	return c, nil
}
