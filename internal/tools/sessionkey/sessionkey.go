// Package sessionkey generates signing secrets for session tokens.
package sessionkey

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/louisbranch/daybook/internal/services/auth/session"
)

// EnvKey is the variable the server reads the secret from.
const EnvKey = "DAYBOOK_SESSION_SECRET"

// Output encodings.
const (
	FormatHex    = "hex"
	FormatBase64 = "base64"
)

// Config holds configuration for secret generation.
type Config struct {
	Bytes  int
	Format string
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Bytes: 32, Format: FormatHex}
	fs.IntVar(&cfg.Bytes, "bytes", cfg.Bytes, "number of random bytes")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "output encoding: hex or base64")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run generates the secret and writes it to out as an env assignment.
func Run(cfg Config, out io.Writer, reader io.Reader) error {
	if cfg.Bytes <= 0 {
		return errors.New("bytes must be greater than zero")
	}
	if out == nil {
		return errors.New("output is required")
	}
	if reader == nil {
		reader = rand.Reader
	}

	buf := make([]byte, cfg.Bytes)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return fmt.Errorf("generate random bytes: %w", err)
	}

	var encoded string
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", FormatHex:
		encoded = hex.EncodeToString(buf)
	case FormatBase64:
		encoded = base64.RawURLEncoding.EncodeToString(buf)
	default:
		return fmt.Errorf("unknown format %q", cfg.Format)
	}
	if len(encoded) < session.MinSecretLength {
		return fmt.Errorf("secret of %d characters is shorter than the %d production minimum", len(encoded), session.MinSecretLength)
	}
	_, err := fmt.Fprintf(out, "%s=%s\n", EnvKey, encoded)
	return err
}
