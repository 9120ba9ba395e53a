// Package migrate applies embedded goose migrations to a SQL database.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"strings"

	"github.com/pressly/goose/v3"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) goose() (goose.Dialect, error) {
	switch d {
	case DialectSQLite:
		return goose.DialectSQLite3, nil
	case DialectPostgres:
		return goose.DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported migration dialect %q", d)
	}
}

// Apply runs every pending migration found at the root of migrationFS.
// Migrations that already ran are skipped, so Apply is safe on every start.
func Apply(ctx context.Context, sqlDB *sql.DB, dialect Dialect, migrationFS fs.FS) error {
	if sqlDB == nil {
		return fmt.Errorf("sql db is required")
	}
	if migrationFS == nil {
		return fmt.Errorf("migration fs is required")
	}
	gooseDialect, err := dialect.goose()
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(gooseDialect, sqlDB, migrationFS)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, result := range results {
		if result == nil || result.Source == nil {
			continue
		}
		log.Printf("migration applied dialect=%s version=%d path=%s", dialect, result.Source.Version, strings.TrimSpace(result.Source.Path))
	}
	return nil
}
