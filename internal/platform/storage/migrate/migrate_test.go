package migrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTempDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "migrate.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"00001_widgets.sql": {Data: []byte(`-- +goose Up
CREATE TABLE widgets (id TEXT PRIMARY KEY);

-- +goose Down
DROP TABLE widgets;
`)},
		"00002_widget_names.sql": {Data: []byte(`-- +goose Up
ALTER TABLE widgets ADD COLUMN name TEXT NOT NULL DEFAULT '';

-- +goose Down
ALTER TABLE widgets DROP COLUMN name;
`)},
	}
}

func TestApplyRunsMigrationsOnce(t *testing.T) {
	db := openTempDB(t)
	ctx := context.Background()

	if err := Apply(ctx, db, DialectSQLite, testMigrations()); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := Apply(ctx, db, DialectSQLite, testMigrations()); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO widgets (id, name) VALUES ('w1', 'first')`); err != nil {
		t.Fatalf("insert after migrations: %v", err)
	}
}

func TestApplyRejectsMissingInputs(t *testing.T) {
	if err := Apply(context.Background(), nil, DialectSQLite, testMigrations()); err == nil {
		t.Fatal("expected error for nil db")
	}
	db := openTempDB(t)
	if err := Apply(context.Background(), db, DialectSQLite, nil); err == nil {
		t.Fatal("expected error for nil fs")
	}
	if err := Apply(context.Background(), db, Dialect("oracle"), testMigrations()); err == nil {
		t.Fatal("expected error for unknown dialect")
	}
}
