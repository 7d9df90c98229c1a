package migration

import (
	"errors"
	"testing"
	"testing/fstest"
)

func TestScanner_ScanMigrations(t *testing.T) {
	t.Run("returns migrations ordered by version", func(t *testing.T) {
		source := fstest.MapFS{
			"migrations/002_add_sessions.sql":   {Data: []byte("CREATE TABLE sessions (id TEXT);")},
			"migrations/001_initial_schema.sql": {Data: []byte("CREATE TABLE users (id TEXT);")},
			"migrations/README.md":              {Data: []byte("not a migration")},
		}

		migrations, err := NewScanner(source).ScanMigrations("migrations")
		if err != nil {
			t.Fatalf("ScanMigrations failed: %v", err)
		}

		if len(migrations) != 2 {
			t.Fatalf("expected 2 migrations, got %d", len(migrations))
		}
		if migrations[0].Version != "001" || migrations[1].Version != "002" {
			t.Fatalf("expected version order, got %#v", migrations)
		}
		if migrations[0].Description != "initial schema" {
			t.Fatalf("unexpected description: %q", migrations[0].Description)
		}
		if migrations[1].FilePath != "migrations/002_add_sessions.sql" {
			t.Fatalf("unexpected file path: %q", migrations[1].FilePath)
		}
	})

	t.Run("rejects malformed file names", func(t *testing.T) {
		source := fstest.MapFS{
			"migrations/1_bad_version.sql": {Data: []byte("SELECT 1;")},
		}

		_, err := NewScanner(source).ScanMigrations("migrations")
		if !errors.Is(err, ErrInvalidMigrationFile) {
			t.Fatalf("expected ErrInvalidMigrationFile, got %v", err)
		}
	})

	t.Run("rejects duplicate versions", func(t *testing.T) {
		source := fstest.MapFS{
			"migrations/001_first.sql":  {Data: []byte("SELECT 1;")},
			"migrations/001_second.sql": {Data: []byte("SELECT 2;")},
		}

		_, err := NewScanner(source).ScanMigrations("migrations")
		if !errors.Is(err, ErrDuplicateVersion) {
			t.Fatalf("expected ErrDuplicateVersion, got %v", err)
		}

		var migErr *MigrationError
		if !errors.As(err, &migErr) {
			t.Fatalf("expected MigrationError, got %T", err)
		}
	})

	t.Run("rejects empty migration files", func(t *testing.T) {
		source := fstest.MapFS{
			"migrations/001_empty.sql": {Data: []byte("   \n")},
		}

		_, err := NewScanner(source).ScanMigrations("migrations")
		if !errors.Is(err, ErrInvalidMigrationFile) {
			t.Fatalf("expected ErrInvalidMigrationFile, got %v", err)
		}
	})
}
