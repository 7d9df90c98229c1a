package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Executor applies migrations against a SQLite database and maintains the
// schema_migrations tracking table.
type Executor struct {
	db *sql.DB
}

// NewExecutor creates a migration executor for the given database handle.
func NewExecutor(db *sql.DB) *Executor {
	return &Executor{db: db}
}

// InitializeVersionTable creates the schema_migrations table if needed.
func (e *Executor) InitializeVersionTable(ctx context.Context) error {
	createTableSQL := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			execution_time_ms INTEGER
		);
	`

	if _, err := e.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// ExecuteMigration runs a single migration within a transaction.
func (e *Executor) ExecuteMigration(ctx context.Context, m Migration) (err error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return NewMigrationError(m.Version, m.FilePath, "begin transaction", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, m.SQL); err != nil {
		return NewMigrationError(m.Version, m.FilePath, "execute migration",
			fmt.Errorf("%w: %v", ErrMigrationFailed, err))
	}

	if err = tx.Commit(); err != nil {
		return NewMigrationError(m.Version, m.FilePath, "commit transaction", err)
	}
	return nil
}

// RecordMigration records a successful migration in the version table.
func (e *Executor) RecordMigration(ctx context.Context, version string, executionTime time.Duration) error {
	insertSQL := `
		INSERT INTO schema_migrations (version, applied_at, execution_time_ms)
		VALUES (?, ?, ?)
	`

	appliedAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := e.db.ExecContext(ctx, insertSQL, version, appliedAt, executionTime.Milliseconds()); err != nil {
		return NewMigrationError(version, "", "record migration", err)
	}
	return nil
}

// AppliedVersions returns the set of applied migration versions.
func (e *Executor) AppliedVersions(ctx context.Context) (map[string]AppliedMigration, error) {
	rows, err := e.db.QueryContext(ctx, `SELECT version, applied_at, COALESCE(execution_time_ms, 0) FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]AppliedMigration)
	for rows.Next() {
		var version, appliedAtStr string
		var executionMs int64
		if err := rows.Scan(&version, &appliedAtStr, &executionMs); err != nil {
			return nil, fmt.Errorf("failed to scan applied migration: %w", err)
		}

		appliedAt, err := time.Parse(time.RFC3339, appliedAtStr)
		if err != nil {
			// Rows written by SQLite's CURRENT_TIMESTAMP default use a space
			// separated layout.
			appliedAt, _ = time.Parse("2006-01-02 15:04:05", appliedAtStr)
		}

		applied[version] = AppliedMigration{
			Version:       version,
			AppliedAt:     appliedAt,
			ExecutionTime: time.Duration(executionMs) * time.Millisecond,
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate applied migrations: %w", err)
	}
	return applied, nil
}
