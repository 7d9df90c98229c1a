package migration

import (
	"context"
	"log/slog"
	"time"
)

// Manager orchestrates the migration process: it scans for migration files,
// determines which versions are pending, and applies them sequentially.
type Manager struct {
	scanner  *Scanner
	executor *Executor
	dir      string
	logger   *slog.Logger
}

// NewManager creates a migration manager reading migrations from dir.
func NewManager(scanner *Scanner, executor *Executor, dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{scanner: scanner, executor: executor, dir: dir, logger: logger}
}

// RunMigrations executes all pending migrations in version order.
func (m *Manager) RunMigrations(ctx context.Context) error {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return err
	}

	pending, err := m.PendingMigrations(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		m.logger.DebugContext(ctx, "schema up to date")
		return nil
	}

	for _, mig := range pending {
		start := time.Now()
		m.logger.InfoContext(ctx, "applying migration",
			"version", mig.Version,
			"description", mig.Description,
		)

		if err := m.executor.ExecuteMigration(ctx, mig); err != nil {
			m.logger.ErrorContext(ctx, "migration failed", "version", mig.Version, "error", err)
			return err
		}

		elapsed := time.Since(start)
		if err := m.executor.RecordMigration(ctx, mig.Version, elapsed); err != nil {
			return err
		}

		m.logger.InfoContext(ctx, "migration applied", "version", mig.Version, "duration", elapsed)
	}

	return nil
}

// PendingMigrations returns scanned migrations that have not been applied yet.
func (m *Manager) PendingMigrations(ctx context.Context) ([]Migration, error) {
	migrations, err := m.scanner.ScanMigrations(m.dir)
	if err != nil {
		return nil, err
	}

	applied, err := m.executor.AppliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	pending := make([]Migration, 0, len(migrations))
	for _, mig := range migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		pending = append(pending, mig)
	}
	return pending, nil
}
