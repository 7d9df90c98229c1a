package sqlite

import (
	"context"
	"embed"
	"log/slog"

	"github.com/example/freebites/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage bundles the SQLite-backed repositories behind a single handle.
type Storage struct {
	pool   *ConnectionPool
	logger *slog.Logger

	Users    *UserRepository
	Events   *EventRepository
	Items    *ItemRepository
	Claims   *ClaimRepository
	Sessions *SessionRepository
	Catalog  *CatalogRepository
}

// Open creates a Storage for the given SQLite DSN. Call Migrate before using
// the repositories.
func Open(dsn string, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := NewConnectionPool(dsn)
	if err != nil {
		return nil, err
	}

	return &Storage{
		pool:     pool,
		logger:   logger,
		Users:    NewUserRepository(pool),
		Events:   NewEventRepository(pool),
		Items:    NewItemRepository(pool),
		Claims:   NewClaimRepository(pool),
		Sessions: NewSessionRepository(pool),
		Catalog:  NewCatalogRepository(pool),
	}, nil
}

// Migrate applies all pending schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	manager := migration.NewManager(
		migration.NewScanner(migrationFiles),
		migration.NewExecutor(s.pool.DB()),
		"migrations",
		s.logger,
	)
	return manager.RunMigrations(ctx)
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping verifies database connectivity.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
