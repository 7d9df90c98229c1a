package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/freebites/internal/persistence"
	"github.com/example/freebites/internal/persistence/memory"
	"github.com/example/freebites/internal/persistence/sqlite"
)

// Harness provides repository access for integration-style persistence tests.
// Construct one with NewSQLiteHarness or NewMemoryHarness; both expose the
// same repository surface so suites can run against either backend.
type Harness struct {
	Users    persistence.UserRepository
	Events   persistence.EventRepository
	Items    persistence.ItemRepository
	Claims   persistence.ClaimRepository
	Sessions persistence.SessionRepository
	Catalog  persistence.CatalogRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *Harness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a Harness using a temporary SQLite file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *Harness {
	tb.Helper()

	dir := tb.TempDir()
	dsn := "file:" + filepath.Join(dir, "freebites.db")

	storage, err := sqlite.Open(dsn, nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &Harness{
		Users:    storage.Users,
		Events:   storage.Events,
		Items:    storage.Items,
		Claims:   storage.Claims,
		Sessions: storage.Sessions,
		Catalog:  storage.Catalog,

		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// NewMemoryHarness constructs a Harness backed by the in-memory storage. One
// Storage value implements every repository interface, so all fields share it.
func NewMemoryHarness(tb testing.TB) *Harness {
	tb.Helper()

	storage := memory.NewStorage()
	harness := &Harness{
		Users:    storage,
		Events:   storage,
		Items:    storage,
		Claims:   storage,
		Sessions: storage,
		Catalog:  storage,
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedUser inserts the fixture user and fails the test on error.
func (h *Harness) SeedUser(tb testing.TB, fixture UserFixture) persistence.User {
	tb.Helper()
	user := fixture.Persistence()
	if err := h.Users.CreateUser(context.Background(), user); err != nil {
		tb.Fatalf("failed to seed user %s: %v", user.ID, err)
	}
	return user
}

// SeedEvent inserts the fixture event and fails the test on error.
func (h *Harness) SeedEvent(tb testing.TB, fixture EventFixture) persistence.Event {
	tb.Helper()
	event := fixture.Persistence()
	if err := h.Events.CreateEvent(context.Background(), event); err != nil {
		tb.Fatalf("failed to seed event %s: %v", event.ID, err)
	}
	return event
}

// SeedItem inserts the fixture item and fails the test on error. The stored
// row always starts with RemainingQty equal to TotalQty.
func (h *Harness) SeedItem(tb testing.TB, fixture ItemFixture) persistence.Item {
	tb.Helper()
	item := fixture.Persistence()
	if err := h.Items.CreateItem(context.Background(), item); err != nil {
		tb.Fatalf("failed to seed item %s: %v", item.ID, err)
	}
	stored, err := h.Items.GetItem(context.Background(), item.ID)
	if err != nil {
		tb.Fatalf("failed to load seeded item %s: %v", item.ID, err)
	}
	return stored
}
