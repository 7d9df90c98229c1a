package persistence

import (
	"context"
	"time"
)

// UserRepository exposes account lookup and provisioning. Users are never
// updated or deleted once created.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	CountUsers(ctx context.Context) (int, error)
}

// EventRepository exposes CRUD operations for events. DeleteEvent removes the
// event together with its items and their claims in a single transaction.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	UpdateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context) ([]Event, error)
	ListEventsWithItemCounts(ctx context.Context) ([]EventWithItemCount, error)
	DeleteEvent(ctx context.Context, id string) error
}

// ItemRepository stores claimable items. Items are seeded with
// RemainingQty = TotalQty and mutated only through ClaimRepository.Reserve.
type ItemRepository interface {
	CreateItem(ctx context.Context, item Item) error
	GetItem(ctx context.Context, id string) (Item, error)
	ListAvailableItems(ctx context.Context) ([]AvailableItem, error)
	ListItemsWithEventTitles(ctx context.Context) ([]AvailableItem, error)
}

// ClaimRepository records reservations. Reserve executes the full
// read-decide-write sequence atomically: it loads the item, checks remaining
// inventory and the caller's quota, inserts the claim, and decrements
// remaining_qty, all inside one write transaction. On failure no state is
// mutated. quotaLimit is the maximum total servings one user may claim of one
// item across all their claims.
type ClaimRepository interface {
	Reserve(ctx context.Context, claim Claim, quotaLimit int) (Claim, error)
	ListClaimsForUser(ctx context.Context, userID string) ([]ClaimWithContext, error)
	SumClaimedQty(ctx context.Context, userID, itemID string) (int, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// CatalogRepository exposes the read-only aggregates consumed by dashboards.
// All queries are snapshot reads; slight staleness is acceptable.
type CatalogRepository interface {
	OrganizerStats(ctx context.Context, expiringBefore time.Time) (OrganizerStats, error)
	StudentStats(ctx context.Context, userID string, expiringBefore time.Time) (StudentStats, error)
}
