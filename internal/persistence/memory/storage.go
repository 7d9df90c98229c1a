// Package memory provides an in-memory implementation of the persistence
// repositories. It mirrors the SQLite behavior closely enough for service
// tests, including the atomic reservation sequence, but keeps everything in
// maps guarded by a single mutex.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/freebites/internal/persistence"
)

// Storage holds all in-memory state. The zero value is not usable; create
// instances with NewStorage.
type Storage struct {
	mu sync.Mutex

	users    map[string]persistence.User
	events   map[string]persistence.Event
	items    map[string]persistence.Item
	claims   map[string]persistence.Claim
	sessions map[string]persistence.Session
}

// NewStorage creates an empty in-memory storage.
func NewStorage() *Storage {
	return &Storage{
		users:    make(map[string]persistence.User),
		events:   make(map[string]persistence.Event),
		items:    make(map[string]persistence.Item),
		claims:   make(map[string]persistence.Claim),
		sessions: make(map[string]persistence.Session),
	}
}

// CreateUser stores a new user account. Emails are normalized the same way
// the SQLite repository stores them.
func (s *Storage) CreateUser(_ context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = normalizeEmail(user.Email)
	if _, exists := s.users[user.ID]; exists {
		return persistence.ErrDuplicate
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return persistence.ErrDuplicate
		}
	}

	s.users[user.ID] = user
	return nil
}

// GetUser retrieves a user by ID.
func (s *Storage) GetUser(_ context.Context, id string) (persistence.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

// GetUserByEmail retrieves a user by normalized email address.
func (s *Storage) GetUserByEmail(_ context.Context, email string) (persistence.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := normalizeEmail(email)
	for _, user := range s.users {
		if user.Email == normalized {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CountUsers returns the number of stored accounts.
func (s *Storage) CountUsers(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), nil
}

// CreateEvent stores a new event.
func (s *Storage) CreateEvent(_ context.Context, event persistence.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.ID]; exists {
		return persistence.ErrDuplicate
	}
	s.events[event.ID] = event
	return nil
}

// UpdateEvent replaces a stored event.
func (s *Storage) UpdateEvent(_ context.Context, event persistence.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.ID]; !exists {
		return persistence.ErrNotFound
	}
	s.events[event.ID] = event
	return nil
}

// GetEvent retrieves an event by ID.
func (s *Storage) GetEvent(_ context.Context, id string) (persistence.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[id]
	if !ok {
		return persistence.Event{}, persistence.ErrNotFound
	}
	return event, nil
}

// ListEvents returns all events ordered by date, most recent first.
func (s *Storage) ListEvents(_ context.Context) ([]persistence.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]persistence.Event, 0, len(s.events))
	for _, event := range s.events {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].EventDate != events[j].EventDate {
			return events[i].EventDate > events[j].EventDate
		}
		return events[i].StartTime > events[j].StartTime
	})
	return events, nil
}

// ListEventsWithItemCounts returns all events with their item counts.
func (s *Storage) ListEventsWithItemCounts(ctx context.Context) ([]persistence.EventWithItemCount, error) {
	events, err := s.ListEvents(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	for _, item := range s.items {
		counts[item.EventID]++
	}

	result := make([]persistence.EventWithItemCount, 0, len(events))
	for _, event := range events {
		result = append(result, persistence.EventWithItemCount{
			Event:     event,
			ItemCount: counts[event.ID],
		})
	}
	return result, nil
}

// DeleteEvent removes an event together with its items and their claims.
func (s *Storage) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[id]; !exists {
		return persistence.ErrNotFound
	}
	delete(s.events, id)

	for itemID, item := range s.items {
		if item.EventID != id {
			continue
		}
		delete(s.items, itemID)
		for claimID, claim := range s.claims {
			if claim.ItemID == itemID {
				delete(s.claims, claimID)
			}
		}
	}
	return nil
}

// CreateItem stores a new item seeded with RemainingQty = TotalQty.
func (s *Storage) CreateItem(_ context.Context, item persistence.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.ID]; exists {
		return persistence.ErrDuplicate
	}
	if _, exists := s.events[item.EventID]; !exists {
		return persistence.ErrForeignKeyViolation
	}
	if item.TotalQty <= 0 {
		return persistence.ErrConstraintViolation
	}

	item.RemainingQty = item.TotalQty
	s.items[item.ID] = item
	return nil
}

// GetItem retrieves an item by ID.
func (s *Storage) GetItem(_ context.Context, id string) (persistence.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return persistence.Item{}, persistence.ErrNotFound
	}
	return item, nil
}

// ListAvailableItems returns items with remaining inventory, soonest expiry
// first.
func (s *Storage) ListAvailableItems(_ context.Context) ([]persistence.AvailableItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []persistence.AvailableItem
	for _, item := range s.items {
		if item.RemainingQty <= 0 {
			continue
		}
		items = append(items, s.joinEventLocked(item))
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ExpiresAt.Before(items[j].ExpiresAt)
	})
	return items, nil
}

// ListItemsWithEventTitles returns every item with its event context,
// newest first.
func (s *Storage) ListItemsWithEventTitles(_ context.Context) ([]persistence.AvailableItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]persistence.AvailableItem, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, s.joinEventLocked(item))
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Storage) joinEventLocked(item persistence.Item) persistence.AvailableItem {
	joined := persistence.AvailableItem{Item: item}
	if event, ok := s.events[item.EventID]; ok {
		joined.EventTitle = event.Title
		joined.Building = event.Building
		joined.Room = event.Room
	}
	return joined
}

// Reserve atomically grants servings of an item to a user. The mutex stands
// in for the database write lock.
func (s *Storage) Reserve(_ context.Context, claim persistence.Claim, quotaLimit int) (persistence.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quotaLimit <= 0 {
		return persistence.Claim{}, persistence.ErrQuotaExceeded
	}

	item, ok := s.items[claim.ItemID]
	if !ok {
		return persistence.Claim{}, persistence.ErrNotFound
	}
	if item.RemainingQty <= 0 {
		return persistence.Claim{}, persistence.ErrSoldOut
	}

	alreadyTaken := 0
	for _, existing := range s.claims {
		if existing.UserID == claim.UserID && existing.ItemID == claim.ItemID {
			alreadyTaken += existing.Qty
		}
	}
	if alreadyTaken >= quotaLimit {
		return persistence.Claim{}, persistence.ErrQuotaExceeded
	}

	grant := 1
	if item.RemainingQty < grant {
		grant = item.RemainingQty
	}
	if headroom := quotaLimit - alreadyTaken; headroom < grant {
		grant = headroom
	}
	if grant <= 0 {
		return persistence.Claim{}, persistence.ErrNothingToGrant
	}

	if claim.ClaimedAt.IsZero() {
		claim.ClaimedAt = time.Now().UTC()
	}
	claim.Qty = grant

	item.RemainingQty -= grant
	s.items[item.ID] = item
	s.claims[claim.ID] = claim
	return claim, nil
}

// ListClaimsForUser returns a user's claims with item and event context,
// most recent first.
func (s *Storage) ListClaimsForUser(_ context.Context, userID string) ([]persistence.ClaimWithContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var claims []persistence.ClaimWithContext
	for _, claim := range s.claims {
		if claim.UserID != userID {
			continue
		}
		joined := persistence.ClaimWithContext{Claim: claim}
		if item, ok := s.items[claim.ItemID]; ok {
			joined.ItemName = item.Name
			if event, ok := s.events[item.EventID]; ok {
				joined.EventTitle = event.Title
			}
		}
		claims = append(claims, joined)
	}
	sort.Slice(claims, func(i, j int) bool {
		return claims[i].ClaimedAt.After(claims[j].ClaimedAt)
	})
	return claims, nil
}

// SumClaimedQty returns the total servings a user holds for one item.
func (s *Storage) SumClaimedQty(_ context.Context, userID, itemID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, claim := range s.claims {
		if claim.UserID == userID && claim.ItemID == itemID {
			total += claim.Qty
		}
	}
	return total, nil
}

// CreateSession stores a new session.
func (s *Storage) CreateSession(_ context.Context, session persistence.Session) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.sessions {
		if existing.Token == session.Token {
			return persistence.Session{}, persistence.ErrDuplicate
		}
	}
	s.sessions[session.ID] = session
	return session, nil
}

// GetSession retrieves a session by token.
func (s *Storage) GetSession(_ context.Context, token string) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, session := range s.sessions {
		if session.Token == token {
			return session, nil
		}
	}
	return persistence.Session{}, persistence.ErrNotFound
}

// RevokeSession marks a session as revoked.
func (s *Storage) RevokeSession(_ context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, session := range s.sessions {
		if session.Token != token || session.RevokedAt != nil {
			continue
		}
		revoked := revokedAt
		session.RevokedAt = &revoked
		session.UpdatedAt = revokedAt
		s.sessions[id] = session
		return session, nil
	}
	return persistence.Session{}, persistence.ErrNotFound
}

// DeleteExpiredSessions removes sessions that expired before the reference
// time.
func (s *Storage) DeleteExpiredSessions(_ context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, session := range s.sessions {
		if session.ExpiresAt.Before(reference) {
			delete(s.sessions, id)
		}
	}
	return nil
}

// OrganizerStats aggregates inventory totals across all events.
func (s *Storage) OrganizerStats(_ context.Context, expiringBefore time.Time) (persistence.OrganizerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := persistence.OrganizerStats{EventCount: len(s.events), ItemCount: len(s.items)}
	for _, item := range s.items {
		stats.TotalQty += item.TotalQty
		stats.ClaimedQty += item.TotalQty - item.RemainingQty
		if item.RemainingQty > 0 {
			stats.AvailableCnt++
			if !item.ExpiresAt.After(expiringBefore) {
				stats.ExpiringCnt++
			}
		}
	}
	return stats, nil
}

// StudentStats aggregates a single student's view of the catalog.
func (s *Storage) StudentStats(_ context.Context, userID string, expiringBefore time.Time) (persistence.StudentStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats persistence.StudentStats
	for _, item := range s.items {
		if item.RemainingQty <= 0 {
			continue
		}
		stats.TotalAvailable++
		if !item.ExpiresAt.After(expiringBefore) {
			stats.ExpiringSoon++
		}
	}
	for _, claim := range s.claims {
		if claim.UserID == userID {
			stats.ClaimCount++
			stats.ServingsTotal += claim.Qty
		}
	}
	return stats, nil
}
