package persistence

import "time"

// Role identifies the capability class of a user account.
type Role string

const (
	// RoleOrganizer marks accounts that may manage events and items.
	RoleOrganizer Role = "organizer"
	// RoleStudent marks accounts that may claim servings.
	RoleStudent Role = "student"
)

// User represents a campus account stored in persistence. Accounts are
// immutable after creation; there is no update path.
type User struct {
	ID        string
	Email     string
	Role      Role
	CodeHash  string
	CreatedAt time.Time
}

// Event represents an organizer-posted food-sharing occasion.
type Event struct {
	ID        string
	Title     string
	Building  string
	Room      string
	EventDate string
	StartTime string
	EndTime   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item represents a claimable food offering attached to an event.
// Invariant: 0 <= RemainingQty <= TotalQty.
type Item struct {
	ID           string
	EventID      string
	Name         string
	Icon         string
	TotalQty     int
	RemainingQty int
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// AvailableItem is an item joined with its event context for listings.
type AvailableItem struct {
	Item
	EventTitle string
	Building   string
	Room       string
}

// Claim represents one immutable reservation of servings.
type Claim struct {
	ID        string
	UserID    string
	ItemID    string
	Qty       int
	ClaimedAt time.Time
}

// ClaimWithContext is a claim joined with item and event titles for history views.
type ClaimWithContext struct {
	Claim
	ItemName   string
	EventTitle string
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// EventWithItemCount is an event joined with the number of items it owns.
type EventWithItemCount struct {
	Event
	ItemCount int
}

// OrganizerStats aggregates inventory totals across all events.
type OrganizerStats struct {
	EventCount   int
	ItemCount    int
	TotalQty     int
	ClaimedQty   int
	AvailableCnt int
	ExpiringCnt  int
}

// StudentStats aggregates a single student's claim history.
type StudentStats struct {
	TotalAvailable int
	ExpiringSoon   int
	ClaimCount     int
	ServingsTotal  int
}
