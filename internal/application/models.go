package application

import "time"

// Role identifies the capability class of an authenticated account.
type Role string

const (
	// RoleOrganizer may manage events and items.
	RoleOrganizer Role = "organizer"
	// RoleStudent may claim servings and browse the catalog.
	RoleStudent Role = "student"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Role   Role
}

// IsOrganizer reports whether the principal may manage events and items.
func (p Principal) IsOrganizer() bool {
	return p.Role == RoleOrganizer
}

// Buildings is the closed set of campus locations an event may be held in.
var Buildings = []string{
	"Toomey Hall",
	"Havener Center",
	"Curtis Laws Wilson Library",
	"Schrenk Hall",
	"Computer Science Building",
	"Norwood Hall",
}

// User represents a campus account exposed by the application services.
type User struct {
	ID        string
	Email     string
	Role      Role
	CreatedAt time.Time
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User     User
	CodeHash string
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email      string
	AccessCode string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session Session
}

// EventInput captures caller provided event fields.
type EventInput struct {
	Title     string
	Building  string
	Room      string
	EventDate string
	StartTime string
	EndTime   string
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

// EventSummary is an event annotated with the number of items it owns.
type EventSummary struct {
	Event
	ItemCount int
}

// CreateEventParams wraps the data required to create an event.
type CreateEventParams struct {
	Principal Principal
	Input     EventInput
}

// UpdateEventParams wraps the data required to update an existing event.
type UpdateEventParams struct {
	Principal Principal
	EventID   string
	Input     EventInput
}

// ItemInput captures caller provided item fields.
type ItemInput struct {
	EventID   string
	Name      string
	Icon      string
	TotalQty  int
	ExpiresAt time.Time
}

// Item represents a claimable food offering attached to an event.
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

// CreateItemParams wraps the data required to create an item.
type CreateItemParams struct {
	Principal Principal
	Input     ItemInput
}

// Claim represents one immutable reservation of servings.
type Claim struct {
	ID        string
	UserID    string
	ItemID    string
	Qty       int
	ClaimedAt time.Time
}

// ClaimSummary is a claim joined with item and event titles for history views.
type ClaimSummary struct {
	Claim
	ItemName   string
	EventTitle string
}

// ClaimItemParams wraps the data required to reserve servings of an item.
type ClaimItemParams struct {
	Principal Principal
	ItemID    string
}

// OrganizerDashboard aggregates inventory totals for the organizer view.
type OrganizerDashboard struct {
	EventCount     int
	ItemCount      int
	TotalServings  int
	ClaimedCount   int
	AvailableItems int
	ExpiringSoon   int
	Events         []EventSummary
	Items          []AvailableItem
}

// StudentDashboard aggregates the catalog and claim history for one student.
type StudentDashboard struct {
	TotalAvailable int
	ExpiringSoon   int
	ClaimCount     int
	ServingsTotal  int
	Items          []AvailableItem
	Claims         []ClaimSummary
}
