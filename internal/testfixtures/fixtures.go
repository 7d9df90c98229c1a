// Package testfixtures provides deterministic fixtures, clocks, and storage
// harnesses shared by the application and persistence test suites.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/freebites/internal/application"
	"github.com/example/freebites/internal/persistence"
)

var (
	userCounter    uint64
	eventCounter   uint64
	itemCounter    uint64
	claimCounter   uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2026, time.March, 9, 12, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic account record that can be
// materialised for application or persistence tests.
type UserFixture struct {
	ID        string
	Email     string
	Role      application.Role
	CodeHash  string
	CreatedAt time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	fixture := UserFixture{
		ID:        id,
		Email:     fmt.Sprintf("%s@campus.edu", id),
		Role:      application.RoleStudent,
		CodeHash:  fmt.Sprintf("hash-%03d", idx),
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserRole sets the role on the generated fixture.
func WithUserRole(role application.Role) UserOption {
	return func(f *UserFixture) {
		f.Role = role
	}
}

// WithUserCodeHash overrides the generated access code hash.
func WithUserCodeHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.CodeHash = hash
	}
}

// WithUserCreatedAt sets the created timestamp on the fixture.
func WithUserCreatedAt(t time.Time) UserOption {
	return func(f *UserFixture) {
		f.CreatedAt = t
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:        f.ID,
		Email:     f.Email,
		Role:      f.Role,
		CreatedAt: f.CreatedAt,
	}
}

// Credentials returns the fixture as application.UserCredentials.
func (f UserFixture) Credentials() application.UserCredentials {
	return application.UserCredentials{
		User:     f.Application(),
		CodeHash: f.CodeHash,
	}
}

// Principal returns an application.Principal derived from the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, Role: f.Role}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:        f.ID,
		Email:     f.Email,
		Role:      persistence.Role(f.Role),
		CodeHash:  f.CodeHash,
		CreatedAt: f.CreatedAt,
	}
}

// ----------------------------- Event fixtures ----------------------------

// EventFixture represents a deterministic event record.
type EventFixture struct {
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

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a deterministic event fixture with optional overrides.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	id := fmt.Sprintf("event-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := EventFixture{
		ID:        id,
		Title:     fmt.Sprintf("Event %03d", idx),
		Building:  "Havener Center",
		Room:      fmt.Sprintf("Room %d", 100+idx),
		EventDate: created.Format("2006-01-02"),
		StartTime: "12:00",
		EndTime:   "14:00",
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) {
		f.ID = id
	}
}

// WithEventTitle overrides the generated title.
func WithEventTitle(title string) EventOption {
	return func(f *EventFixture) {
		f.Title = title
	}
}

// WithEventLocation sets the building and room.
func WithEventLocation(building, room string) EventOption {
	return func(f *EventFixture) {
		f.Building = building
		f.Room = room
	}
}

// WithEventDate sets the event date in YYYY-MM-DD form.
func WithEventDate(date string) EventOption {
	return func(f *EventFixture) {
		f.EventDate = date
	}
}

// WithEventTimes sets the start and end times in HH:MM form.
func WithEventTimes(start, end string) EventOption {
	return func(f *EventFixture) {
		f.StartTime = start
		f.EndTime = end
	}
}

// WithEventTimestamps sets both created and updated timestamps.
func WithEventTimestamps(created, updated time.Time) EventOption {
	return func(f *EventFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.Event value.
func (f EventFixture) Application() application.Event {
	return application.Event{
		ID:        f.ID,
		Title:     f.Title,
		Building:  f.Building,
		Room:      f.Room,
		EventDate: f.EventDate,
		StartTime: f.StartTime,
		EndTime:   f.EndTime,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Input returns the fixture as an application.EventInput.
func (f EventFixture) Input() application.EventInput {
	return application.EventInput{
		Title:     f.Title,
		Building:  f.Building,
		Room:      f.Room,
		EventDate: f.EventDate,
		StartTime: f.StartTime,
		EndTime:   f.EndTime,
	}
}

// Persistence returns the fixture as a persistence.Event value.
func (f EventFixture) Persistence() persistence.Event {
	return persistence.Event{
		ID:        f.ID,
		Title:     f.Title,
		Building:  f.Building,
		Room:      f.Room,
		EventDate: f.EventDate,
		StartTime: f.StartTime,
		EndTime:   f.EndTime,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// ----------------------------- Item fixtures -----------------------------

// ItemFixture represents a deterministic claimable item record.
type ItemFixture struct {
	ID           string
	EventID      string
	Name         string
	Icon         string
	TotalQty     int
	RemainingQty int
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// ItemOption configures the generated item fixture.
type ItemOption func(*ItemFixture)

// NewItemFixture returns a deterministic item fixture with optional overrides.
func NewItemFixture(opts ...ItemOption) ItemFixture {
	idx := atomic.AddUint64(&itemCounter, 1)
	id := fmt.Sprintf("item-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := ItemFixture{
		ID:           id,
		EventID:      fmt.Sprintf("event-%03d", idx),
		Name:         fmt.Sprintf("Item %03d", idx),
		Icon:         "pizza",
		TotalQty:     10,
		RemainingQty: 10,
		ExpiresAt:    created.Add(4 * time.Hour),
		CreatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithItemID overrides the generated item ID.
func WithItemID(id string) ItemOption {
	return func(f *ItemFixture) {
		f.ID = id
	}
}

// WithItemEventID sets the owning event ID.
func WithItemEventID(id string) ItemOption {
	return func(f *ItemFixture) {
		f.EventID = id
	}
}

// WithItemName overrides the generated name.
func WithItemName(name string) ItemOption {
	return func(f *ItemFixture) {
		f.Name = name
	}
}

// WithItemIcon overrides the generated icon.
func WithItemIcon(icon string) ItemOption {
	return func(f *ItemFixture) {
		f.Icon = icon
	}
}

// WithItemQuantities sets the total and remaining serving counts.
func WithItemQuantities(total, remaining int) ItemOption {
	return func(f *ItemFixture) {
		f.TotalQty = total
		f.RemainingQty = remaining
	}
}

// WithItemExpiresAt sets the expiry timestamp.
func WithItemExpiresAt(t time.Time) ItemOption {
	return func(f *ItemFixture) {
		f.ExpiresAt = t
	}
}

// WithItemCreatedAt sets the created timestamp.
func WithItemCreatedAt(t time.Time) ItemOption {
	return func(f *ItemFixture) {
		f.CreatedAt = t
	}
}

// Application returns the fixture as an application.Item value.
func (f ItemFixture) Application() application.Item {
	return application.Item{
		ID:           f.ID,
		EventID:      f.EventID,
		Name:         f.Name,
		Icon:         f.Icon,
		TotalQty:     f.TotalQty,
		RemainingQty: f.RemainingQty,
		ExpiresAt:    f.ExpiresAt,
		CreatedAt:    f.CreatedAt,
	}
}

// Input returns the fixture as an application.ItemInput.
func (f ItemFixture) Input() application.ItemInput {
	return application.ItemInput{
		EventID:   f.EventID,
		Name:      f.Name,
		Icon:      f.Icon,
		TotalQty:  f.TotalQty,
		ExpiresAt: f.ExpiresAt,
	}
}

// Persistence returns the fixture as a persistence.Item value.
func (f ItemFixture) Persistence() persistence.Item {
	return persistence.Item{
		ID:           f.ID,
		EventID:      f.EventID,
		Name:         f.Name,
		Icon:         f.Icon,
		TotalQty:     f.TotalQty,
		RemainingQty: f.RemainingQty,
		ExpiresAt:    f.ExpiresAt,
		CreatedAt:    f.CreatedAt,
	}
}

// ----------------------------- Claim fixtures ----------------------------

// ClaimFixture represents a deterministic reservation record.
type ClaimFixture struct {
	ID        string
	UserID    string
	ItemID    string
	Qty       int
	ClaimedAt time.Time
}

// ClaimOption configures the generated claim fixture.
type ClaimOption func(*ClaimFixture)

// NewClaimFixture returns a deterministic claim fixture with optional overrides.
func NewClaimFixture(opts ...ClaimOption) ClaimFixture {
	idx := atomic.AddUint64(&claimCounter, 1)
	fixture := ClaimFixture{
		ID:        fmt.Sprintf("claim-%03d", idx),
		UserID:    fmt.Sprintf("user-%03d", idx),
		ItemID:    fmt.Sprintf("item-%03d", idx),
		Qty:       1,
		ClaimedAt: referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithClaimID overrides the generated claim ID.
func WithClaimID(id string) ClaimOption {
	return func(f *ClaimFixture) {
		f.ID = id
	}
}

// WithClaimUserID sets the claiming user ID.
func WithClaimUserID(id string) ClaimOption {
	return func(f *ClaimFixture) {
		f.UserID = id
	}
}

// WithClaimItemID sets the claimed item ID.
func WithClaimItemID(id string) ClaimOption {
	return func(f *ClaimFixture) {
		f.ItemID = id
	}
}

// WithClaimQty sets the claimed serving count.
func WithClaimQty(qty int) ClaimOption {
	return func(f *ClaimFixture) {
		f.Qty = qty
	}
}

// WithClaimClaimedAt sets the claim timestamp.
func WithClaimClaimedAt(t time.Time) ClaimOption {
	return func(f *ClaimFixture) {
		f.ClaimedAt = t
	}
}

// Application returns the fixture as an application.Claim value.
func (f ClaimFixture) Application() application.Claim {
	return application.Claim{
		ID:        f.ID,
		UserID:    f.UserID,
		ItemID:    f.ItemID,
		Qty:       f.Qty,
		ClaimedAt: f.ClaimedAt,
	}
}

// Persistence returns the fixture as a persistence.Claim value.
func (f ClaimFixture) Persistence() persistence.Claim {
	return persistence.Claim{
		ID:        f.ID,
		UserID:    f.UserID,
		ItemID:    f.ItemID,
		Qty:       f.Qty,
		ClaimedAt: f.ClaimedAt,
	}
}

// ----------------------------- Session fixtures --------------------------

// SessionFixture represents a deterministic session record.
type SessionFixture struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a deterministic session fixture with optional overrides.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	created := referenceTime
	fixture := SessionFixture{
		ID:        fmt.Sprintf("session-%03d", idx),
		UserID:    fmt.Sprintf("user-%03d", idx),
		Token:     fmt.Sprintf("token-%03d", idx),
		ExpiresAt: created.Add(24 * time.Hour),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionID overrides the session ID.
func WithSessionID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.ID = id
	}
}

// WithSessionUserID sets the user ID.
func WithSessionUserID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.UserID = id
	}
}

// WithSessionToken overrides the token value.
func WithSessionToken(token string) SessionOption {
	return func(f *SessionFixture) {
		f.Token = token
	}
}

// WithSessionExpiresAt sets the expiration timestamp.
func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.ExpiresAt = t
	}
}

// WithSessionRevokedAt sets the optional revoked timestamp.
func WithSessionRevokedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		revoked := t
		f.RevokedAt = &revoked
	}
}

// Application returns the fixture as an application.Session value.
func (f SessionFixture) Application() application.Session {
	var revoked *time.Time
	if f.RevokedAt != nil {
		t := *f.RevokedAt
		revoked = &t
	}
	return application.Session{
		ID:        f.ID,
		UserID:    f.UserID,
		Token:     f.Token,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
		RevokedAt: revoked,
	}
}

// Persistence returns the fixture as a persistence.Session value.
func (f SessionFixture) Persistence() persistence.Session {
	var revoked *time.Time
	if f.RevokedAt != nil {
		t := *f.RevokedAt
		revoked = &t
	}
	return persistence.Session{
		ID:        f.ID,
		UserID:    f.UserID,
		Token:     f.Token,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
		RevokedAt: revoked,
	}
}
