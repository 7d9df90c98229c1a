package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/freebites/internal/persistence"
	"github.com/example/freebites/internal/testfixtures"
)

// repositoryBackends lists every storage implementation expected to satisfy
// the repository contracts. Each test below runs once per backend.
var repositoryBackends = []struct {
	name string
	open func(tb testing.TB) *testfixtures.Harness
}{
	{"sqlite", testfixtures.NewSQLiteHarness},
	{"memory", testfixtures.NewMemoryHarness},
}

func TestUserRepositoryRoundTrip(t *testing.T) {
	for _, backend := range repositoryBackends {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			harness := backend.open(t)
			defer harness.Close()

			user := harness.SeedUser(t, testfixtures.NewUserFixture(
				testfixtures.WithUserID("user-alice"),
				testfixtures.WithUserEmail("alice@campus.edu"),
				testfixtures.WithUserRole("organizer"),
			))

			fetched, err := harness.Users.GetUser(ctx, user.ID)
			if err != nil {
				t.Fatalf("GetUser failed: %v", err)
			}
			if fetched.Email != user.Email || fetched.Role != persistence.RoleOrganizer {
				t.Fatalf("unexpected user: %#v", fetched)
			}

			fetched, err = harness.Users.GetUserByEmail(ctx, "ALICE@CAMPUS.EDU")
			if err != nil {
				t.Fatalf("GetUserByEmail failed: %v", err)
			}
			if fetched.ID != user.ID {
				t.Fatalf("expected case-insensitive lookup to return %s, got %#v", user.ID, fetched)
			}

			duplicate := testfixtures.NewUserFixture(
				testfixtures.WithUserEmail("alice@campus.edu"),
			)
			if err := harness.Users.CreateUser(ctx, duplicate.Persistence()); !errors.Is(err, persistence.ErrDuplicate) {
				t.Fatalf("expected persistence.ErrDuplicate, got %v", err)
			}
		})
	}
}

func TestClaimReservationFlow(t *testing.T) {
	for _, backend := range repositoryBackends {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			harness := backend.open(t)
			defer harness.Close()

			student := harness.SeedUser(t, testfixtures.NewUserFixture(
				testfixtures.WithUserID("user-student"),
				testfixtures.WithUserEmail("student@campus.edu"),
			))
			event := harness.SeedEvent(t, testfixtures.NewEventFixture(
				testfixtures.WithEventID("event-fair"),
				testfixtures.WithEventTitle("Club Fair Leftovers"),
			))
			item := harness.SeedItem(t, testfixtures.NewItemFixture(
				testfixtures.WithItemID("item-pizza"),
				testfixtures.WithItemEventID(event.ID),
				testfixtures.WithItemQuantities(5, 5),
			))

			first := testfixtures.NewClaimFixture(
				testfixtures.WithClaimID("claim-first"),
				testfixtures.WithClaimUserID(student.ID),
				testfixtures.WithClaimItemID(item.ID),
			)
			granted, err := harness.Claims.Reserve(ctx, first.Persistence(), 2)
			if err != nil {
				t.Fatalf("Reserve failed: %v", err)
			}
			if granted.Qty != 1 {
				t.Fatalf("expected a single serving granted, got %d", granted.Qty)
			}

			second := testfixtures.NewClaimFixture(
				testfixtures.WithClaimID("claim-second"),
				testfixtures.WithClaimUserID(student.ID),
				testfixtures.WithClaimItemID(item.ID),
			)
			if _, err := harness.Claims.Reserve(ctx, second.Persistence(), 2); err != nil {
				t.Fatalf("Reserve failed: %v", err)
			}

			third := testfixtures.NewClaimFixture(
				testfixtures.WithClaimUserID(student.ID),
				testfixtures.WithClaimItemID(item.ID),
			)
			if _, err := harness.Claims.Reserve(ctx, third.Persistence(), 2); !errors.Is(err, persistence.ErrQuotaExceeded) {
				t.Fatalf("expected persistence.ErrQuotaExceeded, got %v", err)
			}

			stored, err := harness.Items.GetItem(ctx, item.ID)
			if err != nil {
				t.Fatalf("GetItem failed: %v", err)
			}
			if stored.RemainingQty != 3 {
				t.Fatalf("expected remaining 3 after two grants, got %d", stored.RemainingQty)
			}

			claims, err := harness.Claims.ListClaimsForUser(ctx, student.ID)
			if err != nil {
				t.Fatalf("ListClaimsForUser failed: %v", err)
			}
			if len(claims) != 2 {
				t.Fatalf("expected 2 claims, got %d", len(claims))
			}
			if claims[0].ItemName != item.Name || claims[0].EventTitle != event.Title {
				t.Fatalf("expected joined item and event context, got %#v", claims[0])
			}
		})
	}
}

func TestSessionRepositoryRoundTrip(t *testing.T) {
	for _, backend := range repositoryBackends {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			harness := backend.open(t)
			defer harness.Close()

			user := harness.SeedUser(t, testfixtures.NewUserFixture(
				testfixtures.WithUserID("user-session"),
				testfixtures.WithUserEmail("session@campus.edu"),
			))

			fixture := testfixtures.NewSessionFixture(
				testfixtures.WithSessionID("session-round-trip"),
				testfixtures.WithSessionUserID(user.ID),
				testfixtures.WithSessionToken("token-round-trip"),
			)
			if _, err := harness.Sessions.CreateSession(ctx, fixture.Persistence()); err != nil {
				t.Fatalf("CreateSession failed: %v", err)
			}

			fetched, err := harness.Sessions.GetSession(ctx, fixture.Token)
			if err != nil {
				t.Fatalf("GetSession failed: %v", err)
			}
			if fetched.UserID != user.ID || fetched.RevokedAt != nil {
				t.Fatalf("unexpected session: %#v", fetched)
			}

			revokedAt := testfixtures.ReferenceTime().Add(12 * time.Hour)
			revoked, err := harness.Sessions.RevokeSession(ctx, fixture.Token, revokedAt)
			if err != nil {
				t.Fatalf("RevokeSession failed: %v", err)
			}
			if revoked.RevokedAt == nil || !revoked.RevokedAt.Equal(revokedAt) {
				t.Fatalf("expected revoked timestamp %v, got %#v", revokedAt, revoked.RevokedAt)
			}

			if err := harness.Sessions.DeleteExpiredSessions(ctx, fixture.ExpiresAt.Add(time.Hour)); err != nil {
				t.Fatalf("DeleteExpiredSessions failed: %v", err)
			}
			if _, err := harness.Sessions.GetSession(ctx, fixture.Token); !errors.Is(err, persistence.ErrNotFound) {
				t.Fatalf("expected session pruned, got %v", err)
			}
		})
	}
}
