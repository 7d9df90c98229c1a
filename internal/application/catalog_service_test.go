package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

type catalogRepoStub struct {
	organizerCalls int
	organizer      OrganizerStatsSnapshot
	organizerErr   error

	studentCalls int
	student      StudentStatsSnapshot
	studentErr   error
}

func (r *catalogRepoStub) OrganizerStats(ctx context.Context, expiringBefore time.Time) (OrganizerStatsSnapshot, error) {
	r.organizerCalls++
	if r.organizerErr != nil {
		return OrganizerStatsSnapshot{}, r.organizerErr
	}
	return r.organizer, nil
}

func (r *catalogRepoStub) StudentStats(ctx context.Context, userID string, expiringBefore time.Time) (StudentStatsSnapshot, error) {
	r.studentCalls++
	if r.studentErr != nil {
		return StudentStatsSnapshot{}, r.studentErr
	}
	return r.student, nil
}

func TestCatalogService_OrganizerDashboard(t *testing.T) {
	now := time.Date(2026, time.March, 9, 12, 0, 0, 0, time.UTC)
	organizer := Principal{UserID: "org-1", Role: RoleOrganizer}

	t.Run("requires organizer privileges", func(t *testing.T) {
		svc := NewCatalogService(&catalogRepoStub{}, nil, nil, nil, nil, 0)

		_, err := svc.OrganizerDashboard(context.Background(), Principal{UserID: "stu-1", Role: RoleStudent})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("assembles stats with events and items", func(t *testing.T) {
		catalog := &catalogRepoStub{organizer: OrganizerStatsSnapshot{
			EventCount:     2,
			ItemCount:      5,
			TotalServings:  40,
			ClaimedCount:   12,
			AvailableItems: 4,
			ExpiringSoon:   1,
		}}
		events := &eventRepoStub{summaries: []EventSummary{
			{Event: Event{ID: "event-1"}, ItemCount: 3},
		}}
		items := &itemRepoStub{all: []AvailableItem{
			{Item: Item{ID: "item-1", RemainingQty: 0}},
		}}

		svc := NewCatalogService(catalog, events, items, &claimRepoStub{},
			func() time.Time { return now }, 6*time.Hour)

		dashboard, err := svc.OrganizerDashboard(context.Background(), organizer)
		if err != nil {
			t.Fatalf("OrganizerDashboard failed: %v", err)
		}

		if dashboard.TotalServings != 40 || dashboard.ClaimedCount != 12 {
			t.Fatalf("unexpected aggregates: %#v", dashboard)
		}
		if len(dashboard.Events) != 1 || len(dashboard.Items) != 1 {
			t.Fatalf("expected events and items attached, got %#v", dashboard)
		}
	})

	t.Run("serves repeated reads from the cache", func(t *testing.T) {
		catalog := &catalogRepoStub{organizer: OrganizerStatsSnapshot{EventCount: 1}}
		svc := NewCatalogService(catalog, &eventRepoStub{}, &itemRepoStub{}, &claimRepoStub{},
			func() time.Time { return now }, 6*time.Hour)

		if _, err := svc.OrganizerDashboard(context.Background(), organizer); err != nil {
			t.Fatalf("first OrganizerDashboard failed: %v", err)
		}
		if _, err := svc.OrganizerDashboard(context.Background(), organizer); err != nil {
			t.Fatalf("second OrganizerDashboard failed: %v", err)
		}

		if catalog.organizerCalls != 1 {
			t.Fatalf("expected one aggregate query, got %d", catalog.organizerCalls)
		}
	})

	t.Run("re-queries aggregates after invalidation", func(t *testing.T) {
		catalog := &catalogRepoStub{organizer: OrganizerStatsSnapshot{EventCount: 1}}
		svc := NewCatalogService(catalog, &eventRepoStub{}, &itemRepoStub{}, &claimRepoStub{},
			func() time.Time { return now }, 6*time.Hour)

		if _, err := svc.OrganizerDashboard(context.Background(), organizer); err != nil {
			t.Fatalf("first OrganizerDashboard failed: %v", err)
		}
		svc.InvalidateStats()
		if _, err := svc.OrganizerDashboard(context.Background(), organizer); err != nil {
			t.Fatalf("second OrganizerDashboard failed: %v", err)
		}

		if catalog.organizerCalls != 2 {
			t.Fatalf("expected the cache to be dropped by invalidation, got %d queries", catalog.organizerCalls)
		}
	})

	t.Run("wraps aggregate query failures", func(t *testing.T) {
		catalog := &catalogRepoStub{organizerErr: errors.New("locked")}
		svc := NewCatalogService(catalog, nil, nil, nil, func() time.Time { return now }, 6*time.Hour)

		_, err := svc.OrganizerDashboard(context.Background(), organizer)
		if !errors.Is(err, ErrStoreUnavailable) {
			t.Fatalf("expected ErrStoreUnavailable, got %v", err)
		}
	})
}

func TestCatalogService_StudentDashboard(t *testing.T) {
	now := time.Date(2026, time.March, 9, 12, 0, 0, 0, time.UTC)
	student := Principal{UserID: "stu-1", Role: RoleStudent}

	t.Run("assembles stats with catalog and history", func(t *testing.T) {
		catalog := &catalogRepoStub{student: StudentStatsSnapshot{
			TotalAvailable: 4,
			ExpiringSoon:   1,
			ClaimCount:     2,
			ServingsTotal:  2,
		}}
		items := &itemRepoStub{available: []AvailableItem{
			{Item: Item{ID: "item-2", RemainingQty: 4}},
		}}
		claims := &claimRepoStub{list: []ClaimSummary{
			{Claim: Claim{ID: "claim-1", Qty: 1}, ItemName: "Veggie Pizza"},
		}}

		svc := NewCatalogService(catalog, &eventRepoStub{}, items, claims,
			func() time.Time { return now }, 6*time.Hour)

		dashboard, err := svc.StudentDashboard(context.Background(), student)
		if err != nil {
			t.Fatalf("StudentDashboard failed: %v", err)
		}

		if dashboard.TotalAvailable != 4 || dashboard.ServingsTotal != 2 {
			t.Fatalf("unexpected aggregates: %#v", dashboard)
		}
		if len(dashboard.Items) != 1 || len(dashboard.Claims) != 1 {
			t.Fatalf("expected items and claims attached, got %#v", dashboard)
		}
	})

	t.Run("caches per principal", func(t *testing.T) {
		catalog := &catalogRepoStub{}
		svc := NewCatalogService(catalog, &eventRepoStub{}, &itemRepoStub{}, &claimRepoStub{},
			func() time.Time { return now }, 6*time.Hour)

		other := Principal{UserID: "stu-2", Role: RoleStudent}
		for _, p := range []Principal{student, student, other} {
			if _, err := svc.StudentDashboard(context.Background(), p); err != nil {
				t.Fatalf("StudentDashboard failed for %s: %v", p.UserID, err)
			}
		}

		if catalog.studentCalls != 2 {
			t.Fatalf("expected one aggregate query per principal, got %d", catalog.studentCalls)
		}
	})
}

func TestCatalogService_BrowseEvents(t *testing.T) {
	events := &eventRepoStub{summaries: []EventSummary{
		{Event: Event{ID: "event-1", Title: "Club Fair Leftovers"}, ItemCount: 2},
	}}
	svc := NewCatalogService(&catalogRepoStub{}, events, nil, nil, nil, 0)

	summaries, err := svc.BrowseEvents(context.Background(), Principal{UserID: "stu-1", Role: RoleStudent})
	if err != nil {
		t.Fatalf("BrowseEvents failed: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ItemCount != 2 {
		t.Fatalf("unexpected summaries: %#v", summaries)
	}
}
