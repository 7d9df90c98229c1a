package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/freebites/internal/persistence"
)

func TestEventRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	now := time.Now().UTC().Truncate(time.Second)
	event := persistence.Event{
		ID:        "event-1",
		Title:     "Club Fair Leftovers",
		Building:  "Havener Center",
		Room:      "Atrium",
		EventDate: "2026-03-10",
		StartTime: "12:00",
		EndTime:   "14:00",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := storage.Events.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	fetched, err := storage.Events.GetEvent(ctx, "event-1")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if fetched.Title != "Club Fair Leftovers" || fetched.Building != "Havener Center" {
		t.Fatalf("unexpected event: %#v", fetched)
	}
	if fetched.EventDate != "2026-03-10" || fetched.StartTime != "12:00" {
		t.Fatalf("unexpected schedule fields: %#v", fetched)
	}
}

func TestEventRepository_Update(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	event := seedEvent(t, storage, "event-1")

	event.Title = "Updated Title"
	event.Room = "Room 220"
	event.UpdatedAt = event.UpdatedAt.Add(time.Hour)
	if err := storage.Events.UpdateEvent(ctx, event); err != nil {
		t.Fatalf("UpdateEvent failed: %v", err)
	}

	fetched, err := storage.Events.GetEvent(ctx, "event-1")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if fetched.Title != "Updated Title" || fetched.Room != "Room 220" {
		t.Fatalf("unexpected event after update: %#v", fetched)
	}
}

func TestEventRepository_Update_Missing(t *testing.T) {
	storage := newTestStorage(t)

	err := storage.Events.UpdateEvent(context.Background(), persistence.Event{
		ID:    "event-missing",
		Title: "Ghost",
	})
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEventRepository_ListEventsWithItemCounts(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	seedEvent(t, storage, "event-1")
	seedEvent(t, storage, "event-2")
	seedItem(t, storage, "item-1", "event-1", 5)
	seedItem(t, storage, "item-2", "event-1", 3)

	events, err := storage.Events.ListEventsWithItemCounts(ctx)
	if err != nil {
		t.Fatalf("ListEventsWithItemCounts failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	counts := make(map[string]int, len(events))
	for _, event := range events {
		counts[event.ID] = event.ItemCount
	}
	if counts["event-1"] != 2 || counts["event-2"] != 0 {
		t.Fatalf("unexpected item counts: %v", counts)
	}
}

func TestEventRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	seedUser(t, storage, "user-1", "alice@campus.edu", persistence.RoleStudent)
	seedEvent(t, storage, "event-1")
	seedItem(t, storage, "item-1", "event-1", 5)

	if _, err := storage.Claims.Reserve(ctx, persistence.Claim{
		ID:     "claim-1",
		UserID: "user-1",
		ItemID: "item-1",
	}, 2); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	if err := storage.Events.DeleteEvent(ctx, "event-1"); err != nil {
		t.Fatalf("DeleteEvent failed: %v", err)
	}

	if _, err := storage.Events.GetEvent(ctx, "event-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected event gone, got %v", err)
	}
	if _, err := storage.Items.GetItem(ctx, "item-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected item cascade deleted, got %v", err)
	}

	claims, err := storage.Claims.ListClaimsForUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListClaimsForUser failed: %v", err)
	}
	if len(claims) != 0 {
		t.Fatalf("expected claims cascade deleted, got %#v", claims)
	}
}

func TestEventRepository_Delete_Missing(t *testing.T) {
	storage := newTestStorage(t)

	err := storage.Events.DeleteEvent(context.Background(), "event-missing")
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
