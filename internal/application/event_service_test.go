package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/freebites/internal/persistence"
)

type eventRepoStub struct {
	createErr error
	created   Event

	getEvent Event
	getErr   error

	updateErr error
	updated   Event

	deleteErr error
	deletedID string

	summaries   []EventSummary
	summariesErr error
}

func (r *eventRepoStub) CreateEvent(ctx context.Context, event Event) (Event, error) {
	if r.createErr != nil {
		return Event{}, r.createErr
	}
	r.created = event
	return event, nil
}

func (r *eventRepoStub) UpdateEvent(ctx context.Context, event Event) (Event, error) {
	if r.updateErr != nil {
		return Event{}, r.updateErr
	}
	r.updated = event
	return event, nil
}

func (r *eventRepoStub) GetEvent(ctx context.Context, id string) (Event, error) {
	if r.getErr != nil {
		return Event{}, r.getErr
	}
	if r.getEvent.ID == "" {
		return Event{}, ErrNotFound
	}
	return r.getEvent, nil
}

func (r *eventRepoStub) ListEvents(ctx context.Context) ([]Event, error) {
	return nil, nil
}

func (r *eventRepoStub) ListEventSummaries(ctx context.Context) ([]EventSummary, error) {
	if r.summariesErr != nil {
		return nil, r.summariesErr
	}
	if len(r.summaries) == 0 {
		return nil, nil
	}
	out := make([]EventSummary, len(r.summaries))
	copy(out, r.summaries)
	return out, nil
}

func (r *eventRepoStub) DeleteEvent(ctx context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deletedID = id
	return nil
}

func validEventInput() EventInput {
	return EventInput{
		Title:     "Club Fair Leftovers",
		Building:  "Havener Center",
		Room:      "Atrium",
		EventDate: "2026-03-10",
		StartTime: "12:00",
		EndTime:   "14:00",
	}
}

func TestEventService_CreateEvent(t *testing.T) {
	now := time.Date(2026, time.March, 9, 12, 0, 0, 0, time.UTC)

	t.Run("requires organizer privileges", func(t *testing.T) {
		svc := NewEventService(nil, nil, nil)

		_, err := svc.CreateEvent(context.Background(), CreateEventParams{
			Principal: Principal{UserID: "stu-1", Role: RoleStudent},
			Input:     validEventInput(),
		})

		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("validates required attributes", func(t *testing.T) {
		svc := NewEventService(nil, nil, nil)

		_, err := svc.CreateEvent(context.Background(), CreateEventParams{
			Principal: Principal{UserID: "org-1", Role: RoleOrganizer},
			Input:     EventInput{},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"title", "building", "room", "event_date", "start_time", "end_time"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s validation error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("rejects unknown buildings", func(t *testing.T) {
		svc := NewEventService(nil, nil, nil)

		input := validEventInput()
		input.Building = "Mystery Hall"

		_, err := svc.CreateEvent(context.Background(), CreateEventParams{
			Principal: Principal{UserID: "org-1", Role: RoleOrganizer},
			Input:     input,
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["building"]; !ok {
			t.Fatalf("expected building validation error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("rejects end times at or before the start", func(t *testing.T) {
		svc := NewEventService(nil, nil, nil)

		input := validEventInput()
		input.StartTime = "14:00"
		input.EndTime = "12:00"

		_, err := svc.CreateEvent(context.Background(), CreateEventParams{
			Principal: Principal{UserID: "org-1", Role: RoleOrganizer},
			Input:     input,
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["end_time"]; !ok {
			t.Fatalf("expected end_time validation error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("persists a trimmed event with generated identity", func(t *testing.T) {
		repo := &eventRepoStub{}
		svc := NewEventService(repo,
			func() string { return "event-1" },
			func() time.Time { return now },
		)

		input := validEventInput()
		input.Title = "  Club Fair Leftovers  "

		event, err := svc.CreateEvent(context.Background(), CreateEventParams{
			Principal: Principal{UserID: "org-1", Role: RoleOrganizer},
			Input:     input,
		})
		if err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}

		if event.ID != "event-1" {
			t.Fatalf("expected generated ID, got %q", event.ID)
		}
		if event.Title != "Club Fair Leftovers" {
			t.Fatalf("expected trimmed title, got %q", event.Title)
		}
		if !event.CreatedAt.Equal(now) || !event.UpdatedAt.Equal(now) {
			t.Fatalf("unexpected timestamps: %#v", event)
		}
		if repo.created.ID != "event-1" {
			t.Fatalf("expected repository to receive the event, got %#v", repo.created)
		}
	})

	t.Run("wraps unknown repository failures", func(t *testing.T) {
		repo := &eventRepoStub{createErr: errors.New("connection reset")}
		svc := NewEventService(repo, nil, nil)

		_, err := svc.CreateEvent(context.Background(), CreateEventParams{
			Principal: Principal{UserID: "org-1", Role: RoleOrganizer},
			Input:     validEventInput(),
		})

		if !errors.Is(err, ErrStoreUnavailable) {
			t.Fatalf("expected ErrStoreUnavailable, got %v", err)
		}
	})
}

func TestEventService_UpdateEvent(t *testing.T) {
	now := time.Date(2026, time.March, 9, 12, 0, 0, 0, time.UTC)

	t.Run("requires organizer privileges", func(t *testing.T) {
		svc := NewEventService(&eventRepoStub{}, nil, nil)

		_, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
			Principal: Principal{UserID: "stu-1", Role: RoleStudent},
			EventID:   "event-1",
			Input:     validEventInput(),
		})

		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("reports missing events", func(t *testing.T) {
		svc := NewEventService(&eventRepoStub{getErr: persistence.ErrNotFound}, nil, nil)

		_, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
			Principal: Principal{UserID: "org-1", Role: RoleOrganizer},
			EventID:   "event-missing",
			Input:     validEventInput(),
		})

		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("applies new fields and refreshes the update timestamp", func(t *testing.T) {
		created := now.Add(-24 * time.Hour)
		repo := &eventRepoStub{
			getEvent: Event{
				ID:        "event-1",
				Title:     "Old Title",
				Building:  "Toomey Hall",
				Room:      "199",
				EventDate: "2026-03-01",
				StartTime: "09:00",
				EndTime:   "10:00",
				CreatedAt: created,
				UpdatedAt: created,
			},
		}
		svc := NewEventService(repo, nil, func() time.Time { return now })

		event, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
			Principal: Principal{UserID: "org-1", Role: RoleOrganizer},
			EventID:   "event-1",
			Input:     validEventInput(),
		})
		if err != nil {
			t.Fatalf("UpdateEvent failed: %v", err)
		}

		if event.Title != "Club Fair Leftovers" || event.Building != "Havener Center" {
			t.Fatalf("expected updated fields, got %#v", event)
		}
		if !event.CreatedAt.Equal(created) {
			t.Fatalf("expected creation timestamp to survive, got %v", event.CreatedAt)
		}
		if !event.UpdatedAt.Equal(now) {
			t.Fatalf("expected update timestamp %v, got %v", now, event.UpdatedAt)
		}
	})
}

func TestEventService_DeleteEvent(t *testing.T) {
	t.Run("requires organizer privileges", func(t *testing.T) {
		svc := NewEventService(&eventRepoStub{}, nil, nil)

		err := svc.DeleteEvent(context.Background(), Principal{UserID: "stu-1", Role: RoleStudent}, "event-1")
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("delegates to the repository", func(t *testing.T) {
		repo := &eventRepoStub{}
		svc := NewEventService(repo, nil, nil)

		err := svc.DeleteEvent(context.Background(), Principal{UserID: "org-1", Role: RoleOrganizer}, "event-1")
		if err != nil {
			t.Fatalf("DeleteEvent failed: %v", err)
		}
		if repo.deletedID != "event-1" {
			t.Fatalf("expected delete for event-1, got %q", repo.deletedID)
		}
	})

	t.Run("reports missing events", func(t *testing.T) {
		svc := NewEventService(&eventRepoStub{deleteErr: persistence.ErrNotFound}, nil, nil)

		err := svc.DeleteEvent(context.Background(), Principal{UserID: "org-1", Role: RoleOrganizer}, "event-missing")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestEventService_MutationNotifications(t *testing.T) {
	organizer := Principal{UserID: "org-1", Role: RoleOrganizer}
	repo := &eventRepoStub{getEvent: Event{ID: "event-1"}}
	svc := NewEventService(repo, func() string { return "event-1" }, nil)

	notified := 0
	svc.NotifyMutations(func() { notified++ })

	if _, err := svc.CreateEvent(context.Background(), CreateEventParams{
		Principal: organizer,
		Input:     validEventInput(),
	}); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	if notified != 1 {
		t.Fatalf("expected 1 notification after create, got %d", notified)
	}

	if _, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
		Principal: organizer,
		EventID:   "event-1",
		Input:     validEventInput(),
	}); err != nil {
		t.Fatalf("UpdateEvent failed: %v", err)
	}
	if notified != 2 {
		t.Fatalf("expected 2 notifications after update, got %d", notified)
	}

	if err := svc.DeleteEvent(context.Background(), organizer, "event-1"); err != nil {
		t.Fatalf("DeleteEvent failed: %v", err)
	}
	if notified != 3 {
		t.Fatalf("expected 3 notifications after delete, got %d", notified)
	}

	if _, err := svc.CreateEvent(context.Background(), CreateEventParams{
		Principal: organizer,
		Input:     EventInput{},
	}); err == nil {
		t.Fatal("expected invalid input to be rejected")
	}
	if notified != 3 {
		t.Fatalf("expected no notification for a rejected write, got %d", notified)
	}
}

func TestEventService_ListEvents(t *testing.T) {
	repo := &eventRepoStub{
		summaries: []EventSummary{
			{Event: Event{ID: "event-1", Title: "Club Fair Leftovers"}, ItemCount: 3},
		},
	}
	svc := NewEventService(repo, nil, nil)

	events, err := svc.ListEvents(context.Background(), Principal{UserID: "stu-1", Role: RoleStudent})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].ItemCount != 3 {
		t.Fatalf("unexpected events: %#v", events)
	}
}
