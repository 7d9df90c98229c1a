package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/freebites/internal/persistence"
)

// EventRepository captures the persistence operations needed by the service.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	UpdateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context) ([]Event, error)
	ListEventSummaries(ctx context.Context) ([]EventSummary, error)
	DeleteEvent(ctx context.Context, id string) error
}

// EventService orchestrates validation, authorization, and persistence for events.
type EventService struct {
	events      EventRepository
	idGenerator func() string
	now         func() time.Time
	onMutation  func()
	logger      *slog.Logger
}

// NewEventService constructs an event service with the provided dependencies.
func NewEventService(events EventRepository, idGenerator func() string, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(events, idGenerator, now, nil)
}

// NewEventServiceWithLogger constructs an event service with a specified logger.
func NewEventServiceWithLogger(events EventRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{events: events, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// NotifyMutations registers a callback invoked after each successful event
// write, typically CatalogService.InvalidateStats.
func (s *EventService) NotifyMutations(fn func()) {
	if s == nil {
		return
	}
	s.onMutation = fn
}

func (s *EventService) mutated() {
	if s.onMutation != nil {
		s.onMutation()
	}
}

// CreateEvent validates input and persists a new event for organizers.
func (s *EventService) CreateEvent(ctx context.Context, params CreateEventParams) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateEvent",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("event_id", event.ID).InfoContext(ctx, "event created")
	}()

	if !params.Principal.IsOrganizer() {
		err = ErrUnauthorized
		return
	}

	vErr := validateEventInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	event = Event{
		ID:        s.idGenerator(),
		Title:     strings.TrimSpace(params.Input.Title),
		Building:  strings.TrimSpace(params.Input.Building),
		Room:      strings.TrimSpace(params.Input.Room),
		EventDate: strings.TrimSpace(params.Input.EventDate),
		StartTime: strings.TrimSpace(params.Input.StartTime),
		EndTime:   strings.TrimSpace(params.Input.EndTime),
		CreatedAt: s.now(),
	}
	event.UpdatedAt = event.CreatedAt

	if s.events == nil {
		return
	}

	var persisted Event
	persisted, err = s.events.CreateEvent(ctx, event)
	if err != nil {
		err = mapEventRepoError(err)
		return
	}

	event = persisted
	s.mutated()
	return
}

// UpdateEvent validates input and updates an existing event for organizers.
func (s *EventService) UpdateEvent(ctx context.Context, params UpdateEventParams) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if !params.Principal.IsOrganizer() {
		err = ErrUnauthorized
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateEvent",
		"principal_id", params.Principal.UserID,
		"event_id", params.EventID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("event_id", event.ID).InfoContext(ctx, "event updated")
	}()

	var existing Event
	existing, err = s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		err = mapEventRepoError(err)
		return
	}

	vErr := validateEventInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Title = strings.TrimSpace(params.Input.Title)
	updated.Building = strings.TrimSpace(params.Input.Building)
	updated.Room = strings.TrimSpace(params.Input.Room)
	updated.EventDate = strings.TrimSpace(params.Input.EventDate)
	updated.StartTime = strings.TrimSpace(params.Input.StartTime)
	updated.EndTime = strings.TrimSpace(params.Input.EndTime)
	updated.UpdatedAt = s.now()

	event, err = s.events.UpdateEvent(ctx, updated)
	if err != nil {
		err = mapEventRepoError(err)
		return
	}

	s.mutated()
	return
}

// GetEvent returns a single event for any authenticated user.
func (s *EventService) GetEvent(ctx context.Context, principal Principal, eventID string) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event repository not configured")
		return
	}

	event, err = s.events.GetEvent(ctx, eventID)
	if err != nil {
		err = mapEventRepoError(err)
		s.loggerWith(ctx, "GetEvent", "principal_id", principal.UserID, "event_id", eventID).
			ErrorContext(ctx, "failed to get event", "error", err, "error_kind", ErrorKind(err))
		return
	}
	return
}

// ListEvents returns all events with item counts for any authenticated user.
func (s *EventService) ListEvents(ctx context.Context, principal Principal) (events []EventSummary, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.events == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListEvents",
		"principal_id", principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list events", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(events)).InfoContext(ctx, "events listed")
	}()

	events, err = s.events.ListEventSummaries(ctx)
	if err != nil {
		err = mapEventRepoError(err)
		return
	}
	return
}

// DeleteEvent removes an event, its items, and their claims for organizers.
func (s *EventService) DeleteEvent(ctx context.Context, principal Principal, eventID string) error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if !principal.IsOrganizer() {
		return ErrUnauthorized
	}
	if s.events == nil {
		return fmt.Errorf("event repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteEvent",
		"principal_id", principal.UserID,
		"event_id", eventID,
	)

	if err := s.events.DeleteEvent(ctx, eventID); err != nil {
		err = mapEventRepoError(err)
		logger.ErrorContext(ctx, "failed to delete event", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "event deleted")
	s.mutated()
	return nil
}

func validateEventInput(input EventInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}

	building := strings.TrimSpace(input.Building)
	if building == "" {
		vErr.add("building", "building is required")
	} else if !isKnownBuilding(building) {
		vErr.add("building", "building is not a recognized campus location")
	}

	if strings.TrimSpace(input.Room) == "" {
		vErr.add("room", "room is required")
	}

	if date := strings.TrimSpace(input.EventDate); date == "" {
		vErr.add("event_date", "event date is required")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		vErr.add("event_date", "event date must use YYYY-MM-DD")
	}

	start, startErr := time.Parse("15:04", strings.TrimSpace(input.StartTime))
	if strings.TrimSpace(input.StartTime) == "" {
		vErr.add("start_time", "start time is required")
	} else if startErr != nil {
		vErr.add("start_time", "start time must use HH:MM")
	}

	end, endErr := time.Parse("15:04", strings.TrimSpace(input.EndTime))
	if strings.TrimSpace(input.EndTime) == "" {
		vErr.add("end_time", "end time is required")
	} else if endErr != nil {
		vErr.add("end_time", "end time must use HH:MM")
	} else if startErr == nil && !end.After(start) {
		vErr.add("end_time", "end time must be after start time")
	}

	return vErr
}

func isKnownBuilding(building string) bool {
	for _, known := range Buildings {
		if known == building {
			return true
		}
	}
	return false
}

func mapEventRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("event", "event fields violate a storage constraint")
		return vErr
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
