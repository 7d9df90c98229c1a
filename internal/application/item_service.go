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

// ItemRepository captures the persistence operations needed by the service.
type ItemRepository interface {
	CreateItem(ctx context.Context, item Item) (Item, error)
	GetItem(ctx context.Context, id string) (Item, error)
	ListAvailableItems(ctx context.Context) ([]AvailableItem, error)
	ListAllItems(ctx context.Context) ([]AvailableItem, error)
}

// ItemService orchestrates validation, authorization, and persistence for items.
type ItemService struct {
	items       ItemRepository
	events      EventRepository
	idGenerator func() string
	now         func() time.Time
	onMutation  func()
	logger      *slog.Logger
}

// NewItemService constructs an item service with the provided dependencies.
func NewItemService(items ItemRepository, events EventRepository, idGenerator func() string, now func() time.Time) *ItemService {
	return NewItemServiceWithLogger(items, events, idGenerator, now, nil)
}

// NewItemServiceWithLogger constructs an item service with a specified logger.
func NewItemServiceWithLogger(items ItemRepository, events EventRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ItemService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ItemService{items: items, events: events, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *ItemService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ItemService", operation, attrs...)
}

// NotifyMutations registers a callback invoked after each successful item
// write, typically CatalogService.InvalidateStats.
func (s *ItemService) NotifyMutations(fn func()) {
	if s == nil {
		return
	}
	s.onMutation = fn
}

func (s *ItemService) mutated() {
	if s.onMutation != nil {
		s.onMutation()
	}
}

// CreateItem validates input and persists a new item for organizers. The item
// starts with its full inventory available.
func (s *ItemService) CreateItem(ctx context.Context, params CreateItemParams) (item Item, err error) {
	if s == nil {
		err = fmt.Errorf("ItemService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateItem",
		"principal_id", params.Principal.UserID,
		"event_id", params.Input.EventID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create item", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("item_id", item.ID).InfoContext(ctx, "item created")
	}()

	if !params.Principal.IsOrganizer() {
		err = ErrUnauthorized
		return
	}

	vErr := validateItemInput(params.Input, s.now())
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if s.events != nil {
		if _, err = s.events.GetEvent(ctx, params.Input.EventID); err != nil {
			err = mapEventRepoError(err)
			return
		}
	}

	item = Item{
		ID:           s.idGenerator(),
		EventID:      strings.TrimSpace(params.Input.EventID),
		Name:         strings.TrimSpace(params.Input.Name),
		Icon:         strings.TrimSpace(params.Input.Icon),
		TotalQty:     params.Input.TotalQty,
		RemainingQty: params.Input.TotalQty,
		ExpiresAt:    params.Input.ExpiresAt,
		CreatedAt:    s.now(),
	}

	if s.items == nil {
		return
	}

	var persisted Item
	persisted, err = s.items.CreateItem(ctx, item)
	if err != nil {
		err = mapItemRepoError(err)
		return
	}

	item = persisted
	s.mutated()
	return
}

// GetItem returns a single item for any authenticated user.
func (s *ItemService) GetItem(ctx context.Context, principal Principal, itemID string) (item Item, err error) {
	if s == nil {
		err = fmt.Errorf("ItemService is nil")
		return
	}
	if s.items == nil {
		err = fmt.Errorf("item repository not configured")
		return
	}

	item, err = s.items.GetItem(ctx, itemID)
	if err != nil {
		err = mapItemRepoError(err)
		s.loggerWith(ctx, "GetItem", "principal_id", principal.UserID, "item_id", itemID).
			ErrorContext(ctx, "failed to get item", "error", err, "error_kind", ErrorKind(err))
		return
	}
	return
}

// ListAvailableItems returns items that still have inventory, soonest expiry
// first, for any authenticated user.
func (s *ItemService) ListAvailableItems(ctx context.Context, principal Principal) (items []AvailableItem, err error) {
	if s == nil {
		err = fmt.Errorf("ItemService is nil")
		return
	}
	if s.items == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListAvailableItems",
		"principal_id", principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list available items", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(items)).InfoContext(ctx, "available items listed")
	}()

	items, err = s.items.ListAvailableItems(ctx)
	if err != nil {
		err = mapItemRepoError(err)
		return
	}
	return
}

// ListAllItems returns every item including sold out ones for organizers.
func (s *ItemService) ListAllItems(ctx context.Context, principal Principal) (items []AvailableItem, err error) {
	if s == nil {
		err = fmt.Errorf("ItemService is nil")
		return
	}
	if !principal.IsOrganizer() {
		err = ErrUnauthorized
		return
	}
	if s.items == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListAllItems",
		"principal_id", principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list items", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(items)).InfoContext(ctx, "items listed")
	}()

	items, err = s.items.ListAllItems(ctx)
	if err != nil {
		err = mapItemRepoError(err)
		return
	}
	return
}

func validateItemInput(input ItemInput, now time.Time) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.EventID) == "" {
		vErr.add("event_id", "event is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if strings.TrimSpace(input.Icon) == "" {
		vErr.add("icon", "icon is required")
	}
	if input.TotalQty <= 0 {
		vErr.add("total_qty", "total quantity must be positive")
	}
	if input.ExpiresAt.IsZero() {
		vErr.add("expires_at", "expiry time is required")
	} else if !input.ExpiresAt.After(now) {
		vErr.add("expires_at", "expiry time must be in the future")
	}

	return vErr
}

func mapItemRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("total_qty", "total quantity must be positive")
		return vErr
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
