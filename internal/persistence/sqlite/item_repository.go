package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/freebites/internal/persistence"
)

// ItemRepository implements persistence.ItemRepository using SQLite. Inventory
// counts are only ever decremented through ClaimRepository.Reserve; this
// repository covers creation and read paths.
type ItemRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewItemRepository creates a new SQLite item repository.
func NewItemRepository(pool *ConnectionPool) *ItemRepository {
	return &ItemRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateItem inserts a new item seeded with RemainingQty = TotalQty.
func (r *ItemRepository) CreateItem(ctx context.Context, item persistence.Item) error {
	if item.ID == "" || item.EventID == "" || item.Name == "" {
		return persistence.ErrConstraintViolation
	}
	if item.TotalQty <= 0 {
		return persistence.ErrConstraintViolation
	}

	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO items (id, event_id, name, icon, total_qty, remaining_qty, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		item.ID,
		item.EventID,
		item.Name,
		item.Icon,
		item.TotalQty,
		item.TotalQty,
		item.ExpiresAt.UTC().Format(time.RFC3339),
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// GetItem retrieves an item by ID.
func (r *ItemRepository) GetItem(ctx context.Context, id string) (persistence.Item, error) {
	if id == "" {
		return persistence.Item{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, event_id, name, icon, total_qty, remaining_qty, expires_at, created_at
		FROM items
		WHERE id = ?
	`

	var item persistence.Item
	var expiresAtStr, createdAtStr string

	err := r.helper.QueryRow(ctx, query, id).Scan(
		&item.ID,
		&item.EventID,
		&item.Name,
		&item.Icon,
		&item.TotalQty,
		&item.RemainingQty,
		&expiresAtStr,
		&createdAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Item{}, persistence.ErrNotFound
		}
		return persistence.Item{}, r.mapper.MapError(err)
	}

	if item.ExpiresAt, err = time.Parse(time.RFC3339, expiresAtStr); err != nil {
		return persistence.Item{}, fmt.Errorf("failed to parse expires_at: %w", err)
	}
	if item.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Item{}, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return item, nil
}

// ListAvailableItems returns items with remaining inventory, joined with
// their event context, soonest expiry first.
func (r *ItemRepository) ListAvailableItems(ctx context.Context) ([]persistence.AvailableItem, error) {
	query := `
		SELECT i.id, i.event_id, i.name, i.icon, i.total_qty, i.remaining_qty,
		       i.expires_at, i.created_at, e.title, e.building, e.room
		FROM items i
		JOIN events e ON e.id = i.event_id
		WHERE i.remaining_qty > 0
		ORDER BY i.expires_at ASC
	`

	return r.queryAvailableItems(ctx, query)
}

// ListItemsWithEventTitles returns every item joined with its event context,
// including sold out ones, newest first.
func (r *ItemRepository) ListItemsWithEventTitles(ctx context.Context) ([]persistence.AvailableItem, error) {
	query := `
		SELECT i.id, i.event_id, i.name, i.icon, i.total_qty, i.remaining_qty,
		       i.expires_at, i.created_at, e.title, e.building, e.room
		FROM items i
		JOIN events e ON e.id = i.event_id
		ORDER BY i.created_at DESC
	`

	return r.queryAvailableItems(ctx, query)
}

func (r *ItemRepository) queryAvailableItems(ctx context.Context, query string, args ...any) ([]persistence.AvailableItem, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var items []persistence.AvailableItem
	for rows.Next() {
		var item persistence.AvailableItem
		var expiresAtStr, createdAtStr string

		err := rows.Scan(
			&item.ID,
			&item.EventID,
			&item.Name,
			&item.Icon,
			&item.TotalQty,
			&item.RemainingQty,
			&expiresAtStr,
			&createdAtStr,
			&item.EventTitle,
			&item.Building,
			&item.Room,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}

		if item.ExpiresAt, err = time.Parse(time.RFC3339, expiresAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse expires_at: %w", err)
		}
		if item.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	return items, nil
}
