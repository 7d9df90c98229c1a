package sqlite

import (
	"context"
	"time"

	"github.com/example/freebites/internal/persistence"
)

// CatalogRepository implements persistence.CatalogRepository using SQLite.
// The aggregates are snapshot reads for dashboard views; they never
// participate in reservation transactions.
type CatalogRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewCatalogRepository creates a new SQLite catalog repository.
func NewCatalogRepository(pool *ConnectionPool) *CatalogRepository {
	return &CatalogRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// OrganizerStats aggregates inventory across all events: how much was
// posted, how much was claimed, and how many items expire before the given
// cutoff while still holding inventory.
func (r *CatalogRepository) OrganizerStats(ctx context.Context, expiringBefore time.Time) (persistence.OrganizerStats, error) {
	var stats persistence.OrganizerStats

	err := r.helper.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&stats.EventCount)
	if err != nil {
		return persistence.OrganizerStats{}, r.mapper.MapError(err)
	}

	err = r.helper.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(total_qty), 0),
		       COALESCE(SUM(total_qty - remaining_qty), 0),
		       COALESCE(SUM(CASE WHEN remaining_qty > 0 THEN 1 ELSE 0 END), 0)
		FROM items
	`).Scan(&stats.ItemCount, &stats.TotalQty, &stats.ClaimedQty, &stats.AvailableCnt)
	if err != nil {
		return persistence.OrganizerStats{}, r.mapper.MapError(err)
	}

	err = r.helper.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM items
		WHERE remaining_qty > 0 AND expires_at <= ?
	`, expiringBefore.UTC().Format(time.RFC3339)).Scan(&stats.ExpiringCnt)
	if err != nil {
		return persistence.OrganizerStats{}, r.mapper.MapError(err)
	}

	return stats, nil
}

// StudentStats aggregates what one student can see: currently available
// items, items expiring before the cutoff, and their own claim history.
func (r *CatalogRepository) StudentStats(ctx context.Context, userID string, expiringBefore time.Time) (persistence.StudentStats, error) {
	var stats persistence.StudentStats

	err := r.helper.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN expires_at <= ? THEN 1 ELSE 0 END), 0)
		FROM items
		WHERE remaining_qty > 0
	`, expiringBefore.UTC().Format(time.RFC3339)).Scan(&stats.TotalAvailable, &stats.ExpiringSoon)
	if err != nil {
		return persistence.StudentStats{}, r.mapper.MapError(err)
	}

	err = r.helper.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(qty), 0)
		FROM claims
		WHERE user_id = ?
	`, userID).Scan(&stats.ClaimCount, &stats.ServingsTotal)
	if err != nil {
		return persistence.StudentStats{}, r.mapper.MapError(err)
	}

	return stats, nil
}
