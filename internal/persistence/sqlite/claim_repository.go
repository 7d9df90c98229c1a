package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/freebites/internal/persistence"
)

// ClaimRepository implements persistence.ClaimRepository using SQLite.
//
// Reserve runs inside a single immediate write transaction, so the
// load-check-insert-decrement sequence holds the database write lock for its
// full duration. Concurrent reservations are serialized by SQLite rather than
// detected after the fact.
type ClaimRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewClaimRepository creates a new SQLite claim repository.
func NewClaimRepository(pool *ConnectionPool) *ClaimRepository {
	return &ClaimRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// Reserve atomically grants servings of an item to a user.
//
// The granted quantity is min(1, remaining inventory, quota headroom), where
// quota headroom is quotaLimit minus the total servings the user already holds
// for this item. On any failure the transaction rolls back and no state is
// mutated. Transient lock contention is retried with backoff.
func (r *ClaimRepository) Reserve(ctx context.Context, claim persistence.Claim, quotaLimit int) (persistence.Claim, error) {
	if claim.ID == "" || claim.UserID == "" || claim.ItemID == "" {
		return persistence.Claim{}, persistence.ErrConstraintViolation
	}
	if quotaLimit <= 0 {
		return persistence.Claim{}, persistence.ErrQuotaExceeded
	}

	if claim.ClaimedAt.IsZero() {
		claim.ClaimedAt = time.Now().UTC()
	}

	var granted persistence.Claim
	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			result, err := r.reserveTx(tx, claim, quotaLimit)
			if err != nil {
				return err
			}
			granted = result
			return nil
		})
	})
	if err != nil {
		return persistence.Claim{}, err
	}

	return granted, nil
}

func (r *ClaimRepository) reserveTx(tx *sql.Tx, claim persistence.Claim, quotaLimit int) (persistence.Claim, error) {
	var remaining int
	err := r.helper.QueryRowTx(tx, `SELECT remaining_qty FROM items WHERE id = ?`, claim.ItemID).Scan(&remaining)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Claim{}, persistence.ErrNotFound
		}
		return persistence.Claim{}, r.mapper.MapError(err)
	}

	if remaining <= 0 {
		return persistence.Claim{}, persistence.ErrSoldOut
	}

	var alreadyTaken int
	err = r.helper.QueryRowTx(tx,
		`SELECT COALESCE(SUM(qty), 0) FROM claims WHERE user_id = ? AND item_id = ?`,
		claim.UserID, claim.ItemID,
	).Scan(&alreadyTaken)
	if err != nil {
		return persistence.Claim{}, r.mapper.MapError(err)
	}

	if alreadyTaken >= quotaLimit {
		return persistence.Claim{}, persistence.ErrQuotaExceeded
	}

	grant := 1
	if remaining < grant {
		grant = remaining
	}
	if headroom := quotaLimit - alreadyTaken; headroom < grant {
		grant = headroom
	}
	if grant <= 0 {
		return persistence.Claim{}, persistence.ErrNothingToGrant
	}

	_, err = r.helper.ExecTx(tx,
		`INSERT INTO claims (id, user_id, item_id, qty, claimed_at) VALUES (?, ?, ?, ?, ?)`,
		claim.ID, claim.UserID, claim.ItemID, grant, claim.ClaimedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return persistence.Claim{}, r.mapper.MapError(err)
	}

	// The guard re-checks inventory at write time. Inside an immediate
	// transaction it cannot fail, but it keeps remaining_qty from ever
	// going negative if the transaction discipline is broken elsewhere.
	result, err := r.helper.ExecTx(tx,
		`UPDATE items SET remaining_qty = remaining_qty - ? WHERE id = ? AND remaining_qty >= ?`,
		grant, claim.ItemID, grant,
	)
	if err != nil {
		return persistence.Claim{}, r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.Claim{}, fmt.Errorf("failed to check decremented rows: %w", err)
	}
	if affected == 0 {
		return persistence.Claim{}, persistence.ErrSoldOut
	}

	claim.Qty = grant
	return claim, nil
}

// ListClaimsForUser returns a user's claims joined with item and event
// titles, most recent first.
func (r *ClaimRepository) ListClaimsForUser(ctx context.Context, userID string) ([]persistence.ClaimWithContext, error) {
	if userID == "" {
		return nil, persistence.ErrNotFound
	}

	query := `
		SELECT c.id, c.user_id, c.item_id, c.qty, c.claimed_at, i.name, e.title
		FROM claims c
		JOIN items i ON i.id = c.item_id
		JOIN events e ON e.id = i.event_id
		WHERE c.user_id = ?
		ORDER BY c.claimed_at DESC
	`

	rows, err := r.helper.Query(ctx, query, userID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var claims []persistence.ClaimWithContext
	for rows.Next() {
		var claim persistence.ClaimWithContext
		var claimedAtStr string

		err := rows.Scan(
			&claim.ID,
			&claim.UserID,
			&claim.ItemID,
			&claim.Qty,
			&claimedAtStr,
			&claim.ItemName,
			&claim.EventTitle,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}

		if claim.ClaimedAt, err = time.Parse(time.RFC3339, claimedAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse claimed_at: %w", err)
		}

		claims = append(claims, claim)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate claims: %w", err)
	}

	return claims, nil
}

// SumClaimedQty returns the total servings a user holds for one item.
func (r *ClaimRepository) SumClaimedQty(ctx context.Context, userID, itemID string) (int, error) {
	var total int
	err := r.helper.QueryRow(ctx,
		`SELECT COALESCE(SUM(qty), 0) FROM claims WHERE user_id = ? AND item_id = ?`,
		userID, itemID,
	).Scan(&total)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return total, nil
}
