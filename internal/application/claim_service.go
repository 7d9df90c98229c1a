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

// ClaimRepository captures the persistence operations needed by the service.
// Reserve must execute the full load-check-insert-decrement sequence
// atomically; on failure no state is mutated.
type ClaimRepository interface {
	Reserve(ctx context.Context, claim Claim, quotaLimit int) (Claim, error)
	ListClaimsForUser(ctx context.Context, userID string) ([]ClaimSummary, error)
	SumClaimedQty(ctx context.Context, userID, itemID string) (int, error)
}

// ClaimService orchestrates serving reservations and claim history.
type ClaimService struct {
	claims      ClaimRepository
	idGenerator func() string
	now         func() time.Time
	quotaLimit  int
	onMutation  func()
	logger      *slog.Logger
}

// NewClaimService constructs a claim service with the provided dependencies.
// quotaLimit is the maximum total servings one user may hold of one item.
func NewClaimService(claims ClaimRepository, idGenerator func() string, now func() time.Time, quotaLimit int) *ClaimService {
	return NewClaimServiceWithLogger(claims, idGenerator, now, quotaLimit, nil)
}

// NewClaimServiceWithLogger constructs a claim service with a specified logger.
func NewClaimServiceWithLogger(claims ClaimRepository, idGenerator func() string, now func() time.Time, quotaLimit int, logger *slog.Logger) *ClaimService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if quotaLimit <= 0 {
		quotaLimit = 2
	}
	return &ClaimService{
		claims:      claims,
		idGenerator: idGenerator,
		now:         now,
		quotaLimit:  quotaLimit,
		logger:      defaultLogger(logger),
	}
}

func (s *ClaimService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ClaimService", operation, attrs...)
}

// NotifyMutations registers a callback invoked after each granted reservation,
// typically CatalogService.InvalidateStats.
func (s *ClaimService) NotifyMutations(fn func()) {
	if s == nil {
		return
	}
	s.onMutation = fn
}

// ClaimItem reserves servings of an item for the acting student. The granted
// quantity is at most one serving per call and never exceeds the remaining
// inventory or the caller's quota headroom.
func (s *ClaimService) ClaimItem(ctx context.Context, params ClaimItemParams) (claim Claim, err error) {
	if s == nil {
		err = fmt.Errorf("ClaimService is nil")
		return
	}
	if s.claims == nil {
		err = fmt.Errorf("claim repository not configured")
		return
	}

	itemID := strings.TrimSpace(params.ItemID)
	logger := s.loggerWith(ctx, "ClaimItem",
		"principal_id", params.Principal.UserID,
		"item_id", itemID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to claim item", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("claim_id", claim.ID, "qty", claim.Qty).InfoContext(ctx, "item claimed")
	}()

	if params.Principal.IsOrganizer() {
		err = ErrUnauthorized
		return
	}
	if itemID == "" {
		err = ErrNotFound
		return
	}

	claim, err = s.claims.Reserve(ctx, Claim{
		ID:        s.idGenerator(),
		UserID:    params.Principal.UserID,
		ItemID:    itemID,
		ClaimedAt: s.now(),
	}, s.quotaLimit)
	if err != nil {
		err = mapClaimRepoError(err)
		return
	}

	if s.onMutation != nil {
		s.onMutation()
	}
	return
}

// ListClaims returns the acting user's claim history, most recent first.
func (s *ClaimService) ListClaims(ctx context.Context, principal Principal) (claims []ClaimSummary, err error) {
	if s == nil {
		err = fmt.Errorf("ClaimService is nil")
		return
	}
	if s.claims == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListClaims",
		"principal_id", principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list claims", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(claims)).InfoContext(ctx, "claims listed")
	}()

	claims, err = s.claims.ListClaimsForUser(ctx, principal.UserID)
	if err != nil {
		err = mapClaimRepoError(err)
		return
	}
	return
}

// QuotaHeadroom returns how many more servings of the item the user may claim.
func (s *ClaimService) QuotaHeadroom(ctx context.Context, principal Principal, itemID string) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("ClaimService is nil")
	}
	if s.claims == nil {
		return 0, fmt.Errorf("claim repository not configured")
	}

	taken, err := s.claims.SumClaimedQty(ctx, principal.UserID, itemID)
	if err != nil {
		return 0, mapClaimRepoError(err)
	}

	headroom := s.quotaLimit - taken
	if headroom < 0 {
		headroom = 0
	}
	return headroom, nil
}

func mapClaimRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrSoldOut) {
		return ErrSoldOut
	}
	if errors.Is(err, persistence.ErrQuotaExceeded) {
		return ErrQuotaExceeded
	}
	if errors.Is(err, persistence.ErrNothingToGrant) {
		return ErrNothingToGrant
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
