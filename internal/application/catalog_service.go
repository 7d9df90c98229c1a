package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// CatalogRepository exposes the read-only aggregates consumed by dashboards.
type CatalogRepository interface {
	OrganizerStats(ctx context.Context, expiringBefore time.Time) (OrganizerStatsSnapshot, error)
	StudentStats(ctx context.Context, userID string, expiringBefore time.Time) (StudentStatsSnapshot, error)
}

// OrganizerStatsSnapshot is the raw aggregate row backing the organizer dashboard.
type OrganizerStatsSnapshot struct {
	EventCount     int
	ItemCount      int
	TotalServings  int
	ClaimedCount   int
	AvailableItems int
	ExpiringSoon   int
}

// StudentStatsSnapshot is the raw aggregate row backing the student dashboard.
type StudentStatsSnapshot struct {
	TotalAvailable int
	ExpiringSoon   int
	ClaimCount     int
	ServingsTotal  int
}

// CatalogService assembles the dashboard views. Aggregates are snapshot reads
// cached briefly; they never participate in reservation transactions.
type CatalogService struct {
	catalog        CatalogRepository
	events         EventRepository
	items          ItemRepository
	claims         ClaimRepository
	now            func() time.Time
	expiringWindow time.Duration
	cache          *statsCache
	logger         *slog.Logger
}

// NewCatalogService constructs a catalog service with the provided dependencies.
// expiringWindow is how far ahead an item's expiry may be for it to count as
// expiring soon.
func NewCatalogService(catalog CatalogRepository, events EventRepository, items ItemRepository, claims ClaimRepository, now func() time.Time, expiringWindow time.Duration) *CatalogService {
	return NewCatalogServiceWithLogger(catalog, events, items, claims, now, expiringWindow, nil)
}

// NewCatalogServiceWithLogger constructs a catalog service with a specified logger.
func NewCatalogServiceWithLogger(catalog CatalogRepository, events EventRepository, items ItemRepository, claims ClaimRepository, now func() time.Time, expiringWindow time.Duration, logger *slog.Logger) *CatalogService {
	if now == nil {
		now = time.Now
	}
	if expiringWindow <= 0 {
		expiringWindow = 6 * time.Hour
	}
	return &CatalogService{
		catalog:        catalog,
		events:         events,
		items:          items,
		claims:         claims,
		now:            now,
		expiringWindow: expiringWindow,
		cache:          newStatsCache(0, 0, now),
		logger:         defaultLogger(logger),
	}
}

func (s *CatalogService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CatalogService", operation, attrs...)
}

// InvalidateStats drops every cached dashboard snapshot so the next read
// reflects the latest catalog mutations. Event and item services call this
// after successful writes.
func (s *CatalogService) InvalidateStats() {
	if s == nil {
		return
	}
	s.cache.Invalidate()
}

// OrganizerDashboard returns inventory totals, events, and items for organizers.
func (s *CatalogService) OrganizerDashboard(ctx context.Context, principal Principal) (dashboard OrganizerDashboard, err error) {
	if s == nil {
		err = fmt.Errorf("CatalogService is nil")
		return
	}
	if !principal.IsOrganizer() {
		err = ErrUnauthorized
		return
	}
	if s.catalog == nil {
		err = fmt.Errorf("catalog repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "OrganizerDashboard",
		"principal_id", principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build organizer dashboard", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "organizer dashboard built")
	}()

	cacheKey := buildStatsCacheKey("organizer", principal)
	if cached, ok := s.cache.Get(cacheKey); ok {
		if snapshot, ok := cached.(OrganizerDashboard); ok {
			dashboard = snapshot
			return
		}
	}

	expiringBefore := s.now().Add(s.expiringWindow)
	var stats OrganizerStatsSnapshot
	stats, err = s.catalog.OrganizerStats(ctx, expiringBefore)
	if err != nil {
		err = mapItemRepoError(err)
		return
	}

	dashboard = OrganizerDashboard{
		EventCount:     stats.EventCount,
		ItemCount:      stats.ItemCount,
		TotalServings:  stats.TotalServings,
		ClaimedCount:   stats.ClaimedCount,
		AvailableItems: stats.AvailableItems,
		ExpiringSoon:   stats.ExpiringSoon,
	}

	if s.events != nil {
		if dashboard.Events, err = s.events.ListEventSummaries(ctx); err != nil {
			err = mapEventRepoError(err)
			return
		}
	}
	if s.items != nil {
		if dashboard.Items, err = s.items.ListAllItems(ctx); err != nil {
			err = mapItemRepoError(err)
			return
		}
	}

	s.cache.Store(cacheKey, dashboard)
	return
}

// StudentDashboard returns the available catalog and the acting student's
// claim history.
func (s *CatalogService) StudentDashboard(ctx context.Context, principal Principal) (dashboard StudentDashboard, err error) {
	if s == nil {
		err = fmt.Errorf("CatalogService is nil")
		return
	}
	if s.catalog == nil {
		err = fmt.Errorf("catalog repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "StudentDashboard",
		"principal_id", principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build student dashboard", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "student dashboard built")
	}()

	cacheKey := buildStatsCacheKey("student", principal)
	if cached, ok := s.cache.Get(cacheKey); ok {
		if snapshot, ok := cached.(StudentDashboard); ok {
			dashboard = snapshot
			return
		}
	}

	expiringBefore := s.now().Add(s.expiringWindow)
	var stats StudentStatsSnapshot
	stats, err = s.catalog.StudentStats(ctx, principal.UserID, expiringBefore)
	if err != nil {
		err = mapItemRepoError(err)
		return
	}

	dashboard = StudentDashboard{
		TotalAvailable: stats.TotalAvailable,
		ExpiringSoon:   stats.ExpiringSoon,
		ClaimCount:     stats.ClaimCount,
		ServingsTotal:  stats.ServingsTotal,
	}

	if s.items != nil {
		if dashboard.Items, err = s.items.ListAvailableItems(ctx); err != nil {
			err = mapItemRepoError(err)
			return
		}
	}
	if s.claims != nil {
		if dashboard.Claims, err = s.claims.ListClaimsForUser(ctx, principal.UserID); err != nil {
			err = mapClaimRepoError(err)
			return
		}
	}

	s.cache.Store(cacheKey, dashboard)
	return
}

// BrowseEvents returns all events with item counts for any authenticated user.
func (s *CatalogService) BrowseEvents(ctx context.Context, principal Principal) (events []EventSummary, err error) {
	if s == nil {
		err = fmt.Errorf("CatalogService is nil")
		return
	}
	if s.events == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "BrowseEvents",
		"principal_id", principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to browse events", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(events)).InfoContext(ctx, "events browsed")
	}()

	events, err = s.events.ListEventSummaries(ctx)
	if err != nil {
		err = mapEventRepoError(err)
		return
	}
	return
}
