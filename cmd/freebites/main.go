package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/example/freebites/internal/application"
	"github.com/example/freebites/internal/config"
	httptransport "github.com/example/freebites/internal/http"
	"github.com/example/freebites/internal/logging"
	"github.com/example/freebites/internal/persistence"
	"github.com/example/freebites/internal/persistence/sqlite"
	"github.com/example/freebites/internal/telemetry"
)

func main() {
	logger := logging.New(os.Getenv("FREEBITES_LOG_LEVEL"))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	shutdownTracing := telemetry.Setup("freebites", logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if terr := shutdownTracing(shutdownCtx); terr != nil {
			logger.Error("failed to shutdown tracing", "error", terr)
		}
	}()

	storage, err := sqlite.Open(cfg.SQLiteDSN, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := func() string { return uuid.NewString() }
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	userRepo := newUserRepositoryAdapter(storage.Users)
	eventRepo := newEventRepositoryAdapter(storage.Events)
	itemRepo := newItemRepositoryAdapter(storage.Items)
	claimRepo := newClaimRepositoryAdapter(storage.Claims)
	sessionRepo := newSessionRepositoryAdapter(storage.Sessions)
	catalogRepo := newCatalogRepositoryAdapter(storage.Catalog)
	credentialStore := newCredentialStoreAdapter(storage.Users)

	authService := application.NewAuthServiceWithLogger(credentialStore, sessionRepo, nil, tokenGenerator, now, cfg.SessionTTL, logger)
	userService := application.NewUserServiceWithLogger(userRepo, nil, idGenerator, now, logger)
	eventService := application.NewEventServiceWithLogger(eventRepo, idGenerator, now, logger)
	itemService := application.NewItemServiceWithLogger(itemRepo, eventRepo, idGenerator, now, logger)
	claimService := application.NewClaimServiceWithLogger(claimRepo, idGenerator, now, cfg.ClaimLimit, logger)
	catalogService := application.NewCatalogServiceWithLogger(catalogRepo, eventRepo, itemRepo, claimRepo, now, cfg.ExpiringWindow, logger)

	// Catalog writes drop the cached dashboard aggregates so the next
	// dashboard read sees them immediately.
	eventService.NotifyMutations(catalogService.InvalidateStats)
	itemService.NotifyMutations(catalogService.InvalidateStats)
	claimService.NotifyMutations(catalogService.InvalidateStats)

	if cfg.BootstrapEmail != "" {
		_, created, berr := userService.Bootstrap(ctx, application.UserInput{
			Email:      cfg.BootstrapEmail,
			AccessCode: cfg.BootstrapCode,
			Role:       application.RoleOrganizer,
		})
		if berr != nil {
			logger.Error("failed to bootstrap organizer account", "error", berr)
			os.Exit(1)
		}
		if created {
			logger.Info("bootstrap organizer account created", "email", cfg.BootstrapEmail)
		}
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:    httptransport.NewAuthHandler(authService, logger),
		Users:   httptransport.NewUserHandler(userService, logger),
		Events:  httptransport.NewEventHandler(eventService, logger),
		Items:   httptransport.NewItemHandler(itemService, logger),
		Claims:  httptransport.NewClaimHandler(claimService, logger),
		Catalog: httptransport.NewCatalogHandler(catalogService, logger),
		Health: func(w http.ResponseWriter, r *http.Request) {
			if err := storage.Ping(r.Context()); err != nil {
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		},
	})

	protected := httptransport.RequireSession(authService, logger)(router)
	handler := httptransport.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicRoute(r) {
			router.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	}))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           otelhttp.NewHandler(handler, "freebites"),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("freebites API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func isPublicRoute(r *http.Request) bool {
	if strings.EqualFold(r.URL.Path, "/healthz") {
		return true
	}
	return strings.EqualFold(r.URL.Path, "/sessions") && r.Method == http.MethodPost
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, user application.User, codeHash string) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user, codeHash)); err != nil {
		return application.User{}, err
	}
	stored, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, mapNotFound(err)
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, mapNotFound(err)
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) CountUsers(ctx context.Context) (int, error) {
	return a.repo.CountUsers(ctx)
}

type credentialStoreAdapter struct {
	repo persistence.UserRepository
}

func newCredentialStoreAdapter(repo persistence.UserRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{repo: repo}
}

func (a *credentialStoreAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, mapNotFound(err)
	}
	return application.UserCredentials{
		User:     toApplicationUser(stored),
		CodeHash: stored.CodeHash,
	}, nil
}

func (a *credentialStoreAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, mapNotFound(err)
	}
	return toApplicationUser(stored), nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, mapNotFound(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, mapNotFound(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

type eventRepositoryAdapter struct {
	repo persistence.EventRepository
}

func newEventRepositoryAdapter(repo persistence.EventRepository) *eventRepositoryAdapter {
	return &eventRepositoryAdapter{repo: repo}
}

func (a *eventRepositoryAdapter) CreateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	if err := a.repo.CreateEvent(ctx, toPersistenceEvent(event)); err != nil {
		return application.Event{}, err
	}
	stored, err := a.repo.GetEvent(ctx, event.ID)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) UpdateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	if err := a.repo.UpdateEvent(ctx, toPersistenceEvent(event)); err != nil {
		return application.Event{}, err
	}
	stored, err := a.repo.GetEvent(ctx, event.ID)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) GetEvent(ctx context.Context, id string) (application.Event, error) {
	stored, err := a.repo.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) ListEvents(ctx context.Context) ([]application.Event, error) {
	models, err := a.repo.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	events := make([]application.Event, 0, len(models))
	for _, model := range models {
		events = append(events, toApplicationEvent(model))
	}
	return events, nil
}

func (a *eventRepositoryAdapter) ListEventSummaries(ctx context.Context) ([]application.EventSummary, error) {
	models, err := a.repo.ListEventsWithItemCounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	events := make([]application.EventSummary, 0, len(models))
	for _, model := range models {
		events = append(events, application.EventSummary{
			Event:     toApplicationEvent(model.Event),
			ItemCount: model.ItemCount,
		})
	}
	return events, nil
}

func (a *eventRepositoryAdapter) DeleteEvent(ctx context.Context, id string) error {
	return a.repo.DeleteEvent(ctx, id)
}

type itemRepositoryAdapter struct {
	repo persistence.ItemRepository
}

func newItemRepositoryAdapter(repo persistence.ItemRepository) *itemRepositoryAdapter {
	return &itemRepositoryAdapter{repo: repo}
}

func (a *itemRepositoryAdapter) CreateItem(ctx context.Context, item application.Item) (application.Item, error) {
	if err := a.repo.CreateItem(ctx, toPersistenceItem(item)); err != nil {
		return application.Item{}, err
	}
	stored, err := a.repo.GetItem(ctx, item.ID)
	if err != nil {
		return application.Item{}, err
	}
	return toApplicationItem(stored), nil
}

func (a *itemRepositoryAdapter) GetItem(ctx context.Context, id string) (application.Item, error) {
	stored, err := a.repo.GetItem(ctx, id)
	if err != nil {
		return application.Item{}, err
	}
	return toApplicationItem(stored), nil
}

func (a *itemRepositoryAdapter) ListAvailableItems(ctx context.Context) ([]application.AvailableItem, error) {
	models, err := a.repo.ListAvailableItems(ctx)
	if err != nil {
		return nil, err
	}
	return toApplicationAvailableItems(models), nil
}

func (a *itemRepositoryAdapter) ListAllItems(ctx context.Context) ([]application.AvailableItem, error) {
	models, err := a.repo.ListItemsWithEventTitles(ctx)
	if err != nil {
		return nil, err
	}
	return toApplicationAvailableItems(models), nil
}

type claimRepositoryAdapter struct {
	repo persistence.ClaimRepository
}

func newClaimRepositoryAdapter(repo persistence.ClaimRepository) *claimRepositoryAdapter {
	return &claimRepositoryAdapter{repo: repo}
}

func (a *claimRepositoryAdapter) Reserve(ctx context.Context, claim application.Claim, quotaLimit int) (application.Claim, error) {
	stored, err := a.repo.Reserve(ctx, persistence.Claim{
		ID:        claim.ID,
		UserID:    claim.UserID,
		ItemID:    claim.ItemID,
		Qty:       claim.Qty,
		ClaimedAt: claim.ClaimedAt,
	}, quotaLimit)
	if err != nil {
		return application.Claim{}, err
	}
	return toApplicationClaim(stored), nil
}

func (a *claimRepositoryAdapter) ListClaimsForUser(ctx context.Context, userID string) ([]application.ClaimSummary, error) {
	models, err := a.repo.ListClaimsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	claims := make([]application.ClaimSummary, 0, len(models))
	for _, model := range models {
		claims = append(claims, application.ClaimSummary{
			Claim:      toApplicationClaim(model.Claim),
			ItemName:   model.ItemName,
			EventTitle: model.EventTitle,
		})
	}
	return claims, nil
}

func (a *claimRepositoryAdapter) SumClaimedQty(ctx context.Context, userID, itemID string) (int, error) {
	return a.repo.SumClaimedQty(ctx, userID, itemID)
}

type catalogRepositoryAdapter struct {
	repo persistence.CatalogRepository
}

func newCatalogRepositoryAdapter(repo persistence.CatalogRepository) *catalogRepositoryAdapter {
	return &catalogRepositoryAdapter{repo: repo}
}

func (a *catalogRepositoryAdapter) OrganizerStats(ctx context.Context, expiringBefore time.Time) (application.OrganizerStatsSnapshot, error) {
	stats, err := a.repo.OrganizerStats(ctx, expiringBefore)
	if err != nil {
		return application.OrganizerStatsSnapshot{}, err
	}
	return application.OrganizerStatsSnapshot{
		EventCount:     stats.EventCount,
		ItemCount:      stats.ItemCount,
		TotalServings:  stats.TotalQty,
		ClaimedCount:   stats.ClaimedQty,
		AvailableItems: stats.AvailableCnt,
		ExpiringSoon:   stats.ExpiringCnt,
	}, nil
}

func (a *catalogRepositoryAdapter) StudentStats(ctx context.Context, userID string, expiringBefore time.Time) (application.StudentStatsSnapshot, error) {
	stats, err := a.repo.StudentStats(ctx, userID, expiringBefore)
	if err != nil {
		return application.StudentStatsSnapshot{}, err
	}
	return application.StudentStatsSnapshot{
		TotalAvailable: stats.TotalAvailable,
		ExpiringSoon:   stats.ExpiringSoon,
		ClaimCount:     stats.ClaimCount,
		ServingsTotal:  stats.ServingsTotal,
	}, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, persistence.ErrNotFound) {
		return application.ErrNotFound
	}
	return err
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:        model.ID,
		Email:     model.Email,
		Role:      application.Role(model.Role),
		CreatedAt: model.CreatedAt,
	}
}

func toPersistenceUser(user application.User, codeHash string) persistence.User {
	return persistence.User{
		ID:        user.ID,
		Email:     user.Email,
		Role:      persistence.Role(user.Role),
		CodeHash:  codeHash,
		CreatedAt: user.CreatedAt,
	}
}

func toApplicationEvent(model persistence.Event) application.Event {
	return application.Event{
		ID:        model.ID,
		Title:     model.Title,
		Building:  model.Building,
		Room:      model.Room,
		EventDate: model.EventDate,
		StartTime: model.StartTime,
		EndTime:   model.EndTime,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceEvent(event application.Event) persistence.Event {
	return persistence.Event{
		ID:        event.ID,
		Title:     event.Title,
		Building:  event.Building,
		Room:      event.Room,
		EventDate: event.EventDate,
		StartTime: event.StartTime,
		EndTime:   event.EndTime,
		CreatedAt: event.CreatedAt,
		UpdatedAt: event.UpdatedAt,
	}
}

func toApplicationItem(model persistence.Item) application.Item {
	return application.Item{
		ID:           model.ID,
		EventID:      model.EventID,
		Name:         model.Name,
		Icon:         model.Icon,
		TotalQty:     model.TotalQty,
		RemainingQty: model.RemainingQty,
		ExpiresAt:    model.ExpiresAt,
		CreatedAt:    model.CreatedAt,
	}
}

func toPersistenceItem(item application.Item) persistence.Item {
	return persistence.Item{
		ID:           item.ID,
		EventID:      item.EventID,
		Name:         item.Name,
		Icon:         item.Icon,
		TotalQty:     item.TotalQty,
		RemainingQty: item.RemainingQty,
		ExpiresAt:    item.ExpiresAt,
		CreatedAt:    item.CreatedAt,
	}
}

func toApplicationAvailableItems(models []persistence.AvailableItem) []application.AvailableItem {
	if len(models) == 0 {
		return nil
	}
	items := make([]application.AvailableItem, 0, len(models))
	for _, model := range models {
		items = append(items, application.AvailableItem{
			Item:       toApplicationItem(model.Item),
			EventTitle: model.EventTitle,
			Building:   model.Building,
			Room:       model.Room,
		})
	}
	return items
}

func toApplicationClaim(model persistence.Claim) application.Claim {
	return application.Claim{
		ID:        model.ID,
		UserID:    model.UserID,
		ItemID:    model.ItemID,
		Qty:       model.Qty,
		ClaimedAt: model.ClaimedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:        model.ID,
		UserID:    model.UserID,
		Token:     model.Token,
		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
		RevokedAt: cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	}
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
