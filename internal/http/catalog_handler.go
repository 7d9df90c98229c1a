package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/freebites/internal/application"
)

type catalogService interface {
	OrganizerDashboard(ctx context.Context, principal application.Principal) (application.OrganizerDashboard, error)
	StudentDashboard(ctx context.Context, principal application.Principal) (application.StudentDashboard, error)
	BrowseEvents(ctx context.Context, principal application.Principal) ([]application.EventSummary, error)
}

type CatalogHandler struct {
	service   catalogService
	responder responder
	logger    *slog.Logger
}

func NewCatalogHandler(service catalogService, logger *slog.Logger) *CatalogHandler {
	base := defaultLogger(logger)
	return &CatalogHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CatalogHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CatalogHandler", operation, attrs...)
}

func (h *CatalogHandler) principal(w http.ResponseWriter, r *http.Request, operation string) (application.Principal, bool) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok || strings.TrimSpace(principal.UserID) == "" {
		h.log(r.Context(), operation, "error_kind", "unauthorized").ErrorContext(r.Context(), "missing authenticated principal")
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return application.Principal{}, false
	}
	return principal, true
}

// OrganizerDashboard serves the organizer inventory overview.
func (h *CatalogHandler) OrganizerDashboard(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := h.principal(w, r, "OrganizerDashboard")
	if !ok {
		return
	}

	logger := h.log(r.Context(), "OrganizerDashboard", "principal_id", principal.UserID)
	dashboard, err := h.service.OrganizerDashboard(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "organizer dashboard failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "organizer dashboard served")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, organizerDashboardResponse{
		Stats: organizerStatsDTO{
			EventCount:     dashboard.EventCount,
			ItemCount:      dashboard.ItemCount,
			TotalServings:  dashboard.TotalServings,
			ClaimedCount:   dashboard.ClaimedCount,
			AvailableItems: dashboard.AvailableItems,
			ExpiringSoon:   dashboard.ExpiringSoon,
		},
		Events: toEventSummaryDTOs(dashboard.Events),
		Items:  toAvailableItemDTOs(dashboard.Items),
	})
}

// StudentDashboard serves the student catalog and claim history overview.
func (h *CatalogHandler) StudentDashboard(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := h.principal(w, r, "StudentDashboard")
	if !ok {
		return
	}

	logger := h.log(r.Context(), "StudentDashboard", "principal_id", principal.UserID)
	dashboard, err := h.service.StudentDashboard(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "student dashboard failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "student dashboard served")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, studentDashboardResponse{
		Stats: studentStatsDTO{
			TotalAvailable: dashboard.TotalAvailable,
			ExpiringSoon:   dashboard.ExpiringSoon,
			ClaimCount:     dashboard.ClaimCount,
			ServingsTotal:  dashboard.ServingsTotal,
		},
		Items:  toAvailableItemDTOs(dashboard.Items),
		Claims: toClaimSummaryDTOs(dashboard.Claims),
	})
}

// BrowseEvents serves the event catalog for any authenticated user.
func (h *CatalogHandler) BrowseEvents(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := h.principal(w, r, "BrowseEvents")
	if !ok {
		return
	}

	logger := h.log(r.Context(), "BrowseEvents", "principal_id", principal.UserID)
	events, err := h.service.BrowseEvents(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "event browse failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(events)).InfoContext(r.Context(), "events browsed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEventsResponse{Events: toEventSummaryDTOs(events)})
}

type organizerDashboardResponse struct {
	Stats  organizerStatsDTO  `json:"stats"`
	Events []eventSummaryDTO  `json:"events"`
	Items  []availableItemDTO `json:"items"`
}

type organizerStatsDTO struct {
	EventCount     int `json:"event_count"`
	ItemCount      int `json:"item_count"`
	TotalServings  int `json:"total_servings"`
	ClaimedCount   int `json:"claimed_count"`
	AvailableItems int `json:"available_items"`
	ExpiringSoon   int `json:"expiring_soon"`
}

type studentDashboardResponse struct {
	Stats  studentStatsDTO    `json:"stats"`
	Items  []availableItemDTO `json:"items"`
	Claims []claimSummaryDTO  `json:"claims"`
}

type studentStatsDTO struct {
	TotalAvailable int `json:"total_available"`
	ExpiringSoon   int `json:"expiring_soon"`
	ClaimCount     int `json:"claim_count"`
	ServingsTotal  int `json:"servings_total"`
}
