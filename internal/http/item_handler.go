package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/freebites/internal/application"
)

type itemService interface {
	CreateItem(ctx context.Context, params application.CreateItemParams) (application.Item, error)
	ListAvailableItems(ctx context.Context, principal application.Principal) ([]application.AvailableItem, error)
}

type ItemHandler struct {
	service   itemService
	responder responder
	logger    *slog.Logger
}

func NewItemHandler(service itemService, logger *slog.Logger) *ItemHandler {
	base := defaultLogger(logger)
	return &ItemHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ItemHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ItemHandler", operation, attrs...)
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode item request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "invalid item expiry", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID, "event_id", input.EventID)

	item, err := h.service.CreateItem(r.Context(), application.CreateItemParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "item creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("item_id", item.ID).InfoContext(r.Context(), "item created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, itemResponse{Item: toItemDTO(item)})
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok || strings.TrimSpace(principal.UserID) == "" {
		h.log(r.Context(), "List", "error_kind", "unauthorized").ErrorContext(r.Context(), "missing authenticated principal")
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)
	items, err := h.service.ListAvailableItems(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "item list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(items)).InfoContext(r.Context(), "items listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listItemsResponse{Items: toAvailableItemDTOs(items)})
}

type itemRequest struct {
	EventID   string `json:"event_id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	TotalQty  int    `json:"total_qty"`
	ExpiresAt string `json:"expires_at"`
}

func (r itemRequest) toInput() (application.ItemInput, error) {
	input := application.ItemInput{
		EventID:  strings.TrimSpace(r.EventID),
		Name:     strings.TrimSpace(r.Name),
		Icon:     strings.TrimSpace(r.Icon),
		TotalQty: r.TotalQty,
	}

	if trimmed := strings.TrimSpace(r.ExpiresAt); trimmed != "" {
		expiresAt, err := time.Parse(time.RFC3339, trimmed)
		if err != nil {
			return application.ItemInput{}, errInvalidExpiresAt
		}
		input.ExpiresAt = expiresAt
	}

	return input, nil
}

type itemResponse struct {
	Item itemDTO `json:"item"`
}

type listItemsResponse struct {
	Items []availableItemDTO `json:"items"`
}

type itemDTO struct {
	ID           string `json:"id"`
	EventID      string `json:"event_id"`
	Name         string `json:"name"`
	Icon         string `json:"icon"`
	TotalQty     int    `json:"total_qty"`
	RemainingQty int    `json:"remaining_qty"`
	ExpiresAt    string `json:"expires_at"`
	CreatedAt    string `json:"created_at"`
}

type availableItemDTO struct {
	itemDTO
	EventTitle string `json:"event_title"`
	Building   string `json:"building"`
	Room       string `json:"room"`
}

func toItemDTO(item application.Item) itemDTO {
	return itemDTO{
		ID:           item.ID,
		EventID:      item.EventID,
		Name:         item.Name,
		Icon:         item.Icon,
		TotalQty:     item.TotalQty,
		RemainingQty: item.RemainingQty,
		ExpiresAt:    item.ExpiresAt.UTC().Format(time.RFC3339Nano),
		CreatedAt:    item.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toAvailableItemDTOs(items []application.AvailableItem) []availableItemDTO {
	if len(items) == 0 {
		return nil
	}
	out := make([]availableItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, availableItemDTO{
			itemDTO:    toItemDTO(item.Item),
			EventTitle: item.EventTitle,
			Building:   item.Building,
			Room:       item.Room,
		})
	}
	return out
}
