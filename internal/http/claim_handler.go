package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/freebites/internal/application"
)

type claimService interface {
	ClaimItem(ctx context.Context, params application.ClaimItemParams) (application.Claim, error)
	QuotaHeadroom(ctx context.Context, principal application.Principal, itemID string) (int, error)
	ListClaims(ctx context.Context, principal application.Principal) ([]application.ClaimSummary, error)
}

type ClaimHandler struct {
	service   claimService
	responder responder
	logger    *slog.Logger
}

func NewClaimHandler(service claimService, logger *slog.Logger) *ClaimHandler {
	base := defaultLogger(logger)
	return &ClaimHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ClaimHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ClaimHandler", operation, attrs...)
}

// Create reserves servings of the item identified in the request path.
func (h *ClaimHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	itemID, ok := ItemIDFromContext(r.Context())
	if !ok || strings.TrimSpace(itemID) == "" {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "missing item id for claim")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidItemID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID, "item_id", itemID)

	claim, err := h.service.ClaimItem(r.Context(), application.ClaimItemParams{
		Principal: principal,
		ItemID:    itemID,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "claim failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	response := claimResponse{Claim: toClaimDTO(claim)}
	if headroom, herr := h.service.QuotaHeadroom(r.Context(), principal, itemID); herr != nil {
		// The claim already succeeded; a failed headroom read only costs the
		// quota_left field.
		logger.WarnContext(r.Context(), "failed to compute quota headroom", "error", herr)
	} else {
		response.QuotaLeft = &headroom
	}

	logger.With("claim_id", claim.ID, "qty", claim.Qty).InfoContext(r.Context(), "item claimed")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, response)
}

// List returns the acting user's claim history.
func (h *ClaimHandler) List(w http.ResponseWriter, r *http.Request) {
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
	claims, err := h.service.ListClaims(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "claim list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(claims)).InfoContext(r.Context(), "claims listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listClaimsResponse{Claims: toClaimSummaryDTOs(claims)})
}

type claimResponse struct {
	Claim claimDTO `json:"claim"`

	// QuotaLeft reports how many more servings of this item the caller may
	// still claim. Omitted when the headroom lookup fails.
	QuotaLeft *int `json:"quota_left,omitempty"`
}

type listClaimsResponse struct {
	Claims []claimSummaryDTO `json:"claims"`
}

type claimDTO struct {
	ID        string `json:"id"`
	ItemID    string `json:"item_id"`
	Qty       int    `json:"qty"`
	ClaimedAt string `json:"claimed_at"`
}

type claimSummaryDTO struct {
	claimDTO
	ItemName   string `json:"item_name"`
	EventTitle string `json:"event_title"`
}

func toClaimDTO(claim application.Claim) claimDTO {
	return claimDTO{
		ID:        claim.ID,
		ItemID:    claim.ItemID,
		Qty:       claim.Qty,
		ClaimedAt: claim.ClaimedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toClaimSummaryDTOs(claims []application.ClaimSummary) []claimSummaryDTO {
	if len(claims) == 0 {
		return nil
	}
	out := make([]claimSummaryDTO, 0, len(claims))
	for _, claim := range claims {
		out = append(out, claimSummaryDTO{
			claimDTO:   toClaimDTO(claim.Claim),
			ItemName:   claim.ItemName,
			EventTitle: claim.EventTitle,
		})
	}
	return out
}
