package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/harborfin/rwaledger/internal/domain"
)

// RedemptionService defines the methods the redemption handler requires
// from the service layer.
type RedemptionService interface {
	Request(ctx context.Context, actor, pledgeID string, amount int64) (domain.RedemptionRequest, error)
	Settle(ctx context.Context, actor, requestID string) (domain.RedemptionRequest, error)
	Get(ctx context.Context, id string) (domain.RedemptionRequest, error)
	ListByPledge(ctx context.Context, pledgeID string) ([]domain.RedemptionRequest, error)
	ListOpen(ctx context.Context) ([]domain.RedemptionRequest, error)
}

// RedemptionHandler serves the burn-and-settle redemption endpoints.
type RedemptionHandler struct {
	redemptions RedemptionService
	logger      *slog.Logger
}

// NewRedemptionHandler creates a RedemptionHandler with the given service.
func NewRedemptionHandler(redemptions RedemptionService, logger *slog.Logger) *RedemptionHandler {
	return &RedemptionHandler{
		redemptions: redemptions,
		logger:      logger,
	}
}

// requestRedemptionRequest is the JSON body for opening a redemption.
type requestRedemptionRequest struct {
	PledgeID string `json:"pledge_id"`
	Amount   int64  `json:"amount"`
}

// listRedemptionsResponse wraps the list redemptions response.
type listRedemptionsResponse struct {
	Redemptions []domain.RedemptionRequest `json:"redemptions"`
}

// RequestRedemption burns credit and opens a redemption request subject
// to the settlement delay.
// POST /api/redemptions
func (h *RedemptionHandler) RequestRedemption(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req requestRedemptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.PledgeID == "" {
		writeError(w, http.StatusBadRequest, "pledge_id is required")
		return
	}

	request, err := h.redemptions.Request(r.Context(), actor, req.PledgeID, req.Amount)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, request)
}

// SettleRedemption completes a redemption once the delay has elapsed.
// POST /api/redemptions/{id}/settle
func (h *RedemptionHandler) SettleRedemption(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id := pathParam(r, "id")

	request, err := h.redemptions.Settle(r.Context(), actor, id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, request)
}

// GetRedemption returns a single redemption request by its ID.
// GET /api/redemptions/{id}
func (h *RedemptionHandler) GetRedemption(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing redemption id")
		return
	}

	request, err := h.redemptions.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, request)
}

// ListRedemptions returns requests for one pledge, or every unsettled
// request when no pledge filter is given.
// GET /api/redemptions?pledge_id=...
func (h *RedemptionHandler) ListRedemptions(w http.ResponseWriter, r *http.Request) {
	pledgeID := r.URL.Query().Get("pledge_id")

	var (
		requests []domain.RedemptionRequest
		err      error
	)
	if pledgeID != "" {
		requests, err = h.redemptions.ListByPledge(r.Context(), pledgeID)
	} else {
		requests, err = h.redemptions.ListOpen(r.Context())
	}
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if requests == nil {
		requests = []domain.RedemptionRequest{}
	}
	writeJSON(w, http.StatusOK, listRedemptionsResponse{Redemptions: requests})
}
