package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/harborfin/rwaledger/internal/domain"
)

// ValuationService defines the methods the valuation handler requires
// from the service layer.
type ValuationService interface {
	Revalue(ctx context.Context, actor, pledgeID string, newValue int64) (domain.Pledge, error)
	Liquidate(ctx context.Context, actor, pledgeID string) (domain.Pledge, error)
	LatestValuation(ctx context.Context, pledgeID string) (int64, time.Time, error)
}

// ValuationHandler serves oracle revaluation and liquidation endpoints.
type ValuationHandler struct {
	valuations ValuationService
	logger     *slog.Logger
}

// NewValuationHandler creates a ValuationHandler with the given service.
func NewValuationHandler(valuations ValuationService, logger *slog.Logger) *ValuationHandler {
	return &ValuationHandler{
		valuations: valuations,
		logger:     logger,
	}
}

// revalueRequest is the JSON body for an oracle valuation update.
type revalueRequest struct {
	Value int64 `json:"value"`
}

// valuationResponse is the latest-valuation payload.
type valuationResponse struct {
	PledgeID string    `json:"pledge_id"`
	Value    int64     `json:"value"`
	ValuedAt time.Time `json:"valued_at"`
}

// RevaluePledge applies an oracle valuation update to a minted pledge.
// POST /api/pledges/{id}/revalue
func (h *ValuationHandler) RevaluePledge(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id := pathParam(r, "id")

	var req revalueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	p, err := h.valuations.Revalue(r.Context(), actor, id, req.Value)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// LiquidatePledge force-closes an under-collateralized or stale-valued
// pledge.
// POST /api/pledges/{id}/liquidate
func (h *ValuationHandler) LiquidatePledge(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id := pathParam(r, "id")

	p, err := h.valuations.Liquidate(r.Context(), actor, id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// GetValuation returns the latest valuation recorded for a pledge.
// GET /api/pledges/{id}/valuation
func (h *ValuationHandler) GetValuation(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing pledge id")
		return
	}

	value, ts, err := h.valuations.LatestValuation(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, valuationResponse{
		PledgeID: id,
		Value:    value,
		ValuedAt: ts,
	})
}
