package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/harborfin/rwaledger/internal/domain"
)

// PledgeService defines the methods that the pledge handler requires from
// the service layer.
type PledgeService interface {
	Submit(ctx context.Context, actor, assetID string, declaredValue int64, category domain.Category, metadata map[string]any, redeemable bool) (domain.Pledge, error)
	Cancel(ctx context.Context, actor, pledgeID string) (domain.Pledge, error)
	Verify(ctx context.Context, actor, pledgeID string, officialValue, ltvBps int64) (domain.Pledge, error)
	Reject(ctx context.Context, actor, pledgeID, reason string) (domain.Pledge, error)
	Get(ctx context.Context, id string) (domain.Pledge, error)
	GetByAssetID(ctx context.Context, assetID string) (domain.Pledge, error)
	ListByOwner(ctx context.Context, owner string) ([]domain.Pledge, error)
	ListByStatus(ctx context.Context, status domain.PledgeStatus) ([]domain.Pledge, error)
}

// IssuanceService defines the minting methods the pledge handler requires.
type IssuanceService interface {
	Mint(ctx context.Context, actor, pledgeID string) (domain.Pledge, error)
}

// PledgeHandler serves the pledge lifecycle HTTP endpoints.
type PledgeHandler struct {
	pledges  PledgeService
	issuance IssuanceService
	logger   *slog.Logger
}

// NewPledgeHandler creates a PledgeHandler with the given services.
func NewPledgeHandler(pledges PledgeService, issuance IssuanceService, logger *slog.Logger) *PledgeHandler {
	return &PledgeHandler{
		pledges:  pledges,
		issuance: issuance,
		logger:   logger,
	}
}

// submitPledgeRequest is the JSON body for pledge submission.
type submitPledgeRequest struct {
	AssetID       string         `json:"asset_id"`
	DeclaredValue int64          `json:"declared_value"`
	Category      string         `json:"category"`
	Metadata      map[string]any `json:"metadata"`
	Redeemable    bool           `json:"redeemable"`
}

// listPledgesResponse wraps the list pledges response.
type listPledgesResponse struct {
	Pledges []domain.Pledge `json:"pledges"`
}

// SubmitPledge registers a new pledge owned by the caller.
// POST /api/pledges
func (h *PledgeHandler) SubmitPledge(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req submitPledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	category, err := domain.ParseCategory(req.Category)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown category: "+req.Category)
		return
	}

	p, err := h.pledges.Submit(r.Context(), actor, req.AssetID, req.DeclaredValue, category, req.Metadata, req.Redeemable)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// ListPledges returns pledges filtered by owner, status, or asset ID.
// GET /api/pledges?owner=...&status=...&asset_id=...
func (h *PledgeHandler) ListPledges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner := q.Get("owner")
	status := q.Get("status")
	assetID := q.Get("asset_id")

	switch {
	case assetID != "":
		p, err := h.pledges.GetByAssetID(r.Context(), assetID)
		if err != nil {
			respondError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, listPledgesResponse{Pledges: []domain.Pledge{p}})

	case owner != "":
		pledges, err := h.pledges.ListByOwner(r.Context(), owner)
		if err != nil {
			respondError(w, r, h.logger, err)
			return
		}
		if pledges == nil {
			pledges = []domain.Pledge{}
		}
		writeJSON(w, http.StatusOK, listPledgesResponse{Pledges: pledges})

	case status != "":
		st, err := domain.ParseStatus(status)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown status: "+status)
			return
		}
		pledges, err := h.pledges.ListByStatus(r.Context(), st)
		if err != nil {
			respondError(w, r, h.logger, err)
			return
		}
		if pledges == nil {
			pledges = []domain.Pledge{}
		}
		writeJSON(w, http.StatusOK, listPledgesResponse{Pledges: pledges})

	default:
		writeError(w, http.StatusBadRequest, "owner, status, or asset_id query parameter required")
	}
}

// GetPledge returns a single pledge by its ID.
// GET /api/pledges/{id}
func (h *PledgeHandler) GetPledge(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing pledge id")
		return
	}

	p, err := h.pledges.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// verifyPledgeRequest is the JSON body for pledge verification.
type verifyPledgeRequest struct {
	OfficialValue int64 `json:"official_value"`
	LTVBps        int64 `json:"ltv_bps"`
}

// VerifyPledge approves a pending pledge with an official value and LTV.
// POST /api/pledges/{id}/verify
func (h *PledgeHandler) VerifyPledge(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id := pathParam(r, "id")

	var req verifyPledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	p, err := h.pledges.Verify(r.Context(), actor, id, req.OfficialValue, req.LTVBps)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// rejectPledgeRequest is the JSON body for pledge rejection.
type rejectPledgeRequest struct {
	Reason string `json:"reason"`
}

// RejectPledge declines a pending pledge with a reason.
// POST /api/pledges/{id}/reject
func (h *PledgeHandler) RejectPledge(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id := pathParam(r, "id")

	var req rejectPledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	p, err := h.pledges.Reject(r.Context(), actor, id, req.Reason)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// CancelPledge withdraws the caller's pending pledge.
// POST /api/pledges/{id}/cancel
func (h *PledgeHandler) CancelPledge(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id := pathParam(r, "id")

	p, err := h.pledges.Cancel(r.Context(), actor, id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// MintCredit issues category credit against a verified pledge.
// POST /api/pledges/{id}/mint
func (h *PledgeHandler) MintCredit(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id := pathParam(r, "id")

	p, err := h.issuance.Mint(r.Context(), actor, id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}
