package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/harborfin/rwaledger/internal/domain"
)

// SystemService defines the read-only system views the handler requires.
type SystemService interface {
	Snapshot(ctx context.Context) (domain.SystemSnapshot, error)
	CategoryExposure(ctx context.Context) ([]domain.CategorySnapshot, error)
}

// BalanceService looks up credit balances per category and account.
type BalanceService interface {
	Balance(ctx context.Context, category domain.Category, account string) (domain.Balance, error)
}

// SystemHandler serves system-wide read endpoints: collateralization
// snapshot, category exposure, and credit balances.
type SystemHandler struct {
	system   SystemService
	balances BalanceService
	logger   *slog.Logger
}

// NewSystemHandler creates a SystemHandler with the given services.
func NewSystemHandler(system SystemService, balances BalanceService, logger *slog.Logger) *SystemHandler {
	return &SystemHandler{
		system:   system,
		balances: balances,
		logger:   logger,
	}
}

// GetSnapshot returns the system totals and collateralization ratio.
// GET /api/system/snapshot
func (h *SystemHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.system.Snapshot(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// categoriesResponse wraps the category exposure response.
type categoriesResponse struct {
	Categories []domain.CategorySnapshot `json:"categories"`
}

// GetCategories returns every category's exposure accounting.
// GET /api/system/categories
func (h *SystemHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.system.CategoryExposure(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if categories == nil {
		categories = []domain.CategorySnapshot{}
	}
	writeJSON(w, http.StatusOK, categoriesResponse{Categories: categories})
}

// GetBalance returns an account's holding of one category's credit.
// GET /api/system/balances/{category}/{account}
func (h *SystemHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	category, err := domain.ParseCategory(pathParam(r, "category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown category: "+pathParam(r, "category"))
		return
	}
	account := pathParam(r, "account")
	if account == "" {
		writeError(w, http.StatusBadRequest, "missing account")
		return
	}

	balance, err := h.balances.Balance(r.Context(), category, account)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}
