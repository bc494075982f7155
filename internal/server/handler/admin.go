package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/harborfin/rwaledger/internal/domain"
)

// AdminService defines the methods the admin handler requires from the
// service layer.
type AdminService interface {
	GrantRole(ctx context.Context, actor string, role domain.Role, account string) error
	RevokeRole(ctx context.Context, actor string, role domain.Role, account string) error
	SetCategoryLimit(ctx context.Context, actor string, category domain.Category, limit int64) error
	UpdateParams(ctx context.Context, actor string, params domain.Params) error
	Params(ctx context.Context) (domain.Params, error)
	AuditLog(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error)
	RunArchive(ctx context.Context, actor string, retentionDays int) (int64, int64, error)
}

// AdminHandler serves role administration, policy, audit, and archive
// endpoints.
type AdminHandler struct {
	admin                AdminService
	defaultRetentionDays int
	logger               *slog.Logger
}

// NewAdminHandler creates an AdminHandler. defaultRetentionDays is used
// when an archive request does not name its own retention window.
func NewAdminHandler(admin AdminService, defaultRetentionDays int, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		admin:                admin,
		defaultRetentionDays: defaultRetentionDays,
		logger:               logger,
	}
}

// roleRequest is the JSON body for granting a role.
type roleRequest struct {
	Role    string `json:"role"`
	Account string `json:"account"`
}

// GrantRole gives an account a capability.
// POST /api/admin/roles
func (h *AdminHandler) GrantRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown role: "+req.Role)
		return
	}
	if req.Account == "" {
		writeError(w, http.StatusBadRequest, "account is required")
		return
	}

	if err := h.admin.GrantRole(r.Context(), actor, role, req.Account); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "granted",
		"role":    string(role),
		"account": req.Account,
	})
}

// RevokeRole removes a capability from an account.
// DELETE /api/admin/roles/{role}/{account}
func (h *AdminHandler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	role, err := domain.ParseRole(pathParam(r, "role"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown role: "+pathParam(r, "role"))
		return
	}
	account := pathParam(r, "account")

	if err := h.admin.RevokeRole(r.Context(), actor, role, account); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "revoked",
		"role":    string(role),
		"account": account,
	})
}

// categoryLimitRequest is the JSON body for a category limit update.
type categoryLimitRequest struct {
	Limit int64 `json:"limit"`
}

// SetCategoryLimit updates one category's exposure limit.
// PUT /api/admin/categories/{category}
func (h *AdminHandler) SetCategoryLimit(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	category, err := domain.ParseCategory(pathParam(r, "category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown category: "+pathParam(r, "category"))
		return
	}

	var req categoryLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.admin.SetCategoryLimit(r.Context(), actor, category, req.Limit); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "updated",
		"category": string(category),
		"limit":    req.Limit,
	})
}

// GetParams returns the current issuance policy.
// GET /api/admin/params
func (h *AdminHandler) GetParams(w http.ResponseWriter, r *http.Request) {
	params, err := h.admin.Params(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, params)
}

// UpdateParams replaces the numeric issuance policy.
// PUT /api/admin/params
func (h *AdminHandler) UpdateParams(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var params domain.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.admin.UpdateParams(r.Context(), actor, params); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, params)
}

// auditLogResponse wraps the audit log response.
type auditLogResponse struct {
	Entries []domain.AuditEntry `json:"entries"`
}

// GetAuditLog returns audit entries with pagination and time filtering.
// GET /api/admin/audit?limit=50&offset=0&since=...&until=...
func (h *AdminHandler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.admin.AuditLog(r.Context(), parseListOpts(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, auditLogResponse{Entries: entries})
}

// archiveRequest is the JSON body for an archive run. A zero retention
// falls back to the configured default.
type archiveRequest struct {
	RetentionDays int `json:"retention_days"`
}

// RunArchive exports aged audit entries and settled redemptions to cold
// storage.
// POST /api/admin/archive
func (h *AdminHandler) RunArchive(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req archiveRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	retention := req.RetentionDays
	if retention <= 0 {
		retention = h.defaultRetentionDays
	}

	auditCount, redemptionCount, err := h.admin.RunArchive(r.Context(), actor, retention)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "archived",
		"retention_days":      retention,
		"audit_entries":       auditCount,
		"redemption_requests": redemptionCount,
	})
}
