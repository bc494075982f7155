package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/harborfin/rwaledger/internal/domain"
	"github.com/harborfin/rwaledger/internal/ledger"
)

// AdminService handles role administration, policy changes, system
// queries, and cold-storage archive runs.
type AdminService struct {
	ledger   *ledger.Ledger
	roles    domain.RoleStore
	audit    domain.AuditStore
	archiver domain.Archiver
	emitter  emitter
	logger   *slog.Logger
}

// NewAdminService creates an AdminService. The archiver may be nil when
// archiving is disabled.
func NewAdminService(
	l *ledger.Ledger,
	roles domain.RoleStore,
	audit domain.AuditStore,
	bus domain.SignalBus,
	archiver domain.Archiver,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		ledger:   l,
		roles:    roles,
		audit:    audit,
		archiver: archiver,
		emitter:  emitter{audit: audit, bus: bus, logger: logger},
		logger:   logger,
	}
}

// GrantRole gives an account a capability and mirrors the grant durably.
func (s *AdminService) GrantRole(ctx context.Context, actor string, role domain.Role, account string) error {
	evt, err := s.ledger.GrantRole(actor, role, account)
	if err != nil {
		return fmt.Errorf("admin_service: grant role: %w", err)
	}

	if storeErr := s.roles.Grant(ctx, domain.RoleGrant{Role: role, Account: account}); storeErr != nil {
		s.logger.WarnContext(ctx, "admin_service: mirror role grant failed",
			slog.String("role", string(role)),
			slog.String("account", account),
			slog.String("error", storeErr.Error()),
		)
	}
	s.emitter.emit(ctx, evt)

	s.logger.InfoContext(ctx, "admin_service: role granted",
		slog.String("role", string(role)),
		slog.String("account", account),
	)
	return nil
}

// RevokeRole removes a capability from an account.
func (s *AdminService) RevokeRole(ctx context.Context, actor string, role domain.Role, account string) error {
	evt, err := s.ledger.RevokeRole(actor, role, account)
	if err != nil {
		return fmt.Errorf("admin_service: revoke role: %w", err)
	}

	if storeErr := s.roles.Revoke(ctx, domain.RoleGrant{Role: role, Account: account}); storeErr != nil {
		s.logger.WarnContext(ctx, "admin_service: mirror role revoke failed",
			slog.String("role", string(role)),
			slog.String("account", account),
			slog.String("error", storeErr.Error()),
		)
	}
	s.emitter.emit(ctx, evt)

	s.logger.InfoContext(ctx, "admin_service: role revoked",
		slog.String("role", string(role)),
		slog.String("account", account),
	)
	return nil
}

// SetCategoryLimit updates one category's exposure limit.
func (s *AdminService) SetCategoryLimit(ctx context.Context, actor string, category domain.Category, limit int64) error {
	evt, err := s.ledger.SetCategoryLimit(actor, category, limit)
	if err != nil {
		return fmt.Errorf("admin_service: set category limit: %w", err)
	}
	s.emitter.emit(ctx, evt)

	s.logger.InfoContext(ctx, "admin_service: category limit updated",
		slog.String("category", string(category)),
		slog.Int64("limit", limit),
	)
	return nil
}

// UpdateParams replaces the numeric issuance policy.
func (s *AdminService) UpdateParams(ctx context.Context, actor string, params domain.Params) error {
	evt, err := s.ledger.UpdateParams(actor, params)
	if err != nil {
		return fmt.Errorf("admin_service: update params: %w", err)
	}
	s.emitter.emit(ctx, evt)

	s.logger.InfoContext(ctx, "admin_service: params updated")
	return nil
}

// Params returns the current issuance policy.
func (s *AdminService) Params(ctx context.Context) (domain.Params, error) {
	return s.ledger.Params(), nil
}

// Snapshot returns the system totals and collateralization ratio.
func (s *AdminService) Snapshot(ctx context.Context) (domain.SystemSnapshot, error) {
	return s.ledger.Snapshot(), nil
}

// CategoryExposure returns every category's exposure accounting.
func (s *AdminService) CategoryExposure(ctx context.Context) ([]domain.CategorySnapshot, error) {
	return s.ledger.CategoryExposure(), nil
}

// AuditLog returns audit entries with pagination and time filtering.
func (s *AdminService) AuditLog(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	entries, err := s.audit.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("admin_service: audit log: %w", err)
	}
	return entries, nil
}

// RunArchive exports audit entries and settled redemptions older than
// the retention window to cold storage. Admin-only.
func (s *AdminService) RunArchive(ctx context.Context, actor string, retentionDays int) (int64, int64, error) {
	if !s.ledger.HasRole(actor, domain.RoleAdmin) {
		return 0, 0, fmt.Errorf("admin_service: run archive: %w", domain.ErrUnauthorized)
	}
	if s.archiver == nil {
		return 0, 0, fmt.Errorf("admin_service: run archive: archiving disabled")
	}

	before := time.Now().UTC().AddDate(0, 0, -retentionDays)

	auditCount, err := s.archiver.ArchiveAudit(ctx, before)
	if err != nil {
		return 0, 0, fmt.Errorf("admin_service: archive audit: %w", err)
	}
	redemptionCount, err := s.archiver.ArchiveRedemptions(ctx, before)
	if err != nil {
		return auditCount, 0, fmt.Errorf("admin_service: archive redemptions: %w", err)
	}

	s.logger.InfoContext(ctx, "admin_service: archive complete",
		slog.Int64("audit_entries", auditCount),
		slog.Int64("redemptions", redemptionCount),
		slog.String("before", before.Format(time.RFC3339)),
	)
	return auditCount, redemptionCount, nil
}
