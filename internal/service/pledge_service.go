package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harborfin/rwaledger/internal/domain"
	"github.com/harborfin/rwaledger/internal/ledger"
)

// PledgeService handles the pre-issuance pledge lifecycle: submission,
// cancellation, verification, and rejection.
type PledgeService struct {
	ledger  *ledger.Ledger
	pledges domain.PledgeStore
	emitter emitter
	logger  *slog.Logger
}

// NewPledgeService creates a PledgeService with all required dependencies.
func NewPledgeService(
	l *ledger.Ledger,
	pledges domain.PledgeStore,
	audit domain.AuditStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *PledgeService {
	return &PledgeService{
		ledger:  l,
		pledges: pledges,
		emitter: emitter{audit: audit, bus: bus, logger: logger},
		logger:  logger,
	}
}

// Submit registers a new pledge for the actor and mirrors it durably.
func (s *PledgeService) Submit(ctx context.Context, actor, assetID string, declaredValue int64, category domain.Category, metadata map[string]any, redeemable bool) (domain.Pledge, error) {
	p, evt, err := s.ledger.Submit(actor, assetID, declaredValue, category, metadata, redeemable)
	if err != nil {
		return domain.Pledge{}, fmt.Errorf("pledge_service: submit: %w", err)
	}

	mirrorPledge(ctx, s.logger, s.pledges, p)
	s.emitter.emit(ctx, evt)

	s.logger.InfoContext(ctx, "pledge_service: pledge submitted",
		slog.String("pledge_id", p.ID),
		slog.String("asset_id", p.AssetID),
		slog.String("category", string(p.Category)),
		slog.Int64("declared_value", p.DeclaredValue),
	)
	return p, nil
}

// Cancel withdraws the actor's pending pledge.
func (s *PledgeService) Cancel(ctx context.Context, actor, pledgeID string) (domain.Pledge, error) {
	p, evt, err := s.ledger.Cancel(actor, pledgeID)
	if err != nil {
		return domain.Pledge{}, fmt.Errorf("pledge_service: cancel %q: %w", pledgeID, err)
	}

	mirrorPledge(ctx, s.logger, s.pledges, p)
	s.emitter.emit(ctx, evt)

	s.logger.InfoContext(ctx, "pledge_service: pledge cancelled",
		slog.String("pledge_id", p.ID),
	)
	return p, nil
}

// Verify approves a pending pledge with an official value and LTV.
func (s *PledgeService) Verify(ctx context.Context, actor, pledgeID string, officialValue, ltvBps int64) (domain.Pledge, error) {
	p, evt, err := s.ledger.Verify(actor, pledgeID, officialValue, ltvBps)
	if err != nil {
		return domain.Pledge{}, fmt.Errorf("pledge_service: verify %q: %w", pledgeID, err)
	}

	mirrorPledge(ctx, s.logger, s.pledges, p)
	s.emitter.emit(ctx, evt)

	s.logger.InfoContext(ctx, "pledge_service: pledge verified",
		slog.String("pledge_id", p.ID),
		slog.Int64("official_value", p.OfficialValue),
		slog.Int64("ltv_bps", p.LTVBps),
	)
	return p, nil
}

// Reject declines a pending pledge with a reason.
func (s *PledgeService) Reject(ctx context.Context, actor, pledgeID, reason string) (domain.Pledge, error) {
	p, evt, err := s.ledger.Reject(actor, pledgeID, reason)
	if err != nil {
		return domain.Pledge{}, fmt.Errorf("pledge_service: reject %q: %w", pledgeID, err)
	}

	mirrorPledge(ctx, s.logger, s.pledges, p)
	s.emitter.emit(ctx, evt)

	s.logger.InfoContext(ctx, "pledge_service: pledge rejected",
		slog.String("pledge_id", p.ID),
		slog.String("reason", reason),
	)
	return p, nil
}

// Get retrieves a single pledge by ID.
func (s *PledgeService) Get(ctx context.Context, id string) (domain.Pledge, error) {
	p, err := s.ledger.PledgeByID(id)
	if err != nil {
		return domain.Pledge{}, fmt.Errorf("pledge_service: get %q: %w", id, err)
	}
	return p, nil
}

// GetByAssetID resolves a live asset identifier to its pledge.
func (s *PledgeService) GetByAssetID(ctx context.Context, assetID string) (domain.Pledge, error) {
	p, err := s.ledger.PledgeByAssetID(assetID)
	if err != nil {
		return domain.Pledge{}, fmt.Errorf("pledge_service: get by asset %q: %w", assetID, err)
	}
	return p, nil
}

// ListByOwner returns the owner's pledges, newest first.
func (s *PledgeService) ListByOwner(ctx context.Context, owner string) ([]domain.Pledge, error) {
	return s.ledger.PledgesByOwner(owner), nil
}

// ListByStatus returns pledges in the given status, newest first.
func (s *PledgeService) ListByStatus(ctx context.Context, status domain.PledgeStatus) ([]domain.Pledge, error) {
	return s.ledger.PledgesByStatus(status), nil
}
