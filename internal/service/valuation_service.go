package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/harborfin/rwaledger/internal/domain"
	"github.com/harborfin/rwaledger/internal/ledger"
)

// ValuationService applies oracle revaluations and liquidations. The
// latest valuation per pledge is cached in Redis so dashboards can poll
// it without hitting the registry.
type ValuationService struct {
	ledger     *ledger.Ledger
	pledges    domain.PledgeStore
	valuations domain.ValuationCache
	emitter    emitter
	logger     *slog.Logger
}

// NewValuationService creates a ValuationService with all required
// dependencies.
func NewValuationService(
	l *ledger.Ledger,
	pledges domain.PledgeStore,
	valuations domain.ValuationCache,
	audit domain.AuditStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *ValuationService {
	return &ValuationService{
		ledger:     l,
		pledges:    pledges,
		valuations: valuations,
		emitter:    emitter{audit: audit, bus: bus, logger: logger},
		logger:     logger,
	}
}

// Revalue applies an oracle valuation update to a minted pledge.
func (s *ValuationService) Revalue(ctx context.Context, actor, pledgeID string, newValue int64) (domain.Pledge, error) {
	p, evt, err := s.ledger.Revalue(actor, pledgeID, newValue)
	if err != nil {
		return domain.Pledge{}, fmt.Errorf("valuation_service: revalue %q: %w", pledgeID, err)
	}

	mirrorPledge(ctx, s.logger, s.pledges, p)
	if p.LastValuedAt != nil {
		if cacheErr := s.valuations.SetValuation(ctx, p.ID, p.OfficialValue, *p.LastValuedAt); cacheErr != nil {
			s.logger.WarnContext(ctx, "valuation_service: cache valuation failed",
				slog.String("pledge_id", p.ID),
				slog.String("error", cacheErr.Error()),
			)
		}
	}
	s.emitter.emit(ctx, evt)

	s.logger.InfoContext(ctx, "valuation_service: pledge revalued",
		slog.String("pledge_id", p.ID),
		slog.Int64("official_value", p.OfficialValue),
	)
	return p, nil
}

// Liquidate force-closes an under-collateralized or stale-valued pledge.
func (s *ValuationService) Liquidate(ctx context.Context, actor, pledgeID string) (domain.Pledge, error) {
	p, evt, err := s.ledger.Liquidate(actor, pledgeID)
	if err != nil {
		return domain.Pledge{}, fmt.Errorf("valuation_service: liquidate %q: %w", pledgeID, err)
	}

	mirrorPledge(ctx, s.logger, s.pledges, p)
	s.emitter.emit(ctx, evt)

	s.logger.InfoContext(ctx, "valuation_service: pledge liquidated",
		slog.String("pledge_id", p.ID),
		slog.Int64("official_value", p.OfficialValue),
		slog.Int64("credit_outstanding", p.CreditOutstanding),
	)
	return p, nil
}

// LatestValuation returns the cached valuation for a pledge, falling
// back to the registry when the cache has no entry.
func (s *ValuationService) LatestValuation(ctx context.Context, pledgeID string) (int64, time.Time, error) {
	value, ts, err := s.valuations.GetValuation(ctx, pledgeID)
	if err == nil {
		return value, ts, nil
	}

	p, lookupErr := s.ledger.PledgeByID(pledgeID)
	if lookupErr != nil {
		return 0, time.Time{}, fmt.Errorf("valuation_service: latest valuation %q: %w", pledgeID, lookupErr)
	}
	if p.LastValuedAt == nil {
		return 0, time.Time{}, fmt.Errorf("valuation_service: latest valuation %q: %w", pledgeID, domain.ErrNotFound)
	}
	return p.OfficialValue, *p.LastValuedAt, nil
}
