package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/harborfin/rwaledger/internal/domain"
	"github.com/harborfin/rwaledger/internal/ledger"
)

// settleLockTTL bounds how long a settlement lock can be held before
// Redis expires it.
const settleLockTTL = 10 * time.Second

// RedemptionService handles the burn-and-settle redemption flow.
// Settlement is guarded by a per-request distributed lock so two
// treasury operators cannot settle the same request concurrently.
type RedemptionService struct {
	ledger      *ledger.Ledger
	pledges     domain.PledgeStore
	redemptions domain.RedemptionStore
	balances    domain.BalanceStore
	locks       domain.LockManager
	emitter     emitter
	logger      *slog.Logger
}

// NewRedemptionService creates a RedemptionService with all required
// dependencies.
func NewRedemptionService(
	l *ledger.Ledger,
	pledges domain.PledgeStore,
	redemptions domain.RedemptionStore,
	balances domain.BalanceStore,
	locks domain.LockManager,
	audit domain.AuditStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *RedemptionService {
	return &RedemptionService{
		ledger:      l,
		pledges:     pledges,
		redemptions: redemptions,
		balances:    balances,
		locks:       locks,
		emitter:     emitter{audit: audit, bus: bus, logger: logger},
		logger:      logger,
	}
}

// Request burns credit from the pledge owner and opens a redemption
// request subject to the mandatory settlement delay.
func (s *RedemptionService) Request(ctx context.Context, actor, pledgeID string, amount int64) (domain.RedemptionRequest, error) {
	r, evt, err := s.ledger.RequestRedemption(actor, pledgeID, amount)
	if err != nil {
		return domain.RedemptionRequest{}, fmt.Errorf("redemption_service: request %q: %w", pledgeID, err)
	}

	if upsertErr := s.redemptions.Upsert(ctx, r); upsertErr != nil {
		s.logger.WarnContext(ctx, "redemption_service: mirror request failed",
			slog.String("request_id", r.ID),
			slog.String("error", upsertErr.Error()),
		)
	}
	p, lookupErr := s.ledger.PledgeByID(pledgeID)
	if lookupErr == nil {
		mirrorBalance(ctx, s.logger, s.ledger, s.balances, p.Category, actor)
	}
	s.emitter.emit(ctx, evt)

	s.logger.InfoContext(ctx, "redemption_service: redemption requested",
		slog.String("request_id", r.ID),
		slog.String("pledge_id", pledgeID),
		slog.Int64("amount", amount),
	)
	return r, nil
}

// Settle completes a redemption request once the delay has elapsed.
func (s *RedemptionService) Settle(ctx context.Context, actor, requestID string) (domain.RedemptionRequest, error) {
	unlock, err := s.locks.Acquire(ctx, "settle:"+requestID, settleLockTTL)
	if err != nil {
		return domain.RedemptionRequest{}, fmt.Errorf("redemption_service: settle lock %q: %w", requestID, err)
	}
	defer unlock()

	r, evt, err := s.ledger.SettleRedemption(actor, requestID)
	if err != nil {
		return domain.RedemptionRequest{}, fmt.Errorf("redemption_service: settle %q: %w", requestID, err)
	}

	if upsertErr := s.redemptions.Upsert(ctx, r); upsertErr != nil {
		s.logger.WarnContext(ctx, "redemption_service: mirror request failed",
			slog.String("request_id", r.ID),
			slog.String("error", upsertErr.Error()),
		)
	}
	if p, lookupErr := s.ledger.PledgeByID(r.PledgeID); lookupErr == nil {
		mirrorPledge(ctx, s.logger, s.pledges, p)
	}
	s.emitter.emit(ctx, evt)

	s.logger.InfoContext(ctx, "redemption_service: redemption settled",
		slog.String("request_id", r.ID),
		slog.String("pledge_id", r.PledgeID),
		slog.Int64("amount", r.Amount),
	)
	return r, nil
}

// Get retrieves a single redemption request by ID.
func (s *RedemptionService) Get(ctx context.Context, id string) (domain.RedemptionRequest, error) {
	r, err := s.ledger.RedemptionByID(id)
	if err != nil {
		return domain.RedemptionRequest{}, fmt.Errorf("redemption_service: get %q: %w", id, err)
	}
	return r, nil
}

// ListByPledge returns every request made against a pledge.
func (s *RedemptionService) ListByPledge(ctx context.Context, pledgeID string) ([]domain.RedemptionRequest, error) {
	return s.ledger.RedemptionsByPledge(pledgeID), nil
}

// ListOpen returns the unsettled requests from the durable queue.
func (s *RedemptionService) ListOpen(ctx context.Context) ([]domain.RedemptionRequest, error) {
	requests, err := s.redemptions.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("redemption_service: list open: %w", err)
	}
	return requests, nil
}
