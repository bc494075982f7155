package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/harborfin/rwaledger/internal/domain"
	"github.com/harborfin/rwaledger/internal/ledger"
)

// mintLockTTL bounds how long a mint lock can be held before Redis
// expires it.
const mintLockTTL = 10 * time.Second

// IssuanceService mints category credit against verified pledges. Minting
// is guarded by a per-pledge distributed lock so concurrent requests
// across replicas cannot race the collateralization check.
type IssuanceService struct {
	ledger   *ledger.Ledger
	pledges  domain.PledgeStore
	balances domain.BalanceStore
	locks    domain.LockManager
	emitter  emitter
	logger   *slog.Logger
}

// NewIssuanceService creates an IssuanceService with all required
// dependencies.
func NewIssuanceService(
	l *ledger.Ledger,
	pledges domain.PledgeStore,
	balances domain.BalanceStore,
	locks domain.LockManager,
	audit domain.AuditStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *IssuanceService {
	return &IssuanceService{
		ledger:   l,
		pledges:  pledges,
		balances: balances,
		locks:    locks,
		emitter:  emitter{audit: audit, bus: bus, logger: logger},
		logger:   logger,
	}
}

// Mint issues credit against a verified pledge and mirrors the pledge
// plus the owner and treasury balances durably.
func (s *IssuanceService) Mint(ctx context.Context, actor, pledgeID string) (domain.Pledge, error) {
	unlock, err := s.locks.Acquire(ctx, "mint:"+pledgeID, mintLockTTL)
	if err != nil {
		return domain.Pledge{}, fmt.Errorf("issuance_service: mint lock %q: %w", pledgeID, err)
	}
	defer unlock()

	p, evt, err := s.ledger.Mint(actor, pledgeID)
	if err != nil {
		return domain.Pledge{}, fmt.Errorf("issuance_service: mint %q: %w", pledgeID, err)
	}

	mirrorPledge(ctx, s.logger, s.pledges, p)
	mirrorBalance(ctx, s.logger, s.ledger, s.balances, p.Category, p.Owner)
	mirrorBalance(ctx, s.logger, s.ledger, s.balances, p.Category, s.ledger.Params().TreasuryAccount)
	s.emitter.emit(ctx, evt)

	s.logger.InfoContext(ctx, "issuance_service: credit minted",
		slog.String("pledge_id", p.ID),
		slog.String("category", string(p.Category)),
		slog.Int64("credit_amount", p.CreditAmount),
	)
	return p, nil
}

// Balance returns an account's holding of one category's credit.
func (s *IssuanceService) Balance(ctx context.Context, category domain.Category, account string) (domain.Balance, error) {
	return domain.Balance{
		Category: category,
		Account:  account,
		Amount:   s.ledger.BalanceOf(category, account),
	}, nil
}
