package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harborfin/rwaledger/internal/domain"
	"github.com/harborfin/rwaledger/internal/ledger"
)

// Rehydrate loads the durable state into a fresh ledger at startup. The
// ledger recomputes exposure and system totals from the raw rows rather
// than trusting any stored aggregates.
func Rehydrate(
	ctx context.Context,
	l *ledger.Ledger,
	pledges domain.PledgeStore,
	redemptions domain.RedemptionStore,
	balances domain.BalanceStore,
	roles domain.RoleStore,
	logger *slog.Logger,
) error {
	allPledges, err := pledges.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("service: rehydrate pledges: %w", err)
	}

	var allRequests []domain.RedemptionRequest
	seen := make(map[string]bool)
	for _, p := range allPledges {
		requests, err := redemptions.ListByPledge(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("service: rehydrate redemptions for %s: %w", p.ID, err)
		}
		for _, r := range requests {
			if !seen[r.ID] {
				seen[r.ID] = true
				allRequests = append(allRequests, r)
			}
		}
	}

	allBalances, err := balances.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("service: rehydrate balances: %w", err)
	}

	grants, err := roles.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("service: rehydrate role grants: %w", err)
	}

	l.Restore(allPledges, allRequests, allBalances, grants)

	snap := l.Snapshot()
	logger.InfoContext(ctx, "service: ledger rehydrated",
		slog.Int("pledges", len(allPledges)),
		slog.Int("redemptions", len(allRequests)),
		slog.Int("balances", len(allBalances)),
		slog.Int("role_grants", len(grants)),
		slog.Int64("total_collateral", snap.TotalCollateralValue),
		slog.Int64("total_supply", snap.TotalCreditSupply),
	)
	return nil
}

// PersistBootstrapAdmins mirrors the configured admin accounts into the
// role store so grants survive even before the first admin API call.
func PersistBootstrapAdmins(ctx context.Context, roles domain.RoleStore, admins []string, logger *slog.Logger) {
	for _, account := range admins {
		if err := roles.Grant(ctx, domain.RoleGrant{Role: domain.RoleAdmin, Account: account}); err != nil {
			logger.WarnContext(ctx, "service: persist bootstrap admin failed",
				slog.String("account", account),
				slog.String("error", err.Error()),
			)
		}
	}
}
