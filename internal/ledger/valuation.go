package ledger

import "github.com/harborfin/rwaledger/internal/domain"

// Revalue applies an oracle valuation update to a Minted pledge,
// adjusting the category exposure and the system collateral total by
// the delta. An upward revaluation that would push the category past
// its exposure limit is rejected; the limit bounds exposure no matter
// which operation moves it. If the update leaves the pledge
// under-collateralized the event carries a liquidation_eligible flag,
// but revaluation never liquidates by itself; that is a
// separately-authorized action.
func (l *Ledger) Revalue(actor, pledgeID string, newValue int64) (domain.Pledge, domain.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(actor, domain.RoleOracle); err != nil {
		return domain.Pledge{}, domain.Event{}, err
	}
	p, ok := l.pledges[pledgeID]
	if !ok {
		return domain.Pledge{}, domain.Event{}, domain.ErrNotFound
	}
	if p.Status != domain.StatusMinted {
		return domain.Pledge{}, domain.Event{}, domain.ErrNotMinted
	}
	if newValue < l.params.MinPledgeValue || newValue > l.params.MaxPledgeValue {
		return domain.Pledge{}, domain.Event{}, domain.ErrValueOutOfRange
	}

	oldValue := p.OfficialValue
	delta := newValue - oldValue

	cat := l.categories[p.Category]
	if delta > 0 && cat.current+delta > cat.limit {
		return domain.Pledge{}, domain.Event{}, domain.ErrCategoryLimitExceeded
	}

	now := l.now().UTC()
	cat.current += delta
	l.totalCollateral += delta

	p.OfficialValue = newValue
	p.LastValuedAt = &now

	evt := l.newEvent(domain.OpRevalue, p.ID, actor, now, map[string]any{
		"value_before":         oldValue,
		"value_after":          newValue,
		"exposure_after":       cat.current,
		"collateral_after":     l.totalCollateral,
		"liquidation_eligible": l.liquidationEligible(p),
	})
	return copyPledge(p), evt, nil
}

// Liquidate force-closes a Minted pledge. Permitted only when the
// pledge is liquidation-eligible at call time, or when its valuation is
// older than the revaluation interval (a stale valuation is itself
// grounds for liquidation). The pledge's value leaves the exposure and
// collateral accounting and the asset identifier is freed. Outstanding
// credit is NOT burned; the reserve buffer absorbs the shortfall.
func (l *Ledger) Liquidate(actor, pledgeID string) (domain.Pledge, domain.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(actor, domain.RoleLiquidator); err != nil {
		return domain.Pledge{}, domain.Event{}, err
	}
	p, ok := l.pledges[pledgeID]
	if !ok {
		return domain.Pledge{}, domain.Event{}, domain.ErrNotFound
	}
	if p.Status != domain.StatusMinted {
		return domain.Pledge{}, domain.Event{}, domain.ErrNotMinted
	}

	now := l.now().UTC()
	eligible := l.liquidationEligible(p)
	stale := l.valuationStale(p, now)
	if !eligible && !stale {
		return domain.Pledge{}, domain.Event{}, domain.ErrNotLiquidatable
	}

	cat := l.categories[p.Category]
	cat.current -= p.OfficialValue
	l.totalCollateral -= p.OfficialValue

	p.Status = domain.StatusLiquidated
	p.ClosedAt = &now
	delete(l.byAsset, p.AssetID)

	evt := l.newEvent(domain.OpLiquidate, p.ID, actor, now, map[string]any{
		"asset_id":           p.AssetID,
		"official_value":     p.OfficialValue,
		"credit_outstanding": p.CreditOutstanding,
		"stale_valuation":    stale,
		"exposure_after":     cat.current,
		"collateral_after":   l.totalCollateral,
	})
	return copyPledge(p), evt, nil
}
