package ledger

import (
	"github.com/google/uuid"

	"github.com/harborfin/rwaledger/internal/domain"
)

// RequestRedemption burns credit from the pledge owner immediately and
// records an open redemption request. Burning up front prevents the
// same credit being spent while the request waits out the delay. The
// pledge must carry a fresh valuation; a stale one forces the caller to
// obtain an oracle update first.
func (l *Ledger) RequestRedemption(actor, pledgeID string, amount int64) (domain.RedemptionRequest, domain.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.pledges[pledgeID]
	if !ok {
		return domain.RedemptionRequest{}, domain.Event{}, domain.ErrNotFound
	}
	if p.Owner != actor {
		return domain.RedemptionRequest{}, domain.Event{}, domain.ErrUnauthorized
	}
	if p.Status != domain.StatusMinted {
		return domain.RedemptionRequest{}, domain.Event{}, domain.ErrNotMinted
	}
	if !p.Redeemable {
		return domain.RedemptionRequest{}, domain.Event{}, domain.ErrNotRedeemable
	}
	if amount <= 0 {
		return domain.RedemptionRequest{}, domain.Event{}, domain.ErrInvalidAmount
	}

	now := l.now().UTC()
	if l.valuationStale(p, now) {
		return domain.RedemptionRequest{}, domain.Event{}, domain.ErrStaleValuation
	}
	if _, open := l.openReq[p.ID]; open {
		return domain.RedemptionRequest{}, domain.Event{}, domain.ErrRedemptionPending
	}
	if l.balanceOf(p.Category, actor) < amount {
		return domain.RedemptionRequest{}, domain.Event{}, domain.ErrInsufficientCredit
	}

	l.debitBalance(p.Category, actor, amount)
	l.totalSupply -= amount

	r := &domain.RedemptionRequest{
		ID:          uuid.New().String(),
		PledgeID:    p.ID,
		Owner:       actor,
		Amount:      amount,
		RequestedAt: now,
	}
	l.requests[r.ID] = r
	l.openReq[p.ID] = r.ID

	evt := l.newEvent(domain.OpRequestRedemption, p.ID, actor, now, map[string]any{
		"request_id":   r.ID,
		"amount":       amount,
		"supply_after": l.totalSupply,
	})
	return copyRequest(r), evt, nil
}

// SettleRedemption completes a redemption once the mandatory delay has
// elapsed. A settlement covering the pledge's remaining outstanding
// credit transitions it to Redeemed and releases its exposure and
// collateral accounting exactly as liquidation does; a smaller amount
// only reduces the outstanding bookkeeping and leaves the pledge
// Minted.
func (l *Ledger) SettleRedemption(actor, requestID string) (domain.RedemptionRequest, domain.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(actor, domain.RoleTreasury); err != nil {
		return domain.RedemptionRequest{}, domain.Event{}, err
	}
	r, ok := l.requests[requestID]
	if !ok {
		return domain.RedemptionRequest{}, domain.Event{}, domain.ErrNotFound
	}
	if r.Settled {
		return domain.RedemptionRequest{}, domain.Event{}, domain.ErrAlreadySettled
	}

	now := l.now().UTC()
	if now.Sub(r.RequestedAt) < delaySeconds(l.params.RedemptionDelaySeconds) {
		return domain.RedemptionRequest{}, domain.Event{}, domain.ErrTooEarly
	}

	p, ok := l.pledges[r.PledgeID]
	if !ok {
		return domain.RedemptionRequest{}, domain.Event{}, domain.ErrNotFound
	}

	// A pledge liquidated while the request was open has no collateral
	// left to release; the request still settles, bookkeeping-only.
	minted := p.Status == domain.StatusMinted
	full := minted && r.Amount >= p.CreditOutstanding

	r.Settled = true
	r.SettledAt = &now
	delete(l.openReq, p.ID)

	fields := map[string]any{
		"request_id":         r.ID,
		"amount":             r.Amount,
		"full":               full,
		"outstanding_before": p.CreditOutstanding,
	}

	if full {
		cat := l.categories[p.Category]
		cat.current -= p.OfficialValue
		l.totalCollateral -= p.OfficialValue

		p.CreditOutstanding = 0
		p.Status = domain.StatusRedeemed
		p.ClosedAt = &now
		delete(l.byAsset, p.AssetID)

		fields["exposure_after"] = cat.current
		fields["collateral_after"] = l.totalCollateral
	} else if minted {
		p.CreditOutstanding -= r.Amount
	}
	fields["outstanding_after"] = p.CreditOutstanding

	evt := l.newEvent(domain.OpSettleRedemption, p.ID, actor, now, fields)
	return copyRequest(r), evt, nil
}
