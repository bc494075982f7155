package ledger

import "github.com/harborfin/rwaledger/internal/domain"

// Mint issues category credit against a Verified pledge. The credit
// amount is officialValue * ltv / 10000, truncating in the protocol's
// favor. A reserve fraction of every mint is withheld to the treasury
// account. The collateralization gate is evaluated on the prospective
// post-mint totals before any state is touched; on failure nothing
// changes. This is the only place credit is created.
func (l *Ledger) Mint(actor, pledgeID string) (domain.Pledge, domain.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.pledges[pledgeID]
	if !ok {
		return domain.Pledge{}, domain.Event{}, domain.ErrNotFound
	}
	if p.Owner != actor && !l.hasRole(actor, domain.RoleAdmin) {
		return domain.Pledge{}, domain.Event{}, domain.ErrUnauthorized
	}
	if p.Status != domain.StatusVerified {
		return domain.Pledge{}, domain.Event{}, domain.ErrNotVerified
	}

	now := l.now().UTC()
	if l.pledgeExpired(p, now) {
		return domain.Pledge{}, domain.Event{}, domain.ErrPledgeExpired
	}

	creditAmount := p.OfficialValue * p.LTVBps / domain.BpsDenominator
	if creditAmount <= 0 {
		return domain.Pledge{}, domain.Event{}, domain.ErrInvalidAmount
	}
	reserveAmount := creditAmount * l.params.ReserveRatioBps / domain.BpsDenominator

	if !collateralizationOK(
		l.totalCollateral+p.OfficialValue,
		l.totalReserves+reserveAmount,
		l.totalSupply+creditAmount,
		l.params.CollateralizationMinBps,
	) {
		return domain.Pledge{}, domain.Event{}, domain.ErrCollateralizationBelowMin
	}

	supplyBefore := l.totalSupply

	l.creditBalance(p.Category, l.params.TreasuryAccount, reserveAmount)
	l.creditBalance(p.Category, p.Owner, creditAmount-reserveAmount)
	l.totalSupply += creditAmount
	l.totalCollateral += p.OfficialValue
	l.totalReserves += reserveAmount

	p.Status = domain.StatusMinted
	p.CreditAmount = creditAmount
	p.CreditOutstanding = creditAmount
	p.MintedAt = &now

	evt := l.newEvent(domain.OpMint, p.ID, actor, now, map[string]any{
		"category":         string(p.Category),
		"official_value":   p.OfficialValue,
		"ltv_bps":          p.LTVBps,
		"credit_amount":    creditAmount,
		"reserve_amount":   reserveAmount,
		"owner_amount":     creditAmount - reserveAmount,
		"supply_before":    supplyBefore,
		"supply_after":     l.totalSupply,
		"collateral_after": l.totalCollateral,
	})
	return copyPledge(p), evt, nil
}
