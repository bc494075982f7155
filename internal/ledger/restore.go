package ledger

import "github.com/harborfin/rwaledger/internal/domain"

// Restore rebuilds the aggregate from durable state at startup. It
// reconstructs the live-identifier index, the open-request index, and
// recomputes the exposure and system totals from first principles so a
// corrupted counter can never survive a restart. Must be called before
// the ledger serves operations.
func (l *Ledger) Restore(
	pledges []domain.Pledge,
	requests []domain.RedemptionRequest,
	balances []domain.Balance,
	grants []domain.RoleGrant,
) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, c := range l.categories {
		c.current = 0
	}
	l.totalCollateral = 0
	l.totalReserves = 0
	l.totalSupply = 0

	for i := range pledges {
		p := pledges[i]
		l.pledges[p.ID] = &p
		if p.Status.Live() {
			l.byAsset[p.AssetID] = p.ID
		}
		switch p.Status {
		case domain.StatusVerified:
			l.categories[p.Category].current += p.OfficialValue
		case domain.StatusMinted:
			l.categories[p.Category].current += p.OfficialValue
			l.totalCollateral += p.OfficialValue
		}
	}

	for i := range requests {
		r := requests[i]
		l.requests[r.ID] = &r
		if !r.Settled {
			l.openReq[r.PledgeID] = r.ID
		}
	}

	for _, b := range balances {
		if b.Amount == 0 {
			continue
		}
		l.creditBalance(b.Category, b.Account, b.Amount)
		l.totalSupply += b.Amount
		if b.Account == l.params.TreasuryAccount {
			l.totalReserves += b.Amount
		}
	}

	for _, g := range grants {
		if _, ok := l.roles[g.Role]; ok {
			l.roles[g.Role][g.Account] = true
		}
	}
}

// RoleGrants returns every current role grant, for persistence.
func (l *Ledger) RoleGrants() []domain.RoleGrant {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.RoleGrant
	for _, r := range domain.Roles {
		for account := range l.roles[r] {
			out = append(out, domain.RoleGrant{Role: r, Account: account})
		}
	}
	return out
}

// Balances returns every non-zero balance, for persistence.
func (l *Ledger) Balances() []domain.Balance {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.Balance
	for cat, accounts := range l.balances {
		for account, amount := range accounts {
			if amount != 0 {
				out = append(out, domain.Balance{Category: cat, Account: account, Amount: amount})
			}
		}
	}
	return out
}
