package ledger

import (
	"sort"

	"github.com/harborfin/rwaledger/internal/domain"
)

// PledgeByID returns a detached copy of the pledge.
func (l *Ledger) PledgeByID(id string) (domain.Pledge, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.pledges[id]
	if !ok {
		return domain.Pledge{}, domain.ErrNotFound
	}
	return copyPledge(p), nil
}

// PledgeByAssetID resolves a live asset identifier to its pledge.
func (l *Ledger) PledgeByAssetID(assetID string) (domain.Pledge, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id, ok := l.byAsset[assetID]
	if !ok {
		return domain.Pledge{}, domain.ErrNotFound
	}
	return copyPledge(l.pledges[id]), nil
}

// PledgesByOwner returns the owner's pledges, newest first.
func (l *Ledger) PledgesByOwner(owner string) []domain.Pledge {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.Pledge
	for _, p := range l.pledges {
		if p.Owner == owner {
			out = append(out, copyPledge(p))
		}
	}
	sortPledges(out)
	return out
}

// PledgesByStatus returns pledges in the given status, newest first.
func (l *Ledger) PledgesByStatus(status domain.PledgeStatus) []domain.Pledge {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.Pledge
	for _, p := range l.pledges {
		if p.Status == status {
			out = append(out, copyPledge(p))
		}
	}
	sortPledges(out)
	return out
}

func sortPledges(ps []domain.Pledge) {
	sort.Slice(ps, func(i, j int) bool {
		return ps[i].SubmittedAt.After(ps[j].SubmittedAt)
	})
}

// RedemptionByID returns a detached copy of a redemption request.
func (l *Ledger) RedemptionByID(id string) (domain.RedemptionRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.requests[id]
	if !ok {
		return domain.RedemptionRequest{}, domain.ErrNotFound
	}
	return copyRequest(r), nil
}

// RedemptionsByPledge returns all requests ever made against a pledge.
func (l *Ledger) RedemptionsByPledge(pledgeID string) []domain.RedemptionRequest {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.RedemptionRequest
	for _, r := range l.requests {
		if r.PledgeID == pledgeID {
			out = append(out, copyRequest(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RequestedAt.After(out[j].RequestedAt)
	})
	return out
}

// BalanceOf returns the account's holding of one category's credit.
func (l *Ledger) BalanceOf(category domain.Category, account string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceOf(category, account)
}

// CategoryExposure returns every category's exposure snapshot.
func (l *Ledger) CategoryExposure() []domain.CategorySnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.CategorySnapshot, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		cs := l.categories[c]
		out = append(out, domain.CategorySnapshot{
			Category:        c,
			ExposureLimit:   cs.limit,
			ExposureCurrent: cs.current,
		})
	}
	return out
}

// Snapshot returns the system totals and collateralization ratio.
func (l *Ledger) Snapshot() domain.SystemSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}
