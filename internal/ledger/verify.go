package ledger

import "github.com/harborfin/rwaledger/internal/domain"

// Verify approves a Pending pledge with an official appraised value and
// an LTV. Exposure capacity is reserved here, before any credit exists,
// so the category accounting covers verified-but-unminted pledges too.
// Credit itself is sized at mint time from the then-current official
// value.
func (l *Ledger) Verify(actor, pledgeID string, officialValue, ltvBps int64) (domain.Pledge, domain.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(actor, domain.RoleVerifier); err != nil {
		return domain.Pledge{}, domain.Event{}, err
	}
	p, ok := l.pledges[pledgeID]
	if !ok {
		return domain.Pledge{}, domain.Event{}, domain.ErrNotFound
	}
	if p.Status != domain.StatusPending {
		return domain.Pledge{}, domain.Event{}, domain.ErrNotPending
	}
	if officialValue < l.params.MinPledgeValue || officialValue > l.params.MaxPledgeValue {
		return domain.Pledge{}, domain.Event{}, domain.ErrValueOutOfRange
	}
	if ltvBps <= 0 || ltvBps > l.params.LTVCeilingBps {
		return domain.Pledge{}, domain.Event{}, domain.ErrInvalidLTV
	}

	now := l.now().UTC()
	if l.pledgeExpired(p, now) {
		return domain.Pledge{}, domain.Event{}, domain.ErrPledgeExpired
	}

	cat := l.categories[p.Category]
	if cat.current+officialValue > cat.limit {
		return domain.Pledge{}, domain.Event{}, domain.ErrCategoryLimitExceeded
	}

	exposureBefore := cat.current
	cat.current += officialValue

	p.Status = domain.StatusVerified
	p.OfficialValue = officialValue
	p.LTVBps = ltvBps
	p.Verifier = actor
	p.VerifiedAt = &now
	p.LastValuedAt = &now

	evt := l.newEvent(domain.OpVerify, p.ID, actor, now, map[string]any{
		"asset_id":        p.AssetID,
		"category":        string(p.Category),
		"official_value":  officialValue,
		"ltv_bps":         ltvBps,
		"exposure_before": exposureBefore,
		"exposure_after":  cat.current,
	})
	return copyPledge(p), evt, nil
}
