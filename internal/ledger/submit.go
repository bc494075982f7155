package ledger

import (
	"strings"

	"github.com/google/uuid"

	"github.com/harborfin/rwaledger/internal/domain"
)

// metadataRequired lists the descriptive fields a submission must carry.
// Their content is opaque to the engine; only non-emptiness is checked.
var metadataRequired = []string{"description", "document_hash"}

// Submit registers a new pledge in Pending state and reserves its asset
// identifier. The declared value is the pledger's own claim and carries
// no authority.
func (l *Ledger) Submit(actor, assetID string, declaredValue int64, category domain.Category, metadata map[string]any, redeemable bool) (domain.Pledge, domain.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if strings.TrimSpace(assetID) == "" {
		return domain.Pledge{}, domain.Event{}, domain.ErrInvalidAssetID
	}
	if _, ok := l.categories[category]; !ok {
		return domain.Pledge{}, domain.Event{}, domain.ErrInvalidCategory
	}
	if declaredValue < l.params.MinPledgeValue || declaredValue > l.params.MaxPledgeValue {
		return domain.Pledge{}, domain.Event{}, domain.ErrValueOutOfRange
	}
	for _, field := range metadataRequired {
		v, ok := metadata[field]
		if !ok || v == nil {
			return domain.Pledge{}, domain.Event{}, domain.ErrInvalidMetadata
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			return domain.Pledge{}, domain.Event{}, domain.ErrInvalidMetadata
		}
	}
	if _, live := l.byAsset[assetID]; live {
		return domain.Pledge{}, domain.Event{}, domain.ErrDuplicateAsset
	}

	now := l.now().UTC()
	p := &domain.Pledge{
		ID:            uuid.New().String(),
		AssetID:       assetID,
		Owner:         actor,
		Category:      category,
		Status:        domain.StatusPending,
		DeclaredValue: declaredValue,
		Redeemable:    redeemable,
		Metadata:      metadata,
		SubmittedAt:   now,
	}
	l.pledges[p.ID] = p
	l.byAsset[assetID] = p.ID

	evt := l.newEvent(domain.OpSubmit, p.ID, actor, now, map[string]any{
		"asset_id":       assetID,
		"category":       string(category),
		"declared_value": declaredValue,
		"redeemable":     redeemable,
	})
	return copyPledge(p), evt, nil
}

// Cancel withdraws a Pending pledge. Owner-only; frees the asset
// identifier and never touches exposure, which is not incremented for
// Pending pledges.
func (l *Ledger) Cancel(actor, pledgeID string) (domain.Pledge, domain.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.pledges[pledgeID]
	if !ok {
		return domain.Pledge{}, domain.Event{}, domain.ErrNotFound
	}
	if p.Owner != actor {
		return domain.Pledge{}, domain.Event{}, domain.ErrUnauthorized
	}
	if p.Status != domain.StatusPending {
		return domain.Pledge{}, domain.Event{}, domain.ErrNotPending
	}

	now := l.now().UTC()
	p.Status = domain.StatusCancelled
	p.ClosedAt = &now
	delete(l.byAsset, p.AssetID)

	evt := l.newEvent(domain.OpCancel, p.ID, actor, now, map[string]any{
		"asset_id": p.AssetID,
	})
	return copyPledge(p), evt, nil
}

// Reject declines a Pending pledge. Verifier-only; frees the asset
// identifier.
func (l *Ledger) Reject(actor, pledgeID, reason string) (domain.Pledge, domain.Event, error) {
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

	now := l.now().UTC()
	p.Status = domain.StatusRejected
	p.RejectReason = reason
	p.ClosedAt = &now
	delete(l.byAsset, p.AssetID)

	evt := l.newEvent(domain.OpReject, p.ID, actor, now, map[string]any{
		"asset_id": p.AssetID,
		"reason":   reason,
	})
	return copyPledge(p), evt, nil
}
