package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/harborfin/rwaledger/internal/domain"
)

// PledgeRegistry is the view of the ledger the staleness sweep needs.
type PledgeRegistry interface {
	PledgesByStatus(status domain.PledgeStatus) []domain.Pledge
	Params() domain.Params
}

// StalenessMonitor periodically scans minted pledges and publishes an
// event for every pledge whose valuation has gone stale, so oracles and
// operators learn about overdue revaluations without polling each
// pledge. Enforcement stays lazy; the sweep only signals.
type StalenessMonitor struct {
	registry PledgeRegistry
	bus      domain.SignalBus
	interval time.Duration
	logger   *slog.Logger

	// flagged maps pledge ID to the valuation timestamp already
	// reported, so an unchanged stale pledge is flagged once per
	// valuation, not once per sweep.
	flagged map[string]time.Time
}

// NewStalenessMonitor creates a StalenessMonitor that sweeps at the given
// interval.
func NewStalenessMonitor(registry PledgeRegistry, bus domain.SignalBus, interval time.Duration, logger *slog.Logger) *StalenessMonitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &StalenessMonitor{
		registry: registry,
		bus:      bus,
		interval: interval,
		logger:   logger,
		flagged:  make(map[string]time.Time),
	}
}

// Run sweeps until the context is cancelled.
func (m *StalenessMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.sweep(ctx, time.Now().UTC())
		}
	}
}

// sweep flags every minted pledge whose valuation is older than the
// configured revaluation interval.
func (m *StalenessMonitor) sweep(ctx context.Context, now time.Time) {
	params := m.registry.Params()
	maxAge := time.Duration(params.RevaluationIntervalSeconds) * time.Second

	minted := m.registry.PledgesByStatus(domain.StatusMinted)
	live := make(map[string]bool, len(minted))

	for _, p := range minted {
		live[p.ID] = true

		var valuedAt time.Time
		if p.LastValuedAt != nil {
			valuedAt = *p.LastValuedAt
		}
		stale := p.LastValuedAt == nil || now.Sub(valuedAt) > maxAge
		if !stale {
			delete(m.flagged, p.ID)
			continue
		}
		if reported, ok := m.flagged[p.ID]; ok && reported.Equal(valuedAt) {
			continue
		}
		m.flagged[p.ID] = valuedAt

		m.publish(ctx, p, valuedAt, now)
	}

	// Drop tracking for pledges that left the minted state.
	for id := range m.flagged {
		if !live[id] {
			delete(m.flagged, id)
		}
	}
}

func (m *StalenessMonitor) publish(ctx context.Context, p domain.Pledge, valuedAt, now time.Time) {
	evt := domain.Event{
		ID:       uuid.NewString(),
		Op:       domain.OpValuationStale,
		PledgeID: p.ID,
		Actor:    "system",
		At:       now,
		Fields: map[string]any{
			"official_value": p.OfficialValue,
			"last_valued_at": valuedAt,
		},
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}
	if err := m.bus.Publish(ctx, evt.Channel(), payload); err != nil {
		m.logger.WarnContext(ctx, "staleness monitor: publish failed",
			slog.String("pledge_id", p.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	m.logger.InfoContext(ctx, "staleness monitor: stale valuation flagged",
		slog.String("pledge_id", p.ID),
		slog.Time("last_valued_at", valuedAt),
	)
}
