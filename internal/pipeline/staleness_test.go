package pipeline

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborfin/rwaledger/internal/domain"
)

type fakeRegistry struct {
	pledges []domain.Pledge
	params  domain.Params
}

func (f *fakeRegistry) PledgesByStatus(status domain.PledgeStatus) []domain.Pledge {
	var out []domain.Pledge
	for _, p := range f.pledges {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeRegistry) Params() domain.Params { return f.params }

type fakeBus struct {
	published []publishedMsg
}

type publishedMsg struct {
	channel string
	payload []byte
}

func (f *fakeBus) Publish(ctx context.Context, channel string, payload []byte) error {
	f.published = append(f.published, publishedMsg{channel: channel, payload: payload})
	return nil
}

func (f *fakeBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	return ch, nil
}

func (f *fakeBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	return nil
}

func (f *fakeBus) StreamRead(ctx context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func TestStalenessSweepFlagsOverduePledge(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-48 * time.Hour)

	registry := &fakeRegistry{
		params: domain.Params{RevaluationIntervalSeconds: 86400},
		pledges: []domain.Pledge{
			{ID: "p-stale", Status: domain.StatusMinted, OfficialValue: 1_000_00, LastValuedAt: &old},
		},
	}
	bus := &fakeBus{}
	m := NewStalenessMonitor(registry, bus, time.Minute, testLogger())

	m.sweep(context.Background(), now)

	require.Len(t, bus.published, 1)
	assert.Equal(t, domain.ChannelValuations, bus.published[0].channel)

	var evt domain.Event
	require.NoError(t, json.Unmarshal(bus.published[0].payload, &evt))
	assert.Equal(t, domain.OpValuationStale, evt.Op)
	assert.Equal(t, "p-stale", evt.PledgeID)
	assert.Equal(t, "system", evt.Actor)
}

func TestStalenessSweepFlagsOncePerValuation(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-48 * time.Hour)

	registry := &fakeRegistry{
		params: domain.Params{RevaluationIntervalSeconds: 86400},
		pledges: []domain.Pledge{
			{ID: "p-stale", Status: domain.StatusMinted, LastValuedAt: &old},
		},
	}
	bus := &fakeBus{}
	m := NewStalenessMonitor(registry, bus, time.Minute, testLogger())

	m.sweep(context.Background(), now)
	m.sweep(context.Background(), now.Add(time.Hour))
	require.Len(t, bus.published, 1)

	// A fresh valuation that later goes stale again is flagged again.
	fresh := now.Add(time.Hour)
	registry.pledges[0].LastValuedAt = &fresh
	m.sweep(context.Background(), now.Add(2*time.Hour))
	require.Len(t, bus.published, 1)

	m.sweep(context.Background(), fresh.Add(25*time.Hour))
	assert.Len(t, bus.published, 2)
}

func TestStalenessSweepIgnoresFreshAndNonMinted(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Hour)
	old := now.Add(-48 * time.Hour)

	registry := &fakeRegistry{
		params: domain.Params{RevaluationIntervalSeconds: 86400},
		pledges: []domain.Pledge{
			{ID: "p-fresh", Status: domain.StatusMinted, LastValuedAt: &recent},
			{ID: "p-pending", Status: domain.StatusPending, LastValuedAt: &old},
		},
	}
	bus := &fakeBus{}
	m := NewStalenessMonitor(registry, bus, time.Minute, testLogger())

	m.sweep(context.Background(), now)
	assert.Empty(t, bus.published)
}
