package s3blob

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborfin/rwaledger/internal/domain"
)

type fakeWriter struct {
	puts map[string][]byte
}

func (w *fakeWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.puts[path] = buf
	return nil
}

func (w *fakeWriter) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	return w.Put(ctx, path, data, "")
}

type fakeAuditStore struct {
	entries []domain.AuditEntry
	logged  []string
}

func (s *fakeAuditStore) Log(_ context.Context, event string, _ map[string]any) error {
	s.logged = append(s.logged, event)
	return nil
}

func (s *fakeAuditStore) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return s.entries, nil
}

func (s *fakeAuditStore) ListBefore(_ context.Context, before time.Time) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	for _, e := range s.entries {
		if e.CreatedAt.Before(before) {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeRedemptionStore struct {
	requests []domain.RedemptionRequest
}

func (s *fakeRedemptionStore) Upsert(context.Context, domain.RedemptionRequest) error { return nil }
func (s *fakeRedemptionStore) GetByID(context.Context, string) (domain.RedemptionRequest, error) {
	return domain.RedemptionRequest{}, domain.ErrNotFound
}
func (s *fakeRedemptionStore) ListByPledge(context.Context, string) ([]domain.RedemptionRequest, error) {
	return nil, nil
}
func (s *fakeRedemptionStore) ListOpen(context.Context) ([]domain.RedemptionRequest, error) {
	return nil, nil
}
func (s *fakeRedemptionStore) ListSettledBefore(_ context.Context, before time.Time) ([]domain.RedemptionRequest, error) {
	var out []domain.RedemptionRequest
	for _, r := range s.requests {
		if r.SettledAt != nil && r.SettledAt.Before(before) {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestArchiveAudit(t *testing.T) {
	cutoff := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	audit := &fakeAuditStore{entries: []domain.AuditEntry{
		{ID: 1, Event: "pledge.submit", CreatedAt: cutoff.Add(-48 * time.Hour)},
		{ID: 2, Event: "pledge.verify", CreatedAt: cutoff.Add(-24 * time.Hour)},
		{ID: 3, Event: "pledge.mint", CreatedAt: cutoff.Add(time.Hour)},
	}}
	writer := &fakeWriter{puts: map[string][]byte{}}

	a := NewArchiver(writer, audit, &fakeRedemptionStore{}, "archive")

	count, err := a.ArchiveAudit(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	data, ok := writer.puts["archive/audit/2025-03.jsonl"]
	require.True(t, ok)
	assert.Contains(t, string(data), "pledge.submit")
	assert.Contains(t, string(data), "pledge.verify")
	assert.NotContains(t, string(data), "pledge.mint")
	assert.Contains(t, audit.logged, "archive.audit")
}

func TestArchiveAuditEmpty(t *testing.T) {
	writer := &fakeWriter{puts: map[string][]byte{}}
	a := NewArchiver(writer, &fakeAuditStore{}, &fakeRedemptionStore{}, "archive")

	count, err := a.ArchiveAudit(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, writer.puts)
}

func TestArchiveRedemptions(t *testing.T) {
	cutoff := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	old := cutoff.Add(-time.Hour)
	recent := cutoff.Add(time.Hour)

	store := &fakeRedemptionStore{requests: []domain.RedemptionRequest{
		{ID: "r-1", PledgeID: "p-1", Amount: 500, Settled: true, SettledAt: &old},
		{ID: "r-2", PledgeID: "p-2", Amount: 900, Settled: true, SettledAt: &recent},
	}}
	audit := &fakeAuditStore{}
	writer := &fakeWriter{puts: map[string][]byte{}}

	a := NewArchiver(writer, audit, store, "cold")

	count, err := a.ArchiveRedemptions(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	data, ok := writer.puts["cold/redemptions/2025-03.jsonl"]
	require.True(t, ok)
	assert.Contains(t, string(data), "r-1")
	assert.NotContains(t, string(data), "r-2")
	assert.Contains(t, audit.logged, "archive.redemptions")
}
