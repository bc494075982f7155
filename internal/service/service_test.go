package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborfin/rwaledger/internal/domain"
	"github.com/harborfin/rwaledger/internal/ledger"
)

type fakePledgeStore struct {
	upserts []domain.Pledge
	err     error
}

func (f *fakePledgeStore) Upsert(ctx context.Context, p domain.Pledge) error {
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, p)
	return nil
}

func (f *fakePledgeStore) GetByID(ctx context.Context, id string) (domain.Pledge, error) {
	return domain.Pledge{}, domain.ErrNotFound
}

func (f *fakePledgeStore) ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.Pledge, error) {
	return nil, nil
}

func (f *fakePledgeStore) ListByStatus(ctx context.Context, status domain.PledgeStatus, opts domain.ListOpts) ([]domain.Pledge, error) {
	return nil, nil
}

func (f *fakePledgeStore) ListAll(ctx context.Context) ([]domain.Pledge, error) {
	return nil, nil
}

type fakeBalanceStore struct {
	sets []domain.Balance
}

func (f *fakeBalanceStore) Set(ctx context.Context, b domain.Balance) error {
	f.sets = append(f.sets, b)
	return nil
}

func (f *fakeBalanceStore) Get(ctx context.Context, category domain.Category, account string) (domain.Balance, error) {
	return domain.Balance{}, domain.ErrNotFound
}

func (f *fakeBalanceStore) ListAll(ctx context.Context) ([]domain.Balance, error) {
	return nil, nil
}

type fakeAuditStore struct {
	events []string
	err    error
}

func (f *fakeAuditStore) Log(ctx context.Context, event string, detail map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAuditStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (f *fakeAuditStore) ListBefore(ctx context.Context, before time.Time) ([]domain.AuditEntry, error) {
	return nil, nil
}

type busRecord struct {
	channel string
	payload []byte
}

type fakeSignalBus struct {
	published []busRecord
	streamed  []busRecord
	err       error
}

func (f *fakeSignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, busRecord{channel: channel, payload: payload})
	return nil
}

func (f *fakeSignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return make(chan []byte), nil
}

func (f *fakeSignalBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.streamed = append(f.streamed, busRecord{channel: stream, payload: payload})
	return nil
}

func (f *fakeSignalBus) StreamRead(ctx context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	return nil, nil
}

type fakeLockManager struct {
	acquired []string
	released int
}

func (f *fakeLockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	f.acquired = append(f.acquired, key)
	return func() { f.released++ }, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testLedger() *ledger.Ledger {
	params := domain.Params{
		MinPledgeValue:             1_000,
		MaxPledgeValue:             1_000_000_000,
		LTVCeilingBps:              8_000,
		CollateralizationMinBps:    12_000,
		ReserveRatioBps:            500,
		PledgeExpirySeconds:        30 * 24 * 3600,
		RevaluationIntervalSeconds: 24 * 3600,
		RedemptionDelaySeconds:     48 * 3600,
		TreasuryAccount:            "treasury",
	}
	limits := map[domain.Category]int64{
		domain.CategoryRealEstate: 1_000_000_000,
	}
	l := ledger.New(params, limits, []string{"admin"})
	if _, err := l.GrantRole("admin", domain.RoleVerifier, "verifier"); err != nil {
		panic(err)
	}
	return l
}

func submitMetadata() map[string]any {
	return map[string]any{
		"description":   "warehouse 7",
		"document_hash": "abc123",
	}
}

func TestSubmitMirrorsAndEmits(t *testing.T) {
	l := testLedger()
	pledges := &fakePledgeStore{}
	audit := &fakeAuditStore{}
	bus := &fakeSignalBus{}
	svc := NewPledgeService(l, pledges, audit, bus, testLogger())

	p, err := svc.Submit(context.Background(), "alice", "asset-1", 100_000, domain.CategoryRealEstate, submitMetadata(), true)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, p.Status)

	require.Len(t, pledges.upserts, 1)
	assert.Equal(t, p.ID, pledges.upserts[0].ID)
	assert.Equal(t, []string{domain.OpSubmit}, audit.events)

	require.Len(t, bus.published, 1)
	assert.Equal(t, domain.ChannelPledges, bus.published[0].channel)
	var evt domain.Event
	require.NoError(t, json.Unmarshal(bus.published[0].payload, &evt))
	assert.Equal(t, domain.OpSubmit, evt.Op)
	assert.Equal(t, "alice", evt.Actor)

	require.Len(t, bus.streamed, 1)
	assert.Equal(t, domain.EventStream, bus.streamed[0].channel)
}

func TestSubmitSurvivesSideEffectFailures(t *testing.T) {
	l := testLedger()
	pledges := &fakePledgeStore{err: errors.New("pg down")}
	audit := &fakeAuditStore{err: errors.New("pg down")}
	bus := &fakeSignalBus{err: errors.New("redis down")}
	svc := NewPledgeService(l, pledges, audit, bus, testLogger())

	p, err := svc.Submit(context.Background(), "alice", "asset-1", 100_000, domain.CategoryRealEstate, submitMetadata(), true)
	require.NoError(t, err)

	// The ledger committed; the pledge is queryable even though every
	// mirror failed.
	got, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestSubmitRejectsInvalidInputWithoutSideEffects(t *testing.T) {
	l := testLedger()
	pledges := &fakePledgeStore{}
	audit := &fakeAuditStore{}
	bus := &fakeSignalBus{}
	svc := NewPledgeService(l, pledges, audit, bus, testLogger())

	_, err := svc.Submit(context.Background(), "alice", "asset-1", 1, domain.CategoryRealEstate, submitMetadata(), true)
	require.ErrorIs(t, err, domain.ErrValueOutOfRange)

	assert.Empty(t, pledges.upserts)
	assert.Empty(t, audit.events)
	assert.Empty(t, bus.published)
}

func TestMintLocksAndMirrorsBalances(t *testing.T) {
	l := testLedger()
	pledges := &fakePledgeStore{}
	balances := &fakeBalanceStore{}
	audit := &fakeAuditStore{}
	bus := &fakeSignalBus{}
	locks := &fakeLockManager{}

	pledgeSvc := NewPledgeService(l, pledges, audit, bus, testLogger())
	issuanceSvc := NewIssuanceService(l, pledges, balances, locks, audit, bus, testLogger())

	p, err := pledgeSvc.Submit(context.Background(), "alice", "asset-1", 1_000_000, domain.CategoryRealEstate, submitMetadata(), true)
	require.NoError(t, err)
	_, err = pledgeSvc.Verify(context.Background(), "verifier", p.ID, 1_000_000, 8_000)
	require.NoError(t, err)

	minted, err := issuanceSvc.Mint(context.Background(), "alice", p.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"mint:" + p.ID}, locks.acquired)
	assert.Equal(t, 1, locks.released)

	// credit 800_000 at 80% LTV; 5% reserve withheld to treasury.
	assert.Equal(t, int64(800_000), minted.CreditAmount)

	require.Len(t, balances.sets, 2)
	byAccount := map[string]int64{}
	for _, b := range balances.sets {
		byAccount[b.Account] = b.Amount
	}
	assert.Equal(t, int64(760_000), byAccount["alice"])
	assert.Equal(t, int64(40_000), byAccount["treasury"])

	owned, err := issuanceSvc.Balance(context.Background(), domain.CategoryRealEstate, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(760_000), owned.Amount)
}
