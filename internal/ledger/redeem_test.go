package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborfin/rwaledger/internal/domain"
)

func TestRequestRedemptionBurnsCredit(t *testing.T) {
	l, _ := newTestLedger(t, testParams())

	p := submitMinted(t, l, "alice", "asset-1", 48_000, 8_000)

	req, evt, err := l.RequestRedemption("alice", p.ID, 10_000)
	require.NoError(t, err)

	assert.Equal(t, p.ID, req.PledgeID)
	assert.Equal(t, int64(10_000), req.Amount)
	assert.False(t, req.Settled)

	// Credit burns at request time, not at settlement.
	assert.Equal(t, int64(26_480), l.BalanceOf(domain.CategoryEquipment, "alice"))
	assert.Equal(t, int64(28_400), l.Snapshot().TotalCreditSupply)
	assert.Equal(t, int64(28_400), evt.Fields["supply_after"])

	// Outstanding is reduced only when the request settles.
	got, err := l.PledgeByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(38_400), got.CreditOutstanding)
}

func TestRequestRedemptionGuards(t *testing.T) {
	l, clock := newTestLedger(t, testParams())

	p := submitMinted(t, l, "alice", "asset-1", 48_000, 8_000)

	_, _, err := l.RequestRedemption("bob", p.ID, 10_000)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, _, err = l.RequestRedemption("alice", p.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, _, err = l.RequestRedemption("alice", p.ID, 36_481)
	assert.ErrorIs(t, err, domain.ErrInsufficientCredit)

	// A stale valuation blocks redemption until the oracle refreshes it.
	clock.Advance(3_601 * time.Second)
	_, _, err = l.RequestRedemption("alice", p.ID, 10_000)
	assert.ErrorIs(t, err, domain.ErrStaleValuation)

	_, _, err = l.Revalue("orin", p.ID, 48_000)
	require.NoError(t, err)
	_, _, err = l.RequestRedemption("alice", p.ID, 10_000)
	require.NoError(t, err)

	// One open request per pledge.
	_, _, err = l.RequestRedemption("alice", p.ID, 5_000)
	assert.ErrorIs(t, err, domain.ErrRedemptionPending)
}

func TestRequestRedemptionNonRedeemable(t *testing.T) {
	l, _ := newTestLedger(t, testParams())

	p, _, err := l.Submit("alice", "asset-1", 48_000, domain.CategoryEquipment, testMetadata(), false)
	require.NoError(t, err)
	_, _, err = l.Verify("vera", p.ID, 48_000, 8_000)
	require.NoError(t, err)
	_, _, err = l.Mint("alice", p.ID)
	require.NoError(t, err)

	_, _, err = l.RequestRedemption("alice", p.ID, 10_000)
	assert.ErrorIs(t, err, domain.ErrNotRedeemable)
}

func TestSettleRedemptionDelay(t *testing.T) {
	l, clock := newTestLedger(t, testParams())

	p := submitMinted(t, l, "alice", "asset-1", 48_000, 8_000)
	req, _, err := l.RequestRedemption("alice", p.ID, 10_000)
	require.NoError(t, err)

	_, _, err = l.SettleRedemption("alice", req.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, _, err = l.SettleRedemption("treasury", req.ID)
	assert.ErrorIs(t, err, domain.ErrTooEarly)

	clock.Advance(599 * time.Second)
	_, _, err = l.SettleRedemption("treasury", req.ID)
	assert.ErrorIs(t, err, domain.ErrTooEarly)

	clock.Advance(time.Second)
	settled, _, err := l.SettleRedemption("treasury", req.ID)
	require.NoError(t, err)
	assert.True(t, settled.Settled)
	require.NotNil(t, settled.SettledAt)

	_, _, err = l.SettleRedemption("treasury", req.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)
}

func TestSettlePartialRedemption(t *testing.T) {
	l, clock := newTestLedger(t, testParams())

	p := submitMinted(t, l, "alice", "asset-1", 48_000, 8_000)
	req, _, err := l.RequestRedemption("alice", p.ID, 10_000)
	require.NoError(t, err)

	clock.Advance(601 * time.Second)
	_, evt, err := l.SettleRedemption("treasury", req.ID)
	require.NoError(t, err)
	assert.Equal(t, false, evt.Fields["full"])

	// Outstanding shrinks, the pledge stays Minted, collateral stays.
	got, err := l.PledgeByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusMinted, got.Status)
	assert.Equal(t, int64(28_400), got.CreditOutstanding)
	assert.Equal(t, int64(48_000), l.Snapshot().TotalCollateralValue)

	// A follow-up request is allowed once the first settles.
	_, _, err = l.RequestRedemption("alice", p.ID, 5_000)
	assert.NoError(t, err)
}

func TestSettleFullRedemption(t *testing.T) {
	params := testParams()
	params.ReserveRatioBps = 0
	l, clock := newTestLedger(t, params)

	p := submitMinted(t, l, "alice", "asset-1", 48_000, 8_000)
	require.Equal(t, int64(38_400), l.BalanceOf(domain.CategoryEquipment, "alice"))

	req, _, err := l.RequestRedemption("alice", p.ID, 38_400)
	require.NoError(t, err)

	clock.Advance(601 * time.Second)
	settled, evt, err := l.SettleRedemption("treasury", req.ID)
	require.NoError(t, err)
	assert.True(t, settled.Settled)
	assert.Equal(t, true, evt.Fields["full"])

	got, err := l.PledgeByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRedeemed, got.Status)
	assert.Zero(t, got.CreditOutstanding)
	require.NotNil(t, got.ClosedAt)

	// The closed pledge releases everything it held.
	snap := l.Snapshot()
	assert.Zero(t, snap.TotalCollateralValue)
	assert.Zero(t, snap.TotalCreditSupply)
	for _, cs := range l.CategoryExposure() {
		assert.Zero(t, cs.ExposureCurrent)
	}

	_, _, err = l.Submit("bob", "asset-1", 50_000, domain.CategoryEquipment, testMetadata(), true)
	assert.NoError(t, err)
}

func TestSettleAfterLiquidation(t *testing.T) {
	l, clock := newTestLedger(t, testParams())

	p := submitMinted(t, l, "alice", "asset-1", 48_000, 8_000)
	req, _, err := l.RequestRedemption("alice", p.ID, 10_000)
	require.NoError(t, err)

	_, _, err = l.Revalue("orin", p.ID, 40_000)
	require.NoError(t, err)
	_, _, err = l.Liquidate("liza", p.ID)
	require.NoError(t, err)

	before := l.Snapshot()
	clock.Advance(601 * time.Second)
	settled, _, err := l.SettleRedemption("treasury", req.ID)
	require.NoError(t, err)
	assert.True(t, settled.Settled)

	// The liquidation already released the collateral; settling the
	// leftover request moves no value.
	assert.Equal(t, before, l.Snapshot())
	got, err := l.PledgeByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLiquidated, got.Status)
}

func TestRedemptionQueries(t *testing.T) {
	l, clock := newTestLedger(t, testParams())

	p := submitMinted(t, l, "alice", "asset-1", 48_000, 8_000)
	first, _, err := l.RequestRedemption("alice", p.ID, 5_000)
	require.NoError(t, err)

	clock.Advance(601 * time.Second)
	_, _, err = l.SettleRedemption("treasury", first.ID)
	require.NoError(t, err)

	_, _, err = l.Revalue("orin", p.ID, 48_000)
	require.NoError(t, err)
	second, _, err := l.RequestRedemption("alice", p.ID, 4_000)
	require.NoError(t, err)

	got, err := l.RedemptionByID(first.ID)
	require.NoError(t, err)
	assert.True(t, got.Settled)

	all := l.RedemptionsByPledge(p.ID)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)

	_, err = l.RedemptionByID("no-such-request")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
