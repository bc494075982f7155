package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborfin/rwaledger/internal/domain"
)

func TestRevalueAdjustsTotals(t *testing.T) {
	l, clock := newTestLedger(t, testParams())

	p := submitMinted(t, l, "alice", "asset-1", 48_000, 8_000)
	clock.Advance(30 * time.Minute)

	updated, evt, err := l.Revalue("orin", p.ID, 52_000)
	require.NoError(t, err)

	assert.Equal(t, int64(52_000), updated.OfficialValue)
	require.NotNil(t, updated.LastValuedAt)
	assert.Equal(t, clock.Now(), *updated.LastValuedAt)
	assert.Equal(t, int64(48_000), evt.Fields["value_before"])
	assert.Equal(t, false, evt.Fields["liquidation_eligible"])

	snap := l.Snapshot()
	assert.Equal(t, int64(52_000), snap.TotalCollateralValue)
	for _, cs := range l.CategoryExposure() {
		if cs.Category == domain.CategoryEquipment {
			assert.Equal(t, int64(52_000), cs.ExposureCurrent)
		}
	}

	// Credit issued at mint is unaffected by later valuations.
	got, err := l.PledgeByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(38_400), got.CreditOutstanding)
}

func TestRevalueGuards(t *testing.T) {
	l, _ := newTestLedger(t, testParams())

	p := submitVerified(t, l, "alice", "asset-1", 48_000, 8_000)

	_, _, err := l.Revalue("alice", p.ID, 52_000)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// Only Minted pledges are revalued.
	_, _, err = l.Revalue("orin", p.ID, 52_000)
	assert.ErrorIs(t, err, domain.ErrNotMinted)

	minted, _, err := l.Mint("alice", p.ID)
	require.NoError(t, err)

	_, _, err = l.Revalue("orin", minted.ID, 999)
	assert.ErrorIs(t, err, domain.ErrValueOutOfRange)
}

func TestRevalueRespectsCategoryLimit(t *testing.T) {
	l, clock := newTestLedger(t, testParams())

	// Equipment limit is 10,000,000; fill most of it with one pledge.
	p := submitMinted(t, l, "alice", "asset-1", 9_500_000, 8_000)
	before := l.Snapshot()

	_, _, err := l.Revalue("orin", p.ID, 11_000_000)
	assert.ErrorIs(t, err, domain.ErrCategoryLimitExceeded)

	// The rejected update changed nothing, including the valuation
	// timestamp.
	got, err := l.PledgeByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9_500_000), got.OfficialValue)
	require.NotNil(t, got.LastValuedAt)
	assert.Equal(t, clock.Now(), *got.LastValuedAt)
	assert.Equal(t, before, l.Snapshot())
	for _, cs := range l.CategoryExposure() {
		if cs.Category == domain.CategoryEquipment {
			assert.Equal(t, int64(9_500_000), cs.ExposureCurrent)
		}
	}

	// Exactly filling the limit is allowed, and moving down from the
	// boundary always is.
	_, _, err = l.Revalue("orin", p.ID, 10_000_000)
	require.NoError(t, err)
	_, _, err = l.Revalue("orin", p.ID, 9_000_000)
	require.NoError(t, err)
}

func TestRevalueFlagsUndercollateralized(t *testing.T) {
	l, _ := newTestLedger(t, testParams())

	p := submitMinted(t, l, "alice", "asset-1", 48_000, 8_000)

	// 44000 * 0.80 = 35200 < 38400 outstanding.
	_, evt, err := l.Revalue("orin", p.ID, 44_000)
	require.NoError(t, err)
	assert.Equal(t, true, evt.Fields["liquidation_eligible"])

	// The flag is advisory; the pledge stays Minted until a liquidator acts.
	got, err := l.PledgeByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusMinted, got.Status)
}

func TestLiquidateUndercollateralized(t *testing.T) {
	l, _ := newTestLedger(t, testParams())

	p := submitMinted(t, l, "alice", "asset-1", 48_000, 8_000)
	_, _, err := l.Revalue("orin", p.ID, 44_000)
	require.NoError(t, err)

	_, _, err = l.Liquidate("alice", p.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	closed, evt, err := l.Liquidate("liza", p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLiquidated, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, false, evt.Fields["stale_valuation"])

	// Collateral and exposure are released; outstanding credit is not
	// burned, so the ratio reflects the shortfall.
	snap := l.Snapshot()
	assert.Zero(t, snap.TotalCollateralValue)
	assert.Equal(t, int64(38_400), snap.TotalCreditSupply)
	assert.Equal(t, int64(1_920), snap.TotalReserves)
	assert.Equal(t, int64(36_480), l.BalanceOf(domain.CategoryEquipment, "alice"))

	// The identifier frees up for a fresh pledge.
	_, _, err = l.Submit("bob", "asset-1", 50_000, domain.CategoryEquipment, testMetadata(), true)
	assert.NoError(t, err)
}

func TestLiquidateHealthyPledgeRejected(t *testing.T) {
	l, _ := newTestLedger(t, testParams())

	p := submitMinted(t, l, "alice", "asset-1", 48_000, 8_000)

	before := l.Snapshot()
	_, _, err := l.Liquidate("liza", p.ID)
	assert.ErrorIs(t, err, domain.ErrNotLiquidatable)
	assert.Equal(t, before, l.Snapshot())

	// Value exactly covering the outstanding credit is still healthy.
	_, _, err = l.Revalue("orin", p.ID, 48_000)
	require.NoError(t, err)
	_, _, err = l.Liquidate("liza", p.ID)
	assert.ErrorIs(t, err, domain.ErrNotLiquidatable)
}

func TestLiquidationEligibilityBoundary(t *testing.T) {
	l, _ := newTestLedger(t, testParams())

	// 48,000 at 80% LTV leaves 38,400 outstanding.
	p := submitMinted(t, l, "alice", "asset-1", 48_000, 8_000)

	// Supported credit equal to the outstanding amount is healthy.
	_, evt, err := l.Revalue("orin", p.ID, 48_000)
	require.NoError(t, err)
	assert.Equal(t, false, evt.Fields["liquidation_eligible"])
	_, _, err = l.Liquidate("liza", p.ID)
	assert.ErrorIs(t, err, domain.ErrNotLiquidatable)

	// One unit of value below the boundary: 47,999 * 0.80 truncates to
	// 38,399 supported, strictly under 38,400 outstanding.
	_, evt, err = l.Revalue("orin", p.ID, 47_999)
	require.NoError(t, err)
	assert.Equal(t, true, evt.Fields["liquidation_eligible"])
	_, _, err = l.Liquidate("liza", p.ID)
	assert.NoError(t, err)
}

func TestLiquidateStaleValuation(t *testing.T) {
	l, clock := newTestLedger(t, testParams())

	p := submitMinted(t, l, "alice", "asset-1", 48_000, 8_000)

	clock.Advance(3_600 * time.Second)
	_, _, err := l.Liquidate("liza", p.ID)
	assert.ErrorIs(t, err, domain.ErrNotLiquidatable)

	// One second past the interval the valuation goes stale and the
	// pledge becomes liquidatable regardless of its last known value.
	clock.Advance(time.Second)
	_, evt, err := l.Liquidate("liza", p.ID)
	require.NoError(t, err)
	assert.Equal(t, true, evt.Fields["stale_valuation"])
}

func TestRevalueRefreshesStaleness(t *testing.T) {
	l, clock := newTestLedger(t, testParams())

	p := submitMinted(t, l, "alice", "asset-1", 48_000, 8_000)

	clock.Advance(3_601 * time.Second)
	_, _, err := l.Revalue("orin", p.ID, 49_000)
	require.NoError(t, err)

	_, _, err = l.Liquidate("liza", p.ID)
	assert.ErrorIs(t, err, domain.ErrNotLiquidatable)
}
