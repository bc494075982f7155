package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborfin/rwaledger/internal/domain"
)

func TestGrantAndRevokeRole(t *testing.T) {
	l, _ := newTestLedger(t, testParams())

	_, err := l.GrantRole("alice", domain.RoleOracle, "bob")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = l.GrantRole("adm", domain.Role("auditor"), "bob")
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	evt, err := l.GrantRole("adm", domain.RoleOracle, "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.OpGrantRole, evt.Op)
	assert.True(t, l.HasRole("bob", domain.RoleOracle))

	// The new oracle can act immediately.
	p := submitMinted(t, l, "alice", "asset-1", 48_000, 8_000)
	_, _, err = l.Revalue("bob", p.ID, 49_000)
	assert.NoError(t, err)

	_, err = l.RevokeRole("adm", domain.RoleOracle, "bob")
	require.NoError(t, err)
	assert.False(t, l.HasRole("bob", domain.RoleOracle))

	_, _, err = l.Revalue("bob", p.ID, 50_000)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSetCategoryLimit(t *testing.T) {
	l, _ := newTestLedger(t, testParams())

	_, err := l.SetCategoryLimit("vera", domain.CategoryEquipment, 1_000_000)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = l.SetCategoryLimit("adm", domain.Category("art"), 1_000_000)
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)

	evt, err := l.SetCategoryLimit("adm", domain.CategoryEquipment, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), evt.Fields["limit_after"])

	submitVerified(t, l, "alice", "asset-1", 48_000, 8_000)

	// The limit cannot drop below what live pledges already occupy.
	_, err = l.SetCategoryLimit("adm", domain.CategoryEquipment, 40_000)
	assert.ErrorIs(t, err, domain.ErrCategoryLimitExceeded)

	_, err = l.SetCategoryLimit("adm", domain.CategoryEquipment, 48_000)
	assert.NoError(t, err)
}

func TestUpdateParams(t *testing.T) {
	l, _ := newTestLedger(t, testParams())

	next := testParams()
	next.LTVCeilingBps = 7_000

	_, err := l.UpdateParams("vera", next)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = l.UpdateParams("adm", next)
	require.NoError(t, err)
	assert.Equal(t, int64(7_000), l.Params().LTVCeilingBps)

	// New policy applies to the next operation.
	p, _, err := l.Submit("alice", "asset-1", 50_000, domain.CategoryEquipment, testMetadata(), true)
	require.NoError(t, err)
	_, _, err = l.Verify("vera", p.ID, 48_000, 8_000)
	assert.ErrorIs(t, err, domain.ErrInvalidLTV)
}
