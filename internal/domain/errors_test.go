package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		kind ErrorKind
	}{
		{ErrValueOutOfRange, KindValidation},
		{ErrDuplicateAsset, KindValidation},
		{ErrInvalidRole, KindValidation},
		{ErrNotPending, KindState},
		{ErrStaleValuation, KindState},
		{ErrTooEarly, KindState},
		{ErrCategoryLimitExceeded, KindInvariant},
		{ErrCollateralizationBelowMin, KindInvariant},
		{ErrInsufficientCredit, KindInvariant},
		{ErrUnauthorized, KindAuthorization},
		{ErrNotFound, KindNotFound},
		{ErrLockHeld, KindTransient},
		{errors.New("something else"), KindUnknown},
		{nil, KindUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, KindOf(tc.err), "err: %v", tc.err)
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("ledger: verify: %w", ErrCategoryLimitExceeded)
	assert.Equal(t, KindInvariant, KindOf(err))
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("real_estate")
	assert.NoError(t, err)
	assert.Equal(t, CategoryRealEstate, c)

	_, err = ParseCategory("fine_art")
	assert.ErrorIs(t, err, ErrInvalidCategory)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("liquidator")
	assert.NoError(t, err)
	assert.Equal(t, RoleLiquidator, r)

	_, err = ParseRole("superuser")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusVerified.Terminal())
	assert.False(t, StatusMinted.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusRedeemed.Terminal())
	assert.True(t, StatusLiquidated.Terminal())
}

func TestEventChannel(t *testing.T) {
	assert.Equal(t, ChannelPledges, Event{Op: OpSubmit}.Channel())
	assert.Equal(t, ChannelPledges, Event{Op: OpMint}.Channel())
	assert.Equal(t, ChannelValuations, Event{Op: OpRevalue}.Channel())
	assert.Equal(t, ChannelRedemptions, Event{Op: OpRequestRedemption}.Channel())
	assert.Equal(t, ChannelSystem, Event{Op: OpGrantRole}.Channel())
}
