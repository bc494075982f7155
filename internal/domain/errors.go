package domain

import "errors"

// Input validation errors. The operation had no effect; a retry with
// corrected input is safe.
var (
	ErrValueOutOfRange = errors.New("value out of configured range")
	ErrInvalidAssetID  = errors.New("invalid asset identifier")
	ErrDuplicateAsset  = errors.New("asset identifier already in use")
	ErrInvalidLTV      = errors.New("ltv out of range")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrInvalidMetadata = errors.New("metadata missing required fields")
	ErrInvalidCategory = errors.New("unknown asset category")
	ErrInvalidRole     = errors.New("unknown role")
)

// State-machine violations. The caller invoked the wrong operation for
// the pledge's current lifecycle stage.
var (
	ErrNotPending        = errors.New("pledge is not pending")
	ErrNotVerified       = errors.New("pledge is not verified")
	ErrNotMinted         = errors.New("pledge is not minted")
	ErrAlreadySettled    = errors.New("redemption request already settled")
	ErrRedemptionPending = errors.New("pledge already has an open redemption request")
	ErrNotRedeemable     = errors.New("pledge was submitted as non-redeemable")
	ErrPledgeExpired     = errors.New("pledge expiry window elapsed")
	ErrTooEarly          = errors.New("redemption delay has not elapsed")
	ErrStaleValuation    = errors.New("valuation is stale, revalue first")
	ErrNotLiquidatable   = errors.New("pledge is not liquidation-eligible")
)

// Invariant violations. The operation is mechanically valid but would
// break a system guarantee; it is rejected with no partial effect and
// may succeed later if conditions change.
var (
	ErrCategoryLimitExceeded     = errors.New("category exposure limit exceeded")
	ErrCollateralizationBelowMin = errors.New("collateralization ratio would fall below minimum")
	ErrInsufficientCredit        = errors.New("insufficient credit balance")
)

// Authorization and lookup errors.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrLockHeld     = errors.New("lock already held")
)

// ErrorKind groups the sentinel errors into the categories callers must
// be able to distinguish: validation and authorization indicate caller
// mistakes, state indicates a wrong-lifecycle call, invariant indicates
// a transient systemic condition.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindState
	KindInvariant
	KindAuthorization
	KindNotFound
	KindTransient
)

// KindOf classifies err into an ErrorKind by unwrapping to the sentinel.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrValueOutOfRange),
		errors.Is(err, ErrInvalidAssetID),
		errors.Is(err, ErrDuplicateAsset),
		errors.Is(err, ErrInvalidLTV),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidMetadata),
		errors.Is(err, ErrInvalidCategory),
		errors.Is(err, ErrInvalidRole):
		return KindValidation
	case errors.Is(err, ErrNotPending),
		errors.Is(err, ErrNotVerified),
		errors.Is(err, ErrNotMinted),
		errors.Is(err, ErrAlreadySettled),
		errors.Is(err, ErrRedemptionPending),
		errors.Is(err, ErrNotRedeemable),
		errors.Is(err, ErrPledgeExpired),
		errors.Is(err, ErrTooEarly),
		errors.Is(err, ErrStaleValuation),
		errors.Is(err, ErrNotLiquidatable):
		return KindState
	case errors.Is(err, ErrCategoryLimitExceeded),
		errors.Is(err, ErrCollateralizationBelowMin),
		errors.Is(err, ErrInsufficientCredit):
		return KindInvariant
	case errors.Is(err, ErrUnauthorized):
		return KindAuthorization
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrLockHeld):
		return KindTransient
	default:
		return KindUnknown
	}
}
