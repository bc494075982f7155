package domain

import "time"

// PledgeStatus tracks a pledge through its lifecycle. Rejected,
// Cancelled, Redeemed, and Liquidated are terminal and free the asset
// identifier for reuse.
type PledgeStatus string

const (
	StatusPending    PledgeStatus = "pending"
	StatusVerified   PledgeStatus = "verified"
	StatusMinted     PledgeStatus = "minted"
	StatusRejected   PledgeStatus = "rejected"
	StatusCancelled  PledgeStatus = "cancelled"
	StatusRedeemed   PledgeStatus = "redeemed"
	StatusLiquidated PledgeStatus = "liquidated"
)

// ParseStatus validates a pledge status string.
func ParseStatus(s string) (PledgeStatus, error) {
	switch st := PledgeStatus(s); st {
	case StatusPending, StatusVerified, StatusMinted,
		StatusRejected, StatusCancelled, StatusRedeemed, StatusLiquidated:
		return st, nil
	}
	return "", ErrNotFound
}

// Terminal reports whether the status permanently stops further
// mutation of the pledge.
func (s PledgeStatus) Terminal() bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusRedeemed, StatusLiquidated:
		return true
	}
	return false
}

// Live reports whether the pledge still reserves its asset identifier.
func (s PledgeStatus) Live() bool {
	return !s.Terminal()
}

// Pledge is a claim against an off-chain real-world asset, tracked
// through the verification/issuance/redemption lifecycle. Values are
// int64 minor units; ratios are basis points out of 10000.
type Pledge struct {
	ID       string       `json:"id"`
	AssetID  string       `json:"asset_id"`
	Owner    string       `json:"owner"`
	Category Category     `json:"category"`
	Status   PledgeStatus `json:"status"`

	DeclaredValue int64 `json:"declared_value"`
	// OfficialValue is authoritative once the pledge is Verified; the
	// oracle updates it in place while Minted.
	OfficialValue int64 `json:"official_value"`
	// CreditAmount is fixed at mint time and never changes afterwards.
	CreditAmount int64 `json:"credit_amount"`
	// CreditOutstanding starts at CreditAmount and is reduced by
	// settled redemptions.
	CreditOutstanding int64 `json:"credit_outstanding"`
	LTVBps            int64 `json:"ltv_bps"`

	Redeemable bool           `json:"redeemable"`
	Verifier   string         `json:"verifier,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`

	SubmittedAt  time.Time  `json:"submitted_at"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty"`
	MintedAt     *time.Time `json:"minted_at,omitempty"`
	LastValuedAt *time.Time `json:"last_valued_at,omitempty"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	RejectReason string     `json:"reject_reason,omitempty"`
}
