package domain

import "time"

// RedemptionRequest records credit burned against a Minted pledge that
// is awaiting settlement. The credit is destroyed at request time; the
// collateral claim is released at settlement, after the mandatory
// delay. A pledge has at most one unsettled request at a time.
type RedemptionRequest struct {
	ID          string     `json:"id"`
	PledgeID    string     `json:"pledge_id"`
	Owner       string     `json:"owner"`
	Amount      int64      `json:"amount"`
	RequestedAt time.Time  `json:"requested_at"`
	Settled     bool       `json:"settled"`
	SettledAt   *time.Time `json:"settled_at,omitempty"`
}
