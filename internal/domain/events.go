package domain

import "time"

// Event channel names used on the signal bus and the WebSocket feed.
const (
	ChannelPledges     = "pledges"
	ChannelValuations  = "valuations"
	ChannelRedemptions = "redemptions"
	ChannelSystem      = "system"

	// EventStream is the durable Redis stream carrying every event in
	// order, for off-chain indexers that cannot afford pub/sub gaps.
	EventStream = "events"
)

// Event is the structured record emitted by every state-changing ledger
// operation. Fields carries the before/after values relevant to the
// invariant the operation touched; this stream is the system's audit
// trail and is mandatory, not best-effort.
type Event struct {
	ID       string         `json:"id"`
	Op       string         `json:"op"`
	PledgeID string         `json:"pledge_id,omitempty"`
	Actor    string         `json:"actor"`
	At       time.Time      `json:"at"`
	Fields   map[string]any `json:"fields,omitempty"`
}

// Channel returns the bus channel an event belongs on, keyed by the
// operation prefix.
func (e Event) Channel() string {
	switch e.Op {
	case OpRevalue, OpLiquidate, OpValuationStale:
		return ChannelValuations
	case OpRequestRedemption, OpSettleRedemption:
		return ChannelRedemptions
	case OpGrantRole, OpRevokeRole, OpSetCategoryLimit, OpUpdateParams:
		return ChannelSystem
	default:
		return ChannelPledges
	}
}

// Operation names recorded in events and the audit log.
const (
	OpSubmit    = "pledge.submit"
	OpVerify    = "pledge.verify"
	OpReject    = "pledge.reject"
	OpCancel    = "pledge.cancel"
	OpMint      = "pledge.mint"
	OpRevalue   = "pledge.revalue"
	OpLiquidate = "pledge.liquidate"

	// OpValuationStale is emitted by the staleness sweep, not by a
	// ledger operation.
	OpValuationStale = "valuation.stale"

	OpRequestRedemption = "redemption.request"
	OpSettleRedemption  = "redemption.settle"
	OpGrantRole         = "role.grant"
	OpRevokeRole        = "role.revoke"
	OpSetCategoryLimit  = "category.set_limit"
	OpUpdateParams      = "params.update"
)
