package domain

// BpsDenominator is the basis-point scale: 10000 bps = 100%.
const BpsDenominator int64 = 10000

// SystemSnapshot is a read-only view of the system ledger totals.
// CollateralizationBps = (collateral + reserves) * 10000 / supply;
// it is reported as zero while no credit is outstanding.
type SystemSnapshot struct {
	TotalCollateralValue int64 `json:"total_collateral_value"`
	TotalReserves        int64 `json:"total_reserves"`
	TotalCreditSupply    int64 `json:"total_credit_supply"`
	CollateralizationBps int64 `json:"collateralization_bps"`
}

// Balance is one account's holding of one category's credit token.
type Balance struct {
	Category Category `json:"category"`
	Account  string   `json:"account"`
	Amount   int64    `json:"amount"`
}

// Params is the admin-configurable numeric policy of the ledger.
// Durations are evaluated lazily against stored timestamps; there are
// no scheduled jobs.
type Params struct {
	MinPledgeValue          int64 `json:"min_pledge_value"`
	MaxPledgeValue          int64 `json:"max_pledge_value"`
	LTVCeilingBps           int64 `json:"ltv_ceiling_bps"`
	CollateralizationMinBps int64 `json:"collateralization_min_bps"`
	ReserveRatioBps         int64 `json:"reserve_ratio_bps"`

	PledgeExpirySeconds        int64 `json:"pledge_expiry_seconds"`
	RevaluationIntervalSeconds int64 `json:"revaluation_interval_seconds"`
	RedemptionDelaySeconds     int64 `json:"redemption_delay_seconds"`

	TreasuryAccount string `json:"treasury_account"`
}
