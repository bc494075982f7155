// Package ledger implements the collateralization engine: the pledge
// state machine, category exposure accounting, credit-token balances,
// and the system totals. The whole ledger is a single aggregate guarded
// by one mutex; every operation validates its guards and either commits
// all of its effects under that lock or none of them. Time-gated
// behavior (expiry, staleness, redemption delay) is evaluated lazily
// against stored timestamps; there are no background tasks.
package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harborfin/rwaledger/internal/domain"
)

type categoryState struct {
	limit   int64
	current int64
}

// Ledger is the authoritative in-process state of the system. It is
// safe for concurrent use; operations are totally ordered by the mutex.
type Ledger struct {
	mu  sync.Mutex
	now func() time.Time

	params     domain.Params
	categories map[domain.Category]*categoryState

	pledges map[string]*domain.Pledge // by pledge ID
	byAsset map[string]string         // live asset identifier -> pledge ID

	requests map[string]*domain.RedemptionRequest // by request ID
	openReq  map[string]string                    // pledge ID -> open request ID

	balances map[domain.Category]map[string]int64
	roles    map[domain.Role]map[string]bool

	totalCollateral int64 // sum of official value over Minted pledges
	totalReserves   int64 // treasury-held credit withheld at mint
	totalSupply     int64 // outstanding credit across all categories
}

// New creates a Ledger with the given policy and per-category exposure
// limits. Accounts listed in admins receive the admin role so the
// system can be bootstrapped.
func New(params domain.Params, limits map[domain.Category]int64, admins []string) *Ledger {
	l := &Ledger{
		now:        time.Now,
		params:     params,
		categories: make(map[domain.Category]*categoryState, len(domain.Categories)),
		pledges:    make(map[string]*domain.Pledge),
		byAsset:    make(map[string]string),
		requests:   make(map[string]*domain.RedemptionRequest),
		openReq:    make(map[string]string),
		balances:   make(map[domain.Category]map[string]int64),
		roles:      make(map[domain.Role]map[string]bool),
	}
	for _, c := range domain.Categories {
		l.categories[c] = &categoryState{limit: limits[c]}
	}
	for _, r := range domain.Roles {
		l.roles[r] = make(map[string]bool)
	}
	for _, a := range admins {
		l.roles[domain.RoleAdmin][a] = true
	}
	return l
}

// SetClock overrides the time source. Intended for tests.
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

func (l *Ledger) hasRole(account string, role domain.Role) bool {
	return l.roles[role][account]
}

func (l *Ledger) requireRole(account string, role domain.Role) error {
	if !l.hasRole(account, role) {
		return domain.ErrUnauthorized
	}
	return nil
}

// newEvent builds the structured audit event for a committed operation.
func (l *Ledger) newEvent(op, pledgeID, actor string, at time.Time, fields map[string]any) domain.Event {
	return domain.Event{
		ID:       uuid.New().String(),
		Op:       op,
		PledgeID: pledgeID,
		Actor:    actor,
		At:       at,
		Fields:   fields,
	}
}

func (l *Ledger) balanceOf(category domain.Category, account string) int64 {
	return l.balances[category][account]
}

// creditBalance mints amount to account. Callers hold the lock and have
// already validated; this only moves numbers.
func (l *Ledger) creditBalance(category domain.Category, account string, amount int64) {
	m := l.balances[category]
	if m == nil {
		m = make(map[string]int64)
		l.balances[category] = m
	}
	m[account] += amount
}

func (l *Ledger) debitBalance(category domain.Category, account string, amount int64) {
	l.balances[category][account] -= amount
}

// collateralizationOK reports whether the prospective totals satisfy
// the configured minimum: (collateral + reserves) * 10000 >= min * supply.
func collateralizationOK(collateral, reserves, supply, minBps int64) bool {
	if supply <= 0 {
		return true
	}
	return (collateral+reserves)*domain.BpsDenominator >= minBps*supply
}

// liquidationEligible reports whether the credit the pledge's current
// value can support at its LTV has fallen strictly below the credit
// still outstanding. A freshly minted pledge sits exactly at the
// boundary and is not eligible.
func (l *Ledger) liquidationEligible(p *domain.Pledge) bool {
	if p.CreditOutstanding <= 0 {
		return false
	}
	return p.OfficialValue*p.LTVBps/domain.BpsDenominator < p.CreditOutstanding
}

// valuationStale reports whether the pledge's last valuation is older
// than the revaluation interval at time now.
func (l *Ledger) valuationStale(p *domain.Pledge, now time.Time) bool {
	if p.LastValuedAt == nil {
		return true
	}
	return now.Sub(*p.LastValuedAt) > time.Duration(l.params.RevaluationIntervalSeconds)*time.Second
}

func delaySeconds(s int64) time.Duration {
	return time.Duration(s) * time.Second
}

func (l *Ledger) pledgeExpired(p *domain.Pledge, now time.Time) bool {
	return now.Sub(p.SubmittedAt) > time.Duration(l.params.PledgeExpirySeconds)*time.Second
}

func (l *Ledger) snapshotLocked() domain.SystemSnapshot {
	s := domain.SystemSnapshot{
		TotalCollateralValue: l.totalCollateral,
		TotalReserves:        l.totalReserves,
		TotalCreditSupply:    l.totalSupply,
	}
	if l.totalSupply > 0 {
		s.CollateralizationBps = (l.totalCollateral + l.totalReserves) * domain.BpsDenominator / l.totalSupply
	}
	return s
}

// copyPledge returns a detached copy so callers never alias ledger
// internals.
func copyPledge(p *domain.Pledge) domain.Pledge {
	out := *p
	if p.Metadata != nil {
		out.Metadata = make(map[string]any, len(p.Metadata))
		for k, v := range p.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

func copyRequest(r *domain.RedemptionRequest) domain.RedemptionRequest {
	return *r
}
