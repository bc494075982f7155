package ledger

import "github.com/harborfin/rwaledger/internal/domain"

// GrantRole gives an account a capability. Admin-only.
func (l *Ledger) GrantRole(actor string, role domain.Role, account string) (domain.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(actor, domain.RoleAdmin); err != nil {
		return domain.Event{}, err
	}
	if _, ok := l.roles[role]; !ok {
		return domain.Event{}, domain.ErrInvalidRole
	}
	l.roles[role][account] = true

	now := l.now().UTC()
	return l.newEvent(domain.OpGrantRole, "", actor, now, map[string]any{
		"role":    string(role),
		"account": account,
	}), nil
}

// RevokeRole removes a capability from an account. Admin-only.
func (l *Ledger) RevokeRole(actor string, role domain.Role, account string) (domain.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(actor, domain.RoleAdmin); err != nil {
		return domain.Event{}, err
	}
	if _, ok := l.roles[role]; !ok {
		return domain.Event{}, domain.ErrInvalidRole
	}
	delete(l.roles[role], account)

	now := l.now().UTC()
	return l.newEvent(domain.OpRevokeRole, "", actor, now, map[string]any{
		"role":    string(role),
		"account": account,
	}), nil
}

// HasRole reports whether the account currently holds the role.
func (l *Ledger) HasRole(account string, role domain.Role) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasRole(account, role)
}

// SetCategoryLimit updates one category's exposure limit. Admin-only.
// The limit cannot be set below the category's current exposure, which
// would silently break the exposure invariant for live pledges.
func (l *Ledger) SetCategoryLimit(actor string, category domain.Category, limit int64) (domain.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(actor, domain.RoleAdmin); err != nil {
		return domain.Event{}, err
	}
	cat, ok := l.categories[category]
	if !ok {
		return domain.Event{}, domain.ErrInvalidCategory
	}
	if limit < cat.current {
		return domain.Event{}, domain.ErrCategoryLimitExceeded
	}

	before := cat.limit
	cat.limit = limit

	now := l.now().UTC()
	return l.newEvent(domain.OpSetCategoryLimit, "", actor, now, map[string]any{
		"category":     string(category),
		"limit_before": before,
		"limit_after":  limit,
	}), nil
}

// UpdateParams replaces the numeric policy. Admin-only. The caller
// validates the new params at the config layer.
func (l *Ledger) UpdateParams(actor string, params domain.Params) (domain.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(actor, domain.RoleAdmin); err != nil {
		return domain.Event{}, err
	}

	before := l.params
	l.params = params

	now := l.now().UTC()
	return l.newEvent(domain.OpUpdateParams, "", actor, now, map[string]any{
		"before": before,
		"after":  params,
	}), nil
}

// Params returns the current numeric policy.
func (l *Ledger) Params() domain.Params {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.params
}
