package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborfin/rwaledger/internal/domain"
)

// RoleStore implements domain.RoleStore using PostgreSQL.
type RoleStore struct {
	pool *pgxpool.Pool
}

var _ domain.RoleStore = (*RoleStore)(nil)

// NewRoleStore creates a new RoleStore backed by the given connection pool.
func NewRoleStore(pool *pgxpool.Pool) *RoleStore {
	return &RoleStore{pool: pool}
}

// Grant records a role grant. Granting an already-held role is a no-op.
func (s *RoleStore) Grant(ctx context.Context, g domain.RoleGrant) error {
	const query = `
		INSERT INTO role_grants (role, account)
		VALUES ($1, $2)
		ON CONFLICT (role, account) DO NOTHING`

	_, err := s.pool.Exec(ctx, query, string(g.Role), g.Account)
	if err != nil {
		return fmt.Errorf("postgres: grant role %s to %s: %w", g.Role, g.Account, err)
	}
	return nil
}

// Revoke deletes a role grant. Revoking an unheld role is a no-op.
func (s *RoleStore) Revoke(ctx context.Context, g domain.RoleGrant) error {
	const query = `DELETE FROM role_grants WHERE role = $1 AND account = $2`

	_, err := s.pool.Exec(ctx, query, string(g.Role), g.Account)
	if err != nil {
		return fmt.Errorf("postgres: revoke role %s from %s: %w", g.Role, g.Account, err)
	}
	return nil
}

// ListAll returns every current role grant. Used at startup to rehydrate
// the ledger.
func (s *RoleStore) ListAll(ctx context.Context) ([]domain.RoleGrant, error) {
	rows, err := s.pool.Query(ctx, `SELECT role, account FROM role_grants`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list role grants: %w", err)
	}
	defer rows.Close()

	var grants []domain.RoleGrant
	for rows.Next() {
		var g domain.RoleGrant
		var role string
		if err := rows.Scan(&role, &g.Account); err != nil {
			return nil, fmt.Errorf("postgres: scan role grant: %w", err)
		}
		g.Role = domain.Role(role)
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list role grants rows: %w", err)
	}
	return grants, nil
}
