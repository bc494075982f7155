package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborfin/rwaledger/internal/domain"
)

// BalanceStore implements domain.BalanceStore using PostgreSQL.
type BalanceStore struct {
	pool *pgxpool.Pool
}

var _ domain.BalanceStore = (*BalanceStore)(nil)

// NewBalanceStore creates a new BalanceStore backed by the given
// connection pool.
func NewBalanceStore(pool *pgxpool.Pool) *BalanceStore {
	return &BalanceStore{pool: pool}
}

// Set writes an account's balance for one category. The ledger computes
// balances; this only mirrors them.
func (s *BalanceStore) Set(ctx context.Context, b domain.Balance) error {
	const query = `
		INSERT INTO balances (category, account, amount, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (category, account) DO UPDATE SET
			amount = EXCLUDED.amount,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query, string(b.Category), b.Account, b.Amount)
	if err != nil {
		return fmt.Errorf("postgres: set balance %s/%s: %w", b.Category, b.Account, err)
	}
	return nil
}

// Get retrieves one account's balance for one category. A missing row is
// a zero balance, not an error.
func (s *BalanceStore) Get(ctx context.Context, category domain.Category, account string) (domain.Balance, error) {
	b := domain.Balance{Category: category, Account: account}

	err := s.pool.QueryRow(ctx,
		`SELECT amount FROM balances WHERE category = $1 AND account = $2`,
		string(category), account,
	).Scan(&b.Amount)
	if err != nil {
		if err == pgx.ErrNoRows {
			return b, nil
		}
		return domain.Balance{}, fmt.Errorf("postgres: get balance %s/%s: %w", category, account, err)
	}
	return b, nil
}

// ListAll returns every non-zero balance. Used at startup to rehydrate
// the ledger.
func (s *BalanceStore) ListAll(ctx context.Context) ([]domain.Balance, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT category, account, amount FROM balances WHERE amount <> 0`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list balances: %w", err)
	}
	defer rows.Close()

	var balances []domain.Balance
	for rows.Next() {
		var b domain.Balance
		var category string
		if err := rows.Scan(&category, &b.Account, &b.Amount); err != nil {
			return nil, fmt.Errorf("postgres: scan balance: %w", err)
		}
		b.Category = domain.Category(category)
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list balances rows: %w", err)
	}
	return balances, nil
}
