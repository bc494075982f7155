package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborfin/rwaledger/internal/domain"
)

// RedemptionStore implements domain.RedemptionStore using PostgreSQL.
type RedemptionStore struct {
	pool *pgxpool.Pool
}

var _ domain.RedemptionStore = (*RedemptionStore)(nil)

// NewRedemptionStore creates a new RedemptionStore backed by the given
// connection pool.
func NewRedemptionStore(pool *pgxpool.Pool) *RedemptionStore {
	return &RedemptionStore{pool: pool}
}

// Upsert writes the full redemption request row, inserting or replacing
// by ID.
func (s *RedemptionStore) Upsert(ctx context.Context, r domain.RedemptionRequest) error {
	const query = `
		INSERT INTO redemption_requests (
			id, pledge_id, owner_account, amount, requested_at, settled, settled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			settled = EXCLUDED.settled,
			settled_at = EXCLUDED.settled_at`

	_, err := s.pool.Exec(ctx, query,
		r.ID, r.PledgeID, r.Owner, r.Amount, r.RequestedAt, r.Settled, r.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert redemption %s: %w", r.ID, err)
	}
	return nil
}

const redemptionSelectCols = `id, pledge_id, owner_account, amount, requested_at, settled, settled_at`

func scanRedemptionFromRow(
	scanner interface{ Scan(dest ...any) error },
) (domain.RedemptionRequest, error) {
	var r domain.RedemptionRequest
	err := scanner.Scan(
		&r.ID, &r.PledgeID, &r.Owner, &r.Amount, &r.RequestedAt, &r.Settled, &r.SettledAt,
	)
	return r, err
}

func scanRedemptionRows(rows pgx.Rows) ([]domain.RedemptionRequest, error) {
	var requests []domain.RedemptionRequest
	for rows.Next() {
		r, err := scanRedemptionFromRow(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// GetByID retrieves a single redemption request by ID.
func (s *RedemptionStore) GetByID(ctx context.Context, id string) (domain.RedemptionRequest, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+redemptionSelectCols+` FROM redemption_requests WHERE id = $1`, id)

	r, err := scanRedemptionFromRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.RedemptionRequest{}, domain.ErrNotFound
		}
		return domain.RedemptionRequest{}, fmt.Errorf("postgres: get redemption %s: %w", id, err)
	}
	return r, nil
}

// ListByPledge returns every request ever made against a pledge, newest
// first.
func (s *RedemptionStore) ListByPledge(ctx context.Context, pledgeID string) ([]domain.RedemptionRequest, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+redemptionSelectCols+` FROM redemption_requests
		 WHERE pledge_id = $1 ORDER BY requested_at DESC`, pledgeID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list redemptions by pledge: %w", err)
	}
	defer rows.Close()

	requests, err := scanRedemptionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan redemptions by pledge: %w", err)
	}
	return requests, nil
}

// ListOpen returns all unsettled requests. Used at startup to rehydrate
// the ledger and by operators watching the settlement queue.
func (s *RedemptionStore) ListOpen(ctx context.Context) ([]domain.RedemptionRequest, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+redemptionSelectCols+` FROM redemption_requests
		 WHERE settled = FALSE ORDER BY requested_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open redemptions: %w", err)
	}
	defer rows.Close()

	requests, err := scanRedemptionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan open redemptions: %w", err)
	}
	return requests, nil
}

// ListSettledBefore returns settled requests whose settlement time is
// strictly before the cutoff. Feeds the archiver.
func (s *RedemptionStore) ListSettledBefore(ctx context.Context, before time.Time) ([]domain.RedemptionRequest, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+redemptionSelectCols+` FROM redemption_requests
		 WHERE settled = TRUE AND settled_at < $1 ORDER BY settled_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list settled redemptions: %w", err)
	}
	defer rows.Close()

	requests, err := scanRedemptionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan settled redemptions: %w", err)
	}
	return requests, nil
}
