package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborfin/rwaledger/internal/domain"
)

// PledgeStore implements domain.PledgeStore using PostgreSQL.
type PledgeStore struct {
	pool *pgxpool.Pool
}

var _ domain.PledgeStore = (*PledgeStore)(nil)

// NewPledgeStore creates a new PledgeStore backed by the given connection pool.
func NewPledgeStore(pool *pgxpool.Pool) *PledgeStore {
	return &PledgeStore{pool: pool}
}

// Upsert writes the full pledge row, inserting or replacing by ID. The
// ledger is the source of truth; the row always mirrors its latest state.
func (s *PledgeStore) Upsert(ctx context.Context, p domain.Pledge) error {
	metadataJSON, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("postgres: marshal pledge metadata: %w", err)
	}

	const query = `
		INSERT INTO pledges (
			id, asset_id, owner_account, category, status,
			declared_value, official_value, credit_amount, credit_outstanding, ltv_bps,
			redeemable, verifier, metadata, reject_reason,
			submitted_at, verified_at, minted_at, last_valued_at, closed_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17, $18, $19, NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			official_value = EXCLUDED.official_value,
			credit_amount = EXCLUDED.credit_amount,
			credit_outstanding = EXCLUDED.credit_outstanding,
			ltv_bps = EXCLUDED.ltv_bps,
			verifier = EXCLUDED.verifier,
			metadata = EXCLUDED.metadata,
			reject_reason = EXCLUDED.reject_reason,
			verified_at = EXCLUDED.verified_at,
			minted_at = EXCLUDED.minted_at,
			last_valued_at = EXCLUDED.last_valued_at,
			closed_at = EXCLUDED.closed_at,
			updated_at = NOW()`

	_, err = s.pool.Exec(ctx, query,
		p.ID, p.AssetID, p.Owner, string(p.Category), string(p.Status),
		p.DeclaredValue, p.OfficialValue, p.CreditAmount, p.CreditOutstanding, p.LTVBps,
		p.Redeemable, p.Verifier, metadataJSON, p.RejectReason,
		p.SubmittedAt, p.VerifiedAt, p.MintedAt, p.LastValuedAt, p.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert pledge %s: %w", p.ID, err)
	}
	return nil
}

const pledgeSelectCols = `id, asset_id, owner_account, category, status,
	declared_value, official_value, credit_amount, credit_outstanding, ltv_bps,
	redeemable, verifier, metadata, reject_reason,
	submitted_at, verified_at, minted_at, last_valued_at, closed_at`

func scanPledgeFromRow(
	scanner interface{ Scan(dest ...any) error },
) (domain.Pledge, error) {
	var p domain.Pledge
	var category, status string
	var metadataJSON []byte

	err := scanner.Scan(
		&p.ID, &p.AssetID, &p.Owner, &category, &status,
		&p.DeclaredValue, &p.OfficialValue, &p.CreditAmount, &p.CreditOutstanding, &p.LTVBps,
		&p.Redeemable, &p.Verifier, &metadataJSON, &p.RejectReason,
		&p.SubmittedAt, &p.VerifiedAt, &p.MintedAt, &p.LastValuedAt, &p.ClosedAt,
	)
	if err != nil {
		return domain.Pledge{}, err
	}

	p.Category = domain.Category(category)
	p.Status = domain.PledgeStatus(status)

	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &p.Metadata); err != nil {
			return domain.Pledge{}, fmt.Errorf("postgres: unmarshal pledge metadata: %w", err)
		}
	}
	return p, nil
}

func scanPledgeRows(rows pgx.Rows) ([]domain.Pledge, error) {
	var pledges []domain.Pledge
	for rows.Next() {
		p, err := scanPledgeFromRow(rows)
		if err != nil {
			return nil, err
		}
		pledges = append(pledges, p)
	}
	return pledges, rows.Err()
}

// GetByID retrieves a single pledge by ID.
func (s *PledgeStore) GetByID(ctx context.Context, id string) (domain.Pledge, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pledgeSelectCols+` FROM pledges WHERE id = $1`, id)

	p, err := scanPledgeFromRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Pledge{}, domain.ErrNotFound
		}
		return domain.Pledge{}, fmt.Errorf("postgres: get pledge %s: %w", id, err)
	}
	return p, nil
}

// ListByOwner returns an owner's pledges with pagination.
func (s *PledgeStore) ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.Pledge, error) {
	query := `SELECT ` + pledgeSelectCols + ` FROM pledges WHERE owner_account = $1`
	args := []any{owner}
	query, args = appendListOpts(query, args, "submitted_at", opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pledges by owner: %w", err)
	}
	defer rows.Close()

	pledges, err := scanPledgeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan pledges by owner: %w", err)
	}
	return pledges, nil
}

// ListByStatus returns pledges in the given status with pagination.
func (s *PledgeStore) ListByStatus(ctx context.Context, status domain.PledgeStatus, opts domain.ListOpts) ([]domain.Pledge, error) {
	query := `SELECT ` + pledgeSelectCols + ` FROM pledges WHERE status = $1`
	args := []any{string(status)}
	query, args = appendListOpts(query, args, "submitted_at", opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pledges by status: %w", err)
	}
	defer rows.Close()

	pledges, err := scanPledgeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan pledges by status: %w", err)
	}
	return pledges, nil
}

// ListAll returns every pledge. Used at startup to rehydrate the ledger.
func (s *PledgeStore) ListAll(ctx context.Context) ([]domain.Pledge, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pledgeSelectCols+` FROM pledges ORDER BY submitted_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list all pledges: %w", err)
	}
	defer rows.Close()

	pledges, err := scanPledgeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan all pledges: %w", err)
	}
	return pledges, nil
}

// appendListOpts applies time filtering, ordering, and pagination to a
// query whose WHERE clause is already started.
func appendListOpts(query string, args []any, timeCol string, opts domain.ListOpts) (string, []any) {
	argIdx := len(args) + 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND %s >= $%d", timeCol, argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND %s <= $%d", timeCol, argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY %s DESC", timeCol)

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}
	return query, args
}
