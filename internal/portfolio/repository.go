package portfolio

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/quantfolio/internal/contracts"
)

// Repository handles portfolio data persistence
// ⭐ SSOT: Portfolio 데이터 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new portfolio repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Holdings returns the current holding set ordered by ticker
func (r *Repository) Holdings(ctx context.Context) ([]contracts.Holding, error) {
	rows, err := r.pool.Query(ctx, `SELECT ticker, num_shares, hold_amount FROM portfolio ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	holdings := make([]contracts.Holding, 0)
	for rows.Next() {
		var h contracts.Holding
		if err := rows.Scan(&h.Symbol, &h.ShareCount, &h.HoldingValue); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return holdings, nil
}

// Orders returns the full order log in insertion order
func (r *Repository) Orders(ctx context.Context) ([]contracts.OrderRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT date, ticker, shares_delta, share_price FROM order_history ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]contracts.OrderRecord, 0)
	for rows.Next() {
		var o contracts.OrderRecord
		if err := rows.Scan(&o.Date, &o.Symbol, &o.SharesDelta, &o.Price); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return orders, nil
}

// Values returns the full value history in insertion order
func (r *Repository) Values(ctx context.Context) ([]contracts.ValueSnapshot, error) {
	rows, err := r.pool.Query(ctx, `SELECT date, value FROM portfolio_value ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query values: %w", err)
	}
	defer rows.Close()

	values := make([]contracts.ValueSnapshot, 0)
	for rows.Next() {
		var v contracts.ValueSnapshot
		if err := rows.Scan(&v.Date, &v.TotalValue); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		values = append(values, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return values, nil
}

// LatestValue returns the most recent snapshot or contracts.ErrNoSnapshot
func (r *Repository) LatestValue(ctx context.Context) (contracts.ValueSnapshot, error) {
	var v contracts.ValueSnapshot
	err := r.pool.QueryRow(ctx, `SELECT date, value FROM portfolio_value ORDER BY id DESC LIMIT 1`).
		Scan(&v.Date, &v.TotalValue)
	if errors.Is(err, pgx.ErrNoRows) {
		return v, contracts.ErrNoSnapshot
	}
	if err != nil {
		return v, fmt.Errorf("failed to query latest value: %w", err)
	}
	return v, nil
}

// Commit applies one operation's writes in a single transaction
func (r *Repository) Commit(ctx context.Context, cs contracts.Changeset) error {
	// Begin transaction
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if cs.ReplaceHoldings {
		if _, err := tx.Exec(ctx, `DELETE FROM portfolio`); err != nil {
			return fmt.Errorf("failed to delete old holdings: %w", err)
		}
	}

	batch := &pgx.Batch{}
	for _, h := range cs.Holdings {
		batch.Queue(`
			INSERT INTO portfolio (ticker, num_shares, hold_amount) VALUES ($1, $2, $3)
			ON CONFLICT (ticker) DO UPDATE SET
				num_shares = EXCLUDED.num_shares,
				hold_amount = EXCLUDED.hold_amount
		`, h.Symbol, h.ShareCount, h.HoldingValue)
	}
	for _, o := range cs.Orders {
		batch.Queue(`INSERT INTO order_history (date, ticker, shares_delta, share_price) VALUES ($1, $2, $3, $4)`,
			o.Date, o.Symbol, o.SharesDelta, o.Price)
	}
	if cs.Snapshot != nil {
		batch.Queue(`INSERT INTO portfolio_value (date, value) VALUES ($1, $2)`,
			cs.Snapshot.Date, cs.Snapshot.TotalValue)
	}

	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to write changeset: %w", err)
		}
	}

	// Commit transaction
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
