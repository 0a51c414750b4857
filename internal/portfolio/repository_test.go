package portfolio

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantfolio/internal/contracts"
	"github.com/wonny/quantfolio/pkg/database"
)

func testRepository(t *testing.T) *Repository {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	require.NoError(t, database.EnsureSchema(url))

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(context.Background(), `TRUNCATE portfolio, order_history, portfolio_value RESTART IDENTITY`)
	require.NoError(t, err)

	return NewRepository(pool)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRepository_CommitAndRead(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	_, err := repo.LatestValue(ctx)
	assert.True(t, errors.Is(err, contracts.ErrNoSnapshot))

	day := time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Commit(ctx, contracts.Changeset{
		ReplaceHoldings: true,
		Holdings: []contracts.Holding{
			{Symbol: "MSFT", ShareCount: dec("24.0847784200"), HoldingValue: dec("10000.000000")},
			{Symbol: "AAPL", ShareCount: dec("100"), HoldingValue: dec("10000")},
		},
		Orders: []contracts.OrderRecord{
			{Date: day, Symbol: "MSFT", SharesDelta: dec("24.08477842"), Price: dec("415.20")},
			{Date: day, Symbol: "AAPL", SharesDelta: dec("100"), Price: dec("100")},
		},
		Snapshot: &contracts.ValueSnapshot{Date: day, TotalValue: dec("20000")},
	}))

	holdings, err := repo.Holdings(ctx)
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.Equal(t, "AAPL", holdings[0].Symbol)
	assert.True(t, holdings[1].ShareCount.Equal(dec("24.08477842")))

	orders, err := repo.Orders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "MSFT", orders[0].Symbol)
	assert.Equal(t, "20240517", orders[0].Date.Format(contracts.DateLayout))

	latest, err := repo.LatestValue(ctx)
	require.NoError(t, err)
	assert.True(t, latest.TotalValue.Equal(dec("20000")))

	// replace holdings, append order and snapshot
	next := day.AddDate(0, 0, 1)
	require.NoError(t, repo.Commit(ctx, contracts.Changeset{
		ReplaceHoldings: true,
		Holdings:        []contracts.Holding{{Symbol: "AAPL", ShareCount: dec("200"), HoldingValue: dec("20000")}},
		Orders: []contracts.OrderRecord{
			{Date: next, Symbol: "MSFT", SharesDelta: dec("-24.08477842"), Price: dec("415.20")},
		},
		Snapshot: &contracts.ValueSnapshot{Date: next, TotalValue: dec("20000")},
	}))

	holdings, err = repo.Holdings(ctx)
	require.NoError(t, err)
	assert.Len(t, holdings, 1)

	orders, err = repo.Orders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 3)

	values, err := repo.Values(ctx)
	require.NoError(t, err)
	assert.Len(t, values, 2)
}

func TestRepository_FailedCommitRollsBack(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	day := time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Commit(ctx, contracts.Changeset{
		ReplaceHoldings: true,
		Holdings:        []contracts.Holding{{Symbol: "AAPL", ShareCount: dec("1"), HoldingValue: dec("100")}},
		Snapshot:        &contracts.ValueSnapshot{Date: day, TotalValue: dec("100")},
	}))

	// negative share count violates the CHECK constraint after the DELETE ran
	err := repo.Commit(ctx, contracts.Changeset{
		ReplaceHoldings: true,
		Holdings:        []contracts.Holding{{Symbol: "MSFT", ShareCount: dec("-1"), HoldingValue: dec("0")}},
		Orders:          []contracts.OrderRecord{{Date: day, Symbol: "MSFT", SharesDelta: dec("1"), Price: dec("1")}},
		Snapshot:        &contracts.ValueSnapshot{Date: day, TotalValue: dec("0")},
	})
	require.Error(t, err)

	holdings, err := repo.Holdings(ctx)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "AAPL", holdings[0].Symbol)

	orders, err := repo.Orders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	values, err := repo.Values(ctx)
	require.NoError(t, err)
	assert.Len(t, values, 1)
}
