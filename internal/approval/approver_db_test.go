package approval

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"metatradex/internal/assets"
	"metatradex/internal/history"
	"metatradex/internal/marketdata"
	"metatradex/internal/types"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests need a migrated database; set TEST_DB_DSN to run them.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func createRequester(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	ctx := context.Background()
	var id string
	err := pool.QueryRow(ctx,
		"insert into profiles (email, kyc_status) values ($1, 'approved') returning id::text",
		fmt.Sprintf("review-%d@test.local", time.Now().UnixNano())).Scan(&id)
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Exec(ctx, "delete from profiles where id = $1::uuid", id)
	})
	return id
}

func newTestApprover(pool *pgxpool.Pool) *Approver {
	historyStore := history.NewStore(pool)
	assetSvc := assets.NewService(pool, marketdata.NewStore(pool), historyStore)
	return NewApprover(pool, assetSvc, "")
}

func TestApplyDecisionApproveDepositCreditsOnce(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	userID := createRequester(t, pool)
	a := newTestApprover(pool)

	var depositID string
	err := pool.QueryRow(ctx,
		"insert into deposits (user_id, amount, currency) values ($1, 40, 'USDT') returning id::text",
		userID).Scan(&depositID)
	require.NoError(t, err)

	status, err := a.ApplyDecision(ctx, types.ReviewTableDeposits, types.ReviewActionApprove, depositID, "")
	require.NoError(t, err)
	assert.Equal(t, types.RequestStatusApproved, status)

	_, err = a.ApplyDecision(ctx, types.ReviewTableDeposits, types.ReviewActionApprove, depositID, "")
	assert.ErrorIs(t, err, ErrNotPending)

	var balance decimal.Decimal
	require.NoError(t, pool.QueryRow(ctx,
		"select amount from user_assets where user_id = $1::uuid and symbol = 'USDT'",
		userID).Scan(&balance))
	assert.True(t, balance.Equal(decimal.RequireFromString("40")), balance.String())
}

func TestApplyDecisionRejectDepositMovesNoMoney(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	userID := createRequester(t, pool)
	a := newTestApprover(pool)

	var depositID string
	err := pool.QueryRow(ctx,
		"insert into deposits (user_id, amount, currency) values ($1, 25, 'USDT') returning id::text",
		userID).Scan(&depositID)
	require.NoError(t, err)

	status, err := a.ApplyDecision(ctx, types.ReviewTableDeposits, types.ReviewActionReject, depositID, "")
	require.NoError(t, err)
	assert.Equal(t, types.RequestStatusRejected, status)

	var count int
	require.NoError(t, pool.QueryRow(ctx,
		"select count(*) from user_assets where user_id = $1::uuid", userID).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestApplyDecisionRejectWithdrawalRefunds(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	userID := createRequester(t, pool)
	a := newTestApprover(pool)

	var withdrawalID string
	err := pool.QueryRow(ctx,
		"insert into withdrawals (user_id, amount, currency, wallet_address) values ($1, 15, 'USDT', '0xabc') returning id::text",
		userID).Scan(&withdrawalID)
	require.NoError(t, err)

	status, err := a.ApplyDecision(ctx, types.ReviewTableWithdrawals, types.ReviewActionReject, withdrawalID, "")
	require.NoError(t, err)
	assert.Equal(t, types.RequestStatusRejected, status)

	var balance decimal.Decimal
	require.NoError(t, pool.QueryRow(ctx,
		"select amount from user_assets where user_id = $1::uuid and symbol = 'USDT'",
		userID).Scan(&balance))
	assert.True(t, balance.Equal(decimal.RequireFromString("15")), balance.String())
}
