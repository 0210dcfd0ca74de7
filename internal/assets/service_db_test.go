package assets

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"metatradex/internal/history"
	"metatradex/internal/marketdata"

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

func createUser(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	ctx := context.Background()
	var id string
	err := pool.QueryRow(ctx,
		"insert into profiles (email, kyc_status) values ($1, 'approved') returning id::text",
		fmt.Sprintf("assets-%d@test.local", time.Now().UnixNano())).Scan(&id)
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Exec(ctx, "delete from profiles where id = $1::uuid", id)
	})
	return id
}

func applyDelta(t *testing.T, svc *Service, pool *pgxpool.Pool, userID, symbol, delta string) {
	t.Helper()
	ctx := context.Background()
	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	require.NoError(t, svc.ApplyTradeDelta(ctx, tx, userID, symbol, decimal.RequireFromString(delta)))
	require.NoError(t, tx.Commit(ctx))
}

func balanceOf(t *testing.T, pool *pgxpool.Pool, userID, symbol string) decimal.Decimal {
	t.Helper()
	var amount decimal.Decimal
	err := pool.QueryRow(context.Background(),
		"select amount from user_assets where user_id = $1::uuid and symbol = $2",
		userID, symbol).Scan(&amount)
	require.NoError(t, err)
	return amount
}

func TestApplyTradeDeltaFloorsAtZero(t *testing.T) {
	pool := testPool(t)
	userID := createUser(t, pool)
	svc := NewService(pool, marketdata.NewStore(pool), history.NewStore(pool))

	_, err := pool.Exec(context.Background(),
		"insert into user_assets (user_id, symbol, amount) values ($1, 'USDT', 50)", userID)
	require.NoError(t, err)

	applyDelta(t, svc, pool, userID, "USDT", "-80")
	assert.True(t, balanceOf(t, pool, userID, "USDT").IsZero())

	applyDelta(t, svc, pool, userID, "USDT", "30")
	assert.True(t, balanceOf(t, pool, userID, "USDT").Equal(decimal.RequireFromString("30")))
}

func TestApplyTradeDeltaLossWithoutRowCreatesNone(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	userID := createUser(t, pool)
	svc := NewService(pool, marketdata.NewStore(pool), history.NewStore(pool))

	applyDelta(t, svc, pool, userID, "USDT", "-10")
	var count int
	require.NoError(t, pool.QueryRow(ctx,
		"select count(*) from user_assets where user_id = $1::uuid and symbol = 'USDT'",
		userID).Scan(&count))
	assert.Equal(t, 0, count)

	applyDelta(t, svc, pool, userID, "USDT", "10")
	assert.True(t, balanceOf(t, pool, userID, "USDT").Equal(decimal.RequireFromString("10")))
}
