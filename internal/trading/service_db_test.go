package trading

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"metatradex/internal/assets"
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

func createTrader(t *testing.T, pool *pgxpool.Pool, override string) string {
	t.Helper()
	ctx := context.Background()
	var id string
	err := pool.QueryRow(ctx, `
		insert into profiles (email, kyc_status, trade_override_status)
		values ($1, 'approved', nullif($2, ''))
		returning id::text
	`, fmt.Sprintf("trader-%d@test.local", time.Now().UnixNano()), override).Scan(&id)
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Exec(ctx, "delete from profiles where id = $1::uuid", id)
	})
	return id
}

func newTestService(pool *pgxpool.Pool) *Service {
	historyStore := history.NewStore(pool)
	assetSvc := assets.NewService(pool, marketdata.NewStore(pool), historyStore)
	return NewService(pool, assetSvc, historyStore, time.Second)
}

func drainDueTrades(t *testing.T, svc *Service) {
	t.Helper()
	for {
		settled, err := svc.settleOneDueTrade(context.Background())
		require.NoError(t, err)
		if !settled {
			return
		}
	}
}

func TestSettlementWritesSingleAuditRow(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	userID := createTrader(t, pool, "win")
	svc := newTestService(pool)

	_, err := pool.Exec(ctx,
		"insert into user_assets (user_id, symbol, amount) values ($1, 'USDT', 100)", userID)
	require.NoError(t, err)
	var tradeID string
	err = pool.QueryRow(ctx, `
		insert into trades (user_id, symbol, stake_symbol, direction, amount, duration, status, expires_at)
		values ($1, 'BTC', 'USDT', 'buy', 100, 30, 'open', now() - interval '1 second')
		returning id::text
	`, userID).Scan(&tradeID)
	require.NoError(t, err)

	drainDueTrades(t, svc)
	drainDueTrades(t, svc)

	var count int
	require.NoError(t, pool.QueryRow(ctx,
		"select count(*) from transactions where user_id = $1::uuid", userID).Scan(&count))
	assert.Equal(t, 1, count)

	var txStatus, fromSymbol, toSymbol string
	require.NoError(t, pool.QueryRow(ctx,
		"select status, from_symbol, to_symbol from transactions where user_id = $1::uuid",
		userID).Scan(&txStatus, &fromSymbol, &toSymbol))
	assert.Equal(t, "win", txStatus)
	assert.Equal(t, "USDT", fromSymbol)
	assert.Equal(t, "USDT", toSymbol)

	var tradeStatus, outcome string
	var delta decimal.Decimal
	require.NoError(t, pool.QueryRow(ctx,
		"select status, outcome, delta from trades where id = $1::uuid",
		tradeID).Scan(&tradeStatus, &outcome, &delta))
	assert.Equal(t, "settled", tradeStatus)
	assert.Equal(t, "win", outcome)
	assert.True(t, delta.Equal(decimal.RequireFromString("85")), delta.String())

	var balance decimal.Decimal
	require.NoError(t, pool.QueryRow(ctx,
		"select amount from user_assets where user_id = $1::uuid and symbol = 'USDT'",
		userID).Scan(&balance))
	assert.True(t, balance.Equal(decimal.RequireFromString("185")), balance.String())
}
