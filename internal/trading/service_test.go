package trading

import (
	"testing"

	"metatradex/internal/model"
	"metatradex/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSettlementRecordWin(t *testing.T) {
	trade := model.Trade{
		UserID:      "u1",
		Symbol:      "BTC",
		StakeSymbol: "USDT",
		Amount:      decimal.RequireFromString("100"),
		Duration:    30,
	}
	rec := settlementRecord(trade, types.TradeOutcomeWin,
		decimal.RequireFromString("85"), decimal.RequireFromString("65000"))

	assert.Equal(t, types.TransactionTypeTrade, rec.Type)
	assert.Equal(t, "win", rec.Status)
	assert.Equal(t, "USDT", rec.FromSymbol)
	assert.Equal(t, "USDT", rec.ToSymbol)
	assert.True(t, rec.FromAmount.Equal(decimal.RequireFromString("100")))
	assert.True(t, rec.ToAmount.Equal(decimal.RequireFromString("85")))
	assert.True(t, rec.Fee.IsZero())
	assert.True(t, rec.Price.Equal(decimal.RequireFromString("65000")))
	assert.Equal(t, "30s trade on BTC - WIN", rec.Notes)
}

func TestSettlementRecordLoss(t *testing.T) {
	trade := model.Trade{
		UserID:      "u2",
		Symbol:      "ETH",
		StakeSymbol: "USDT",
		Amount:      decimal.RequireFromString("40"),
		Duration:    60,
	}
	rec := settlementRecord(trade, types.TradeOutcomeLoss,
		decimal.RequireFromString("-38"), decimal.Zero)

	assert.Equal(t, "loss", rec.Status)
	assert.Equal(t, "USDT", rec.FromSymbol)
	assert.Equal(t, "USDT", rec.ToSymbol)
	assert.True(t, rec.ToAmount.Equal(decimal.RequireFromString("-38")))
	assert.Equal(t, "60s trade on ETH - LOSS", rec.Notes)
}

func TestNormalizeStakeSymbol(t *testing.T) {
	assert.Equal(t, "USDT", normalizeStakeSymbol(""))
	assert.Equal(t, "USDT", normalizeStakeSymbol("  usdt "))
	assert.Equal(t, "BTC", normalizeStakeSymbol("btc"))
}
