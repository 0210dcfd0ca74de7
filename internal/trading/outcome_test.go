package trading

import (
	"testing"

	"metatradex/internal/model"
	"metatradex/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setting(winRate, lossRate, minCapital string) *model.TradeSetting {
	return &model.TradeSetting{
		Duration:   30,
		WinRate:    decimal.RequireFromString(winRate),
		LossRate:   decimal.RequireFromString(lossRate),
		MinCapital: decimal.RequireFromString(minCapital),
	}
}

func TestDecideOutcome(t *testing.T) {
	win := types.TradeOutcomeWin
	loss := types.TradeOutcomeLoss

	tests := []struct {
		name     string
		override *types.TradeOutcome
		draw     float64
		setting  *model.TradeSetting
		want     types.TradeOutcome
	}{
		{name: "draw below win rate wins", draw: 0.5, setting: setting("0.85", "0.95", "10"), want: win},
		{name: "draw above win rate loses", draw: 0.9, setting: setting("0.85", "0.95", "10"), want: loss},
		{name: "draw equal to win rate loses", draw: 0.85, setting: setting("0.85", "0.95", "10"), want: loss},
		{name: "override win beats losing draw", override: &win, draw: 0.99, setting: setting("0.85", "0.95", "10"), want: win},
		{name: "override loss beats winning draw", override: &loss, draw: 0.01, setting: setting("0.85", "0.95", "10"), want: loss},
		{name: "no setting uses even odds win", draw: 0.49, want: win},
		{name: "no setting uses even odds loss", draw: 0.51, want: loss},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DecideOutcome(tc.override, tc.draw, tc.setting)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSettlementDelta(t *testing.T) {
	tests := []struct {
		name    string
		outcome types.TradeOutcome
		stake   string
		setting *model.TradeSetting
		want    string
	}{
		{name: "win pays stake times win rate", outcome: types.TradeOutcomeWin, stake: "100", setting: setting("0.85", "0.95", "10"), want: "85"},
		{name: "loss costs stake times loss rate", outcome: types.TradeOutcomeLoss, stake: "100", setting: setting("0.85", "0.95", "10"), want: "-95"},
		{name: "full loss rate wipes the stake", outcome: types.TradeOutcomeLoss, stake: "40", setting: setting("0.90", "1", "20"), want: "-40"},
		{name: "win without setting pays default rate", outcome: types.TradeOutcomeWin, stake: "100", want: "80"},
		{name: "loss without setting costs whole stake", outcome: types.TradeOutcomeLoss, stake: "100", want: "-100"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stake := decimal.RequireFromString(tc.stake)
			got := SettlementDelta(tc.outcome, stake, tc.setting)
			require.True(t, got.Equal(decimal.RequireFromString(tc.want)),
				"got %s, want %s", got.String(), tc.want)
		})
	}
}
