package trading

import (
	"metatradex/internal/model"
	"metatradex/internal/types"

	"github.com/shopspring/decimal"
)

// Rates applied when no setting row covers the trade's duration.
var (
	defaultWinProbability = 0.5
	defaultPayoutRate     = decimal.NewFromFloat(0.8)
	defaultLossRate       = decimal.NewFromInt(1)
)

// DecideOutcome resolves a trade at expiry. A pending admin override on
// the profile decides unconditionally; otherwise the trade wins when the
// uniform draw falls below the duration's win rate.
func DecideOutcome(override *types.TradeOutcome, draw float64, setting *model.TradeSetting) types.TradeOutcome {
	if override != nil {
		return *override
	}
	prob := defaultWinProbability
	if setting != nil {
		prob, _ = setting.WinRate.Float64()
	}
	if draw < prob {
		return types.TradeOutcomeWin
	}
	return types.TradeOutcomeLoss
}

// SettlementDelta is the signed balance change for a settled trade: a win
// pays stake*win_rate, a loss costs stake*loss_rate. The stake itself is
// never held, so the delta is the whole effect on the balance.
func SettlementDelta(outcome types.TradeOutcome, stake decimal.Decimal, setting *model.TradeSetting) decimal.Decimal {
	if outcome == types.TradeOutcomeWin {
		rate := defaultPayoutRate
		if setting != nil {
			rate = setting.WinRate
		}
		return stake.Mul(rate)
	}
	rate := defaultLossRate
	if setting != nil {
		rate = setting.LossRate
	}
	return stake.Mul(rate).Neg()
}
