package marketdata

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPerturbStaysWithinBand(t *testing.T) {
	price := decimal.NewFromInt(65000)
	low := price.Mul(decimal.RequireFromString("0.9975"))
	high := price.Mul(decimal.RequireFromString("1.0025"))

	for _, draw := range []float64{0, 0.25, 0.5, 0.75, 0.999} {
		got := perturb(price, draw)
		assert.True(t, got.GreaterThanOrEqual(low), "draw %v gave %s below band", draw, got)
		assert.True(t, got.LessThanOrEqual(high), "draw %v gave %s above band", draw, got)
	}
}

func TestPerturbMidDrawIsNeutral(t *testing.T) {
	price := decimal.NewFromInt(100)
	assert.True(t, perturb(price, 0.5).Equal(price))
}

func TestPerturbKeepsZeroPrice(t *testing.T) {
	assert.True(t, perturb(decimal.Zero, 0.9).IsZero())
}
