package math_test

import (
	fpmath "FillIndexer/internal/math"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestQuantumsToHuman(t *testing.T) {
	assert.Equal(t, "1.5", fpmath.QuantumsToHuman(15_000_000_000, -10).String())
	assert.Equal(t, "0", fpmath.QuantumsToHuman(0, -10).String())
	assert.Equal(t, "18446744073709551615", fpmath.QuantumsToHuman(^uint64(0), 0).String())
}

func TestSignedQuantumsToHuman(t *testing.T) {
	assert.Equal(t, "-2.5", fpmath.SignedQuantumsToHuman(big.NewInt(-25), -1).String())
	assert.True(t, fpmath.SignedQuantumsToHuman(nil, -1).IsZero())
}

func TestSubticksToPrice(t *testing.T) {
	// exponent = -8 - (-10) + (-6) = -4
	assert.Equal(t, "100", fpmath.SubticksToPrice(1_000_000, -10, -8, -6).String())
	assert.Equal(t, "10000", fpmath.SubticksToPrice(100_000_000, -10, -8, -6).String())
}

func TestScenarioQuoteAmount(t *testing.T) {
	size := fpmath.QuantumsToHuman(15_000_000_000, -10)
	price := fpmath.SubticksToPrice(1_000_000, -10, -8, -6)

	assert.Equal(t, "1.5", size.String())
	assert.Equal(t, "100", price.String())
	assert.Equal(t, "150", fpmath.ComputeNotional(size, price).String())
}

func TestFeeToHuman(t *testing.T) {
	assert.Equal(t, "0.01", fpmath.FeeToHuman(10_000, -6).String())
	assert.Equal(t, "-0.005", fpmath.FeeToHuman(-5_000, -6).String())
}

func TestWeightedAverage(t *testing.T) {
	got := fpmath.WeightedAverage(d("100"), d("1"), d("200"), d("1"))
	assert.True(t, got.Equal(d("150")), "got %s", got)

	// no prior weight takes the new price as is
	got = fpmath.WeightedAverage(d("0"), d("0"), d("123.456"), d("2"))
	assert.True(t, got.Equal(d("123.456")), "got %s", got)
}

func TestWeightedAverageStepwiseEqualsCombined(t *testing.T) {
	fills := []struct{ price, size decimal.Decimal }{
		{d("100"), d("1")},
		{d("200"), d("1")},
		{d("400"), d("2")},
	}

	price, weight := decimal.Zero, decimal.Zero
	for _, f := range fills {
		price = fpmath.WeightedAverage(price, weight, f.price, f.size)
		weight = weight.Add(f.size)
	}

	numerator, total := decimal.Zero, decimal.Zero
	for _, f := range fills {
		numerator = numerator.Add(f.price.Mul(f.size))
		total = total.Add(f.size)
	}
	combined := numerator.Div(total)

	require.True(t, weight.Equal(total))
	assert.True(t, price.Equal(combined), "stepwise %s != combined %s", price, combined)
	assert.True(t, price.Equal(d("275")))
}

func TestComputeRealizedPnL(t *testing.T) {
	assert.True(t, fpmath.ComputeRealizedPnL(true, d("110"), d("100"), d("2")).Equal(d("20")))
	assert.True(t, fpmath.ComputeRealizedPnL(false, d("110"), d("100"), d("2")).Equal(d("-20")))
	assert.True(t, fpmath.ComputeUnrealizedPnL(false, d("90"), d("100"), d("0.5")).Equal(d("5")))
}

func TestWeightedAverageNonTerminating(t *testing.T) {
	price, weight := decimal.Zero, decimal.Zero
	for _, w := range []string{"1", "2", "3"} {
		price = fpmath.WeightedAverage(price, weight, d(w), d(w))
		weight = weight.Add(d(w))
	}

	// 14/6 has no finite expansion; each step rounds to DivisionPrecision
	combined := d("14").DivRound(d("6"), fpmath.DivisionPrecision)
	tolerance := decimal.New(1, -fpmath.DivisionPrecision)
	assert.True(t, price.Sub(combined).Abs().LessThanOrEqual(tolerance),
		"stepwise %s drifted from combined %s", price, combined)
	assert.Equal(t, "2.333333333333333333", combined.String())
}
