package math

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// DivisionPrecision is the number of decimal places kept by averaging
// divisions. Every other operation in this package is exact.
const DivisionPrecision int32 = 18

// QuantumsToHuman scales an unsigned chain amount by 10^atomicResolution.
func QuantumsToHuman(quantums uint64, atomicResolution int32) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(quantums), atomicResolution)
}

// SignedQuantumsToHuman is QuantumsToHuman for signed big amounts such as
// position sizes carried in subaccount updates.
func SignedQuantumsToHuman(quantums *big.Int, atomicResolution int32) decimal.Decimal {
	if quantums == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(quantums, atomicResolution)
}

// SubticksToPrice converts a price in subticks to a human quote price:
// subticks * 10^(quantumConversionExponent - atomicResolution + quoteAtomicResolution).
func SubticksToPrice(
	subticks uint64,
	atomicResolution int32,
	quantumConversionExponent int32,
	quoteAtomicResolution int32,
) decimal.Decimal {
	exp := quantumConversionExponent - atomicResolution + quoteAtomicResolution
	return decimal.NewFromBigInt(new(big.Int).SetUint64(subticks), exp)
}

// FeeToHuman converts a signed fee in quote quantums. Negative fees are rebates.
func FeeToHuman(feeQuantums int64, quoteAtomicResolution int32) decimal.Decimal {
	return decimal.New(feeQuantums, quoteAtomicResolution)
}

// WeightedAverage returns (p1*w1 + p2*w2) / (w1 + w2). With no prior weight the
// new price is returned unchanged, so a first fill never picks up rounding.
func WeightedAverage(p1, w1, p2, w2 decimal.Decimal) decimal.Decimal {
	if w1.IsZero() {
		return p2
	}
	total := w1.Add(w2)
	if total.IsZero() {
		return decimal.Zero
	}
	numerator := p1.Mul(w1).Add(p2.Mul(w2))
	return numerator.DivRound(total, DivisionPrecision)
}

// ComputeRealizedPnL is the profit of closing closeSize of a position at
// fillPrice against its average entry.
func ComputeRealizedPnL(isLong bool, fillPrice, entryPrice, closeSize decimal.Decimal) decimal.Decimal {
	diff := fillPrice.Sub(entryPrice)
	if !isLong {
		diff = diff.Neg()
	}
	return diff.Mul(closeSize)
}

// ComputeUnrealizedPnL marks an open position to markPrice. size is absolute.
func ComputeUnrealizedPnL(isLong bool, markPrice, entryPrice, size decimal.Decimal) decimal.Decimal {
	return ComputeRealizedPnL(isLong, markPrice, entryPrice, size)
}

// ComputeNotional is size * price.
func ComputeNotional(size, price decimal.Decimal) decimal.Decimal {
	return size.Mul(price)
}
