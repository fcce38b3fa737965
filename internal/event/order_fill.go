package event

// OrderFillEventV1 is a match between a maker order and either a taker order
// or a liquidation order. Fees are in quote-asset quantums; the taker fee of a
// liquidation is the insurance fund fee.
type OrderFillEventV1 struct {
	MakerOrder       *Order
	Order            *Order
	LiquidationOrder *LiquidationOrderV1
	FillAmount       uint64
	MakerFee         int64
	TakerFee         int64
	TotalFilledMaker uint64
	TotalFilledTaker uint64
}

// IsLiquidation reports whether the taker side is a liquidation order.
func (e *OrderFillEventV1) IsLiquidation() bool {
	return e.Order == nil && e.LiquidationOrder != nil
}

// LiquidationOrderV1 is the synthetic taker order placed for a liquidation.
type LiquidationOrderV1 struct {
	Liquidated  *SubaccountID
	ClobPairID  uint32
	PerpetualID uint32
	TotalSize   uint64
	IsBuy       bool
	Subticks    uint64
}

func (l *LiquidationOrderV1) Side() OrderSide {
	if l.IsBuy {
		return OrderSideBuy
	}
	return OrderSideSell
}
