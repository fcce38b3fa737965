package event

// DeleveragingEventV1 settles a liquidated subaccount's position against an
// offsetting subaccount. Price is in subticks; IsBuy is the liquidated side.
type DeleveragingEventV1 struct {
	Liquidated        *SubaccountID
	Offsetting        *SubaccountID
	PerpetualID       uint32
	FillAmount        uint64
	Price             uint64
	IsBuy             bool
	IsFinalSettlement bool
}

// LiquidatedSide is the side of the deleveraged subaccount's fill.
func (e *DeleveragingEventV1) LiquidatedSide() OrderSide {
	if e.IsBuy {
		return OrderSideBuy
	}
	return OrderSideSell
}

// OffsettingSide is the opposite of LiquidatedSide.
func (e *DeleveragingEventV1) OffsettingSide() OrderSide {
	if e.IsBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}
