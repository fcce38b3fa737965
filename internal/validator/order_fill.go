package validator

import (
	"FillIndexer/internal/event"

	"github.com/rs/zerolog"
)

type OrderFillValidator struct {
	base
}

func NewOrderFillValidator(logger zerolog.Logger) *OrderFillValidator {
	return &OrderFillValidator{base{name: "OrderFillValidator", logger: logger}}
}

func (v *OrderFillValidator) Validate(ev *event.ResolvedEvent) error {
	fill, ok := ev.Decoded.Payload.(*event.OrderFillEventV1)
	if !ok {
		return v.wrongPayload(ev)
	}

	if fill.MakerOrder == nil {
		return v.fail(ev, "OrderFillEvent must contain a makerOrder")
	}
	if msg := orderError(fill.MakerOrder); msg != "" {
		return v.fail(ev, "OrderFillEvent must contain a makerOrder: "+msg)
	}

	if fill.Order != nil {
		if msg := orderError(fill.Order); msg != "" {
			return v.fail(ev, "OrderFillEvent taker order: "+msg)
		}
		return nil
	}

	if fill.LiquidationOrder == nil {
		return v.fail(ev, "OrderFillEvent must contain either an order or a liquidationOrder")
	}
	if fill.LiquidationOrder.Liquidated == nil {
		return v.fail(ev, "LiquidationOrder must contain a liquidated subaccountId")
	}
	return nil
}

// orderError returns the first structural problem with o, or "".
func orderError(o *event.Order) string {
	switch {
	case o.OrderID == nil:
		return "Order must contain an orderId"
	case o.OrderID.SubaccountID == nil:
		return "OrderId must contain a subaccountId"
	case o.Side == event.OrderSideUnspecified:
		return "Order must specify an order side"
	case o.GoodTilBlock == nil && o.GoodTilBlockTime == nil:
		return "Order must contain a defined goodTilOneof"
	}
	return ""
}
