package handler

import (
	"FillIndexer/internal/event"
	"FillIndexer/internal/message"
	"FillIndexer/internal/persistence"
	"FillIndexer/internal/state"
	"context"
)

// OrderHandler applies one liquidity role of a regular order book match.
type OrderHandler struct {
	base
	leg fillLeg
}

func NewOrderHandler(
	ev *event.ResolvedEvent,
	txHash string,
	deps Deps,
	fill *event.OrderFillEventV1,
	liquidity state.Liquidity,
) *OrderHandler {
	leg := fillLeg{
		liquidity:     liquidity,
		fillType:      state.FillTypeLimit,
		clobPairID:    fill.MakerOrder.OrderID.ClobPairID,
		priceSubticks: fill.MakerOrder.Subticks,
		fillAmount:    fill.FillAmount,
	}
	if liquidity == state.LiquidityMaker {
		leg.order = fill.MakerOrder
		leg.totalFilled = fill.TotalFilledMaker
		leg.feeQuantums = fill.MakerFee
	} else {
		leg.order = fill.Order
		leg.totalFilled = fill.TotalFilledTaker
		leg.feeQuantums = fill.TakerFee
		leg.trade = true
	}
	leg.subaccount = *leg.order.OrderID.SubaccountID
	leg.side = state.OrderSideFromProtocol(leg.order.Side)

	return &OrderHandler{base: newBase("OrderHandler", ev, txHash, deps), leg: leg}
}

func (h *OrderHandler) Name() string {
	return "OrderHandler"
}

func (h *OrderHandler) ParallelizationKeys() []string {
	return orderFillKeys(h.leg.subaccount, h.leg.clobPairID, h.leg.order.OrderID)
}

func (h *OrderHandler) Handle(ctx context.Context, tx persistence.Tx) ([]message.ConsolidatedMessage, error) {
	res, err := h.applyFill(ctx, tx, h.leg)
	if err != nil {
		return nil, err
	}
	return h.fillMessages(h.leg, res)
}
