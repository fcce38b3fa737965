package handler

import (
	"FillIndexer/internal/event"
	"FillIndexer/internal/message"
	"FillIndexer/internal/persistence"
	"FillIndexer/internal/state"
	"context"
)

// LiquidationHandler applies one role of a liquidation match. The taker is
// the synthetic liquidation order: it has no persisted order, so its leg
// carries the liquidated subaccount and the insurance fund fee instead.
type LiquidationHandler struct {
	base
	leg fillLeg
}

func NewLiquidationHandler(
	ev *event.ResolvedEvent,
	txHash string,
	deps Deps,
	fill *event.OrderFillEventV1,
	liquidity state.Liquidity,
) *LiquidationHandler {
	leg := fillLeg{
		liquidity:     liquidity,
		clobPairID:    fill.MakerOrder.OrderID.ClobPairID,
		priceSubticks: fill.MakerOrder.Subticks,
		fillAmount:    fill.FillAmount,
	}
	if liquidity == state.LiquidityMaker {
		leg.fillType = state.FillTypeLiquidation
		leg.order = fill.MakerOrder
		leg.totalFilled = fill.TotalFilledMaker
		leg.feeQuantums = fill.MakerFee
		leg.subaccount = *fill.MakerOrder.OrderID.SubaccountID
		leg.side = state.OrderSideFromProtocol(fill.MakerOrder.Side)
	} else {
		leg.fillType = state.FillTypeLiquidated
		leg.feeQuantums = fill.TakerFee
		leg.subaccount = *fill.LiquidationOrder.Liquidated
		leg.side = state.OrderSideFromProtocol(fill.LiquidationOrder.Side())
		leg.trade = true
	}

	return &LiquidationHandler{base: newBase("LiquidationHandler", ev, txHash, deps), leg: leg}
}

func (h *LiquidationHandler) Name() string {
	return "LiquidationHandler"
}

func (h *LiquidationHandler) ParallelizationKeys() []string {
	var orderID *event.OrderID
	if h.leg.order != nil {
		orderID = h.leg.order.OrderID
	}
	return orderFillKeys(h.leg.subaccount, h.leg.clobPairID, orderID)
}

func (h *LiquidationHandler) Handle(ctx context.Context, tx persistence.Tx) ([]message.ConsolidatedMessage, error) {
	res, err := h.applyFill(ctx, tx, h.leg)
	if err != nil {
		return nil, err
	}
	return h.fillMessages(h.leg, res)
}
