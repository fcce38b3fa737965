package handler

import (
	"FillIndexer/internal/event"
	"FillIndexer/internal/message"
	"FillIndexer/internal/persistence"
	"FillIndexer/internal/state"
	"context"
)

// DeleveragingHandler settles a liquidated subaccount against an offsetting
// one. Both legs are written by one handler; the deleveraged leg is recorded
// as the taker so the two fills get distinct ids.
type DeleveragingHandler struct {
	base
	liquidated fillLeg
	offsetting fillLeg
}

func NewDeleveragingHandler(
	ev *event.ResolvedEvent,
	txHash string,
	deps Deps,
	d *event.DeleveragingEventV1,
) (*DeleveragingHandler, error) {
	h := &DeleveragingHandler{base: newBase("DeleveragingHandler", ev, txHash, deps)}

	market, err := h.marketByID(d.PerpetualID)
	if err != nil {
		return nil, err
	}

	liquidatedType, offsettingType := state.FillTypeDeleveraged, state.FillTypeOffsetting
	if d.IsFinalSettlement {
		liquidatedType, offsettingType = state.FillTypeFinalSettlement, state.FillTypeFinalSettlement
	}

	h.liquidated = fillLeg{
		subaccount:    *d.Liquidated,
		liquidity:     state.LiquidityTaker,
		fillType:      liquidatedType,
		side:          state.OrderSideFromProtocol(d.LiquidatedSide()),
		clobPairID:    market.ClobPairID,
		priceSubticks: d.Price,
		fillAmount:    d.FillAmount,
		trade:         true,
	}
	h.offsetting = fillLeg{
		subaccount:    *d.Offsetting,
		liquidity:     state.LiquidityMaker,
		fillType:      offsettingType,
		side:          state.OrderSideFromProtocol(d.OffsettingSide()),
		clobPairID:    market.ClobPairID,
		priceSubticks: d.Price,
		fillAmount:    d.FillAmount,
	}
	return h, nil
}

func (h *DeleveragingHandler) Name() string {
	return "DeleveragingHandler"
}

func (h *DeleveragingHandler) ParallelizationKeys() []string {
	offsetting := state.SubaccountUUID(h.offsetting.subaccount.Owner, h.offsetting.subaccount.Number)
	liquidated := state.SubaccountUUID(h.liquidated.subaccount.Owner, h.liquidated.subaccount.Number)
	clobPair := itoa(h.liquidated.clobPairID)
	return []string{
		familyKey(event.FamilyDeleveraging, offsetting.String(), clobPair),
		familyKey(event.FamilyDeleveraging, liquidated.String(), clobPair),
		subaccountKey(offsetting),
		subaccountKey(liquidated),
	}
}

func (h *DeleveragingHandler) Handle(ctx context.Context, tx persistence.Tx) ([]message.ConsolidatedMessage, error) {
	var msgs []message.ConsolidatedMessage
	for _, leg := range []fillLeg{h.offsetting, h.liquidated} {
		res, err := h.applyFill(ctx, tx, leg)
		if err != nil {
			return nil, err
		}
		legMsgs, err := h.fillMessages(leg, res)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, legMsgs...)
	}
	return msgs, nil
}
