package handler

import (
	"FillIndexer/internal/cache"
	"FillIndexer/internal/event"
	fpmath "FillIndexer/internal/math"
	"FillIndexer/internal/message"
	"FillIndexer/internal/persistence"
	"FillIndexer/internal/state"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fillLeg is one side of a match, normalized across order fills,
// liquidations and deleveraging.
type fillLeg struct {
	subaccount event.SubaccountID
	liquidity  state.Liquidity
	fillType   state.FillType
	side       state.OrderSide
	clobPairID uint32

	// order is the leg's own order, nil for liquidation takers and
	// deleveraging. totalFilled is its cumulative fill in quantums.
	order       *event.Order
	totalFilled uint64

	priceSubticks uint64
	fillAmount    uint64
	feeQuantums   int64

	// trade marks the leg whose fill is announced on the trade channel.
	trade bool
}

type fillResult struct {
	fill     *state.Fill
	order    *state.Order
	position *state.PerpetualPosition
	market   cache.PerpetualMarket
}

// applyFill writes the fill, the leg's order and the position accumulators.
func (b *base) applyFill(ctx context.Context, tx persistence.Tx, leg fillLeg) (*fillResult, error) {
	market, err := b.marketByClobPair(leg.clobPairID)
	if err != nil {
		return nil, err
	}
	quote := b.Snapshot.QuoteAsset()

	size := fpmath.QuantumsToHuman(leg.fillAmount, market.AtomicResolution)
	price := fpmath.SubticksToPrice(leg.priceSubticks, market.AtomicResolution,
		market.QuantumConversionExponent, quote.AtomicResolution)
	subaccountID := state.SubaccountUUID(leg.subaccount.Owner, leg.subaccount.Number)
	eventID := b.eventID()

	res := &fillResult{market: market}

	if leg.order != nil {
		res.order, err = b.upsertOrder(ctx, tx, leg, market, subaccountID)
		if err != nil {
			return nil, err
		}
	}

	fill := &state.Fill{
		ID:              state.FillUUID(eventID, leg.liquidity),
		SubaccountID:    subaccountID,
		Side:            leg.side,
		Liquidity:       leg.liquidity,
		Type:            leg.fillType,
		ClobPairID:      leg.clobPairID,
		Size:            size,
		Price:           price,
		QuoteAmount:     fpmath.ComputeNotional(size, price),
		EventID:         eventID,
		TransactionHash: b.txHash,
		CreatedAt:       b.ev.BlockTime,
		CreatedAtHeight: b.ev.BlockHeight,
		Fee:             fpmath.FeeToHuman(leg.feeQuantums, quote.AtomicResolution),
	}
	if res.order != nil {
		fill.OrderID = &res.order.ID
		fill.ClientMetadata = &res.order.ClientMetadata
	}
	if err := b.Store.CreateFill(ctx, tx, fill); err != nil {
		return nil, b.storeErr("CreateFill", err)
	}
	res.fill = fill

	res.position, err = b.updatePosition(ctx, tx, subaccountID, market, fill)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (b *base) upsertOrder(
	ctx context.Context,
	tx persistence.Tx,
	leg fillLeg,
	market cache.PerpetualMarket,
	subaccountID uuid.UUID,
) (*state.Order, error) {
	o := leg.order
	quote := b.Snapshot.QuoteAsset()
	orderID := state.OrderUUID(subaccountID, o.OrderID.ClientID, o.OrderID.ClobPairID, o.OrderID.OrderFlags)

	var current *state.OrderStatus
	existing, err := b.Store.FindOrder(ctx, tx, orderID)
	switch {
	case err == nil:
		current = &existing.Status
	case errors.Is(err, persistence.ErrNotFound):
	default:
		return nil, b.storeErr("FindOrder", err)
	}

	mark, err := b.CanceledOrders.CancelMark(ctx, orderID)
	if err != nil {
		b.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("canceled orders lookup failed")
		return nil, err
	}

	size := fpmath.QuantumsToHuman(o.Quantums, market.AtomicResolution)
	totalFilled := fpmath.QuantumsToHuman(leg.totalFilled, market.AtomicResolution)
	tif := state.TimeInForceFromProtocol(o.TimeInForce)
	stateful := event.IsStatefulOrderFlags(o.OrderID.OrderFlags)
	expiresOnFill := !stateful && (tif == state.TimeInForceIOC || tif == state.TimeInForceFOK)

	order := &state.Order{
		ID:              orderID,
		SubaccountID:    subaccountID,
		ClientID:        o.OrderID.ClientID,
		ClobPairID:      o.OrderID.ClobPairID,
		Side:            leg.side,
		Size:            size,
		TotalFilled:     totalFilled,
		Price:           fpmath.SubticksToPrice(o.Subticks, market.AtomicResolution, market.QuantumConversionExponent, quote.AtomicResolution),
		Type:            state.OrderTypeFromProtocol(o),
		Status:          state.NextOrderStatus(current, totalFilled, size, mark, expiresOnFill),
		TimeInForce:     tif,
		ReduceOnly:      o.ReduceOnly,
		OrderFlags:      o.OrderID.OrderFlags,
		GoodTilBlock:    o.GoodTilBlock,
		ClientMetadata:  o.ClientMetadata,
		UpdatedAt:       b.ev.BlockTime,
		UpdatedAtHeight: b.ev.BlockHeight,
	}
	if o.GoodTilBlockTime != nil {
		t := time.Unix(int64(*o.GoodTilBlockTime), 0).UTC()
		order.GoodTilBlockTime = &t
	}
	if o.ConditionType != event.ConditionTypeUnspecified {
		trigger := fpmath.SubticksToPrice(o.ConditionalOrderTriggerSubticks, market.AtomicResolution,
			market.QuantumConversionExponent, quote.AtomicResolution)
		order.TriggerPrice = &trigger
	}

	if err := b.Store.UpsertOrder(ctx, tx, order); err != nil {
		return nil, b.storeErr("UpsertOrder", err)
	}
	return order, nil
}

// updatePosition folds the fill into the subaccount's open position. The
// position must already exist: subaccount updates open positions, fills
// only move their price accumulators.
func (b *base) updatePosition(
	ctx context.Context,
	tx persistence.Tx,
	subaccountID uuid.UUID,
	market cache.PerpetualMarket,
	fill *state.Fill,
) (*state.PerpetualPosition, error) {
	perpetualID := market.ID
	positions, err := b.Store.FindPerpetualPositions(ctx, tx, state.PositionQuery{
		SubaccountID: subaccountID,
		PerpetualID:  &perpetualID,
		Status:       state.PositionStatusOpen,
		Limit:        1,
	})
	if err != nil {
		return nil, b.storeErr("FindPerpetualPositions", err)
	}
	if len(positions) == 0 {
		b.logger.Error().
			Str("subaccount_id", subaccountID.String()).
			Uint32("perpetual_id", perpetualID).
			Str("fill_id", fill.ID.String()).
			Msg("no open perpetual position for fill")
		return nil, fmt.Errorf("open perpetual position for subaccount %s perpetual %d: %w",
			subaccountID, perpetualID, persistence.ErrNotFound)
	}

	p := positions[0]
	if state.OpensExposure(p.Side, fill.Side) {
		p.EntryPrice = fpmath.WeightedAverage(p.EntryPrice, p.SumOpen, fill.Price, fill.Size)
		p.SumOpen = p.SumOpen.Add(fill.Size)
	} else {
		exit := decimal.Zero
		if p.ExitPrice != nil {
			exit = *p.ExitPrice
		}
		exit = fpmath.WeightedAverage(exit, p.SumClose, fill.Price, fill.Size)
		p.ExitPrice = &exit
		p.SumClose = p.SumClose.Add(fill.Size)
		p.TotalRealizedPnl = p.TotalRealizedPnl.Add(
			fpmath.ComputeRealizedPnL(p.IsLong(), fill.Price, p.EntryPrice, fill.Size))
	}
	p.LastEventID = fill.EventID

	if err := b.Store.UpdatePerpetualPosition(ctx, tx, p); err != nil {
		return nil, b.storeErr("UpdatePerpetualPosition", err)
	}
	return p, nil
}

// fillMessages assembles everything announced for one applied leg.
func (b *base) fillMessages(leg fillLeg, res *fillResult) ([]message.ConsolidatedMessage, error) {
	contents := message.SubaccountContents{
		Fills:       []message.FillContent{message.NewFillContent(res.fill, res.market.Ticker)},
		BlockHeight: itoa(b.ev.BlockHeight),
	}
	if res.order != nil {
		contents.Orders = []message.OrderContent{message.NewOrderContent(res.order, res.market.Ticker)}
	}
	if res.position != nil {
		var oracle *decimal.Decimal
		if p, ok := b.Snapshot.OraclePrice(res.market.MarketID); ok {
			oracle = &p
		}
		contents.PerpetualPositions = []message.PositionContent{
			message.NewPositionContent(leg.subaccount, res.position, res.market.Ticker, oracle),
		}
	}

	var msgs []message.ConsolidatedMessage
	sub, err := message.NewSubaccountMessage(b.header(), leg.subaccount, contents)
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, sub)

	if leg.trade {
		trade, err := message.NewTradeMessage(b.header(), leg.clobPairID,
			[]message.TradeContent{message.NewTradeContent(res.fill)})
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, trade)
	}

	if leg.order != nil {
		update, err := message.NewOrderUpdateMessage(leg.order.OrderID, leg.totalFilled)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, update)

		// Stateful orders cannot be replaced within the block, so a filled
		// one can be removed from the book right away.
		if res.order.Status == state.OrderStatusFilled && event.IsStatefulOrderFlags(leg.order.OrderID.OrderFlags) {
			remove, err := message.NewOrderRemoveMessage(leg.order.OrderID)
			if err != nil {
				return nil, err
			}
			msgs = append(msgs, remove)
		}
	}
	return msgs, nil
}

// orderFillKeys are the keys of a leg that settles against an order book
// match. orderID is nil for a leg without an order.
func orderFillKeys(sub event.SubaccountID, clobPairID uint32, orderID *event.OrderID) []string {
	subID := state.SubaccountUUID(sub.Owner, sub.Number)
	keys := []string{
		familyKey(event.FamilyOrderFill, subID.String(), itoa(clobPairID)),
		subaccountKey(subID),
	}
	if orderID != nil {
		id := state.OrderUUID(subID, orderID.ClientID, orderID.ClobPairID, orderID.OrderFlags)
		keys = append(keys, statefulOrderKey+"_"+id.String())
	}
	return keys
}
