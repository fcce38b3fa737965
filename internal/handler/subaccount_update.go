package handler

import (
	"FillIndexer/internal/cache"
	"FillIndexer/internal/event"
	fpmath "FillIndexer/internal/math"
	"FillIndexer/internal/message"
	"FillIndexer/internal/persistence"
	"FillIndexer/internal/state"
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubaccountUpdateHandler applies the settled position sizes of a
// subaccount. It opens, resizes, flips and closes perpetual positions and
// overwrites asset positions.
type SubaccountUpdateHandler struct {
	base
	update *event.SubaccountUpdateEventV1
}

func NewSubaccountUpdateHandler(
	ev *event.ResolvedEvent,
	txHash string,
	deps Deps,
	u *event.SubaccountUpdateEventV1,
) *SubaccountUpdateHandler {
	return &SubaccountUpdateHandler{base: newBase("SubaccountUpdateHandler", ev, txHash, deps), update: u}
}

func (h *SubaccountUpdateHandler) Name() string {
	return "SubaccountUpdateHandler"
}

func (h *SubaccountUpdateHandler) subaccountID() uuid.UUID {
	return state.SubaccountUUID(h.update.SubaccountID.Owner, h.update.SubaccountID.Number)
}

func (h *SubaccountUpdateHandler) ParallelizationKeys() []string {
	id := h.subaccountID()
	return []string{
		familyKey(event.FamilySubaccountUpdate, id.String()),
		subaccountKey(id),
	}
}

func (h *SubaccountUpdateHandler) Handle(ctx context.Context, tx persistence.Tx) ([]message.ConsolidatedMessage, error) {
	sub := *h.update.SubaccountID
	subID := h.subaccountID()
	contents := message.SubaccountContents{BlockHeight: itoa(h.ev.BlockHeight)}

	for _, u := range h.update.UpdatedPerpetualPositions {
		market, err := h.marketByID(u.PerpetualID)
		if err != nil {
			return nil, err
		}
		changed, err := h.applyPerpetual(ctx, tx, subID, market, fpmath.SignedQuantumsToHuman(u.Quantums, market.AtomicResolution))
		if err != nil {
			return nil, err
		}

		var oracle *decimal.Decimal
		if p, ok := h.Snapshot.OraclePrice(market.MarketID); ok {
			oracle = &p
		}
		for _, p := range changed {
			contents.PerpetualPositions = append(contents.PerpetualPositions,
				message.NewPositionContent(sub, p, market.Ticker, oracle))
		}
	}

	for _, u := range h.update.UpdatedAssetPositions {
		asset, err := h.asset(u.AssetID)
		if err != nil {
			return nil, err
		}
		size := fpmath.SignedQuantumsToHuman(u.Quantums, asset.AtomicResolution)
		a := &state.AssetPosition{
			ID:           state.AssetPositionUUID(subID, u.AssetID),
			SubaccountID: subID,
			AssetID:      u.AssetID,
			Size:         size.Abs(),
			IsLong:       !size.IsNegative(),
		}
		if err := h.Store.UpsertAssetPosition(ctx, tx, a); err != nil {
			return nil, h.storeErr("UpsertAssetPosition", err)
		}
		contents.AssetPositions = append(contents.AssetPositions, message.NewAssetPositionContent(sub, a, asset.Symbol))
	}

	msg, err := message.NewSubaccountMessage(h.header(), sub, contents)
	if err != nil {
		return nil, err
	}
	return []message.ConsolidatedMessage{msg}, nil
}

// applyPerpetual moves the open position to size and returns every position
// row it wrote. A sign change closes the old position and opens a new one.
func (h *SubaccountUpdateHandler) applyPerpetual(
	ctx context.Context,
	tx persistence.Tx,
	subID uuid.UUID,
	market cache.PerpetualMarket,
	size decimal.Decimal,
) ([]*state.PerpetualPosition, error) {
	perpetualID := market.ID
	positions, err := h.Store.FindPerpetualPositions(ctx, tx, state.PositionQuery{
		SubaccountID: subID,
		PerpetualID:  &perpetualID,
		Status:       state.PositionStatusOpen,
		Limit:        1,
	})
	if err != nil {
		return nil, h.storeErr("FindPerpetualPositions", err)
	}

	var (
		changed []*state.PerpetualPosition
		open    *state.PerpetualPosition
	)
	if len(positions) > 0 {
		open = positions[0]
	}

	flipped := open != nil && !size.IsZero() && state.PositionSideFromSize(size) != open.Side
	if open != nil && (size.IsZero() || flipped) {
		h.closePosition(open)
		if err := h.Store.UpdatePerpetualPosition(ctx, tx, open); err != nil {
			return nil, h.storeErr("UpdatePerpetualPosition", err)
		}
		changed = append(changed, open)
		open = nil
	}

	if size.IsZero() {
		return changed, nil
	}

	if open == nil {
		p := h.newPosition(subID, perpetualID, size)
		if err := h.Store.CreatePerpetualPosition(ctx, tx, p); err != nil {
			return nil, h.storeErr("CreatePerpetualPosition", err)
		}
		return append(changed, p), nil
	}

	open.Size = size
	if size.Abs().GreaterThan(open.MaxSize) {
		open.MaxSize = size.Abs()
	}
	open.LastEventID = h.eventID()
	if err := h.Store.UpdatePerpetualPosition(ctx, tx, open); err != nil {
		return nil, h.storeErr("UpdatePerpetualPosition", err)
	}
	return append(changed, open), nil
}

func (h *SubaccountUpdateHandler) closePosition(p *state.PerpetualPosition) {
	eventID := h.eventID()
	closedAt := h.ev.BlockTime
	closedHeight := h.ev.BlockHeight

	p.Status = state.PositionStatusClosed
	p.Size = decimal.Zero
	p.LastEventID = eventID
	p.ClosedAt = &closedAt
	p.ClosedAtHeight = &closedHeight
	p.ClosedEventID = eventID
}

func (h *SubaccountUpdateHandler) newPosition(subID uuid.UUID, perpetualID uint32, size decimal.Decimal) *state.PerpetualPosition {
	eventID := h.eventID()
	return &state.PerpetualPosition{
		ID:               state.PerpetualPositionUUID(subID, perpetualID, eventID),
		SubaccountID:     subID,
		PerpetualID:      perpetualID,
		Side:             state.PositionSideFromSize(size),
		Status:           state.PositionStatusOpen,
		Size:             size,
		MaxSize:          size.Abs(),
		EntryPrice:       decimal.Zero,
		SumOpen:          decimal.Zero,
		SumClose:         decimal.Zero,
		TotalRealizedPnl: decimal.Zero,
		CreatedAt:        h.ev.BlockTime,
		CreatedAtHeight:  h.ev.BlockHeight,
		OpenEventID:      eventID,
		LastEventID:      eventID,
	}
}
