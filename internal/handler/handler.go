// Package handler turns validated events into storage mutations and the
// messages that announce them.
package handler

import (
	"FillIndexer/internal/cache"
	"FillIndexer/internal/event"
	"FillIndexer/internal/message"
	"FillIndexer/internal/persistence"
	"FillIndexer/internal/state"
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Handler applies one unit of an event inside a caller-owned transaction.
// Handlers never commit or roll back tx.
type Handler interface {
	Name() string

	// ParallelizationKeys lists the resources the handler touches. Two
	// handlers sharing a key must run sequentially in event order.
	ParallelizationKeys() []string

	Handle(ctx context.Context, tx persistence.Tx) ([]message.ConsolidatedMessage, error)
}

// Deps are the collaborators shared by every handler of a block.
type Deps struct {
	Store          persistence.Store
	Snapshot       cache.Snapshot
	CanceledOrders cache.CanceledOrders
	Logger         zerolog.Logger
}

// Parallelization key prefixes. The subaccount order fill key is shared by
// every family that touches a subaccount's positions.
const (
	subaccountOrderFillKey = "SUBACCOUNT_ORDER_FILL"
	statefulOrderKey       = "STATEFUL_ORDER"
)

func subaccountKey(sub uuid.UUID) string {
	return subaccountOrderFillKey + "_" + sub.String()
}

func familyKey(family event.Family, parts ...string) string {
	key := family.String()
	for _, p := range parts {
		key += "_" + p
	}
	return key
}

func itoa(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}

// base carries the event being handled and its position in the chain.
type base struct {
	Deps
	ev     *event.ResolvedEvent
	txHash string
	logger zerolog.Logger
}

func newBase(name string, ev *event.ResolvedEvent, txHash string, deps Deps) base {
	return base{
		Deps:   deps,
		ev:     ev,
		txHash: txHash,
		logger: deps.Logger.With().
			Str("handler", name).
			Uint32("block_height", ev.BlockHeight).
			Int32("transaction_index", ev.TransactionIndex).
			Uint32("event_index", ev.Event.EventIndex).
			Logger(),
	}
}

func (b *base) header() message.Header {
	return message.Header{
		BlockHeight:      b.ev.BlockHeight,
		TransactionIndex: b.ev.TransactionIndex,
		EventIndex:       b.ev.Event.EventIndex,
	}
}

func (b *base) eventID() []byte {
	return state.EventID(b.ev.BlockHeight, b.ev.TransactionIndex, b.ev.Event.EventIndex)
}

// storeErr logs a storage failure under its operation name and returns it
// unchanged.
func (b *base) storeErr(op string, err error) error {
	b.logger.Error().Err(err).Str("operation", op).Msg("storage call failed")
	return err
}

func (b *base) marketByClobPair(clobPairID uint32) (cache.PerpetualMarket, error) {
	m, ok := b.Snapshot.PerpetualMarketByClobPairID(clobPairID)
	if !ok {
		b.logger.Error().Uint32("clob_pair_id", clobPairID).Msg("perpetual market not found")
		return m, fmt.Errorf("perpetual market for clob pair %d: %w", clobPairID, persistence.ErrNotFound)
	}
	return m, nil
}

func (b *base) marketByID(perpetualID uint32) (cache.PerpetualMarket, error) {
	m, ok := b.Snapshot.PerpetualMarketByID(perpetualID)
	if !ok {
		b.logger.Error().Uint32("perpetual_id", perpetualID).Msg("perpetual market not found")
		return m, fmt.Errorf("perpetual market %d: %w", perpetualID, persistence.ErrNotFound)
	}
	return m, nil
}

func (b *base) asset(id uint32) (cache.Asset, error) {
	if id == cache.QuoteAssetID {
		return b.Snapshot.QuoteAsset(), nil
	}
	a, ok := b.Snapshot.Asset(id)
	if !ok {
		b.logger.Error().Uint32("asset_id", id).Msg("asset not found")
		return a, fmt.Errorf("asset %d: %w", id, persistence.ErrNotFound)
	}
	return a, nil
}

// New builds the handlers for one validated event. An order fill yields one
// handler per liquidity role; every other family yields one.
func New(ev *event.ResolvedEvent, txHash string, deps Deps) ([]Handler, error) {
	switch p := ev.Decoded.Payload.(type) {
	case *event.OrderFillEventV1:
		if p.IsLiquidation() {
			return []Handler{
				NewLiquidationHandler(ev, txHash, deps, p, state.LiquidityMaker),
				NewLiquidationHandler(ev, txHash, deps, p, state.LiquidityTaker),
			}, nil
		}
		return []Handler{
			NewOrderHandler(ev, txHash, deps, p, state.LiquidityMaker),
			NewOrderHandler(ev, txHash, deps, p, state.LiquidityTaker),
		}, nil
	case *event.DeleveragingEventV1:
		h, err := NewDeleveragingHandler(ev, txHash, deps, p)
		if err != nil {
			return nil, err
		}
		return []Handler{h}, nil
	case *event.SubaccountUpdateEventV1:
		return []Handler{NewSubaccountUpdateHandler(ev, txHash, deps, p)}, nil
	case *event.LiquidityTierUpsertEventV1:
		return []Handler{NewLiquidityTierHandler(ev, txHash, deps, liquidityTierFromV1(p, deps.Snapshot))}, nil
	case *event.LiquidityTierUpsertEventV2:
		return []Handler{NewLiquidityTierHandler(ev, txHash, deps, liquidityTierFromV2(p, deps.Snapshot))}, nil
	case *event.TransferEventV1:
		return []Handler{NewTransferHandler(ev, txHash, deps, p)}, nil
	default:
		return nil, fmt.Errorf("no handler for payload %T", ev.Decoded.Payload)
	}
}
