package testutil

import (
	"FillIndexer/internal/cache"
	"FillIndexer/internal/event"
	"FillIndexer/internal/state"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Default market: perpetual 0 on clob pair 0. With atomic resolution -10,
// quantum conversion exponent -9 and USDC at -6, 1e10 quantums is one
// contract and 1e5 subticks is one dollar.
var DefaultMarket = cache.PerpetualMarket{
	ID:                        0,
	ClobPairID:                0,
	Ticker:                    "BTC-USD",
	MarketID:                  0,
	AtomicResolution:          -10,
	QuantumConversionExponent: -9,
	SubticksPerTick:           100,
	StepBaseQuantums:          10,
	LiquidityTierID:           0,
}

var DefaultTier = state.LiquidityTier{
	ID:                     0,
	Name:                   "Large-Cap",
	InitialMarginPpm:       50_000,
	MaintenanceFractionPpm: 600_000,
	BasePositionNotional:   decimal.NewFromInt(1_000_000),
}

var (
	MakerSubaccount = event.SubaccountID{Owner: "dydx1maker", Number: 0}
	TakerSubaccount = event.SubaccountID{Owner: "dydx1taker", Number: 0}
)

var BlockTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// DefaultSnapshot holds DefaultMarket, the quote asset, DefaultTier and an
// oracle price of 100 for market 0.
func DefaultSnapshot() *cache.MemorySnapshot {
	return cache.NewMemorySnapshot(
		[]cache.PerpetualMarket{DefaultMarket},
		[]cache.Asset{cache.DefaultQuoteAsset},
		map[uint32]decimal.Decimal{DefaultMarket.MarketID: decimal.NewFromInt(100)},
		[]state.LiquidityTier{DefaultTier},
	)
}

// Quantums converts a human size in DefaultMarket to quantums.
func Quantums(size string) uint64 {
	return uint64(decimal.RequireFromString(size).Shift(-DefaultMarket.AtomicResolution).IntPart())
}

// Subticks converts a human price in DefaultMarket to subticks.
func Subticks(price string) uint64 {
	exp := DefaultMarket.QuantumConversionExponent - DefaultMarket.AtomicResolution + cache.DefaultQuoteAsset.AtomicResolution
	return uint64(decimal.RequireFromString(price).Shift(-exp).IntPart())
}

// Order builds a GTB order on DefaultMarket's clob pair.
func Order(sub event.SubaccountID, clientID uint32, side event.OrderSide, size, price string) *event.Order {
	gtb := uint32(100)
	s := sub
	return &event.Order{
		OrderID: &event.OrderID{
			SubaccountID: &s,
			ClientID:     clientID,
			OrderFlags:   event.OrderFlagShortTerm,
			ClobPairID:   DefaultMarket.ClobPairID,
		},
		Side:         side,
		Quantums:     Quantums(size),
		Subticks:     Subticks(price),
		GoodTilBlock: &gtb,
	}
}

// ResolvedEvent wraps a payload as if it were decoded at (height, txIndex, eventIndex).
func ResolvedEvent(family event.Family, payload any, height uint32, txIndex int32, eventIndex uint32) *event.ResolvedEvent {
	return &event.ResolvedEvent{
		Event:            event.BlockEvent{EventIndex: eventIndex},
		Decoded:          event.Decoded{Family: family, Version: 1, Payload: payload},
		TransactionIndex: txIndex,
		BlockHeight:      height,
		BlockTime:        BlockTime,
	}
}

// SeedPosition stores an open position for sub in DefaultMarket.
func SeedPosition(
	store *MemoryStore,
	sub event.SubaccountID,
	side state.PositionSide,
	size, entry, sumOpen string,
	height uint32,
) state.PerpetualPosition {
	subID := state.SubaccountUUID(sub.Owner, sub.Number)
	openEvent := state.EventID(height, 0, 0)
	p := state.PerpetualPosition{
		ID:               state.PerpetualPositionUUID(subID, DefaultMarket.ID, openEvent),
		SubaccountID:     subID,
		PerpetualID:      DefaultMarket.ID,
		Side:             side,
		Status:           state.PositionStatusOpen,
		Size:             decimal.RequireFromString(size),
		MaxSize:          decimal.RequireFromString(size).Abs(),
		EntryPrice:       decimal.RequireFromString(entry),
		SumOpen:          decimal.RequireFromString(sumOpen),
		SumClose:         decimal.Zero,
		TotalRealizedPnl: decimal.Zero,
		CreatedAt:        BlockTime,
		CreatedAtHeight:  height,
		OpenEventID:      openEvent,
		LastEventID:      openEvent,
	}
	store.Positions[p.ID] = p
	return p
}

// SubaccountUUID is a shorthand for state.SubaccountUUID.
func SubaccountUUID(sub event.SubaccountID) uuid.UUID {
	return state.SubaccountUUID(sub.Owner, sub.Number)
}
