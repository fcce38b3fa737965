package handler

import (
	"FillIndexer/internal/cache"
	"FillIndexer/internal/event"
	fpmath "FillIndexer/internal/math"
	"FillIndexer/internal/message"
	"FillIndexer/internal/persistence"
	"FillIndexer/internal/state"
	"context"

	"github.com/shopspring/decimal"
)

var ppm = decimal.NewFromInt(1_000_000)

// LiquidityTierHandler upserts a tier and announces it together with the
// margin fractions of every market that uses it.
type LiquidityTierHandler struct {
	base
	tier state.LiquidityTier
}

func NewLiquidityTierHandler(ev *event.ResolvedEvent, txHash string, deps Deps, tier state.LiquidityTier) *LiquidityTierHandler {
	return &LiquidityTierHandler{base: newBase("LiquidityTierHandler", ev, txHash, deps), tier: tier}
}

func liquidityTierFromV1(e *event.LiquidityTierUpsertEventV1, snap cache.Snapshot) state.LiquidityTier {
	quote := snap.QuoteAsset()
	return state.LiquidityTier{
		ID:                     e.ID,
		Name:                   e.Name,
		InitialMarginPpm:       e.InitialMarginPpm,
		MaintenanceFractionPpm: e.MaintenanceFractionPpm,
		BasePositionNotional:   fpmath.QuantumsToHuman(e.BasePositionNotional, quote.AtomicResolution),
	}
}

func liquidityTierFromV2(e *event.LiquidityTierUpsertEventV2, snap cache.Snapshot) state.LiquidityTier {
	quote := snap.QuoteAsset()
	lower := fpmath.QuantumsToHuman(e.OpenInterestLowerCap, quote.AtomicResolution)
	upper := fpmath.QuantumsToHuman(e.OpenInterestUpperCap, quote.AtomicResolution)
	return state.LiquidityTier{
		ID:                     e.ID,
		Name:                   e.Name,
		InitialMarginPpm:       e.InitialMarginPpm,
		MaintenanceFractionPpm: e.MaintenanceFractionPpm,
		BasePositionNotional:   decimal.Zero,
		OpenInterestLowerCap:   &lower,
		OpenInterestUpperCap:   &upper,
	}
}

func (h *LiquidityTierHandler) Name() string {
	return "LiquidityTierHandler"
}

func (h *LiquidityTierHandler) ParallelizationKeys() []string {
	return []string{familyKey(event.FamilyLiquidityTier, itoa(h.tier.ID))}
}

func (h *LiquidityTierHandler) Handle(ctx context.Context, tx persistence.Tx) ([]message.ConsolidatedMessage, error) {
	if err := h.Store.UpsertLiquidityTier(ctx, tx, &h.tier); err != nil {
		return nil, h.storeErr("UpsertLiquidityTier", err)
	}

	contents := message.MarketContents{
		LiquidityTiers: map[string]message.LiquidityTierContent{
			itoa(h.tier.ID): message.NewLiquidityTierContent(&h.tier),
		},
	}

	initial := decimal.NewFromInt(int64(h.tier.InitialMarginPpm)).Div(ppm)
	maintenance := initial.Mul(decimal.NewFromInt(int64(h.tier.MaintenanceFractionPpm))).Div(ppm)
	for _, m := range h.Snapshot.PerpetualMarkets() {
		if m.LiquidityTierID != h.tier.ID {
			continue
		}
		if contents.PerpetualMarkets == nil {
			contents.PerpetualMarkets = make(map[string]message.PerpetualMarketContent)
		}
		contents.PerpetualMarkets[itoa(m.ID)] = message.PerpetualMarketContent{
			ID:                        itoa(m.ID),
			ClobPairID:                itoa(m.ClobPairID),
			Ticker:                    m.Ticker,
			LiquidityTierID:           h.tier.ID,
			InitialMarginFraction:     initial,
			MaintenanceMarginFraction: maintenance,
			OpenInterestLowerCap:      h.tier.OpenInterestLowerCap,
			OpenInterestUpperCap:      h.tier.OpenInterestUpperCap,
		}
	}

	msg, err := message.NewMarketMessage(contents)
	if err != nil {
		return nil, err
	}
	return []message.ConsolidatedMessage{msg}, nil
}
