// Package cache holds the read-mostly data handlers consult but never write:
// market metadata snapshots and the order cancellation feed.
package cache

import (
	"FillIndexer/internal/state"
	"sort"

	"github.com/shopspring/decimal"
)

// QuoteAssetID is the asset fees and prices are denominated in.
const QuoteAssetID uint32 = 0

// DefaultQuoteAsset is used when the snapshot has no row for the quote asset.
var DefaultQuoteAsset = Asset{ID: QuoteAssetID, Symbol: "USDC", AtomicResolution: -6}

// PerpetualMarket is the per-market configuration needed for unit conversion.
type PerpetualMarket struct {
	ID                        uint32
	ClobPairID                uint32
	Ticker                    string
	MarketID                  uint32
	AtomicResolution          int32
	QuantumConversionExponent int32
	SubticksPerTick           uint32
	StepBaseQuantums          uint64
	LiquidityTierID           uint32
}

type Asset struct {
	ID               uint32
	Symbol           string
	AtomicResolution int32
}

// Snapshot is a point-in-time, read-only view of market metadata.
type Snapshot interface {
	PerpetualMarketByClobPairID(clobPairID uint32) (PerpetualMarket, bool)
	PerpetualMarketByID(perpetualID uint32) (PerpetualMarket, bool)
	PerpetualMarkets() []PerpetualMarket
	Asset(id uint32) (Asset, bool)
	QuoteAsset() Asset
	OraclePrice(marketID uint32) (decimal.Decimal, bool)
	LiquidityTier(id uint32) (state.LiquidityTier, bool)
}

// MemorySnapshot is an immutable Snapshot built from loaded rows.
type MemorySnapshot struct {
	byClobPair map[uint32]PerpetualMarket
	byID       map[uint32]PerpetualMarket
	assets     map[uint32]Asset
	prices     map[uint32]decimal.Decimal
	tiers      map[uint32]state.LiquidityTier
}

func NewMemorySnapshot(
	markets []PerpetualMarket,
	assets []Asset,
	prices map[uint32]decimal.Decimal,
	tiers []state.LiquidityTier,
) *MemorySnapshot {
	s := &MemorySnapshot{
		byClobPair: make(map[uint32]PerpetualMarket, len(markets)),
		byID:       make(map[uint32]PerpetualMarket, len(markets)),
		assets:     make(map[uint32]Asset, len(assets)),
		prices:     make(map[uint32]decimal.Decimal, len(prices)),
		tiers:      make(map[uint32]state.LiquidityTier, len(tiers)),
	}
	for _, m := range markets {
		s.byClobPair[m.ClobPairID] = m
		s.byID[m.ID] = m
	}
	for _, a := range assets {
		s.assets[a.ID] = a
	}
	for id, p := range prices {
		s.prices[id] = p
	}
	for _, t := range tiers {
		s.tiers[t.ID] = t
	}
	return s
}

func (s *MemorySnapshot) PerpetualMarketByClobPairID(clobPairID uint32) (PerpetualMarket, bool) {
	m, ok := s.byClobPair[clobPairID]
	return m, ok
}

func (s *MemorySnapshot) PerpetualMarketByID(perpetualID uint32) (PerpetualMarket, bool) {
	m, ok := s.byID[perpetualID]
	return m, ok
}

// PerpetualMarkets returns every market ordered by perpetual id.
func (s *MemorySnapshot) PerpetualMarkets() []PerpetualMarket {
	out := make([]PerpetualMarket, 0, len(s.byID))
	for _, m := range s.byID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemorySnapshot) Asset(id uint32) (Asset, bool) {
	a, ok := s.assets[id]
	return a, ok
}

func (s *MemorySnapshot) QuoteAsset() Asset {
	if a, ok := s.assets[QuoteAssetID]; ok {
		return a
	}
	return DefaultQuoteAsset
}

func (s *MemorySnapshot) OraclePrice(marketID uint32) (decimal.Decimal, bool) {
	p, ok := s.prices[marketID]
	return p, ok
}

func (s *MemorySnapshot) LiquidityTier(id uint32) (state.LiquidityTier, bool) {
	t, ok := s.tiers[id]
	return t, ok
}

// Size returns the number of perpetual markets in the snapshot.
func (s *MemorySnapshot) Size() int {
	return len(s.byID)
}
