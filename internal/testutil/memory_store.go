package testutil

import (
	"FillIndexer/internal/persistence"
	"FillIndexer/internal/state"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-memory persistence.Store. The tx argument is ignored.
// Rows are copied on the way in and out so callers cannot alias stored state.
type MemoryStore struct {
	mu             sync.Mutex
	Orders         map[uuid.UUID]state.Order
	Fills          map[uuid.UUID]state.Fill
	Positions      map[uuid.UUID]state.PerpetualPosition
	AssetPositions map[uuid.UUID]state.AssetPosition
	LiquidityTiers map[uint32]state.LiquidityTier
	Transfers      map[uuid.UUID]state.Transfer
	Candles        map[uuid.UUID]state.Candle

	// Calls counts mutating calls, for asserting that nothing was written.
	Calls int
}

var _ persistence.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Orders:         make(map[uuid.UUID]state.Order),
		Fills:          make(map[uuid.UUID]state.Fill),
		Positions:      make(map[uuid.UUID]state.PerpetualPosition),
		AssetPositions: make(map[uuid.UUID]state.AssetPosition),
		LiquidityTiers: make(map[uint32]state.LiquidityTier),
		Transfers:      make(map[uuid.UUID]state.Transfer),
		Candles:        make(map[uuid.UUID]state.Candle),
	}
}

func (m *MemoryStore) FindOrder(_ context.Context, _ persistence.Tx, id uuid.UUID) (*state.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.Orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, persistence.ErrNotFound)
	}
	return &o, nil
}

func (m *MemoryStore) UpsertOrder(_ context.Context, _ persistence.Tx, o *state.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.Orders[o.ID] = *o
	return nil
}

func (m *MemoryStore) CreateFill(_ context.Context, _ persistence.Tx, f *state.Fill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if _, ok := m.Fills[f.ID]; !ok {
		m.Fills[f.ID] = *f
	}
	return nil
}

func (m *MemoryStore) FindPerpetualPositions(
	_ context.Context,
	_ persistence.Tx,
	q state.PositionQuery,
) ([]*state.PerpetualPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*state.PerpetualPosition
	for _, p := range m.Positions {
		if q.SubaccountID != uuid.Nil && p.SubaccountID != q.SubaccountID {
			continue
		}
		if q.PerpetualID != nil && p.PerpetualID != *q.PerpetualID {
			continue
		}
		if q.Status != "" && p.Status != q.Status {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAtHeight > out[j].CreatedAtHeight })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemoryStore) CreatePerpetualPosition(_ context.Context, _ persistence.Tx, p *state.PerpetualPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if _, ok := m.Positions[p.ID]; ok {
		return fmt.Errorf("perpetual position %s already exists", p.ID)
	}
	m.Positions[p.ID] = *p
	return nil
}

func (m *MemoryStore) UpdatePerpetualPosition(_ context.Context, _ persistence.Tx, p *state.PerpetualPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if _, ok := m.Positions[p.ID]; !ok {
		return fmt.Errorf("perpetual position %s: %w", p.ID, persistence.ErrNotFound)
	}
	m.Positions[p.ID] = *p
	return nil
}

func (m *MemoryStore) UpsertAssetPosition(_ context.Context, _ persistence.Tx, a *state.AssetPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.AssetPositions[a.ID] = *a
	return nil
}

func (m *MemoryStore) UpsertLiquidityTier(_ context.Context, _ persistence.Tx, t *state.LiquidityTier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.LiquidityTiers[t.ID] = *t
	return nil
}

func (m *MemoryStore) CreateTransfer(_ context.Context, _ persistence.Tx, t *state.Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if _, ok := m.Transfers[t.ID]; !ok {
		m.Transfers[t.ID] = *t
	}
	return nil
}

func (m *MemoryStore) FindLatestCandles(_ context.Context, _ persistence.Tx) ([]*state.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	type key struct {
		ticker     string
		resolution state.CandleResolution
	}
	latest := make(map[key]state.Candle)
	for _, c := range m.Candles {
		k := key{c.Ticker, c.Resolution}
		if cur, ok := latest[k]; !ok || c.StartedAt.After(cur.StartedAt) {
			latest[k] = c
		}
	}

	out := make([]*state.Candle, 0, len(latest))
	for _, c := range latest {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ticker != out[j].Ticker {
			return out[i].Ticker < out[j].Ticker
		}
		return out[i].Resolution < out[j].Resolution
	})
	return out, nil
}

func (m *MemoryStore) CreateCandle(_ context.Context, _ persistence.Tx, c *state.Candle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if _, ok := m.Candles[c.ID]; ok {
		return fmt.Errorf("candle %s already exists", c.ID)
	}
	m.Candles[c.ID] = *c
	return nil
}

func (m *MemoryStore) UpdateCandle(_ context.Context, _ persistence.Tx, c *state.Candle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if _, ok := m.Candles[c.ID]; !ok {
		return fmt.Errorf("candle %s: %w", c.ID, persistence.ErrNotFound)
	}
	m.Candles[c.ID] = *c
	return nil
}

func (m *MemoryStore) OpenInterestLong(_ context.Context, _ persistence.Tx) (map[uint32]decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uint32]decimal.Decimal)
	for _, p := range m.Positions {
		if p.Status == state.PositionStatusOpen && p.Side == state.PositionSideLong {
			out[p.PerpetualID] = out[p.PerpetualID].Add(p.Size)
		}
	}
	return out, nil
}

// OpenPosition returns the open position of a subaccount in a market, if any.
func (m *MemoryStore) OpenPosition(subaccountID uuid.UUID, perpetualID uint32) (state.PerpetualPosition, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.Positions {
		if p.SubaccountID == subaccountID && p.PerpetualID == perpetualID && p.Status == state.PositionStatusOpen {
			return p, true
		}
	}
	return state.PerpetualPosition{}, false
}
