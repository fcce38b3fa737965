package persistence

import (
	"FillIndexer/internal/cache"
	"FillIndexer/internal/state"
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// SnapshotLoader reads market metadata into an immutable cache snapshot.
type SnapshotLoader struct {
	db *sql.DB
}

func NewSnapshotLoader(db *sql.DB) *SnapshotLoader {
	return &SnapshotLoader{db: db}
}

// LoadSnapshot reads every table the snapshot covers inside one read-only
// transaction, so the result is consistent.
func (l *SnapshotLoader) LoadSnapshot(ctx context.Context) (*cache.MemorySnapshot, error) {
	tx, err := l.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	markets, err := loadPerpetualMarkets(ctx, tx)
	if err != nil {
		return nil, err
	}
	assets, err := loadAssets(ctx, tx)
	if err != nil {
		return nil, err
	}
	prices, err := loadOraclePrices(ctx, tx)
	if err != nil {
		return nil, err
	}
	tiers, err := loadLiquidityTiers(ctx, tx)
	if err != nil {
		return nil, err
	}

	return cache.NewMemorySnapshot(markets, assets, prices, tiers), nil
}

func loadPerpetualMarkets(ctx context.Context, tx Tx) ([]cache.PerpetualMarket, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, clob_pair_id, ticker, market_id, atomic_resolution, quantum_conversion_exponent,
		       subticks_per_tick, step_base_quantums, liquidity_tier_id
		FROM perpetual_markets
	`)
	if err != nil {
		return nil, fmt.Errorf("query perpetual markets: %w", err)
	}
	defer rows.Close()

	var out []cache.PerpetualMarket
	for rows.Next() {
		var m cache.PerpetualMarket
		if err := rows.Scan(
			&m.ID, &m.ClobPairID, &m.Ticker, &m.MarketID, &m.AtomicResolution, &m.QuantumConversionExponent,
			&m.SubticksPerTick, &m.StepBaseQuantums, &m.LiquidityTierID,
		); err != nil {
			return nil, fmt.Errorf("scan perpetual market: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func loadAssets(ctx context.Context, tx Tx) ([]cache.Asset, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, symbol, atomic_resolution FROM assets`)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	var out []cache.Asset
	for rows.Next() {
		var a cache.Asset
		if err := rows.Scan(&a.ID, &a.Symbol, &a.AtomicResolution); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func loadOraclePrices(ctx context.Context, tx Tx) (map[uint32]decimal.Decimal, error) {
	rows, err := tx.QueryContext(ctx, `SELECT market_id, price FROM oracle_prices`)
	if err != nil {
		return nil, fmt.Errorf("query oracle prices: %w", err)
	}
	defer rows.Close()

	out := make(map[uint32]decimal.Decimal)
	for rows.Next() {
		var (
			id    uint32
			price decimal.Decimal
		)
		if err := rows.Scan(&id, &price); err != nil {
			return nil, fmt.Errorf("scan oracle price: %w", err)
		}
		out[id] = price
	}
	return out, rows.Err()
}

func loadLiquidityTiers(ctx context.Context, tx Tx) ([]state.LiquidityTier, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, initial_margin_ppm, maintenance_fraction_ppm, base_position_notional,
		       open_interest_lower_cap, open_interest_upper_cap
		FROM liquidity_tiers
	`)
	if err != nil {
		return nil, fmt.Errorf("query liquidity tiers: %w", err)
	}
	defer rows.Close()

	var out []state.LiquidityTier
	for rows.Next() {
		var t state.LiquidityTier
		if err := rows.Scan(
			&t.ID, &t.Name, &t.InitialMarginPpm, &t.MaintenanceFractionPpm, &t.BasePositionNotional,
			&t.OpenInterestLowerCap, &t.OpenInterestUpperCap,
		); err != nil {
			return nil, fmt.Errorf("scan liquidity tier: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
