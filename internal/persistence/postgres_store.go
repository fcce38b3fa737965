package persistence

import (
	"FillIndexer/internal/state"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PostgresStore implements Store over database/sql with the lib/pq driver.
type PostgresStore struct{}

func NewPostgresStore() *PostgresStore {
	return &PostgresStore{}
}

const orderColumns = `id, subaccount_id, client_id, clob_pair_id, side, size, total_filled, price,
	type, status, time_in_force, reduce_only, order_flags, good_til_block, good_til_block_time,
	client_metadata, trigger_price, updated_at, updated_at_height`

func (s *PostgresStore) FindOrder(ctx context.Context, tx Tx, id uuid.UUID) (*state.Order, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	var o state.Order
	err := row.Scan(
		&o.ID, &o.SubaccountID, &o.ClientID, &o.ClobPairID, &o.Side, &o.Size, &o.TotalFilled, &o.Price,
		&o.Type, &o.Status, &o.TimeInForce, &o.ReduceOnly, &o.OrderFlags, &o.GoodTilBlock, &o.GoodTilBlockTime,
		&o.ClientMetadata, &o.TriggerPrice, &o.UpdatedAt, &o.UpdatedAtHeight,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find order %s: %w", id, err)
	}
	return &o, nil
}

func (s *PostgresStore) UpsertOrder(ctx context.Context, tx Tx, o *state.Order) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (id) DO UPDATE SET
			side = EXCLUDED.side,
			size = EXCLUDED.size,
			total_filled = EXCLUDED.total_filled,
			price = EXCLUDED.price,
			type = EXCLUDED.type,
			status = EXCLUDED.status,
			time_in_force = EXCLUDED.time_in_force,
			reduce_only = EXCLUDED.reduce_only,
			good_til_block = EXCLUDED.good_til_block,
			good_til_block_time = EXCLUDED.good_til_block_time,
			client_metadata = EXCLUDED.client_metadata,
			trigger_price = EXCLUDED.trigger_price,
			updated_at = EXCLUDED.updated_at,
			updated_at_height = EXCLUDED.updated_at_height`,
		o.ID, o.SubaccountID, o.ClientID, o.ClobPairID, o.Side, o.Size, o.TotalFilled, o.Price,
		o.Type, o.Status, o.TimeInForce, o.ReduceOnly, o.OrderFlags, o.GoodTilBlock, o.GoodTilBlockTime,
		o.ClientMetadata, o.TriggerPrice, o.UpdatedAt, o.UpdatedAtHeight,
	)
	if err != nil {
		return fmt.Errorf("upsert order %s: %w", o.ID, err)
	}
	return nil
}

// CreateFill inserts a fill. Replaying a block inserts nothing new.
func (s *PostgresStore) CreateFill(ctx context.Context, tx Tx, f *state.Fill) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO fills
		(id, subaccount_id, side, liquidity, type, clob_pair_id, order_id, size, price, quote_amount,
		 event_id, transaction_hash, created_at, created_at_height, client_metadata, fee)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO NOTHING`,
		f.ID, f.SubaccountID, f.Side, f.Liquidity, f.Type, f.ClobPairID, f.OrderID, f.Size, f.Price, f.QuoteAmount,
		f.EventID, f.TransactionHash, f.CreatedAt, f.CreatedAtHeight, f.ClientMetadata, f.Fee,
	)
	if err != nil {
		return fmt.Errorf("create fill %s: %w", f.ID, err)
	}
	return nil
}

const positionColumns = `id, subaccount_id, perpetual_id, side, status, size, max_size, entry_price,
	exit_price, sum_open, sum_close, total_realized_pnl, created_at, created_at_height, open_event_id,
	last_event_id, closed_at, closed_at_height, closed_event_id`

func (s *PostgresStore) FindPerpetualPositions(
	ctx context.Context,
	tx Tx,
	q state.PositionQuery,
) ([]*state.PerpetualPosition, error) {
	var (
		where []string
		args  []any
	)
	if q.SubaccountID != uuid.Nil {
		args = append(args, q.SubaccountID)
		where = append(where, fmt.Sprintf("subaccount_id = $%d", len(args)))
	}
	if q.PerpetualID != nil {
		args = append(args, *q.PerpetualID)
		where = append(where, fmt.Sprintf("perpetual_id = $%d", len(args)))
	}
	if q.Status != "" {
		args = append(args, q.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + positionColumns + ` FROM perpetual_positions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at_height DESC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find perpetual positions: %w", err)
	}
	defer rows.Close()

	var out []*state.PerpetualPosition
	for rows.Next() {
		var p state.PerpetualPosition
		if err := rows.Scan(
			&p.ID, &p.SubaccountID, &p.PerpetualID, &p.Side, &p.Status, &p.Size, &p.MaxSize, &p.EntryPrice,
			&p.ExitPrice, &p.SumOpen, &p.SumClose, &p.TotalRealizedPnl, &p.CreatedAt, &p.CreatedAtHeight, &p.OpenEventID,
			&p.LastEventID, &p.ClosedAt, &p.ClosedAtHeight, &p.ClosedEventID,
		); err != nil {
			return nil, fmt.Errorf("scan perpetual position: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreatePerpetualPosition(ctx context.Context, tx Tx, p *state.PerpetualPosition) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO perpetual_positions (`+positionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		p.ID, p.SubaccountID, p.PerpetualID, p.Side, p.Status, p.Size, p.MaxSize, p.EntryPrice,
		p.ExitPrice, p.SumOpen, p.SumClose, p.TotalRealizedPnl, p.CreatedAt, p.CreatedAtHeight, p.OpenEventID,
		p.LastEventID, p.ClosedAt, p.ClosedAtHeight, p.ClosedEventID,
	)
	if err != nil {
		return fmt.Errorf("create perpetual position %s: %w", p.ID, err)
	}
	return nil
}

func (s *PostgresStore) UpdatePerpetualPosition(ctx context.Context, tx Tx, p *state.PerpetualPosition) error {
	res, err := tx.ExecContext(ctx, `UPDATE perpetual_positions SET
			side = $2, status = $3, size = $4, max_size = $5, entry_price = $6, exit_price = $7,
			sum_open = $8, sum_close = $9, total_realized_pnl = $10, last_event_id = $11,
			closed_at = $12, closed_at_height = $13, closed_event_id = $14
		WHERE id = $1`,
		p.ID, p.Side, p.Status, p.Size, p.MaxSize, p.EntryPrice, p.ExitPrice,
		p.SumOpen, p.SumClose, p.TotalRealizedPnl, p.LastEventID,
		p.ClosedAt, p.ClosedAtHeight, p.ClosedEventID,
	)
	if err != nil {
		return fmt.Errorf("update perpetual position %s: %w", p.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update perpetual position %s: %w", p.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("perpetual position %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) UpsertAssetPosition(ctx context.Context, tx Tx, a *state.AssetPosition) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO asset_positions (id, subaccount_id, asset_id, size, is_long)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET size = EXCLUDED.size, is_long = EXCLUDED.is_long`,
		a.ID, a.SubaccountID, a.AssetID, a.Size, a.IsLong,
	)
	if err != nil {
		return fmt.Errorf("upsert asset position %s: %w", a.ID, err)
	}
	return nil
}

func (s *PostgresStore) UpsertLiquidityTier(ctx context.Context, tx Tx, t *state.LiquidityTier) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO liquidity_tiers
		(id, name, initial_margin_ppm, maintenance_fraction_ppm, base_position_notional,
		 open_interest_lower_cap, open_interest_upper_cap)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			initial_margin_ppm = EXCLUDED.initial_margin_ppm,
			maintenance_fraction_ppm = EXCLUDED.maintenance_fraction_ppm,
			base_position_notional = EXCLUDED.base_position_notional,
			open_interest_lower_cap = EXCLUDED.open_interest_lower_cap,
			open_interest_upper_cap = EXCLUDED.open_interest_upper_cap`,
		t.ID, t.Name, t.InitialMarginPpm, t.MaintenanceFractionPpm, t.BasePositionNotional,
		t.OpenInterestLowerCap, t.OpenInterestUpperCap,
	)
	if err != nil {
		return fmt.Errorf("upsert liquidity tier %d: %w", t.ID, err)
	}
	return nil
}

// CreateTransfer inserts a transfer. Replaying a block inserts nothing new.
func (s *PostgresStore) CreateTransfer(ctx context.Context, tx Tx, t *state.Transfer) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO transfers
		(id, sender_subaccount_id, recipient_subaccount_id, sender_wallet_address, recipient_wallet_address,
		 asset_id, size, event_id, transaction_hash, created_at, created_at_height)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`,
		t.ID, t.SenderSubaccountID, t.RecipientSubaccountID, t.SenderWalletAddress, t.RecipientWalletAddress,
		t.AssetID, t.Size, t.EventID, t.TransactionHash, t.CreatedAt, t.CreatedAtHeight,
	)
	if err != nil {
		return fmt.Errorf("create transfer %s: %w", t.ID, err)
	}
	return nil
}

const candleColumns = `id, started_at, ticker, resolution, low, high, open, close,
	base_token_volume, usd_volume, trades, starting_open_interest`

func (s *PostgresStore) FindLatestCandles(ctx context.Context, tx Tx) ([]*state.Candle, error) {
	rows, err := tx.QueryContext(ctx, `SELECT DISTINCT ON (ticker, resolution) `+candleColumns+`
		FROM candles ORDER BY ticker, resolution, started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("find latest candles: %w", err)
	}
	defer rows.Close()

	var out []*state.Candle
	for rows.Next() {
		var c state.Candle
		if err := rows.Scan(
			&c.ID, &c.StartedAt, &c.Ticker, &c.Resolution, &c.Low, &c.High, &c.Open, &c.Close,
			&c.BaseTokenVolume, &c.UsdVolume, &c.Trades, &c.StartingOpenInterest,
		); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateCandle(ctx context.Context, tx Tx, c *state.Candle) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO candles (`+candleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, c.StartedAt, c.Ticker, c.Resolution, c.Low, c.High, c.Open, c.Close,
		c.BaseTokenVolume, c.UsdVolume, c.Trades, c.StartingOpenInterest,
	)
	if err != nil {
		return fmt.Errorf("create candle %s: %w", c.ID, err)
	}
	return nil
}

func (s *PostgresStore) UpdateCandle(ctx context.Context, tx Tx, c *state.Candle) error {
	res, err := tx.ExecContext(ctx, `UPDATE candles SET
			low = $2, high = $3, open = $4, close = $5,
			base_token_volume = $6, usd_volume = $7, trades = $8
		WHERE id = $1`,
		c.ID, c.Low, c.High, c.Open, c.Close, c.BaseTokenVolume, c.UsdVolume, c.Trades,
	)
	if err != nil {
		return fmt.Errorf("update candle %s: %w", c.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update candle %s: %w", c.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("candle %s: %w", c.ID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) OpenInterestLong(ctx context.Context, tx Tx) (map[uint32]decimal.Decimal, error) {
	rows, err := tx.QueryContext(ctx, `SELECT perpetual_id, SUM(size) FROM perpetual_positions
		WHERE status = $1 AND side = $2 GROUP BY perpetual_id`,
		state.PositionStatusOpen, state.PositionSideLong,
	)
	if err != nil {
		return nil, fmt.Errorf("open interest: %w", err)
	}
	defer rows.Close()

	out := make(map[uint32]decimal.Decimal)
	for rows.Next() {
		var (
			id   uint32
			size decimal.Decimal
		)
		if err := rows.Scan(&id, &size); err != nil {
			return nil, fmt.Errorf("scan open interest: %w", err)
		}
		out[id] = size
	}
	return out, rows.Err()
}
