package persistence

import (
	"FillIndexer/internal/state"
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by lookups that expected a row and found none.
var ErrNotFound = errors.New("not found")

// Tx is the transaction handle every storage call runs on. *sql.Tx
// satisfies it. Store methods never commit or roll it back.
type Tx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the typed storage surface consumed by handlers.
type Store interface {
	FindOrder(ctx context.Context, tx Tx, id uuid.UUID) (*state.Order, error)
	UpsertOrder(ctx context.Context, tx Tx, o *state.Order) error

	CreateFill(ctx context.Context, tx Tx, f *state.Fill) error

	FindPerpetualPositions(ctx context.Context, tx Tx, q state.PositionQuery) ([]*state.PerpetualPosition, error)
	CreatePerpetualPosition(ctx context.Context, tx Tx, p *state.PerpetualPosition) error
	UpdatePerpetualPosition(ctx context.Context, tx Tx, p *state.PerpetualPosition) error

	UpsertAssetPosition(ctx context.Context, tx Tx, a *state.AssetPosition) error
	UpsertLiquidityTier(ctx context.Context, tx Tx, t *state.LiquidityTier) error

	CreateTransfer(ctx context.Context, tx Tx, t *state.Transfer) error

	// FindLatestCandles returns the most recent candle of every ticker and
	// resolution that has one.
	FindLatestCandles(ctx context.Context, tx Tx) ([]*state.Candle, error)
	CreateCandle(ctx context.Context, tx Tx, c *state.Candle) error
	UpdateCandle(ctx context.Context, tx Tx, c *state.Candle) error

	// OpenInterestLong sums the size of open long positions per perpetual.
	OpenInterestLong(ctx context.Context, tx Tx) (map[uint32]decimal.Decimal, error)
}
