package cache

import (
	"FillIndexer/internal/state"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CanceledOrders reports whether the cancellation feed has seen an order
// canceled, and how.
type CanceledOrders interface {
	CancelMark(ctx context.Context, orderID uuid.UUID) (state.CancelMark, error)
}

// Key schema (sorted sets, member = order uuid, score = unix millis):
//
//	v4/canceled_orders
//	v4/best_effort_canceled_orders
const (
	canceledOrdersKey           = "v4/canceled_orders"
	bestEffortCanceledOrdersKey = "v4/best_effort_canceled_orders"
)

// RedisCanceledOrders reads the cancellation sets written by the order-book
// service.
type RedisCanceledOrders struct {
	rdb redis.UniversalClient
}

func NewRedisCanceledOrders(rdb redis.UniversalClient) *RedisCanceledOrders {
	return &RedisCanceledOrders{rdb: rdb}
}

func (c *RedisCanceledOrders) CancelMark(ctx context.Context, orderID uuid.UUID) (state.CancelMark, error) {
	member := orderID.String()

	pipe := c.rdb.Pipeline()
	canceled := pipe.ZScore(ctx, canceledOrdersKey, member)
	bestEffort := pipe.ZScore(ctx, bestEffortCanceledOrdersKey, member)
	// Exec reports only the first failed command, so each one is checked.
	_, _ = pipe.Exec(ctx)

	found := func(cmd *redis.FloatCmd) (bool, error) {
		switch err := cmd.Err(); {
		case err == nil:
			return true, nil
		case errors.Is(err, redis.Nil):
			return false, nil
		default:
			return false, fmt.Errorf("redis: canceled order %s: %w", member, err)
		}
	}

	isCanceled, err := found(canceled)
	if err != nil {
		return state.CancelMarkNone, err
	}
	isBestEffort, err := found(bestEffort)
	if err != nil {
		return state.CancelMarkNone, err
	}

	switch {
	case isCanceled:
		return state.CancelMarkCanceled, nil
	case isBestEffort:
		return state.CancelMarkBestEffort, nil
	default:
		return state.CancelMarkNone, nil
	}
}

// Add records a cancellation. A mark replaces the order's previous one.
func (c *RedisCanceledOrders) Add(ctx context.Context, orderID uuid.UUID, mark state.CancelMark, at time.Time) error {
	member := orderID.String()
	score := float64(at.UnixMilli())

	pipe := c.rdb.TxPipeline()
	switch mark {
	case state.CancelMarkCanceled:
		pipe.ZRem(ctx, bestEffortCanceledOrdersKey, member)
		pipe.ZAdd(ctx, canceledOrdersKey, redis.Z{Score: score, Member: member})
	case state.CancelMarkBestEffort:
		pipe.ZRem(ctx, canceledOrdersKey, member)
		pipe.ZAdd(ctx, bestEffortCanceledOrdersKey, redis.Z{Score: score, Member: member})
	default:
		pipe.ZRem(ctx, canceledOrdersKey, member)
		pipe.ZRem(ctx, bestEffortCanceledOrdersKey, member)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: add canceled order %s: %w", member, err)
	}
	return nil
}

// Prune drops cancellations recorded before cutoff.
func (c *RedisCanceledOrders) Prune(ctx context.Context, cutoff time.Time) error {
	upper := fmt.Sprintf("(%d", cutoff.UnixMilli())

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, canceledOrdersKey, "-inf", upper)
	pipe.ZRemRangeByScore(ctx, bestEffortCanceledOrdersKey, "-inf", upper)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: prune canceled orders: %w", err)
	}
	return nil
}

// RunPruner drops cancellations older than retention on every tick until ctx
// is done. A failed prune is retried on the next tick.
func (c *RedisCanceledOrders) RunPruner(ctx context.Context, retention, interval time.Duration, logger zerolog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := c.Prune(ctx, now.Add(-retention)); err != nil {
				logger.Warn().Err(err).Msg("canceled order prune failed")
				continue
			}
			logger.Debug().Dur("retention", retention).Msg("canceled orders pruned")
		}
	}
}

// NoCancellations is a CanceledOrders that never reports a cancellation.
type NoCancellations struct{}

func (NoCancellations) CancelMark(context.Context, uuid.UUID) (state.CancelMark, error) {
	return state.CancelMarkNone, nil
}
