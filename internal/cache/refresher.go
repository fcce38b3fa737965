package cache

import (
	"FillIndexer/internal/observability"
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Loader builds a fresh snapshot from the source of truth.
type Loader interface {
	LoadSnapshot(ctx context.Context) (*MemorySnapshot, error)
}

// Refresher keeps the latest snapshot and swaps it atomically on refresh.
// Readers holding an older snapshot keep a consistent view.
type Refresher struct {
	loader   Loader
	interval time.Duration
	current  atomic.Pointer[MemorySnapshot]
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

func NewRefresher(loader Loader, interval time.Duration, logger zerolog.Logger) *Refresher {
	r := &Refresher{loader: loader, interval: interval, logger: logger}
	r.current.Store(NewMemorySnapshot(nil, nil, nil, nil))
	return r
}

// Instrument counts refresh outcomes on m.
func (r *Refresher) Instrument(m *observability.Metrics) {
	r.metrics = m
}

// Current returns the latest loaded snapshot.
func (r *Refresher) Current() Snapshot {
	return r.current.Load()
}

// Refresh loads a new snapshot. On failure the previous one stays in place.
func (r *Refresher) Refresh(ctx context.Context) error {
	snap, err := r.loader.LoadSnapshot(ctx)
	if err != nil {
		r.count("failed")
		return fmt.Errorf("load snapshot: %w", err)
	}
	r.current.Store(snap)
	r.count("ok")
	r.logger.Debug().Int("perpetual_markets", snap.Size()).Msg("snapshot refreshed")
	return nil
}

// Run refreshes on every tick until ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.logger.Warn().Err(err).Msg("snapshot refresh failed, keeping previous")
			}
		}
	}
}

func (r *Refresher) count(outcome string) {
	if r.metrics != nil {
		r.metrics.SnapshotRefreshes.WithLabelValues(outcome).Inc()
	}
}
