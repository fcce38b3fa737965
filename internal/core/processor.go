// Package core applies decoded blocks: one transaction per block, messages
// published only after commit.
package core

import (
	"FillIndexer/internal/cache"
	"FillIndexer/internal/event"
	"FillIndexer/internal/handler"
	"FillIndexer/internal/ingestion"
	"FillIndexer/internal/message"
	"FillIndexer/internal/observability"
	"FillIndexer/internal/persistence"
	"FillIndexer/internal/validator"
	"FillIndexer/internal/wire"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrPublish wraps a bus failure for a block that is already committed.
var ErrPublish = errors.New("publish committed block")

// BlockRecorder persists the processed-block log and its output hash.
type BlockRecorder interface {
	LastProcessed(ctx context.Context) (persistence.ProcessedBlock, bool, error)
	RecordBlock(ctx context.Context, tx persistence.Tx, b persistence.ProcessedBlock) error
}

// SnapshotSource hands out the current market snapshot.
type SnapshotSource interface {
	Current() cache.Snapshot
}

// ProcessorDeps are the processor's collaborators. Metrics may be nil.
type ProcessorDeps struct {
	Store          persistence.Store
	Transactor     persistence.Transactor
	Blocks         BlockRecorder
	Snapshots      SnapshotSource
	CanceledOrders cache.CanceledOrders
	Publisher      message.Publisher
	Metrics        *observability.Metrics
	Logger         zerolog.Logger
}

// Status is a point-in-time view of the processor for the admin API.
type Status struct {
	LastHeight      uint32    `json:"lastHeight"`
	NextHeight      uint32    `json:"nextHeight,omitempty"`
	LastBlockTime   time.Time `json:"lastBlockTime"`
	OutputHash      string    `json:"outputHash"`
	BlocksProcessed uint64    `json:"blocksProcessed"`
	EventsSkipped   uint64    `json:"eventsSkipped"`
	Started         bool      `json:"started"`
}

// Processor is the single consumer of the block channel.
type Processor struct {
	deps       ProcessorDeps
	dispatcher *ingestion.Dispatcher
	sequence   *SequenceValidator
	hasher     *OutputHasher
	logger     zerolog.Logger

	mu     sync.RWMutex
	status Status
}

func NewProcessor(deps ProcessorDeps) *Processor {
	return &Processor{
		deps:       deps,
		dispatcher: ingestion.NewDispatcher(deps.Logger),
		sequence:   NewSequenceValidator(),
		hasher:     NewOutputHasher(),
		logger:     deps.Logger,
	}
}

// Recover resumes the height sequence and the output hash chain from the
// block log.
func (p *Processor) Recover(ctx context.Context) error {
	last, ok, err := p.deps.Blocks.LastProcessed(ctx)
	if err != nil {
		return fmt.Errorf("recover: %w", err)
	}
	if !ok {
		p.logger.Info().Msg("no processed blocks, starting at first delivered height")
		return nil
	}
	hasher, err := ResumeOutputHasher(last.OutputHash)
	if err != nil {
		return fmt.Errorf("recover block %d: %w", last.Height, err)
	}
	p.hasher = hasher
	p.sequence.Start(last.Height)
	next, _ := p.sequence.Expected()
	tip := p.hasher.Tip()

	p.mu.Lock()
	p.status.LastHeight = last.Height
	p.status.NextHeight = next
	p.status.LastBlockTime = last.BlockTime
	p.status.OutputHash = hex.EncodeToString(tip[:])
	p.status.Started = true
	p.mu.Unlock()

	if m := p.deps.Metrics; m != nil {
		m.LastProcessedHeight.Set(float64(last.Height))
	}
	p.logger.Info().
		Uint32("last_height", last.Height).
		Uint32("next_height", next).
		Str("output_hash", hex.EncodeToString(tip[:])).
		Msg("recovered block sequence")
	return nil
}

// Status returns a copy of the current status.
func (p *Processor) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Run applies blocks from the channel until ctx is done or it is closed.
func (p *Processor) Run(ctx context.Context, blocks <-chan ingestion.RawBlock) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-blocks:
			if !ok {
				return nil
			}
			p.HandleRaw(ctx, raw)
		}
	}
}

// HandleRaw decodes and applies one delivered block, then acks or naks it.
// A block whose writes committed is acked even if publishing failed:
// redelivery would be skipped as a duplicate.
func (p *Processor) HandleRaw(ctx context.Context, raw ingestion.RawBlock) {
	blk, err := wire.DecodeBlock(raw.Data)
	if err != nil {
		p.logger.Error().Err(err).Str("subject", raw.Subject).Int("data_len", len(raw.Data)).Msg("undecodable block")
		raw.Nak()
		return
	}

	err = p.ProcessBlock(ctx, blk)
	switch {
	case err == nil:
		raw.Ack()
	case errors.Is(err, ErrPublish):
		p.logger.Error().Err(err).Uint32("height", blk.Height).Msg("block committed but not published")
		raw.Ack()
	default:
		p.logger.Error().Err(err).Uint32("height", blk.Height).Msg("block failed")
		raw.Nak()
	}
}

// ProcessBlock validates every event of blk, applies all handlers in event
// order inside one transaction and publishes their messages after commit.
// Redelivered heights are skipped and return nil.
func (p *Processor) ProcessBlock(ctx context.Context, blk *event.Block) error {
	start := time.Now()
	m := p.deps.Metrics

	duplicate, err := p.sequence.Check(blk.Height)
	if err != nil {
		if m != nil {
			m.SequenceGaps.Inc()
		}
		return err
	}
	if duplicate {
		next, _ := p.sequence.Expected()
		p.logger.Debug().Uint32("height", blk.Height).Uint32("next_height", next).Msg("block already processed, skipping")
		if m != nil {
			m.DuplicateBlocks.Inc()
			m.BlocksProcessed.WithLabelValues("duplicate").Inc()
		}
		return nil
	}

	deps := handler.Deps{
		Store:          p.deps.Store,
		Snapshot:       p.deps.Snapshots.Current(),
		CanceledOrders: p.deps.CanceledOrders,
		Logger:         p.logger,
	}
	handlers, skipped, err := p.prepare(blk, deps)
	if err != nil {
		p.fail(blk, err)
		return err
	}

	var (
		msgs []message.ConsolidatedMessage
		tip  [32]byte
	)
	candles := handler.NewCandlesGenerator(blk.Height, blk.Time, deps)
	err = p.deps.Transactor.InTx(ctx, func(tx persistence.Tx) error {
		if err := candles.Load(ctx, tx); err != nil {
			return fmt.Errorf("block %d: %s: %w", blk.Height, candles.Name(), err)
		}
		for _, h := range handlers {
			hStart := time.Now()
			out, err := h.Handle(ctx, tx)
			if m != nil {
				m.HandlerDuration.WithLabelValues(h.Name()).Observe(time.Since(hStart).Seconds())
			}
			if err != nil {
				if m != nil {
					m.HandlerErrors.WithLabelValues(h.Name()).Inc()
				}
				return fmt.Errorf("block %d: %s: %w", blk.Height, h.Name(), err)
			}
			msgs = append(msgs, out...)
		}

		cStart := time.Now()
		out, err := candles.Generate(ctx, tx, msgs)
		if m != nil {
			m.HandlerDuration.WithLabelValues(candles.Name()).Observe(time.Since(cStart).Seconds())
		}
		if err != nil {
			if m != nil {
				m.HandlerErrors.WithLabelValues(candles.Name()).Inc()
			}
			return fmt.Errorf("block %d: %s: %w", blk.Height, candles.Name(), err)
		}
		msgs = append(msgs, out...)

		tip = p.hasher.Next(blk.Height, msgs)
		return p.deps.Blocks.RecordBlock(ctx, tx, persistence.ProcessedBlock{
			Height:     blk.Height,
			BlockTime:  blk.Time,
			EventCount: len(blk.Events),
			OutputHash: tip[:],
		})
	})
	if err != nil {
		p.fail(blk, err)
		return err
	}

	p.sequence.Advance(blk.Height)
	p.hasher.Commit(tip)
	next, _ := p.sequence.Expected()

	p.mu.Lock()
	p.status.LastHeight = blk.Height
	p.status.NextHeight = next
	p.status.LastBlockTime = blk.Time
	p.status.OutputHash = hex.EncodeToString(tip[:])
	p.status.BlocksProcessed++
	p.status.EventsSkipped += uint64(skipped)
	p.status.Started = true
	p.mu.Unlock()

	if m != nil {
		m.BlocksProcessed.WithLabelValues("committed").Inc()
		m.LastProcessedHeight.Set(float64(blk.Height))
		m.BlockDuration.Observe(time.Since(start).Seconds())
	}

	p.logger.Debug().
		Uint32("height", blk.Height).
		Int("events", len(blk.Events)).
		Int("handlers", len(handlers)).
		Int("messages", len(msgs)).
		Dur("duration", time.Since(start)).
		Msg("block committed")

	if len(msgs) == 0 {
		return nil
	}
	if err := p.deps.Publisher.Publish(ctx, msgs); err != nil {
		if m != nil {
			m.PublishErrors.Inc()
		}
		return fmt.Errorf("%w %d: %v", ErrPublish, blk.Height, err)
	}
	if m != nil {
		for _, msg := range msgs {
			m.MessagesPublished.WithLabelValues(string(msg.Topic)).Inc()
		}
	}
	return nil
}

// prepare resolves, decodes and validates every event and builds its
// handlers. Undecodable events are skipped; anything else that fails aborts
// the block before storage is touched.
func (p *Processor) prepare(blk *event.Block, deps handler.Deps) ([]handler.Handler, int, error) {
	m := p.deps.Metrics

	var (
		handlers []handler.Handler
		skipped  int
	)
	for _, be := range blk.Events {
		txIndex, err := ingestion.ResolveTransactionIndex(be)
		if err != nil {
			return nil, 0, err
		}

		decoded := p.dispatcher.Dispatch(be.Subtype, be.Version, be.DataBytes)
		if !decoded.Recognized() {
			skipped++
			if m != nil {
				m.EventsSkipped.WithLabelValues(be.Subtype).Inc()
			}
			continue
		}

		ev := &event.ResolvedEvent{
			Event:            be,
			Decoded:          decoded,
			TransactionIndex: txIndex,
			BlockHeight:      blk.Height,
			BlockTime:        blk.Time,
		}

		v, err := validator.For(decoded.Family, p.logger)
		if err != nil {
			return nil, 0, err
		}
		if err := v.Validate(ev); err != nil {
			if m != nil {
				m.ValidationFailures.WithLabelValues(decoded.Family.String()).Inc()
			}
			return nil, 0, err
		}

		hs, err := handler.New(ev, blk.TxHash(txIndex), deps)
		if err != nil {
			return nil, 0, err
		}
		handlers = append(handlers, hs...)

		if m != nil {
			m.EventsProcessed.WithLabelValues(decoded.Family.String()).Inc()
		}
	}
	return handlers, skipped, nil
}

func (p *Processor) fail(blk *event.Block, err error) {
	if m := p.deps.Metrics; m != nil {
		m.BlocksProcessed.WithLabelValues("failed").Inc()
	}
	p.logger.Error().Err(err).Uint32("height", blk.Height).Msg("block rolled back")
}
