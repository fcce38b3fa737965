package ingestion

import (
	"context"
	"errors"
	"time"
)

// ErrBlockRejected is returned by InjectBlock when the processor Naks the block.
var ErrBlockRejected = errors.New("block rejected")

// BlockInjector pushes encoded blocks into the processing channel from
// outside the bus, for replays and manual backfills. It shares the channel
// with BlockSubscriber so injected blocks are ordered with bus deliveries.
type BlockInjector struct {
	blocks chan<- RawBlock
}

func NewBlockInjector(blocks chan<- RawBlock) *BlockInjector {
	return &BlockInjector{blocks: blocks}
}

// InjectBlock queues data and waits until the processor acks or naks it.
func (i *BlockInjector) InjectBlock(ctx context.Context, source string, data []byte) error {
	done := make(chan error, 1)
	raw := RawBlock{
		Subject:    source,
		Data:       data,
		ReceivedAt: time.Now(),
		Ack:        func() { done <- nil },
		Nak:        func() { done <- ErrBlockRejected },
	}

	select {
	case i.blocks <- raw:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
