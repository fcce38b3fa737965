package ingestion

import (
	"FillIndexer/internal/event"
	"fmt"
	"math"
)

// Synthetic transaction indices for events emitted outside any transaction.
// They sort before every real transaction of the block.
const (
	BeginBlockTransactionIndex int32 = -2
	EndBlockTransactionIndex   int32 = -1
)

// ResolveTransactionIndex returns the canonical ordering key of an event.
func ResolveTransactionIndex(ev event.BlockEvent) (int32, error) {
	if ev.TransactionIndex != nil {
		if *ev.TransactionIndex > math.MaxInt32 {
			return 0, event.NewParseError(fmt.Sprintf(
				"Received V4 event with out of range transactionIndex: %d", *ev.TransactionIndex))
		}
		return int32(*ev.TransactionIndex), nil
	}

	if ev.BlockEvent != nil {
		switch *ev.BlockEvent {
		case event.BlockEventBeginBlock:
			return BeginBlockTransactionIndex, nil
		case event.BlockEventEndBlock:
			return EndBlockTransactionIndex, nil
		default:
			return 0, event.NewParseError(fmt.Sprintf(
				"Received V4 event with invalid block event type: %s", ev.BlockEvent.String()))
		}
	}

	return 0, event.NewParseError(
		"Either transactionIndex or blockEvent must be defined in IndexerTendermintEvent")
}
