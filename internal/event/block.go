package event

import (
	"time"
)

// BlockEventKind marks events emitted outside of any transaction.
type BlockEventKind int32

const (
	BlockEventUnspecified BlockEventKind = 0
	BlockEventBeginBlock  BlockEventKind = 1
	BlockEventEndBlock    BlockEventKind = 2
)

func (k BlockEventKind) String() string {
	switch k {
	case BlockEventUnspecified:
		return "BLOCK_EVENT_UNSPECIFIED"
	case BlockEventBeginBlock:
		return "BLOCK_EVENT_BEGIN_BLOCK"
	case BlockEventEndBlock:
		return "BLOCK_EVENT_END_BLOCK"
	default:
		return "BLOCK_EVENT_UNKNOWN"
	}
}

// BlockEvent is one entry of a block's ordered event log.
// Exactly one of TransactionIndex and BlockEvent is set.
type BlockEvent struct {
	// Subtype identifies the event family, e.g. "order_fill".
	Subtype string

	// Version of the payload wire format. Zero means the pre-versioning default.
	Version uint32

	// DataBytes is the protobuf-encoded family payload.
	DataBytes []byte

	// EventIndex is the position within the block's event list.
	EventIndex uint32

	TransactionIndex *uint32
	BlockEvent       *BlockEventKind
}

// Block is a decoded block envelope as published by the chain.
type Block struct {
	Height   uint32
	Time     time.Time
	Events   []BlockEvent
	TxHashes []string
}

// TxHash returns the hash of the transaction at txIndex, or "" for block
// lifecycle events and out-of-range indices.
func (b *Block) TxHash(txIndex int32) string {
	if txIndex < 0 || int(txIndex) >= len(b.TxHashes) {
		return ""
	}
	return b.TxHashes[txIndex]
}

// ResolvedEvent is a BlockEvent paired with its decoded payload and canonical
// transaction index. It is created once and never mutated.
type ResolvedEvent struct {
	Event            BlockEvent
	Decoded          Decoded
	TransactionIndex int32
	BlockHeight      uint32
	BlockTime        time.Time
}
