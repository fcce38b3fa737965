package wire

import (
	"FillIndexer/internal/event"
	"math/big"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Encoders follow proto3 rules: zero scalars are omitted, oneof members are
// always written when set.

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendVarint(b, num, protowire.EncodeBool(v))
}

func appendFixed32(b []byte, num protowire.Number, v uint32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// appendMessage writes a sub-message, even when it encodes to zero bytes.
func appendMessage(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func EncodeSubaccountID(s *event.SubaccountID) []byte {
	var b []byte
	b = appendBytes(b, 1, []byte(s.Owner))
	b = appendVarint(b, 2, uint64(s.Number))
	return b
}

// EncodeOrderID is the canonical binary order identity; its hash keys
// order-book sync messages.
func EncodeOrderID(id *event.OrderID) []byte {
	var b []byte
	if id.SubaccountID != nil {
		b = appendMessage(b, 1, EncodeSubaccountID(id.SubaccountID))
	}
	b = appendFixed32(b, 2, id.ClientID)
	b = appendVarint(b, 3, uint64(id.OrderFlags))
	b = appendVarint(b, 4, uint64(id.ClobPairID))
	return b
}

func EncodeOrder(o *event.Order) []byte {
	var b []byte
	if o.OrderID != nil {
		b = appendMessage(b, 1, EncodeOrderID(o.OrderID))
	}
	b = appendVarint(b, 2, uint64(int64(o.Side)))
	b = appendVarint(b, 3, o.Quantums)
	b = appendVarint(b, 4, o.Subticks)
	if o.GoodTilBlock != nil {
		b = protowire.AppendTag(b, 5, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*o.GoodTilBlock))
	} else if o.GoodTilBlockTime != nil {
		b = protowire.AppendTag(b, 6, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, *o.GoodTilBlockTime)
	}
	b = appendVarint(b, 7, uint64(int64(o.TimeInForce)))
	b = appendBool(b, 8, o.ReduceOnly)
	b = appendVarint(b, 9, uint64(o.ClientMetadata))
	b = appendVarint(b, 10, uint64(int64(o.ConditionType)))
	b = appendVarint(b, 11, o.ConditionalOrderTriggerSubticks)
	return b
}

func EncodeLiquidationOrder(l *event.LiquidationOrderV1) []byte {
	var b []byte
	if l.Liquidated != nil {
		b = appendMessage(b, 1, EncodeSubaccountID(l.Liquidated))
	}
	b = appendVarint(b, 2, uint64(l.ClobPairID))
	b = appendVarint(b, 3, uint64(l.PerpetualID))
	b = appendVarint(b, 4, l.TotalSize)
	b = appendBool(b, 5, l.IsBuy)
	b = appendVarint(b, 6, l.Subticks)
	return b
}

func EncodeOrderFillEventV1(e *event.OrderFillEventV1) []byte {
	var b []byte
	if e.MakerOrder != nil {
		b = appendMessage(b, 1, EncodeOrder(e.MakerOrder))
	}
	if e.Order != nil {
		b = appendMessage(b, 2, EncodeOrder(e.Order))
	} else if e.LiquidationOrder != nil {
		b = appendMessage(b, 4, EncodeLiquidationOrder(e.LiquidationOrder))
	}
	b = appendVarint(b, 3, e.FillAmount)
	b = appendVarint(b, 5, protowire.EncodeZigZag(e.MakerFee))
	b = appendVarint(b, 6, protowire.EncodeZigZag(e.TakerFee))
	b = appendVarint(b, 7, e.TotalFilledMaker)
	b = appendVarint(b, 8, e.TotalFilledTaker)
	return b
}

func EncodeDeleveragingEventV1(e *event.DeleveragingEventV1) []byte {
	var b []byte
	if e.Liquidated != nil {
		b = appendMessage(b, 1, EncodeSubaccountID(e.Liquidated))
	}
	if e.Offsetting != nil {
		b = appendMessage(b, 2, EncodeSubaccountID(e.Offsetting))
	}
	b = appendVarint(b, 3, uint64(e.PerpetualID))
	b = appendVarint(b, 4, e.FillAmount)
	b = appendVarint(b, 5, e.Price)
	b = appendBool(b, 6, e.IsBuy)
	b = appendBool(b, 7, e.IsFinalSettlement)
	return b
}

func EncodeSubaccountUpdateEventV1(e *event.SubaccountUpdateEventV1) []byte {
	var b []byte
	if e.SubaccountID != nil {
		b = appendMessage(b, 1, EncodeSubaccountID(e.SubaccountID))
	}
	for _, p := range e.UpdatedPerpetualPositions {
		var pb []byte
		pb = appendVarint(pb, 1, uint64(p.PerpetualID))
		pb = appendBytes(pb, 2, EncodeSerializableInt(p.Quantums))
		pb = appendBytes(pb, 3, EncodeSerializableInt(p.FundingIndex))
		b = appendMessage(b, 3, pb)
	}
	for _, a := range e.UpdatedAssetPositions {
		var ab []byte
		ab = appendVarint(ab, 1, uint64(a.AssetID))
		ab = appendBytes(ab, 2, EncodeSerializableInt(a.Quantums))
		b = appendMessage(b, 4, ab)
	}
	return b
}

// EncodeSerializableInt is the inverse of DecodeSerializableInt. Nil and zero
// encode to nothing.
func EncodeSerializableInt(i *big.Int) []byte {
	if i == nil || i.Sign() == 0 {
		return nil
	}
	out, _ := i.GobEncode()
	return out
}

func EncodeLiquidityTierUpsertEventV1(e *event.LiquidityTierUpsertEventV1) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(e.ID))
	b = appendBytes(b, 2, []byte(e.Name))
	b = appendVarint(b, 3, uint64(e.InitialMarginPpm))
	b = appendVarint(b, 4, uint64(e.MaintenanceFractionPpm))
	b = appendVarint(b, 5, e.BasePositionNotional)
	return b
}

func EncodeLiquidityTierUpsertEventV2(e *event.LiquidityTierUpsertEventV2) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(e.ID))
	b = appendBytes(b, 2, []byte(e.Name))
	b = appendVarint(b, 3, uint64(e.InitialMarginPpm))
	b = appendVarint(b, 4, uint64(e.MaintenanceFractionPpm))
	b = appendVarint(b, 6, e.OpenInterestLowerCap)
	b = appendVarint(b, 7, e.OpenInterestUpperCap)
	return b
}

func EncodeSourceOfFunds(f *event.SourceOfFunds) []byte {
	var b []byte
	if f.SubaccountID != nil {
		b = appendMessage(b, 1, EncodeSubaccountID(f.SubaccountID))
	}
	b = appendBytes(b, 2, []byte(f.Address))
	return b
}

func EncodeTransferEventV1(e *event.TransferEventV1) []byte {
	var b []byte
	b = appendVarint(b, 3, uint64(e.AssetID))
	b = appendVarint(b, 4, e.Amount)
	if e.Sender != nil {
		b = appendMessage(b, 5, EncodeSourceOfFunds(e.Sender))
	}
	if e.Recipient != nil {
		b = appendMessage(b, 6, EncodeSourceOfFunds(e.Recipient))
	}
	return b
}

func EncodeBlock(blk *event.Block) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(blk.Height))
	b = appendMessage(b, 2, encodeTimestamp(blk.Time))
	for i := range blk.Events {
		b = appendMessage(b, 3, encodeBlockEvent(&blk.Events[i]))
	}
	for _, h := range blk.TxHashes {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendString(b, h)
	}
	return b
}

func encodeBlockEvent(ev *event.BlockEvent) []byte {
	var b []byte
	b = appendBytes(b, 1, []byte(ev.Subtype))
	if ev.TransactionIndex != nil {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*ev.TransactionIndex))
	} else if ev.BlockEvent != nil {
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(*ev.BlockEvent)))
	}
	b = appendVarint(b, 5, uint64(ev.EventIndex))
	b = appendVarint(b, 6, uint64(ev.Version))
	b = appendBytes(b, 7, ev.DataBytes)
	return b
}

func encodeTimestamp(t time.Time) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(t.Unix()))
	b = appendVarint(b, 2, uint64(int64(t.Nanosecond())))
	return b
}
