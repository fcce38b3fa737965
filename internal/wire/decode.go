// Package wire decodes and encodes the chain's protobuf event payloads.
//
// There is no generated code: each message is walked field by field with
// protowire, so unknown fields added by newer chain versions are skipped.
package wire

import (
	"FillIndexer/internal/event"
	"errors"
	"fmt"
	"math/big"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

var errWireType = errors.New("unexpected wire type")

// fieldFunc consumes the value of one field and returns the bytes consumed.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func walk(msg string, b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%s: tag: %w", msg, protowire.ParseError(n))
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return fmt.Errorf("%s: field %d: %w", msg, num, err)
		}
		b = b[m:]
	}
	return nil
}

func skip(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, nil
}

func varint(typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, errWireType
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func fixed32(typ protowire.Type, b []byte) (uint32, int, error) {
	if typ != protowire.Fixed32Type {
		return 0, 0, errWireType
	}
	v, n := protowire.ConsumeFixed32(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func bytesField(typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, errWireType
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

// DecodeSubaccountID decodes an IndexerSubaccountId.
func DecodeSubaccountID(b []byte) (*event.SubaccountID, error) {
	var s event.SubaccountID
	err := walk("IndexerSubaccountId", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := bytesField(typ, b)
			s.Owner = string(v)
			return n, err
		case 2:
			v, n, err := varint(typ, b)
			s.Number = uint32(v)
			return n, err
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DecodeOrderID decodes an IndexerOrderId.
func DecodeOrderID(b []byte) (*event.OrderID, error) {
	var id event.OrderID
	err := walk("IndexerOrderId", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := bytesField(typ, b)
			if err != nil {
				return 0, err
			}
			id.SubaccountID, err = DecodeSubaccountID(v)
			return n, err
		case 2:
			v, n, err := fixed32(typ, b)
			id.ClientID = v
			return n, err
		case 3:
			v, n, err := varint(typ, b)
			id.OrderFlags = uint32(v)
			return n, err
		case 4:
			v, n, err := varint(typ, b)
			id.ClobPairID = uint32(v)
			return n, err
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// DecodeOrder decodes an IndexerOrder.
func DecodeOrder(b []byte) (*event.Order, error) {
	var o event.Order
	err := walk("IndexerOrder", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := bytesField(typ, b)
			if err != nil {
				return 0, err
			}
			o.OrderID, err = DecodeOrderID(v)
			return n, err
		case 2:
			v, n, err := varint(typ, b)
			o.Side = event.OrderSide(int32(v))
			return n, err
		case 3:
			v, n, err := varint(typ, b)
			o.Quantums = v
			return n, err
		case 4:
			v, n, err := varint(typ, b)
			o.Subticks = v
			return n, err
		case 5:
			v, n, err := varint(typ, b)
			gtb := uint32(v)
			o.GoodTilBlock = &gtb
			o.GoodTilBlockTime = nil
			return n, err
		case 6:
			v, n, err := fixed32(typ, b)
			o.GoodTilBlockTime = &v
			o.GoodTilBlock = nil
			return n, err
		case 7:
			v, n, err := varint(typ, b)
			o.TimeInForce = event.TimeInForce(int32(v))
			return n, err
		case 8:
			v, n, err := varint(typ, b)
			o.ReduceOnly = protowire.DecodeBool(v)
			return n, err
		case 9:
			v, n, err := varint(typ, b)
			o.ClientMetadata = uint32(v)
			return n, err
		case 10:
			v, n, err := varint(typ, b)
			o.ConditionType = event.ConditionType(int32(v))
			return n, err
		case 11:
			v, n, err := varint(typ, b)
			o.ConditionalOrderTriggerSubticks = v
			return n, err
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// DecodeLiquidationOrder decodes a LiquidationOrderV1.
func DecodeLiquidationOrder(b []byte) (*event.LiquidationOrderV1, error) {
	var l event.LiquidationOrderV1
	err := walk("LiquidationOrderV1", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := bytesField(typ, b)
			if err != nil {
				return 0, err
			}
			l.Liquidated, err = DecodeSubaccountID(v)
			return n, err
		case 2:
			v, n, err := varint(typ, b)
			l.ClobPairID = uint32(v)
			return n, err
		case 3:
			v, n, err := varint(typ, b)
			l.PerpetualID = uint32(v)
			return n, err
		case 4:
			v, n, err := varint(typ, b)
			l.TotalSize = v
			return n, err
		case 5:
			v, n, err := varint(typ, b)
			l.IsBuy = protowire.DecodeBool(v)
			return n, err
		case 6:
			v, n, err := varint(typ, b)
			l.Subticks = v
			return n, err
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// DecodeOrderFillEventV1 decodes an OrderFillEventV1.
func DecodeOrderFillEventV1(b []byte) (*event.OrderFillEventV1, error) {
	var e event.OrderFillEventV1
	err := walk("OrderFillEventV1", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := bytesField(typ, b)
			if err != nil {
				return 0, err
			}
			e.MakerOrder, err = DecodeOrder(v)
			return n, err
		case 2:
			v, n, err := bytesField(typ, b)
			if err != nil {
				return 0, err
			}
			e.Order, err = DecodeOrder(v)
			e.LiquidationOrder = nil
			return n, err
		case 3:
			v, n, err := varint(typ, b)
			e.FillAmount = v
			return n, err
		case 4:
			v, n, err := bytesField(typ, b)
			if err != nil {
				return 0, err
			}
			e.LiquidationOrder, err = DecodeLiquidationOrder(v)
			e.Order = nil
			return n, err
		case 5:
			v, n, err := varint(typ, b)
			e.MakerFee = protowire.DecodeZigZag(v)
			return n, err
		case 6:
			v, n, err := varint(typ, b)
			e.TakerFee = protowire.DecodeZigZag(v)
			return n, err
		case 7:
			v, n, err := varint(typ, b)
			e.TotalFilledMaker = v
			return n, err
		case 8:
			v, n, err := varint(typ, b)
			e.TotalFilledTaker = v
			return n, err
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// DecodeDeleveragingEventV1 decodes a DeleveragingEventV1.
func DecodeDeleveragingEventV1(b []byte) (*event.DeleveragingEventV1, error) {
	var e event.DeleveragingEventV1
	err := walk("DeleveragingEventV1", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1, 2:
			v, n, err := bytesField(typ, b)
			if err != nil {
				return 0, err
			}
			id, err := DecodeSubaccountID(v)
			if num == 1 {
				e.Liquidated = id
			} else {
				e.Offsetting = id
			}
			return n, err
		case 3:
			v, n, err := varint(typ, b)
			e.PerpetualID = uint32(v)
			return n, err
		case 4:
			v, n, err := varint(typ, b)
			e.FillAmount = v
			return n, err
		case 5:
			v, n, err := varint(typ, b)
			e.Price = v
			return n, err
		case 6:
			v, n, err := varint(typ, b)
			e.IsBuy = protowire.DecodeBool(v)
			return n, err
		case 7:
			v, n, err := varint(typ, b)
			e.IsFinalSettlement = protowire.DecodeBool(v)
			return n, err
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// DecodeSubaccountUpdateEventV1 decodes a SubaccountUpdateEventV1.
func DecodeSubaccountUpdateEventV1(b []byte) (*event.SubaccountUpdateEventV1, error) {
	var e event.SubaccountUpdateEventV1
	err := walk("SubaccountUpdateEventV1", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := bytesField(typ, b)
			if err != nil {
				return 0, err
			}
			e.SubaccountID, err = DecodeSubaccountID(v)
			return n, err
		case 3:
			v, n, err := bytesField(typ, b)
			if err != nil {
				return 0, err
			}
			p, err := decodePerpetualPosition(v)
			if err != nil {
				return 0, err
			}
			e.UpdatedPerpetualPositions = append(e.UpdatedPerpetualPositions, p)
			return n, nil
		case 4:
			v, n, err := bytesField(typ, b)
			if err != nil {
				return 0, err
			}
			a, err := decodeAssetPosition(v)
			if err != nil {
				return 0, err
			}
			e.UpdatedAssetPositions = append(e.UpdatedAssetPositions, a)
			return n, nil
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func decodePerpetualPosition(b []byte) (event.PerpetualPositionUpdate, error) {
	p := event.PerpetualPositionUpdate{Quantums: new(big.Int), FundingIndex: new(big.Int)}
	err := walk("IndexerPerpetualPosition", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := varint(typ, b)
			p.PerpetualID = uint32(v)
			return n, err
		case 2, 3:
			v, n, err := bytesField(typ, b)
			if err != nil {
				return 0, err
			}
			i, err := DecodeSerializableInt(v)
			if num == 2 {
				p.Quantums = i
			} else {
				p.FundingIndex = i
			}
			return n, err
		default:
			return skip(num, typ, b)
		}
	})
	return p, err
}

func decodeAssetPosition(b []byte) (event.AssetPositionUpdate, error) {
	a := event.AssetPositionUpdate{Quantums: new(big.Int)}
	err := walk("IndexerAssetPosition", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := varint(typ, b)
			a.AssetID = uint32(v)
			return n, err
		case 2:
			v, n, err := bytesField(typ, b)
			if err != nil {
				return 0, err
			}
			a.Quantums, err = DecodeSerializableInt(v)
			return n, err
		default:
			return skip(num, typ, b)
		}
	})
	return a, err
}

// DecodeSerializableInt decodes the chain's signed big integer encoding,
// which is big.Int's gob form. Empty input is zero.
func DecodeSerializableInt(b []byte) (*big.Int, error) {
	i := new(big.Int)
	if len(b) == 0 {
		return i, nil
	}
	if err := i.GobDecode(b); err != nil {
		return nil, fmt.Errorf("serializable int: %w", err)
	}
	return i, nil
}

// DecodeLiquidityTierUpsertEventV1 decodes a LiquidityTierUpsertEventV1.
func DecodeLiquidityTierUpsertEventV1(b []byte) (*event.LiquidityTierUpsertEventV1, error) {
	var e event.LiquidityTierUpsertEventV1
	err := walk("LiquidityTierUpsertEventV1", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := varint(typ, b)
			e.ID = uint32(v)
			return n, err
		case 2:
			v, n, err := bytesField(typ, b)
			e.Name = string(v)
			return n, err
		case 3:
			v, n, err := varint(typ, b)
			e.InitialMarginPpm = uint32(v)
			return n, err
		case 4:
			v, n, err := varint(typ, b)
			e.MaintenanceFractionPpm = uint32(v)
			return n, err
		case 5:
			v, n, err := varint(typ, b)
			e.BasePositionNotional = v
			return n, err
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// DecodeLiquidityTierUpsertEventV2 decodes a LiquidityTierUpsertEventV2.
// Field 5 is reserved.
func DecodeLiquidityTierUpsertEventV2(b []byte) (*event.LiquidityTierUpsertEventV2, error) {
	var e event.LiquidityTierUpsertEventV2
	err := walk("LiquidityTierUpsertEventV2", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := varint(typ, b)
			e.ID = uint32(v)
			return n, err
		case 2:
			v, n, err := bytesField(typ, b)
			e.Name = string(v)
			return n, err
		case 3:
			v, n, err := varint(typ, b)
			e.InitialMarginPpm = uint32(v)
			return n, err
		case 4:
			v, n, err := varint(typ, b)
			e.MaintenanceFractionPpm = uint32(v)
			return n, err
		case 6:
			v, n, err := varint(typ, b)
			e.OpenInterestLowerCap = v
			return n, err
		case 7:
			v, n, err := varint(typ, b)
			e.OpenInterestUpperCap = v
			return n, err
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// DecodeSourceOfFunds decodes a SourceOfFunds.
func DecodeSourceOfFunds(b []byte) (*event.SourceOfFunds, error) {
	var f event.SourceOfFunds
	err := walk("SourceOfFunds", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := bytesField(typ, b)
			if err != nil {
				return 0, err
			}
			f.SubaccountID, err = DecodeSubaccountID(v)
			return n, err
		case 2:
			v, n, err := bytesField(typ, b)
			f.Address = string(v)
			return n, err
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// DecodeTransferEventV1 decodes a TransferEventV1.
func DecodeTransferEventV1(b []byte) (*event.TransferEventV1, error) {
	var e event.TransferEventV1
	err := walk("TransferEventV1", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 3:
			v, n, err := varint(typ, b)
			e.AssetID = uint32(v)
			return n, err
		case 4:
			v, n, err := varint(typ, b)
			e.Amount = v
			return n, err
		case 5, 6:
			v, n, err := bytesField(typ, b)
			if err != nil {
				return 0, err
			}
			f, err := DecodeSourceOfFunds(v)
			if num == 5 {
				e.Sender = f
			} else {
				e.Recipient = f
			}
			return n, err
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// DecodeBlock decodes an IndexerTendermintBlock.
func DecodeBlock(b []byte) (*event.Block, error) {
	var blk event.Block
	err := walk("IndexerTendermintBlock", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := varint(typ, b)
			blk.Height = uint32(v)
			return n, err
		case 2:
			v, n, err := bytesField(typ, b)
			if err != nil {
				return 0, err
			}
			blk.Time, err = decodeTimestamp(v)
			return n, err
		case 3:
			v, n, err := bytesField(typ, b)
			if err != nil {
				return 0, err
			}
			ev, err := decodeBlockEvent(v)
			if err != nil {
				return 0, err
			}
			blk.Events = append(blk.Events, ev)
			return n, nil
		case 4:
			v, n, err := bytesField(typ, b)
			blk.TxHashes = append(blk.TxHashes, string(v))
			return n, err
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return nil, err
	}
	return &blk, nil
}

func decodeBlockEvent(b []byte) (event.BlockEvent, error) {
	var ev event.BlockEvent
	err := walk("IndexerTendermintEvent", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := bytesField(typ, b)
			ev.Subtype = string(v)
			return n, err
		case 3:
			v, n, err := varint(typ, b)
			idx := uint32(v)
			ev.TransactionIndex = &idx
			ev.BlockEvent = nil
			return n, err
		case 4:
			v, n, err := varint(typ, b)
			kind := event.BlockEventKind(int32(v))
			ev.BlockEvent = &kind
			ev.TransactionIndex = nil
			return n, err
		case 5:
			v, n, err := varint(typ, b)
			ev.EventIndex = uint32(v)
			return n, err
		case 6:
			v, n, err := varint(typ, b)
			ev.Version = uint32(v)
			return n, err
		case 7:
			v, n, err := bytesField(typ, b)
			ev.DataBytes = append([]byte(nil), v...)
			return n, err
		default:
			return skip(num, typ, b)
		}
	})
	return ev, err
}

func decodeTimestamp(b []byte) (time.Time, error) {
	var secs, nanos int64
	err := walk("Timestamp", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := varint(typ, b)
			secs = int64(v)
			return n, err
		case 2:
			v, n, err := varint(typ, b)
			nanos = int64(int32(v))
			return n, err
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, nanos).UTC(), nil
}
