package ingestion

import (
	"FillIndexer/internal/event"
	"FillIndexer/internal/wire"
	"fmt"

	"github.com/rs/zerolog"
)

type decodeFunc func(data []byte) (any, error)

type dispatchKey struct {
	subtype string
	version uint32
}

type dispatchEntry struct {
	family event.Family
	decode decodeFunc
}

var decodeTable = map[dispatchKey]dispatchEntry{
	{event.SubtypeOrderFill, 1}: {event.FamilyOrderFill, func(b []byte) (any, error) {
		return wire.DecodeOrderFillEventV1(b)
	}},
	{event.SubtypeDeleveraging, 1}: {event.FamilyDeleveraging, func(b []byte) (any, error) {
		return wire.DecodeDeleveragingEventV1(b)
	}},
	{event.SubtypeSubaccountUpdate, 1}: {event.FamilySubaccountUpdate, func(b []byte) (any, error) {
		return wire.DecodeSubaccountUpdateEventV1(b)
	}},
	{event.SubtypeLiquidityTier, 1}: {event.FamilyLiquidityTier, func(b []byte) (any, error) {
		return wire.DecodeLiquidityTierUpsertEventV1(b)
	}},
	{event.SubtypeLiquidityTier, 2}: {event.FamilyLiquidityTier, func(b []byte) (any, error) {
		return wire.DecodeLiquidityTierUpsertEventV2(b)
	}},
	{event.SubtypeTransfer, 1}: {event.FamilyTransfer, func(b []byte) (any, error) {
		return wire.DecodeTransferEventV1(b)
	}},
}

// EffectiveVersion maps the zero value of the wire field to version 1.
func EffectiveVersion(version uint32) uint32 {
	if version == 0 {
		return 1
	}
	return version
}

// Decode looks up (subtype, version) and decodes data. Unknown combinations
// and malformed payloads come back as FamilyUnrecognized with Err set.
func Decode(subtype string, version uint32, data []byte) event.Decoded {
	version = EffectiveVersion(version)

	entry, ok := decodeTable[dispatchKey{subtype, version}]
	if !ok {
		return event.Decoded{
			Family:  event.FamilyUnrecognized,
			Version: version,
			Err:     fmt.Errorf("unrecognized event subtype %q version %d", subtype, version),
		}
	}

	payload, err := entry.decode(data)
	if err != nil {
		return event.Decoded{
			Family:  event.FamilyUnrecognized,
			Version: version,
			Err:     fmt.Errorf("decode %s v%d: %w", subtype, version, err),
		}
	}

	return event.Decoded{Family: entry.family, Version: version, Payload: payload}
}

// Dispatcher decodes payloads and logs the ones it cannot decode.
type Dispatcher struct {
	logger zerolog.Logger
}

func NewDispatcher(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

func (d *Dispatcher) Dispatch(subtype string, version uint32, data []byte) event.Decoded {
	decoded := Decode(subtype, version, data)
	if !decoded.Recognized() {
		d.logger.Error().
			Err(decoded.Err).
			Str("subtype", subtype).
			Uint32("version", decoded.Version).
			Int("data_len", len(data)).
			Msg("unable to decode event, skipping")
	}
	return decoded
}
