package ingestion_test

import (
	"FillIndexer/internal/event"
	"FillIndexer/internal/ingestion"
	"FillIndexer/internal/wire"
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeKnownFamilies(t *testing.T) {
	liquidated := &event.SubaccountID{Owner: "a"}
	offsetting := &event.SubaccountID{Owner: "b"}
	gtb := uint32(20)
	order := func(owner string, side event.OrderSide) *event.Order {
		return &event.Order{
			OrderID:      &event.OrderID{SubaccountID: &event.SubaccountID{Owner: owner}, ClientID: 1},
			Side:         side,
			Quantums:     10,
			Subticks:     100,
			GoodTilBlock: &gtb,
		}
	}

	cases := []struct {
		name    string
		subtype string
		version uint32
		data    []byte
		family  event.Family
		want    any
	}{
		{
			name:    "deleveraging, unversioned",
			subtype: event.SubtypeDeleveraging,
			version: 0,
			data:    wire.EncodeDeleveragingEventV1(&event.DeleveragingEventV1{Liquidated: liquidated, Offsetting: offsetting, FillAmount: 1}),
			family:  event.FamilyDeleveraging,
			want:    &event.DeleveragingEventV1{},
		},
		{
			name:    "order fill",
			subtype: event.SubtypeOrderFill,
			version: 1,
			data: wire.EncodeOrderFillEventV1(&event.OrderFillEventV1{
				MakerOrder: order("a", event.OrderSideSell),
				Order:      order("b", event.OrderSideBuy),
				FillAmount: 10,
			}),
			family: event.FamilyOrderFill,
			want:   &event.OrderFillEventV1{},
		},
		{
			name:    "subaccount update",
			subtype: event.SubtypeSubaccountUpdate,
			version: 0,
			data:    wire.EncodeSubaccountUpdateEventV1(&event.SubaccountUpdateEventV1{SubaccountID: liquidated}),
			family:  event.FamilySubaccountUpdate,
			want:    &event.SubaccountUpdateEventV1{},
		},
		{
			name:    "transfer",
			subtype: event.SubtypeTransfer,
			version: 1,
			data: wire.EncodeTransferEventV1(&event.TransferEventV1{
				Amount:    1,
				Sender:    &event.SourceOfFunds{SubaccountID: liquidated},
				Recipient: &event.SourceOfFunds{Address: "dydx1wallet"},
			}),
			family: event.FamilyTransfer,
			want:   &event.TransferEventV1{},
		},
		{
			name:    "liquidity tier v1",
			subtype: event.SubtypeLiquidityTier,
			version: 1,
			data:    wire.EncodeLiquidityTierUpsertEventV1(&event.LiquidityTierUpsertEventV1{Name: "x"}),
			family:  event.FamilyLiquidityTier,
			want:    &event.LiquidityTierUpsertEventV1{},
		},
		{
			name:    "liquidity tier v2",
			subtype: event.SubtypeLiquidityTier,
			version: 2,
			data:    wire.EncodeLiquidityTierUpsertEventV2(&event.LiquidityTierUpsertEventV2{Name: "x"}),
			family:  event.FamilyLiquidityTier,
			want:    &event.LiquidityTierUpsertEventV2{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := ingestion.Decode(tc.subtype, tc.version, tc.data)
			require.True(t, d.Recognized(), "%v", d.Err)
			assert.Equal(t, tc.family, d.Family)
			assert.IsType(t, tc.want, d.Payload)
			assert.Equal(t, ingestion.EffectiveVersion(tc.version), d.Version)
		})
	}
}

func TestDecodeIsDeterministic(t *testing.T) {
	data := wire.EncodeDeleveragingEventV1(&event.DeleveragingEventV1{
		Liquidated: &event.SubaccountID{Owner: "a"},
		Offsetting: &event.SubaccountID{Owner: "b", Number: 3},
		FillAmount: 7,
		Price:      42,
		IsBuy:      true,
	})
	first := ingestion.Decode(event.SubtypeDeleveraging, 1, data)
	second := ingestion.Decode(event.SubtypeDeleveraging, 1, data)
	require.True(t, first.Recognized())
	assert.Equal(t, first, second)
	assert.NotSame(t, first.Payload, second.Payload)

	bad := []byte{0xff}
	assert.Equal(t,
		ingestion.Decode(event.SubtypeOrderFill, 1, bad).Err.Error(),
		ingestion.Decode(event.SubtypeOrderFill, 1, bad).Err.Error())
}

func TestDecodeUnrecognized(t *testing.T) {
	d := ingestion.Decode("funding_values", 1, nil)
	assert.False(t, d.Recognized())
	assert.Equal(t, event.FamilyUnrecognized, d.Family)
	assert.Nil(t, d.Payload)

	d = ingestion.Decode(event.SubtypeOrderFill, 9, nil)
	assert.False(t, d.Recognized())

	d = ingestion.Decode(event.SubtypeOrderFill, 1, []byte{0xff})
	assert.False(t, d.Recognized())
	assert.Error(t, d.Err)
}

func TestDispatcherSkipsWithoutFailing(t *testing.T) {
	d := ingestion.NewDispatcher(zerolog.Nop())
	decoded := d.Dispatch("unknown", 0, []byte{1, 2, 3})
	assert.False(t, decoded.Recognized())
	assert.Equal(t, uint32(1), decoded.Version)
}

func TestResolveTransactionIndex(t *testing.T) {
	tx := uint32(4)
	begin := event.BlockEventBeginBlock
	end := event.BlockEventEndBlock
	unspecified := event.BlockEventUnspecified

	idx, err := ingestion.ResolveTransactionIndex(event.BlockEvent{TransactionIndex: &tx})
	require.NoError(t, err)
	assert.Equal(t, int32(4), idx)

	idx, err = ingestion.ResolveTransactionIndex(event.BlockEvent{BlockEvent: &begin})
	require.NoError(t, err)
	assert.Equal(t, ingestion.BeginBlockTransactionIndex, idx)

	idx, err = ingestion.ResolveTransactionIndex(event.BlockEvent{BlockEvent: &end})
	require.NoError(t, err)
	assert.Equal(t, ingestion.EndBlockTransactionIndex, idx)

	_, err = ingestion.ResolveTransactionIndex(event.BlockEvent{BlockEvent: &unspecified})
	var pe *event.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Error(), "invalid block event type")

	_, err = ingestion.ResolveTransactionIndex(event.BlockEvent{})
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "Either transactionIndex or blockEvent must be defined in IndexerTendermintEvent", pe.Error())

	largest := uint32(math.MaxInt32)
	idx, err = ingestion.ResolveTransactionIndex(event.BlockEvent{TransactionIndex: &largest})
	require.NoError(t, err)
	assert.Equal(t, int32(math.MaxInt32), idx)

	overflow := uint32(math.MaxInt32) + 1
	_, err = ingestion.ResolveTransactionIndex(event.BlockEvent{TransactionIndex: &overflow})
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Error(), "out of range transactionIndex: 2147483648")
}

func TestBlockInjectorWaitsForOutcome(t *testing.T) {
	blocks := make(chan ingestion.RawBlock)
	inj := ingestion.NewBlockInjector(blocks)

	go func() {
		b := <-blocks
		b.Ack()
		b = <-blocks
		b.Nak()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, inj.InjectBlock(ctx, "replay/1", []byte{1}))
	assert.ErrorIs(t, inj.InjectBlock(ctx, "replay/2", []byte{2}), ingestion.ErrBlockRejected)
}

func TestBlockInjectorHonoursContext(t *testing.T) {
	inj := ingestion.NewBlockInjector(make(chan ingestion.RawBlock))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, inj.InjectBlock(ctx, "replay", nil), context.Canceled)
}
