package wire_test

import (
	"FillIndexer/internal/event"
	"FillIndexer/internal/wire"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func sub(owner string, n uint32) *event.SubaccountID {
	return &event.SubaccountID{Owner: owner, Number: n}
}

func TestBlockRoundTrip(t *testing.T) {
	txIndex := uint32(0)
	endBlock := event.BlockEventEndBlock
	blk := &event.Block{
		Height: 1234,
		Time:   time.Date(2024, 3, 1, 12, 0, 0, 500_000_000, time.UTC),
		Events: []event.BlockEvent{
			{Subtype: event.SubtypeOrderFill, Version: 1, DataBytes: []byte{0x01}, EventIndex: 0, TransactionIndex: &txIndex},
			{Subtype: event.SubtypeLiquidityTier, Version: 2, DataBytes: []byte{0x02}, EventIndex: 1, BlockEvent: &endBlock},
		},
		TxHashes: []string{"0xabc"},
	}

	got, err := wire.DecodeBlock(wire.EncodeBlock(blk))
	require.NoError(t, err)
	assert.Equal(t, blk.Height, got.Height)
	assert.True(t, blk.Time.Equal(got.Time))
	require.Len(t, got.Events, 2)

	// transaction index zero is still present: it is a oneof member
	require.NotNil(t, got.Events[0].TransactionIndex)
	assert.Equal(t, uint32(0), *got.Events[0].TransactionIndex)
	assert.Nil(t, got.Events[0].BlockEvent)

	require.NotNil(t, got.Events[1].BlockEvent)
	assert.Equal(t, event.BlockEventEndBlock, *got.Events[1].BlockEvent)
	assert.Nil(t, got.Events[1].TransactionIndex)
	assert.Equal(t, uint32(2), got.Events[1].Version)
	assert.Equal(t, []string{"0xabc"}, got.TxHashes)
	assert.Equal(t, "0xabc", got.TxHash(0))
	assert.Equal(t, "", got.TxHash(-1))
}

func TestOrderFillWithLiquidationOrder(t *testing.T) {
	gtbt := uint32(1_700_000_000)
	in := &event.OrderFillEventV1{
		MakerOrder: &event.Order{
			OrderID:          &event.OrderID{SubaccountID: sub("dydx1maker", 2), ClientID: 7, OrderFlags: event.OrderFlagLongTerm, ClobPairID: 1},
			Side:             event.OrderSideBuy,
			Quantums:         1000,
			Subticks:         50_000,
			GoodTilBlockTime: &gtbt,
			TimeInForce:      event.TimeInForcePostOnly,
			ClientMetadata:   9,
		},
		LiquidationOrder: &event.LiquidationOrderV1{
			Liquidated:  sub("dydx1liq", 0),
			ClobPairID:  1,
			PerpetualID: 1,
			TotalSize:   1000,
			IsBuy:       false,
			Subticks:    49_000,
		},
		FillAmount:       1000,
		MakerFee:         -20,
		TakerFee:         500,
		TotalFilledMaker: 1000,
	}

	got, err := wire.DecodeOrderFillEventV1(wire.EncodeOrderFillEventV1(in))
	require.NoError(t, err)
	assert.True(t, got.IsLiquidation())
	assert.Equal(t, int64(-20), got.MakerFee)
	assert.Equal(t, int64(500), got.TakerFee)
	require.NotNil(t, got.MakerOrder.GoodTilBlockTime)
	assert.Nil(t, got.MakerOrder.GoodTilBlock)
	assert.Equal(t, gtbt, *got.MakerOrder.GoodTilBlockTime)
	assert.Equal(t, event.TimeInForcePostOnly, got.MakerOrder.TimeInForce)
	assert.Equal(t, "dydx1liq", got.LiquidationOrder.Liquidated.Owner)
	assert.Equal(t, event.OrderSideSell, got.LiquidationOrder.Side())
}

func TestSubaccountUpdateSignedQuantums(t *testing.T) {
	in := &event.SubaccountUpdateEventV1{
		SubaccountID: sub("dydx1a", 0),
		UpdatedPerpetualPositions: []event.PerpetualPositionUpdate{
			{PerpetualID: 0, Quantums: big.NewInt(-25_000_000_000), FundingIndex: big.NewInt(3)},
			{PerpetualID: 1, Quantums: new(big.Int)},
		},
		UpdatedAssetPositions: []event.AssetPositionUpdate{{AssetID: 0, Quantums: big.NewInt(1_000_000)}},
	}

	got, err := wire.DecodeSubaccountUpdateEventV1(wire.EncodeSubaccountUpdateEventV1(in))
	require.NoError(t, err)
	require.Len(t, got.UpdatedPerpetualPositions, 2)
	assert.Equal(t, "-25000000000", got.UpdatedPerpetualPositions[0].Quantums.String())
	assert.Equal(t, "0", got.UpdatedPerpetualPositions[1].Quantums.String())
	assert.Equal(t, "1000000", got.UpdatedAssetPositions[0].Quantums.String())
}

func TestUnknownFieldsAreSkipped(t *testing.T) {
	b := wire.EncodeLiquidityTierUpsertEventV1(&event.LiquidityTierUpsertEventV1{ID: 3, Name: "Mid-Cap"})
	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("future"))

	got, err := wire.DecodeLiquidityTierUpsertEventV1(b)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), got.ID)
	assert.Equal(t, "Mid-Cap", got.Name)
}

func TestMalformedPayload(t *testing.T) {
	b := wire.EncodeDeleveragingEventV1(&event.DeleveragingEventV1{
		Liquidated: sub("a", 0), Offsetting: sub("b", 0), FillAmount: 5, Price: 10,
	})
	_, err := wire.DecodeDeleveragingEventV1(b[:len(b)-1])
	assert.Error(t, err)

	// name sent as a varint
	bad := protowire.AppendTag(nil, 2, protowire.VarintType)
	bad = protowire.AppendVarint(bad, 1)
	_, err = wire.DecodeLiquidityTierUpsertEventV2(bad)
	assert.Error(t, err)
}

func TestOrderIDEncodingIsStable(t *testing.T) {
	id := &event.OrderID{SubaccountID: sub("dydx1x", 0), ClientID: 1, ClobPairID: 0}
	assert.Equal(t, wire.EncodeOrderID(id), wire.EncodeOrderID(id))

	other := *id
	other.ClientID = 2
	assert.NotEqual(t, wire.EncodeOrderID(id), wire.EncodeOrderID(&other))
}

func TestTransferRoundTrip(t *testing.T) {
	in := &event.TransferEventV1{
		AssetID:   0,
		Amount:    5_000_000,
		Sender:    &event.SourceOfFunds{SubaccountID: sub("dydx1a", 1)},
		Recipient: &event.SourceOfFunds{Address: "dydx1wallet"},
	}

	// deprecated sender/recipient subaccount ids in fields 1 and 2
	b := protowire.AppendTag(nil, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, wire.EncodeSubaccountID(sub("old", 0)))
	b = append(b, wire.EncodeTransferEventV1(in)...)

	got, err := wire.DecodeTransferEventV1(b)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000), got.Amount)
	require.NotNil(t, got.Sender)
	require.NotNil(t, got.Sender.SubaccountID)
	assert.Equal(t, "dydx1a", got.Sender.SubaccountID.Owner)
	assert.Equal(t, uint32(1), got.Sender.SubaccountID.Number)
	assert.True(t, got.Sender.IsSet())
	require.NotNil(t, got.Recipient)
	assert.Nil(t, got.Recipient.SubaccountID)
	assert.Equal(t, "dydx1wallet", got.Recipient.Address)

	missing, err := wire.DecodeTransferEventV1(wire.EncodeTransferEventV1(&event.TransferEventV1{Amount: 1}))
	require.NoError(t, err)
	assert.False(t, missing.Sender.IsSet())
	assert.False(t, missing.Recipient.IsSet())
}
