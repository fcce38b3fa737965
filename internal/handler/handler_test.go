package handler_test

import (
	"FillIndexer/internal/cache"
	"FillIndexer/internal/event"
	"FillIndexer/internal/handler"
	"FillIndexer/internal/message"
	"FillIndexer/internal/persistence"
	"FillIndexer/internal/state"
	"FillIndexer/internal/testutil"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type markCancels map[uuid.UUID]state.CancelMark

func (m markCancels) CancelMark(_ context.Context, id uuid.UUID) (state.CancelMark, error) {
	return m[id], nil
}

func newDeps(store *testutil.MemoryStore) handler.Deps {
	return handler.Deps{
		Store:          store,
		Snapshot:       testutil.DefaultSnapshot(),
		CanceledOrders: cache.NoCancellations{},
		Logger:         zerolog.Nop(),
	}
}

func runAll(t *testing.T, hs []handler.Handler) ([]message.ConsolidatedMessage, error) {
	t.Helper()
	var out []message.ConsolidatedMessage
	for _, h := range hs {
		msgs, err := h.Handle(context.Background(), nil)
		if err != nil {
			return nil, err
		}
		out = append(out, msgs...)
	}
	return out, nil
}

func byTopic(msgs []message.ConsolidatedMessage, topic message.Topic) []message.ConsolidatedMessage {
	var out []message.ConsolidatedMessage
	for _, m := range msgs {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// makerSellsToTaker: maker sells 1.5 at 100, taker buys with a size 2 order.
func makerSellsToTaker() *event.OrderFillEventV1 {
	maker := testutil.Order(testutil.MakerSubaccount, 1, event.OrderSideSell, "1.5", "100")
	taker := testutil.Order(testutil.TakerSubaccount, 2, event.OrderSideBuy, "2", "101")
	return &event.OrderFillEventV1{
		MakerOrder:       maker,
		Order:            taker,
		FillAmount:       testutil.Quantums("1.5"),
		MakerFee:         -1500,
		TakerFee:         75000,
		TotalFilledMaker: testutil.Quantums("1.5"),
		TotalFilledTaker: testutil.Quantums("1.5"),
	}
}

func TestOrderFillBothLegs(t *testing.T) {
	store := testutil.NewMemoryStore()
	testutil.SeedPosition(store, testutil.MakerSubaccount, state.PositionSideShort, "-1.5", "0", "0", 1)
	testutil.SeedPosition(store, testutil.TakerSubaccount, state.PositionSideLong, "1.5", "0", "0", 1)

	ev := testutil.ResolvedEvent(event.FamilyOrderFill, makerSellsToTaker(), 3, 0, 1)
	hs, err := handler.New(ev, "0xabc", newDeps(store))
	require.NoError(t, err)
	require.Len(t, hs, 2)

	msgs, err := runAll(t, hs)
	require.NoError(t, err)

	eventID := state.EventID(3, 0, 1)
	makerFill, ok := store.Fills[state.FillUUID(eventID, state.LiquidityMaker)]
	require.True(t, ok)
	takerFill, ok := store.Fills[state.FillUUID(eventID, state.LiquidityTaker)]
	require.True(t, ok)

	for _, f := range []state.Fill{makerFill, takerFill} {
		assert.True(t, f.Size.Equal(dec("1.5")), f.Size.String())
		assert.True(t, f.Price.Equal(dec("100")), f.Price.String())
		assert.True(t, f.QuoteAmount.Equal(dec("150")), f.QuoteAmount.String())
		assert.Equal(t, state.FillTypeLimit, f.Type)
		assert.Equal(t, "0xabc", f.TransactionHash)
		assert.Equal(t, uint32(3), f.CreatedAtHeight)
		require.NotNil(t, f.OrderID)
	}
	assert.Equal(t, state.OrderSideSell, makerFill.Side)
	assert.Equal(t, state.OrderSideBuy, takerFill.Side)
	assert.True(t, makerFill.Fee.Equal(dec("-0.0015")), makerFill.Fee.String())
	assert.True(t, takerFill.Fee.Equal(dec("0.075")), takerFill.Fee.String())

	makerOrder := store.Orders[*makerFill.OrderID]
	assert.Equal(t, state.OrderStatusFilled, makerOrder.Status)
	assert.True(t, makerOrder.Price.Equal(dec("100")))
	takerOrder := store.Orders[*takerFill.OrderID]
	assert.Equal(t, state.OrderStatusOpen, takerOrder.Status)
	assert.True(t, takerOrder.TotalFilled.Equal(dec("1.5")))

	makerPos, ok := store.OpenPosition(testutil.SubaccountUUID(testutil.MakerSubaccount), 0)
	require.True(t, ok)
	assert.True(t, makerPos.EntryPrice.Equal(dec("100")), makerPos.EntryPrice.String())
	assert.True(t, makerPos.SumOpen.Equal(dec("1.5")))
	assert.Equal(t, eventID, makerPos.LastEventID)

	assert.Len(t, byTopic(msgs, message.TopicSubaccounts), 2)
	assert.Len(t, byTopic(msgs, message.TopicTrades), 1)
	vulcan := byTopic(msgs, message.TopicVulcan)
	require.Len(t, vulcan, 2)
	for _, m := range vulcan {
		var u message.OffChainUpdate
		require.NoError(t, json.Unmarshal(m.Value, &u))
		assert.NotNil(t, u.OrderUpdate)
		assert.Nil(t, u.OrderRemove, "short-term orders are not removed")
	}
}

func TestOrderFillParallelizationKeys(t *testing.T) {
	ev := testutil.ResolvedEvent(event.FamilyOrderFill, makerSellsToTaker(), 3, 0, 1)
	hs, err := handler.New(ev, "", newDeps(testutil.NewMemoryStore()))
	require.NoError(t, err)

	maker := testutil.SubaccountUUID(testutil.MakerSubaccount)
	makerOrder := state.OrderUUID(maker, 1, 0, event.OrderFlagShortTerm)
	assert.Equal(t, []string{
		"order_fill_" + maker.String() + "_0",
		"SUBACCOUNT_ORDER_FILL_" + maker.String(),
		"STATEFUL_ORDER_" + makerOrder.String(),
	}, hs[0].ParallelizationKeys())

	taker := testutil.SubaccountUUID(testutil.TakerSubaccount)
	assert.Contains(t, hs[1].ParallelizationKeys(), "SUBACCOUNT_ORDER_FILL_"+taker.String())
}

func TestStatefulMakerFullyFilledIsRemoved(t *testing.T) {
	store := testutil.NewMemoryStore()
	testutil.SeedPosition(store, testutil.MakerSubaccount, state.PositionSideShort, "-1.5", "0", "0", 1)
	testutil.SeedPosition(store, testutil.TakerSubaccount, state.PositionSideLong, "1.5", "0", "0", 1)

	fill := makerSellsToTaker()
	fill.MakerOrder.OrderID.OrderFlags = event.OrderFlagLongTerm
	fill.MakerOrder.GoodTilBlock = nil
	gtbt := uint32(1_800_000_000)
	fill.MakerOrder.GoodTilBlockTime = &gtbt

	hs, err := handler.New(testutil.ResolvedEvent(event.FamilyOrderFill, fill, 3, 0, 1), "", newDeps(store))
	require.NoError(t, err)

	msgs, err := hs[0].Handle(context.Background(), nil)
	require.NoError(t, err)

	var removes int
	for _, m := range byTopic(msgs, message.TopicVulcan) {
		var u message.OffChainUpdate
		require.NoError(t, json.Unmarshal(m.Value, &u))
		if u.OrderRemove != nil {
			removes++
			assert.Equal(t, message.OrderIDHash(fill.MakerOrder.OrderID), m.Key)
		}
	}
	assert.Equal(t, 1, removes)
}

func TestFillWithoutOpenPositionIsFatal(t *testing.T) {
	store := testutil.NewMemoryStore()
	hs, err := handler.New(testutil.ResolvedEvent(event.FamilyOrderFill, makerSellsToTaker(), 3, 0, 1), "", newDeps(store))
	require.NoError(t, err)

	_, err = runAll(t, hs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, persistence.ErrNotFound))
}

func TestOrderStatusFromCancellationFeed(t *testing.T) {
	store := testutil.NewMemoryStore()
	testutil.SeedPosition(store, testutil.TakerSubaccount, state.PositionSideLong, "1.5", "0", "0", 1)

	fill := makerSellsToTaker()
	taker := testutil.SubaccountUUID(testutil.TakerSubaccount)
	takerOrderID := state.OrderUUID(taker, 2, 0, event.OrderFlagShortTerm)

	deps := newDeps(store)
	deps.CanceledOrders = markCancels{takerOrderID: state.CancelMarkBestEffort}
	hs, err := handler.New(testutil.ResolvedEvent(event.FamilyOrderFill, fill, 3, 0, 1), "", deps)
	require.NoError(t, err)

	_, err = hs[1].Handle(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, state.OrderStatusBestEffortCanceled, store.Orders[takerOrderID].Status)
}

func TestImmediateOrCancelPartialFillIsCanceled(t *testing.T) {
	store := testutil.NewMemoryStore()
	testutil.SeedPosition(store, testutil.TakerSubaccount, state.PositionSideLong, "1.5", "0", "0", 1)

	fill := makerSellsToTaker()
	fill.Order.TimeInForce = event.TimeInForceIOC
	hs, err := handler.New(testutil.ResolvedEvent(event.FamilyOrderFill, fill, 3, 0, 1), "", newDeps(store))
	require.NoError(t, err)

	_, err = hs[1].Handle(context.Background(), nil)
	require.NoError(t, err)

	taker := testutil.SubaccountUUID(testutil.TakerSubaccount)
	o := store.Orders[state.OrderUUID(taker, 2, 0, event.OrderFlagShortTerm)]
	assert.Equal(t, state.OrderStatusCanceled, o.Status)
	assert.Equal(t, state.TimeInForceIOC, o.TimeInForce)
}

func TestEntryPriceAcrossFills(t *testing.T) {
	store := testutil.NewMemoryStore()
	testutil.SeedPosition(store, testutil.TakerSubaccount, state.PositionSideLong, "4", "0", "0", 1)

	for i, tc := range []struct{ size, price string }{{"1", "100"}, {"1", "200"}, {"2", "400"}} {
		maker := testutil.Order(testutil.MakerSubaccount, uint32(10+i), event.OrderSideSell, tc.size, tc.price)
		taker := testutil.Order(testutil.TakerSubaccount, uint32(20+i), event.OrderSideBuy, tc.size, tc.price)
		fill := &event.OrderFillEventV1{
			MakerOrder:       maker,
			Order:            taker,
			FillAmount:       testutil.Quantums(tc.size),
			TotalFilledTaker: testutil.Quantums(tc.size),
		}
		hs, err := handler.New(testutil.ResolvedEvent(event.FamilyOrderFill, fill, 5, int32(i), 0), "", newDeps(store))
		require.NoError(t, err)
		_, err = hs[1].Handle(context.Background(), nil)
		require.NoError(t, err)
	}

	p, ok := store.OpenPosition(testutil.SubaccountUUID(testutil.TakerSubaccount), 0)
	require.True(t, ok)
	assert.True(t, p.EntryPrice.Equal(dec("275")), p.EntryPrice.String())
	assert.True(t, p.SumOpen.Equal(dec("4")))
	assert.True(t, p.SumClose.IsZero())
	assert.Nil(t, p.ExitPrice)
}

func TestClosingFillRealizesPnl(t *testing.T) {
	store := testutil.NewMemoryStore()
	testutil.SeedPosition(store, testutil.TakerSubaccount, state.PositionSideLong, "2", "100", "2", 1)

	maker := testutil.Order(testutil.MakerSubaccount, 1, event.OrderSideBuy, "1", "130")
	taker := testutil.Order(testutil.TakerSubaccount, 2, event.OrderSideSell, "1", "130")
	fill := &event.OrderFillEventV1{
		MakerOrder:       maker,
		Order:            taker,
		FillAmount:       testutil.Quantums("1"),
		TotalFilledTaker: testutil.Quantums("1"),
	}
	hs, err := handler.New(testutil.ResolvedEvent(event.FamilyOrderFill, fill, 6, 0, 0), "", newDeps(store))
	require.NoError(t, err)
	_, err = hs[1].Handle(context.Background(), nil)
	require.NoError(t, err)

	p, ok := store.OpenPosition(testutil.SubaccountUUID(testutil.TakerSubaccount), 0)
	require.True(t, ok)
	assert.True(t, p.EntryPrice.Equal(dec("100")), "closing fills leave the entry price alone")
	assert.True(t, p.SumOpen.Equal(dec("2")))
	require.NotNil(t, p.ExitPrice)
	assert.True(t, p.ExitPrice.Equal(dec("130")))
	assert.True(t, p.SumClose.Equal(dec("1")))
	assert.True(t, p.TotalRealizedPnl.Equal(dec("30")), p.TotalRealizedPnl.String())
}

func liquidationFill() *event.OrderFillEventV1 {
	maker := testutil.Order(testutil.MakerSubaccount, 1, event.OrderSideBuy, "1", "90")
	liquidated := event.SubaccountID{Owner: "dydx1liquidated", Number: 0}
	return &event.OrderFillEventV1{
		MakerOrder: maker,
		LiquidationOrder: &event.LiquidationOrderV1{
			Liquidated:  &liquidated,
			ClobPairID:  0,
			PerpetualID: 0,
			TotalSize:   testutil.Quantums("1"),
			IsBuy:       false,
			Subticks:    testutil.Subticks("85"),
		},
		FillAmount:       testutil.Quantums("1"),
		TakerFee:         2_000_000,
		TotalFilledMaker: testutil.Quantums("1"),
	}
}

func TestLiquidation(t *testing.T) {
	store := testutil.NewMemoryStore()
	fill := liquidationFill()
	testutil.SeedPosition(store, testutil.MakerSubaccount, state.PositionSideLong, "1", "0", "0", 1)
	testutil.SeedPosition(store, *fill.LiquidationOrder.Liquidated, state.PositionSideLong, "1", "120", "1", 1)

	hs, err := handler.New(testutil.ResolvedEvent(event.FamilyOrderFill, fill, 7, 1, 0), "", newDeps(store))
	require.NoError(t, err)
	require.Len(t, hs, 2)

	assert.Len(t, hs[0].ParallelizationKeys(), 3)
	takerKeys := hs[1].ParallelizationKeys()
	assert.Len(t, takerKeys, 2, "the liquidation taker has no order key")

	msgs, err := runAll(t, hs)
	require.NoError(t, err)

	eventID := state.EventID(7, 1, 0)
	makerFill := store.Fills[state.FillUUID(eventID, state.LiquidityMaker)]
	takerFill := store.Fills[state.FillUUID(eventID, state.LiquidityTaker)]
	assert.Equal(t, state.FillTypeLiquidation, makerFill.Type)
	assert.Equal(t, state.FillTypeLiquidated, takerFill.Type)
	assert.Nil(t, takerFill.OrderID)
	assert.Equal(t, state.OrderSideSell, takerFill.Side)
	assert.True(t, takerFill.Price.Equal(dec("90")), "fills execute at the maker price")
	assert.True(t, takerFill.Fee.Equal(dec("2")))
	assert.Equal(t, testutil.SubaccountUUID(*fill.LiquidationOrder.Liquidated), takerFill.SubaccountID)

	liq, _ := store.OpenPosition(takerFill.SubaccountID, 0)
	assert.True(t, liq.TotalRealizedPnl.Equal(dec("-30")), liq.TotalRealizedPnl.String())

	assert.Len(t, byTopic(msgs, message.TopicVulcan), 1, "only the maker has an order")
	assert.Len(t, byTopic(msgs, message.TopicTrades), 1)
}

func TestDeleveraging(t *testing.T) {
	store := testutil.NewMemoryStore()
	liquidated := event.SubaccountID{Owner: "dydx1liquidated"}
	offsetting := event.SubaccountID{Owner: "dydx1offsetting"}
	testutil.SeedPosition(store, liquidated, state.PositionSideLong, "2", "100", "2", 1)
	testutil.SeedPosition(store, offsetting, state.PositionSideShort, "-2", "100", "2", 1)

	d := &event.DeleveragingEventV1{
		Liquidated:  &liquidated,
		Offsetting:  &offsetting,
		PerpetualID: 0,
		FillAmount:  testutil.Quantums("2"),
		Price:       testutil.Subticks("80"),
		IsBuy:       false,
	}
	hs, err := handler.New(testutil.ResolvedEvent(event.FamilyDeleveraging, d, 8, 0, 2), "", newDeps(store))
	require.NoError(t, err)
	require.Len(t, hs, 1)

	liqID := testutil.SubaccountUUID(liquidated)
	offID := testutil.SubaccountUUID(offsetting)
	keys := hs[0].ParallelizationKeys()
	assert.ElementsMatch(t, []string{
		"deleveraging_" + offID.String() + "_0",
		"deleveraging_" + liqID.String() + "_0",
		"SUBACCOUNT_ORDER_FILL_" + offID.String(),
		"SUBACCOUNT_ORDER_FILL_" + liqID.String(),
	}, keys)

	msgs, err := runAll(t, hs)
	require.NoError(t, err)

	eventID := state.EventID(8, 0, 2)
	liqFill := store.Fills[state.FillUUID(eventID, state.LiquidityTaker)]
	offFill := store.Fills[state.FillUUID(eventID, state.LiquidityMaker)]
	assert.Equal(t, state.FillTypeDeleveraged, liqFill.Type)
	assert.Equal(t, state.OrderSideSell, liqFill.Side)
	assert.Equal(t, state.FillTypeOffsetting, offFill.Type)
	assert.Equal(t, state.OrderSideBuy, offFill.Side)
	assert.True(t, liqFill.Price.Equal(dec("80")))

	assert.Len(t, byTopic(msgs, message.TopicSubaccounts), 2)
	assert.Len(t, byTopic(msgs, message.TopicTrades), 1)
	assert.Empty(t, byTopic(msgs, message.TopicVulcan))
}

func TestFinalSettlementDeleveraging(t *testing.T) {
	store := testutil.NewMemoryStore()
	liquidated := event.SubaccountID{Owner: "dydx1liquidated"}
	offsetting := event.SubaccountID{Owner: "dydx1offsetting"}
	testutil.SeedPosition(store, liquidated, state.PositionSideLong, "1", "100", "1", 1)
	testutil.SeedPosition(store, offsetting, state.PositionSideShort, "-1", "100", "1", 1)

	d := &event.DeleveragingEventV1{
		Liquidated:        &liquidated,
		Offsetting:        &offsetting,
		FillAmount:        testutil.Quantums("1"),
		Price:             testutil.Subticks("100"),
		IsFinalSettlement: true,
	}
	hs, err := handler.New(testutil.ResolvedEvent(event.FamilyDeleveraging, d, 8, 0, 0), "", newDeps(store))
	require.NoError(t, err)
	_, err = runAll(t, hs)
	require.NoError(t, err)

	for _, f := range store.Fills {
		assert.Equal(t, state.FillTypeFinalSettlement, f.Type)
	}
}

func TestDeleveragingUnknownMarket(t *testing.T) {
	liquidated := event.SubaccountID{Owner: "a"}
	offsetting := event.SubaccountID{Owner: "b"}
	d := &event.DeleveragingEventV1{Liquidated: &liquidated, Offsetting: &offsetting, PerpetualID: 99, FillAmount: 1}
	_, err := handler.New(testutil.ResolvedEvent(event.FamilyDeleveraging, d, 8, 0, 0), "", newDeps(testutil.NewMemoryStore()))
	assert.True(t, errors.Is(err, persistence.ErrNotFound))
}

func TestSubaccountUpdateLifecycle(t *testing.T) {
	store := testutil.NewMemoryStore()
	sub := event.SubaccountID{Owner: "dydx1sub", Number: 1}
	subID := testutil.SubaccountUUID(sub)

	apply := func(height uint32, quantums int64) []message.ConsolidatedMessage {
		u := &event.SubaccountUpdateEventV1{
			SubaccountID: &sub,
			UpdatedPerpetualPositions: []event.PerpetualPositionUpdate{
				{PerpetualID: 0, Quantums: big.NewInt(quantums)},
			},
			UpdatedAssetPositions: []event.AssetPositionUpdate{
				{AssetID: 0, Quantums: big.NewInt(-5_000_000)},
			},
		}
		hs, err := handler.New(testutil.ResolvedEvent(event.FamilySubaccountUpdate, u, height, 0, 0), "", newDeps(store))
		require.NoError(t, err)
		msgs, err := runAll(t, hs)
		require.NoError(t, err)
		return msgs
	}

	msgs := apply(10, 20_000_000_000)
	require.Len(t, msgs, 1)
	p, ok := store.OpenPosition(subID, 0)
	require.True(t, ok)
	assert.Equal(t, state.PositionSideLong, p.Side)
	assert.True(t, p.Size.Equal(dec("2")))
	firstID := p.ID

	apply(11, 30_000_000_000)
	p, _ = store.OpenPosition(subID, 0)
	assert.Equal(t, firstID, p.ID)
	assert.True(t, p.MaxSize.Equal(dec("3")))

	apply(12, -10_000_000_000)
	p, ok = store.OpenPosition(subID, 0)
	require.True(t, ok)
	assert.NotEqual(t, firstID, p.ID)
	assert.Equal(t, state.PositionSideShort, p.Side)
	assert.Equal(t, state.PositionStatusClosed, store.Positions[firstID].Status)

	apply(13, 0)
	_, ok = store.OpenPosition(subID, 0)
	assert.False(t, ok)

	a := store.AssetPositions[state.AssetPositionUUID(subID, 0)]
	assert.True(t, a.Size.Equal(dec("5")))
	assert.False(t, a.IsLong)
}

func TestSubaccountUpdateSharesKeyWithFills(t *testing.T) {
	u := &event.SubaccountUpdateEventV1{SubaccountID: &testutil.MakerSubaccount}
	deps := newDeps(testutil.NewMemoryStore())

	us, err := handler.New(testutil.ResolvedEvent(event.FamilySubaccountUpdate, u, 3, 0, 0), "", deps)
	require.NoError(t, err)
	fs, err := handler.New(testutil.ResolvedEvent(event.FamilyOrderFill, makerSellsToTaker(), 3, 0, 1), "", deps)
	require.NoError(t, err)

	shared := "SUBACCOUNT_ORDER_FILL_" + testutil.SubaccountUUID(testutil.MakerSubaccount).String()
	assert.Contains(t, us[0].ParallelizationKeys(), shared)
	assert.Contains(t, fs[0].ParallelizationKeys(), shared)
}

func TestLiquidityTierV2(t *testing.T) {
	store := testutil.NewMemoryStore()
	e := &event.LiquidityTierUpsertEventV2{
		ID:                     0,
		Name:                   "Large-Cap",
		InitialMarginPpm:       50_000,
		MaintenanceFractionPpm: 600_000,
		OpenInterestLowerCap:   25_000_000_000_000,
		OpenInterestUpperCap:   50_000_000_000_000,
	}
	ev := testutil.ResolvedEvent(event.FamilyLiquidityTier, e, 2, -2, 0)
	ev.Decoded.Version = 2
	hs, err := handler.New(ev, "", newDeps(store))
	require.NoError(t, err)
	assert.Equal(t, []string{"liquidity_tier_0"}, hs[0].ParallelizationKeys())

	msgs, err := runAll(t, hs)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, message.TopicMarkets, msgs[0].Topic)

	tier := store.LiquidityTiers[0]
	require.NotNil(t, tier.OpenInterestUpperCap)
	assert.True(t, tier.OpenInterestUpperCap.Equal(dec("50000000")))

	var got struct {
		Contents struct {
			PerpetualMarkets map[string]struct {
				InitialMarginFraction     string `json:"initialMarginFraction"`
				MaintenanceMarginFraction string `json:"maintenanceMarginFraction"`
			} `json:"perpetualMarkets"`
		} `json:"contents"`
	}
	require.NoError(t, json.Unmarshal(msgs[0].Value, &got))
	m, ok := got.Contents.PerpetualMarkets["0"]
	require.True(t, ok)
	assert.Equal(t, "0.05", m.InitialMarginFraction)
	assert.Equal(t, "0.03", m.MaintenanceMarginFraction)
}

func TestDisjointFillsShareNoKeys(t *testing.T) {
	deps := newDeps(testutil.NewMemoryStore())
	keys := func(maker, taker event.SubaccountID, makerClient, takerClient uint32, eventIndex uint32) map[string]bool {
		fill := &event.OrderFillEventV1{
			MakerOrder: testutil.Order(maker, makerClient, event.OrderSideSell, "1", "100"),
			Order:      testutil.Order(taker, takerClient, event.OrderSideBuy, "1", "100"),
			FillAmount: testutil.Quantums("1"),
		}
		hs, err := handler.New(testutil.ResolvedEvent(event.FamilyOrderFill, fill, 3, 0, eventIndex), "", deps)
		require.NoError(t, err)
		out := make(map[string]bool)
		for _, h := range hs {
			for _, k := range h.ParallelizationKeys() {
				out[k] = true
			}
		}
		return out
	}

	a := keys(testutil.MakerSubaccount, testutil.TakerSubaccount, 1, 2, 0)
	b := keys(event.SubaccountID{Owner: "dydx1other", Number: 0}, event.SubaccountID{Owner: "dydx1third", Number: 1}, 3, 4, 1)
	require.NotEmpty(t, a)
	require.NotEmpty(t, b)
	for k := range a {
		assert.False(t, b[k], "key %s shared by disjoint fills", k)
	}

	// the same maker order in another fill does collide
	c := keys(testutil.MakerSubaccount, event.SubaccountID{Owner: "dydx1third", Number: 1}, 1, 4, 2)
	shared := 0
	for k := range a {
		if c[k] {
			shared++
		}
	}
	assert.Positive(t, shared)
}
