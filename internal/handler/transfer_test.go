package handler_test

import (
	"FillIndexer/internal/event"
	"FillIndexer/internal/handler"
	"FillIndexer/internal/message"
	"FillIndexer/internal/state"
	"FillIndexer/internal/testutil"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transferMessage struct {
	SubaccountID struct {
		Owner string `json:"owner"`
	} `json:"subaccountId"`
	Contents struct {
		Transfers struct {
			Sender struct {
				Address          string  `json:"address"`
				SubaccountNumber *uint32 `json:"subaccountNumber"`
			} `json:"sender"`
			Recipient struct {
				Address string `json:"address"`
			} `json:"recipient"`
			Symbol          string `json:"symbol"`
			Size            string `json:"size"`
			Type            string `json:"type"`
			CreatedAtHeight string `json:"createdAtHeight"`
			TransactionHash string `json:"transactionHash"`
		} `json:"transfers"`
	} `json:"contents"`
}

func decodeTransfers(t *testing.T, msgs []message.ConsolidatedMessage) []transferMessage {
	t.Helper()
	out := make([]transferMessage, len(msgs))
	for i, m := range msgs {
		require.Equal(t, message.TopicSubaccounts, m.Topic)
		require.NoError(t, json.Unmarshal(m.Value, &out[i]))
	}
	return out
}

func runTransfer(t *testing.T, store *testutil.MemoryStore, tr *event.TransferEventV1) []message.ConsolidatedMessage {
	t.Helper()
	ev := testutil.ResolvedEvent(event.FamilyTransfer, tr, 5, 1, 2)
	hs, err := handler.New(ev, "0xabc", newDeps(store))
	require.NoError(t, err)
	require.Len(t, hs, 1)
	assert.Equal(t, []string{}, hs[0].ParallelizationKeys())

	msgs, err := runAll(t, hs)
	require.NoError(t, err)
	return msgs
}

func TestTransferBetweenSubaccounts(t *testing.T) {
	store := testutil.NewMemoryStore()
	msgs := runTransfer(t, store, &event.TransferEventV1{
		AssetID:   0,
		Amount:    5_000_000,
		Sender:    &event.SourceOfFunds{SubaccountID: &testutil.MakerSubaccount},
		Recipient: &event.SourceOfFunds{SubaccountID: &testutil.TakerSubaccount},
	})

	got := decodeTransfers(t, msgs)
	require.Len(t, got, 2)
	assert.Equal(t, testutil.MakerSubaccount.Owner, got[0].SubaccountID.Owner)
	assert.Equal(t, "TRANSFER_OUT", got[0].Contents.Transfers.Type)
	assert.Equal(t, testutil.TakerSubaccount.Owner, got[1].SubaccountID.Owner)
	assert.Equal(t, "TRANSFER_IN", got[1].Contents.Transfers.Type)

	first := got[0].Contents.Transfers
	assert.Equal(t, "5", first.Size)
	assert.Equal(t, "USDC", first.Symbol)
	assert.Equal(t, "5", first.CreatedAtHeight)
	assert.Equal(t, "0xabc", first.TransactionHash)
	require.NotNil(t, first.Sender.SubaccountNumber)
	assert.Equal(t, testutil.MakerSubaccount.Owner, first.Sender.Address)

	require.Len(t, store.Transfers, 1)
	for _, tr := range store.Transfers {
		assert.True(t, tr.Size.Equal(dec("5")))
		assert.Equal(t, state.EventID(5, 1, 2), tr.EventID)
		require.NotNil(t, tr.SenderSubaccountID)
		assert.Equal(t, testutil.SubaccountUUID(testutil.MakerSubaccount), *tr.SenderSubaccountID)
		require.NotNil(t, tr.RecipientSubaccountID)
		assert.Nil(t, tr.SenderWalletAddress)
		assert.Nil(t, tr.RecipientWalletAddress)
	}
}

func TestTransferDeposit(t *testing.T) {
	store := testutil.NewMemoryStore()
	msgs := runTransfer(t, store, &event.TransferEventV1{
		Amount:    1_250_000,
		Sender:    &event.SourceOfFunds{Address: "dydx1wallet"},
		Recipient: &event.SourceOfFunds{SubaccountID: &testutil.TakerSubaccount},
	})

	got := decodeTransfers(t, msgs)
	require.Len(t, got, 1)
	assert.Equal(t, testutil.TakerSubaccount.Owner, got[0].SubaccountID.Owner)
	assert.Equal(t, "DEPOSIT", got[0].Contents.Transfers.Type)
	assert.Equal(t, "dydx1wallet", got[0].Contents.Transfers.Sender.Address)
	assert.Nil(t, got[0].Contents.Transfers.Sender.SubaccountNumber)
	assert.Equal(t, "1.25", got[0].Contents.Transfers.Size)

	for _, tr := range store.Transfers {
		require.NotNil(t, tr.SenderWalletAddress)
		assert.Equal(t, "dydx1wallet", *tr.SenderWalletAddress)
		assert.Nil(t, tr.SenderSubaccountID)
	}
}

func TestTransferWithdrawal(t *testing.T) {
	store := testutil.NewMemoryStore()
	msgs := runTransfer(t, store, &event.TransferEventV1{
		Amount:    2_000_000,
		Sender:    &event.SourceOfFunds{SubaccountID: &testutil.MakerSubaccount},
		Recipient: &event.SourceOfFunds{Address: "dydx1wallet"},
	})

	got := decodeTransfers(t, msgs)
	require.Len(t, got, 1)
	assert.Equal(t, testutil.MakerSubaccount.Owner, got[0].SubaccountID.Owner)
	assert.Equal(t, "WITHDRAWAL", got[0].Contents.Transfers.Type)
	assert.Equal(t, "dydx1wallet", got[0].Contents.Transfers.Recipient.Address)
}

func TestTransferIDCoversBothSides(t *testing.T) {
	eventID := state.EventID(5, 1, 2)
	maker := testutil.SubaccountUUID(testutil.MakerSubaccount)
	taker := testutil.SubaccountUUID(testutil.TakerSubaccount)
	wallet := "dydx1wallet"

	a := state.TransferUUID(eventID, 0, &maker, &taker, nil, nil)
	b := state.TransferUUID(eventID, 0, &taker, &maker, nil, nil)
	c := state.TransferUUID(eventID, 0, nil, &taker, &wallet, nil)
	d := state.TransferUUID(eventID, 1, &maker, &taker, nil, nil)

	assert.Equal(t, a, state.TransferUUID(eventID, 0, &maker, &taker, nil, nil))
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
}

func TestTransferUnknownAsset(t *testing.T) {
	ev := testutil.ResolvedEvent(event.FamilyTransfer, &event.TransferEventV1{
		AssetID:   7,
		Amount:    1,
		Sender:    &event.SourceOfFunds{SubaccountID: &testutil.MakerSubaccount},
		Recipient: &event.SourceOfFunds{SubaccountID: &testutil.TakerSubaccount},
	}, 5, 0, 0)
	store := testutil.NewMemoryStore()
	hs, err := handler.New(ev, "", newDeps(store))
	require.NoError(t, err)

	_, err = runAll(t, hs)
	assert.Error(t, err)
	assert.Empty(t, store.Transfers)
}
