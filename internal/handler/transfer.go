package handler

import (
	"FillIndexer/internal/cache"
	"FillIndexer/internal/event"
	fpmath "FillIndexer/internal/math"
	"FillIndexer/internal/message"
	"FillIndexer/internal/persistence"
	"FillIndexer/internal/state"
	"context"

	"github.com/google/uuid"
)

// TransferHandler records a transfer, deposit or withdrawal and tells each
// subaccount side about it. Balances move through the subaccount update
// event the chain emits alongside.
type TransferHandler struct {
	base
	transfer *event.TransferEventV1
}

func NewTransferHandler(ev *event.ResolvedEvent, txHash string, deps Deps, t *event.TransferEventV1) *TransferHandler {
	return &TransferHandler{base: newBase("TransferHandler", ev, txHash, deps), transfer: t}
}

func (h *TransferHandler) Name() string {
	return "TransferHandler"
}

// ParallelizationKeys is empty: a transfer row is written once and no other
// handler reads it.
func (h *TransferHandler) ParallelizationKeys() []string {
	return []string{}
}

func (h *TransferHandler) Handle(ctx context.Context, tx persistence.Tx) ([]message.ConsolidatedMessage, error) {
	asset, err := h.asset(h.transfer.AssetID)
	if err != nil {
		return nil, err
	}

	t := h.newTransfer(asset)
	if err := h.Store.CreateTransfer(ctx, tx, t); err != nil {
		return nil, h.storeErr("CreateTransfer", err)
	}

	var msgs []message.ConsolidatedMessage
	for _, side := range []*event.SourceOfFunds{h.transfer.Sender, h.transfer.Recipient} {
		if side.SubaccountID == nil {
			continue
		}
		sub := *side.SubaccountID
		contents := message.SubaccountContents{
			BlockHeight: itoa(h.ev.BlockHeight),
		}
		content := message.NewTransferContent(t, h.transfer.Sender, h.transfer.Recipient, asset.Symbol,
			state.SubaccountUUID(sub.Owner, sub.Number))
		contents.Transfers = &content

		msg, err := message.NewSubaccountMessage(h.header(), sub, contents)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (h *TransferHandler) newTransfer(asset cache.Asset) *state.Transfer {
	t := &state.Transfer{
		AssetID:         h.transfer.AssetID,
		Size:            fpmath.QuantumsToHuman(h.transfer.Amount, asset.AtomicResolution),
		EventID:         h.eventID(),
		TransactionHash: h.txHash,
		CreatedAt:       h.ev.BlockTime,
		CreatedAtHeight: h.ev.BlockHeight,
	}
	t.SenderSubaccountID, t.SenderWalletAddress = transferSide(h.transfer.Sender)
	t.RecipientSubaccountID, t.RecipientWalletAddress = transferSide(h.transfer.Recipient)
	t.ID = state.TransferUUID(t.EventID, t.AssetID,
		t.SenderSubaccountID, t.RecipientSubaccountID, t.SenderWalletAddress, t.RecipientWalletAddress)
	return t
}

func transferSide(s *event.SourceOfFunds) (*uuid.UUID, *string) {
	if s.SubaccountID != nil {
		id := state.SubaccountUUID(s.SubaccountID.Owner, s.SubaccountID.Number)
		return &id, nil
	}
	addr := s.Address
	return nil, &addr
}
