package state

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transfer moves an asset between two subaccounts, or between a wallet and
// a subaccount. Exactly one of the subaccount or wallet fields is set on
// each side.
type Transfer struct {
	ID                     uuid.UUID
	SenderSubaccountID     *uuid.UUID
	RecipientSubaccountID  *uuid.UUID
	SenderWalletAddress    *string
	RecipientWalletAddress *string
	AssetID                uint32
	Size                   decimal.Decimal
	EventID                []byte
	TransactionHash        string
	CreatedAt              time.Time
	CreatedAtHeight        uint32
}

type TransferType string

const (
	TransferTypeTransferIn  TransferType = "TRANSFER_IN"
	TransferTypeTransferOut TransferType = "TRANSFER_OUT"
	TransferTypeDeposit     TransferType = "DEPOSIT"
	TransferTypeWithdrawal  TransferType = "WITHDRAWAL"
)

// TransferTypeFor classifies t from the point of view of subaccount.
func (t *Transfer) TransferTypeFor(subaccount uuid.UUID) TransferType {
	switch {
	case t.SenderWalletAddress != nil:
		return TransferTypeDeposit
	case t.RecipientWalletAddress != nil:
		return TransferTypeWithdrawal
	case t.SenderSubaccountID != nil && *t.SenderSubaccountID == subaccount:
		return TransferTypeTransferOut
	default:
		return TransferTypeTransferIn
	}
}

// TransferUUID covers both sides and the asset. Absent sides hash as
// "undefined".
func TransferUUID(
	eventID []byte,
	assetID uint32,
	senderSubaccount, recipientSubaccount *uuid.UUID,
	senderWallet, recipientWallet *string,
) uuid.UUID {
	return derive(fmt.Sprintf("%s-%s-%s-%s-%s-%d",
		optionalID(senderSubaccount), optionalID(recipientSubaccount),
		optionalString(senderWallet), optionalString(recipientWallet),
		hex.EncodeToString(eventID), assetID))
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return "undefined"
	}
	return id.String()
}

func optionalString(s *string) string {
	if s == nil {
		return "undefined"
	}
	return *s
}
