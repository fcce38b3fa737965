package state

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fill is one leg of a matched trade. Created once, never updated.
type Fill struct {
	ID              uuid.UUID
	SubaccountID    uuid.UUID
	Side            OrderSide
	Liquidity       Liquidity
	Type            FillType
	ClobPairID      uint32
	OrderID         *uuid.UUID
	Size            decimal.Decimal
	Price           decimal.Decimal
	QuoteAmount     decimal.Decimal
	EventID         []byte
	TransactionHash string
	CreatedAt       time.Time
	CreatedAtHeight uint32
	ClientMetadata  *uint32
	Fee             decimal.Decimal
}
