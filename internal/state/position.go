package state

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PerpetualPosition is a subaccount's position in one perpetual market. A
// fill writes either (SumOpen, EntryPrice) or (SumClose, ExitPrice), never both.
type PerpetualPosition struct {
	ID               uuid.UUID
	SubaccountID     uuid.UUID
	PerpetualID      uint32
	Side             PositionSide
	Status           PositionStatus
	Size             decimal.Decimal // signed, negative when short
	MaxSize          decimal.Decimal
	EntryPrice       decimal.Decimal
	ExitPrice        *decimal.Decimal
	SumOpen          decimal.Decimal
	SumClose         decimal.Decimal
	TotalRealizedPnl decimal.Decimal
	CreatedAt        time.Time
	CreatedAtHeight  uint32
	OpenEventID      []byte
	LastEventID      []byte
	ClosedAt         *time.Time
	ClosedAtHeight   *uint32
	ClosedEventID    []byte
}

func (p *PerpetualPosition) IsLong() bool {
	return p.Side == PositionSideLong
}

// OpensExposure reports whether a fill on orderSide grows the position
// (LONG+BUY, SHORT+SELL) rather than reducing it.
func OpensExposure(side PositionSide, orderSide OrderSide) bool {
	return (side == PositionSideLong && orderSide == OrderSideBuy) ||
		(side == PositionSideShort && orderSide == OrderSideSell)
}

// PositionSideFromSize maps a signed size to a side. Zero is LONG.
func PositionSideFromSize(size decimal.Decimal) PositionSide {
	if size.IsNegative() {
		return PositionSideShort
	}
	return PositionSideLong
}

// PositionQuery selects perpetual positions. Zero fields are not filtered on.
// Results are ordered by CreatedAtHeight descending.
type PositionQuery struct {
	SubaccountID uuid.UUID
	PerpetualID  *uint32
	Status       PositionStatus
	Limit        int
}
