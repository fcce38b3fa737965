package state

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusOpen               OrderStatus = "OPEN"
	OrderStatusFilled             OrderStatus = "FILLED"
	OrderStatusCanceled           OrderStatus = "CANCELED"
	OrderStatusBestEffortCanceled OrderStatus = "BEST_EFFORT_CANCELED"
)

// IsTerminal reports whether no later fill can change the status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCanceled
}

// CanTransitionTo validates order status transitions. Orders never reopen.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case OrderStatusOpen:
		return true
	case OrderStatusBestEffortCanceled:
		return next == OrderStatusFilled || next == OrderStatusCanceled
	default:
		return false
	}
}

// CancelMark is what the upstream cancellation feed says about an order.
type CancelMark int

const (
	CancelMarkNone CancelMark = iota
	CancelMarkBestEffort
	CancelMarkCanceled
)

// NextOrderStatus derives the status of an order after a fill. current is nil
// for an order seen for the first time. expiresOnFill is true for short-term
// IOC and FOK orders, which are dead once a fill leaves them partially filled.
func NextOrderStatus(
	current *OrderStatus,
	totalFilled, size decimal.Decimal,
	mark CancelMark,
	expiresOnFill bool,
) OrderStatus {
	if current != nil && current.IsTerminal() {
		return *current
	}

	var next OrderStatus
	switch {
	case totalFilled.GreaterThanOrEqual(size):
		next = OrderStatusFilled
	case mark == CancelMarkCanceled, expiresOnFill:
		next = OrderStatusCanceled
	case mark == CancelMarkBestEffort:
		next = OrderStatusBestEffortCanceled
	case current != nil && *current == OrderStatusBestEffortCanceled:
		next = OrderStatusBestEffortCanceled
	default:
		next = OrderStatusOpen
	}

	if current != nil && !current.CanTransitionTo(next) {
		return *current
	}
	return next
}

// Order is the persisted aggregate of an order, keyed by ID (derived from
// subaccount, client id, clob pair and flags).
type Order struct {
	ID               uuid.UUID
	SubaccountID     uuid.UUID
	ClientID         uint32
	ClobPairID       uint32
	Side             OrderSide
	Size             decimal.Decimal
	TotalFilled      decimal.Decimal
	Price            decimal.Decimal
	Type             OrderType
	Status           OrderStatus
	TimeInForce      TimeInForce
	ReduceOnly       bool
	OrderFlags       uint32
	GoodTilBlock     *uint32
	GoodTilBlockTime *time.Time
	ClientMetadata   uint32
	TriggerPrice     *decimal.Decimal
	UpdatedAt        time.Time
	UpdatedAtHeight  uint32
}
