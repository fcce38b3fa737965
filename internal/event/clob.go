package event

import "strconv"

// Order flag classes. Flags are not a bitmask: an order carries exactly one.
const (
	OrderFlagShortTerm    uint32 = 0
	OrderFlagConditional  uint32 = 32
	OrderFlagLongTerm     uint32 = 64
	OrderFlagTwap         uint32 = 128
	OrderFlagTwapSuborder uint32 = 256
)

// IsStatefulOrderFlags reports whether orders with these flags live in chain
// state (and so cannot be replaced until the next block).
func IsStatefulOrderFlags(flags uint32) bool {
	switch flags {
	case OrderFlagConditional, OrderFlagLongTerm, OrderFlagTwap:
		return true
	default:
		return false
	}
}

type OrderSide int32

const (
	OrderSideUnspecified OrderSide = 0
	OrderSideBuy         OrderSide = 1
	OrderSideSell        OrderSide = 2
)

func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "SIDE_BUY"
	case OrderSideSell:
		return "SIDE_SELL"
	default:
		return "SIDE_UNSPECIFIED"
	}
}

type TimeInForce int32

const (
	TimeInForceUnspecified TimeInForce = 0
	TimeInForceIOC         TimeInForce = 1
	TimeInForcePostOnly    TimeInForce = 2
	TimeInForceFillOrKill  TimeInForce = 3
)

type ConditionType int32

const (
	ConditionTypeUnspecified ConditionType = 0
	ConditionTypeStopLoss    ConditionType = 1
	ConditionTypeTakeProfit  ConditionType = 2
)

// SubaccountID identifies a subaccount by owner address and number.
type SubaccountID struct {
	Owner  string
	Number uint32
}

func (s SubaccountID) String() string {
	return s.Owner + "/" + strconv.FormatUint(uint64(s.Number), 10)
}

// OrderID identifies an order on chain.
type OrderID struct {
	SubaccountID *SubaccountID
	ClientID     uint32
	OrderFlags   uint32
	ClobPairID   uint32
}

// Order is an order as carried inside fill events. At most one of
// GoodTilBlock and GoodTilBlockTime is set.
type Order struct {
	OrderID                         *OrderID
	Side                            OrderSide
	Quantums                        uint64
	Subticks                        uint64
	GoodTilBlock                    *uint32
	GoodTilBlockTime                *uint32
	TimeInForce                     TimeInForce
	ReduceOnly                      bool
	ClientMetadata                  uint32
	ConditionType                   ConditionType
	ConditionalOrderTriggerSubticks uint64
}
