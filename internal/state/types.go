package state

import "FillIndexer/internal/event"

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderSideFromProtocol maps the chain side. Unspecified maps to "" and is
// rejected by validation before it can reach storage.
func OrderSideFromProtocol(s event.OrderSide) OrderSide {
	switch s {
	case event.OrderSideBuy:
		return OrderSideBuy
	case event.OrderSideSell:
		return OrderSideSell
	default:
		return ""
	}
}

func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

type Liquidity string

const (
	LiquidityMaker Liquidity = "MAKER"
	LiquidityTaker Liquidity = "TAKER"
)

type FillType string

const (
	FillTypeLimit           FillType = "LIMIT"
	FillTypeLiquidated      FillType = "LIQUIDATED"
	FillTypeLiquidation     FillType = "LIQUIDATION"
	FillTypeDeleveraged     FillType = "DELEVERAGED"
	FillTypeOffsetting      FillType = "OFFSETTING"
	FillTypeFinalSettlement FillType = "FINAL_SETTLEMENT"
)

type OrderType string

const (
	OrderTypeLimit      OrderType = "LIMIT"
	OrderTypeStopLimit  OrderType = "STOP_LIMIT"
	OrderTypeTakeProfit OrderType = "TAKE_PROFIT"
)

func OrderTypeFromProtocol(o *event.Order) OrderType {
	switch o.ConditionType {
	case event.ConditionTypeStopLoss:
		return OrderTypeStopLimit
	case event.ConditionTypeTakeProfit:
		return OrderTypeTakeProfit
	default:
		return OrderTypeLimit
	}
}

type TimeInForce string

const (
	TimeInForceGTT      TimeInForce = "GTT"
	TimeInForceIOC      TimeInForce = "IOC"
	TimeInForcePostOnly TimeInForce = "POST_ONLY"
	TimeInForceFOK      TimeInForce = "FOK"
)

func TimeInForceFromProtocol(t event.TimeInForce) TimeInForce {
	switch t {
	case event.TimeInForceIOC:
		return TimeInForceIOC
	case event.TimeInForcePostOnly:
		return TimeInForcePostOnly
	case event.TimeInForceFillOrKill:
		return TimeInForceFOK
	default:
		return TimeInForceGTT
	}
}

type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "OPEN"
	PositionStatusClosed PositionStatus = "CLOSED"
)
