package message

import (
	"FillIndexer/internal/event"
	"FillIndexer/internal/wire"
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// OrderIDHash is the order-book service's key for an order: sha256 of the
// protobuf-encoded order id.
func OrderIDHash(id *event.OrderID) []byte {
	sum := sha256.Sum256(wire.EncodeOrderID(id))
	return sum[:]
}

type OrderIDContent struct {
	SubaccountID SubaccountRef `json:"subaccountId"`
	ClientID     uint32        `json:"clientId"`
	OrderFlags   uint32        `json:"orderFlags"`
	ClobPairID   uint32        `json:"clobPairId"`
}

func newOrderIDContent(id *event.OrderID) OrderIDContent {
	c := OrderIDContent{ClientID: id.ClientID, OrderFlags: id.OrderFlags, ClobPairID: id.ClobPairID}
	if id.SubaccountID != nil {
		c.SubaccountID = NewSubaccountRef(*id.SubaccountID)
	}
	return c
}

type OrderUpdate struct {
	OrderID             OrderIDContent `json:"orderId"`
	TotalFilledQuantums uint64         `json:"totalFilledQuantums,string"`
}

// Removal reasons and statuses understood by the order-book service.
const (
	RemovalReasonFullyFilled = "ORDER_REMOVAL_REASON_FULLY_FILLED"
	RemovalStatusFilled      = "ORDER_REMOVAL_STATUS_FILLED"
)

type OrderRemove struct {
	RemovedOrderID OrderIDContent `json:"removedOrderId"`
	Reason         string         `json:"reason"`
	RemovalStatus  string         `json:"removalStatus"`
}

// OffChainUpdate holds exactly one of its fields.
type OffChainUpdate struct {
	OrderUpdate *OrderUpdate `json:"orderUpdate,omitempty"`
	OrderRemove *OrderRemove `json:"orderRemove,omitempty"`
}

// NewOrderUpdateMessage tells the order book how much of an order is filled.
func NewOrderUpdateMessage(id *event.OrderID, totalFilledQuantums uint64) (ConsolidatedMessage, error) {
	return newVulcanMessage(id, OffChainUpdate{OrderUpdate: &OrderUpdate{
		OrderID:             newOrderIDContent(id),
		TotalFilledQuantums: totalFilledQuantums,
	}})
}

// NewOrderRemoveMessage removes a fully filled order from the order book.
func NewOrderRemoveMessage(id *event.OrderID) (ConsolidatedMessage, error) {
	return newVulcanMessage(id, OffChainUpdate{OrderRemove: &OrderRemove{
		RemovedOrderID: newOrderIDContent(id),
		Reason:         RemovalReasonFullyFilled,
		RemovalStatus:  RemovalStatusFilled,
	}})
}

func newVulcanMessage(id *event.OrderID, update OffChainUpdate) (ConsolidatedMessage, error) {
	value, err := json.Marshal(update)
	if err != nil {
		return ConsolidatedMessage{}, fmt.Errorf("marshal off-chain update: %w", err)
	}
	return ConsolidatedMessage{Topic: TopicVulcan, Key: OrderIDHash(id), Value: value}, nil
}
