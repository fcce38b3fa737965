// Package message builds the notifications published after a block commits.
package message

import (
	"FillIndexer/internal/event"
	"FillIndexer/internal/state"
	"FillIndexer/internal/wire"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

type Topic string

const (
	TopicSubaccounts Topic = "to-websockets-subaccounts"
	TopicTrades      Topic = "to-websockets-trades"
	TopicMarkets     Topic = "to-websockets-markets"
	TopicCandles     Topic = "to-websockets-candles"
	TopicVulcan      Topic = "to-vulcan"
)

// Envelope schema versions. Bump when a consumer-visible field changes.
const (
	SubaccountMessageVersion = 3
	TradeMessageVersion      = 2
	MarketMessageVersion     = 1
	CandleMessageVersion     = 1
)

// ConsolidatedMessage is one outbound record. Key selects the partition on
// keyed transports and may be nil.
type ConsolidatedMessage struct {
	Topic Topic
	Key   []byte
	Value []byte
}

// Publisher sends messages in order. A returned error means some messages
// may not have been delivered.
type Publisher interface {
	Publish(ctx context.Context, msgs []ConsolidatedMessage) error
}

// Header positions a message in the chain's event order.
type Header struct {
	BlockHeight      uint32
	TransactionIndex int32
	EventIndex       uint32
}

type SubaccountRef struct {
	Owner  string `json:"owner"`
	Number uint32 `json:"number"`
}

func NewSubaccountRef(id event.SubaccountID) SubaccountRef {
	return SubaccountRef{Owner: id.Owner, Number: id.Number}
}

type subaccountEnvelope struct {
	Version          int                `json:"version"`
	BlockHeight      uint32             `json:"blockHeight"`
	TransactionIndex int32              `json:"transactionIndex"`
	EventIndex       uint32             `json:"eventIndex"`
	SubaccountID     SubaccountRef      `json:"subaccountId"`
	Contents         SubaccountContents `json:"contents"`
}

type tradeEnvelope struct {
	Version          int           `json:"version"`
	BlockHeight      uint32        `json:"blockHeight"`
	TransactionIndex int32         `json:"transactionIndex"`
	EventIndex       uint32        `json:"eventIndex"`
	ClobPairID       string        `json:"clobPairId"`
	Contents         TradeContents `json:"contents"`
}

type candleEnvelope struct {
	Version    int                    `json:"version"`
	ClobPairID string                 `json:"clobPairId"`
	Resolution state.CandleResolution `json:"resolution"`
	Contents   CandleContent          `json:"contents"`
}

type marketEnvelope struct {
	Version  int            `json:"version"`
	Contents MarketContents `json:"contents"`
}

// NewSubaccountMessage is keyed by the protobuf encoding of the subaccount id
// so all updates for one subaccount land on the same partition.
func NewSubaccountMessage(h Header, sub event.SubaccountID, contents SubaccountContents) (ConsolidatedMessage, error) {
	value, err := json.Marshal(subaccountEnvelope{
		Version:          SubaccountMessageVersion,
		BlockHeight:      h.BlockHeight,
		TransactionIndex: h.TransactionIndex,
		EventIndex:       h.EventIndex,
		SubaccountID:     NewSubaccountRef(sub),
		Contents:         contents,
	})
	if err != nil {
		return ConsolidatedMessage{}, fmt.Errorf("marshal subaccount message: %w", err)
	}
	return ConsolidatedMessage{
		Topic: TopicSubaccounts,
		Key:   wire.EncodeSubaccountID(&sub),
		Value: value,
	}, nil
}

func NewTradeMessage(h Header, clobPairID uint32, trades []TradeContent) (ConsolidatedMessage, error) {
	id := strconv.FormatUint(uint64(clobPairID), 10)
	value, err := json.Marshal(tradeEnvelope{
		Version:          TradeMessageVersion,
		BlockHeight:      h.BlockHeight,
		TransactionIndex: h.TransactionIndex,
		EventIndex:       h.EventIndex,
		ClobPairID:       id,
		Contents:         TradeContents{Trades: trades},
	})
	if err != nil {
		return ConsolidatedMessage{}, fmt.Errorf("marshal trade message: %w", err)
	}
	return ConsolidatedMessage{Topic: TopicTrades, Key: []byte(id), Value: value}, nil
}

func NewMarketMessage(contents MarketContents) (ConsolidatedMessage, error) {
	value, err := json.Marshal(marketEnvelope{Version: MarketMessageVersion, Contents: contents})
	if err != nil {
		return ConsolidatedMessage{}, fmt.Errorf("marshal market message: %w", err)
	}
	return ConsolidatedMessage{Topic: TopicMarkets, Value: value}, nil
}

// ParseTradeMessage reads the clob pair and trades back out of a message
// built by NewTradeMessage.
func ParseTradeMessage(m ConsolidatedMessage) (uint32, []TradeContent, error) {
	if m.Topic != TopicTrades {
		return 0, nil, fmt.Errorf("parse trade message: topic %s", m.Topic)
	}
	var env tradeEnvelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return 0, nil, fmt.Errorf("parse trade message: %w", err)
	}
	id, err := strconv.ParseUint(env.ClobPairID, 10, 32)
	if err != nil {
		return 0, nil, fmt.Errorf("parse trade message clob pair %q: %w", env.ClobPairID, err)
	}
	return uint32(id), env.Contents.Trades, nil
}

// NewCandleMessage is keyed by clob pair like trades.
func NewCandleMessage(clobPairID uint32, c *state.Candle) (ConsolidatedMessage, error) {
	id := strconv.FormatUint(uint64(clobPairID), 10)
	value, err := json.Marshal(candleEnvelope{
		Version:    CandleMessageVersion,
		ClobPairID: id,
		Resolution: c.Resolution,
		Contents:   NewCandleContent(c),
	})
	if err != nil {
		return ConsolidatedMessage{}, fmt.Errorf("marshal candle message: %w", err)
	}
	return ConsolidatedMessage{Topic: TopicCandles, Key: []byte(id), Value: value}, nil
}
