package message

import (
	"FillIndexer/internal/event"
	fpmath "FillIndexer/internal/math"
	"FillIndexer/internal/state"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SubaccountContents struct {
	Fills              []FillContent          `json:"fills,omitempty"`
	Orders             []OrderContent         `json:"orders,omitempty"`
	PerpetualPositions []PositionContent      `json:"perpetualPositions,omitempty"`
	AssetPositions     []AssetPositionContent `json:"assetPositions,omitempty"`
	Transfers          *TransferContent       `json:"transfers,omitempty"`
	BlockHeight        string                 `json:"blockHeight"`
}

type FillContent struct {
	ID              uuid.UUID       `json:"id"`
	SubaccountID    uuid.UUID       `json:"subaccountId"`
	Side            state.OrderSide `json:"side"`
	Liquidity       state.Liquidity `json:"liquidity"`
	Type            state.FillType  `json:"type"`
	ClobPairID      string          `json:"clobPairId"`
	OrderID         *uuid.UUID      `json:"orderId,omitempty"`
	Size            decimal.Decimal `json:"size"`
	Price           decimal.Decimal `json:"price"`
	QuoteAmount     decimal.Decimal `json:"quoteAmount"`
	EventID         string          `json:"eventId"`
	TransactionHash string          `json:"transactionHash"`
	CreatedAt       string          `json:"createdAt"`
	CreatedAtHeight string          `json:"createdAtHeight"`
	ClientMetadata  *string         `json:"clientMetadata,omitempty"`
	Fee             decimal.Decimal `json:"fee"`
	Ticker          string          `json:"ticker"`
}

func NewFillContent(f *state.Fill, ticker string) FillContent {
	c := FillContent{
		ID:              f.ID,
		SubaccountID:    f.SubaccountID,
		Side:            f.Side,
		Liquidity:       f.Liquidity,
		Type:            f.Type,
		ClobPairID:      u32(f.ClobPairID),
		OrderID:         f.OrderID,
		Size:            f.Size,
		Price:           f.Price,
		QuoteAmount:     f.QuoteAmount,
		EventID:         hex.EncodeToString(f.EventID),
		TransactionHash: f.TransactionHash,
		CreatedAt:       isoTime(f.CreatedAt),
		CreatedAtHeight: u32(f.CreatedAtHeight),
		Fee:             f.Fee,
		Ticker:          ticker,
	}
	if f.ClientMetadata != nil {
		m := u32(*f.ClientMetadata)
		c.ClientMetadata = &m
	}
	return c
}

type OrderContent struct {
	ID               uuid.UUID         `json:"id"`
	SubaccountID     uuid.UUID         `json:"subaccountId"`
	ClientID         string            `json:"clientId"`
	ClobPairID       string            `json:"clobPairId"`
	Side             state.OrderSide   `json:"side"`
	Size             decimal.Decimal   `json:"size"`
	TotalFilled      decimal.Decimal   `json:"totalFilled"`
	Price            decimal.Decimal   `json:"price"`
	Type             state.OrderType   `json:"type"`
	Status           state.OrderStatus `json:"status"`
	TimeInForce      state.TimeInForce `json:"timeInForce"`
	PostOnly         bool              `json:"postOnly"`
	ReduceOnly       bool              `json:"reduceOnly"`
	OrderFlags       string            `json:"orderFlags"`
	GoodTilBlock     *string           `json:"goodTilBlock,omitempty"`
	GoodTilBlockTime *string           `json:"goodTilBlockTime,omitempty"`
	ClientMetadata   string            `json:"clientMetadata"`
	TriggerPrice     *decimal.Decimal  `json:"triggerPrice,omitempty"`
	UpdatedAt        string            `json:"updatedAt"`
	UpdatedAtHeight  string            `json:"updatedAtHeight"`
	Ticker           string            `json:"ticker"`
}

// NewOrderContent renders an order the way the API does: POST_ONLY is
// reported as GTT with postOnly set.
func NewOrderContent(o *state.Order, ticker string) OrderContent {
	c := OrderContent{
		ID:              o.ID,
		SubaccountID:    o.SubaccountID,
		ClientID:        u32(o.ClientID),
		ClobPairID:      u32(o.ClobPairID),
		Side:            o.Side,
		Size:            o.Size,
		TotalFilled:     o.TotalFilled,
		Price:           o.Price,
		Type:            o.Type,
		Status:          o.Status,
		TimeInForce:     APITimeInForce(o.TimeInForce),
		PostOnly:        o.TimeInForce == state.TimeInForcePostOnly,
		ReduceOnly:      o.ReduceOnly,
		OrderFlags:      u32(o.OrderFlags),
		ClientMetadata:  u32(o.ClientMetadata),
		TriggerPrice:    o.TriggerPrice,
		UpdatedAt:       isoTime(o.UpdatedAt),
		UpdatedAtHeight: u32(o.UpdatedAtHeight),
		Ticker:          ticker,
	}
	if o.GoodTilBlock != nil {
		s := u32(*o.GoodTilBlock)
		c.GoodTilBlock = &s
	}
	if o.GoodTilBlockTime != nil {
		s := isoTime(*o.GoodTilBlockTime)
		c.GoodTilBlockTime = &s
	}
	return c
}

// APITimeInForce folds POST_ONLY into GTT.
func APITimeInForce(tif state.TimeInForce) state.TimeInForce {
	if tif == state.TimeInForcePostOnly {
		return state.TimeInForceGTT
	}
	return tif
}

type PositionContent struct {
	Address          string               `json:"address"`
	SubaccountNumber uint32               `json:"subaccountNumber"`
	PositionID       uuid.UUID            `json:"positionId"`
	Market           string               `json:"market"`
	Side             state.PositionSide   `json:"side"`
	Status           state.PositionStatus `json:"status"`
	Size             decimal.Decimal      `json:"size"`
	MaxSize          decimal.Decimal      `json:"maxSize"`
	EntryPrice       decimal.Decimal      `json:"entryPrice"`
	ExitPrice        *decimal.Decimal     `json:"exitPrice,omitempty"`
	SumOpen          decimal.Decimal      `json:"sumOpen"`
	SumClose         decimal.Decimal      `json:"sumClose"`
	RealizedPnl      decimal.Decimal      `json:"realizedPnl"`
	UnrealizedPnl    *decimal.Decimal     `json:"unrealizedPnl,omitempty"`
}

// NewPositionContent annotates the position with unrealized PnL when an
// oracle price is known for its market.
func NewPositionContent(
	sub event.SubaccountID,
	p *state.PerpetualPosition,
	ticker string,
	oraclePrice *decimal.Decimal,
) PositionContent {
	c := PositionContent{
		Address:          sub.Owner,
		SubaccountNumber: sub.Number,
		PositionID:       p.ID,
		Market:           ticker,
		Side:             p.Side,
		Status:           p.Status,
		Size:             p.Size,
		MaxSize:          p.MaxSize,
		EntryPrice:       p.EntryPrice,
		ExitPrice:        p.ExitPrice,
		SumOpen:          p.SumOpen,
		SumClose:         p.SumClose,
		RealizedPnl:      p.TotalRealizedPnl,
	}
	if oraclePrice != nil {
		pnl := fpmath.ComputeUnrealizedPnL(p.IsLong(), *oraclePrice, p.EntryPrice, p.Size.Abs())
		c.UnrealizedPnl = &pnl
	}
	return c
}

type AssetPositionContent struct {
	Address          string          `json:"address"`
	SubaccountNumber uint32          `json:"subaccountNumber"`
	PositionID       uuid.UUID       `json:"positionId"`
	AssetID          string          `json:"assetId"`
	Symbol           string          `json:"symbol"`
	Side             string          `json:"side"`
	Size             decimal.Decimal `json:"size"`
}

func NewAssetPositionContent(sub event.SubaccountID, a *state.AssetPosition, symbol string) AssetPositionContent {
	side := string(state.PositionSideLong)
	if !a.IsLong {
		side = string(state.PositionSideShort)
	}
	return AssetPositionContent{
		Address:          sub.Owner,
		SubaccountNumber: sub.Number,
		PositionID:       a.ID,
		AssetID:          u32(a.AssetID),
		Symbol:           symbol,
		Side:             side,
		Size:             a.Size,
	}
}

type TradeContents struct {
	Trades []TradeContent `json:"trades"`
}

type TradeType string

const (
	TradeTypeLimit       TradeType = "LIMIT"
	TradeTypeLiquidated  TradeType = "LIQUIDATED"
	TradeTypeDeleveraged TradeType = "DELEVERAGED"
)

// TradeTypeFromFill collapses both legs of a liquidation or deleveraging
// into one trade type.
func TradeTypeFromFill(t state.FillType) TradeType {
	switch t {
	case state.FillTypeLiquidated, state.FillTypeLiquidation:
		return TradeTypeLiquidated
	case state.FillTypeDeleveraged, state.FillTypeOffsetting, state.FillTypeFinalSettlement:
		return TradeTypeDeleveraged
	default:
		return TradeTypeLimit
	}
}

type TradeContent struct {
	ID        string          `json:"id"`
	Size      decimal.Decimal `json:"size"`
	Price     decimal.Decimal `json:"price"`
	Side      state.OrderSide `json:"side"`
	CreatedAt string          `json:"createdAt"`
	Type      TradeType       `json:"type"`
}

// NewTradeContent uses the hex event id as the trade id, shared by both legs.
func NewTradeContent(f *state.Fill) TradeContent {
	return TradeContent{
		ID:        hex.EncodeToString(f.EventID),
		Size:      f.Size,
		Price:     f.Price,
		Side:      f.Side,
		CreatedAt: isoTime(f.CreatedAt),
		Type:      TradeTypeFromFill(f.Type),
	}
}

// TransferParty is a subaccount, or a bare wallet address for the outside
// side of a deposit or withdrawal.
type TransferParty struct {
	Address          string  `json:"address"`
	SubaccountNumber *uint32 `json:"subaccountNumber,omitempty"`
}

func NewTransferParty(s *event.SourceOfFunds) TransferParty {
	if s.SubaccountID != nil {
		n := s.SubaccountID.Number
		return TransferParty{Address: s.SubaccountID.Owner, SubaccountNumber: &n}
	}
	return TransferParty{Address: s.Address}
}

type TransferContent struct {
	Sender          TransferParty      `json:"sender"`
	Recipient       TransferParty      `json:"recipient"`
	Symbol          string             `json:"symbol"`
	Size            decimal.Decimal    `json:"size"`
	Type            state.TransferType `json:"type"`
	CreatedAt       string             `json:"createdAt"`
	CreatedAtHeight string             `json:"createdAtHeight"`
	TransactionHash string             `json:"transactionHash"`
}

// NewTransferContent renders t as seen by the subaccount the message is
// addressed to.
func NewTransferContent(
	t *state.Transfer,
	sender, recipient *event.SourceOfFunds,
	symbol string,
	subaccount uuid.UUID,
) TransferContent {
	return TransferContent{
		Sender:          NewTransferParty(sender),
		Recipient:       NewTransferParty(recipient),
		Symbol:          symbol,
		Size:            t.Size,
		Type:            t.TransferTypeFor(subaccount),
		CreatedAt:       isoTime(t.CreatedAt),
		CreatedAtHeight: u32(t.CreatedAtHeight),
		TransactionHash: t.TransactionHash,
	}
}

type CandleContent struct {
	StartedAt            string                 `json:"startedAt"`
	Ticker               string                 `json:"ticker"`
	Resolution           state.CandleResolution `json:"resolution"`
	Low                  decimal.Decimal        `json:"low"`
	High                 decimal.Decimal        `json:"high"`
	Open                 decimal.Decimal        `json:"open"`
	Close                decimal.Decimal        `json:"close"`
	BaseTokenVolume      decimal.Decimal        `json:"baseTokenVolume"`
	UsdVolume            decimal.Decimal        `json:"usdVolume"`
	Trades               int                    `json:"trades"`
	StartingOpenInterest decimal.Decimal        `json:"startingOpenInterest"`
}

func NewCandleContent(c *state.Candle) CandleContent {
	return CandleContent{
		StartedAt:            isoTime(c.StartedAt),
		Ticker:               c.Ticker,
		Resolution:           c.Resolution,
		Low:                  c.Low,
		High:                 c.High,
		Open:                 c.Open,
		Close:                c.Close,
		BaseTokenVolume:      c.BaseTokenVolume,
		UsdVolume:            c.UsdVolume,
		Trades:               c.Trades,
		StartingOpenInterest: c.StartingOpenInterest,
	}
}

type MarketContents struct {
	LiquidityTiers   map[string]LiquidityTierContent   `json:"liquidityTiers,omitempty"`
	PerpetualMarkets map[string]PerpetualMarketContent `json:"perpetualMarkets,omitempty"`
}

type LiquidityTierContent struct {
	ID                     uint32           `json:"id"`
	Name                   string           `json:"name"`
	InitialMarginPpm       string           `json:"initialMarginPpm"`
	MaintenanceFractionPpm string           `json:"maintenanceFractionPpm"`
	BasePositionNotional   decimal.Decimal  `json:"basePositionNotional"`
	OpenInterestLowerCap   *decimal.Decimal `json:"openInterestLowerCap,omitempty"`
	OpenInterestUpperCap   *decimal.Decimal `json:"openInterestUpperCap,omitempty"`
}

func NewLiquidityTierContent(t *state.LiquidityTier) LiquidityTierContent {
	return LiquidityTierContent{
		ID:                     t.ID,
		Name:                   t.Name,
		InitialMarginPpm:       u32(t.InitialMarginPpm),
		MaintenanceFractionPpm: u32(t.MaintenanceFractionPpm),
		BasePositionNotional:   t.BasePositionNotional,
		OpenInterestLowerCap:   t.OpenInterestLowerCap,
		OpenInterestUpperCap:   t.OpenInterestUpperCap,
	}
}

// PerpetualMarketContent carries the margin fractions a market inherits from
// its liquidity tier.
type PerpetualMarketContent struct {
	ID                        string           `json:"id"`
	ClobPairID                string           `json:"clobPairId"`
	Ticker                    string           `json:"ticker"`
	LiquidityTierID           uint32           `json:"liquidityTierId"`
	InitialMarginFraction     decimal.Decimal  `json:"initialMarginFraction"`
	MaintenanceMarginFraction decimal.Decimal  `json:"maintenanceMarginFraction"`
	OpenInterestLowerCap      *decimal.Decimal `json:"openInterestLowerCap,omitempty"`
	OpenInterestUpperCap      *decimal.Decimal `json:"openInterestUpperCap,omitempty"`
}

func u32(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}

func isoTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
