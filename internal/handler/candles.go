package handler

import (
	"FillIndexer/internal/cache"
	"FillIndexer/internal/message"
	"FillIndexer/internal/persistence"
	"FillIndexer/internal/state"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CandlesGenerator folds a block's trades into the per-resolution candles of
// every market. It runs inside the block transaction: Load before the
// event handlers, Generate after them.
type CandlesGenerator struct {
	Deps
	blockTime time.Time
	logger    zerolog.Logger

	latest       map[candleKey]*state.Candle
	openInterest map[uint32]decimal.Decimal
}

type candleKey struct {
	ticker     string
	resolution state.CandleResolution
}

// blockCandle is one market's trades within a single block.
type blockCandle struct {
	low, high, open, close decimal.Decimal
	baseVolume, usdVolume  decimal.Decimal
	trades                 int
}

func newBlockCandle(t message.TradeContent) *blockCandle {
	return &blockCandle{
		low:        t.Price,
		high:       t.Price,
		open:       t.Price,
		close:      t.Price,
		baseVolume: t.Size,
		usdVolume:  t.Price.Mul(t.Size),
		trades:     1,
	}
}

func (b *blockCandle) add(t message.TradeContent) {
	if t.Price.LessThan(b.low) {
		b.low = t.Price
	}
	if t.Price.GreaterThan(b.high) {
		b.high = t.Price
	}
	b.close = t.Price
	b.baseVolume = b.baseVolume.Add(t.Size)
	b.usdVolume = b.usdVolume.Add(t.Price.Mul(t.Size))
	b.trades++
}

func NewCandlesGenerator(height uint32, blockTime time.Time, deps Deps) *CandlesGenerator {
	return &CandlesGenerator{
		Deps:      deps,
		blockTime: blockTime,
		logger: deps.Logger.With().
			Str("handler", "CandlesGenerator").
			Uint32("block_height", height).
			Logger(),
	}
}

func (g *CandlesGenerator) Name() string {
	return "CandlesGenerator"
}

// Load reads the latest candles and the open interest before any of the
// block's writes, so a candle opened by this block starts from the
// pre-block open interest.
func (g *CandlesGenerator) Load(ctx context.Context, tx persistence.Tx) error {
	candles, err := g.Store.FindLatestCandles(ctx, tx)
	if err != nil {
		return err
	}
	g.latest = make(map[candleKey]*state.Candle, len(candles))
	for _, c := range candles {
		g.latest[candleKey{c.Ticker, c.Resolution}] = c
	}

	g.openInterest, err = g.Store.OpenInterestLong(ctx, tx)
	return err
}

// Generate writes every candle the block changes and returns one message
// per written candle, ordered by perpetual id then resolution.
func (g *CandlesGenerator) Generate(
	ctx context.Context,
	tx persistence.Tx,
	msgs []message.ConsolidatedMessage,
) ([]message.ConsolidatedMessage, error) {
	if g.latest == nil {
		return nil, fmt.Errorf("candles generator used before Load")
	}
	updates, err := g.blockCandles(msgs)
	if err != nil {
		return nil, err
	}

	var out []message.ConsolidatedMessage
	for _, market := range g.Snapshot.PerpetualMarkets() {
		update := updates[market.Ticker]
		for _, res := range state.CandleResolutions {
			c, err := g.apply(ctx, tx, market, res, update)
			if err != nil {
				return nil, err
			}
			if c == nil {
				continue
			}
			msg, err := message.NewCandleMessage(market.ClobPairID, c)
			if err != nil {
				return nil, err
			}
			out = append(out, msg)
		}
	}

	g.logger.Debug().Int("markets_traded", len(updates)).Int("candles", len(out)).Msg("candles updated")
	return out, nil
}

// blockCandles folds the trade messages, in event order, per ticker.
func (g *CandlesGenerator) blockCandles(msgs []message.ConsolidatedMessage) (map[string]*blockCandle, error) {
	updates := make(map[string]*blockCandle)
	for _, m := range msgs {
		if m.Topic != message.TopicTrades {
			continue
		}
		clobPairID, trades, err := message.ParseTradeMessage(m)
		if err != nil {
			return nil, err
		}
		market, ok := g.Snapshot.PerpetualMarketByClobPairID(clobPairID)
		if !ok {
			g.logger.Error().Uint32("clob_pair_id", clobPairID).Msg("no ticker for traded clob pair")
			return nil, fmt.Errorf("ticker for clob pair %d: %w", clobPairID, persistence.ErrNotFound)
		}
		for _, t := range trades {
			if u, ok := updates[market.Ticker]; ok {
				u.add(t)
			} else {
				updates[market.Ticker] = newBlockCandle(t)
			}
		}
	}
	return updates, nil
}

// apply creates, updates or leaves alone the candle of one market and
// resolution. It returns the written candle, or nil when nothing changed.
//
// A period with no prior candle and no trades stays empty. Once a market
// has a candle, every new period opens one, flat at the previous close when
// the block has no trades.
func (g *CandlesGenerator) apply(
	ctx context.Context,
	tx persistence.Tx,
	market cache.PerpetualMarket,
	res state.CandleResolution,
	update *blockCandle,
) (*state.Candle, error) {
	key := candleKey{market.Ticker, res}
	start := res.StartOf(g.blockTime)
	existing := g.latest[key]

	var c *state.Candle
	switch {
	case existing == nil && update == nil:
		return nil, nil

	case existing == nil || !existing.StartedAt.Equal(start):
		c = g.newCandle(start, market, res, update, existing)
		if err := g.Store.CreateCandle(ctx, tx, c); err != nil {
			return nil, g.candleErr("CreateCandle", c, err)
		}

	case update == nil:
		return nil, nil

	default:
		c = mergeCandle(existing, update)
		if err := g.Store.UpdateCandle(ctx, tx, c); err != nil {
			return nil, g.candleErr("UpdateCandle", c, err)
		}
	}

	g.latest[key] = c
	return c, nil
}

func (g *CandlesGenerator) newCandle(
	start time.Time,
	market cache.PerpetualMarket,
	res state.CandleResolution,
	update *blockCandle,
	previous *state.Candle,
) *state.Candle {
	c := &state.Candle{
		ID:                   state.CandleUUID(start, market.Ticker, res),
		StartedAt:            start,
		Ticker:               market.Ticker,
		Resolution:           res,
		StartingOpenInterest: g.openInterest[market.ID],
	}
	if update == nil {
		c.Low, c.High, c.Open, c.Close = previous.Close, previous.Close, previous.Close, previous.Close
		c.BaseTokenVolume, c.UsdVolume = decimal.Zero, decimal.Zero
		return c
	}
	c.Low, c.High, c.Open, c.Close = update.low, update.high, update.open, update.close
	c.BaseTokenVolume, c.UsdVolume, c.Trades = update.baseVolume, update.usdVolume, update.trades
	return c
}

// mergeCandle extends the current period. A candle opened flat by a block
// without trades takes the first traded block's prices outright.
func mergeCandle(existing *state.Candle, update *blockCandle) *state.Candle {
	c := *existing
	if existing.Trades == 0 {
		c.Low, c.High, c.Open, c.Close = update.low, update.high, update.open, update.close
		c.BaseTokenVolume, c.UsdVolume, c.Trades = update.baseVolume, update.usdVolume, update.trades
		return &c
	}
	c.Low = decimal.Min(existing.Low, update.low)
	c.High = decimal.Max(existing.High, update.high)
	c.Close = update.close
	c.BaseTokenVolume = existing.BaseTokenVolume.Add(update.baseVolume)
	c.UsdVolume = existing.UsdVolume.Add(update.usdVolume)
	c.Trades = existing.Trades + update.trades
	return &c
}

func (g *CandlesGenerator) candleErr(op string, c *state.Candle, err error) error {
	g.logger.Error().Err(err).
		Str("operation", op).
		Str("ticker", c.Ticker).
		Str("resolution", string(c.Resolution)).
		Msg("storage call failed")
	return err
}
