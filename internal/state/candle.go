package state

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CandleResolution string

const (
	CandleResolutionOneMinute      CandleResolution = "1MIN"
	CandleResolutionFiveMinutes    CandleResolution = "5MINS"
	CandleResolutionFifteenMinutes CandleResolution = "15MINS"
	CandleResolutionThirtyMinutes  CandleResolution = "30MINS"
	CandleResolutionOneHour        CandleResolution = "1HOUR"
	CandleResolutionFourHours      CandleResolution = "4HOURS"
	CandleResolutionOneDay         CandleResolution = "1DAY"
)

// CandleResolutions lists every resolution, shortest first. Candle writes
// and messages follow this order.
var CandleResolutions = []CandleResolution{
	CandleResolutionOneMinute,
	CandleResolutionFiveMinutes,
	CandleResolutionFifteenMinutes,
	CandleResolutionThirtyMinutes,
	CandleResolutionOneHour,
	CandleResolutionFourHours,
	CandleResolutionOneDay,
}

var candleSeconds = map[CandleResolution]int64{
	CandleResolutionOneMinute:      60,
	CandleResolutionFiveMinutes:    5 * 60,
	CandleResolutionFifteenMinutes: 15 * 60,
	CandleResolutionThirtyMinutes:  30 * 60,
	CandleResolutionOneHour:        60 * 60,
	CandleResolutionFourHours:      4 * 60 * 60,
	CandleResolutionOneDay:         24 * 60 * 60,
}

// StartOf truncates t to the start of the resolution period containing it,
// counted from the Unix epoch in UTC.
func (r CandleResolution) StartOf(t time.Time) time.Time {
	secs := t.Unix()
	return time.Unix(secs-secs%candleSeconds[r], 0).UTC()
}

// Candle is the OHLCV summary of one market over one resolution period.
type Candle struct {
	ID                   uuid.UUID
	StartedAt            time.Time
	Ticker               string
	Resolution           CandleResolution
	Low                  decimal.Decimal
	High                 decimal.Decimal
	Open                 decimal.Decimal
	Close                decimal.Decimal
	BaseTokenVolume      decimal.Decimal
	UsdVolume            decimal.Decimal
	Trades               int
	StartingOpenInterest decimal.Decimal
}

func CandleUUID(startedAt time.Time, ticker string, resolution CandleResolution) uuid.UUID {
	return derive(fmt.Sprintf("%s-%s-%s", startedAt.UTC().Format(time.RFC3339), ticker, resolution))
}
