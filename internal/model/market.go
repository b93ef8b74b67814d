package model

import "time"

// OHLCV represents a single daily candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// DateKey returns the calendar day of the bar in UTC, used to align symbols.
func (b OHLCV) DateKey() string {
	return b.Time.UTC().Format("2006-01-02")
}

// PriceSeries holds the raw daily bars of one symbol.
type PriceSeries struct {
	Symbol    string
	DailyBars []OHLCV
	FetchedAt time.Time
}
