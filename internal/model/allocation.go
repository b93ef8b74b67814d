package model

import (
	"math"
	"time"
)

// Allocation holds one weight per symbol, in symbol order.
type Allocation []float64

// Sum returns the total weight.
func (a Allocation) Sum() float64 {
	s := 0.0
	for _, w := range a {
		s += w
	}
	return s
}

// Clone returns an independent copy.
func (a Allocation) Clone() Allocation {
	if a == nil {
		return nil
	}
	out := make(Allocation, len(a))
	copy(out, a)
	return out
}

// PerformanceResult holds the statistics of one simulated allocation.
type PerformanceResult struct {
	Volatility       float64 `json:"volatility"`
	MeanDailyReturn  float64 `json:"mean_daily_return"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	CumulativeReturn float64 `json:"cumulative_return"`
}

// Finite reports whether the Sharpe ratio is a usable number.
func (p PerformanceResult) Finite() bool {
	return !math.IsNaN(p.SharpeRatio) && !math.IsInf(p.SharpeRatio, 0)
}

// BestResult is the running best of an allocation search.
type BestResult struct {
	Allocation Allocation `json:"allocation"`
	Units      []int      `json:"units"`
	// Index is the enumeration position of the winner, -1 for the sentinel.
	Index int `json:"index"`
	PerformanceResult
	Evaluated int `json:"evaluated"`
	Skipped   int `json:"skipped"`
}

// NewSentinel returns the initial best: zero allocation, all stats zero.
func NewSentinel(n int) *BestResult {
	return &BestResult{
		Allocation: make(Allocation, n),
		Units:      make([]int, n),
		Index:      -1,
	}
}

// IsSentinel reports whether no candidate ever beat the initial best.
func (b *BestResult) IsSentinel() bool {
	return b.Index < 0
}

// Report is the full outcome of one optimisation run, as shown to users.
type Report struct {
	Symbols        []string      `json:"symbols"`
	Start          time.Time     `json:"start"`
	End            time.Time     `json:"end"`
	TradingDays    int           `json:"trading_days"`
	Units          int           `json:"units"`
	Best           *BestResult   `json:"best"`
	MaxDrawdown    float64       `json:"max_drawdown"`
	CompoundReturn float64       `json:"compound_return"`
	Dates          []time.Time   `json:"-"`
	Values         []float64     `json:"-"`
	LastCloses     []float64     `json:"last_closes"`
	Elapsed        time.Duration `json:"elapsed"`
	FinishedAt     time.Time     `json:"finished_at"`
}
