// Package portfolio simulates a static allocation held over a normalized
// price window and reports its return statistics.
package portfolio

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"SharpeSentinel/internal/calculator"
	"SharpeSentinel/internal/model"
)

// Options tunes the simulation.
type Options struct {
	// TradingDays is the Sharpe annualization factor.
	TradingDays float64
	// PadFirstReturn keeps a leading zero return in the series (returnize0),
	// so the series has one return per row.
	PadFirstReturn bool
}

// DefaultOptions returns 252 trading days and no padding.
func DefaultOptions() Options {
	return Options{TradingDays: calculator.DefaultTradingDays}
}

// Series returns the daily value of the weighted portfolio: for each row the
// sum over columns of normalized price times weight. Every row is summed in
// the same column order, so identical rows give identical values.
func Series(m *NormalizedPriceMatrix, alloc model.Allocation) ([]float64, error) {
	rows, cols := m.Dims()
	if len(alloc) != cols {
		return nil, fmt.Errorf("%w: allocation has %d weights for %d symbols", model.ErrInvalidArgument, len(alloc), cols)
	}
	out := make([]float64, rows)
	row := make([]float64, cols)
	for i := range out {
		mat.Row(row, i, m.data)
		out[i] = floats.Dot(row, alloc)
	}
	return out, nil
}

// Simulate computes volatility, mean daily return, Sharpe ratio and linear
// cumulative return for one allocation. A zero-volatility allocation yields a
// non-finite Sharpe ratio rather than an error.
func Simulate(m *NormalizedPriceMatrix, alloc model.Allocation, opts Options) (model.PerformanceResult, error) {
	rows, _ := m.Dims()
	if rows < 2 {
		return model.PerformanceResult{}, fmt.Errorf("%w: need at least 2 price rows, got %d", model.ErrInsufficientData, rows)
	}
	values, err := Series(m, alloc)
	if err != nil {
		return model.PerformanceResult{}, err
	}

	var returns []float64
	if opts.PadFirstReturn {
		returns, err = calculator.ReturnizeZero(values)
	} else {
		returns, err = calculator.SimpleReturns(values)
	}
	if err != nil {
		return model.PerformanceResult{}, err
	}

	mean, vol, err := calculator.MeanVolatility(returns)
	if err != nil {
		return model.PerformanceResult{}, fmt.Errorf("%w: %v", model.ErrInsufficientData, err)
	}

	tradingDays := opts.TradingDays
	if tradingDays <= 0 {
		tradingDays = calculator.DefaultTradingDays
	}

	return model.PerformanceResult{
		Volatility:       vol,
		MeanDailyReturn:  mean,
		SharpeRatio:      calculator.SharpeRatio(mean, vol, tradingDays),
		CumulativeReturn: calculator.LinearCumulativeReturn(returns),
	}, nil
}
