package calculator

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultTradingDays is the annualization factor for daily returns.
const DefaultTradingDays = 252.0

// MeanVolatility returns the arithmetic mean and the population standard
// deviation of the returns.
func MeanVolatility(returns []float64) (mean, volatility float64, err error) {
	if len(returns) == 0 {
		return 0, 0, errors.New("no returns provided")
	}
	mean, volatility = stat.PopMeanStdDev(returns, nil)
	return mean, volatility, nil
}

// SharpeRatio annualizes mean/volatility with sqrt(tradingDays). A zero
// volatility produces NaN or ±Inf; callers decide how to treat it.
func SharpeRatio(mean, volatility, tradingDays float64) float64 {
	return math.Sqrt(tradingDays) * mean / volatility
}

// LinearCumulativeReturn is 1 + sum(returns), a linear stand-in for
// compounding that the reported numbers have always used.
func LinearCumulativeReturn(returns []float64) float64 {
	return 1 + floats.Sum(returns)
}

// CompoundReturn is the geometric growth prod(1+r) - 1.
func CompoundReturn(returns []float64) float64 {
	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}
	return growth - 1
}
