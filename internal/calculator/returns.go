package calculator

import (
	"fmt"

	"SharpeSentinel/internal/model"
)

// SimpleReturns converts a value series into day-over-day simple returns,
// r[t] = v[t]/v[t-1] - 1 for t >= 1. The result has one element fewer than
// the input. A zero previous value yields ±Inf or NaN, never a panic.
func SimpleReturns(values []float64) ([]float64, error) {
	if len(values) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 values for returns, got %d", model.ErrInsufficientData, len(values))
	}
	returns := make([]float64, len(values)-1)
	for t := 1; t < len(values); t++ {
		returns[t-1] = values[t]/values[t-1] - 1
	}
	return returns, nil
}

// ReturnizeZero is SimpleReturns with the first return fixed at 0 and kept,
// so the result has the same length as the input.
func ReturnizeZero(values []float64) ([]float64, error) {
	r, err := SimpleReturns(values)
	if err != nil {
		return nil, err
	}
	return append([]float64{0}, r...), nil
}
