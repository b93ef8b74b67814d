package portfolio

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"SharpeSentinel/internal/model"
)

// PriceMatrix holds closing prices: rows are trading days in chronological
// order, columns are symbols in caller order. It has no missing entries.
type PriceMatrix struct {
	symbols []string
	dates   []time.Time
	data    *mat.Dense
}

// NewPriceMatrix validates rows and builds a PriceMatrix. dates may be nil;
// when present it must have one entry per row.
func NewPriceMatrix(symbols []string, dates []time.Time, rows [][]float64) (*PriceMatrix, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: price matrix needs at least 1 row", model.ErrInvalidArgument)
	}
	cols := len(rows[0])
	if cols == 0 {
		return nil, fmt.Errorf("%w: price matrix needs at least 1 column", model.ErrInvalidArgument)
	}
	if symbols != nil && len(symbols) != cols {
		return nil, fmt.Errorf("%w: %d symbols for %d columns", model.ErrInvalidArgument, len(symbols), cols)
	}
	if dates != nil && len(dates) != len(rows) {
		return nil, fmt.Errorf("%w: %d dates for %d rows", model.ErrInvalidArgument, len(dates), len(rows))
	}

	flat := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", model.ErrInvalidArgument, i, len(row), cols)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return nil, fmt.Errorf("%w: invalid price %v at row %d column %d", model.ErrInvalidArgument, v, i, j)
			}
		}
		flat = append(flat, row...)
	}

	if symbols == nil {
		symbols = make([]string, cols)
		for j := range symbols {
			symbols[j] = fmt.Sprintf("S%d", j)
		}
	}

	return &PriceMatrix{
		symbols: append([]string(nil), symbols...),
		dates:   append([]time.Time(nil), dates...),
		data:    mat.NewDense(len(rows), cols, flat),
	}, nil
}

// Dims returns the number of rows (days) and columns (symbols).
func (p *PriceMatrix) Dims() (rows, cols int) { return p.data.Dims() }

// Symbols returns a copy of the column symbols.
func (p *PriceMatrix) Symbols() []string { return append([]string(nil), p.symbols...) }

// Dates returns a copy of the row dates (nil when unknown).
func (p *PriceMatrix) Dates() []time.Time { return append([]time.Time(nil), p.dates...) }

// At returns the price at row i, column j.
func (p *PriceMatrix) At(i, j int) float64 { return p.data.At(i, j) }

// LastRow returns a copy of the most recent prices.
func (p *PriceMatrix) LastRow() []float64 {
	r, _ := p.data.Dims()
	return mat.Row(nil, r-1, p.data)
}

// NormalizedPriceMatrix is a PriceMatrix rescaled so every column starts at
// 1.0. It is read-only after construction.
type NormalizedPriceMatrix struct {
	symbols []string
	dates   []time.Time
	data    *mat.Dense
}

// Normalize divides every column by its first-row value.
func Normalize(p *PriceMatrix) (*NormalizedPriceMatrix, error) {
	rows, cols := p.Dims()
	out := mat.NewDense(rows, cols, nil)
	for j := 0; j < cols; j++ {
		base := p.data.At(0, j)
		if base == 0 {
			return nil, fmt.Errorf("%w: zero base price for %s", model.ErrInvalidArgument, p.symbols[j])
		}
		for i := 0; i < rows; i++ {
			out.Set(i, j, p.data.At(i, j)/base)
		}
	}
	return &NormalizedPriceMatrix{symbols: p.Symbols(), dates: p.Dates(), data: out}, nil
}

// NewNormalized builds a NormalizedPriceMatrix from already-normalized rows.
// The first row must be all 1.0.
func NewNormalized(symbols []string, rows [][]float64) (*NormalizedPriceMatrix, error) {
	p, err := NewPriceMatrix(symbols, nil, rows)
	if err != nil {
		return nil, err
	}
	for j, v := range rows[0] {
		if v != 1 {
			return nil, fmt.Errorf("%w: normalized column %d starts at %v", model.ErrInvalidArgument, j, v)
		}
	}
	return &NormalizedPriceMatrix{symbols: p.symbols, dates: p.dates, data: p.data}, nil
}

// Dims returns the number of rows (days) and columns (symbols).
func (n *NormalizedPriceMatrix) Dims() (rows, cols int) { return n.data.Dims() }

// Symbols returns a copy of the column symbols.
func (n *NormalizedPriceMatrix) Symbols() []string { return append([]string(nil), n.symbols...) }

// Dates returns a copy of the row dates (nil when unknown).
func (n *NormalizedPriceMatrix) Dates() []time.Time { return append([]time.Time(nil), n.dates...) }

// At returns the normalized price at row i, column j.
func (n *NormalizedPriceMatrix) At(i, j int) float64 { return n.data.At(i, j) }
