// Package enumerator generates the discretized allocation grid: every way to
// split a fixed number of units into n ordered non-negative parts.
package enumerator

import (
	"fmt"

	"gonum.org/v1/gonum/stat/combin"

	"SharpeSentinel/internal/model"
)

// DefaultUnits is the default grid granularity (10 units = 10% steps).
const DefaultUnits = 10

// Enumerator walks the compositions of units into n parts in lexicographic
// ascending order. It is lazy, finite and restartable via Reset.
type Enumerator struct {
	n       int
	units   int
	current []int
	started bool
	done    bool
}

// New creates an Enumerator. n must be >= 1 and units >= 0.
func New(n, units int) (*Enumerator, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: n must be >= 1, got %d", model.ErrInvalidArgument, n)
	}
	if units < 0 {
		return nil, fmt.Errorf("%w: units must be >= 0, got %d", model.ErrInvalidArgument, units)
	}
	return &Enumerator{n: n, units: units, current: make([]int, n)}, nil
}

// N returns the number of parts per composition.
func (e *Enumerator) N() int { return e.n }

// Units returns the total every composition sums to.
func (e *Enumerator) Units() int { return e.units }

// Reset rewinds the enumerator to the first composition.
func (e *Enumerator) Reset() {
	e.started = false
	e.done = false
}

// Next returns the next composition, or false when the sequence is exhausted.
// The returned slice is a fresh copy owned by the caller.
func (e *Enumerator) Next() ([]int, bool) {
	if e.done {
		return nil, false
	}
	if !e.started {
		e.started = true
		for i := range e.current {
			e.current[i] = 0
		}
		e.current[e.n-1] = e.units
		return e.snapshot(), true
	}
	if !e.advance() {
		e.done = true
		return nil, false
	}
	return e.snapshot(), true
}

// advance moves current to its lexicographic successor. The suffix after the
// pivot always has all of its mass in the last slot, so the successor bumps
// the rightmost position that still has units to its right and pushes the
// remainder back to the end.
func (e *Enumerator) advance() bool {
	suffix := 0
	for i := e.n - 2; i >= 0; i-- {
		suffix += e.current[i+1]
		if suffix > 0 {
			e.current[i]++
			for j := i + 1; j < e.n-1; j++ {
				e.current[j] = 0
			}
			e.current[e.n-1] = suffix - 1
			return true
		}
	}
	return false
}

func (e *Enumerator) snapshot() []int {
	out := make([]int, e.n)
	copy(out, e.current)
	return out
}

// All materialises the remaining compositions.
func (e *Enumerator) All() [][]int {
	out := make([][]int, 0, Count(e.n, e.units))
	for {
		c, ok := e.Next()
		if !ok {
			return out
		}
		out = append(out, c)
	}
}

// Count returns the number of compositions of units into n parts,
// C(units+n-1, n-1). It returns 0 for invalid arguments.
func Count(n, units int) int {
	if n < 1 || units < 0 {
		return 0
	}
	return combin.Binomial(units+n-1, n-1)
}

// Weights scales a composition by 1/units into an allocation.
// units == 0 yields the all-zero allocation.
func Weights(parts []int, units int) model.Allocation {
	alloc := make(model.Allocation, len(parts))
	if units == 0 {
		return alloc
	}
	for i, p := range parts {
		alloc[i] = float64(p) / float64(units)
	}
	return alloc
}
