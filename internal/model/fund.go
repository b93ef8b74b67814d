package model

import "time"

// AllocationState is the persisted outcome of the most recent run, used to
// build capital plans and to report drift between runs.
type AllocationState struct {
	Capital            float64    `json:"capital"`
	Symbols            []string   `json:"symbols"`
	Allocation         Allocation `json:"allocation"`
	PreviousSymbols    []string   `json:"previous_symbols,omitempty"`
	PreviousAllocation Allocation `json:"previous_allocation,omitempty"`
	SharpeRatio        float64    `json:"sharpe_ratio"`
	LastCloses         []float64  `json:"last_closes"`
	PriceDate          time.Time  `json:"price_date"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Position is the capital assigned to one symbol.
type Position struct {
	Symbol string  `json:"symbol"`
	Weight float64 `json:"weight"`
	Amount float64 `json:"amount"`
	Price  float64 `json:"price"`
	Shares int     `json:"shares"`
}

// Plan splits the configured capital according to the current allocation.
type Plan struct {
	Capital   float64    `json:"capital"`
	Positions []Position `json:"positions"`
	Invested  float64    `json:"invested"`
	Cash      float64    `json:"cash"`
	PriceDate time.Time  `json:"price_date"`
}

// Drift is the weight change of one symbol between two runs.
type Drift struct {
	Symbol   string  `json:"symbol"`
	Previous float64 `json:"previous"`
	Current  float64 `json:"current"`
	Change   float64 `json:"change"`
}
