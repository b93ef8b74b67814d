// Package runner wires price collection, normalization and the allocation
// search into one report-producing call shared by the CLI, the scheduler
// and the HTTP API.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"SharpeSentinel/internal/calculator"
	"SharpeSentinel/internal/model"
	"SharpeSentinel/internal/optimizer"
	"SharpeSentinel/internal/portfolio"
)

// PriceSource supplies aligned closing prices.
type PriceSource interface {
	FetchPrices(ctx context.Context, symbols []string, start, end time.Time) (*portfolio.PriceMatrix, error)
}

// Runner executes optimisation runs one at a time.
type Runner struct {
	mu     sync.Mutex
	source PriceSource
	opt    *optimizer.Optimizer
	log    zerolog.Logger
}

// New creates a Runner searching with cfg.
func New(source PriceSource, cfg optimizer.Config, log zerolog.Logger) *Runner {
	return &Runner{
		source: source,
		opt:    optimizer.New(cfg, nil, log),
		log:    log.With().Str("component", "runner").Logger(),
	}
}

// Run fetches prices for symbols over [start, end] and returns the report of
// the best allocation.
func (r *Runner) Run(ctx context.Context, symbols []string, start, end time.Time) (*model.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	began := time.Now()
	prices, err := r.source.FetchPrices(ctx, symbols, start, end)
	if err != nil {
		return nil, err
	}
	rep, err := r.evaluate(ctx, prices)
	if err != nil {
		return nil, err
	}
	rep.Start, rep.End = start, end
	rep.Elapsed = time.Since(began)
	rep.FinishedAt = time.Now()

	r.log.Info().Strs("symbols", rep.Symbols).Int("days", rep.TradingDays).
		Float64("sharpe", rep.Best.SharpeRatio).Dur("elapsed", rep.Elapsed).
		Msg("optimisation run complete")
	return rep, nil
}

// Evaluate runs the search on an already collected price matrix.
func (r *Runner) Evaluate(ctx context.Context, prices *portfolio.PriceMatrix) (*model.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	began := time.Now()
	rep, err := r.evaluate(ctx, prices)
	if err != nil {
		return nil, err
	}
	if n := len(rep.Dates); n > 0 {
		rep.Start, rep.End = rep.Dates[0], rep.Dates[n-1]
	}
	rep.Elapsed = time.Since(began)
	rep.FinishedAt = time.Now()
	return rep, nil
}

func (r *Runner) evaluate(ctx context.Context, prices *portfolio.PriceMatrix) (*model.Report, error) {
	norm, err := portfolio.Normalize(prices)
	if err != nil {
		return nil, fmt.Errorf("normalize prices: %w", err)
	}
	best, err := r.opt.Search(ctx, norm)
	if err != nil {
		return nil, err
	}
	rows, _ := norm.Dims()
	rep := &model.Report{
		Symbols:     norm.Symbols(),
		TradingDays: rows,
		Units:       r.opt.Config().Units,
		Best:        best,
		Dates:       norm.Dates(),
		LastCloses:  prices.LastRow(),
	}

	values, err := portfolio.Series(norm, best.Allocation)
	if err != nil {
		return nil, err
	}
	rep.Values = values
	if best.IsSentinel() {
		return rep, nil
	}
	if rep.MaxDrawdown, err = calculator.MaxDrawdown(values); err != nil {
		return nil, err
	}
	returns, err := calculator.SimpleReturns(values)
	if err != nil {
		return nil, err
	}
	rep.CompoundReturn = calculator.CompoundReturn(returns)
	return rep, nil
}
