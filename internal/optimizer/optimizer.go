// Package optimizer runs the exhaustive allocation search: every grid
// allocation is scored and the one with the highest Sharpe ratio is kept.
package optimizer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"SharpeSentinel/internal/calculator"
	"SharpeSentinel/internal/enumerator"
	"SharpeSentinel/internal/model"
	"SharpeSentinel/internal/portfolio"
)

// Config holds the search parameters.
type Config struct {
	Units          int     `yaml:"units"`
	TradingDays    float64 `yaml:"trading_days"`
	Workers        int     `yaml:"workers"`
	PadFirstReturn bool    `yaml:"pad_first_return"`
}

// DefaultConfig returns a 10-unit grid, 252 trading days, sequential search.
func DefaultConfig() Config {
	return Config{
		Units:       enumerator.DefaultUnits,
		TradingDays: calculator.DefaultTradingDays,
		Workers:     1,
	}
}

// Scorer evaluates one allocation against the shared price matrix.
type Scorer interface {
	Score(m *portfolio.NormalizedPriceMatrix, alloc model.Allocation) (model.PerformanceResult, error)
}

// SimulatorScorer scores allocations with portfolio.Simulate.
type SimulatorScorer struct {
	Options portfolio.Options
}

func (s SimulatorScorer) Score(m *portfolio.NormalizedPriceMatrix, alloc model.Allocation) (model.PerformanceResult, error) {
	return portfolio.Simulate(m, alloc, s.Options)
}

// Optimizer searches the allocation grid.
type Optimizer struct {
	cfg    Config
	scorer Scorer
	log    zerolog.Logger
}

// New creates an Optimizer. A nil scorer falls back to the simulator.
func New(cfg Config, scorer Scorer, log zerolog.Logger) *Optimizer {
	if cfg.TradingDays <= 0 {
		cfg.TradingDays = calculator.DefaultTradingDays
	}
	if scorer == nil {
		scorer = SimulatorScorer{Options: portfolio.Options{
			TradingDays:    cfg.TradingDays,
			PadFirstReturn: cfg.PadFirstReturn,
		}}
	}
	return &Optimizer{
		cfg:    cfg,
		scorer: scorer,
		log:    log.With().Str("component", "optimizer").Logger(),
	}
}

// Config returns the effective configuration.
func (o *Optimizer) Config() Config { return o.cfg }

// candidate is one scored grid point.
type candidate struct {
	index  int
	parts  []int
	alloc  model.Allocation
	result model.PerformanceResult
}

// better reports whether c should replace the current best. Only a strictly
// greater finite Sharpe ratio wins; equal ratios keep the earlier index.
func better(c candidate, best *model.BestResult) bool {
	if !c.result.Finite() {
		return false
	}
	if c.result.SharpeRatio > best.SharpeRatio {
		return true
	}
	return c.result.SharpeRatio == best.SharpeRatio && !best.IsSentinel() && c.index < best.Index
}

type bestTracker struct {
	best *model.BestResult
}

// offer folds one scored candidate into the running best.
func (b *bestTracker) offer(c candidate) {
	b.best.Evaluated++
	if !c.result.Finite() {
		b.best.Skipped++
		return
	}
	if better(c, b.best) {
		b.best.Allocation = c.alloc
		b.best.Units = c.parts
		b.best.Index = c.index
		b.best.PerformanceResult = c.result
	}
}

// Search scores every allocation of the grid against m and returns the best.
// If no allocation has a positive finite Sharpe ratio the zero-allocation
// sentinel is returned.
func (o *Optimizer) Search(ctx context.Context, m *portfolio.NormalizedPriceMatrix) (*model.BestResult, error) {
	_, n := m.Dims()
	enum, err := enumerator.New(n, o.cfg.Units)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	total := enumerator.Count(n, o.cfg.Units)
	o.log.Debug().Int("assets", n).Int("units", o.cfg.Units).Int("candidates", total).
		Int("workers", o.cfg.Workers).Msg("starting allocation search")

	var best *model.BestResult
	if o.cfg.Workers > 1 {
		best, err = o.searchParallel(ctx, m, enum)
	} else {
		best, err = o.searchSequential(ctx, m, enum)
	}
	if err != nil {
		return nil, err
	}

	o.log.Info().
		Int("evaluated", best.Evaluated).
		Int("skipped", best.Skipped).
		Float64("sharpe", best.SharpeRatio).
		Floats64("allocation", best.Allocation).
		Dur("elapsed", time.Since(start)).
		Msg("allocation search finished")
	return best, nil
}

func (o *Optimizer) searchSequential(ctx context.Context, m *portfolio.NormalizedPriceMatrix, enum *enumerator.Enumerator) (*model.BestResult, error) {
	tracker := &bestTracker{best: model.NewSentinel(enum.N())}
	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		parts, ok := enum.Next()
		if !ok {
			break
		}
		c, err := o.score(m, index, parts)
		if err != nil {
			return nil, err
		}
		tracker.offer(c)
	}
	return tracker.best, nil
}

func (o *Optimizer) score(m *portfolio.NormalizedPriceMatrix, index int, parts []int) (candidate, error) {
	alloc := enumerator.Weights(parts, o.cfg.Units)
	res, err := o.scorer.Score(m, alloc)
	if err != nil {
		return candidate{}, fmt.Errorf("score allocation %v: %w", alloc, err)
	}
	return candidate{index: index, parts: parts, alloc: alloc, result: res}, nil
}
