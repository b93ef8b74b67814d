package fund

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"SharpeSentinel/internal/model"
)

// ErrNoAllocation is returned by Plan before any run has been applied.
var ErrNoAllocation = errors.New("no allocation recorded yet")

// Manager keeps the latest best allocation on disk with concurrency safety.
type Manager struct {
	mu       sync.Mutex
	state    *model.AllocationState
	filePath string
	log      zerolog.Logger
}

// NewManager creates a Manager, loading or initializing state from disk.
// A positive capital replaces the stored one.
func NewManager(filePath string, capital float64, log zerolog.Logger) (*Manager, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, fmt.Errorf("load allocation state: %w", err)
	}
	if capital > 0 {
		state.Capital = capital
	}

	m := &Manager{state: state, filePath: filePath, log: log.With().Str("component", "fund").Logger()}
	if err := m.save(); err != nil {
		return nil, err
	}
	return m, nil
}

// GetState returns a copy of the current state.
func (m *Manager) GetState() model.AllocationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *m.state
	s.Symbols = append([]string(nil), s.Symbols...)
	s.Allocation = s.Allocation.Clone()
	s.PreviousSymbols = append([]string(nil), s.PreviousSymbols...)
	s.PreviousAllocation = s.PreviousAllocation.Clone()
	s.LastCloses = append([]float64(nil), s.LastCloses...)
	return s
}

// Apply stores the best allocation of a report and returns the weight drift
// against the previous one. Symbols absent from the previous run drift from
// zero; symbols dropped from the portfolio drift to zero.
func (m *Manager) Apply(r *model.Report) ([]model.Drift, error) {
	if r == nil || r.Best == nil {
		return nil, fmt.Errorf("%w: report without result", model.ErrInvalidArgument)
	}
	if len(r.Best.Allocation) != len(r.Symbols) {
		return nil, fmt.Errorf("%w: %d weights for %d symbols", model.ErrInvalidArgument,
			len(r.Best.Allocation), len(r.Symbols))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	drift := Drift(m.state.Symbols, m.state.Allocation, r.Symbols, r.Best.Allocation)

	m.state.PreviousSymbols = m.state.Symbols
	m.state.PreviousAllocation = m.state.Allocation
	m.state.Symbols = append([]string(nil), r.Symbols...)
	m.state.Allocation = r.Best.Allocation.Clone()
	m.state.SharpeRatio = r.Best.SharpeRatio
	m.state.LastCloses = append([]float64(nil), r.LastCloses...)
	if n := len(r.Dates); n > 0 {
		m.state.PriceDate = r.Dates[n-1]
	} else {
		m.state.PriceDate = r.End
	}

	if err := m.save(); err != nil {
		m.log.Error().Err(err).Msg("failed to save allocation state")
		return drift, err
	}
	m.log.Info().Strs("symbols", r.Symbols).Floats64("allocation", r.Best.Allocation).Msg("allocation state updated")
	return drift, nil
}

// Plan splits the capital across the stored allocation. Share counts are
// whole shares at the last known close; the remainder is reported as cash.
func (m *Manager) Plan() (*model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.state
	if len(s.Allocation) == 0 {
		return nil, ErrNoAllocation
	}

	plan := &model.Plan{Capital: s.Capital, PriceDate: s.PriceDate}
	for i, sym := range s.Symbols {
		w := s.Allocation[i]
		pos := model.Position{Symbol: sym, Weight: w, Amount: s.Capital * w}
		if i < len(s.LastCloses) && s.LastCloses[i] > 0 {
			pos.Price = s.LastCloses[i]
			pos.Shares = int(math.Floor(pos.Amount/pos.Price + 1e-9))
			plan.Invested += float64(pos.Shares) * pos.Price
		}
		plan.Positions = append(plan.Positions, pos)
	}
	plan.Cash = s.Capital - plan.Invested
	return plan, nil
}

// SetCapital changes the capital used by Plan.
func (m *Manager) SetCapital(capital float64) error {
	if capital <= 0 {
		return fmt.Errorf("%w: capital must be positive", model.ErrInvalidArgument)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Capital = capital
	return m.save()
}

func (m *Manager) save() error {
	return SaveState(m.filePath, m.state)
}

// Drift compares two allocations symbol by symbol, in the order of the
// current symbols followed by any dropped ones.
func Drift(prevSymbols []string, prev model.Allocation, symbols []string, current model.Allocation) []model.Drift {
	before := make(map[string]float64, len(prevSymbols))
	for i, s := range prevSymbols {
		if i < len(prev) {
			before[s] = prev[i]
		}
	}
	out := make([]model.Drift, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for i, s := range symbols {
		seen[s] = true
		d := model.Drift{Symbol: s, Previous: before[s], Current: current[i]}
		d.Change = d.Current - d.Previous
		out = append(out, d)
	}
	for _, s := range prevSymbols {
		if !seen[s] {
			out = append(out, model.Drift{Symbol: s, Previous: before[s], Change: -before[s]})
		}
	}
	return out
}
