package collector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"SharpeSentinel/internal/model"
	"SharpeSentinel/internal/portfolio"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Bars map[string][]model.OHLCV
	Err  map[string]error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol string, _, _ time.Time) ([]model.OHLCV, error) {
	if err, ok := m.Err[symbol]; ok {
		return nil, err
	}
	bars, ok := m.Bars[symbol]
	if !ok {
		return nil, fmt.Errorf("unknown symbol %s", symbol)
	}
	return bars, nil
}

// Collector turns per-symbol bars into an aligned, gap-free price matrix.
type Collector struct {
	Fetcher     Fetcher
	Concurrency int
	log         zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, log zerolog.Logger) *Collector {
	return &Collector{
		Fetcher:     fetcher,
		Concurrency: 4,
		log:         log.With().Str("component", "collector").Str("source", fetcher.Name()).Logger(),
	}
}

// FetchPrices downloads closing prices for symbols over [start, end] and
// returns them as a PriceMatrix whose columns follow the symbols order. The
// trading calendar is the union of the days any symbol traded; missing
// closes are forward-filled, then back-filled. All failures wrap
// model.ErrUpstreamData.
func (c *Collector) FetchPrices(ctx context.Context, symbols []string, start, end time.Time) (*portfolio.PriceMatrix, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: no symbols requested", model.ErrUpstreamData)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: empty date range %s..%s", model.ErrUpstreamData,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	series := make([]model.PriceSeries, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	if c.Concurrency > 0 {
		g.SetLimit(c.Concurrency)
	}
	for i, sym := range symbols {
		g.Go(func() error {
			bars, err := c.Fetcher.FetchDailyBars(gctx, sym, start, end)
			if err != nil {
				return fmt.Errorf("%w: fetch %s: %v", model.ErrUpstreamData, sym, err)
			}
			series[i] = model.PriceSeries{Symbol: sym, DailyBars: bars, FetchedAt: time.Now()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dates, rows, err := align(series, start, end)
	if err != nil {
		return nil, err
	}
	c.log.Info().Strs("symbols", symbols).Int("days", len(dates)).
		Str("from", dates[0].Format("2006-01-02")).
		Str("to", dates[len(dates)-1].Format("2006-01-02")).
		Msg("prices collected")

	m, err := portfolio.NewPriceMatrix(symbols, dates, rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUpstreamData, err)
	}
	return m, nil
}

// align builds the calendar and the filled close table. Closes that are
// zero, negative or NaN are not prices: they count as missing on that day
// and are filled from the neighbouring close like any other gap.
func align(series []model.PriceSeries, start, end time.Time) ([]time.Time, [][]float64, error) {
	from := start.UTC().Format("2006-01-02")
	to := end.UTC().Format("2006-01-02")

	closes := make([]map[string]float64, len(series))
	days := map[string]time.Time{}
	for i, s := range series {
		closes[i] = make(map[string]float64, len(s.DailyBars))
		for _, b := range s.DailyBars {
			key := b.DateKey()
			if key < from || key > to || b.Close <= 0 || math.IsNaN(b.Close) {
				continue
			}
			closes[i][key] = b.Close
			if _, ok := days[key]; !ok {
				d, _ := time.Parse("2006-01-02", key)
				days[key] = d
			}
		}
		if len(closes[i]) == 0 {
			return nil, nil, fmt.Errorf("%w: no prices for %s between %s and %s", model.ErrUpstreamData, s.Symbol, from, to)
		}
	}

	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	dates := make([]time.Time, len(keys))
	rows := make([][]float64, len(keys))
	for r, k := range keys {
		dates[r] = days[k]
		rows[r] = make([]float64, len(series))
		for j := range series {
			if v, ok := closes[j][k]; ok {
				rows[r][j] = v
			} else {
				rows[r][j] = math.NaN()
			}
		}
	}
	FillGaps(rows)
	return dates, rows, nil
}

// FillGaps forward-fills NaN entries of each column, then back-fills the
// leading ones.
func FillGaps(rows [][]float64) {
	if len(rows) == 0 {
		return
	}
	for j := range rows[0] {
		last := math.NaN()
		for i := range rows {
			if math.IsNaN(rows[i][j]) {
				rows[i][j] = last
			} else {
				last = rows[i][j]
			}
		}
		next := math.NaN()
		for i := len(rows) - 1; i >= 0; i-- {
			if math.IsNaN(rows[i][j]) {
				rows[i][j] = next
			} else {
				next = rows[i][j]
			}
		}
	}
}
