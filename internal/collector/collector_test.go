package collector

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SharpeSentinel/internal/model"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func bar(date string, px float64) model.OHLCV {
	return model.OHLCV{Time: day(date).Add(14 * time.Hour), Close: px}
}

func TestFillGaps(t *testing.T) {
	nan := math.NaN()
	rows := [][]float64{
		{nan, 1},
		{10, nan},
		{nan, nan},
		{12, 4},
	}
	FillGaps(rows)
	assert.Equal(t, [][]float64{
		{10, 1},
		{10, 1},
		{10, 1},
		{12, 4},
	}, rows)

	FillGaps(nil)
}

func TestFetchPricesAlignsCalendar(t *testing.T) {
	f := &MockFetcher{Bars: map[string][]model.OHLCV{
		"AAA": {bar("2011-01-03", 100), bar("2011-01-04", 101), bar("2011-01-06", 103)},
		"BBB": {bar("2011-01-04", 50), bar("2011-01-05", 51), bar("2011-01-06", 52)},
	}}
	c := NewCollector(f, zerolog.Nop())

	m, err := c.FetchPrices(context.Background(), []string{"AAA", "BBB"}, day("2011-01-01"), day("2011-01-31"))
	require.NoError(t, err)

	rows, cols := m.Dims()
	assert.Equal(t, 4, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, []string{"AAA", "BBB"}, m.Symbols())
	require.Len(t, m.Dates(), 4)
	assert.Equal(t, "2011-01-03", m.Dates()[0].Format("2006-01-02"))
	assert.Equal(t, "2011-01-06", m.Dates()[3].Format("2006-01-02"))

	// BBB back-filled on the first day, AAA forward-filled on the 5th.
	assert.Equal(t, 50.0, m.At(0, 1))
	assert.Equal(t, 101.0, m.At(2, 0))
	assert.Equal(t, 51.0, m.At(2, 1))
}

func TestFetchPricesFillsNonPositiveCloses(t *testing.T) {
	f := &MockFetcher{Bars: map[string][]model.OHLCV{
		"AAA": {bar("2011-01-03", 100), bar("2011-01-04", 0), bar("2011-01-05", 102)},
		"BBB": {bar("2011-01-03", 50), bar("2011-01-04", 51), bar("2011-01-05", -1)},
	}}
	c := NewCollector(f, zerolog.Nop())

	m, err := c.FetchPrices(context.Background(), []string{"AAA", "BBB"}, day("2011-01-01"), day("2011-01-31"))
	require.NoError(t, err)

	rows, _ := m.Dims()
	require.Equal(t, 3, rows)
	assert.Equal(t, 100.0, m.At(1, 0))
	assert.Equal(t, 51.0, m.At(2, 1))
}

func TestFetchPricesClipsToRange(t *testing.T) {
	f := &MockFetcher{Bars: map[string][]model.OHLCV{
		"AAA": {bar("2010-12-31", 99), bar("2011-01-03", 100), bar("2011-01-04", 101), bar("2011-02-01", 120)},
	}}
	c := NewCollector(f, zerolog.Nop())

	m, err := c.FetchPrices(context.Background(), []string{"AAA"}, day("2011-01-01"), day("2011-01-31"))
	require.NoError(t, err)
	rows, _ := m.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 100.0, m.At(0, 0))
}

func TestFetchPricesErrors(t *testing.T) {
	ctx := context.Background()
	f := &MockFetcher{
		Bars: map[string][]model.OHLCV{
			"AAA":   {bar("2011-01-03", 100)},
			"EMPTY": {bar("2009-01-03", 100)},
		},
		Err: map[string]error{"BAD": errors.New("boom")},
	}
	c := NewCollector(f, zerolog.Nop())

	_, err := c.FetchPrices(ctx, []string{"AAA", "BAD"}, day("2011-01-01"), day("2011-12-31"))
	assert.ErrorIs(t, err, model.ErrUpstreamData)
	assert.Contains(t, err.Error(), "BAD")

	_, err = c.FetchPrices(ctx, []string{"AAA", "EMPTY"}, day("2011-01-01"), day("2011-12-31"))
	assert.ErrorIs(t, err, model.ErrUpstreamData)
	assert.Contains(t, err.Error(), "EMPTY")

	_, err = c.FetchPrices(ctx, []string{"AAA"}, day("2011-12-31"), day("2011-01-01"))
	assert.ErrorIs(t, err, model.ErrUpstreamData)

	_, err = c.FetchPrices(ctx, nil, day("2011-01-01"), day("2011-12-31"))
	assert.ErrorIs(t, err, model.ErrUpstreamData)

	_, err = c.FetchPrices(ctx, []string{"UNKNOWN"}, day("2011-01-01"), day("2011-12-31"))
	assert.ErrorIs(t, err, model.ErrUpstreamData)
}

const yahooFixture = `{"chart":{"result":[{"timestamp":[1294065000,1294151400,1294237800],
"indicators":{"quote":[{"open":[1,2,3],"high":[1,2,3],"low":[1,2,3],
"close":[10.5,null,11.0],"volume":[100,200,300]}]}}],"error":null}}`

func TestYahooFetcher(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(yahooFixture))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL

	bars, err := f.FetchDailyBars(context.Background(), "SPX", day("2011-01-01"), day("2011-01-31"))
	require.NoError(t, err)
	assert.Equal(t, "/v8/finance/chart/^GSPC", gotPath)
	assert.Contains(t, gotQuery, "interval=1d")
	require.Len(t, bars, 2)
	assert.Equal(t, 10.5, bars[0].Close)
	assert.Equal(t, 11.0, bars[1].Close)
	assert.True(t, bars[0].Time.Before(bars[1].Time))
}

func TestYahooFetcherKeepsZeroClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{"timestamp":[1294065000,1294151400,1294237800],
"indicators":{"quote":[{"close":[10.5,0,null]}]}}],"error":null}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL

	bars, err := f.FetchDailyBars(context.Background(), "AAA", day("2011-01-01"), day("2011-01-31"))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 10.5, bars[0].Close)
	assert.Equal(t, 0.0, bars[1].Close)
	assert.Equal(t, 0.0, bars[1].Volume)
}

func TestYahooFetcherErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v8/finance/chart/DOWN":
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		case "/v8/finance/chart/NOPE":
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
		default:
			_, _ = w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
		}
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	ctx := context.Background()

	_, err := f.FetchDailyBars(ctx, "DOWN", day("2011-01-01"), day("2011-01-31"))
	assert.ErrorContains(t, err, "status 503")

	_, err = f.FetchDailyBars(ctx, "NOPE", day("2011-01-01"), day("2011-01-31"))
	assert.ErrorContains(t, err, "No data found")

	_, err = f.FetchDailyBars(ctx, "EMPTY", day("2011-01-01"), day("2011-01-31"))
	assert.ErrorContains(t, err, "no data returned")
}

func TestVsTraderFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bars/daily", r.URL.Path)
		assert.Equal(t, "IBM", r.URL.Query().Get("symbol"))
		assert.Equal(t, "2011-01-01", r.URL.Query().Get("start"))
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[{"timestamp":1294151400,"close":147.6},{"timestamp":1294065000,"close":147.4}]`))
	}))
	defer srv.Close()

	f := NewVsTraderFetcher(srv.URL, "secret", "")
	bars, err := f.FetchDailyBars(context.Background(), "IBM", day("2011-01-01"), day("2011-01-31"))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 147.4, bars[0].Close)

	f.APIKey = ""
	_, err = f.FetchDailyBars(context.Background(), "IBM", day("2011-01-01"), day("2011-01-31"))
	assert.ErrorContains(t, err, "status 401")
}
