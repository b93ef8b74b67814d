package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SharpeSentinel/internal/collector"
	"SharpeSentinel/internal/fund"
	"SharpeSentinel/internal/model"
	"SharpeSentinel/internal/optimizer"
	"SharpeSentinel/internal/recorder"
	"SharpeSentinel/internal/runner"
)

type fakeNotifier struct {
	mu     sync.Mutex
	texts  []string
	photos []string
}

func (f *fakeNotifier) Send(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeNotifier) SendPhoto(name string, png []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, name)
	return nil
}

func (f *fakeNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	return f.Send(text)
}

func day(d int) time.Time {
	return time.Date(2011, 1, d, 0, 0, 0, 0, time.UTC)
}

func newTestScheduler(t *testing.T, fetchErr error) (*Scheduler, *fakeNotifier, recorder.Recorder) {
	t.Helper()
	f := &collector.MockFetcher{Bars: map[string][]model.OHLCV{
		"UP":   {{Time: day(3), Close: 10}, {Time: day(4), Close: 11}, {Time: day(5), Close: 12}},
		"DOWN": {{Time: day(3), Close: 50}, {Time: day(4), Close: 45}, {Time: day(5), Close: 40}},
	}}
	if fetchErr != nil {
		f.Err = map[string]error{"UP": fetchErr}
	}
	run := runner.New(collector.NewCollector(f, zerolog.Nop()), optimizer.DefaultConfig(), zerolog.Nop())

	dir := t.TempDir()
	fm, err := fund.NewManager(filepath.Join(dir, "state.json"), 1000, zerolog.Nop())
	require.NoError(t, err)
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(dir, "runs.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	tn := &fakeNotifier{}
	job := Job{Symbols: []string{"UP", "DOWN"}, Start: day(1), End: day(31)}
	return NewScheduler(context.Background(), run, fm, tn, rec, job, zerolog.Nop()), tn, rec
}

func TestJobWindow(t *testing.T) {
	now := time.Date(2024, 5, 10, 18, 45, 0, 0, time.UTC)
	j := Job{Start: day(1), End: day(31)}
	start, end := j.Window(now)
	assert.Equal(t, day(1), start)
	assert.Equal(t, day(31), end)

	j.LookbackDays = 365
	start, end = j.Window(now)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), end)
	assert.Equal(t, time.Date(2023, 5, 11, 0, 0, 0, 0, time.UTC), start)
}

func TestRunOptimization(t *testing.T) {
	s, tn, rec := newTestScheduler(t, nil)

	rep, err := s.RunOptimization(recorder.TriggerCron)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.6, 0.4}, rep.Best.Allocation, 1e-12)

	last, err := rec.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, "cron", last.Trigger)
	assert.InDeltaSlice(t, []float64{0.6, 0.4}, last.Allocation, 1e-12)

	state := s.Fund.GetState()
	assert.Equal(t, []string{"UP", "DOWN"}, state.Symbols)
	assert.Equal(t, []float64{12, 40}, state.LastCloses)

	require.Len(t, tn.texts, 1)
	assert.Contains(t, tn.texts[0], "UP: 60%")
	assert.Contains(t, tn.texts[0], "Rebalance")
	assert.Equal(t, []string{"allocation.png"}, tn.photos)
}

func TestRunOptimizationFailureNotifies(t *testing.T) {
	s, tn, rec := newTestScheduler(t, errors.New("upstream down"))

	_, err := s.RunOptimization(recorder.TriggerCron)
	assert.ErrorIs(t, err, model.ErrUpstreamData)
	require.Len(t, tn.texts, 1)
	assert.Contains(t, tn.texts[0], "Optimisation failed")
	assert.NotContains(t, tn.photos, "weights.png")

	_, err = rec.LatestRun()
	assert.ErrorIs(t, err, recorder.ErrNoRuns)
}

func TestHandleCommand(t *testing.T) {
	s, tn, _ := newTestScheduler(t, nil)

	assert.Contains(t, s.HandleCommand("/last"), "No runs recorded yet")
	assert.Contains(t, s.HandleCommand("/plan"), "No allocation yet")
	assert.Contains(t, s.HandleCommand("hello"), "/optimize")

	assert.Equal(t, "", s.HandleCommand("/optimize@sentinel_bot"))
	require.Len(t, tn.texts, 1)

	last := s.HandleCommand("/last")
	assert.Contains(t, last, "(telegram)")
	assert.Contains(t, last, "UP: 60%")

	plan := s.HandleCommand("/PLAN")
	assert.Contains(t, plan, "Capital plan")
	assert.Contains(t, plan, "UP 60%: $600.00 → 50 × $12.00")
	assert.Contains(t, tn.photos, "weights.png")
}

func TestHandlePlanWithoutNotifierSkipsChart(t *testing.T) {
	s, tn, _ := newTestScheduler(t, nil)
	assert.Equal(t, "", s.HandleCommand("/optimize"))

	rendered := 0
	s.weights = func([]string, model.Allocation) ([]byte, error) {
		rendered++
		return []byte("png"), nil
	}
	s.Notifier = nil

	plan := s.HandleCommand("/plan")
	assert.Contains(t, plan, "Capital plan")
	assert.Equal(t, 0, rendered)
	assert.NotContains(t, tn.photos, "weights.png")
}

func TestHandleCapitalCommand(t *testing.T) {
	s, _, _ := newTestScheduler(t, nil)

	assert.Contains(t, s.HandleCommand("/capital"), "Capital: $1000")
	assert.Equal(t, "✅ Capital set to $2500", s.HandleCommand("/capital 2500"))
	assert.Equal(t, 2500.0, s.Fund.GetState().Capital)
	assert.Contains(t, s.HandleCommand("/capital -5"), "Set capital")
	assert.Contains(t, s.HandleCommand("/capital lots"), "Set capital")
	assert.Equal(t, 2500.0, s.Fund.GetState().Capital)
}

func TestRegisterAll(t *testing.T) {
	s, _, _ := newTestScheduler(t, nil)
	require.NoError(t, s.RegisterAll("0 30 17 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.RegisterAll("not a cron"))

	s.Start()
	s.Stop()
}
