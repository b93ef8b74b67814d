package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SharpeSentinel/internal/collector"
	"SharpeSentinel/internal/config"
	"SharpeSentinel/internal/model"
)

func useMockFetcher(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SYMBOLS", "START_DATE", "END_DATE", "UNITS", "WORKERS", "VSTRADER_BASE_URL", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	day := func(d int) time.Time { return time.Date(2011, 1, d, 0, 0, 0, 0, time.UTC) }
	prev := newFetcher
	newFetcher = func(*config.Config) collector.Fetcher {
		return &collector.MockFetcher{Bars: map[string][]model.OHLCV{
			"UP":   {{Time: day(3), Close: 10}, {Time: day(4), Close: 11}, {Time: day(5), Close: 12}},
			"DOWN": {{Time: day(3), Close: 50}, {Time: day(4), Close: 45}, {Time: day(5), Close: 40}},
		}}
	}
	t.Cleanup(func() { newFetcher = prev })
}

func noConfig(t *testing.T) string {
	return filepath.Join(t.TempDir(), "none.yaml")
}

func TestRunPrintsBestResult(t *testing.T) {
	useMockFetcher(t)
	var stdout, stderr bytes.Buffer

	code := run([]string{"-config", noConfig(t), "-symbols", "UP,DOWN", "-start", "2011-01-01", "-end", "2011-01-31"}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Best Allocation : [0.6, 0.4]", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Best Sharpe     : "))
	assert.True(t, strings.HasPrefix(lines[2], "Best Std Dev    : "))
	assert.True(t, strings.HasPrefix(lines[3], "Best Cum Returns: 1.0396"))
	assert.True(t, strings.HasPrefix(lines[4], "Best Avg Daily  : "))
}

func TestRunWritesChart(t *testing.T) {
	useMockFetcher(t)
	chart := filepath.Join(t.TempDir(), "best.png")
	var stdout, stderr bytes.Buffer

	code := run([]string{"-config", noConfig(t), "-symbols", "UP,DOWN", "-end", "2011-01-31", "-workers", "3", "-chart", chart}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())
	info, err := os.Stat(chart)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRunExitCodes(t *testing.T) {
	useMockFetcher(t)
	var stdout, stderr bytes.Buffer

	assert.Equal(t, exitBadUsage, run([]string{"-nope"}, &stdout, &stderr))
	assert.Equal(t, exitBadUsage, run([]string{"-config", noConfig(t), "-units", "-1"}, &stdout, &stderr))
	assert.Equal(t, exitBadUsage, run([]string{"-config", noConfig(t), "-start", "2011-13-01"}, &stdout, &stderr))
	assert.Equal(t, exitBadUsage, run([]string{"-config", noConfig(t), "extra"}, &stdout, &stderr))
	assert.Equal(t, exitOK, run([]string{"-h"}, &stdout, &stderr))

	stdout.Reset()
	assert.Equal(t, exitData, run([]string{"-config", noConfig(t), "-symbols", "UP,MISSING", "-end", "2011-01-31"}, &stdout, &stderr))
	assert.Equal(t, exitData, run([]string{"-config", noConfig(t), "-symbols", "UP", "-start", "2012-01-01", "-end", "2012-12-31"}, &stdout, &stderr))
	assert.Empty(t, stdout.String())
}

func TestFormatAllocation(t *testing.T) {
	assert.Equal(t, "[0, 0.3, 0.7]", formatAllocation(model.Allocation{0, 0.3, 0.7}))
	assert.Equal(t, "[]", formatAllocation(nil))
}
