package analyzer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/analyzer"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/history"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/result"
)

func durations(ds ...int64) []history.Entry {
	entries := make([]history.Entry, 0, len(ds))
	for i, d := range ds {
		entries = append(entries, history.Entry{Passed: true, Duration: d, Timestamp: int64(i)})
	}

	return entries
}

func TestAnalyzePerformance_NoTrendWithoutHistory(t *testing.T) {
	r := &result.TestResult{File: "a.spec.ts", Title: "t", Status: result.StatusPassed, Duration: 100}

	analyzer.AnalyzePerformance(r, nil, 20)
	assert.Nil(t, r.PerformanceTrend)

	// One sample is still too short.
	analyzer.AnalyzePerformance(r, durations(100), 20)
	assert.Nil(t, r.PerformanceTrend)
}

func TestAnalyzePerformance_SkippedEntriesExcluded(t *testing.T) {
	entries := durations(100, 100)
	entries = append(entries, history.Entry{Passed: true, Duration: 100000, Skipped: true})

	r := &result.TestResult{File: "a.spec.ts", Title: "t", Status: result.StatusPassed, Duration: 100}

	analyzer.AnalyzePerformance(r, entries, 20)

	require.NotNil(t, r.PerformanceTrend)
	assert.Equal(t, result.TrendStable, r.PerformanceTrend.Direction)
	assert.Equal(t, int64(100), r.PerformanceTrend.BaselineDuration)
}

func TestAnalyzePerformance_Directions(t *testing.T) {
	tests := []struct {
		name     string
		current  int64
		want     string
		wantPct  float64
	}{
		{name: "well above threshold is slower", current: 150, want: result.TrendSlower, wantPct: 50},
		{name: "exactly at threshold is slower", current: 120, want: result.TrendSlower, wantPct: 20},
		{name: "within threshold is stable", current: 110, want: result.TrendStable, wantPct: 10},
		{name: "well below threshold is faster", current: 50, want: result.TrendFaster, wantPct: -50},
		{name: "exactly at negative threshold is faster", current: 80, want: result.TrendFaster, wantPct: -20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &result.TestResult{File: "a.spec.ts", Title: "t", Status: result.StatusPassed, Duration: tt.current}

			analyzer.AnalyzePerformance(r, durations(100, 100, 100), 20)

			require.NotNil(t, r.PerformanceTrend)
			assert.Equal(t, tt.want, r.PerformanceTrend.Direction)
			assert.InDelta(t, tt.wantPct, r.PerformanceTrend.ChangePct, 0.001)
		})
	}
}

func TestAnalyzePerformance_SkippedCurrent(t *testing.T) {
	r := &result.TestResult{File: "a.spec.ts", Title: "t", Status: result.StatusSkipped}

	analyzer.AnalyzePerformance(r, durations(100, 100), 20)
	assert.Nil(t, r.PerformanceTrend)
}
