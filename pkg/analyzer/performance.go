package analyzer

import (
	"math"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/history"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/result"
)

// minPerformanceSamples is the minimum number of executed history
// entries required before a trend is computed.
const minPerformanceSamples = 2

// AnalyzePerformance compares the test's current duration to the mean
// of its prior executed durations and labels the trend when the change
// exceeds thresholdPct. Too little history means no trend.
func AnalyzePerformance(r *result.TestResult, entries []history.Entry, thresholdPct float64) {
	if r.Status == result.StatusSkipped {
		r.PerformanceTrend = nil

		return
	}

	executed := history.NonSkipped(entries)
	if len(executed) < minPerformanceSamples {
		r.PerformanceTrend = nil

		return
	}

	var total int64
	for _, e := range executed {
		total += e.Duration
	}

	baseline := total / int64(len(executed))
	if baseline <= 0 {
		r.PerformanceTrend = nil

		return
	}

	changePct := (float64(r.Duration) - float64(baseline)) / float64(baseline) * 100
	changePct = math.Round(changePct*100) / 100

	trend := &result.Trend{
		ChangePct:        changePct,
		BaselineDuration: baseline,
	}

	switch {
	case changePct >= thresholdPct:
		trend.Direction = result.TrendSlower
	case changePct <= -thresholdPct:
		trend.Direction = result.TrendFaster
	default:
		trend.Direction = result.TrendStable
	}

	r.PerformanceTrend = trend
}
