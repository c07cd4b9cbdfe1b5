package compare

import (
	"math"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/result"
)

// Regression kinds.
const (
	KindSlower     = "slower"
	KindNewlyFlaky = "newlyFlaky"
	KindFaster     = "faster"
)

// TestChange identifies one test that changed relative to the
// baseline. The key always refers to a test in the current result set.
type TestChange struct {
	Key              string `json:"key"`
	Duration         int64  `json:"duration"`
	BaselineDuration int64  `json:"baselineDuration,omitempty"`
}

// Regression is a test that got significantly slower or newly flaky;
// the same shape describes improvements.
type Regression struct {
	TestChange

	Kind      string  `json:"kind"`
	ChangePct float64 `json:"changePct,omitempty"`
}

// Comparison is the run-over-run diff between the current run and a
// baseline reconstructed from history.
type Comparison struct {
	Baseline result.RunSummary `json:"baseline"`
	Current  result.RunSummary `json:"current"`

	NewFailures  []TestChange `json:"newFailures"`
	FixedTests   []TestChange `json:"fixedTests"`
	NewTests     []TestChange `json:"newTests"`
	Regressions  []Regression `json:"regressions"`
	Improvements []Regression `json:"improvements"`
}

// Build classifies every current test against the baseline map. Each
// test lands in at most one category; fixed/new-failure checks take
// priority over regression/improvement. The function is pure: the same
// inputs always produce the same comparison.
func Build(
	current *result.Set,
	currentSummary, baselineSummary result.RunSummary,
	baseline map[string]*result.TestResult,
	perfThresholdPct float64,
) *Comparison {
	cmp := &Comparison{
		Baseline:     baselineSummary,
		Current:      currentSummary,
		NewFailures:  []TestChange{},
		FixedTests:   []TestChange{},
		NewTests:     []TestChange{},
		Regressions:  []Regression{},
		Improvements: []Regression{},
	}

	for _, r := range current.All() {
		key := r.Key()

		prev, known := baseline[key]
		if !known {
			cmp.NewTests = append(cmp.NewTests, TestChange{Key: key, Duration: r.Duration})

			continue
		}

		change := TestChange{
			Key:              key,
			Duration:         r.Duration,
			BaselineDuration: prev.Duration,
		}

		prevFailed := prev.DidFail()
		currPassing := r.DidPass()

		switch {
		case prevFailed && currPassing:
			cmp.FixedTests = append(cmp.FixedTests, change)
		case !prevFailed && r.Outcome == result.OutcomeUnexpected:
			cmp.NewFailures = append(cmp.NewFailures, change)
		case prevFailed || !currPassing:
			// Still failing, still skipped, or otherwise unchanged.
		case r.Outcome == result.OutcomeFlaky && prev.Outcome != result.OutcomeFlaky:
			cmp.Regressions = append(cmp.Regressions, Regression{
				TestChange: change,
				Kind:       KindNewlyFlaky,
			})
		default:
			pct, significant := durationChange(prev.Duration, r.Duration, perfThresholdPct)
			if !significant {
				continue
			}

			reg := Regression{TestChange: change, ChangePct: pct}

			if pct > 0 {
				reg.Kind = KindSlower
				cmp.Regressions = append(cmp.Regressions, reg)
			} else {
				reg.Kind = KindFaster
				cmp.Improvements = append(cmp.Improvements, reg)
			}
		}
	}

	return cmp
}

// durationChange returns the percent change from baseline and whether
// it exceeds the threshold. A zero baseline yields no change: there is
// nothing meaningful to compare against.
func durationChange(baseline, current int64, thresholdPct float64) (float64, bool) {
	if baseline <= 0 {
		return 0, false
	}

	pct := (float64(current) - float64(baseline)) / float64(baseline) * 100
	pct = math.Round(pct*100) / 100

	return pct, math.Abs(pct) >= thresholdPct
}
