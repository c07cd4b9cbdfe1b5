package analyzer

import (
	"math"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/history"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/result"
)

// Flakiness indicators shown on reports.
const (
	IndicatorNew      = "New"
	IndicatorStable   = "Stable"
	IndicatorUnstable = "Unstable"
	IndicatorFlaky    = "Flaky"
	IndicatorSkipped  = "Skipped"
)

// Flakiness classes used for filtering.
const (
	ClassNew      = "new"
	ClassStable   = "stable"
	ClassUnstable = "unstable"
	ClassFlaky    = "flaky"
)

// Indicator score cutoffs: below unstableCutoff is stable, below
// flakyCutoff is unstable, everything else is flaky.
const (
	unstableCutoff = 0.10
	flakyCutoff    = 0.30
)

// AnalyzeFlakiness computes the flakiness score and indicator for one
// test from its history. A skipped test gets the Skipped indicator and
// no score; a test with no executed history entries gets the New
// indicator and no score.
func AnalyzeFlakiness(r *result.TestResult, entries []history.Entry) {
	if r.Status == result.StatusSkipped {
		r.FlakinessIndicator = IndicatorSkipped
		r.FlakinessScore = nil

		return
	}

	executed := history.NonSkipped(entries)
	if len(executed) == 0 {
		r.FlakinessIndicator = IndicatorNew
		r.FlakinessScore = nil

		return
	}

	failures := 0

	for _, e := range executed {
		if !e.Passed {
			failures++
		}
	}

	score := math.Round(float64(failures)/float64(len(executed))*100) / 100

	r.FlakinessScore = &score

	switch {
	case score < unstableCutoff:
		r.FlakinessIndicator = IndicatorStable
	case score < flakyCutoff:
		r.FlakinessIndicator = IndicatorUnstable
	default:
		r.FlakinessIndicator = IndicatorFlaky
	}
}

// ClassifyFlakiness maps a flakiness score to a filtering class using
// the same cutoffs as the indicator. A nil score means the test has no
// usable history.
func ClassifyFlakiness(score *float64) string {
	switch {
	case score == nil:
		return ClassNew
	case *score < unstableCutoff:
		return ClassStable
	case *score < flakyCutoff:
		return ClassUnstable
	default:
		return ClassFlaky
	}
}
