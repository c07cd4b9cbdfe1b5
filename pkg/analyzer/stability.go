package analyzer

import (
	"math"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/config"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/result"
)

// GradeForScore maps a 0-100 score to a letter grade. The same cutoffs
// are used for per-test stability grades and run-level grades derived
// from pass rates.
func GradeForScore(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// GradeRank orders letter grades, A best. Unknown grades rank worst.
func GradeRank(grade string) int {
	switch grade {
	case "A":
		return 0
	case "B":
		return 1
	case "C":
		return 2
	case "D":
		return 3
	case "F":
		return 4
	default:
		return 5
	}
}

// AnalyzeStability combines the flakiness, performance and retry
// signals already present on the result into a weighted composite
// score with a letter grade. It must run after the other analyzers.
func AnalyzeStability(r *result.TestResult, weights config.StabilityWeights, attentionThreshold int) {
	if r.Status == result.StatusSkipped {
		r.Stability = nil

		return
	}

	flakiness := flakinessSubScore(r)
	performance := performanceSubScore(r)
	reliability := reliabilitySubScore(r)

	totalWeight := weights.Flakiness + weights.Performance + weights.Reliability
	if totalWeight <= 0 {
		weights = config.StabilityWeights{Flakiness: 0.4, Performance: 0.3, Reliability: 0.3}
		totalWeight = 1
	}

	overall := (flakiness*weights.Flakiness +
		performance*weights.Performance +
		reliability*weights.Reliability) / totalWeight

	rounded := int(math.Round(overall))

	r.Stability = &result.StabilityScore{
		Overall:        rounded,
		Flakiness:      int(math.Round(flakiness)),
		Performance:    int(math.Round(performance)),
		Reliability:    int(math.Round(reliability)),
		Grade:          GradeForScore(float64(rounded)),
		NeedsAttention: rounded < attentionThreshold,
	}
}

// flakinessSubScore converts the flakiness score into a 0-100
// sub-score. A test without history scores full marks: there is no
// evidence against it yet.
func flakinessSubScore(r *result.TestResult) float64 {
	if r.FlakinessScore == nil {
		return 100
	}

	return clampScore(100 * (1 - *r.FlakinessScore))
}

// performanceSubScore penalizes slower trends in proportion to the
// slowdown. No trend or a stable/faster trend scores full marks.
func performanceSubScore(r *result.TestResult) float64 {
	trend := r.PerformanceTrend
	if trend == nil || trend.Direction != result.TrendSlower {
		return 100
	}

	return clampScore(100 - trend.ChangePct)
}

// reliabilitySubScore scores the current outcome, with a penalty per
// retry the test needed.
func reliabilitySubScore(r *result.TestResult) float64 {
	var base float64

	switch r.Outcome {
	case result.OutcomeExpected:
		base = 100
	case result.OutcomeFlaky:
		base = 60
	default:
		base = 20
	}

	return clampScore(base - float64(r.Retry)*10)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 100 {
		return 100
	}

	return v
}
