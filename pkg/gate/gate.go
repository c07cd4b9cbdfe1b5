package gate

import (
	"fmt"
	"math"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/analyzer"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/compare"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/config"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/result"
)

// RuleResult records one rule's evaluation with the observed and
// expected values, for the per-rule CLI report.
type RuleResult struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Skipped  bool   `json:"skipped,omitempty"`
	Observed string `json:"observed"`
	Expected string `json:"expected"`
	Detail   string `json:"detail"`
}

// Result is the quality gate verdict. The gate passes only when every
// evaluated rule passes; skipped rules do not fail the gate.
type Result struct {
	Passed bool         `json:"passed"`
	Rules  []RuleResult `json:"rules"`
}

// Evaluate applies the configured rules to the current run. The
// comparison is optional: rules that need it are skipped with a note
// when it is absent. Same inputs always yield the same verdict.
func Evaluate(
	cfg *config.GateConfig,
	results *result.Set,
	summary result.RunSummary,
	cmp *compare.Comparison,
) Result {
	res := Result{Passed: true}

	if cfg == nil {
		return res
	}

	if cfg.MinPassRate != nil {
		res.add(RuleResult{
			Name:     "minPassRate",
			Passed:   summary.PassRate >= *cfg.MinPassRate,
			Observed: fmt.Sprintf("%.2f%%", summary.PassRate),
			Expected: fmt.Sprintf(">= %.2f%%", *cfg.MinPassRate),
			Detail: fmt.Sprintf("pass rate %.2f%%, required %.2f%%",
				summary.PassRate, *cfg.MinPassRate),
		})
	}

	if cfg.MaxFailures != nil {
		res.add(RuleResult{
			Name:     "maxFailures",
			Passed:   summary.Failed <= *cfg.MaxFailures,
			Observed: fmt.Sprintf("%d", summary.Failed),
			Expected: fmt.Sprintf("<= %d", *cfg.MaxFailures),
			Detail: fmt.Sprintf("%d failed tests, allowed %d",
				summary.Failed, *cfg.MaxFailures),
		})
	}

	if cfg.MaxFlakyRate != nil {
		flakyRate := float64(0)
		if summary.Total > 0 {
			flakyRate = math.Round(float64(summary.Flaky)/float64(summary.Total)*10000) / 100
		}

		res.add(RuleResult{
			Name:     "maxFlakyRate",
			Passed:   flakyRate <= *cfg.MaxFlakyRate,
			Observed: fmt.Sprintf("%.2f%%", flakyRate),
			Expected: fmt.Sprintf("<= %.2f%%", *cfg.MaxFlakyRate),
			Detail: fmt.Sprintf("flaky rate %.2f%%, allowed %.2f%%",
				flakyRate, *cfg.MaxFlakyRate),
		})
	}

	if cfg.MinStabilityGrade != nil {
		res.add(stabilityGradeRule(results, *cfg.MinStabilityGrade))
	}

	if cfg.MaxNewFailures != nil {
		if cmp == nil {
			res.add(RuleResult{
				Name:     "maxNewFailures",
				Passed:   true,
				Skipped:  true,
				Observed: "n/a",
				Expected: fmt.Sprintf("<= %d", *cfg.MaxNewFailures),
				Detail:   "no comparison baseline, rule skipped",
			})
		} else {
			res.add(RuleResult{
				Name:     "maxNewFailures",
				Passed:   len(cmp.NewFailures) <= *cfg.MaxNewFailures,
				Observed: fmt.Sprintf("%d", len(cmp.NewFailures)),
				Expected: fmt.Sprintf("<= %d", *cfg.MaxNewFailures),
				Detail: fmt.Sprintf("%d new failures, allowed %d",
					len(cmp.NewFailures), *cfg.MaxNewFailures),
			})
		}
	}

	return res
}

// stabilityGradeRule checks the average stability score over scored
// tests against a minimum letter grade. A run without scored tests
// skips the rule rather than failing it.
func stabilityGradeRule(results *result.Set, minGrade string) RuleResult {
	var (
		total float64
		n     int
	)

	for _, r := range results.All() {
		if r.Stability != nil {
			total += float64(r.Stability.Overall)
			n++
		}
	}

	if n == 0 {
		return RuleResult{
			Name:     "minStabilityGrade",
			Passed:   true,
			Skipped:  true,
			Observed: "n/a",
			Expected: fmt.Sprintf(">= %s", minGrade),
			Detail:   "no scored tests, rule skipped",
		}
	}

	avg := total / float64(n)
	grade := analyzer.GradeForScore(avg)

	return RuleResult{
		Name:     "minStabilityGrade",
		Passed:   analyzer.GradeRank(grade) <= analyzer.GradeRank(minGrade),
		Observed: grade,
		Expected: fmt.Sprintf(">= %s", minGrade),
		Detail: fmt.Sprintf("average stability grade %s (score %.1f), required %s",
			grade, avg, minGrade),
	}
}

func (r *Result) add(rule RuleResult) {
	r.Rules = append(r.Rules, rule)

	if !rule.Passed {
		r.Passed = false
	}
}
