package notify

import (
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/analyzer"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/compare"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/config"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/result"
)

// Input carries everything a channel needs to decide whether to fire
// and to render its message.
type Input struct {
	Summary    result.RunSummary
	Results    *result.Set
	Comparison *compare.Comparison
}

// ShouldNotify evaluates a channel's trigger conditions. All set
// conditions must hold. A channel without conditions always fires.
func ShouldNotify(cond *config.ConditionsConfig, in Input) bool {
	if cond == nil {
		return true
	}

	if cond.MinFailures != nil && in.Summary.Failed < *cond.MinFailures {
		return false
	}

	if cond.MaxPassRate != nil && in.Summary.PassRate > *cond.MaxPassRate {
		return false
	}

	if len(cond.RequiredTags) > 0 && !failedTestHasTag(in.Results, cond.RequiredTags) {
		return false
	}

	if cond.StabilityGradeDrop && !gradeDropped(in) {
		return false
	}

	return true
}

// failedTestHasTag reports whether any failed test carries one of the
// required tags.
func failedTestHasTag(results *result.Set, tags []string) bool {
	if results == nil {
		return false
	}

	wanted := make(map[string]bool, len(tags))
	for _, tag := range tags {
		wanted[tag] = true
	}

	for _, r := range results.Failed() {
		for _, tag := range r.Tags {
			if wanted[tag] {
				return true
			}
		}
	}

	return false
}

// gradeDropped reports whether the current run's grade is worse than
// the baseline's. Without a comparison there is nothing to drop from,
// so it is always false.
func gradeDropped(in Input) bool {
	if in.Comparison == nil {
		return false
	}

	baseline := summaryGrade(in.Comparison.Baseline)
	current := summaryGrade(in.Summary)

	return analyzer.GradeRank(current) > analyzer.GradeRank(baseline)
}

// summaryGrade returns the summary's stored grade, falling back to the
// pass-rate cutoffs when older history entries lack one.
func summaryGrade(s result.RunSummary) string {
	if s.Grade != "" {
		return s.Grade
	}

	return analyzer.GradeForScore(s.PassRate)
}
