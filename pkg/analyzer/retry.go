package analyzer

import (
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/history"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/result"
)

// retryRecurrenceWindow is how many recent executed history entries
// are inspected for a recurring fail-then-pass pattern.
const retryRecurrenceWindow = 5

// AnalyzeRetry flags a test as needing attention when its retry count
// meets the threshold, or when its recent history shows a recurring
// fail-then-pass pattern: at least two failures mixed with passes
// inside the recurrence window.
func AnalyzeRetry(r *result.TestResult, entries []history.Entry, threshold int) {
	if r.Status == result.StatusSkipped {
		r.RetryAttention = false

		return
	}

	if threshold > 0 && r.Retry >= threshold {
		r.RetryAttention = true

		return
	}

	executed := history.NonSkipped(entries)
	if len(executed) > retryRecurrenceWindow {
		executed = executed[len(executed)-retryRecurrenceWindow:]
	}

	failures := 0
	passes := 0

	for _, e := range executed {
		if e.Passed {
			passes++
		} else {
			failures++
		}
	}

	r.RetryAttention = failures >= 2 && passes >= 1
}
