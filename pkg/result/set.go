package result

import (
	"math"
	"sync"
	"time"
)

// DefaultSlowThresholdMS is the duration above which a test counts as
// slow in run summaries.
const DefaultSlowThresholdMS = 5000

// Set collects results for a run, keyed by test identity. When a test
// retries, attempts can arrive in any order; Add keeps only the
// attempt with the highest retry count, so the set always holds the
// final attempt per test. The error text of the first failing attempt
// is carried onto the kept attempt, so a flaky test that eventually
// passed still reports what went wrong. Both rules are commutative and
// idempotent, so concurrent attempt completion order does not matter.
type Set struct {
	mu     sync.Mutex
	byKey  map[string]*TestResult
	errors map[string]attemptError
	order  []string
}

// attemptError remembers the lowest-retry error seen for a test.
type attemptError struct {
	retry int
	text  string
}

// NewSet creates an empty result set.
func NewSet() *Set {
	return &Set{
		byKey:  make(map[string]*TestResult),
		errors: make(map[string]attemptError),
	}
}

// Add records a result attempt. An attempt replaces an existing one
// for the same identity only when its retry count is higher. The kept
// attempt always carries the first failing attempt's error text.
func (s *Set) Add(r *TestResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := r.Key()

	if r.Error != "" {
		fe, ok := s.errors[key]
		if !ok || r.Retry < fe.retry {
			s.errors[key] = attemptError{retry: r.Retry, text: r.Error}
		}
	}

	existing, ok := s.byKey[key]

	switch {
	case !ok:
		s.byKey[key] = r
		s.order = append(s.order, key)
	case r.Retry > existing.Retry:
		s.byKey[key] = r
	}

	if fe, ok := s.errors[key]; ok {
		s.byKey[key].Error = fe.text
	}
}

// Get returns the result for a test identity key.
func (s *Set) Get(key string) (*TestResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byKey[key]

	return r, ok
}

// Len returns the number of distinct tests in the set.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.byKey)
}

// All returns all results in first-insertion order.
func (s *Set) All() []*TestResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*TestResult, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.byKey[key])
	}

	return out
}

// Failed returns the failed and timed-out results in first-insertion
// order.
func (s *Set) Failed() []*TestResult {
	all := s.All()

	failed := make([]*TestResult, 0, len(all))

	for _, r := range all {
		if r.DidFail() {
			failed = append(failed, r)
		}
	}

	return failed
}

// RunSummary holds aggregate counts for one run. It is used both for
// the live run and for baselines reconstructed from history.
type RunSummary struct {
	RunID     string  `json:"runId"`
	Timestamp int64   `json:"timestamp"`
	Total     int     `json:"total"`
	Passed    int     `json:"passed"`
	Failed    int     `json:"failed"`
	Skipped   int     `json:"skipped"`
	Flaky     int     `json:"flaky"`
	Slow      int     `json:"slow"`
	Duration  int64   `json:"duration"`
	PassRate  float64 `json:"passRate"`
	Grade     string  `json:"grade,omitempty"`
}

// Summarize computes the run summary over the set's final attempts.
// slowThresholdMS <= 0 falls back to DefaultSlowThresholdMS.
func (s *Set) Summarize(runID string, ts time.Time, slowThresholdMS int64) RunSummary {
	if slowThresholdMS <= 0 {
		slowThresholdMS = DefaultSlowThresholdMS
	}

	sum := RunSummary{
		RunID:     runID,
		Timestamp: ts.UnixMilli(),
	}

	for _, r := range s.All() {
		sum.Total++
		sum.Duration += r.Duration

		switch {
		case r.Status == StatusSkipped:
			sum.Skipped++
		case r.DidPass():
			sum.Passed++
		default:
			sum.Failed++
		}

		if r.Outcome == OutcomeFlaky {
			sum.Flaky++
		}

		if r.Duration >= slowThresholdMS {
			sum.Slow++
		}
	}

	sum.PassRate = PassRate(sum.Passed, sum.Total, sum.Skipped)

	return sum
}

// PassRate returns the percentage of passed tests among non-skipped
// tests, rounded to two decimal places. An all-skipped or empty run
// has a pass rate of 0.
func PassRate(passed, total, skipped int) float64 {
	executed := total - skipped
	if executed <= 0 {
		return 0
	}

	rate := float64(passed) / float64(executed) * 100

	return math.Round(rate*100) / 100
}
