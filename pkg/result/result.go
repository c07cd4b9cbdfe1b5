package result

import "strings"

// Status is the raw outcome of a test's final attempt.
type Status string

const (
	StatusPassed      Status = "passed"
	StatusFailed      Status = "failed"
	StatusTimedOut    Status = "timedOut"
	StatusSkipped     Status = "skipped"
	StatusInterrupted Status = "interrupted"
)

// Outcome is the run-level classification of a test, accounting for
// retries within the same run. A test that failed at least once and
// then passed on retry is "flaky".
type Outcome string

const (
	OutcomeExpected   Outcome = "expected"
	OutcomeUnexpected Outcome = "unexpected"
	OutcomeFlaky      Outcome = "flaky"
	OutcomeSkipped    Outcome = "skipped"
)

// Trend describes how a test's current duration compares to its
// historical baseline.
type Trend struct {
	Direction        string  `json:"direction"`
	ChangePct        float64 `json:"changePct"`
	BaselineDuration int64   `json:"baselineDuration"`
}

const (
	TrendSlower = "slower"
	TrendFaster = "faster"
	TrendStable = "stable"
)

// StabilityScore is the composite 0-100 stability signal for one test.
type StabilityScore struct {
	Overall        int    `json:"overall"`
	Flakiness      int    `json:"flakiness"`
	Performance    int    `json:"performance"`
	Reliability    int    `json:"reliability"`
	Grade          string `json:"grade"`
	NeedsAttention bool   `json:"needsAttention"`
}

// TestResult is one test's outcome for the current run. Identity is
// the composite of project, file and title, stable across runs so
// history can be joined.
type TestResult struct {
	Project  string   `json:"project,omitempty"`
	File     string   `json:"file"`
	Title    string   `json:"title"`
	Suite    []string `json:"suite,omitempty"`
	Status   Status   `json:"status"`
	Duration int64    `json:"duration"`
	Retry    int      `json:"retry"`
	Error    string   `json:"error,omitempty"`
	Outcome  Outcome  `json:"outcome"`
	Tags     []string `json:"tags,omitempty"`

	// Fields below are populated by the analyzers.
	FlakinessScore     *float64        `json:"flakinessScore,omitempty"`
	FlakinessIndicator string          `json:"flakinessIndicator,omitempty"`
	PerformanceTrend   *Trend          `json:"performanceTrend,omitempty"`
	Stability          *StabilityScore `json:"stability,omitempty"`
	RetryAttention     bool            `json:"retryAttention,omitempty"`
}

// Key returns the test's identity key, stable across runs. The project
// segment is omitted when empty so keys match runs executed without an
// explicit project.
func (r *TestResult) Key() string {
	parts := make([]string, 0, 3)
	if r.Project != "" {
		parts = append(parts, r.Project)
	}

	parts = append(parts, r.File, r.Title)

	return strings.Join(parts, " > ")
}

// DidFail reports whether the test's final attempt failed.
func (r *TestResult) DidFail() bool {
	return r.Status == StatusFailed || r.Status == StatusTimedOut
}

// DidPass reports whether the test's final attempt passed, including
// passes reached via retry.
func (r *TestResult) DidPass() bool {
	return r.Status == StatusPassed
}
