package runstore

import "time"

// Run is one indexed run summary.
type Run struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	RunID     string `gorm:"not null;uniqueIndex" json:"runId"`
	Timestamp int64  `gorm:"index" json:"timestamp"`

	Total    int     `json:"total"`
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	Skipped  int     `json:"skipped"`
	Flaky    int     `json:"flaky"`
	Slow     int     `json:"slow"`
	Duration int64   `json:"duration"`
	PassRate float64 `json:"passRate"`
	Grade    string  `json:"grade,omitempty"`

	IndexedAt time.Time `json:"indexedAt"`
}

// TestOutcome is one indexed historical outcome of a test. Outcomes
// are keyed by test identity and entry timestamp, which ties each one
// back to the run that produced it.
type TestOutcome struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	TestKey   string `gorm:"not null;index;uniqueIndex:idx_outcomes_key_ts" json:"testKey"`
	Timestamp int64  `gorm:"not null;uniqueIndex:idx_outcomes_key_ts" json:"timestamp"`

	Passed   bool  `json:"passed"`
	Skipped  bool  `json:"skipped"`
	Duration int64 `json:"duration"`
}
