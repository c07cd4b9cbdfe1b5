package history

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/config"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/fsutil"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/result"
)

// Entry is one past outcome for a test identity. Skipped entries are
// excluded from flakiness and average-duration math but kept for
// display.
type Entry struct {
	Passed    bool  `json:"passed"`
	Duration  int64 `json:"duration"`
	Timestamp int64 `json:"timestamp"`
	Skipped   bool  `json:"skipped,omitempty"`
}

// RunMeta identifies one past run.
type RunMeta struct {
	RunID     string `json:"runId"`
	Timestamp int64  `json:"timestamp"`
}

// TestHistory is the persisted history state: past run metadata, the
// per-test outcome sequences, and per-run summaries. Entry slices are
// chronological, oldest first.
type TestHistory struct {
	Runs      []RunMeta           `json:"runs"`
	Tests     map[string][]Entry  `json:"tests"`
	Summaries []result.RunSummary `json:"summaries"`
}

// NewTestHistory returns an empty history.
func NewTestHistory() *TestHistory {
	return &TestHistory{
		Tests: make(map[string][]Entry),
	}
}

// Store owns the history file. It is loaded once at run start and
// written once at run end; nothing else touches the file during a run.
type Store struct {
	log     logrus.FieldLogger
	cfg     *config.HistoryConfig
	history *TestHistory
}

// NewStore creates a history store for the configured file.
func NewStore(log logrus.FieldLogger, cfg *config.HistoryConfig) *Store {
	return &Store{
		log:     log.WithField("component", "history"),
		cfg:     cfg,
		history: NewTestHistory(),
	}
}

// Load reads the persisted history into memory. A missing or corrupt
// file is a recoverable condition: the store falls back to empty
// history and the run continues.
func (s *Store) Load() {
	data, err := os.ReadFile(s.cfg.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithError(err).Warn("Failed to read history file, starting fresh")
		}

		s.history = NewTestHistory()

		return
	}

	var h TestHistory
	if err := json.Unmarshal(data, &h); err != nil {
		s.log.WithError(err).Warn("History file is corrupt, starting fresh")

		s.history = NewTestHistory()

		return
	}

	if h.Tests == nil {
		h.Tests = make(map[string][]Entry)
	}

	s.history = &h

	s.log.WithFields(logrus.Fields{
		"runs":  len(h.Runs),
		"tests": len(h.Tests),
	}).Debug("History loaded")
}

// History returns the in-memory history.
func (s *Store) History() *TestHistory {
	return s.history
}

// For returns the chronological entry sequence for a test identity.
// A new test has no entries.
func (s *Store) For(key string) []Entry {
	return s.history.Tests[key]
}

// BaselineRun returns the most recent prior run summary, or false if
// this is the first run.
func (s *Store) BaselineRun() (result.RunSummary, bool) {
	if len(s.history.Summaries) == 0 {
		return result.RunSummary{}, false
	}

	return s.history.Summaries[len(s.history.Summaries)-1], true
}

// BaselineResults synthesizes a pseudo-result per known test identity
// from its last history entry. The synthesized results are used only
// for diffing against the current run; they are never mixed into the
// current result set.
func (s *Store) BaselineResults() map[string]*result.TestResult {
	baseline := make(map[string]*result.TestResult, len(s.history.Tests))

	for key, entries := range s.history.Tests {
		if len(entries) == 0 {
			continue
		}

		last := entries[len(entries)-1]

		r := &result.TestResult{
			Title:    key,
			Duration: last.Duration,
		}

		switch {
		case last.Skipped:
			r.Status = result.StatusSkipped
			r.Outcome = result.OutcomeSkipped
		case last.Passed:
			r.Status = result.StatusPassed
			r.Outcome = result.OutcomeExpected
		default:
			r.Status = result.StatusFailed
			r.Outcome = result.OutcomeUnexpected
		}

		baseline[key] = r
	}

	return baseline
}

// Update appends the current run to history, trims every sequence to
// the retention window, and persists the result atomically. A partial
// write never corrupts the previous history file.
func (s *Store) Update(summary result.RunSummary, results *result.Set) error {
	s.history.Runs = append(s.history.Runs, RunMeta{
		RunID:     summary.RunID,
		Timestamp: summary.Timestamp,
	})
	s.history.Summaries = append(s.history.Summaries, summary)

	for _, r := range results.All() {
		s.history.Tests[r.Key()] = append(s.history.Tests[r.Key()], Entry{
			Passed:    r.DidPass(),
			Duration:  r.Duration,
			Timestamp: summary.Timestamp,
			Skipped:   r.Status == result.StatusSkipped,
		})
	}

	s.history.Trim(s.cfg.MaxRuns)

	return s.Save()
}

// Save persists the in-memory history atomically.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.history, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}

	if err := fsutil.WriteFileAtomic(s.cfg.Path, data, 0644); err != nil {
		return fmt.Errorf("writing history file: %w", err)
	}

	return nil
}

// Trim drops the oldest runs, summaries and per-test entries beyond
// the retention window.
func (h *TestHistory) Trim(maxRuns int) {
	if maxRuns <= 0 {
		return
	}

	if len(h.Runs) > maxRuns {
		h.Runs = h.Runs[len(h.Runs)-maxRuns:]
	}

	if len(h.Summaries) > maxRuns {
		h.Summaries = h.Summaries[len(h.Summaries)-maxRuns:]
	}

	for key, entries := range h.Tests {
		if len(entries) > maxRuns {
			h.Tests[key] = entries[len(entries)-maxRuns:]
		}
	}
}

// Merge combines multiple histories into one: runs and summaries are
// deduplicated by run id, per-test entries are re-sorted
// chronologically, and the result is trimmed to the retention window.
func Merge(maxRuns int, histories ...*TestHistory) *TestHistory {
	merged := NewTestHistory()

	seenRuns := make(map[string]struct{})

	for _, h := range histories {
		if h == nil {
			continue
		}

		for i, run := range h.Runs {
			if _, ok := seenRuns[run.RunID]; ok {
				continue
			}

			seenRuns[run.RunID] = struct{}{}
			merged.Runs = append(merged.Runs, run)

			// Summaries travel with their run metadata.
			if i < len(h.Summaries) {
				merged.Summaries = append(merged.Summaries, h.Summaries[i])
			}
		}

		for key, entries := range h.Tests {
			merged.Tests[key] = append(merged.Tests[key], entries...)
		}
	}

	sort.SliceStable(merged.Runs, func(i, j int) bool {
		return merged.Runs[i].Timestamp < merged.Runs[j].Timestamp
	})
	sort.SliceStable(merged.Summaries, func(i, j int) bool {
		return merged.Summaries[i].Timestamp < merged.Summaries[j].Timestamp
	})

	for key := range merged.Tests {
		entries := merged.Tests[key]
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Timestamp < entries[j].Timestamp
		})
		merged.Tests[key] = entries
	}

	merged.Trim(maxRuns)

	return merged
}

// LoadFile reads one history file without store semantics, for
// merge/trim tooling. Unlike Store.Load, a broken file is an error
// here: external tools should not silently merge nothing.
func LoadFile(path string) (*TestHistory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading history file: %w", err)
	}

	var h TestHistory
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parsing history file: %w", err)
	}

	if h.Tests == nil {
		h.Tests = make(map[string][]Entry)
	}

	return &h, nil
}

// WriteFile persists a history value atomically to the given path.
func WriteFile(path string, h *TestHistory) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}

	if err := fsutil.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("writing history file: %w", err)
	}

	return nil
}

// NonSkipped filters an entry sequence down to the entries that
// actually executed.
func NonSkipped(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))

	for _, e := range entries {
		if !e.Skipped {
			out = append(out, e)
		}
	}

	return out
}
