// Package quarantine maintains the quarantine list for tests whose
// flakiness crosses the configured threshold, and releases them once
// they stay below it for long enough.
package quarantine

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/config"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/fsutil"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/result"
)

// Entry is one quarantined test.
type Entry struct {
	TestID             string    `json:"testId"`
	Title              string    `json:"title"`
	Reason             string    `json:"reason"`
	Since              time.Time `json:"since"`
	BelowThresholdRuns int       `json:"belowThresholdRuns"`
}

// File is the on-disk quarantine list.
type File struct {
	UpdatedAt time.Time `json:"updatedAt"`
	Entries   []Entry   `json:"entries"`
}

// Generator loads, updates and persists the quarantine file.
type Generator struct {
	log logrus.FieldLogger
	cfg *config.QuarantineCfg
}

func NewGenerator(log logrus.FieldLogger, cfg *config.QuarantineCfg) *Generator {
	return &Generator{
		log: log.WithField("component", "quarantine"),
		cfg: cfg,
	}
}

// Load reads the quarantine file. A missing or corrupt file starts an
// empty list so a broken file never blocks a run.
func (g *Generator) Load() File {
	data, err := os.ReadFile(g.cfg.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			g.log.WithError(err).Warn("Failed to read quarantine file, starting empty")
		}

		return File{}
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		g.log.WithError(err).Warn("Failed to parse quarantine file, starting empty")

		return File{}
	}

	return file
}

// Update reconciles the quarantine list against the current run's
// flakiness scores and writes it back. Tests at or above the threshold
// are quarantined. Quarantined tests below the threshold accumulate
// release credit and leave the list after the configured number of
// consecutive clean runs. Tests absent from the run keep their state.
func (g *Generator) Update(results *result.Set, now time.Time) (File, error) {
	file := g.Load()

	current := map[string]*Entry{}
	for i := range file.Entries {
		current[file.Entries[i].TestID] = &file.Entries[i]
	}

	var next []Entry

	seen := map[string]bool{}

	for _, r := range results.All() {
		key := r.Key()
		seen[key] = true

		score := float64(0)
		if r.FlakinessScore != nil {
			score = *r.FlakinessScore
		}

		entry, quarantined := current[key]

		switch {
		case score >= g.cfg.Threshold:
			if quarantined {
				entry.Reason = flakinessReason(score)
				entry.BelowThresholdRuns = 0
				next = append(next, *entry)
			} else {
				g.log.WithFields(logrus.Fields{
					"test":  key,
					"score": score,
				}).Info("Quarantining flaky test")

				next = append(next, Entry{
					TestID: key,
					Title:  r.Title,
					Reason: flakinessReason(score),
					Since:  now,
				})
			}
		case quarantined:
			entry.BelowThresholdRuns++
			if entry.BelowThresholdRuns >= g.cfg.ReleaseAfterRuns {
				g.log.WithField("test", key).Info("Releasing test from quarantine")
			} else {
				next = append(next, *entry)
			}
		}
	}

	// Tests not present in this run keep their quarantine state.
	for i := range file.Entries {
		if !seen[file.Entries[i].TestID] {
			next = append(next, file.Entries[i])
		}
	}

	file.Entries = next
	file.UpdatedAt = now

	if err := g.save(file); err != nil {
		return file, fmt.Errorf("saving quarantine file: %w", err)
	}

	return file, nil
}

func (g *Generator) save(file File) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling quarantine file: %w", err)
	}

	return fsutil.WriteFileAtomic(g.cfg.Path, data, 0o644)
}

// SkipPattern builds a grep pattern matching every quarantined test
// title, for wiring into a runner's skip filter. Returns an empty
// string when nothing is quarantined.
func (f File) SkipPattern() string {
	if len(f.Entries) == 0 {
		return ""
	}

	parts := make([]string, 0, len(f.Entries))
	for _, e := range f.Entries {
		title := e.Title
		if title == "" {
			title = e.TestID
		}

		parts = append(parts, regexp.QuoteMeta(title))
	}

	return strings.Join(parts, "|")
}

func flakinessReason(score float64) string {
	return fmt.Sprintf("flakiness score %.2f", score)
}
