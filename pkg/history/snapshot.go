package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/fsutil"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/result"
)

// SnapshotEntry is the per-test detail kept for historical drill-down.
// It lets a report show what a test looked like N runs ago without
// re-running anything.
type SnapshotEntry struct {
	Status   result.Status  `json:"status"`
	Outcome  result.Outcome `json:"outcome"`
	Duration int64          `json:"duration"`
	Retry    int            `json:"retry"`
	Error    string         `json:"error,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
}

// snapshotPath returns the snapshot file for a run id.
func (s *Store) snapshotPath(runID string) string {
	dir := s.cfg.SnapshotsDir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(s.cfg.Path), "snapshots")
	}

	return filepath.Join(dir, runID+".json")
}

// WriteSnapshot persists the per-test detail snapshot for one run.
func (s *Store) WriteSnapshot(runID string, results *result.Set) error {
	snapshot := make(map[string]SnapshotEntry, results.Len())

	for _, r := range results.All() {
		snapshot[r.Key()] = SnapshotEntry{
			Status:   r.Status,
			Outcome:  r.Outcome,
			Duration: r.Duration,
			Retry:    r.Retry,
			Error:    r.Error,
			Tags:     r.Tags,
		}
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	if err := fsutil.WriteFileAtomic(s.snapshotPath(runID), data, 0644); err != nil {
		return fmt.Errorf("writing snapshot file: %w", err)
	}

	return nil
}

// Snapshot reads the detail snapshot for a run id. A missing snapshot
// returns ok=false rather than an error.
func (s *Store) Snapshot(runID string) (map[string]SnapshotEntry, bool, error) {
	data, err := os.ReadFile(s.snapshotPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("reading snapshot file: %w", err)
	}

	var snapshot map[string]SnapshotEntry
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, false, fmt.Errorf("parsing snapshot file: %w", err)
	}

	return snapshot, true, nil
}
