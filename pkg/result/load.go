package result

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadRunFile reads a run file produced by the external reporter: a
// JSON array of per-test results. Attempts for the same test identity
// are deduplicated through Set.Add, so a run file containing every
// retry attempt yields one final result per test.
func LoadRunFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run file: %w", err)
	}

	var raw []*TestResult
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing run file: %w", err)
	}

	set := NewSet()

	for _, r := range raw {
		if r == nil {
			continue
		}

		set.Add(r)
	}

	return set, nil
}
