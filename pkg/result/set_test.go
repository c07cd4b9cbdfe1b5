package result_test

import (
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/result"
)

func TestTestResult_Key(t *testing.T) {
	tests := []struct {
		name string
		r    result.TestResult
		want string
	}{
		{
			name: "with project",
			r:    result.TestResult{Project: "chromium", File: "auth/login.spec.ts", Title: "logs in"},
			want: "chromium > auth/login.spec.ts > logs in",
		},
		{
			name: "without project",
			r:    result.TestResult{File: "auth/login.spec.ts", Title: "logs in"},
			want: "auth/login.spec.ts > logs in",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.Key())
		})
	}
}

func TestSet_AddKeepsHighestRetry(t *testing.T) {
	attempts := []*result.TestResult{
		{File: "a.spec.ts", Title: "t", Retry: 0, Status: result.StatusFailed},
		{File: "a.spec.ts", Title: "t", Retry: 1, Status: result.StatusFailed},
		{File: "a.spec.ts", Title: "t", Retry: 2, Status: result.StatusPassed, Outcome: result.OutcomeFlaky},
	}

	// The reducer must be independent of completion order.
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 10; i++ {
		shuffled := make([]*result.TestResult, len(attempts))
		copy(shuffled, attempts)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		set := result.NewSet()
		for _, a := range shuffled {
			set.Add(a)
		}

		require.Equal(t, 1, set.Len())

		final, ok := set.Get("a.spec.ts > t")
		require.True(t, ok)
		assert.Equal(t, 2, final.Retry)
		assert.Equal(t, result.StatusPassed, final.Status)
	}
}

func TestSet_AddKeepsFirstFailureError(t *testing.T) {
	attempts := []result.TestResult{
		{File: "a.spec.ts", Title: "flaky", Retry: 0, Status: result.StatusFailed, Error: "AssertionError: expected 2 to be 3"},
		{File: "a.spec.ts", Title: "flaky", Retry: 1, Status: result.StatusFailed, Error: "TimeoutError: locator not found"},
		{File: "a.spec.ts", Title: "flaky", Retry: 2, Status: result.StatusPassed, Outcome: result.OutcomeFlaky},
	}

	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}}

	for _, order := range orders {
		set := result.NewSet()
		for _, i := range order {
			a := attempts[i]
			set.Add(&a)
		}

		final, ok := set.Get("a.spec.ts > flaky")
		require.True(t, ok)
		assert.Equal(t, 2, final.Retry)
		assert.Equal(t, result.StatusPassed, final.Status)
		assert.Equal(t, "AssertionError: expected 2 to be 3", final.Error)
	}
}

func TestSet_AddIdempotent(t *testing.T) {
	set := result.NewSet()

	r := &result.TestResult{File: "a.spec.ts", Title: "t", Retry: 1, Status: result.StatusPassed}
	set.Add(r)
	set.Add(r)

	assert.Equal(t, 1, set.Len())
}

func TestSet_AllPreservesInsertionOrder(t *testing.T) {
	set := result.NewSet()
	set.Add(&result.TestResult{File: "b.spec.ts", Title: "second"})
	set.Add(&result.TestResult{File: "a.spec.ts", Title: "first"})
	set.Add(&result.TestResult{File: "c.spec.ts", Title: "third"})

	all := set.All()
	require.Len(t, all, 3)
	assert.Equal(t, "second", all[0].Title)
	assert.Equal(t, "first", all[1].Title)
	assert.Equal(t, "third", all[2].Title)
}

func TestSet_Failed(t *testing.T) {
	set := result.NewSet()
	set.Add(&result.TestResult{File: "a.spec.ts", Title: "pass", Status: result.StatusPassed})
	set.Add(&result.TestResult{File: "a.spec.ts", Title: "fail", Status: result.StatusFailed})
	set.Add(&result.TestResult{File: "a.spec.ts", Title: "timeout", Status: result.StatusTimedOut})
	set.Add(&result.TestResult{File: "a.spec.ts", Title: "skip", Status: result.StatusSkipped})

	failed := set.Failed()
	require.Len(t, failed, 2)
	assert.Equal(t, "fail", failed[0].Title)
	assert.Equal(t, "timeout", failed[1].Title)
}

func TestSet_Summarize(t *testing.T) {
	set := result.NewSet()
	set.Add(&result.TestResult{File: "a.spec.ts", Title: "p1", Status: result.StatusPassed, Duration: 100, Outcome: result.OutcomeExpected})
	set.Add(&result.TestResult{File: "a.spec.ts", Title: "p2", Status: result.StatusPassed, Duration: 6000, Outcome: result.OutcomeFlaky, Retry: 1})
	set.Add(&result.TestResult{File: "a.spec.ts", Title: "f1", Status: result.StatusFailed, Duration: 300, Outcome: result.OutcomeUnexpected})
	set.Add(&result.TestResult{File: "a.spec.ts", Title: "s1", Status: result.StatusSkipped, Outcome: result.OutcomeSkipped})

	ts := time.Unix(1700000000, 0)
	sum := set.Summarize("run-1", ts, 5000)

	assert.Equal(t, "run-1", sum.RunID)
	assert.Equal(t, ts.UnixMilli(), sum.Timestamp)
	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 2, sum.Passed)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 1, sum.Flaky)
	assert.Equal(t, 1, sum.Slow)
	assert.Equal(t, int64(6400), sum.Duration)
	// 2 passed out of 3 executed.
	assert.InDelta(t, 66.67, sum.PassRate, 0.001)
}

func TestPassRate_AllSkipped(t *testing.T) {
	assert.Equal(t, float64(0), result.PassRate(0, 3, 3))
	assert.Equal(t, float64(0), result.PassRate(0, 0, 0))
}

func TestLoadRunFile(t *testing.T) {
	raw := []result.TestResult{
		{File: "a.spec.ts", Title: "t", Retry: 0, Status: result.StatusFailed, Duration: 10},
		{File: "a.spec.ts", Title: "t", Retry: 1, Status: result.StatusPassed, Duration: 12, Outcome: result.OutcomeFlaky},
		{File: "b.spec.ts", Title: "u", Status: result.StatusPassed, Duration: 5, Outcome: result.OutcomeExpected},
	}

	data, err := json.Marshal(raw)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.WriteFile(path, data, 0644))

	set, err := result.LoadRunFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())

	final, ok := set.Get("a.spec.ts > t")
	require.True(t, ok)
	assert.Equal(t, result.StatusPassed, final.Status)
	assert.Equal(t, 1, final.Retry)
}

func TestLoadRunFile_Missing(t *testing.T) {
	_, err := result.LoadRunFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
