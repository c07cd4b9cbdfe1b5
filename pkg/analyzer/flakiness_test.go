package analyzer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/analyzer"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/history"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/result"
)

// entrySeq builds a history sequence from a compact spec: 'p' passed,
// 'f' failed, 'P'/'F' the same but skipped.
func entrySeq(seq string) []history.Entry {
	entries := make([]history.Entry, 0, len(seq))

	for i, c := range seq {
		e := history.Entry{Timestamp: int64(i)}

		switch c {
		case 'p':
			e.Passed = true
		case 'f':
			e.Passed = false
		case 'P':
			e.Passed = true
			e.Skipped = true
		case 'F':
			e.Passed = false
			e.Skipped = true
		}

		entries = append(entries, e)
	}

	return entries
}

func TestAnalyzeFlakiness_NoHistory(t *testing.T) {
	r := &result.TestResult{File: "a.spec.ts", Title: "t", Status: result.StatusPassed}

	analyzer.AnalyzeFlakiness(r, nil)

	assert.Equal(t, analyzer.IndicatorNew, r.FlakinessIndicator)
	assert.Nil(t, r.FlakinessScore)
}

func TestAnalyzeFlakiness_AllSkippedHistory(t *testing.T) {
	r := &result.TestResult{File: "a.spec.ts", Title: "t", Status: result.StatusPassed}

	// All-skipped history behaves exactly like no history.
	analyzer.AnalyzeFlakiness(r, entrySeq("PPFF"))

	assert.Equal(t, analyzer.IndicatorNew, r.FlakinessIndicator)
	assert.Nil(t, r.FlakinessScore)
}

func TestAnalyzeFlakiness_SkippedCurrent(t *testing.T) {
	r := &result.TestResult{File: "a.spec.ts", Title: "t", Status: result.StatusSkipped}

	analyzer.AnalyzeFlakiness(r, entrySeq("pf"))

	assert.Equal(t, analyzer.IndicatorSkipped, r.FlakinessIndicator)
	assert.Nil(t, r.FlakinessScore)
}

func TestAnalyzeFlakiness_Scenarios(t *testing.T) {
	tests := []struct {
		name          string
		seq           string
		wantScore     float64
		wantIndicator string
	}{
		{
			name:          "one failure in ten runs is unstable",
			seq:           "pppppppppf",
			wantScore:     0.10,
			wantIndicator: analyzer.IndicatorUnstable,
		},
		{
			name:          "alternating pass fail is flaky",
			seq:           "pfpf",
			wantScore:     0.50,
			wantIndicator: analyzer.IndicatorFlaky,
		},
		{
			name:          "skipped failures are excluded",
			seq:           "ppFF",
			wantScore:     0.0,
			wantIndicator: analyzer.IndicatorStable,
		},
		{
			name:          "all failures",
			seq:           "ffff",
			wantScore:     1.0,
			wantIndicator: analyzer.IndicatorFlaky,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &result.TestResult{File: "a.spec.ts", Title: "t", Status: result.StatusPassed}

			analyzer.AnalyzeFlakiness(r, entrySeq(tt.seq))

			require.NotNil(t, r.FlakinessScore)
			assert.InDelta(t, tt.wantScore, *r.FlakinessScore, 0.0001)
			assert.Equal(t, tt.wantIndicator, r.FlakinessIndicator)
		})
	}
}

func TestClassifyFlakiness_Boundaries(t *testing.T) {
	score := func(v float64) *float64 { return &v }

	tests := []struct {
		score *float64
		want  string
	}{
		{nil, analyzer.ClassNew},
		{score(0), analyzer.ClassStable},
		{score(0.099), analyzer.ClassStable},
		{score(0.10), analyzer.ClassUnstable},
		{score(0.299), analyzer.ClassUnstable},
		{score(0.30), analyzer.ClassFlaky},
		{score(1.0), analyzer.ClassFlaky},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, analyzer.ClassifyFlakiness(tt.score))
	}
}
