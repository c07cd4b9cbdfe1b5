package notify_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/compare"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/config"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/notify"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/result"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func inputWith(summary result.RunSummary, results *result.Set, cmp *compare.Comparison) notify.Input {
	if results == nil {
		results = result.NewSet()
	}

	return notify.Input{Summary: summary, Results: results, Comparison: cmp}
}

func failedResult(title string, tags ...string) *result.TestResult {
	return &result.TestResult{
		Title:   title,
		File:    "spec.ts",
		Status:  result.StatusFailed,
		Outcome: result.OutcomeUnexpected,
		Tags:    tags,
	}
}

func TestShouldNotify_NoConditions(t *testing.T) {
	assert.True(t, notify.ShouldNotify(nil, inputWith(result.RunSummary{}, nil, nil)))
}

func TestShouldNotify_MinFailures(t *testing.T) {
	cond := &config.ConditionsConfig{MinFailures: intPtr(2)}

	assert.False(t, notify.ShouldNotify(cond, inputWith(result.RunSummary{Failed: 1}, nil, nil)))
	assert.True(t, notify.ShouldNotify(cond, inputWith(result.RunSummary{Failed: 2}, nil, nil)))
}

func TestShouldNotify_MaxPassRate(t *testing.T) {
	cond := &config.ConditionsConfig{MaxPassRate: floatPtr(90)}

	assert.False(t, notify.ShouldNotify(cond, inputWith(result.RunSummary{PassRate: 95}, nil, nil)))
	assert.True(t, notify.ShouldNotify(cond, inputWith(result.RunSummary{PassRate: 90}, nil, nil)))
}

func TestShouldNotify_RequiredTags(t *testing.T) {
	cond := &config.ConditionsConfig{RequiredTags: []string{"@critical"}}

	set := result.NewSet()
	set.Add(failedResult("untagged failure"))
	assert.False(t, notify.ShouldNotify(cond, inputWith(result.RunSummary{}, set, nil)))

	set.Add(failedResult("tagged failure", "@critical"))
	assert.True(t, notify.ShouldNotify(cond, inputWith(result.RunSummary{}, set, nil)))
}

func TestShouldNotify_RequiredTagsIgnorePassing(t *testing.T) {
	cond := &config.ConditionsConfig{RequiredTags: []string{"@critical"}}

	set := result.NewSet()
	set.Add(&result.TestResult{
		Title:   "tagged but passing",
		File:    "spec.ts",
		Status:  result.StatusPassed,
		Outcome: result.OutcomeExpected,
		Tags:    []string{"@critical"},
	})

	assert.False(t, notify.ShouldNotify(cond, inputWith(result.RunSummary{}, set, nil)))
}

func TestShouldNotify_GradeDrop(t *testing.T) {
	cond := &config.ConditionsConfig{StabilityGradeDrop: true}

	// No comparison never fires.
	assert.False(t, notify.ShouldNotify(cond, inputWith(result.RunSummary{Grade: "F"}, nil, nil)))

	cmp := &compare.Comparison{Baseline: result.RunSummary{Grade: "A"}}
	assert.True(t, notify.ShouldNotify(cond, inputWith(result.RunSummary{Grade: "C"}, nil, cmp)))
	assert.False(t, notify.ShouldNotify(cond, inputWith(result.RunSummary{Grade: "A"}, nil, cmp)))
}

func TestShouldNotify_GradeDropPassRateFallback(t *testing.T) {
	cond := &config.ConditionsConfig{StabilityGradeDrop: true}

	// Baseline without a stored grade derives one from its pass rate:
	// 95% is an A, so a current B counts as a drop.
	cmp := &compare.Comparison{Baseline: result.RunSummary{PassRate: 95}}

	assert.True(t, notify.ShouldNotify(cond, inputWith(result.RunSummary{PassRate: 85}, nil, cmp)))
}

func TestShouldNotify_Conjunctive(t *testing.T) {
	cond := &config.ConditionsConfig{
		MinFailures: intPtr(1),
		MaxPassRate: floatPtr(90),
	}

	// Failures requirement holds, pass rate does not.
	assert.False(t, notify.ShouldNotify(cond, inputWith(result.RunSummary{Failed: 3, PassRate: 95}, nil, nil)))
	assert.True(t, notify.ShouldNotify(cond, inputWith(result.RunSummary{Failed: 3, PassRate: 85}, nil, nil)))
}

func TestRenderTemplate(t *testing.T) {
	set := result.NewSet()
	set.Add(failedResult("login fails"))

	in := inputWith(result.RunSummary{
		Total:    10,
		Passed:   8,
		Failed:   1,
		Skipped:  1,
		Flaky:    2,
		PassRate: 88.89,
		Duration: 4200,
		Grade:    "B",
	}, set, nil)

	out := notify.RenderTemplate(
		"{{passed}}/{{total}} ({{passRate}}%) grade {{grade}} in {{duration}}\n{{failedTests}}", in)

	assert.Equal(t, "8/10 (88.89%) grade B in 4200ms\n- spec.ts > login fails", out)
}

func TestRenderTemplate_FailedTestsCapped(t *testing.T) {
	set := result.NewSet()
	for i := 0; i < 13; i++ {
		set.Add(failedResult(fmt.Sprintf("failure %02d", i)))
	}

	out := notify.RenderTemplate("{{failedTests}}", inputWith(result.RunSummary{}, set, nil))

	assert.Contains(t, out, "failure 09")
	assert.NotContains(t, out, "failure 10")
	assert.Contains(t, out, "... and 3 more")
}

func TestDispatch_Console(t *testing.T) {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	d := notify.NewDispatcher(log)

	var buf bytes.Buffer

	d.SetConsoleOutput(&buf)

	channels := []config.ChannelConfig{
		{Name: "local", Type: config.ChannelTypeConsole, Template: "{{failed}} failed"},
	}

	results := d.Dispatch(context.Background(), channels,
		inputWith(result.RunSummary{Failed: 2}, nil, nil))

	require.Len(t, results, 1)
	assert.True(t, results[0].Fired)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "2 failed\n", buf.String())
}

func TestDispatch_WebhookAndSlack(t *testing.T) {
	var webhookBody, slackBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		switch r.URL.Path {
		case "/hook":
			webhookBody = body
		case "/slack":
			slackBody = body
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	log := logrus.New()
	log.SetOutput(os.Stderr)

	d := notify.NewDispatcher(log)

	channels := []config.ChannelConfig{
		{
			Name:     "hook",
			Type:     config.ChannelTypeWebhook,
			Template: "{{failed}} failed",
			Options:  map[string]any{"url": srv.URL + "/hook"},
		},
		{
			Name:     "team",
			Type:     config.ChannelTypeSlack,
			Template: "{{failed}} failed",
			Options:  map[string]any{"webhook_url": srv.URL + "/slack", "channel": "#qa"},
		},
	}

	results := d.Dispatch(context.Background(), channels,
		inputWith(result.RunSummary{Failed: 3}, nil, nil))

	require.Len(t, results, 2)

	for _, res := range results {
		assert.True(t, res.Fired, res.Name)
		require.NoError(t, res.Err, res.Name)
	}

	var hook map[string]any
	require.NoError(t, json.Unmarshal(webhookBody, &hook))
	assert.Equal(t, "3 failed", hook["message"])

	var slack map[string]any
	require.NoError(t, json.Unmarshal(slackBody, &slack))
	assert.Equal(t, "3 failed", slack["text"])
	assert.Equal(t, "#qa", slack["channel"])
}

func TestDispatch_FailureDoesNotBlockSiblings(t *testing.T) {
	var delivered atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		delivered.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	log := logrus.New()
	log.SetOutput(os.Stderr)

	d := notify.NewDispatcher(log)

	channels := []config.ChannelConfig{
		// Misconfigured channel with no URL fails to build.
		{Name: "broken", Type: config.ChannelTypeWebhook},
		{Name: "working", Type: config.ChannelTypeWebhook, Options: map[string]any{"url": srv.URL}},
	}

	results := d.Dispatch(context.Background(), channels,
		inputWith(result.RunSummary{Failed: 1}, nil, nil))

	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.False(t, results[0].Fired)
	assert.True(t, results[1].Fired)
	assert.Equal(t, int32(1), delivered.Load())
}

func TestDispatch_ConditionsGateChannels(t *testing.T) {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	d := notify.NewDispatcher(log)

	var buf bytes.Buffer

	d.SetConsoleOutput(&buf)

	channels := []config.ChannelConfig{
		{
			Name:       "quiet",
			Type:       config.ChannelTypeConsole,
			Conditions: &config.ConditionsConfig{MinFailures: intPtr(5)},
		},
	}

	results := d.Dispatch(context.Background(), channels,
		inputWith(result.RunSummary{Failed: 1}, nil, nil))

	require.Len(t, results, 1)
	assert.False(t, results[0].Fired)
	require.NoError(t, results[0].Err)
	assert.Empty(t, buf.String())
}
