package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/api/runstore"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/config"
)

func setupServer(t *testing.T, mutate func(*config.APIConfig)) *httptest.Server {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	cfg := &config.APIConfig{
		Database: config.APIDatabaseConfig{
			Driver: "sqlite",
			SQLite: config.SQLiteDatabaseConfig{Path: ":memory:"},
		},
	}

	if mutate != nil {
		mutate(cfg)
	}

	store := runstore.NewStore(log, &cfg.Database)
	require.NoError(t, store.Start(context.Background()))

	t.Cleanup(func() { _ = store.Stop() })

	ctx := context.Background()

	require.NoError(t, store.UpsertRun(ctx, &runstore.Run{
		RunID: "run-1", Timestamp: 1000, Total: 2, Passed: 1, Failed: 1, PassRate: 50, Grade: "F",
	}))
	require.NoError(t, store.UpsertRun(ctx, &runstore.Run{
		RunID: "run-2", Timestamp: 2000, Total: 2, Passed: 2, PassRate: 100, Grade: "A",
	}))
	require.NoError(t, store.ReplaceOutcomes(ctx, "app.spec.ts > login", []*runstore.TestOutcome{
		{TestKey: "app.spec.ts > login", Timestamp: 1000, Passed: false, Duration: 120},
		{TestKey: "app.spec.ts > login", Timestamp: 2000, Passed: true, Duration: 100},
	}))

	s := &server{log: log, cfg: cfg, store: store}

	ts := httptest.NewServer(s.buildRouter())
	t.Cleanup(ts.Close)

	return ts
}

func getJSON(t *testing.T, url string, wantStatus int) map[string]any {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, wantStatus, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body
}

func TestAPI_Health(t *testing.T) {
	ts := setupServer(t, nil)

	body := getJSON(t, ts.URL+"/api/v1/health", http.StatusOK)
	assert.Equal(t, "ok", body["status"])
}

func TestAPI_ListRuns(t *testing.T) {
	ts := setupServer(t, nil)

	body := getJSON(t, ts.URL+"/api/v1/runs", http.StatusOK)

	runs, ok := body["runs"].([]any)
	require.True(t, ok)
	require.Len(t, runs, 2)

	// Newest first.
	first, ok := runs[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "run-2", first["runId"])
}

func TestAPI_ListRunsLimit(t *testing.T) {
	ts := setupServer(t, nil)

	body := getJSON(t, ts.URL+"/api/v1/runs?limit=1", http.StatusOK)

	runs, ok := body["runs"].([]any)
	require.True(t, ok)
	assert.Len(t, runs, 1)

	getJSON(t, ts.URL+"/api/v1/runs?limit=bogus", http.StatusBadRequest)
}

func TestAPI_GetRun(t *testing.T) {
	ts := setupServer(t, nil)

	body := getJSON(t, ts.URL+"/api/v1/runs/run-1", http.StatusOK)
	assert.Equal(t, "run-1", body["runId"])
	assert.Equal(t, "F", body["grade"])

	getJSON(t, ts.URL+"/api/v1/runs/missing", http.StatusNotFound)
}

func TestAPI_TestHistory(t *testing.T) {
	ts := setupServer(t, nil)

	key := url.PathEscape("app.spec.ts > login")

	body := getJSON(t, ts.URL+"/api/v1/tests/"+key+"/history", http.StatusOK)
	assert.Equal(t, "app.spec.ts > login", body["testKey"])

	outcomes, ok := body["outcomes"].([]any)
	require.True(t, ok)
	assert.Len(t, outcomes, 2)

	getJSON(t, ts.URL+"/api/v1/tests/unknown/history", http.StatusNotFound)
}

func TestAPI_Summary(t *testing.T) {
	ts := setupServer(t, nil)

	body := getJSON(t, ts.URL+"/api/v1/summary", http.StatusOK)
	assert.Equal(t, float64(2), body["runs"])
	assert.Equal(t, float64(1), body["tests"])

	latest, ok := body["latestRun"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "run-2", latest["runId"])
}

func TestAPI_RateLimit(t *testing.T) {
	ts := setupServer(t, func(cfg *config.APIConfig) {
		cfg.Server.RateLimit = config.RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 2,
		}
	})

	// Burst allows the per-minute limit, then requests are rejected.
	getJSON(t, ts.URL+"/api/v1/runs", http.StatusOK)
	getJSON(t, ts.URL+"/api/v1/runs", http.StatusOK)
	getJSON(t, ts.URL+"/api/v1/runs", http.StatusTooManyRequests)

	// Health is outside the rate-limited group.
	getJSON(t, ts.URL+"/api/v1/health", http.StatusOK)
}
