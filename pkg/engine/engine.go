// Package engine orchestrates a full analysis pass over one run's
// results: per-test analyzers, summary, baseline comparison, failure
// clustering, quality gate, quarantine, notifications and history
// update.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/analyzer"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/cluster"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/compare"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/config"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/gate"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/history"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/notify"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/quarantine"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/result"
)

// Report aggregates everything one analysis pass produced, for
// renderers and the CLI.
type Report struct {
	Summary       result.RunSummary      `json:"summary"`
	Results       *result.Set            `json:"-"`
	Comparison    *compare.Comparison    `json:"comparison,omitempty"`
	Clusters      []cluster.Cluster      `json:"clusters,omitempty"`
	Gate          *gate.Result           `json:"gate,omitempty"`
	Quarantine    *quarantine.File       `json:"quarantine,omitempty"`
	Notifications []notify.ChannelResult `json:"-"`
}

// Engine runs the analysis pipeline.
type Engine struct {
	log        logrus.FieldLogger
	cfg        *config.Config
	store      *history.Store
	quarantine *quarantine.Generator
	dispatcher *notify.Dispatcher
	analyzeOne func(r *result.TestResult)
}

// New creates an engine with its history store, quarantine generator
// and notification dispatcher wired from the configuration.
func New(log logrus.FieldLogger, cfg *config.Config) *Engine {
	e := &Engine{
		log:        log.WithField("component", "engine"),
		cfg:        cfg,
		store:      history.NewStore(log, &cfg.History),
		quarantine: quarantine.NewGenerator(log, &cfg.Quarantine),
		dispatcher: notify.NewDispatcher(log),
	}
	e.analyzeOne = e.runAnalyzers

	return e
}

// Store exposes the engine's history store for serving and tooling.
func (e *Engine) Store() *history.Store {
	return e.store
}

// Dispatcher exposes the notification dispatcher, used by tests to
// redirect console output.
func (e *Engine) Dispatcher() *notify.Dispatcher {
	return e.dispatcher
}

// Run executes one full analysis pass. History and quarantine write
// failures degrade to warnings: the in-memory report stays usable even
// when nothing can be persisted. Once started, the pass always runs to
// completion.
func (e *Engine) Run(ctx context.Context, runID string, results *result.Set) (*Report, error) {
	if results == nil || results.Len() == 0 {
		return nil, fmt.Errorf("no test results to analyze")
	}

	if runID == "" {
		runID = uuid.New().String()
	}

	e.store.Load()

	baselineSummary, hasBaseline := e.store.BaselineRun()

	e.analyzeTests(results)

	summary := results.Summarize(runID, time.Now(), e.cfg.Analysis.SlowThresholdMS)
	summary.Grade = e.runGrade(results, summary)

	report := &Report{
		Summary: summary,
		Results: results,
	}

	if hasBaseline {
		report.Comparison = compare.Build(results, summary, baselineSummary,
			e.store.BaselineResults(), e.cfg.Analysis.PerformanceThresholdPct)
	}

	report.Clusters = cluster.Build(results.Failed())

	if e.cfg.QualityGate != nil {
		res := gate.Evaluate(e.cfg.QualityGate, results, summary, report.Comparison)
		report.Gate = &res
	}

	if e.cfg.Quarantine.Enabled {
		file, err := e.quarantine.Update(results, time.Now().UTC())
		if err != nil {
			e.log.WithError(err).Warn("Failed to persist quarantine file")
		}

		report.Quarantine = &file
	}

	if len(e.cfg.Notifications) > 0 {
		report.Notifications = e.dispatcher.Dispatch(ctx, e.cfg.Notifications, notify.Input{
			Summary:    summary,
			Results:    results,
			Comparison: report.Comparison,
		})
	}

	if err := e.store.Update(summary, results); err != nil {
		e.log.WithError(err).Warn("Failed to persist history, report remains valid")
	}

	if e.cfg.History.SnapshotsEnabled {
		if err := e.store.WriteSnapshot(runID, results); err != nil {
			e.log.WithError(err).Warn("Failed to write run snapshot")
		}
	}

	e.log.WithFields(logrus.Fields{
		"run_id":    runID,
		"total":     summary.Total,
		"failed":    summary.Failed,
		"pass_rate": summary.PassRate,
		"grade":     summary.Grade,
	}).Info("Analysis pass complete")

	return report, nil
}

// analyzeTests runs the per-test analyzers in order. A failure while
// analyzing one test never stops the others.
func (e *Engine) analyzeTests(results *result.Set) {
	for _, r := range results.All() {
		e.analyzeTest(r)
	}
}

func (e *Engine) analyzeTest(r *result.TestResult) {
	defer func() {
		if rec := recover(); rec != nil {
			e.log.WithFields(logrus.Fields{
				"test":  r.Key(),
				"panic": rec,
			}).Error("Analyzer failed for test, skipping its signals")
		}
	}()

	e.analyzeOne(r)
}

func (e *Engine) runAnalyzers(r *result.TestResult) {
	entries := e.store.For(r.Key())

	analyzer.AnalyzeFlakiness(r, entries)
	analyzer.AnalyzePerformance(r, entries, e.cfg.Analysis.PerformanceThresholdPct)
	analyzer.AnalyzeRetry(r, entries, e.cfg.Analysis.RetryThreshold)
	analyzer.AnalyzeStability(r, e.cfg.Analysis.StabilityWeights, e.cfg.Analysis.AttentionThreshold)
}

// runGrade grades the run from the average stability score over scored
// tests. A run where nothing was scored falls back to the pass-rate
// cutoffs.
func (e *Engine) runGrade(results *result.Set, summary result.RunSummary) string {
	var (
		total float64
		n     int
	)

	for _, r := range results.All() {
		if r.Stability != nil {
			total += float64(r.Stability.Overall)
			n++
		}
	}

	if n == 0 {
		return analyzer.GradeForScore(summary.PassRate)
	}

	return analyzer.GradeForScore(total / float64(n))
}
