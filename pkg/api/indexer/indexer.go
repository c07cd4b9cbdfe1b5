// Package indexer periodically mirrors the history file into the run
// store so the API serves indexed data instead of re-parsing JSON on
// every request.
package indexer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/api/runstore"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/history"
)

// defaultConcurrency bounds parallel per-test indexing when no
// explicit value is configured.
const defaultConcurrency = 4

// Indexer is a background service that periodically reads the history
// file and upserts its runs and per-test outcomes into the run store.
type Indexer interface {
	Start(ctx context.Context) error
	Stop() error
}

// Compile-time interface check.
var _ Indexer = (*indexer)(nil)

type indexer struct {
	log         logrus.FieldLogger
	store       runstore.Store
	historyPath string
	interval    time.Duration
	concurrency int
	done        chan struct{}
	wg          sync.WaitGroup
	dbMu        sync.Mutex // serializes DB writes to avoid SQLite contention
}

// NewIndexer creates a new background indexer over one history file.
func NewIndexer(
	log logrus.FieldLogger,
	store runstore.Store,
	historyPath string,
	interval time.Duration,
	concurrency int,
) Indexer {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &indexer{
		log:         log.WithField("component", "indexer"),
		store:       store,
		historyPath: historyPath,
		interval:    interval,
		concurrency: concurrency,
		done:        make(chan struct{}),
	}
}

// Start launches a background goroutine that runs an immediate
// indexing pass and then ticks at the configured interval. The first
// pass is asynchronous so the caller is not blocked.
func (idx *indexer) Start(ctx context.Context) error {
	idx.log.WithFields(logrus.Fields{
		"history":     idx.historyPath,
		"interval":    idx.interval.String(),
		"concurrency": idx.concurrency,
	}).Info("Starting indexer")

	idx.wg.Add(1)

	go func() {
		defer idx.wg.Done()

		idx.runPass(ctx)

		ticker := time.NewTicker(idx.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				idx.runPass(ctx)
			case <-idx.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop signals the indexer goroutine to stop and waits for it.
func (idx *indexer) Stop() error {
	close(idx.done)
	idx.wg.Wait()

	idx.log.Info("Indexer stopped")

	return nil
}

// runPass executes one full indexing pass over the history file.
func (idx *indexer) runPass(ctx context.Context) {
	start := time.Now()

	h, err := history.LoadFile(idx.historyPath)
	if err != nil {
		idx.log.WithError(err).Warn("Failed to load history file, skipping pass")

		return
	}

	indexed := 0

	for _, summary := range h.Summaries {
		run := &runstore.Run{
			RunID:     summary.RunID,
			Timestamp: summary.Timestamp,
			Total:     summary.Total,
			Passed:    summary.Passed,
			Failed:    summary.Failed,
			Skipped:   summary.Skipped,
			Flaky:     summary.Flaky,
			Slow:      summary.Slow,
			Duration:  summary.Duration,
			PassRate:  summary.PassRate,
			Grade:     summary.Grade,
			IndexedAt: time.Now().UTC(),
		}

		idx.dbMu.Lock()
		err := idx.store.UpsertRun(ctx, run)
		idx.dbMu.Unlock()

		if err != nil {
			idx.log.WithError(err).
				WithField("run_id", summary.RunID).
				Warn("Failed to index run")

			continue
		}

		indexed++
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.concurrency)

	for key, entries := range h.Tests {
		key, entries := key, entries
		g.Go(func() error {
			outcomes := make([]*runstore.TestOutcome, 0, len(entries))

			for _, e := range entries {
				outcomes = append(outcomes, &runstore.TestOutcome{
					TestKey:   key,
					Timestamp: e.Timestamp,
					Passed:    e.Passed,
					Skipped:   e.Skipped,
					Duration:  e.Duration,
				})
			}

			idx.dbMu.Lock()
			defer idx.dbMu.Unlock()

			if err := idx.store.ReplaceOutcomes(gctx, key, outcomes); err != nil {
				idx.log.WithError(err).
					WithField("test", key).
					Warn("Failed to index test outcomes")
			}

			return nil
		})
	}

	_ = g.Wait()

	idx.log.WithFields(logrus.Fields{
		"runs":     indexed,
		"tests":    len(h.Tests),
		"duration": time.Since(start).String(),
	}).Info("Indexing pass complete")
}
