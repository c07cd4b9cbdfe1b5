// Package runstore persists indexed run history in a relational
// database so the API can query it without re-parsing history files.
package runstore

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/config"
)

// Store provides persistence for the indexed run history.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	UpsertRun(ctx context.Context, run *Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	CountRuns(ctx context.Context) (int64, error)

	ReplaceOutcomes(ctx context.Context, testKey string, outcomes []*TestOutcome) error
	ListOutcomes(ctx context.Context, testKey string) ([]TestOutcome, error)
	CountTests(ctx context.Context) (int64, error)
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.APIDatabaseConfig
	db  *gorm.DB
}

// NewStore creates a Store backed by the configured database driver.
func NewStore(log logrus.FieldLogger, cfg *config.APIDatabaseConfig) Store {
	return &store{
		log: log.WithField("component", "runstore"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening run database: %w", err)
	}

	s.db = db

	if err := s.db.WithContext(ctx).AutoMigrate(
		&Run{},
		&TestOutcome{},
	); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).Info("Run database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

// UpsertRun inserts or updates a run record keyed by run_id.
func (s *store) UpsertRun(ctx context.Context, run *Run) error {
	result := s.db.WithContext(ctx).
		Where("run_id = ?", run.RunID).
		Assign(run).
		FirstOrCreate(run)
	if result.Error != nil {
		return fmt.Errorf("upserting run: %w", result.Error)
	}

	return nil
}

// ListRuns returns indexed runs, newest first. limit <= 0 returns all.
func (s *store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	q := s.db.WithContext(ctx).Order("timestamp DESC")

	if limit > 0 {
		q = q.Limit(limit)
	}

	var runs []Run
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	return runs, nil
}

// GetRun returns one run by its run id.
func (s *store) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	if err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		First(&run).Error; err != nil {
		return nil, fmt.Errorf("getting run %s: %w", runID, err)
	}

	return &run, nil
}

// CountRuns returns the number of indexed runs.
func (s *store) CountRuns(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Run{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting runs: %w", err)
	}

	return n, nil
}

// ReplaceOutcomes swaps a test's indexed outcome sequence in a single
// transaction. Delete-then-create keeps the sequence an exact mirror
// of the history file, including trimmed-away entries.
func (s *store) ReplaceOutcomes(ctx context.Context, testKey string, outcomes []*TestOutcome) error {
	const batchSize = 100

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("test_key = ?", testKey).
			Delete(&TestOutcome{}).Error; err != nil {
			return fmt.Errorf("deleting outcomes for %s: %w", testKey, err)
		}

		for i := 0; i < len(outcomes); i += batchSize {
			end := i + batchSize
			if end > len(outcomes) {
				end = len(outcomes)
			}

			batch := outcomes[i:end]

			if err := tx.CreateInBatches(batch, len(batch)).Error; err != nil {
				return fmt.Errorf("inserting outcomes for %s: %w", testKey, err)
			}
		}

		return nil
	})
}

// ListOutcomes returns a test's indexed outcomes, oldest first.
func (s *store) ListOutcomes(ctx context.Context, testKey string) ([]TestOutcome, error) {
	var outcomes []TestOutcome
	if err := s.db.WithContext(ctx).
		Where("test_key = ?", testKey).
		Order("timestamp ASC").
		Find(&outcomes).Error; err != nil {
		return nil, fmt.Errorf("listing outcomes: %w", err)
	}

	return outcomes, nil
}

// CountTests returns the number of distinct indexed test identities.
func (s *store) CountTests(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).
		Model(&TestOutcome{}).
		Distinct("test_key").
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting tests: %w", err)
	}

	return n, nil
}
