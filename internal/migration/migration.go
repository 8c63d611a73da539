package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"hotelcancel/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the experiment tracking schema. Every statement is
// idempotent and valid on both postgres and sqlite.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all tracking migrations in order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createRunsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create tracking_runs table")
	}

	if err := r.createParamsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create tracking_params table")
	}

	if err := r.createMetricsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create tracking_metrics table")
	}

	if err := r.createArtifactsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create tracking_artifacts table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tracking_runs (
			run_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at BIGINT NOT NULL,
			ended_at BIGINT
		)
	`)
	return err
}

func (r *MigrationRunner) createParamsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tracking_params (
			run_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (run_id, key)
		)
	`)
	return err
}

func (r *MigrationRunner) createMetricsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tracking_metrics (
			run_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			logged_at BIGINT NOT NULL,
			PRIMARY KEY (run_id, key)
		)
	`)
	return err
}

func (r *MigrationRunner) createArtifactsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tracking_artifacts (
			run_id TEXT NOT NULL,
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			size_bytes BIGINT NOT NULL,
			PRIMARY KEY (run_id, name)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_tracking_runs_started_at ON tracking_runs(started_at)`)
	return err
}
