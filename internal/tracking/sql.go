package tracking

import (
	"context"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"hotelcancel/internal/errors"
	"hotelcancel/internal/migration"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// RunRecord is a stored run
type RunRecord struct {
	RunID     string `db:"run_id"`
	Name      string `db:"name"`
	Status    string `db:"status"`
	StartedAt int64  `db:"started_at"`
	EndedAt   *int64 `db:"ended_at"`
}

// SQLSink stores runs in postgres or sqlite tables
type SQLSink struct {
	db    *sqlx.DB
	runID string
}

// OpenSQL connects with driver "postgres" or "sqlite" and creates the tables
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLSink, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.ExternalServiceError(driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.ExternalServiceError(driver, err)
	}
	sink := NewSQLSink(db)
	if err := sink.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return sink, nil
}

// NewSQLSink uses an existing connection
func NewSQLSink(db *sqlx.DB) *SQLSink {
	return &SQLSink{db: db}
}

// Migrate creates the tracking tables if they do not exist
func (s *SQLSink) Migrate(ctx context.Context) error {
	if err := migration.NewRunner().Run(ctx, s.db); err != nil {
		return errors.Wrap(errors.ExternalServiceError(s.db.DriverName(), err), "creating tracking tables")
	}
	return nil
}

func (s *SQLSink) StartRun(ctx context.Context, name string) (string, error) {
	id := newRunID()
	query := s.db.Rebind(`INSERT INTO tracking_runs (run_id, name, status, started_at) VALUES (?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, id, name, "RUNNING", time.Now().UnixMilli()); err != nil {
		return "", errors.Wrap(errors.ExternalServiceError(s.db.DriverName(), err), "failed to create run")
	}
	s.runID = id
	return id, nil
}

func (s *SQLSink) LogParam(ctx context.Context, key, value string) error {
	if err := s.requireRun(); err != nil {
		return err
	}
	query := s.db.Rebind(`INSERT INTO tracking_params (run_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT (run_id, key) DO UPDATE SET value = excluded.value`)
	if _, err := s.db.ExecContext(ctx, query, s.runID, key, value); err != nil {
		return errors.Wrapf(errors.ExternalServiceError(s.db.DriverName(), err), "failed to log param %s", key)
	}
	return nil
}

func (s *SQLSink) LogMetric(ctx context.Context, key string, value float64) error {
	if err := s.requireRun(); err != nil {
		return err
	}
	query := s.db.Rebind(`INSERT INTO tracking_metrics (run_id, key, value, logged_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (run_id, key) DO UPDATE SET value = excluded.value, logged_at = excluded.logged_at`)
	if _, err := s.db.ExecContext(ctx, query, s.runID, key, value, time.Now().UnixMilli()); err != nil {
		return errors.Wrapf(errors.ExternalServiceError(s.db.DriverName(), err), "failed to log metric %s", key)
	}
	return nil
}

// LogArtifact records the location and size of a local artifact
func (s *SQLSink) LogArtifact(ctx context.Context, name, path string) error {
	if err := s.requireRun(); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return errors.FileNotFound(path, err)
	}
	query := s.db.Rebind(`INSERT INTO tracking_artifacts (run_id, name, path, size_bytes) VALUES (?, ?, ?, ?)
		ON CONFLICT (run_id, name) DO UPDATE SET path = excluded.path, size_bytes = excluded.size_bytes`)
	if _, err := s.db.ExecContext(ctx, query, s.runID, name, path, info.Size()); err != nil {
		return errors.Wrapf(errors.ExternalServiceError(s.db.DriverName(), err), "failed to log artifact %s", name)
	}
	return nil
}

func (s *SQLSink) EndRun(ctx context.Context, status Status) error {
	if err := s.requireRun(); err != nil {
		return err
	}
	query := s.db.Rebind(`UPDATE tracking_runs SET status = ?, ended_at = ? WHERE run_id = ?`)
	if _, err := s.db.ExecContext(ctx, query, string(status), time.Now().UnixMilli(), s.runID); err != nil {
		return errors.Wrap(errors.ExternalServiceError(s.db.DriverName(), err), "failed to end run")
	}
	s.runID = ""
	return nil
}

func (s *SQLSink) Close() error {
	return s.db.Close()
}

// Run returns a stored run by id
func (s *SQLSink) Run(ctx context.Context, id string) (*RunRecord, error) {
	var run RunRecord
	query := s.db.Rebind(`SELECT run_id, name, status, started_at, ended_at FROM tracking_runs WHERE run_id = ?`)
	if err := s.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, errors.Wrapf(errors.ExternalServiceError(s.db.DriverName(), err), "run %s", id)
	}
	return &run, nil
}

// Metrics returns the metrics logged for a run
func (s *SQLSink) Metrics(ctx context.Context, id string) (map[string]float64, error) {
	var rows []struct {
		Key   string  `db:"key"`
		Value float64 `db:"value"`
	}
	query := s.db.Rebind(`SELECT key, value FROM tracking_metrics WHERE run_id = ? ORDER BY key`)
	if err := s.db.SelectContext(ctx, &rows, query, id); err != nil {
		return nil, errors.Wrapf(errors.ExternalServiceError(s.db.DriverName(), err), "metrics for run %s", id)
	}
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// Params returns the params logged for a run
func (s *SQLSink) Params(ctx context.Context, id string) (map[string]string, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	query := s.db.Rebind(`SELECT key, value FROM tracking_params WHERE run_id = ? ORDER BY key`)
	if err := s.db.SelectContext(ctx, &rows, query, id); err != nil {
		return nil, errors.Wrapf(errors.ExternalServiceError(s.db.DriverName(), err), "params for run %s", id)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

func (s *SQLSink) requireRun() error {
	if s.runID == "" {
		return errors.InvalidInput("no active tracking run")
	}
	return nil
}
