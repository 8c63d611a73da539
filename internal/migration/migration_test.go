package migration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestRunCreatesTrackingTables(t *testing.T) {
	db, err := sqlx.Open("sqlite", filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer db.Close()

	runner := NewRunner()
	ctx := context.Background()
	require.NoError(t, runner.Run(ctx, db))
	require.NoError(t, runner.Run(ctx, db), "migrations are idempotent")
	assert.Equal(t, "1.0.0", runner.Version())

	var tables []string
	require.NoError(t, db.SelectContext(ctx, &tables,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE 'tracking_%' ORDER BY name`))
	assert.Equal(t, []string{"tracking_artifacts", "tracking_metrics", "tracking_params", "tracking_runs"}, tables)
}
