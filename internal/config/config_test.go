package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelcancel/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 160, cfg.Model.NEstimators)
	assert.Equal(t, 0.4, cfg.Model.MaxFeatures)
	assert.Equal(t, 4, cfg.CrossVal.Splits)
	assert.Equal(t, int64(42), cfg.CrossVal.Seed)
	assert.True(t, cfg.CrossVal.Shuffle)
	assert.Equal(t, 0.25, cfg.Evaluation.TestFraction)
	assert.Equal(t, 4, cfg.Evaluation.Precision)
	assert.Equal(t, "is_canceled", cfg.Features.Label)
	assert.False(t, cfg.Tracking.Enabled)
	assert.Equal(t, filepath.Join("data", "raw", "hotel_bookings.csv"), cfg.Paths.RawData)
	assert.Equal(t, filepath.Join("models", "model_pipe.gob"), cfg.Paths.Artifacts.Model)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATA_ROOT", "/tmp/run")
	t.Setenv("RF_N_ESTIMATORS", "12")
	t.Setenv("CV_FOLDS", "5")
	t.Setenv("FEATURES_NUMERIC", "lead_time, adr")
	t.Setenv("FEATURES_CATEGORICAL", "hotel")
	t.Setenv("TRACKING_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Model.NEstimators)
	assert.Equal(t, 5, cfg.CrossVal.Splits)
	assert.Equal(t, []string{"lead_time", "adr"}, cfg.Features.Numeric)
	assert.Equal(t, []string{"hotel"}, cfg.Features.Categorical)
	assert.Equal(t, 3*time.Second, cfg.Tracking.Timeout)
	assert.Equal(t, filepath.Join("/tmp/run", "results", "metrics.json"), cfg.Paths.Artifacts.Metrics)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string][2]string{
		"folds":        {"CV_FOLDS", "1"},
		"test size":    {"EVAL_TEST_SIZE", "1.5"},
		"label":        {"LABEL_COLUMN", "adr"},
		"max features": {"RF_MAX_FEATURES", "2"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestTrackingValidation(t *testing.T) {
	t.Setenv("TRACKING_ENABLED", "true")
	t.Setenv("TRACKING_BACKEND", "kafka")
	_, err := Load()
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	t.Setenv("TRACKING_BACKEND", "sql")
	t.Setenv("TRACKING_SQL_DRIVER", "oracle")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("TRACKING_SQL_DRIVER", "postgres")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendSQL, cfg.Tracking.Backend)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("RF_N_ESTIMATORS=7\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("RF_N_ESTIMATORS") })

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Model.NEstimators)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}
