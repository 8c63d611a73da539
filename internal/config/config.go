package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	"hotelcancel/domain/dataset"
	"hotelcancel/internal/artifacts"
	"hotelcancel/internal/crossval"
	"hotelcancel/internal/errors"
	"hotelcancel/internal/forest"
)

// Tracking backends
const (
	BackendSQL         = "sql"
	BackendMLflow      = "mlflow"
	BackendPushgateway = "pushgateway"
)

// Config represents the complete pipeline configuration
type Config struct {
	Paths      PathConfig
	Features   dataset.FeatureSpec
	Model      forest.Params
	CrossVal   crossval.KFold
	Evaluation EvaluationConfig
	Tracking   TrackingConfig
	LogLevel   string
}

// PathConfig holds file system paths
type PathConfig struct {
	RawData   string
	Root      string
	Artifacts artifacts.Paths
}

// EvaluationConfig controls the held-out evaluation split
type EvaluationConfig struct {
	TestFraction float64
	SplitSeed    int64
	Precision    int
}

// TrackingConfig holds experiment tracking settings
type TrackingConfig struct {
	Enabled    bool
	Backend    string
	RunName    string
	Timeout    time.Duration
	SQLDriver  string
	SQLDSN     string
	MLflowURL  string
	Experiment string
	PushURL    string
	PushJob    string
}

// LoadFile loads an optional .env file, then reads configuration from the
// environment. An explicitly named file must exist; the implicit ./.env may not.
func LoadFile(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, errors.Wrapf(errors.ConfigInvalid(err.Error()), "loading env file %s", envFile)
		}
	} else if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "loading .env")
	}
	return Load()
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Paths:      loadPathConfig(),
		Features:   loadFeatureSpec(),
		Model:      loadModelParams(),
		CrossVal:   loadCrossValConfig(),
		Evaluation: loadEvaluationConfig(),
		Tracking:   loadTrackingConfig(),
		LogLevel:   getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadPathConfig() PathConfig {
	root := getEnvOrDefault("DATA_ROOT", ".")
	return PathConfig{
		Root:      root,
		RawData:   getEnvOrDefault("RAW_DATA_PATH", filepath.Join(root, "data", "raw", "hotel_bookings.csv")),
		Artifacts: artifacts.DefaultPaths(root),
	}
}

func loadFeatureSpec() dataset.FeatureSpec {
	spec := dataset.HotelBookingSpec()
	if v := getEnvListOrDefault("FEATURES_NUMERIC", nil); v != nil {
		spec.Numeric = v
	}
	if v := getEnvListOrDefault("FEATURES_CATEGORICAL", nil); v != nil {
		spec.Categorical = v
	}
	spec.Label = getEnvOrDefault("LABEL_COLUMN", spec.Label)
	return spec
}

func loadModelParams() forest.Params {
	d := forest.DefaultParams()
	return forest.Params{
		NEstimators:     getEnvIntOrDefault("RF_N_ESTIMATORS", d.NEstimators),
		MaxFeatures:     getEnvFloatOrDefault("RF_MAX_FEATURES", d.MaxFeatures),
		MinSamplesSplit: getEnvIntOrDefault("RF_MIN_SAMPLES_SPLIT", d.MinSamplesSplit),
		MaxDepth:        getEnvIntOrDefault("RF_MAX_DEPTH", d.MaxDepth),
		Bootstrap:       getEnvBoolOrDefault("RF_BOOTSTRAP", d.Bootstrap),
		Workers:         getEnvIntOrDefault("RF_N_JOBS", d.Workers),
		RandomState:     int64(getEnvIntOrDefault("RF_RANDOM_STATE", int(d.RandomState))),
	}
}

func loadCrossValConfig() crossval.KFold {
	return crossval.KFold{
		Splits:  getEnvIntOrDefault("CV_FOLDS", 4),
		Shuffle: getEnvBoolOrDefault("CV_SHUFFLE", true),
		Seed:    int64(getEnvIntOrDefault("CV_SEED", 42)),
	}
}

func loadEvaluationConfig() EvaluationConfig {
	return EvaluationConfig{
		TestFraction: getEnvFloatOrDefault("EVAL_TEST_SIZE", 0.25),
		SplitSeed:    int64(getEnvIntOrDefault("EVAL_SEED", 42)),
		Precision:    getEnvIntOrDefault("METRICS_PRECISION", 4),
	}
}

func loadTrackingConfig() TrackingConfig {
	return TrackingConfig{
		Enabled:    getEnvBoolOrDefault("TRACKING_ENABLED", false),
		Backend:    strings.ToLower(getEnvOrDefault("TRACKING_BACKEND", BackendSQL)),
		RunName:    getEnvOrDefault("TRACKING_RUN_NAME", "hotel-cancellation"),
		Timeout:    getEnvDurationOrDefault("TRACKING_TIMEOUT", 10*time.Second),
		SQLDriver:  strings.ToLower(getEnvOrDefault("TRACKING_SQL_DRIVER", "sqlite")),
		SQLDSN:     getEnvOrDefault("TRACKING_DSN", "tracking.db"),
		MLflowURL:  strings.TrimRight(getEnvOrDefault("MLFLOW_TRACKING_URI", "http://localhost:5000"), "/"),
		Experiment: getEnvOrDefault("MLFLOW_EXPERIMENT_NAME", "hotel-cancellation"),
		PushURL:    getEnvOrDefault("PUSHGATEWAY_URL", "http://localhost:9091"),
		PushJob:    getEnvOrDefault("PUSHGATEWAY_JOB", "hotel_cancel_pipeline"),
	}
}

// Validate rejects configurations the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Paths.RawData == "" {
		return errors.ConfigInvalid("raw data path is required")
	}
	if err := c.Features.Validate(); err != nil {
		return err
	}
	if err := c.Model.Validate(); err != nil {
		return err
	}
	if c.CrossVal.Splits < 2 {
		return errors.ConfigInvalid("CV_FOLDS must be at least 2")
	}
	if c.Evaluation.TestFraction <= 0 || c.Evaluation.TestFraction >= 1 {
		return errors.ConfigInvalid("EVAL_TEST_SIZE must be in (0, 1)")
	}
	if c.Evaluation.Precision < 0 || c.Evaluation.Precision > 12 {
		return errors.ConfigInvalid("METRICS_PRECISION must be between 0 and 12")
	}
	if !c.Tracking.Enabled {
		return nil
	}
	switch c.Tracking.Backend {
	case BackendSQL:
		if c.Tracking.SQLDriver != "postgres" && c.Tracking.SQLDriver != "sqlite" {
			return errors.ConfigInvalid("TRACKING_SQL_DRIVER must be postgres or sqlite")
		}
		if c.Tracking.SQLDSN == "" {
			return errors.ConfigInvalid("TRACKING_DSN is required for the sql backend")
		}
	case BackendMLflow:
		if c.Tracking.MLflowURL == "" {
			return errors.ConfigInvalid("MLFLOW_TRACKING_URI is required for the mlflow backend")
		}
	case BackendPushgateway:
		if c.Tracking.PushURL == "" || c.Tracking.PushJob == "" {
			return errors.ConfigInvalid("PUSHGATEWAY_URL and PUSHGATEWAY_JOB are required for the pushgateway backend")
		}
	default:
		return errors.ConfigInvalid("unknown TRACKING_BACKEND " + c.Tracking.Backend)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := cast.ToIntE(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := cast.ToFloat64E(value); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := cast.ToBoolE(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := cast.ToDurationE(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
