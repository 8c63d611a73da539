package tracking

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"hotelcancel/internal"
	"hotelcancel/internal/config"
	"hotelcancel/internal/errors"
)

// Status is the terminal state recorded for a run
type Status string

const (
	StatusFinished Status = "FINISHED"
	StatusFailed   Status = "FAILED"
)

// Sink records one experiment run at a time
type Sink interface {
	StartRun(ctx context.Context, name string) (string, error)
	LogParam(ctx context.Context, key, value string) error
	LogMetric(ctx context.Context, key string, value float64) error
	LogArtifact(ctx context.Context, name, path string) error
	EndRun(ctx context.Context, status Status) error
	Close() error
}

// New builds the sink selected by the tracking configuration. A disabled
// configuration yields a Nop sink.
func New(ctx context.Context, cfg config.TrackingConfig) (Sink, error) {
	if !cfg.Enabled {
		return Nop{}, nil
	}
	switch cfg.Backend {
	case config.BackendSQL:
		return OpenSQL(ctx, cfg.SQLDriver, cfg.SQLDSN)
	case config.BackendMLflow:
		return NewMLflowSink(cfg.MLflowURL, cfg.Experiment, cfg.Timeout), nil
	case config.BackendPushgateway:
		return NewPushgatewaySink(cfg.PushURL, cfg.PushJob, cfg.Timeout), nil
	default:
		return nil, errors.ConfigInvalid("unknown tracking backend " + cfg.Backend)
	}
}

// Nop discards everything
type Nop struct{}

func (Nop) StartRun(context.Context, string) (string, error) { return "", nil }
func (Nop) LogParam(context.Context, string, string) error { return nil }
func (Nop) LogMetric(context.Context, string, float64) error { return nil }
func (Nop) LogArtifact(context.Context, string, string) error { return nil }
func (Nop) EndRun(context.Context, Status) error { return nil }
func (Nop) Close() error { return nil }

// BestEffort forwards to a sink and logs failures instead of returning them.
// After a failed StartRun the remaining calls are skipped.
type BestEffort struct {
	sink   Sink
	logger *internal.Logger
	runID  string
	active bool
}

// NewBestEffort wraps sink
func NewBestEffort(sink Sink, logger *internal.Logger) *BestEffort {
	return &BestEffort{sink: sink, logger: logger}
}

// RunID returns the id of the active run, empty when none was started
func (b *BestEffort) RunID() string {
	return b.runID
}

func (b *BestEffort) StartRun(ctx context.Context, name string) {
	id, err := b.sink.StartRun(ctx, name)
	if err != nil {
		b.logger.Warn("tracking: could not start run %q: %v", name, err)
		return
	}
	b.runID = id
	b.active = true
	b.logger.Debug("tracking: started run %s", id)
}

func (b *BestEffort) LogParams(ctx context.Context, params map[string]string) {
	if !b.active {
		return
	}
	for _, k := range sortedKeys(params) {
		if err := b.sink.LogParam(ctx, k, params[k]); err != nil {
			b.logger.Warn("tracking: param %s not recorded: %v", k, err)
		}
	}
}

func (b *BestEffort) LogMetrics(ctx context.Context, metrics map[string]float64) {
	if !b.active {
		return
	}
	for _, k := range sortedKeys(metrics) {
		if err := b.sink.LogMetric(ctx, k, metrics[k]); err != nil {
			b.logger.Warn("tracking: metric %s not recorded: %v", k, err)
		}
	}
}

func (b *BestEffort) LogArtifact(ctx context.Context, name, path string) {
	if !b.active {
		return
	}
	if err := b.sink.LogArtifact(ctx, name, path); err != nil {
		b.logger.Warn("tracking: artifact %s not recorded: %v", name, err)
	}
}

// EndRun closes the active run and releases the sink
func (b *BestEffort) EndRun(ctx context.Context, status Status) {
	if b.active {
		if err := b.sink.EndRun(ctx, status); err != nil {
			b.logger.Warn("tracking: could not end run %s: %v", b.runID, err)
		}
		b.active = false
	}
	if err := b.sink.Close(); err != nil {
		b.logger.Warn("tracking: close failed: %v", err)
	}
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
