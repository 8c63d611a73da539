package app

import (
	"context"
	"io"
	"os"
	"time"

	"hotelcancel/internal"
	"hotelcancel/internal/artifacts"
	"hotelcancel/internal/config"
	"hotelcancel/internal/tracking"
)

// SinkFactory opens a tracking sink for one run
type SinkFactory func(ctx context.Context, cfg config.TrackingConfig) (tracking.Sink, error)

// StageRunner executes pipeline stages against a shared artifact store
type StageRunner struct {
	store   *artifacts.Store
	logger  *internal.Logger
	out     io.Writer
	newSink SinkFactory
}

// NewStageRunner creates a new stage runner printing summaries to stdout
func NewStageRunner(store *artifacts.Store, logger *internal.Logger) *StageRunner {
	return &StageRunner{
		store:   store,
		logger:  logger,
		out:     os.Stdout,
		newSink: tracking.New,
	}
}

// WithOutput redirects the console summary lines
func (r *StageRunner) WithOutput(w io.Writer) *StageRunner {
	r.out = w
	return r
}

// WithSinkFactory overrides how tracking sinks are opened
func (r *StageRunner) WithSinkFactory(f SinkFactory) *StageRunner {
	r.newSink = f
	return r
}

// Run executes one stage with a stage-scoped logger. Failures are logged at
// ERROR and returned unchanged.
func (r *StageRunner) Run(ctx context.Context, stage string, fn func(context.Context, *internal.Logger) error) error {
	logger := r.logger.WithStage(stage)
	if err := ctx.Err(); err != nil {
		logger.Error("not started: %v", err)
		return err
	}
	start := time.Now()
	logger.Debug("starting")
	if err := fn(ctx, logger); err != nil {
		logger.Error("%v", err)
		return err
	}
	logger.Debug("finished in %s", time.Since(start))
	return nil
}
