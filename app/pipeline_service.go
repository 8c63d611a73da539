package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"hotelcancel/adapters/tabular"
	"hotelcancel/internal"
	"hotelcancel/internal/config"
	"hotelcancel/internal/crossval"
	"hotelcancel/internal/errors"
	"hotelcancel/internal/forest"
	"hotelcancel/internal/metrics"
	"hotelcancel/internal/pipeline"
	"hotelcancel/internal/preprocess"
	"hotelcancel/internal/profiling"
	"hotelcancel/internal/report"
	"hotelcancel/internal/tracking"
)

// Stage names used for log prefixes
const (
	StageLoad       = "load"
	StagePreprocess = "preprocess"
	StageTrain      = "train"
	StageEvaluate   = "evaluate"
)

// PipelineService runs the four batch stages. Every stage reads its inputs
// from the artifact store and writes its outputs back, so stages can be
// re-run independently.
type PipelineService struct {
	stageRunner *StageRunner
	cfg         *config.Config
}

// LoadResult describes the loaded raw dataset
type LoadResult struct {
	Rows      int   `json:"rows"`
	Columns   int   `json:"columns"`
	RuntimeMs int64 `json:"runtime_ms"`
}

// PreprocessResult describes the feature table handed to training
type PreprocessResult struct {
	Rows        int                       `json:"rows"`
	Numeric     int                       `json:"numeric"`
	Categorical int                       `json:"categorical"`
	Profiles    []profiling.ColumnProfile `json:"profiles"`
	RuntimeMs   int64                     `json:"runtime_ms"`
}

// TrainResult holds the cross-validation scores of the trained pipeline
type TrainResult struct {
	Scores    []float64 `json:"scores"`
	Trees     int       `json:"trees"`
	RuntimeMs int64     `json:"runtime_ms"`
}

// EvaluateResult holds the metrics record and where it was forwarded
type EvaluateResult struct {
	Metrics        map[string]float64 `json:"metrics"`
	Summary        metrics.Summary    `json:"summary"`
	Classification metrics.Report     `json:"classification"`
	RunID          string             `json:"run_id,omitempty"`
	RuntimeMs      int64              `json:"runtime_ms"`
}

// RunResult aggregates all stage results
type RunResult struct {
	Load       *LoadResult       `json:"load"`
	Preprocess *PreprocessResult `json:"preprocess"`
	Train      *TrainResult      `json:"train"`
	Evaluate   *EvaluateResult   `json:"evaluate"`
}

// NewPipelineService creates the pipeline service
func NewPipelineService(stageRunner *StageRunner, cfg *config.Config) *PipelineService {
	return &PipelineService{stageRunner: stageRunner, cfg: cfg}
}

// Load reads the raw dataset and stores it as the processed table
func (s *PipelineService) Load(ctx context.Context) (*LoadResult, error) {
	var result *LoadResult
	err := s.stageRunner.Run(ctx, StageLoad, func(ctx context.Context, logger *internal.Logger) error {
		start := time.Now()
		table, err := tabular.NewDataReader(s.cfg.Paths.RawData).WithLogger(logger).ReadTable()
		if err != nil {
			return errors.Wrapf(err, "loading %s", s.cfg.Paths.RawData)
		}
		if err := s.stageRunner.store.SaveTable(table); err != nil {
			return err
		}
		result = &LoadResult{
			Rows:      table.NumRows(),
			Columns:   table.NumCols(),
			RuntimeMs: time.Since(start).Milliseconds(),
		}
		logger.Info("loaded %d rows x %d columns from %s", result.Rows, result.Columns, s.cfg.Paths.RawData)
		return nil
	})
	return result, err
}

// Preprocess splits the processed table into features and labels and stores
// the unfitted preprocessing plan
func (s *PipelineService) Preprocess(ctx context.Context) (*PreprocessResult, error) {
	var result *PreprocessResult
	err := s.stageRunner.Run(ctx, StagePreprocess, func(ctx context.Context, logger *internal.Logger) error {
		start := time.Now()
		spec := s.cfg.Features
		if err := spec.Validate(); err != nil {
			return err
		}
		table, err := s.stageRunner.store.LoadTable()
		if err != nil {
			return err
		}
		X, y, err := spec.Split(table)
		if err != nil {
			return err
		}

		profiles, err := profiling.ProfileTable(X, spec)
		if err != nil {
			return err
		}

		plan := preprocess.NewColumnTransformer(spec)
		if err := s.stageRunner.store.SavePreprocessor(plan); err != nil {
			return err
		}
		if err := s.stageRunner.store.SaveFeatures(X, y); err != nil {
			return err
		}
		if err := s.stageRunner.store.SaveJSON(s.stageRunner.store.Paths().Profile, profiles); err != nil {
			return err
		}

		result = &PreprocessResult{
			Rows:        X.NumRows(),
			Numeric:     len(spec.Numeric),
			Categorical: len(spec.Categorical),
			Profiles:    profiles,
			RuntimeMs:   time.Since(start).Milliseconds(),
		}
		for _, p := range profiles {
			if p.Missing > 0 {
				logger.Debug("%s: %d missing values (%.1f%%) will be imputed", p.Name, p.Missing, 100*p.MissingRate)
			}
		}
		logger.Info("selected %d numeric and %d categorical features for %d rows",
			result.Numeric, result.Categorical, result.Rows)
		return nil
	})
	return result, err
}

// Train cross-validates a fresh pipeline per fold, then fits the final
// pipeline on every row
func (s *PipelineService) Train(ctx context.Context) (*TrainResult, error) {
	var result *TrainResult
	err := s.stageRunner.Run(ctx, StageTrain, func(ctx context.Context, logger *internal.Logger) error {
		start := time.Now()
		X, y, err := s.stageRunner.store.LoadFeatures()
		if err != nil {
			return err
		}
		plan, err := s.stageRunner.store.LoadPreprocessor()
		if err != nil {
			return err
		}
		model := pipeline.New(plan, s.cfg.Model)
		if err := model.CheckSpec(s.cfg.Features); err != nil {
			return errors.Wrap(err, "preprocessor plan")
		}

		workers := forest.ResolveWorkers(s.cfg.Model.Workers)
		logger.Info("cross-validating %d-tree forest with %d folds on %d rows",
			s.cfg.Model.NEstimators, s.cfg.CrossVal.Splits, X.NumRows())
		scores, err := crossval.Score(ctx, model.Factory(), X, y, s.cfg.CrossVal, workers)
		if err != nil {
			return errors.Wrap(err, "cross-validation")
		}
		for i, score := range scores {
			logger.Info("fold %d accuracy: %.4f", i+1, score)
		}

		if err := model.Fit(ctx, X, y); err != nil {
			return errors.Wrap(err, "fitting final pipeline")
		}
		if err := s.stageRunner.store.SaveScores(scores); err != nil {
			return err
		}
		if err := s.stageRunner.store.SavePipeline(model); err != nil {
			return err
		}

		result = &TrainResult{
			Scores:    scores,
			Trees:     len(model.Model.Trees),
			RuntimeMs: time.Since(start).Milliseconds(),
		}
		logger.Info("trained final pipeline %s in %dms", model.Model, result.RuntimeMs)
		return nil
	})
	return result, err
}

// Evaluate summarizes the cross-validation scores, refits the pipeline on a
// seeded train split to score the held-out rows, writes the metrics record
// and forwards it to the tracking sink
func (s *PipelineService) Evaluate(ctx context.Context) (*EvaluateResult, error) {
	var result *EvaluateResult
	err := s.stageRunner.Run(ctx, StageEvaluate, func(ctx context.Context, logger *internal.Logger) error {
		start := time.Now()
		store := s.stageRunner.store
		places := s.cfg.Evaluation.Precision

		scores, err := store.LoadScores()
		if err != nil {
			return err
		}
		X, y, err := store.LoadFeatures()
		if err != nil {
			return err
		}
		fitted, err := store.LoadPipeline()
		if err != nil {
			return err
		}
		if err := fitted.CheckSpec(s.cfg.Features); err != nil {
			return errors.Wrap(err, "trained pipeline")
		}

		summary, err := metrics.Summarize(scores, places)
		if err != nil {
			return err
		}

		train, test, err := crossval.TrainTestSplit(len(y), s.cfg.Evaluation.TestFraction, s.cfg.Evaluation.SplitSeed)
		if err != nil {
			return err
		}
		heldOut := fitted.Clone()
		if err := heldOut.Fit(ctx, X.Subset(train), crossval.Take(y, train)); err != nil {
			return errors.Wrap(err, "refitting on train split")
		}
		pred, err := heldOut.Predict(X.Subset(test))
		if err != nil {
			return err
		}
		classification, err := metrics.Classification(crossval.Take(y, test), pred)
		if err != nil {
			return err
		}

		record := metrics.Round(metrics.Merge(summary.AsMap(), classification.AsMap()), places)
		if err := store.SaveMetrics(record); err != nil {
			return err
		}
		if err := s.writeReport(scores, summary, classification, fitted); err != nil {
			return err
		}

		fmt.Fprintln(s.stageRunner.out, report.CVLine(summary, places))
		fmt.Fprintln(s.stageRunner.out, report.ClassificationLine(metrics.Report{
			Precision: record[metrics.KeyPrecision],
			Recall:    record[metrics.KeyRecall],
			F1:        record[metrics.KeyF1],
		}, places))

		runID := s.track(ctx, logger, record, fitted)

		result = &EvaluateResult{
			Metrics:        record,
			Summary:        summary,
			Classification: classification,
			RunID:          runID,
			RuntimeMs:      time.Since(start).Milliseconds(),
		}
		logger.Info("metrics written to %s", store.Paths().Metrics)
		return nil
	})
	return result, err
}

// RunAll executes load, preprocess, train and evaluate in order; each stage
// still reads the previous stage's artifacts from disk
func (s *PipelineService) RunAll(ctx context.Context) (*RunResult, error) {
	var out RunResult
	var err error
	if out.Load, err = s.Load(ctx); err != nil {
		return &out, err
	}
	if out.Preprocess, err = s.Preprocess(ctx); err != nil {
		return &out, err
	}
	if out.Train, err = s.Train(ctx); err != nil {
		return &out, err
	}
	if out.Evaluate, err = s.Evaluate(ctx); err != nil {
		return &out, err
	}
	return &out, nil
}

func (s *PipelineService) params(p *pipeline.Pipeline) map[string]string {
	params := p.Model.Params.Describe()
	params["cv_folds"] = strconv.Itoa(s.cfg.CrossVal.Splits)
	params["cv_random_state"] = strconv.FormatInt(s.cfg.CrossVal.Seed, 10)
	params["test_size"] = strconv.FormatFloat(s.cfg.Evaluation.TestFraction, 'f', -1, 64)
	params["n_features"] = strconv.Itoa(len(s.cfg.Features.Features()))
	return params
}

func (s *PipelineService) writeReport(scores []float64, summary metrics.Summary, classification metrics.Report, p *pipeline.Pipeline) error {
	rep := report.Report{
		Title:          "Hotel booking cancellation model",
		Scores:         scores,
		Summary:        summary,
		Classification: classification,
		Params:         s.params(p),
		Precision:      s.cfg.Evaluation.Precision,
		GeneratedAt:    time.Now(),
	}
	paths := s.stageRunner.store.Paths()
	if err := s.stageRunner.store.SaveText(paths.MetricsReport, rep.Markdown()); err != nil {
		return err
	}
	return s.stageRunner.store.SaveText(paths.MetricsHTML, rep.HTML())
}

// track forwards the run to the configured sink; failures are logged only
func (s *PipelineService) track(ctx context.Context, logger *internal.Logger, record map[string]float64, p *pipeline.Pipeline) string {
	if !s.cfg.Tracking.Enabled {
		return ""
	}
	sink, err := s.stageRunner.newSink(ctx, s.cfg.Tracking)
	if err != nil {
		logger.Warn("tracking disabled for this run: %v", err)
		return ""
	}
	tracker := tracking.NewBestEffort(sink, logger)
	tracker.StartRun(ctx, s.cfg.Tracking.RunName)
	tracker.LogParams(ctx, s.params(p))
	tracker.LogMetrics(ctx, record)
	tracker.LogArtifact(ctx, "model", s.stageRunner.store.Paths().Model)
	tracker.LogArtifact(ctx, "metrics", s.stageRunner.store.Paths().Metrics)
	tracker.EndRun(ctx, tracking.StatusFinished)
	return tracker.RunID()
}
