package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"hotelcancel/app"
	"hotelcancel/internal"
	"hotelcancel/internal/artifacts"
	"hotelcancel/internal/config"
	"hotelcancel/internal/testkit"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Hotel booking cancellation model pipeline",
		Long: `Batch pipeline predicting hotel booking cancellations.

Stages run in order and exchange artifacts on disk:
  load        raw CSV/XLSX -> data/processed/processed_data.gob
  preprocess  processed table -> models/preprocessor.json, data/processed/X.gob, y.gob
  train       4-fold cross-validation + final fit -> models/cv_results.bin, models/model_pipe.gob
  evaluate    metrics -> results/metrics.json, metrics.md, metrics.html

Paths and parameters come from the environment (see .env.example).`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from this file before reading configuration")

	stage := func(use, short string, run func(context.Context, *app.PipelineService) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				service, err := newService(envFile)
				if err != nil {
					return err
				}
				return run(cmd.Context(), service)
			},
		}
	}

	rootCmd.AddCommand(
		stage("load", "Read the raw dataset and store the processed table", func(ctx context.Context, s *app.PipelineService) error {
			_, err := s.Load(ctx)
			return err
		}),
		stage("preprocess", "Split features and labels and store the preprocessing plan", func(ctx context.Context, s *app.PipelineService) error {
			_, err := s.Preprocess(ctx)
			return err
		}),
		stage("train", "Cross-validate and fit the random forest pipeline", func(ctx context.Context, s *app.PipelineService) error {
			_, err := s.Train(ctx)
			return err
		}),
		stage("evaluate", "Compute metrics and forward them to the tracking sink", func(ctx context.Context, s *app.PipelineService) error {
			_, err := s.Evaluate(ctx)
			return err
		}),
		stage("run", "Run load, preprocess, train and evaluate in order", func(ctx context.Context, s *app.PipelineService) error {
			_, err := s.RunAll(ctx)
			return err
		}),
		newGenerateCmd(),
	)
	return rootCmd
}

func newService(envFile string) (*app.PipelineService, error) {
	cfg, err := config.LoadFile(envFile)
	if err != nil {
		return nil, err
	}
	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
	runner := app.NewStageRunner(artifacts.NewStore(cfg.Paths.Artifacts), logger)
	return app.NewPipelineService(runner, cfg), nil
}

func newGenerateCmd() *cobra.Command {
	gen := testkit.DefaultBookingConfig()
	var output string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic hotel bookings CSV",
		Long: `Write synthetic hotel bookings with the public dataset's column layout.

Example: pipeline generate --rows 2000 --output data/raw/hotel_bookings.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return err
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			n, err := testkit.NewBookingGenerator(gen).WriteCSV(f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bookings to %s\n", n, output)
			return nil
		},
	}

	cmd.Flags().IntVar(&gen.Rows, "rows", 1000, "Number of bookings")
	cmd.Flags().Float64Var(&gen.CancelRate, "cancel-rate", gen.CancelRate, "Cancellation probability when not balanced")
	cmd.Flags().BoolVar(&gen.Balanced, "balanced", false, "Cancel exactly half of the bookings")
	cmd.Flags().Float64Var(&gen.MissingRate, "missing-rate", gen.MissingRate, "Probability of a missing cell")
	cmd.Flags().Int64Var(&gen.Seed, "seed", gen.Seed, "Random seed for deterministic output")
	cmd.Flags().StringVar(&output, "output", filepath.Join("data", "raw", "hotel_bookings.csv"), "Destination CSV path")
	return cmd
}
