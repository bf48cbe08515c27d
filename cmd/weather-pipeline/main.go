package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"weather-pipeline/internal/config"
	"weather-pipeline/internal/model"
	"weather-pipeline/internal/scheduler"
	"weather-pipeline/internal/validate"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "weather-pipeline",
		Short:         "Weather ETL and model selection pipeline",
		Long:          "Fetches weather data per city, flattens it into CSV tables, cross-validates three regression models and persists the best one.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	// Config and logger are built lazily so `--help` works without a
	// configured environment.
	setup := func() (*app, error) {
		log, err := newLogger(verbose)
		if err != nil {
			return nil, err
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("loading configuration: %w", err)
		}
		return newApp(cfg, log)
	}

	root.AddCommand(
		newRunCmd(setup),
		newScheduleCmd(setup),
		newFetchCmd(setup),
		newTransformCmd(setup),
		newValidateCmd(setup),
		newTrainCmd(setup),
		newSelectCmd(setup),
		newCleanupCmd(setup),
	)
	return root
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newRunCmd(setup func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one full pipeline pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.log.Sync()

			ctx, stop := signalContext()
			defer stop()
			return a.runner.Run(ctx)
		},
	}
}

func newScheduleCmd(setup func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline periodically until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.log.Sync()

			ctx, stop := signalContext()
			defer stop()

			sched := scheduler.New(a.runner, a.cfg.ScheduleInterval, a.log)
			if err := sched.Start(ctx); err != nil {
				return err
			}
			defer sched.Stop()

			<-ctx.Done()
			a.log.Info("shutting down")
			return nil
		},
	}
}

func newFetchCmd(setup func() (*app, error)) *cobra.Command {
	var (
		repeat int
		delay  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch weather data and write a snapshot",
		Long:  "Fetches one snapshot. With --repeat, fetches several snapshots with a delay in between, which seeds enough history for training.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.log.Sync()

			ctx, stop := signalContext()
			defer stop()

			for i := 0; i < repeat; i++ {
				a.log.Info("fetching weather data",
					zap.Int("iteration", i+1),
					zap.Int("total", repeat))
				if err := a.fetcher.Fetch(ctx); err != nil {
					return err
				}
				if i == repeat-1 {
					break
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&repeat, "repeat", 1, "number of fetch passes")
	cmd.Flags().DurationVar(&delay, "delay", time.Minute, "delay between fetch passes")
	return cmd
}

func newTransformCmd(setup func() (*app, error)) *cobra.Command {
	var (
		recent int
		out    string
	)

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Flatten snapshots into a CSV table",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.log.Sync()

			ctx, stop := signalContext()
			defer stop()

			rows, err := a.transformer.Transform(ctx, recent, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", rows, out)
			return nil
		},
	}
	cmd.Flags().IntVar(&recent, "recent", 0, "only use the N newest snapshots (0 = all)")
	cmd.Flags().StringVar(&out, "out", config.FullTable, "output table name")
	return cmd
}

func newValidateCmd(setup func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Sanity-check a clean CSV table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.log.Sync()

			path := a.store.TablePath(config.FullTable)
			if len(args) == 1 {
				path = args[0]
			}
			if err := validate.File(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "validation passed for %s\n", path)
			return nil
		},
	}
}

func newTrainCmd(setup func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "train <linear|decision-tree|random-forest>",
		Short: "Cross-validate one model family and print its score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseKind(args[0])
			if err != nil {
				return err
			}

			a, err := setup()
			if err != nil {
				return err
			}
			defer a.log.Sync()

			ctx, stop := signalContext()
			defer stop()

			score, err := a.trainer.Train(ctx, kind)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %.4f\n", kind, score)
			return nil
		},
	}
}

func newSelectCmd(setup func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "select",
		Short: "Score all model families, persist the best one",
		Long:  "Recomputes the cross-validated score of every model family, retrains the winner on the full data and saves it with a ledger entry. The pipeline run does this with the scores it already collected; this command is the standalone equivalent.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.log.Sync()

			ctx, stop := signalContext()
			defer stop()

			scores := make(map[model.Kind]float64, len(model.Kinds))
			for _, kind := range model.Kinds {
				score, err := a.trainer.Train(ctx, kind)
				if err != nil {
					return err
				}
				scores[kind] = score
			}

			best, err := a.selector.SelectAndSave(ctx, scores)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "best model: %s (score %.4f)\n", best, scores[best])
			return nil
		},
	}
}

func newCleanupCmd(setup func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete old snapshot and table files beyond the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.log.Sync()

			ctx, stop := signalContext()
			defer stop()
			return a.cleaner.Run(ctx)
		},
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
