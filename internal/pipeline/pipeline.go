// Package pipeline sequences the pipeline stages: fetch, wait for a
// snapshot, transform recent and full tables, validate, train the three
// candidates in parallel, select the winner, clean up.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"weather-pipeline/internal/cleanup"
	"weather-pipeline/internal/config"
	"weather-pipeline/internal/fetch"
	"weather-pipeline/internal/model"
	"weather-pipeline/internal/train"
	"weather-pipeline/internal/transform"
	"weather-pipeline/internal/validate"
	"weather-pipeline/internal/weather"
)

// stageRetries is how many extra attempts a failed stage gets before the
// run is aborted.
const stageRetries = 1

// Runner executes one full pipeline pass. Stage outputs are handed to the
// next stage as plain values; there is no out-of-band channel between
// stages.
type Runner struct {
	cfg         *config.AppConfig
	fetcher     *fetch.Fetcher
	transformer *transform.Transformer
	trainer     *train.Trainer
	selector    *train.Selector
	cleaner     *cleanup.Cleaner
	snapshots   weather.SnapshotStore
	tables      weather.TableStore
	log         *zap.Logger
}

func NewRunner(
	cfg *config.AppConfig,
	fetcher *fetch.Fetcher,
	transformer *transform.Transformer,
	trainer *train.Trainer,
	selector *train.Selector,
	cleaner *cleanup.Cleaner,
	snapshots weather.SnapshotStore,
	tables weather.TableStore,
	log *zap.Logger,
) *Runner {
	return &Runner{
		cfg:         cfg,
		fetcher:     fetcher,
		transformer: transformer,
		trainer:     trainer,
		selector:    selector,
		cleaner:     cleaner,
		snapshots:   snapshots,
		tables:      tables,
		log:         log,
	}
}

// Run executes the stages in order. A stage failing all its attempts aborts
// the run; the stages that already completed keep their outputs.
func (r *Runner) Run(ctx context.Context) error {
	log := r.log.With(zap.String("run_id", uuid.NewString()))
	started := time.Now()
	log.Info("pipeline run started")

	if err := r.stage(ctx, log, "fetch", func(ctx context.Context) error {
		return r.fetcher.Fetch(ctx)
	}); err != nil {
		return err
	}

	if err := r.stage(ctx, log, "wait_for_snapshot", r.waitForSnapshot); err != nil {
		return err
	}

	if err := r.stage(ctx, log, "transform_recent", func(ctx context.Context) error {
		_, err := r.transformer.Transform(ctx, r.cfg.RecentWindow, config.RecentTable)
		return err
	}); err != nil {
		return err
	}

	if err := r.stage(ctx, log, "transform_all", func(ctx context.Context) error {
		_, err := r.transformer.Transform(ctx, 0, config.FullTable)
		return err
	}); err != nil {
		return err
	}

	if err := r.stage(ctx, log, "validate", func(context.Context) error {
		return validate.File(r.tables.TablePath(config.FullTable))
	}); err != nil {
		return err
	}

	scores, err := r.trainAll(ctx, log)
	if err != nil {
		return err
	}

	if err := r.stage(ctx, log, "select_best_model", func(ctx context.Context) error {
		_, err := r.selector.SelectAndSave(ctx, scores)
		return err
	}); err != nil {
		return err
	}

	if err := r.stage(ctx, log, "cleanup", r.cleaner.Run); err != nil {
		return err
	}

	log.Info("pipeline run finished", zap.Duration("elapsed", time.Since(started)))
	return nil
}

// trainAll cross-validates the three model families in parallel and collects
// their scores. Each trainer only reads the shared table, so the stages are
// independent by construction.
func (r *Runner) trainAll(ctx context.Context, log *zap.Logger) (map[model.Kind]float64, error) {
	var mu sync.Mutex
	scores := make(map[model.Kind]float64, len(model.Kinds))

	g, gCtx := errgroup.WithContext(ctx)
	for _, kind := range model.Kinds {
		kind := kind
		g.Go(func() error {
			var score float64
			err := r.stage(gCtx, log, "train_"+string(kind), func(ctx context.Context) error {
				var trainErr error
				score, trainErr = r.trainer.Train(ctx, kind)
				return trainErr
			})
			if err != nil {
				return err
			}
			mu.Lock()
			scores[kind] = score
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

// waitForSnapshot polls the snapshot store until at least one snapshot is
// present or the sensor timeout elapses.
func (r *Runner) waitForSnapshot(ctx context.Context) error {
	deadline := time.Now().Add(r.cfg.SensorTimeout)
	for {
		stems, err := r.snapshots.ListSnapshots()
		if err != nil {
			return err
		}
		if len(stems) > 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("no snapshot appeared within %s", r.cfg.SensorTimeout)
		}

		timer := time.NewTimer(r.cfg.SensorPoke)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// stage runs fn with the single-retry policy. The first failure is logged
// and retried; the second aborts the run.
func (r *Runner) stage(ctx context.Context, log *zap.Logger, name string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= stageRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		start := time.Now()
		lastErr = fn(ctx)
		if lastErr == nil {
			log.Info("stage complete",
				zap.String("stage", name),
				zap.Int("attempt", attempt+1),
				zap.Duration("elapsed", time.Since(start)))
			return nil
		}

		if attempt < stageRetries {
			log.Warn("stage failed, retrying",
				zap.String("stage", name),
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr))
		}
	}

	log.Error("stage failed", zap.String("stage", name), zap.Error(lastErr))
	return fmt.Errorf("stage %s: %w", name, lastErr)
}
