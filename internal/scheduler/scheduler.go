// Package scheduler runs the pipeline on a fixed interval.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Pipeline is the part of the runner the scheduler needs.
type Pipeline interface {
	Run(ctx context.Context) error
}

// Scheduler periodically executes a full pipeline run.
type Scheduler struct {
	scheduler *gocron.Scheduler
	pipeline  Pipeline
	interval  time.Duration
	log       *zap.Logger
}

func New(pipeline Pipeline, interval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		pipeline:  pipeline,
		interval:  interval,
		log:       log,
	}
}

// Start schedules the recurring run and starts the underlying scheduler.
// SingletonMode skips a tick while the previous run is still in flight, so
// two runs never mutate the data directories concurrently.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(func() {
		if err := s.pipeline.Run(ctx); err != nil {
			s.log.Error("scheduled pipeline run failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.log.Info("scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop stops the scheduler and cancels any future runs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
