package main

import (
	"net/http"

	"go.uber.org/zap"

	"weather-pipeline/internal/cleanup"
	"weather-pipeline/internal/config"
	"weather-pipeline/internal/fetch"
	"weather-pipeline/internal/model"
	"weather-pipeline/internal/pipeline"
	"weather-pipeline/internal/store"
	"weather-pipeline/internal/train"
	"weather-pipeline/internal/transform"
)

// app wires the configured components together. Everything shares one
// filesystem store and one outbound HTTP client.
type app struct {
	cfg         *config.AppConfig
	store       *store.FS
	fetcher     *fetch.Fetcher
	transformer *transform.Transformer
	trainer     *train.Trainer
	selector    *train.Selector
	cleaner     *cleanup.Cleaner
	runner      *pipeline.Runner
	log         *zap.Logger
}

func newApp(cfg *config.AppConfig, log *zap.Logger) (*app, error) {
	fsStore, err := store.NewFS(cfg.RawDir, cfg.CleanDir, config.ScoresFile)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	fetcher := fetch.New(
		httpClient,
		cfg.BaseURL,
		cfg.APIKey,
		cfg.Cities,
		fetch.RetryPolicy{MaxRetries: 1, Backoff: cfg.RetryBackoff},
		fsStore,
		log,
	)

	transformer := transform.New(fsStore, fsStore, log)

	opts := model.Options{Trees: cfg.ForestSize, Seed: cfg.Seed}
	trainer := train.NewTrainer(fsStore, config.FullTable, cfg.Folds, opts, log)
	selector := train.NewSelector(fsStore, config.FullTable, config.ModelFile, opts, log)

	cleaner := cleanup.New(
		[]string{cfg.RawDir, cfg.CleanDir},
		[]string{".json", ".csv"},
		cfg.Retention,
		log,
	)

	runner := pipeline.NewRunner(cfg, fetcher, transformer, trainer, selector, cleaner, fsStore, fsStore, log)

	return &app{
		cfg:         cfg,
		store:       fsStore,
		fetcher:     fetcher,
		transformer: transformer,
		trainer:     trainer,
		selector:    selector,
		cleaner:     cleaner,
		runner:      runner,
		log:         log,
	}, nil
}
