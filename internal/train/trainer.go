// Package train runs cross-validated model scoring and best-model selection.
package train

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"weather-pipeline/internal/dataset"
	"weather-pipeline/internal/model"
	"weather-pipeline/internal/weather"
)

// Trainer scores one model family by k-fold cross-validation on the full
// training table.
type Trainer struct {
	tables weather.TableStore
	table  string
	folds  int
	opts   model.Options
	log    *zap.Logger
}

func NewTrainer(tables weather.TableStore, table string, folds int, opts model.Options, log *zap.Logger) *Trainer {
	return &Trainer{tables: tables, table: table, folds: folds, opts: opts, log: log}
}

// Train prepares the training frame and returns the mean negative-MSE score
// across folds for the given model kind. A frame with fewer samples than
// folds cannot be cross-validated and fails with ErrInsufficientData.
func (t *Trainer) Train(ctx context.Context, kind model.Kind) (float64, error) {
	frame, err := dataset.Prepare(t.tables, t.table)
	if err != nil {
		return 0, err
	}

	n := frame.Rows()
	if n < t.folds {
		return 0, fmt.Errorf("%w: %d samples for %d folds", dataset.ErrInsufficientData, n, t.folds)
	}

	var total float64
	for i, f := range kfold(n, t.folds) {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}

		m, err := model.New(kind, t.opts)
		if err != nil {
			return 0, err
		}

		trainX, trainY := subset(frame.X, frame.Y, f.train)
		testX, testY := subset(frame.X, frame.Y, f.test)

		if err := m.Fit(trainX, trainY); err != nil {
			return 0, fmt.Errorf("fold %d: %w", i, err)
		}
		total += negMSE(m.Predict(testX), testY)
	}

	score := total / float64(t.folds)
	t.log.Info("cross-validation complete",
		zap.String("model", string(kind)),
		zap.Int("samples", n),
		zap.Int("folds", t.folds),
		zap.Float64("score", score))
	return score, nil
}
