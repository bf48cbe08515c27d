package train

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"weather-pipeline/internal/dataset"
	"weather-pipeline/internal/model"
	"weather-pipeline/internal/weather"
)

// Selector picks the best-scoring candidate, retrains it on the full data
// and persists it alongside a ledger entry.
type Selector struct {
	tables    weather.TableStore
	table     string
	modelFile string
	opts      model.Options
	now       func() time.Time
	log       *zap.Logger
}

func NewSelector(tables weather.TableStore, table, modelFile string, opts model.Options, log *zap.Logger) *Selector {
	return &Selector{
		tables:    tables,
		table:     table,
		modelFile: modelFile,
		opts:      opts,
		now:       time.Now,
		log:       log,
	}
}

// SelectBest returns the kind with the numerically greatest score. Scores
// are negative MSE, so the greatest score is the lowest error. Ties resolve
// to the earlier kind in the fixed family order.
func SelectBest(scores map[model.Kind]float64) model.Kind {
	best := model.Kinds[0]
	for _, kind := range model.Kinds[1:] {
		if scores[kind] > scores[best] {
			best = kind
		}
	}
	return best
}

// SelectAndSave picks the winner among scores, retrains it on the full
// table (no cross-validation) and writes the model artifact plus one ledger
// line. The two writes are not transactional; a crash between them leaves
// the model and the ledger out of step.
func (s *Selector) SelectAndSave(ctx context.Context, scores map[model.Kind]float64) (model.Kind, error) {
	if len(scores) == 0 {
		return "", fmt.Errorf("no candidate scores to select from")
	}
	best := SelectBest(scores)

	frame, err := dataset.Prepare(s.tables, s.table)
	if err != nil {
		return "", err
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	m, err := model.New(best, s.opts)
	if err != nil {
		return "", err
	}
	if err := m.Fit(frame.X, frame.Y); err != nil {
		return "", fmt.Errorf("retraining %s on full data: %w", best, err)
	}

	data, err := model.Encode(m)
	if err != nil {
		return "", err
	}
	if err := s.tables.WriteArtifact(s.modelFile, data); err != nil {
		return "", fmt.Errorf("persisting best model: %w", err)
	}

	entry := weather.ScoreEntry{
		Timestamp: s.now(),
		Kind:      string(best),
		Score:     scores[best],
	}
	if err := s.tables.AppendScore(entry); err != nil {
		return "", fmt.Errorf("appending score ledger: %w", err)
	}

	s.log.Info("best model saved",
		zap.String("model", string(best)),
		zap.Float64("score", scores[best]),
		zap.String("artifact", s.modelFile))
	return best, nil
}
