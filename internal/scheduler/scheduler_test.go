package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingPipeline struct {
	runs atomic.Int64
}

func (p *countingPipeline) Run(ctx context.Context) error {
	p.runs.Add(1)
	return nil
}

func TestSchedulerRunsPipelinePeriodically(t *testing.T) {
	p := &countingPipeline{}
	s := New(p, 20*time.Millisecond, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for p.runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.GreaterOrEqual(t, p.runs.Load(), int64(2))
}

func TestSchedulerStopPreventsFurtherRuns(t *testing.T) {
	p := &countingPipeline{}
	s := New(p, 20*time.Millisecond, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))

	deadline := time.Now().Add(2 * time.Second)
	for p.runs.Load() < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	s.Stop()

	count := p.runs.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, count, p.runs.Load())
}
