package scraper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
	runs    int
	mu      sync.Mutex
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (r *blockingRunner) Run(ctx context.Context) error {
	r.mu.Lock()
	r.runs++
	r.mu.Unlock()
	r.started <- struct{}{}
	select {
	case <-r.release:
	case <-ctx.Done():
	}
	return nil
}

func (r *blockingRunner) runCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

func TestTriggerSkipsOverlap(t *testing.T) {
	runner := newBlockingRunner()
	s := NewScheduler(runner, time.Minute, zap.NewNop())

	done := make(chan error, 1)
	go func() {
		done <- s.Trigger(context.Background())
	}()
	<-runner.started

	// A trigger landing while the first cycle runs is skipped, not queued.
	assert.ErrorIs(t, s.Trigger(context.Background()), ErrCycleRunning)
	assert.Equal(t, 1, runner.runCount())

	close(runner.release)
	require.NoError(t, <-done)

	// Once the cycle finished the guard is released.
	runner.release = make(chan struct{})
	close(runner.release)
	require.NoError(t, s.Trigger(context.Background()))
	assert.Equal(t, 2, runner.runCount())
}

func TestSchedulerStartRunsImmediately(t *testing.T) {
	runner := newBlockingRunner()
	close(runner.release)
	s := NewScheduler(runner, time.Hour, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("initial cycle never started")
	}
	assert.Equal(t, 1, runner.runCount())
}
