package probe

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRequiresCallback(t *testing.T) {
	s := NewRunScheduler(0, log.NewLogger(log.DiscardHandler()))
	require.Error(t, s.Start(context.Background()))
}

func TestSchedulerRunOnce(t *testing.T) {
	s := NewRunScheduler(0, log.NewLogger(log.DiscardHandler()))

	var calls atomic.Int32
	s.RegisterCallback(func() error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
}

func TestSchedulerRunOncePropagatesError(t *testing.T) {
	s := NewRunScheduler(0, log.NewLogger(log.DiscardHandler()))
	s.RegisterCallback(func() error { return fmt.Errorf("suite failed") })

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "suite failed")
}

func TestSchedulerContinuous(t *testing.T) {
	s := NewRunScheduler(10*time.Millisecond, log.NewLogger(log.DiscardHandler()))

	var calls atomic.Int32
	s.RegisterCallback(func() error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool {
		return calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.True(t, s.Stopped())
	require.NoError(t, s.WaitForShutdown(context.Background()))
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	s := NewRunScheduler(time.Minute, log.NewLogger(log.DiscardHandler()))
	require.NoError(t, s.Stop())
	assert.True(t, s.Stopped())
}
