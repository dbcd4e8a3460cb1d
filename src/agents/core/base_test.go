package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBaseLoopStop(t *testing.T) {
	b := NewBase("worker_a", "test worker", 10*time.Millisecond, nil)

	var ticks atomic.Int64
	loopDone := make(chan error, 1)
	go func() {
		loopDone <- b.Loop(context.Background(), func(context.Context) error {
			ticks.Add(1)
			return nil
		})
	}()

	require.Eventually(t, func() bool { return ticks.Load() >= 2 },
		time.Second, time.Millisecond, "loop never ticked")
	require.True(t, b.Running())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, b.Stop(ctx))
	require.NoError(t, <-loopDone)
	require.False(t, b.Running())
	require.True(t, b.StopRequested())
}

func TestBaseLoopImmediateFirstTick(t *testing.T) {
	b := NewBase("worker_a", "test worker", time.Hour, nil)

	var ticks atomic.Int64
	loopDone := make(chan error, 1)
	go func() {
		loopDone <- b.Loop(context.Background(), func(context.Context) error {
			ticks.Add(1)
			return nil
		})
	}()

	require.Eventually(t, func() bool { return ticks.Load() == 1 },
		time.Second, time.Millisecond, "first tick should not wait for the interval")

	require.NoError(t, b.Stop(context.Background()))
	require.NoError(t, <-loopDone)
}

func TestBaseLoopTickError(t *testing.T) {
	b := NewBase("worker_a", "test worker", time.Millisecond, nil)

	boom := errors.New("boom")
	calls := 0
	err := b.Loop(context.Background(), func(context.Context) error {
		calls++
		if calls >= 2 {
			return boom
		}
		return nil
	})
	require.ErrorIs(t, err, boom)
	require.False(t, b.Running())

	// A failed loop must be re-enterable so recovery can restart it.
	restarted := make(chan error, 1)
	go func() {
		restarted <- b.Loop(context.Background(), func(context.Context) error { return nil })
	}()
	require.Eventually(t, b.Running, time.Second, time.Millisecond)
	require.NoError(t, b.Stop(context.Background()))
	require.NoError(t, <-restarted)
}

func TestBaseLoopAfterStopReturnsNil(t *testing.T) {
	b := NewBase("worker_a", "test worker", time.Millisecond, nil)
	require.NoError(t, b.Stop(context.Background()))

	err := b.Loop(context.Background(), func(context.Context) error {
		t.Fatal("tick must not run after stop")
		return nil
	})
	require.NoError(t, err)
}

func TestBaseStopWithoutRun(t *testing.T) {
	b := NewBase("worker_a", "test worker", time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, b.Stop(ctx))
}

func TestBaseLoopContextCancel(t *testing.T) {
	b := NewBase("worker_a", "test worker", time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan error, 1)
	go func() {
		loopDone <- b.Loop(ctx, func(context.Context) error { return nil })
	}()
	require.Eventually(t, b.Running, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-loopDone)
	require.False(t, b.Running())
}
