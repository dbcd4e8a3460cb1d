package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errs(n int) []error {
	out := make([]error, n)
	for i := range out {
		out[i] = errors.New("run crashed")
	}
	return out
}

func TestRunnerExhaustsBudget(t *testing.T) {
	worker := &scriptedWorker{id: "w", outcomes: errs(4)}
	coord := newFakeCoord()
	var running atomic.Bool
	running.Store(true)
	log, logs := newTestLogger()

	r := newRunner(worker, coord, &running, 3, time.Millisecond, log)
	r.Run(context.Background())

	// One initial attempt plus three retries, then the runner gives up.
	assert.Equal(t, 4, worker.runCount())
	assert.Equal(t, 3, coord.notifyCount())
	assert.Equal(t, 1, logs.FilterMessage("recovery budget exhausted, giving up").Len())
}

func TestRunnerResetsAttemptsOnCleanExit(t *testing.T) {
	outcomes := append(errs(2), nil)
	outcomes = append(outcomes, errs(4)...)
	worker := &scriptedWorker{id: "w", outcomes: outcomes}
	coord := newFakeCoord()
	var running atomic.Bool
	running.Store(true)
	log, _ := newTestLogger()

	r := newRunner(worker, coord, &running, 3, time.Millisecond, log)
	r.Run(context.Background())

	// Two failures, a clean exit that resets the budget, then a fresh
	// run of four failures before exhaustion.
	assert.Equal(t, 7, worker.runCount())
	assert.Equal(t, 5, coord.notifyCount())
}

func TestRunnerObservesStopFlagAfterDelay(t *testing.T) {
	worker := &scriptedWorker{id: "w", outcomes: errs(1)}
	coord := newFakeCoord()
	var running atomic.Bool
	running.Store(true)
	log, _ := newTestLogger()

	r := newRunner(worker, coord, &running, 10, 30*time.Millisecond, log)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(context.Background())
	}()

	require.Eventually(t, func() bool { return worker.runCount() == 1 }, time.Second, time.Millisecond)
	// Let the runner reach its backoff timer, then clear the flag.
	// Mid-delay it is not woken; it finishes the delay, notifies, and
	// exits on the next loop check.
	time.Sleep(5 * time.Millisecond)
	running.Store(false)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not exit after stop flag cleared")
	}
	assert.Equal(t, 1, worker.runCount())
	assert.Equal(t, 1, coord.notifyCount())
}

func TestRunnerCancelInterruptsDelay(t *testing.T) {
	worker := &scriptedWorker{id: "w", outcomes: errs(1)}
	coord := newFakeCoord()
	var running atomic.Bool
	running.Store(true)
	log, _ := newTestLogger()

	ctx, cancel := context.WithCancel(context.Background())
	r := newRunner(worker, coord, &running, 10, 10*time.Second, log)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()

	require.Eventually(t, func() bool { return worker.runCount() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not exit on cancellation")
	}
	assert.Equal(t, 0, coord.notifyCount())
}

func TestRunnerRelaunchesCleanExitWhileRunning(t *testing.T) {
	worker := &scriptedWorker{id: "w", outcomes: []error{nil, nil}}
	coord := newFakeCoord()
	var running atomic.Bool
	running.Store(true)
	log, logs := newTestLogger()

	ctx, cancel := context.WithCancel(context.Background())
	r := newRunner(worker, coord, &running, 3, time.Millisecond, log)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()

	// Two scripted clean exits re-enter Run immediately, the third call
	// blocks until shutdown.
	require.Eventually(t, func() bool { return worker.runCount() == 3 }, time.Second, time.Millisecond)
	running.Store(false)
	cancel()
	<-done

	assert.Equal(t, 3, worker.runCount())
	assert.Equal(t, 0, coord.notifyCount())
	assert.Equal(t, 2, logs.FilterMessage("agent stopped unexpectedly, relaunching").Len())
}

func TestRunnerNotificationFailureNotEscalated(t *testing.T) {
	worker := &scriptedWorker{id: "w", outcomes: errs(2)}
	coord := newFakeCoord()
	coord.notifyErr = errors.New("facade offline")
	var running atomic.Bool
	running.Store(true)
	log, logs := newTestLogger()

	r := newRunner(worker, coord, &running, 1, time.Millisecond, log)
	r.Run(context.Background())

	assert.Equal(t, 2, worker.runCount())
	assert.Equal(t, 1, logs.FilterMessage("failure notification dropped").Len())
}
