package supervisor

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/opspulse/background-agents/src/agents/core"
)

// runner keeps one worker alive within its retry budget. The budget
// counts retries after the first failure, so maxAttempts=3 allows four
// run attempts in total before the runner gives up on the worker.
type runner struct {
	agent       core.Agent
	coord       Coordinator
	running     *atomic.Bool
	maxAttempts int
	delay       time.Duration
	log         *zap.SugaredLogger
}

func newRunner(agent core.Agent, coord Coordinator, running *atomic.Bool, maxAttempts int, delay time.Duration, log *zap.SugaredLogger) *runner {
	return &runner{
		agent:       agent,
		coord:       coord,
		running:     running,
		maxAttempts: maxAttempts,
		delay:       delay,
		log:         log,
	}
}

// Run supervises the worker until the system stops or the retry budget
// is spent. Exhaustion is terminal for this worker only, never for the
// process.
func (r *runner) Run(ctx context.Context) {
	defer r.log.Infow("recovery loop ended", "agent", r.agent.ID())

	attempts := 0
	for r.running.Load() {
		err := r.agent.Run(ctx)
		if err == nil {
			// The worker's own loop exited cleanly. A clean exit
			// while the system is still up re-enters Run straight
			// away; a worker that keeps returning instantly will
			// spin this loop hot.
			attempts = 0
			if r.running.Load() {
				r.log.Warnw("agent stopped unexpectedly, relaunching",
					"agent", r.agent.ID())
			}
			continue
		}

		attempts++
		r.log.Errorw("agent run failed",
			"agent", r.agent.ID(),
			"attempt", attempts,
			"budget", r.maxAttempts,
			"err", err,
		)

		if attempts <= r.maxAttempts && r.running.Load() {
			t := time.NewTimer(r.delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
			if nerr := r.coord.NotifyFailure(ctx, r.agent.ID(), err.Error()); nerr != nil {
				r.log.Warnw("failure notification dropped",
					"agent", r.agent.ID(), "err", nerr)
			}
			continue
		}

		if attempts > r.maxAttempts {
			r.log.Errorw("recovery budget exhausted, giving up",
				"agent", r.agent.ID(), "attempts", attempts)
		}
		return
	}
}
