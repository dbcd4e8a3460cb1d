package supervisor

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/opspulse/background-agents/src/types"
)

// monitor polls the aggregated health snapshot and escalates when the
// fleet degrades. Transient fetch failures never end the loop.
type monitor struct {
	state    SharedState
	running  *atomic.Bool
	interval time.Duration
	timeout  time.Duration
	log      *zap.SugaredLogger
}

func newMonitor(state SharedState, running *atomic.Bool, interval, timeout time.Duration, log *zap.SugaredLogger) *monitor {
	return &monitor{
		state:    state,
		running:  running,
		interval: interval,
		timeout:  timeout,
		log:      log,
	}
}

func (m *monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !m.running.Load() {
				return
			}
			m.check(ctx)
		}
	}
}

func (m *monitor) check(ctx context.Context) {
	fetchCtx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	h, err := m.state.GetSystemHealth(fetchCtx)
	if err != nil {
		m.log.Warnw("health snapshot unavailable", "err", err)
		return
	}

	fields := []interface{}{
		"score", h.OverallScore,
		"active", h.ActiveAgents,
		"total", h.TotalAgents,
	}
	if h.Degraded() {
		m.log.Warnw("system health degraded", fields...)
		err := m.state.LogSystemEvent(ctx, types.EventHealthCheck, map[string]interface{}{
			"health_score":  h.OverallScore,
			"active_agents": h.ActiveAgents,
			"total_agents":  h.TotalAgents,
		}, types.SeverityWarning)
		if err != nil {
			m.log.Warnw("health event dropped", "err", err)
		}
		return
	}
	m.log.Infow("system health", fields...)
}
