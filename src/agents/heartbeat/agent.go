package heartbeat

import (
	"context"
	"fmt"
	"time"

	"github.com/opspulse/background-agents/src/agents/core"
	"github.com/opspulse/background-agents/src/types"
)

// ID is the worker id this agent registers under.
const ID = "heartbeat_health_agent"

// Config exposes the liveness monitor's knobs.
type Config struct {
	Interval time.Duration
}

// Agent watches the agent directory for workers that stopped beating and
// demotes them so health aggregation sees the outage.
type Agent struct {
	*core.Base
	cfg  Config
	deps core.RuntimeDeps
}

func New(cfg Config, deps core.RuntimeDeps) *Agent {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	return &Agent{
		Base: core.NewBase(ID, "Tracks agent liveness and flags stale workers.", cfg.Interval, deps.Log),
		cfg:  cfg,
		deps: deps,
	}
}

func (a *Agent) Start(ctx context.Context) error {
	if a.deps.DB == nil {
		return fmt.Errorf("%s: database required", ID)
	}
	return nil
}

func (a *Agent) Run(ctx context.Context) error {
	return a.Loop(ctx, a.tick)
}

func (a *Agent) tick(ctx context.Context) error {
	if err := core.Beat(ctx, a.deps.DB, ID, nil); err != nil {
		return err
	}
	return a.sweep(ctx)
}

// sweep demotes running agents whose last beat fell outside their window.
func (a *Agent) sweep(ctx context.Context) error {
	var agents []types.Agent
	err := a.deps.DB.WithContext(ctx).
		Where("status = ?", types.AgentStatusRunning).
		Find(&agents).Error
	if err != nil {
		return fmt.Errorf("load agents: %w", err)
	}

	stale := StaleIDs(agents, time.Now().UTC())
	if len(stale) == 0 {
		return nil
	}

	err = a.deps.DB.WithContext(ctx).Model(&types.Agent{}).
		Where("id IN ?", stale).
		Update("status", types.AgentStatusError).Error
	if err != nil {
		return fmt.Errorf("flag stale agents: %w", err)
	}
	a.Log().Warnw("agents went stale", "agents", stale)
	return nil
}

// StaleIDs returns the agents whose last beat fell outside their own
// liveness window. A missing beat counts as stale.
func StaleIDs(agents []types.Agent, now time.Time) []string {
	var out []string
	for _, ag := range agents {
		if !ag.ActiveAt(now) {
			out = append(out, ag.ID)
		}
	}
	return out
}
