package coordination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/opspulse/background-agents/src/agents/core"
	"github.com/opspulse/background-agents/src/types"
)

var (
	// ErrAgentRegistered reports a worker id collision at registration.
	ErrAgentRegistered = errors.New("coordination: agent already registered")
	// ErrUnknownAgent reports an id the coordinator has never seen.
	ErrUnknownAgent = errors.New("coordination: unknown agent")
	// ErrAlreadyStarted reports a second StartAll on the same coordinator.
	ErrAlreadyStarted = errors.New("coordination: already started")
)

// EventRecorder is the slice of shared state the coordinator writes
// failure events through.
type EventRecorder interface {
	LogSystemEvent(ctx context.Context, eventType string, payload map[string]interface{}, severity string) error
}

// Coordinator owns the worker registry and drives the fleet through
// startup and shutdown. One per-agent fault never decides the fate of
// the others; errors out of StartAll and Shutdown are facade-level only.
type Coordinator struct {
	store   Store
	events  EventRecorder
	stagger time.Duration
	log     *zap.SugaredLogger

	mu      sync.Mutex
	agents  map[string]core.Agent
	order   []string
	started bool
}

func NewCoordinator(store Store, events EventRecorder, stagger time.Duration, log *zap.SugaredLogger) *Coordinator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Coordinator{
		store:   store,
		events:  events,
		stagger: stagger,
		log:     log,
		agents:  make(map[string]core.Agent),
	}
}

// Register adds a worker to the set. The registry row is written
// best-effort; a storage fault does not reject the worker.
func (c *Coordinator) Register(agent core.Agent) error {
	if agent == nil {
		return errors.New("coordination: nil agent")
	}
	id := agent.ID()
	if id == "" {
		return errors.New("coordination: agent has empty id")
	}

	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("register %s: %w", id, ErrAlreadyStarted)
	}
	if _, ok := c.agents[id]; ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAgentRegistered, id)
	}
	c.agents[id] = agent
	c.order = append(c.order, id)
	c.mu.Unlock()

	row := types.Agent{
		ID:        id,
		Name:      id,
		AgentType: "background_agent",
		Status:    types.AgentStatusRegistered,
	}
	if iv, ok := agent.(interface{ Interval() time.Duration }); ok {
		row.IntervalSeconds = int(iv.Interval().Seconds())
	}
	if err := c.store.UpsertAgent(context.Background(), row); err != nil {
		c.log.Warnw("agent registry write failed", "agent", id, "err", err)
	}

	c.log.Infow("agent registered", "agent", id, "synopsis", agent.Synopsis())
	return nil
}

// StartAll starts every registered worker in registration order, pausing
// the configured stagger between launches so startups do not thunder.
// The returned map holds one entry per registered worker: true when its
// Start succeeded, false otherwise. A worker that fails to start never
// fails the call; the only errors are facade-level faults such as a
// canceled context or a repeated StartAll.
func (c *Coordinator) StartAll(ctx context.Context) (map[string]bool, error) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	c.started = true
	order := append([]string(nil), c.order...)
	c.mu.Unlock()

	outcome := make(map[string]bool, len(order))
	for i, id := range order {
		if err := ctx.Err(); err != nil {
			// Startup was abandoned. Everything not yet launched
			// counts as failed so the caller still sees a full map.
			for _, rest := range order[i:] {
				outcome[rest] = false
			}
			return outcome, fmt.Errorf("start all: %w", err)
		}

		c.mu.Lock()
		agent := c.agents[id]
		c.mu.Unlock()

		if err := agent.Start(ctx); err != nil {
			outcome[id] = false
			c.log.Errorw("agent failed to start", "agent", id, "err", err)
			if serr := c.store.SetAgentStatus(ctx, id, types.AgentStatusError); serr != nil {
				c.log.Warnw("agent status write failed", "agent", id, "err", serr)
			}
			continue
		}

		outcome[id] = true
		c.log.Infow("agent started", "agent", id)
		if serr := c.store.SetAgentStatus(ctx, id, types.AgentStatusRunning); serr != nil {
			c.log.Warnw("agent status write failed", "agent", id, "err", serr)
		}

		if c.stagger > 0 && i < len(order)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(c.stagger):
			}
		}
	}
	return outcome, nil
}

// NotifyFailure records a worker failure: the registry row is bumped and
// an agent_failure event is written. Callers treat the whole thing as
// best-effort, so the first error is returned for logging only.
func (c *Coordinator) NotifyFailure(ctx context.Context, id, reason string) error {
	c.mu.Lock()
	_, known := c.agents[id]
	c.mu.Unlock()
	if !known {
		return fmt.Errorf("%w: %s", ErrUnknownAgent, id)
	}

	if err := c.store.RecordFailure(ctx, id); err != nil {
		return err
	}
	if c.events == nil {
		return nil
	}
	return c.events.LogSystemEvent(ctx, types.EventAgentFailure, map[string]interface{}{
		"agent_id": id,
		"reason":   reason,
	}, types.SeverityWarning)
}

// Shutdown finalizes the registry after the workers have been stopped.
// Safe to call exactly once per lifecycle, after the stop fan-out.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.started = false
	count := len(c.order)
	c.mu.Unlock()

	if err := c.store.MarkAllStopped(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	c.log.Infow("coordinator shut down", "agents", count)
	return nil
}

// IDs returns the registered worker ids in registration order.
func (c *Coordinator) IDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}
