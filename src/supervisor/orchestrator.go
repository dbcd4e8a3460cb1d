package supervisor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/opspulse/background-agents/src/agents/core"
	"github.com/opspulse/background-agents/src/types"
)

// Phase is the orchestrator lifecycle state. Transitions move strictly
// forward; a startup failure jumps straight to Stopped.
type Phase string

const (
	PhaseCreated      Phase = "created"
	PhaseInitializing Phase = "initializing"
	PhaseStarting     Phase = "starting"
	PhaseRunning      Phase = "running"
	PhaseShuttingDown Phase = "shutting_down"
	PhaseStopped      Phase = "stopped"
)

// ErrNotInitialized reports Start being called before Initialize.
var ErrNotInitialized = errors.New("supervisor: not initialized")

// Backend is the storage backend the orchestrator verifies before
// anything else starts and releases last.
type Backend interface {
	HealthCheck(ctx context.Context) error
	Close() error
}

// SharedState records events and metrics and aggregates worker health.
type SharedState interface {
	GetSystemHealth(ctx context.Context) (types.Health, error)
	LogSystemEvent(ctx context.Context, eventType string, payload map[string]interface{}, severity string) error
	LogBusinessMetric(ctx context.Context, metricType, name string, value float64, metadata map[string]interface{}) error
	Close() error
}

// Coordinator registers, starts and finalizes the worker set.
type Coordinator interface {
	Register(agent core.Agent) error
	StartAll(ctx context.Context) (map[string]bool, error)
	NotifyFailure(ctx context.Context, id, reason string) error
	Shutdown(ctx context.Context) error
}

// Initializer seeds durable defaults during system initialization.
type Initializer interface {
	EnsureDefaults(ctx context.Context) error
}

// WorkerFactory builds the fixed worker set from configuration.
// Unknown or duplicate kinds are configuration errors.
type WorkerFactory func() ([]core.Agent, error)

// Config carries the tuning values the orchestrator reads. All of them
// are supplied from the environment; the orchestrator never looks
// anything up itself.
type Config struct {
	RecoveryAttempts int
	RecoveryDelay    time.Duration
	HealthInterval   time.Duration
	HealthTimeout    time.Duration
	StartupTimeout   time.Duration
	ShutdownTimeout  time.Duration
}

// Deps are the collaborators the orchestrator drives but does not own
// the internals of.
type Deps struct {
	Backend Backend
	State   SharedState
	Coord   Coordinator
	Init    Initializer
	Workers WorkerFactory
	Log     *zap.SugaredLogger
}

// Orchestrator sequences infrastructure init, worker startup, the
// supervision tasks and coordinated shutdown for one process.
type Orchestrator struct {
	cfg  Config
	deps Deps
	log  *zap.SugaredLogger

	mu          sync.Mutex
	phase       Phase
	initialized bool
	workers     []core.Agent
	startedAt   time.Time

	running atomic.Bool
	tasks   atomic.Int64
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	doneOnce sync.Once
	done     chan struct{}
}

func New(cfg Config, deps Deps) *Orchestrator {
	log := deps.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Orchestrator{
		cfg:   cfg,
		deps:  deps,
		log:   log,
		phase: PhaseCreated,
		done:  make(chan struct{}),
	}
}

// Initialize verifies the backend is healthy and seeds shared state.
// Any failure is fatal for startup and surfaces the original cause.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.mu.Lock()
	if o.phase != PhaseCreated {
		phase := o.phase
		o.mu.Unlock()
		return fmt.Errorf("supervisor: initialize from phase %q", phase)
	}
	o.phase = PhaseInitializing
	o.mu.Unlock()

	if err := o.deps.Backend.HealthCheck(ctx); err != nil {
		o.failStartup()
		return fmt.Errorf("supervisor: backend unhealthy: %w", err)
	}
	if o.deps.Init != nil {
		if err := o.deps.Init.EnsureDefaults(ctx); err != nil {
			o.failStartup()
			return fmt.Errorf("supervisor: seed shared state: %w", err)
		}
	}

	o.mu.Lock()
	o.initialized = true
	o.mu.Unlock()
	o.log.Infow("system initialized")
	return nil
}

// Start builds the worker set, drives the coordinated startup and
// spawns the supervision tasks. Per-worker start failures degrade the
// system instead of failing the call; the system reaches Running with
// whatever subset started.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if !o.initialized {
		o.mu.Unlock()
		return ErrNotInitialized
	}
	if o.phase != PhaseInitializing {
		phase := o.phase
		o.mu.Unlock()
		return fmt.Errorf("supervisor: start from phase %q", phase)
	}
	o.phase = PhaseStarting
	o.mu.Unlock()

	workers, err := o.deps.Workers()
	if err != nil {
		o.failStartup()
		return fmt.Errorf("supervisor: build workers: %w", err)
	}
	o.mu.Lock()
	o.workers = workers
	o.mu.Unlock()

	outcome, err := o.startWorkers(ctx)
	if err != nil {
		o.failStartup()
		return fmt.Errorf("supervisor: coordinated startup: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	o.cancel = cancel
	o.startedAt = time.Now().UTC()
	o.phase = PhaseRunning
	o.mu.Unlock()
	o.running.Store(true)

	started, failed := partition(outcome)
	o.logEvent(ctx, types.EventSystemStartup, map[string]interface{}{
		"agents_started": started,
		"agents_failed":  failed,
	}, types.SeverityInfo)
	o.logMetric(ctx, "system_reliability", "successful_startup", 1, map[string]interface{}{
		"started": len(started),
		"failed":  len(failed),
	})

	for _, w := range workers {
		if !outcome[w.ID()] {
			continue
		}
		r := newRunner(w, o.deps.Coord, &o.running, o.cfg.RecoveryAttempts, o.cfg.RecoveryDelay, o.log)
		o.spawn(runCtx, r.Run)
	}
	m := newMonitor(o.deps.State, &o.running, o.cfg.HealthInterval, o.cfg.HealthTimeout, o.log)
	o.spawn(runCtx, m.Run)

	o.log.Infow("system running",
		"agents_started", started,
		"agents_failed", failed,
	)
	return nil
}

func (o *Orchestrator) startWorkers(ctx context.Context) (map[string]bool, error) {
	o.mu.Lock()
	workers := o.workers
	o.mu.Unlock()

	for _, w := range workers {
		if err := o.deps.Coord.Register(w); err != nil {
			o.log.Errorw("worker registration failed", "agent", w.ID(), "err", err)
		}
	}

	startCtx := ctx
	if o.cfg.StartupTimeout > 0 {
		var cancel context.CancelFunc
		startCtx, cancel = context.WithTimeout(ctx, o.cfg.StartupTimeout)
		defer cancel()
	}
	outcome, err := o.deps.Coord.StartAll(startCtx)
	if outcome == nil {
		outcome = map[string]bool{}
	}
	if err != nil {
		return outcome, err
	}

	started, failed := partition(outcome)
	o.log.Infow("worker startup complete", "started", started, "failed", failed)
	return outcome, nil
}

func (o *Orchestrator) spawn(ctx context.Context, run func(context.Context)) {
	o.wg.Add(1)
	o.tasks.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.tasks.Add(-1)
		run(ctx)
	}()
}

// Shutdown drives the coordinated teardown. It is idempotent: the
// first call does the work, every later call returns once that work
// has completed.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	o.doneOnce.Do(func() { o.shutdown(ctx) })
	<-o.done
}

func (o *Orchestrator) shutdown(ctx context.Context) {
	began := time.Now().UTC()
	uptime := o.Uptime()

	o.setPhase(PhaseShuttingDown)
	o.running.Store(false)
	o.log.Infow("shutdown started", "uptime_seconds", round1(uptime.Seconds()))
	o.logEvent(ctx, types.EventShutdownStart, map[string]interface{}{
		"uptime_seconds": round1(uptime.Seconds()),
	}, types.SeverityInfo)

	o.stopWorkers(ctx)

	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if !waitDone(&o.wg, drainGrace) {
		o.log.Warnw("supervision tasks still pending after cancel", "tasks", o.tasks.Load())
	}

	if err := o.deps.Coord.Shutdown(ctx); err != nil {
		o.log.Warnw("coordinator shutdown failed", "err", err)
	}

	took := time.Since(began)
	o.logEvent(ctx, types.EventShutdownComplete, map[string]interface{}{
		"uptime_seconds":            round1(uptime.Seconds()),
		"shutdown_duration_seconds": round1(took.Seconds()),
	}, types.SeverityInfo)
	o.logMetric(ctx, "system_reliability", "graceful_shutdown", 1, map[string]interface{}{
		"duration_seconds": round1(took.Seconds()),
	})

	if err := o.deps.State.Close(); err != nil {
		o.log.Warnw("shared state close failed", "err", err)
	}
	if err := o.deps.Backend.Close(); err != nil {
		o.log.Warnw("backend close failed", "err", err)
	}

	o.setPhase(PhaseStopped)
	close(o.done)
	o.log.Infow("shutdown complete", "duration_seconds", round1(took.Seconds()))
}

// stopWorkers fans the stop request out to every worker concurrently
// and waits up to the graceful timeout. Overruns are logged and left
// behind; no per-worker timeout exists below this one.
func (o *Orchestrator) stopWorkers(ctx context.Context) {
	o.mu.Lock()
	workers := o.workers
	o.mu.Unlock()
	if len(workers) == 0 {
		return
	}

	stopCtx, cancel := context.WithTimeout(ctx, o.cfg.ShutdownTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w core.Agent) {
			defer wg.Done()
			if err := w.Stop(stopCtx); err != nil {
				o.log.Warnw("worker stop failed", "agent", w.ID(), "err", err)
			}
		}(w)
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-stopCtx.Done():
	}
	if stopCtx.Err() != nil {
		o.log.Warnw("graceful stop window exceeded, forcing cleanup",
			"timeout", o.cfg.ShutdownTimeout.String())
	}
}

// Wait blocks until shutdown has completed. Every waiter observes the
// same completion.
func (o *Orchestrator) Wait() {
	<-o.done
}

// Status returns a point-in-time snapshot of the system. Internal
// faults produce a degraded map instead of an error.
func (o *Orchestrator) Status(ctx context.Context) map[string]interface{} {
	o.mu.Lock()
	phase := o.phase
	startedAt := o.startedAt
	configured := len(o.workers)
	o.mu.Unlock()

	running := o.running.Load()

	health, err := o.deps.State.GetSystemHealth(ctx)
	if err != nil {
		return map[string]interface{}{
			"system_running": running,
			"error":          err.Error(),
			"status":         "error",
		}
	}

	st := map[string]interface{}{
		"system_running":      running,
		"startup_time":        nil,
		"uptime_seconds":      0.0,
		"agents_configured":   configured,
		"agent_tasks_running": o.tasks.Load(),
		"backend_connected":   o.deps.Backend.HealthCheck(ctx) == nil,
		"system_health":       health,
		"phase":               string(phase),
	}
	if !startedAt.IsZero() {
		st["startup_time"] = startedAt.Format(time.RFC3339)
		st["uptime_seconds"] = round1(time.Since(startedAt).Seconds())
	}
	return st
}

// Uptime reports how long the system has been running; zero before
// startup completes.
func (o *Orchestrator) Uptime() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.startedAt.IsZero() {
		return 0
	}
	return time.Since(o.startedAt)
}

// Phase reports the current lifecycle state.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// failStartup marks a failed launch terminal. Waiters are released and
// later Shutdown calls are no-ops since nothing was started.
func (o *Orchestrator) failStartup() {
	o.doneOnce.Do(func() {
		o.setPhase(PhaseStopped)
		close(o.done)
	})
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
}

func (o *Orchestrator) logEvent(ctx context.Context, eventType string, payload map[string]interface{}, severity string) {
	if err := o.deps.State.LogSystemEvent(ctx, eventType, payload, severity); err != nil {
		o.log.Warnw("system event dropped", "event", eventType, "err", err)
	}
}

func (o *Orchestrator) logMetric(ctx context.Context, metricType, name string, value float64, metadata map[string]interface{}) {
	if err := o.deps.State.LogBusinessMetric(ctx, metricType, name, value, metadata); err != nil {
		o.log.Warnw("metric dropped", "metric", name, "err", err)
	}
}

// drainGrace bounds how long shutdown waits for canceled supervision
// tasks to unwind.
const drainGrace = 5 * time.Second

func waitDone(wg *sync.WaitGroup, timeout time.Duration) bool {
	ch := make(chan struct{})
	go func() {
		wg.Wait()
		close(ch)
	}()
	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}

func partition(outcome map[string]bool) (started, failed []string) {
	started, failed = []string{}, []string{}
	for id, ok := range outcome {
		if ok {
			started = append(started, id)
		} else {
			failed = append(failed, id)
		}
	}
	sort.Strings(started)
	sort.Strings(failed)
	return started, failed
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
