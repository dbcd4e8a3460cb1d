package perfmon

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"gorm.io/gorm"

	"github.com/opspulse/background-agents/src/agents/core"
	"github.com/opspulse/background-agents/src/types"
)

// ID is the worker id this agent registers under.
const ID = "performance_monitor"

// Config exposes the sampler's knobs.
type Config struct {
	Interval time.Duration
}

// Agent samples process and connection-pool gauges into the metrics table.
type Agent struct {
	*core.Base
	cfg  Config
	deps core.RuntimeDeps
}

func New(cfg Config, deps core.RuntimeDeps) *Agent {
	if cfg.Interval <= 0 {
		cfg.Interval = 120 * time.Second
	}
	return &Agent{
		Base: core.NewBase(ID, "Samples runtime and database pool metrics.", cfg.Interval, deps.Log),
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
	rows := Sample(a.deps.DB)
	if err := a.deps.DB.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("store metrics: %w", err)
	}
	return nil
}

// Sample collects the current gauge values. A nil db skips pool stats so
// the sampler itself stays usable in isolation.
func Sample(db *gorm.DB) []types.PerformanceMetric {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	rows := []types.PerformanceMetric{
		{MetricType: "runtime", MetricName: "goroutines", Value: float64(runtime.NumGoroutine())},
		{MetricType: "runtime", MetricName: "heap_alloc_bytes", Value: float64(ms.HeapAlloc)},
		{MetricType: "runtime", MetricName: "sys_bytes", Value: float64(ms.Sys)},
		{MetricType: "runtime", MetricName: "gc_cycles", Value: float64(ms.NumGC)},
	}

	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			st := sqlDB.Stats()
			rows = append(rows,
				types.PerformanceMetric{MetricType: "database", MetricName: "open_connections", Value: float64(st.OpenConnections)},
				types.PerformanceMetric{MetricType: "database", MetricName: "in_use", Value: float64(st.InUse)},
				types.PerformanceMetric{MetricType: "database", MetricName: "idle", Value: float64(st.Idle)},
				types.PerformanceMetric{MetricType: "database", MetricName: "wait_count", Value: float64(st.WaitCount)},
			)
		}
	}
	return rows
}
