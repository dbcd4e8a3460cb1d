package perfmon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opspulse/background-agents/src/agents/core"
)

func TestSampleRuntimeGauges(t *testing.T) {
	rows := Sample(nil)
	require.Len(t, rows, 4, "nil db should yield runtime gauges only")

	byName := map[string]float64{}
	for _, r := range rows {
		assert.Equal(t, "runtime", r.MetricType)
		byName[r.MetricName] = r.Value
	}
	assert.GreaterOrEqual(t, byName["goroutines"], 1.0)
	assert.Greater(t, byName["heap_alloc_bytes"], 0.0)
	assert.Greater(t, byName["sys_bytes"], 0.0)
	assert.Contains(t, byName, "gc_cycles")
}

func TestNewDefaults(t *testing.T) {
	a := New(Config{}, core.RuntimeDeps{})
	assert.Equal(t, ID, a.ID())
	assert.Equal(t, 2*time.Minute, a.Interval())
}
