package heartbeat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/opspulse/background-agents/src/agents/core"
	"github.com/opspulse/background-agents/src/types"
)

func TestStaleIDs(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seen := func(ago time.Duration) *time.Time {
		ts := now.Add(-ago)
		return &ts
	}

	tests := []struct {
		name   string
		agents []types.Agent
		want   []string
	}{
		{
			name: "fresh beats stay",
			agents: []types.Agent{
				{ID: "a", IntervalSeconds: 60, LastSeen: seen(30 * time.Second)},
				{ID: "b", IntervalSeconds: 300, LastSeen: seen(4 * time.Minute)},
			},
			want: nil,
		},
		{
			name: "window scales with cadence",
			agents: []types.Agent{
				// 2*60s + 30s slack = 150s window
				{ID: "fast", IntervalSeconds: 60, LastSeen: seen(3 * time.Minute)},
				// 2*300s + 30s = 630s window, 3 minutes is fine
				{ID: "slow", IntervalSeconds: 300, LastSeen: seen(3 * time.Minute)},
			},
			want: []string{"fast"},
		},
		{
			name: "never beaten is stale",
			agents: []types.Agent{
				{ID: "silent", IntervalSeconds: 60},
			},
			want: []string{"silent"},
		},
		{
			name: "unknown cadence gets the default window",
			agents: []types.Agent{
				{ID: "odd", IntervalSeconds: 0, LastSeen: seen(4 * time.Minute)},
				{ID: "gone", IntervalSeconds: 0, LastSeen: seen(6 * time.Minute)},
			},
			want: []string{"gone"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StaleIDs(tt.agents, now))
		})
	}
}

func TestNewDefaults(t *testing.T) {
	a := New(Config{}, core.RuntimeDeps{})
	assert.Equal(t, ID, a.ID())
	assert.Equal(t, time.Minute, a.Interval())
	assert.False(t, a.Running())
}
