package agents

import (
	"errors"
	"fmt"
	"time"

	"github.com/opspulse/background-agents/src/agents/aihelp"
	"github.com/opspulse/background-agents/src/agents/core"
	"github.com/opspulse/background-agents/src/agents/heartbeat"
	"github.com/opspulse/background-agents/src/agents/langsmith"
	"github.com/opspulse/background-agents/src/agents/perfmon"
)

// ErrUnknownAgentKind indicates a configured kind no factory exists for.
var ErrUnknownAgentKind = errors.New("agents: unknown agent kind")

// Settings carries the per-kind configuration every worker receives at
// construction time. Workers read nothing after that.
type Settings struct {
	HeartbeatInterval   time.Duration
	PerformanceInterval time.Duration
	LangsmithInterval   time.Duration
	LangsmithAPIKey     string
	AIHelpInterval      time.Duration
	AnthropicAPIKey     string
	AnthropicModel      string
}

// Build constructs the worker set in the order kinds are listed. The
// set is fixed once built; unknown or duplicate kinds are configuration
// errors surfaced before anything starts.
func Build(kinds []string, set Settings, deps core.RuntimeDeps) ([]core.Agent, error) {
	factories := map[string]func() core.Agent{
		heartbeat.ID: func() core.Agent {
			return heartbeat.New(heartbeat.Config{Interval: set.HeartbeatInterval}, deps)
		},
		perfmon.ID: func() core.Agent {
			return perfmon.New(perfmon.Config{Interval: set.PerformanceInterval}, deps)
		},
		langsmith.ID: func() core.Agent {
			return langsmith.New(langsmith.Config{
				Interval: set.LangsmithInterval,
				APIKey:   set.LangsmithAPIKey,
			}, deps)
		},
		aihelp.ID: func() core.Agent {
			return aihelp.New(aihelp.Config{
				Interval: set.AIHelpInterval,
				APIKey:   set.AnthropicAPIKey,
				Model:    set.AnthropicModel,
			}, deps)
		},
	}

	seen := make(map[string]bool, len(kinds))
	out := make([]core.Agent, 0, len(kinds))
	for _, kind := range kinds {
		if seen[kind] {
			return nil, fmt.Errorf("agents: duplicate agent kind %q", kind)
		}
		seen[kind] = true

		factory, ok := factories[kind]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAgentKind, kind)
		}
		out = append(out, factory())
	}
	return out, nil
}
