package agents

import (
	"github.com/opspulse/background-agents/src/agents/core"
)

type (
	// Agent represents one supervised background worker.
	Agent = core.Agent
	// RuntimeDeps bundles shared resources for workers.
	RuntimeDeps = core.RuntimeDeps
)
