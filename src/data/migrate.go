package data

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/opspulse/background-agents/src/types"
)

// AllModels lists every persisted model in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&types.Agent{}, &types.AgentHeartbeat{},
		&types.PerformanceMetric{}, &types.SystemState{},
		&types.SystemEvent{}, &types.HelpRequest{},
		&types.HelpResponse{}, &types.AgentCommunication{},
		&types.LLMConversation{},
	}
}

// Migrate creates or updates the schema in place.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// DropAll removes every table so a reset can start clean. Order matters for
// readability only; there are no cross-table constraints.
func DropAll(db *gorm.DB) error {
	return db.Migrator().DropTable(
		"llm_conversations", "agent_communications",
		"help_responses", "help_requests",
		"system_events", "system_state",
		"performance_metrics", "agent_heartbeats", "agents",
	)
}
