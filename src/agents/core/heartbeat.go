package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/opspulse/background-agents/src/types"
)

// Beat records a liveness row for the agent and refreshes its directory
// entry. Every agent calls this at the top of its work tick, so a recent
// beat is proof the work loop is alive.
func Beat(ctx context.Context, db *gorm.DB, agentID string, meta map[string]any) error {
	now := time.Now().UTC()

	var raw []byte
	if len(meta) > 0 {
		var err error
		if raw, err = json.Marshal(meta); err != nil {
			return fmt.Errorf("heartbeat metadata: %w", err)
		}
	}

	hb := types.AgentHeartbeat{
		AgentID:   agentID,
		Status:    types.AgentStatusRunning,
		Metadata:  string(raw),
		CreatedAt: now,
	}
	if err := db.WithContext(ctx).Create(&hb).Error; err != nil {
		return fmt.Errorf("record heartbeat: %w", err)
	}

	err := db.WithContext(ctx).Model(&types.Agent{}).Where("id = ?", agentID).
		Updates(map[string]interface{}{
			"last_seen": now,
			"status":    types.AgentStatusRunning,
		}).Error
	if err != nil {
		return fmt.Errorf("refresh agent row: %w", err)
	}
	return nil
}
