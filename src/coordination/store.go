package coordination

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/opspulse/background-agents/src/types"
)

// Store persists coordinator bookkeeping about the agent fleet. Writes are
// best-effort durable and never authoritative for liveness decisions.
type Store interface {
	UpsertAgent(ctx context.Context, row types.Agent) error
	SetAgentStatus(ctx context.Context, id, status string) error
	RecordFailure(ctx context.Context, id string) error
	MarkAllStopped(ctx context.Context) error
}

type gormStore struct {
	db *gorm.DB
}

// NewGormStore returns the postgres-backed store used in production.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) UpsertAgent(ctx context.Context, row types.Agent) error {
	if row.RegisteredAt.IsZero() {
		row.RegisteredAt = time.Now().UTC()
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "agent_type", "status", "interval_seconds"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert agent %s: %w", row.ID, err)
	}
	return nil
}

func (s *gormStore) SetAgentStatus(ctx context.Context, id, status string) error {
	err := s.db.WithContext(ctx).
		Model(&types.Agent{}).
		Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("set agent %s status: %w", id, err)
	}
	return nil
}

func (s *gormStore) RecordFailure(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).
		Model(&types.Agent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        types.AgentStatusError,
			"failure_count": gorm.Expr("failure_count + 1"),
		}).Error
	if err != nil {
		return fmt.Errorf("record failure for %s: %w", id, err)
	}
	return nil
}

func (s *gormStore) MarkAllStopped(ctx context.Context) error {
	err := s.db.WithContext(ctx).
		Model(&types.Agent{}).
		Where("status = ?", types.AgentStatusRunning).
		Update("status", types.AgentStatusStopped).Error
	if err != nil {
		return fmt.Errorf("mark agents stopped: %w", err)
	}
	return nil
}
