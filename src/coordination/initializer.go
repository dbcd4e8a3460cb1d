package coordination

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/opspulse/background-agents/src/types"
)

// Initializer seeds the durable defaults a fresh database needs before
// the first supervisor run.
type Initializer struct {
	db *gorm.DB
}

func NewInitializer(db *gorm.DB) *Initializer {
	return &Initializer{db: db}
}

// EnsureDefaults writes the baseline system_state rows. Existing values
// are left alone, so the call is safe on every startup.
func (i *Initializer) EnsureDefaults(ctx context.Context) error {
	defaults := []types.SystemState{
		{Key: "system_initialized", Value: "true"},
		{Key: "schema_version", Value: "1.0.0"},
		{Key: "setup_timestamp", Value: time.Now().UTC().Format(time.RFC3339)},
	}
	for _, row := range defaults {
		row.UpdatedAt = time.Now().UTC()
		err := i.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&row).Error
		if err != nil {
			return fmt.Errorf("seed %s: %w", row.Key, err)
		}
	}
	return nil
}
