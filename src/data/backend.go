package data

import (
	"context"

	"gorm.io/gorm"
)

// Backend wraps a gorm handle behind the small surface the supervisor
// needs: a liveness probe and a close.
type Backend struct {
	db *gorm.DB
}

func NewBackend(db *gorm.DB) *Backend {
	return &Backend{db: db}
}

func (b *Backend) HealthCheck(ctx context.Context) error {
	return HealthCheck(ctx, b.db)
}

func (b *Backend) Close() error {
	return Close(b.db)
}
