package webserver

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/opspulse/background-agents/src/types"
)

// StatusSource serves the orchestrator's point-in-time snapshot.
type StatusSource interface {
	Status(ctx context.Context) map[string]interface{}
}

// HealthSource serves the aggregated fleet health.
type HealthSource interface {
	GetSystemHealth(ctx context.Context) (types.Health, error)
}

const (
	defaultEventLimit = 50
	maxEventLimit     = 200
)

// Status exposes the read-only operational surface. Nothing here
// mutates system state.
type Status struct {
	status StatusSource
	health HealthSource
	db     *gorm.DB
}

func NewStatus(status StatusSource, health HealthSource, db *gorm.DB) *Status {
	return &Status{status: status, health: health, db: db}
}

func (h *Status) Snapshot(c *gin.Context) {
	st := h.status.Status(c.Request.Context())
	if st["status"] == "error" {
		c.JSON(http.StatusServiceUnavailable, st)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Status) Health(c *gin.Context) {
	snapshot, err := h.health.GetSystemHealth(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": err.Error()})
		return
	}
	if snapshot.Degraded() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "health": snapshot})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "health": snapshot})
}

func (h *Status) Agents(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
		return
	}
	var rows []types.Agent
	if err := h.db.WithContext(c.Request.Context()).Order("id").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": rows, "count": len(rows)})
}

func (h *Status) Events(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
		return
	}
	limit := clampLimit(c.Query("limit"))
	var rows []types.SystemEvent
	err := h.db.WithContext(c.Request.Context()).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": rows, "count": len(rows)})
}

func clampLimit(raw string) int {
	if raw == "" {
		return defaultEventLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return defaultEventLimit
	}
	if n > maxEventLimit {
		return maxEventLimit
	}
	return n
}
