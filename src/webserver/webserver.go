package webserver

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/opspulse/background-agents/src/config"
)

func New(cfg config.Config, status StatusSource, health HealthSource, db *gorm.DB) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	attachRoutes(g, cfg, status, health, db)
	return g
}

func attachRoutes(r *gin.Engine, cfg config.Config, status StatusSource, health HealthSource, db *gorm.DB) {
	if cfg.CORSEnabled {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.CORSOrigins,
			AllowMethods:  []string{"GET", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type"},
			ExposeHeaders: []string{"Content-Length"},
		}))
	}

	h := NewStatus(status, health, db)

	v1 := r.Group("/v1")
	{
		v1.GET("/status", h.Snapshot)
		v1.GET("/health", h.Health)
		v1.GET("/agents", h.Agents)
		v1.GET("/events", h.Events)
	}
}
