// Connectivity readout for the supervisor's storage backends.
package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/opspulse/background-agents/src/config"
	"github.com/opspulse/background-agents/src/data"
	"github.com/opspulse/background-agents/src/types"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	db, err := data.ConnectPostgres(cfg.PostgresDSN(), 2, 0)
	if err != nil {
		log.Fatalf("postgres connect: %v", err)
	}
	defer func() { _ = data.Close(db) }()

	if err := data.HealthCheck(ctx, db); err != nil {
		log.Fatalf("postgres health: %v", err)
	}

	var agents, events, beats int64
	if err := db.Model(&types.Agent{}).Count(&agents).Error; err != nil {
		log.Fatalf("count agents: %v", err)
	}
	if err := db.Model(&types.SystemEvent{}).Count(&events).Error; err != nil {
		log.Fatalf("count events: %v", err)
	}
	if err := db.Model(&types.AgentHeartbeat{}).Count(&beats).Error; err != nil {
		log.Fatalf("count heartbeats: %v", err)
	}

	log.Printf("postgres ok: %s", cfg.PostgresDatabase)
	log.Printf("  agents:     %d", agents)
	log.Printf("  events:     %d", events)
	log.Printf("  heartbeats: %d", beats)

	rdb, err := data.OpenRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Printf("redis unavailable (cache optional): %v", err)
		return
	}
	defer func() { _ = rdb.Close() }()
	log.Printf("redis ok: %s", cfg.RedisURL)
}
