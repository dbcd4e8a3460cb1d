package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/opspulse/background-agents/src/agents"
	"github.com/opspulse/background-agents/src/agents/core"
	"github.com/opspulse/background-agents/src/config"
	"github.com/opspulse/background-agents/src/coordination"
	"github.com/opspulse/background-agents/src/data"
	"github.com/opspulse/background-agents/src/logging"
	"github.com/opspulse/background-agents/src/supervisor"
	"github.com/opspulse/background-agents/src/webclient"
	"github.com/opspulse/background-agents/src/webserver"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zlog := logger.Sugar()

	db := data.MustPostgres(cfg.PostgresDSN(), cfg.PoolSize, cfg.MaxOverflow)
	if err := data.Migrate(db); err != nil {
		zlog.Fatalw("migrate", "err", err)
	}

	ctx := context.Background()

	rdb, err := data.OpenRedis(ctx, cfg.RedisURL)
	if err != nil {
		zlog.Warnw("redis unavailable, running without cache", "err", err)
		rdb = nil
	}

	state := coordination.NewSharedState(db, rdb, zlog)
	if err := state.LoadState(ctx); err != nil {
		zlog.Warnw("system state cache not warmed", "err", err)
	}
	coord := coordination.NewCoordinator(coordination.NewGormStore(db), state, cfg.StartupDelay, zlog)

	deps := core.RuntimeDeps{
		DB:    db,
		Redis: rdb,
		HTTP:  webclient.NewDefault(30 * time.Second),
		Log:   zlog,
	}

	orch := supervisor.New(supervisor.Config{
		RecoveryAttempts: cfg.RecoveryAttempts,
		RecoveryDelay:    cfg.RecoveryDelay,
		HealthInterval:   cfg.HealthCheckInterval,
		HealthTimeout:    cfg.HealthCheckTimeout,
		StartupTimeout:   cfg.StartupTimeout,
		ShutdownTimeout:  cfg.ShutdownTimeout,
	}, supervisor.Deps{
		Backend: data.NewBackend(db),
		State:   state,
		Coord:   coord,
		Init:    coordination.NewInitializer(db),
		Workers: func() ([]core.Agent, error) {
			return agents.Build(cfg.AgentKinds, agents.Settings{
				HeartbeatInterval:   cfg.HeartbeatInterval,
				PerformanceInterval: cfg.PerformanceInterval,
				LangsmithInterval:   cfg.LangsmithInterval,
				LangsmithAPIKey:     cfg.LangsmithAPIKey,
				AIHelpInterval:      cfg.AIHelpInterval,
				AnthropicAPIKey:     cfg.AnthropicAPIKey,
				AnthropicModel:      cfg.AnthropicModel,
			}, deps)
		},
		Log: zlog,
	})

	if err := orch.Initialize(ctx); err != nil {
		zlog.Fatalw("system initialization failed", "err", err)
	}
	if err := orch.Start(ctx); err != nil {
		zlog.Fatalw("system startup failed", "err", err)
	}

	router := webserver.New(cfg, orch, state, db)
	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatalw("http", "err", err)
		}
	}()
	zlog.Infow("status api listening", "port", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	zlog.Infow("signal received, shutting down", "signal", s.String())

	orch.Shutdown(ctx)

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}
