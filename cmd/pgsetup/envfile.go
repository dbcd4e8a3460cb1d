package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/opspulse/background-agents/src/config"
)

// envFileContent renders the environment file the launcher consumes,
// grouped the way operators edit it.
func envFileContent(cfg config.Config) string {
	var b strings.Builder

	b.WriteString("# PostgreSQL\n")
	fmt.Fprintf(&b, "POSTGRESQL_HOST=%s\n", cfg.PostgresHost)
	fmt.Fprintf(&b, "POSTGRESQL_PORT=%s\n", cfg.PostgresPort)
	fmt.Fprintf(&b, "POSTGRESQL_DATABASE=%s\n", cfg.PostgresDatabase)
	fmt.Fprintf(&b, "POSTGRESQL_USER=%s\n", cfg.PostgresUser)
	fmt.Fprintf(&b, "POSTGRESQL_PASSWORD=%s\n", cfg.PostgresPassword)
	fmt.Fprintf(&b, "POSTGRESQL_SSLMODE=%s\n", cfg.PostgresSSLMode)
	fmt.Fprintf(&b, "POSTGRESQL_POOL_SIZE=%d\n", cfg.PoolSize)
	fmt.Fprintf(&b, "POSTGRESQL_MAX_OVERFLOW=%d\n", cfg.MaxOverflow)

	b.WriteString("\n# Cache\n")
	fmt.Fprintf(&b, "REDIS_URL=%s\n", cfg.RedisURL)

	b.WriteString("\n# Status API\n")
	fmt.Fprintf(&b, "PORT=%s\n", cfg.Port)
	fmt.Fprintf(&b, "CORS_ENABLED=%t\n", cfg.CORSEnabled)
	fmt.Fprintf(&b, "CORS_ORIGINS=%s\n", strings.Join(cfg.CORSOrigins, ","))

	b.WriteString("\n# Supervision\n")
	fmt.Fprintf(&b, "AGENT_KINDS=%s\n", strings.Join(cfg.AgentKinds, ","))
	fmt.Fprintf(&b, "AGENT_STARTUP_DELAY=%s\n", seconds(cfg.StartupDelay))
	fmt.Fprintf(&b, "HEALTH_CHECK_INTERVAL=%s\n", seconds(cfg.HealthCheckInterval))
	fmt.Fprintf(&b, "RECOVERY_ATTEMPTS=%d\n", cfg.RecoveryAttempts)
	fmt.Fprintf(&b, "RECOVERY_DELAY=%s\n", seconds(cfg.RecoveryDelay))
	fmt.Fprintf(&b, "SHUTDOWN_TIMEOUT=%s\n", seconds(cfg.ShutdownTimeout))
	fmt.Fprintf(&b, "STARTUP_TIMEOUT=%s\n", seconds(cfg.StartupTimeout))
	fmt.Fprintf(&b, "HEALTH_CHECK_TIMEOUT=%s\n", seconds(cfg.HealthCheckTimeout))

	b.WriteString("\n# Agent intervals\n")
	fmt.Fprintf(&b, "HEARTBEAT_INTERVAL=%s\n", seconds(cfg.HeartbeatInterval))
	fmt.Fprintf(&b, "PERFORMANCE_INTERVAL=%s\n", seconds(cfg.PerformanceInterval))
	fmt.Fprintf(&b, "LANGSMITH_INTERVAL=%s\n", seconds(cfg.LangsmithInterval))
	fmt.Fprintf(&b, "AI_HELP_INTERVAL=%s\n", seconds(cfg.AIHelpInterval))

	b.WriteString("\n# Integrations\n")
	fmt.Fprintf(&b, "LANGSMITH_API_KEY=%s\n", cfg.LangsmithAPIKey)
	fmt.Fprintf(&b, "ANTHROPIC_API_KEY=%s\n", cfg.AnthropicAPIKey)
	fmt.Fprintf(&b, "ANTHROPIC_MODEL=%s\n", cfg.AnthropicModel)

	b.WriteString("\n# Logging\n")
	fmt.Fprintf(&b, "LOG_LEVEL=%s\n", cfg.LogLevel)

	return b.String()
}

// seconds renders a duration as the plain seconds value the loader
// accepts, keeping fractions like 0.5 intact.
func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
