package main

import (
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opspulse/background-agents/src/config"
)

func TestEnvFileRoundTrips(t *testing.T) {
	cfg := config.Config{
		PostgresHost:     "db.internal",
		PostgresPort:     "5433",
		PostgresDatabase: "background_agents",
		PostgresUser:     "agents",
		PostgresPassword: "hunter2",
		PostgresSSLMode:  "disable",
		PoolSize:         10,
		MaxOverflow:      20,
		RedisURL:         "redis://localhost:6379/0",
		Port:             "8090",
		CORSEnabled:      true,
		CORSOrigins:      []string{"http://localhost:3000", "https://ops.example.com"},
		AgentKinds:       []string{"heartbeat_health_agent", "performance_monitor"},
		StartupDelay:     2 * time.Second,
		RecoveryDelay:    500 * time.Millisecond,
		RecoveryAttempts: 3,
		LogLevel:         "info",
	}

	parsed, err := godotenv.Unmarshal(envFileContent(cfg))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", parsed["POSTGRESQL_HOST"])
	assert.Equal(t, "5433", parsed["POSTGRESQL_PORT"])
	assert.Equal(t, "background_agents", parsed["POSTGRESQL_DATABASE"])
	assert.Equal(t, "true", parsed["CORS_ENABLED"])
	assert.Equal(t, "http://localhost:3000,https://ops.example.com", parsed["CORS_ORIGINS"])
	assert.Equal(t, "heartbeat_health_agent,performance_monitor", parsed["AGENT_KINDS"])
	assert.Equal(t, "2", parsed["AGENT_STARTUP_DELAY"])
	assert.Equal(t, "0.5", parsed["RECOVERY_DELAY"])
	assert.Equal(t, "3", parsed["RECOVERY_ATTEMPTS"])

	// Unset integrations still get explicit empty entries for the
	// operator to fill in.
	v, ok := parsed["ANTHROPIC_API_KEY"]
	require.True(t, ok)
	assert.Empty(t, v)
}

func TestSecondsFormatting(t *testing.T) {
	assert.Equal(t, "30", seconds(30*time.Second))
	assert.Equal(t, "2", seconds(2*time.Second))
	assert.Equal(t, "0.5", seconds(500*time.Millisecond))
	assert.Equal(t, "0", seconds(0))
}

func TestDatabaseNamePattern(t *testing.T) {
	assert.True(t, dbNameRE.MatchString("background_agents"))
	assert.True(t, dbNameRE.MatchString("_scratch"))
	assert.False(t, dbNameRE.MatchString("bad-name"))
	assert.False(t, dbNameRE.MatchString("no spaces"))
	assert.False(t, dbNameRE.MatchString(`x";DROP DATABASE y`))
}
