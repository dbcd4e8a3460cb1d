package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every externally supplied value the launcher reads. The
// supervision core only ever sees the values, never the environment.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresDatabase string
	PostgresUser     string
	PostgresPassword string
	PostgresSSLMode  string
	PoolSize         int
	MaxOverflow      int

	RedisURL string

	Port        string
	CORSEnabled bool
	CORSOrigins []string

	AgentKinds []string

	StartupDelay        time.Duration
	HealthCheckInterval time.Duration
	RecoveryAttempts    int
	RecoveryDelay       time.Duration
	HeartbeatInterval   time.Duration
	PerformanceInterval time.Duration
	LangsmithInterval   time.Duration
	AIHelpInterval      time.Duration
	ShutdownTimeout     time.Duration
	StartupTimeout      time.Duration
	HealthCheckTimeout  time.Duration

	LangsmithAPIKey string
	AnthropicAPIKey string
	AnthropicModel  string

	LogLevel string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func getint(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("env %s: %v", key, err)
	}
	return n
}

// getseconds reads a duration expressed as seconds, accepting fractional
// values such as 2.0 or 0.5.
func getseconds(key string, def float64) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(def * float64(time.Second))
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Fatalf("env %s: %v", key, err)
	}
	return time.Duration(f * float64(time.Second))
}

func getbool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Fatalf("env %s: %v", key, err)
	}
	return b
}

func getlist(key, def string) []string {
	parts := strings.Split(getenv(key, def), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func Load() Config {
	return Config{
		PostgresHost:     getenv("POSTGRESQL_HOST", "localhost"),
		PostgresPort:     getenv("POSTGRESQL_PORT", "5432"),
		PostgresDatabase: getenv("POSTGRESQL_DATABASE", "background_agents"),
		PostgresUser:     getenv("POSTGRESQL_USER", "postgres"),
		PostgresPassword: getenv("POSTGRESQL_PASSWORD", "postgres"),
		PostgresSSLMode:  getenv("POSTGRESQL_SSLMODE", "disable"),
		PoolSize:         getint("POSTGRESQL_POOL_SIZE", 10),
		MaxOverflow:      getint("POSTGRESQL_MAX_OVERFLOW", 20),

		RedisURL: getenv("REDIS_URL", "redis://localhost:6379/0"),

		Port:        getenv("PORT", "8090"),
		CORSEnabled: getbool("CORS_ENABLED", true),
		CORSOrigins: getlist("CORS_ORIGINS", "http://localhost:3000"),

		AgentKinds: getlist("AGENT_KINDS",
			"heartbeat_health_agent,performance_monitor,langsmith_bridge,ai_help_agent"),

		StartupDelay:        getseconds("AGENT_STARTUP_DELAY", 2.0),
		HealthCheckInterval: getseconds("HEALTH_CHECK_INTERVAL", 30),
		RecoveryAttempts:    getint("RECOVERY_ATTEMPTS", 3),
		RecoveryDelay:       getseconds("RECOVERY_DELAY", 5.0),
		HeartbeatInterval:   getseconds("HEARTBEAT_INTERVAL", 60),
		PerformanceInterval: getseconds("PERFORMANCE_INTERVAL", 120),
		LangsmithInterval:   getseconds("LANGSMITH_INTERVAL", 300),
		AIHelpInterval:      getseconds("AI_HELP_INTERVAL", 30),
		ShutdownTimeout:     getseconds("SHUTDOWN_TIMEOUT", 30),
		StartupTimeout:      getseconds("STARTUP_TIMEOUT", 60),
		HealthCheckTimeout:  getseconds("HEALTH_CHECK_TIMEOUT", 10),

		LangsmithAPIKey: os.Getenv("LANGSMITH_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  os.Getenv("ANTHROPIC_MODEL"),

		LogLevel: getenv("LOG_LEVEL", "info"),
	}
}

// PostgresDSN builds the DSN for the configured application database.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword,
		c.PostgresDatabase, c.PostgresSSLMode)
}

// MaintenanceDSN targets the postgres maintenance database, for use before
// the application database exists.
func (c Config) MaintenanceDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=postgres sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword,
		c.PostgresSSLMode)
}
