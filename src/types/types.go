package types

import "time"

// Agent statuses as stored in the agents table.
const (
	AgentStatusRegistered = "registered"
	AgentStatusRunning    = "running"
	AgentStatusError      = "error"
	AgentStatusStopped    = "stopped"
)

// System event severities.
const (
	SeverityInfo    = "INFO"
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
)

// Well-known system event types.
const (
	EventSystemStartup    = "system_startup"
	EventHealthCheck      = "system_health_check"
	EventShutdownStart    = "system_shutdown_start"
	EventShutdownComplete = "system_shutdown_complete"
	EventAgentFailure     = "agent_failure"
)

// Help request lifecycle states.
const (
	HelpStatusPending    = "pending"
	HelpStatusInProgress = "in_progress"
	HelpStatusCompleted  = "completed"
	HelpStatusFailed     = "failed"
)

// Health is the aggregated worker-set health snapshot.
type Health struct {
	OverallScore float64 `json:"overall_health_score"`
	ActiveAgents int     `json:"active_agents"`
	TotalAgents  int     `json:"total_agents"`
}

// Degraded reports whether the score fell below the healthy floor.
// A score of exactly 70 is still healthy.
func (h Health) Degraded() bool { return h.OverallScore < 70 }

// Registered agents
type Agent struct {
	ID              string     `gorm:"primaryKey;size:64" json:"id"`
	Name            string     `gorm:"size:128;not null" json:"name"`
	AgentType       string     `gorm:"size:64;index" json:"agent_type"`
	Status          string     `gorm:"size:32;index;default:registered" json:"status"`
	IntervalSeconds int        `gorm:"default:0" json:"interval_seconds"`
	FailureCount    int        `gorm:"default:0" json:"failure_count"`
	RegisteredAt    time.Time  `json:"registered_at"`
	LastSeen        *time.Time `json:"last_seen"`
}

// heartbeatSlack absorbs scheduler jitter before a beat counts as late.
const heartbeatSlack = 30 * time.Second

// ActiveAt reports whether the agent beat recently enough to count as
// live: within twice its own cadence plus slack. Agents without a known
// cadence get a five minute window; a missing beat is never live.
func (a Agent) ActiveAt(now time.Time) bool {
	window := 2*time.Duration(a.IntervalSeconds)*time.Second + heartbeatSlack
	if a.IntervalSeconds <= 0 {
		window = 5 * time.Minute
	}
	return a.LastSeen != nil && now.Sub(*a.LastSeen) <= window
}

// Agent liveness beats
type AgentHeartbeat struct {
	ID        uint64    `gorm:"primaryKey"`
	AgentID   string    `gorm:"size:64;index;not null"`
	Status    string    `gorm:"size:32"`
	Metadata  string    `gorm:"type:jsonb"`
	CreatedAt time.Time `gorm:"index"`
}

// Runtime and business metrics
type PerformanceMetric struct {
	ID         uint64    `gorm:"primaryKey"`
	MetricType string    `gorm:"size:64;index;not null"`
	MetricName string    `gorm:"size:128;index;not null"`
	Value      float64   `gorm:"not null"`
	Metadata   string    `gorm:"type:jsonb"`
	CreatedAt  time.Time `gorm:"index"`
}

// Key-value system state
type SystemState struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"size:256;not null"`
	UpdatedAt time.Time
}

// The default naming would pluralize to system_states.
func (SystemState) TableName() string { return "system_state" }

// Structured system events
type SystemEvent struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	EventType string    `gorm:"size:64;index;not null" json:"event_type"`
	Severity  string    `gorm:"size:16;index;not null;default:INFO" json:"severity"`
	Payload   string    `gorm:"type:jsonb" json:"payload"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Help-desk requests picked up by the AI help agent
type HelpRequest struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Requester string    `gorm:"size:128"`
	Subject   string    `gorm:"size:256;not null"`
	Body      string    `gorm:"type:text"`
	Status    string    `gorm:"size:32;index;default:pending"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// Generated answers to help requests
type HelpResponse struct {
	ID        string `gorm:"primaryKey;size:36"`
	RequestID string `gorm:"size:36;index;not null"`
	Responder string `gorm:"size:128"`
	Body      string `gorm:"type:text;not null"`
	Model     string `gorm:"size:64"`
	CreatedAt time.Time
}

// Inter-agent messages
type AgentCommunication struct {
	ID        uint64 `gorm:"primaryKey"`
	FromAgent string `gorm:"size:64;index;not null"`
	ToAgent   string `gorm:"size:64;index"`
	Kind      string `gorm:"size:64"`
	Payload   string `gorm:"type:jsonb"`
	CreatedAt time.Time
}

// LLM traces synced from LangSmith
type LLMConversation struct {
	ID           uint64    `gorm:"primaryKey"`
	TraceID      string    `gorm:"size:64;uniqueIndex;not null"`
	SessionName  string    `gorm:"size:128;index"`
	Model        string    `gorm:"size:64"`
	Prompt       string    `gorm:"type:text"`
	Completion   string    `gorm:"type:text"`
	InputTokens  int       `gorm:"default:0"`
	OutputTokens int       `gorm:"default:0"`
	LatencyMS    int64     `gorm:"default:0"`
	RecordedAt   time.Time `gorm:"index"`
}

func (LLMConversation) TableName() string { return "llm_conversations" }
